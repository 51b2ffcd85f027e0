package capture

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"math"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

const wavFormatPCM = 1

// DecodeWAVBytes decodes an in-memory WAV file.
func DecodeWAVBytes(data []byte) (Signal, error) {
	return DecodeWAV(bytes.NewReader(data))
}

// DecodeWAV decodes an integer PCM WAV stream into a mono Signal.
func DecodeWAV(r io.ReadSeeker) (Signal, error) {
	d := wav.NewDecoder(r)
	if !d.IsValidFile() {
		return Signal{}, fmt.Errorf("%w: not a valid WAV file", ErrUnsupportedFormat)
	}
	if d.WavAudioFormat != wavFormatPCM {
		return Signal{}, fmt.Errorf("%w: WAV audio format %d", ErrUnsupportedFormat, d.WavAudioFormat)
	}

	buf, err := d.FullPCMBuffer()
	if err != nil {
		return Signal{}, fmt.Errorf("capture: read WAV samples: %w", err)
	}

	depth := int(d.BitDepth)
	channels := int(d.NumChans)
	if channels <= 0 {
		return Signal{}, fmt.Errorf("%w: %d channels", ErrUnsupportedFormat, channels)
	}

	interleaved := make([]float64, len(buf.Data))
	switch depth {
	case 8:
		// 8-bit WAV is unsigned with a 128 midpoint.
		for i, v := range buf.Data {
			interleaved[i] = float64(v-128) / 128.0
		}
	case 16, 24, 32:
		scale := math.Ldexp(1, depth-1)
		for i, v := range buf.Data {
			interleaved[i] = float64(v) / scale
		}
	default:
		return Signal{}, fmt.Errorf("%w: %d-bit WAV", ErrUnsupportedFormat, depth)
	}

	return Signal{
		Samples:    Downmix(interleaved, channels),
		SampleRate: int(d.SampleRate),
	}, nil
}

// EncodeWAV encodes the signal as a 16-bit mono WAV file. Samples outside
// [-1, 1] are clipped.
func EncodeWAV(sig Signal) ([]byte, error) {
	if sig.SampleRate <= 0 {
		return nil, fmt.Errorf("capture: encode WAV: invalid sample rate %d", sig.SampleRate)
	}
	data := make([]int, len(sig.Samples))
	for i, v := range sig.Samples {
		v = max(-1, min(1, v))
		data[i] = int(math.Round(v * 32767))
	}

	ws := &writeSeeker{}
	enc := wav.NewEncoder(ws, sig.SampleRate, 16, 1, wavFormatPCM)
	err := enc.Write(&audio.IntBuffer{
		Format: &audio.Format{
			NumChannels: 1,
			SampleRate:  sig.SampleRate,
		},
		Data:           data,
		SourceBitDepth: 16,
	})
	if err != nil {
		return nil, fmt.Errorf("capture: encode WAV: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("capture: encode WAV: %w", err)
	}
	return ws.buf, nil
}

// writeSeeker is an in-memory io.WriteSeeker; the WAV encoder seeks back to
// patch chunk sizes on Close.
type writeSeeker struct {
	buf []byte
	pos int
}

func (w *writeSeeker) Write(p []byte) (int, error) {
	end := w.pos + len(p)
	if end > len(w.buf) {
		w.buf = append(w.buf, make([]byte, end-len(w.buf))...)
	}
	copy(w.buf[w.pos:], p)
	w.pos = end
	return len(p), nil
}

func (w *writeSeeker) Seek(offset int64, whence int) (int64, error) {
	var abs int64
	switch whence {
	case io.SeekStart:
		abs = offset
	case io.SeekCurrent:
		abs = int64(w.pos) + offset
	case io.SeekEnd:
		abs = int64(len(w.buf)) + offset
	default:
		return 0, errors.New("capture: invalid whence")
	}
	if abs < 0 {
		return 0, errors.New("capture: negative position")
	}
	w.pos = int(abs)
	return abs, nil
}
