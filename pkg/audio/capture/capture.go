package capture

import (
	"encoding/binary"
	"errors"
	"fmt"
	"mime"
	"strconv"
	"strings"
	"time"
)

// ErrUnsupportedFormat is returned when the input is not a WAV file or raw
// PCM16 stream this package can decode.
var ErrUnsupportedFormat = errors.New("capture: unsupported audio format")

// Signal is a mono audio signal. Samples are floats nominally in [-1, 1].
// A Signal is treated as immutable once captured.
type Signal struct {
	Samples    []float64
	SampleRate int
}

// Duration returns the signal length in time.
func (s Signal) Duration() time.Duration {
	if s.SampleRate <= 0 {
		return 0
	}
	return time.Duration(len(s.Samples)) * time.Second / time.Duration(s.SampleRate)
}

// Len returns the number of samples.
func (s Signal) Len() int { return len(s.Samples) }

// Decode decodes data according to its MIME content type. An empty or
// generic content type is sniffed: a RIFF header is decoded as WAV,
// anything else is rejected.
func Decode(data []byte, contentType string) (Signal, error) {
	if contentType == "" || contentType == "application/octet-stream" {
		if isRIFF(data) {
			return DecodeWAVBytes(data)
		}
		return Signal{}, fmt.Errorf("%w: unknown content", ErrUnsupportedFormat)
	}

	mediaType, params, err := mime.ParseMediaType(contentType)
	if err != nil {
		return Signal{}, fmt.Errorf("%w: %v", ErrUnsupportedFormat, err)
	}
	switch strings.ToLower(mediaType) {
	case "audio/wav", "audio/wave", "audio/x-wav", "audio/vnd.wave":
		return DecodeWAVBytes(data)
	case "audio/l16", "audio/pcm":
		rate, err := intParam(params, "rate", 0)
		if err != nil || rate <= 0 {
			return Signal{}, fmt.Errorf("%w: %s requires a rate parameter", ErrUnsupportedFormat, mediaType)
		}
		channels, err := intParam(params, "channels", 1)
		if err != nil {
			return Signal{}, fmt.Errorf("%w: bad channels parameter", ErrUnsupportedFormat)
		}
		return DecodePCM16(data, rate, channels)
	default:
		return Signal{}, fmt.Errorf("%w: %s", ErrUnsupportedFormat, mediaType)
	}
}

func intParam(params map[string]string, key string, def int) (int, error) {
	v, ok := params[key]
	if !ok {
		return def, nil
	}
	return strconv.Atoi(v)
}

func isRIFF(data []byte) bool {
	return len(data) >= 12 && string(data[:4]) == "RIFF" && string(data[8:12]) == "WAVE"
}

// DecodePCM16 decodes interleaved little-endian signed 16-bit PCM.
// A trailing partial sample frame is ignored.
func DecodePCM16(data []byte, sampleRate, channels int) (Signal, error) {
	if sampleRate <= 0 {
		return Signal{}, fmt.Errorf("%w: sample rate %d", ErrUnsupportedFormat, sampleRate)
	}
	if channels <= 0 {
		return Signal{}, fmt.Errorf("%w: %d channels", ErrUnsupportedFormat, channels)
	}
	n := len(data) / 2
	n -= n % channels
	interleaved := make([]float64, n)
	for i := range interleaved {
		s := int16(binary.LittleEndian.Uint16(data[i*2:]))
		interleaved[i] = float64(s) / 32768.0
	}
	return Signal{
		Samples:    Downmix(interleaved, channels),
		SampleRate: sampleRate,
	}, nil
}

// Downmix averages interleaved channels into a mono signal. With one
// channel the input is returned unchanged.
func Downmix(interleaved []float64, channels int) []float64 {
	if channels <= 1 {
		return interleaved
	}
	frames := len(interleaved) / channels
	mono := make([]float64, frames)
	for i := range mono {
		var sum float64
		for c := range channels {
			sum += interleaved[i*channels+c]
		}
		mono[i] = sum / float64(channels)
	}
	return mono
}
