package mfcc

import (
	"errors"
	"fmt"
	"math"

	"github.com/mjibson/go-dsp/window"
)

var (
	// ErrSignalTooShort is returned when a signal does not fill a single
	// frame, so no features can be computed.
	ErrSignalTooShort = errors.New("mfcc: signal shorter than one frame")

	// ErrInvalidSampleRate is returned when the sample rate cannot produce
	// a usable frame length.
	ErrInvalidSampleRate = errors.New("mfcc: invalid sample rate")
)

// Config controls MFCC extraction parameters.
type Config struct {
	SampleRate  int     // input sample rate in Hz
	FrameMs     int     // frame length in milliseconds (default 25)
	StepMs      int     // frame step in milliseconds (default 10)
	PreEmphasis float64 // pre-emphasis coefficient (default 0.97)
	NumFilters  int     // number of mel filters (default 26)
	NumCoeffs   int     // number of cepstral coefficients kept (default 13)
	Epsilon     float64 // guard for normalization and log energy (default 1e-10)
}

// DefaultConfig returns the standard configuration for the given sample rate.
func DefaultConfig(sampleRate int) Config {
	return Config{
		SampleRate:  sampleRate,
		FrameMs:     25,
		StepMs:      10,
		PreEmphasis: 0.97,
		NumFilters:  26,
		NumCoeffs:   13,
		Epsilon:     1e-10,
	}
}

// FrameLength returns the frame length in samples.
func (c Config) FrameLength() int {
	return c.SampleRate * c.FrameMs / 1000
}

// FrameStep returns the frame step in samples.
func (c Config) FrameStep() int {
	return c.SampleRate * c.StepMs / 1000
}

func (c Config) validate() error {
	if c.SampleRate <= 0 || c.FrameLength() < 2 || c.FrameStep() < 1 {
		return fmt.Errorf("%w: %d Hz", ErrInvalidSampleRate, c.SampleRate)
	}
	if c.NumFilters <= 0 {
		return fmt.Errorf("mfcc: NumFilters must be positive, got %d", c.NumFilters)
	}
	if c.NumCoeffs <= 0 || c.NumCoeffs > c.NumFilters {
		return fmt.Errorf("mfcc: NumCoeffs must be in [1, %d], got %d", c.NumFilters, c.NumCoeffs)
	}
	return nil
}

// Extractor computes MFCC feature vectors. The window, filter bank and DCT
// basis are computed once per Extractor. An Extractor is immutable after New
// and safe for concurrent use.
type Extractor struct {
	cfg     Config
	window  []float64
	melBank [][]float64
	dct     [][]float64
}

// New creates an Extractor with the given config.
func New(cfg Config) (*Extractor, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	n := cfg.FrameLength()
	return &Extractor{
		cfg:     cfg,
		window:  window.Hamming(n),
		melBank: MelFilterBank(cfg.NumFilters, n, cfg.SampleRate),
		dct:     dctBasis(cfg.NumCoeffs, cfg.NumFilters),
	}, nil
}

// Extract is a convenience wrapper that builds a default Extractor for the
// sample rate and extracts one feature vector.
func Extract(samples []float64, sampleRate int) ([]float32, error) {
	e, err := New(DefaultConfig(sampleRate))
	if err != nil {
		return nil, err
	}
	return e.Extract(samples)
}

// Config returns the extractor configuration.
func (e *Extractor) Config() Config { return e.cfg }

// Extract runs the full pipeline and returns exactly NumCoeffs coefficients,
// the mean of the per-frame cepstra. Returns ErrSignalTooShort when the
// signal does not fill one frame.
func (e *Extractor) Extract(samples []float64) ([]float32, error) {
	frames, err := e.cepstra(samples)
	if err != nil {
		return nil, err
	}

	mean := make([]float64, e.cfg.NumCoeffs)
	for _, c := range frames {
		for k, v := range c {
			mean[k] += v
		}
	}
	out := make([]float32, len(mean))
	n := float64(len(frames))
	for k, v := range mean {
		out[k] = float32(v / n)
	}
	return out, nil
}

// Frames returns the per-frame cepstral coefficients before temporal
// averaging, as a [numFrames][NumCoeffs] matrix.
func (e *Extractor) Frames(samples []float64) ([][]float32, error) {
	frames, err := e.cepstra(samples)
	if err != nil {
		return nil, err
	}
	out := make([][]float32, len(frames))
	for t, c := range frames {
		row := make([]float32, len(c))
		for k, v := range c {
			row[k] = float32(v)
		}
		out[t] = row
	}
	return out, nil
}

func (e *Extractor) cepstra(samples []float64) ([][]float64, error) {
	cfg := e.cfg
	x := Normalize(samples, cfg.Epsilon)
	x = PreEmphasize(x, cfg.PreEmphasis)

	frames := Frame(x, cfg.FrameLength(), cfg.FrameStep())
	if len(frames) == 0 {
		return nil, fmt.Errorf("%w: %d samples, need %d", ErrSignalTooShort, len(samples), cfg.FrameLength())
	}

	logMel := make([]float64, cfg.NumFilters)
	out := make([][]float64, len(frames))
	for t, frame := range frames {
		for i := range frame {
			frame[i] *= e.window[i]
		}
		power := PowerSpectrum(frame)

		for m, filter := range e.melBank {
			var sum float64
			for k, w := range filter {
				if w != 0 {
					sum += w * power[k]
				}
			}
			logMel[m] = math.Log(sum + cfg.Epsilon)
		}
		out[t] = applyDCT(e.dct, logMel)
	}
	return out, nil
}
