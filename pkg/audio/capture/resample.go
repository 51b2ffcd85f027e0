package capture

import (
	"fmt"

	resampling "github.com/tphakala/go-audio-resampling"
)

// Resample converts sig to the given sample rate. A signal already at the
// target rate is returned as is. The result always holds
// round(len*rate/sig.SampleRate) samples: the resampler tail is flushed and
// any remaining shortfall is zero-filled.
func Resample(sig Signal, rate int) (Signal, error) {
	if rate <= 0 {
		return Signal{}, fmt.Errorf("capture: invalid target sample rate %d", rate)
	}
	if sig.SampleRate == rate || len(sig.Samples) == 0 {
		return Signal{Samples: sig.Samples, SampleRate: rate}, nil
	}
	if sig.SampleRate <= 0 {
		return Signal{}, fmt.Errorf("capture: invalid source sample rate %d", sig.SampleRate)
	}

	rs, err := resampling.New(&resampling.Config{
		InputRate:  float64(sig.SampleRate),
		OutputRate: float64(rate),
		Channels:   1,
		Quality:    resampling.QualitySpec{Preset: resampling.QualityHigh},
	})
	if err != nil {
		return Signal{}, fmt.Errorf("capture: create resampler: %w", err)
	}
	out, err := rs.Process(sig.Samples)
	if err != nil {
		return Signal{}, fmt.Errorf("capture: resample %d -> %d Hz: %w", sig.SampleRate, rate, err)
	}
	tail, err := rs.Flush()
	if err != nil {
		return Signal{}, fmt.Errorf("capture: flush resampler: %w", err)
	}
	out = append(out, tail...)

	want := resampledLen(len(sig.Samples), sig.SampleRate, rate)
	if len(out) > want {
		out = out[:want]
	}
	for len(out) < want {
		out = append(out, 0)
	}
	return Signal{Samples: out, SampleRate: rate}, nil
}

func resampledLen(n, from, to int) int {
	return int((int64(n)*int64(to) + int64(from)/2) / int64(from))
}
