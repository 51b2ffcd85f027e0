package mfcc

import (
	"math"

	"github.com/mjibson/go-dsp/fft"
)

// Normalize scales samples into [-1, 1] by dividing by max|x| + eps.
// An all-zero signal stays all-zero. The input is not modified.
func Normalize(samples []float64, eps float64) []float64 {
	var peak float64
	for _, v := range samples {
		if a := math.Abs(v); a > peak {
			peak = a
		}
	}
	out := make([]float64, len(samples))
	scale := 1.0 / (peak + eps)
	for i, v := range samples {
		out[i] = v * scale
	}
	return out
}

// PreEmphasize applies the first-order high-pass filter
// y[0] = x[0], y[n] = x[n] - alpha*x[n-1]. The input is not modified.
func PreEmphasize(samples []float64, alpha float64) []float64 {
	out := make([]float64, len(samples))
	if len(samples) == 0 {
		return out
	}
	out[0] = samples[0]
	for n := 1; n < len(samples); n++ {
		out[n] = samples[n] - alpha*samples[n-1]
	}
	return out
}

// Frame splits samples into overlapping frames of frameLen samples, advanced
// by step. A trailing partial frame is dropped, so a signal shorter than
// frameLen yields no frames. Each frame is a fresh copy.
func Frame(samples []float64, frameLen, step int) [][]float64 {
	if frameLen <= 0 || step <= 0 || len(samples) < frameLen {
		return nil
	}
	count := (len(samples)-frameLen)/step + 1
	frames := make([][]float64, count)
	for i := range count {
		f := make([]float64, frameLen)
		copy(f, samples[i*step:i*step+frameLen])
		frames[i] = f
	}
	return frames
}

// PowerSpectrum returns |DFT(frame)|^2 for bins 0 .. N/2-1, where N is the
// frame length. N need not be a power of two.
func PowerSpectrum(frame []float64) []float64 {
	n := len(frame)
	spec := fft.FFTReal(frame)
	power := make([]float64, n/2)
	for k := range power {
		re, im := real(spec[k]), imag(spec[k])
		power[k] = re*re + im*im
	}
	return power
}

// DCT2 computes the unnormalized type-II DCT of x and keeps the first
// numCoeffs outputs:
//
//	c[k] = sum_m x[m] * cos(pi*k*(2m+1) / (2M))
func DCT2(x []float64, numCoeffs int) []float64 {
	return applyDCT(dctBasis(numCoeffs, len(x)), x)
}

func dctBasis(numCoeffs, m int) [][]float64 {
	basis := make([][]float64, numCoeffs)
	for k := range basis {
		row := make([]float64, m)
		for i := range row {
			row[i] = math.Cos(math.Pi * float64(k) * float64(2*i+1) / float64(2*m))
		}
		basis[k] = row
	}
	return basis
}

func applyDCT(basis [][]float64, x []float64) []float64 {
	out := make([]float64, len(basis))
	for k, row := range basis {
		var sum float64
		for i, v := range x {
			sum += v * row[i]
		}
		out[k] = sum
	}
	return out
}
