// Package mfcc computes Mel-frequency cepstral coefficients from mono audio.
//
// The extractor reduces a whole signal to one fixed-length feature vector,
// independent of the signal duration. It is the front-end of the voice
// verification pipeline: the vector is fed to an embedding model and then
// compared against enrolled voice samples.
//
// # Pipeline
//
//  1. Normalize: divide by max |x| (+ epsilon)
//  2. Pre-emphasis: y[n] = x[n] - 0.97 * x[n-1]
//  3. Framing: 25 ms frames with a 10 ms step, trailing samples dropped
//  4. Hamming window
//  5. Power spectrum |DFT|^2, N/2 bins per frame
//  6. 26 triangular mel filters, natural log of each energy
//  7. DCT-II, first 13 coefficients kept
//  8. Arithmetic mean across frames
//
// Default parameters:
//
//	FrameMs:     25
//	StepMs:      10
//	PreEmphasis: 0.97
//	NumFilters:  26
//	NumCoeffs:   13
//	Epsilon:     1e-10
//
// The power spectrum uses the mixed-radix/Bluestein FFT from go-dsp, so the
// frame length does not have to be a power of two and the result matches the
// direct DFT definition within floating-point tolerance.
package mfcc
