package mfcc

import "math"

// HzToMel converts frequency in Hz to the Mel scale.
func HzToMel(hz float64) float64 {
	return 2595.0 * math.Log10(1.0+hz/700.0)
}

// MelToHz converts Mel scale to frequency in Hz.
func MelToHz(mel float64) float64 {
	return 700.0 * (math.Pow(10, mel/2595.0) - 1.0)
}

// MelFilterBank creates numFilters triangular filters over the power
// spectrum of a frame with frameLen samples. Each filter has frameLen/2
// weights, one per power spectrum bin.
//
// numFilters+2 points are spaced evenly in Mel between 0 and the Nyquist
// frequency, converted back to Hz and mapped to bin floor(hz*N/rate),
// clamped to the last bin. Filter m rises linearly from point m to point
// m+1 and falls to point m+2. A filter whose points collapse onto one bin
// keeps a unit weight at its center.
func MelFilterBank(numFilters, frameLen, sampleRate int) [][]float64 {
	numBins := frameLen / 2
	melHigh := HzToMel(float64(sampleRate) / 2)

	numPoints := numFilters + 2
	bins := make([]int, numPoints)
	for i := range bins {
		mel := melHigh * float64(i) / float64(numPoints-1)
		bin := int(math.Floor(MelToHz(mel) * float64(frameLen) / float64(sampleRate)))
		bins[i] = min(max(bin, 0), numBins-1)
	}

	bank := make([][]float64, numFilters)
	for m := range numFilters {
		filter := make([]float64, numBins)
		left, center, right := bins[m], bins[m+1], bins[m+2]

		for k := left; k < center; k++ {
			filter[k] = float64(k-left) / float64(center-left)
		}
		filter[center] = 1
		for k := center + 1; k <= right; k++ {
			filter[k] = float64(right-k) / float64(right-center)
		}
		bank[m] = filter
	}
	return bank
}
