// Package capture turns recorded audio into the mono float signal consumed
// by the feature extractor.
//
// Supported inputs:
//
//   - WAV (RIFF, integer PCM, 8/16/24/32 bit, any channel count)
//   - Raw little-endian 16-bit PCM, described by "audio/L16; rate=N; channels=C"
//
// Multichannel input is down-mixed by averaging channels. [Resample] converts
// a Signal to the pipeline sample rate with the pure Go resampler from
// go-audio-resampling. [EncodeWAV] writes a Signal back as 16-bit mono WAV,
// used when captures are archived.
//
// Example:
//
//	sig, err := capture.Decode(body, r.Header.Get("Content-Type"))
//	if err != nil {
//	    return err
//	}
//	sig, err = capture.Resample(sig, 16000)
package capture
