// Package audio groups the audio front end of voicelock.
//
// Sub-packages:
//
//   - capture: decoding WAV and raw PCM16 captures, down-mixing and resampling
//   - mfcc: mel-frequency cepstral features computed from a capture
//
// Example usage:
//
//	import (
//	    "github.com/haivivi/voicelock/pkg/audio/capture"
//	    "github.com/haivivi/voicelock/pkg/audio/mfcc"
//	)
//
//	sig, _ := capture.Decode(body, "audio/wav")
//	features, _ := mfcc.Extract(sig.Samples, sig.SampleRate)
package audio
