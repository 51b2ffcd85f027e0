// Package voiceprint turns MFCC feature vectors into speaker embeddings and
// compares them against an enrolled profile.
//
// # Architecture
//
// The verification path has three stages:
//
//  1. Generator.Generate: feature vector → fixed-dimension embedding
//  2. Profile: append-only store of enrolled embeddings
//  3. Matcher.Match: candidate vs. every enrolled embedding → verdict
//
// The Generator fits the feature vector to the model input width (128) by
// truncation or zero padding and runs a [Model]. Two models ship with this
// package:
//
//   - [ProjectionModel]: a seeded random linear projection. Deterministic and
//     dependency free.
//   - ONNXModel: runs an exported embedding network through ONNX Runtime.
//     Only compiled with the "onnx" build tag; see [ONNXAvailable].
//
// When no model is available the Generator degrades to the identity on the
// feature vector and logs one warning. Verification still works, with
// lower discriminative power.
//
// # Matching
//
// Similarity is cosine similarity. A candidate is scored against every
// enrolled embedding and the maximum score decides:
//
//	accepted = max(scores) > threshold
//
// One close enrollment sample is sufficient to accept. The full score list
// is kept on [MatchResult] for observability.
//
// # Labels
//
// [Hasher] maps an embedding to a short locality-sensitive hash so logs and
// journals can refer to a sample ("voice:A3F8") without storing the vector.
package voiceprint

// VoiceLabel returns a prefixed voice label string for use in logs and
// journal records. Format: "voice:{hash}".
func VoiceLabel(hash string) string {
	return "voice:" + hash
}
