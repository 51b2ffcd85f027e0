// Package voicelock gates an actuator behind voice verification.
//
// A [Session] owns one volatile voice profile and a lock. The user enrolls a
// fixed number of captures (3 by default), after which every capture is
// verified against the profile. The first accepted verification unlocks the
// session; only [Session.Reset] locks it again and discards the profile.
//
// # States
//
//	Enrolling(0) ──enroll──▶ Enrolling(1) ──enroll──▶ Enrolling(2) ──enroll──▶ Ready
//	Ready ──verify accepted──▶ Unlocked
//	Ready ──verify rejected──▶ Ready
//	any ──Reset──▶ Enrolling(0)
//
// Enrolling(0) is the locked initial state.
//
// # Pipeline
//
// Each capture runs the same numeric pipeline outside the session lock:
//
//	capture.Signal → mfcc.Extractor → voiceprint.Generator → embedding
//
// Enrollment appends the embedding and advances the state under the write
// lock, all or nothing. Verification reads a snapshot of the profile, runs
// the matcher and commits the unlock under the write lock.
//
// # Observers
//
// [Session.Subscribe] registers a callback for lock transitions. An
// [EventUnlocked] is delivered exactly once per unlock and an [EventLocked]
// only when a reset leaves the unlocked state. Callbacks run synchronously on
// the goroutine that caused the transition, after the lock is released.
//
// # Side channels
//
// Optional collaborators receive every attempt: a journal.Store for score
// distributions, an archive.Store for raw clips and [Metrics] for
// OpenTelemetry instruments. Their failures are logged and never change a
// verdict.
package voicelock
