// Package archive retains raw capture clips for offline threshold tuning.
//
// Archiving is opt-in. Clips are WAV files written by the verification
// service after each attempt; they are never read back by the pipeline and
// are not voice profiles. Keys are forward-slash separated paths such as
// "<session-id>/000003-verify.wav".
//
// Backends:
//
//   - [Dir]: a local directory
//   - [S3]: Amazon S3 or any S3-compatible object store (MinIO, R2, etc.)
package archive

import (
	"context"
	"errors"
	"fmt"
	"path"
	"strings"
)

// ErrNotFound is returned by Get when the key does not exist.
var ErrNotFound = errors.New("archive: not found")

// Store is a minimal blob store for clips.
// Implementations must be safe for concurrent use.
type Store interface {
	// Put stores data under key, replacing any existing object.
	Put(ctx context.Context, key string, data []byte) error

	// Get returns the object stored under key or an error wrapping
	// ErrNotFound.
	Get(ctx context.Context, key string) ([]byte, error)

	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error
}

// ClipKey builds the key for one capture of a session.
func ClipKey(sessionID string, seq uint64, kind string) string {
	return fmt.Sprintf("%s/%06d-%s.wav", sessionID, seq, kind)
}

// cleanKey rejects keys that would escape the store root.
func cleanKey(key string) (string, error) {
	if key == "" || strings.HasPrefix(key, "/") || strings.Contains(key, "\\") {
		return "", fmt.Errorf("archive: invalid key %q", key)
	}
	clean := path.Clean(key)
	if clean == "." || clean == ".." || strings.HasPrefix(clean, "../") {
		return "", fmt.Errorf("archive: invalid key %q", key)
	}
	return clean, nil
}
