// Package blob keeps uploaded recordings for the duration of one voice
// submission.
package blob

import (
	"context"
	"errors"
	"path"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// ErrNotFound is returned by Get for a key that does not exist.
var ErrNotFound = errors.New("audio object not found")

// AudioStore persists an upload under a generated key.
type AudioStore interface {
	// Put stores data and returns the key to read or delete it with. The
	// original filename is kept as a suffix so its extension survives.
	Put(ctx context.Context, filename string, data []byte) (string, error)
	Get(ctx context.Context, key string) ([]byte, error)

	// Delete removes the object; deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error
}

// Filename extracts the original filename part from a key.
// e.g., "gs://bucket/audio/3f2a-voice.wav" → "voice.wav"
func Filename(key string) string {
	base := path.Base(filepath.ToSlash(strings.TrimPrefix(key, "gs://")))
	if len(base) > 37 && base[36] == '-' {
		if _, err := uuid.Parse(base[:36]); err == nil {
			return base[37:]
		}
	}
	return base
}

// objectName builds a unique, path-safe object name for filename.
func objectName(filename string) string {
	base := filepath.Base(filepath.Clean("/" + filename))
	if base == "/" || base == "." {
		base = "audio"
	}
	return uuid.NewString() + "-" + base
}
