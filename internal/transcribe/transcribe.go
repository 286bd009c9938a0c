// Package transcribe turns recorded audio into text.
package transcribe

import (
	"context"
	"errors"
	"mime"
	"path/filepath"

	"github.com/dvloznov/voice-inventory/internal/audioconv"
)

var (
	// ErrUnintelligible means the recording held no recognisable speech.
	ErrUnintelligible = errors.New("could not understand audio")

	// ErrService means the recognition backend could not be reached or failed.
	ErrService = errors.New("speech recognition service error")
)

// Transcriber converts a recording into text. filename is a hint used to
// detect the container format.
type Transcriber interface {
	Transcribe(ctx context.Context, audio []byte, filename string) (string, error)
}

// mimeTypeFor detects the audio content type from magic bytes, then from the
// file extension. It returns "" when neither is known.
func mimeTypeFor(audio []byte, filename string) string {
	if f := audioconv.DetectFormat(filename, audio); f != audioconv.FormatUnknown {
		return audioconv.MIMEType(f)
	}
	return mime.TypeByExtension(filepath.Ext(filename))
}
