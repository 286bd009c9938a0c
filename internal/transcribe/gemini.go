package transcribe

import (
	"context"
	"fmt"
	"strings"

	"github.com/dvloznov/voice-inventory/internal/logger"
)

// unintelligibleMarker is what the model is told to answer for silence or noise.
const unintelligibleMarker = "[UNINTELLIGIBLE]"

// BlobModel is a multimodal model that accepts inline binary data.
// *llm.Gemini satisfies it.
type BlobModel interface {
	GenerateWithBlob(ctx context.Context, prompt, mimeType string, data []byte) (string, error)
}

// Gemini transcribes by sending the recording inline to a multimodal model.
type Gemini struct {
	model    BlobModel
	language string
}

func NewGemini(model BlobModel, language string) *Gemini {
	if language == "" {
		language = "en-US"
	}
	return &Gemini{model: model, language: language}
}

func (g *Gemini) prompt() string {
	return "Transcribe this voice recording verbatim. The speaker uses language " + g.language + ".\n" +
		"Return only the spoken words as plain text, no quotes, no commentary.\n" +
		"If there is no intelligible speech, return exactly " + unintelligibleMarker + "\n"
}

func (g *Gemini) Transcribe(ctx context.Context, audio []byte, filename string) (string, error) {
	log := logger.FromContext(ctx)

	if len(audio) == 0 {
		return "", ErrUnintelligible
	}
	mimeType := mimeTypeFor(audio, filename)
	if mimeType == "" {
		return "", fmt.Errorf("%w: unrecognised audio format %q", ErrUnintelligible, filename)
	}

	text, err := g.model.GenerateWithBlob(ctx, g.prompt(), mimeType, audio)
	if err != nil {
		log.Error().Err(err).Str("mime_type", mimeType).Msg("Gemini transcription failed")
		return "", fmt.Errorf("%w: %v", ErrService, err)
	}

	text = strings.TrimSpace(text)
	if text == "" || strings.Contains(text, unintelligibleMarker) {
		return "", ErrUnintelligible
	}
	return text, nil
}
