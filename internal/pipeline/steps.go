package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dvloznov/voice-inventory/internal/blob"
	"github.com/dvloznov/voice-inventory/internal/domain"
	"github.com/dvloznov/voice-inventory/internal/metrics"
	"github.com/dvloznov/voice-inventory/internal/store"
	"github.com/dvloznov/voice-inventory/internal/transcribe"
)

// ErrEmptyText is returned when there is no text to interpret.
var ErrEmptyText = errors.New("no command text")

// StoreAudioStep persists the upload so it can be read back for transcription.
type StoreAudioStep struct {
	Audio blob.AudioStore
}

func (s *StoreAudioStep) Execute(ctx context.Context, state *PipelineState) error {
	key, err := s.Audio.Put(ctx, state.Filename, state.Audio)
	if err != nil {
		return fmt.Errorf("storing audio: %w", err)
	}
	state.AudioKey = key
	return nil
}

// TranscribeStep reads the stored upload and converts it to text.
type TranscribeStep struct {
	Audio       blob.AudioStore
	Transcriber transcribe.Transcriber
}

func (s *TranscribeStep) Execute(ctx context.Context, state *PipelineState) error {
	data, err := s.Audio.Get(ctx, state.AudioKey)
	if err != nil {
		return fmt.Errorf("reading audio: %w", err)
	}

	text, err := s.Transcriber.Transcribe(ctx, data, blob.Filename(state.AudioKey))
	if err != nil {
		metrics.TranscriptionFailuresTotal.WithLabelValues(failureKind(err)).Inc()
		return err
	}
	text = strings.TrimSpace(text)
	if text == "" {
		metrics.TranscriptionFailuresTotal.WithLabelValues("unintelligible").Inc()
		return transcribe.ErrUnintelligible
	}
	state.Transcript = text
	return nil
}

func failureKind(err error) string {
	switch {
	case errors.Is(err, transcribe.ErrUnintelligible):
		return "unintelligible"
	case errors.Is(err, transcribe.ErrService):
		return "service"
	default:
		return "other"
	}
}

// InterpretStep turns the transcript into a Command. It cannot fail once a
// transcript exists.
type InterpretStep struct {
	Parser CommandParser
}

func (s *InterpretStep) Execute(ctx context.Context, state *PipelineState) error {
	if strings.TrimSpace(state.Transcript) == "" {
		return ErrEmptyText
	}
	state.Command = s.Parser.Parse(ctx, state.Transcript)
	return nil
}

// LogCommandStep appends the interpreted command to the owner's history
// before it is executed.
type LogCommandStep struct {
	Log   store.CommandLogStore
	Now   func() time.Time
	NewID func() string
}

func (s *LogCommandStep) Execute(ctx context.Context, state *PipelineState) error {
	processed, err := json.Marshal(state.Command)
	if err != nil {
		return fmt.Errorf("encoding command: %w", err)
	}

	entry := &domain.CommandLogEntry{
		ID:               s.NewID(),
		OwnerID:          state.OwnerID,
		OriginalText:     state.Transcript,
		ProcessedCommand: processed,
		ActionTaken:      string(state.Command.Intent),
		ConfidenceScore:  state.Command.Confidence,
		CreatedAt:        s.Now(),
	}
	if err := s.Log.InsertCommandLog(ctx, entry); err != nil {
		return fmt.Errorf("logging command: %w", err)
	}
	state.LogEntry = entry
	return nil
}

// DispatchStep executes the command. Its outcome is data, never an error.
type DispatchStep struct {
	Dispatcher CommandDispatcher
}

func (s *DispatchStep) Execute(ctx context.Context, state *PipelineState) error {
	state.Result = s.Dispatcher.Dispatch(ctx, state.OwnerID, state.Command)
	metrics.ObserveCommand(string(state.Command.Intent), state.Result.Success)
	return nil
}
