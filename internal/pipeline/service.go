package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dvloznov/voice-inventory/internal/actions"
	"github.com/dvloznov/voice-inventory/internal/blob"
	"github.com/dvloznov/voice-inventory/internal/domain"
	"github.com/dvloznov/voice-inventory/internal/intent"
	"github.com/dvloznov/voice-inventory/internal/logger"
	"github.com/dvloznov/voice-inventory/internal/metrics"
	"github.com/dvloznov/voice-inventory/internal/store"
	"github.com/dvloznov/voice-inventory/internal/transcribe"
	"github.com/google/uuid"
)

// ErrCommandNotFound is returned when a correction targets a log entry the
// caller does not own.
var ErrCommandNotFound = errors.New("Voice command not found")

// DefaultHistoryLimit is used when History is called without a positive limit.
const DefaultHistoryLimit = 50

// VoiceResult is returned for every accepted submission.
type VoiceResult struct {
	CommandID        string         `json:"command_id"`
	OriginalText     string         `json:"original_text"`
	ProcessedCommand intent.Command `json:"processed_command"`
	ActionResult     actions.Result `json:"action_result"`
}

// CorrectionResult is returned after a corrected command is re-executed.
type CorrectionResult struct {
	Message          string         `json:"message"`
	ProcessedCommand intent.Command `json:"processed_command"`
	ActionResult     actions.Result `json:"action_result"`
}

// Deps are the collaborators of a VoiceService. Audio and Transcriber may be
// nil for a text-only service.
type Deps struct {
	Audio       blob.AudioStore
	Transcriber transcribe.Transcriber
	Parser      CommandParser
	Dispatcher  CommandDispatcher
	Log         store.CommandLogStore
}

// VoiceService runs voice and text submissions, corrections and history
// lookups for an owner.
type VoiceService struct {
	deps  Deps
	now   func() time.Time
	newID func() string
}

func NewVoiceService(deps Deps) *VoiceService {
	return &VoiceService{
		deps:  deps,
		now:   func() time.Time { return time.Now().UTC() },
		newID: uuid.NewString,
	}
}

func (s *VoiceService) commandPipeline() *Pipeline {
	return NewPipeline(
		&InterpretStep{Parser: s.deps.Parser},
		&LogCommandStep{Log: s.deps.Log, Now: s.now, NewID: s.newID},
		&DispatchStep{Dispatcher: s.deps.Dispatcher},
	)
}

// Submit stores the recording, transcribes it and executes the resulting
// command. The stored recording is deleted on every path. Transcription
// failures are returned wrapping transcribe.ErrUnintelligible or
// transcribe.ErrService.
func (s *VoiceService) Submit(ctx context.Context, ownerID, filename string, audio []byte) (*VoiceResult, error) {
	if s.deps.Audio == nil || s.deps.Transcriber == nil {
		return nil, errors.New("voice submissions are not configured")
	}
	start := time.Now()
	defer func() {
		metrics.VoiceLatency.WithLabelValues("audio").Observe(time.Since(start).Seconds())
	}()

	log := logger.FromContext(ctx).With().Str("owner_id", ownerID).Str("filename", filename).Logger()
	ctx = logger.WithContext(ctx, log)

	state := &PipelineState{OwnerID: ownerID, Filename: filename, Audio: audio}
	defer s.releaseAudio(ctx, state)

	p := NewPipeline(
		&StoreAudioStep{Audio: s.deps.Audio},
		&TranscribeStep{Audio: s.deps.Audio, Transcriber: s.deps.Transcriber},
	)
	if err := p.Execute(ctx, state); err != nil {
		log.Warn().Err(err).Msg("Voice submission rejected")
		return nil, err
	}

	return s.run(ctx, state)
}

// releaseAudio deletes the stored upload even if ctx has been cancelled.
func (s *VoiceService) releaseAudio(ctx context.Context, state *PipelineState) {
	if state.AudioKey == "" {
		return
	}
	if err := s.deps.Audio.Delete(context.WithoutCancel(ctx), state.AudioKey); err != nil {
		log := logger.FromContext(ctx)
		log.Error().
			Err(err).
			Str("audio_key", state.AudioKey).
			Msg("Failed to delete stored audio")
	}
}

// SubmitText executes a typed command, skipping audio handling.
func (s *VoiceService) SubmitText(ctx context.Context, ownerID, text string) (*VoiceResult, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, ErrEmptyText
	}
	start := time.Now()
	defer func() {
		metrics.VoiceLatency.WithLabelValues("text").Observe(time.Since(start).Seconds())
	}()

	ctx = logger.WithContext(ctx, logger.WithFields(logger.FromContext(ctx), map[string]interface{}{"owner_id": ownerID}))
	return s.run(ctx, &PipelineState{OwnerID: ownerID, Transcript: text})
}

func (s *VoiceService) run(ctx context.Context, state *PipelineState) (*VoiceResult, error) {
	if err := s.commandPipeline().Execute(ctx, state); err != nil {
		return nil, err
	}

	log := logger.FromContext(ctx)
	log.Info().
		Str("command_id", state.LogEntry.ID).
		Str("intent", string(state.Command.Intent)).
		Float64("confidence", state.Command.Confidence).
		Bool("success", state.Result.Success).
		Msg("Voice command processed")

	return &VoiceResult{
		CommandID:        state.LogEntry.ID,
		OriginalText:     state.Transcript,
		ProcessedCommand: state.Command,
		ActionResult:     state.Result,
	}, nil
}

// Correct re-interprets a logged command from corrected text, overwrites the
// log entry and executes the new command. Effects of the original command
// are not reversed.
func (s *VoiceService) Correct(ctx context.Context, ownerID, commandID, correctedText string) (*CorrectionResult, error) {
	correctedText = strings.TrimSpace(correctedText)
	if commandID == "" || correctedText == "" {
		return nil, ErrEmptyText
	}
	log := logger.FromContext(ctx).With().
		Str("owner_id", ownerID).
		Str("command_id", commandID).
		Logger()
	ctx = logger.WithContext(ctx, log)

	entry, err := s.deps.Log.GetCommandLog(ctx, ownerID, commandID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrCommandNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("Correct: loading command: %w", err)
	}

	cmd := s.deps.Parser.Parse(ctx, correctedText)
	processed, err := json.Marshal(cmd)
	if err != nil {
		return nil, fmt.Errorf("Correct: encoding command: %w", err)
	}

	log.Info().
		Str("previous_text", entry.OriginalText).
		RawJSON("previous_command", nonEmptyJSON(entry.ProcessedCommand)).
		Str("previous_action", entry.ActionTaken).
		Str("corrected_text", correctedText).
		Msg("Overwriting command with correction")

	entry.OriginalText = correctedText
	entry.ProcessedCommand = processed
	entry.ConfidenceScore = cmd.Confidence
	entry.ActionTaken = domain.ActionCorrected
	if err := s.deps.Log.UpdateCommandLog(ctx, entry); err != nil {
		return nil, fmt.Errorf("Correct: updating command: %w", err)
	}

	result := s.deps.Dispatcher.Dispatch(ctx, ownerID, cmd)
	metrics.VoiceCorrectionsTotal.Inc()
	metrics.ObserveCommand(string(cmd.Intent), result.Success)

	return &CorrectionResult{
		Message:          "Command corrected and executed",
		ProcessedCommand: cmd,
		ActionResult:     result,
	}, nil
}

func nonEmptyJSON(raw json.RawMessage) []byte {
	if len(raw) == 0 {
		return []byte("{}")
	}
	return raw
}

// History returns the owner's most recent commands, newest first.
func (s *VoiceService) History(ctx context.Context, ownerID string, limit int) ([]*domain.CommandLogEntry, error) {
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}
	entries, err := s.deps.Log.ListCommandLogs(ctx, ownerID, limit)
	if err != nil {
		return nil, fmt.Errorf("History: %w", err)
	}
	if entries == nil {
		entries = []*domain.CommandLogEntry{}
	}
	return entries, nil
}
