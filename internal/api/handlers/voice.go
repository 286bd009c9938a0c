package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/dvloznov/voice-inventory/internal/api/middleware"
	"github.com/dvloznov/voice-inventory/internal/pipeline"
	"github.com/dvloznov/voice-inventory/internal/transcribe"
	"github.com/rs/zerolog"
)

// VoiceHandler handles voice submission, correction and history endpoints.
type VoiceHandler struct {
	voice          *pipeline.VoiceService
	maxUploadBytes int64
	log            zerolog.Logger
}

// NewVoiceHandler creates a new voice handler.
func NewVoiceHandler(voice *pipeline.VoiceService, maxUploadBytes int64, log zerolog.Logger) *VoiceHandler {
	if maxUploadBytes <= 0 {
		maxUploadBytes = 16 << 20
	}
	return &VoiceHandler{
		voice:          voice,
		maxUploadBytes: maxUploadBytes,
		log:            log,
	}
}

// Upload handles POST /api/voice/upload (multipart field "audio").
func (h *VoiceHandler) Upload(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadBytes)
	if err := r.ParseMultipartForm(h.maxUploadBytes); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			middleware.WriteError(w, http.StatusRequestEntityTooLarge, "Audio file is too large")
			return
		}
		middleware.WriteError(w, http.StatusBadRequest, "No audio file provided")
		return
	}

	file, header, err := r.FormFile("audio")
	if err != nil {
		// A part named "audio" without a filename arrives as a plain value.
		if _, ok := r.MultipartForm.Value["audio"]; ok {
			middleware.WriteError(w, http.StatusBadRequest, "No file selected")
			return
		}
		middleware.WriteError(w, http.StatusBadRequest, "No audio file provided")
		return
	}
	defer file.Close()

	if strings.TrimSpace(header.Filename) == "" {
		middleware.WriteError(w, http.StatusBadRequest, "No file selected")
		return
	}

	audio, err := io.ReadAll(file)
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to read uploaded audio")
		middleware.WriteError(w, http.StatusBadRequest, "Failed to read audio file")
		return
	}

	result, err := h.voice.Submit(ctx, middleware.OwnerIDFromContext(ctx), header.Filename, audio)
	switch {
	case errors.Is(err, transcribe.ErrUnintelligible):
		middleware.WriteError(w, http.StatusUnprocessableEntity, "Could not understand audio")
		return
	case errors.Is(err, transcribe.ErrService):
		middleware.WriteError(w, http.StatusBadGateway, "Speech recognition service error")
		return
	case err != nil:
		h.log.Error().Err(err).Msg("Voice submission failed")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to process voice command")
		return
	}

	middleware.WriteJSON(w, http.StatusOK, result)
}

// Text handles POST /api/voice/text, running a typed command through the
// same interpretation and dispatch as a recording.
func (h *VoiceHandler) Text(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req struct {
		Text string `json:"text"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	result, err := h.voice.SubmitText(ctx, middleware.OwnerIDFromContext(ctx), req.Text)
	if errors.Is(err, pipeline.ErrEmptyText) {
		middleware.WriteError(w, http.StatusBadRequest, "Text is required")
		return
	}
	if err != nil {
		h.log.Error().Err(err).Msg("Text command failed")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to process command")
		return
	}

	middleware.WriteJSON(w, http.StatusOK, result)
}

// Correct handles POST /api/voice/correct
func (h *VoiceHandler) Correct(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req struct {
		CommandID     string `json:"command_id"`
		CorrectedText string `json:"corrected_text"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.CommandID == "" || strings.TrimSpace(req.CorrectedText) == "" {
		middleware.WriteError(w, http.StatusBadRequest, "Command ID and corrected text are required")
		return
	}

	result, err := h.voice.Correct(ctx, middleware.OwnerIDFromContext(ctx), req.CommandID, req.CorrectedText)
	if errors.Is(err, pipeline.ErrCommandNotFound) {
		middleware.WriteError(w, http.StatusNotFound, err.Error())
		return
	}
	if err != nil {
		h.log.Error().Err(err).Str("command_id", req.CommandID).Msg("Correction failed")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to correct command")
		return
	}

	middleware.WriteJSON(w, http.StatusOK, result)
}

// History handles GET /api/voice/history?limit=50
func (h *VoiceHandler) History(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	entries, err := h.voice.History(ctx, middleware.OwnerIDFromContext(ctx), queryInt(r, "limit", pipeline.DefaultHistoryLimit))
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to load voice history")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to load voice history")
		return
	}

	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"voice_commands": entries,
	})
}
