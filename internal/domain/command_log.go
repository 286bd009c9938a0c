package domain

import (
	"encoding/json"
	"time"
)

// ActionCorrected marks a log entry whose text was replaced by a correction.
const ActionCorrected = "corrected"

// CommandLogEntry is the audit record of one voice submission.
// ProcessedCommand holds the serialized interpreted command.
type CommandLogEntry struct {
	ID               string          `json:"id" db:"id"`
	OwnerID          string          `json:"owner_id" db:"owner_id"`
	OriginalText     string          `json:"original_text" db:"original_text"`
	ProcessedCommand json.RawMessage `json:"processed_command" db:"processed_command"`
	ActionTaken      string          `json:"action_taken" db:"action_taken"`
	ConfidenceScore  float64         `json:"confidence_score" db:"confidence_score"`
	CreatedAt        time.Time       `json:"created_at" db:"created_at"`
}
