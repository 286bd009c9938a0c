package bigquery

import (
	"context"
	"fmt"
	"time"

	"cloud.google.com/go/bigquery"
	"github.com/dvloznov/voice-inventory/internal/domain"
	"github.com/dvloznov/voice-inventory/internal/store"
)

const voiceCommandColumns = `id, owner_id, original_text,
		  TO_JSON_STRING(processed_command) AS processed_command,
		  action_taken, confidence_score, created_at`

func (s *Store) InsertCommandLog(ctx context.Context, e *domain.CommandLogEntry) error {
	if e.ID == "" {
		return fmt.Errorf("InsertCommandLog: command log ID is required")
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now().UTC()
	}
	row := newVoiceCommandRow(e)

	_, err := s.exec(ctx, "InsertCommandLog", `
		MERGE `+s.table(voiceCommandsTable)+` t
		USING (SELECT @id AS id) src
		ON t.id = src.id
		WHEN NOT MATCHED THEN
		  INSERT (id, owner_id, original_text, processed_command, action_taken, confidence_score, created_at)
		  VALUES (@id, @owner_id, @original_text, PARSE_JSON(@processed_command), @action_taken, @confidence_score, @created_at)
	`, []bigquery.QueryParameter{
		{Name: "id", Value: row.ID},
		{Name: "owner_id", Value: row.OwnerID},
		{Name: "original_text", Value: row.OriginalText},
		{Name: "processed_command", Value: row.ProcessedCommand},
		{Name: "action_taken", Value: row.ActionTaken},
		{Name: "confidence_score", Value: row.ConfidenceScore},
		{Name: "created_at", Value: row.CreatedAt},
	})
	return err
}

func (s *Store) GetCommandLog(ctx context.Context, ownerID, id string) (*domain.CommandLogEntry, error) {
	rows, err := readAll[VoiceCommandRow](ctx, s, "GetCommandLog", `
		SELECT `+voiceCommandColumns+`
		FROM `+s.table(voiceCommandsTable)+`
		WHERE owner_id = @owner_id AND id = @id
		LIMIT 1
	`, []bigquery.QueryParameter{
		{Name: "owner_id", Value: ownerID},
		{Name: "id", Value: id},
	})
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("command log %s: %w", id, store.ErrNotFound)
	}
	return rows[0].toDomain(), nil
}

func (s *Store) UpdateCommandLog(ctx context.Context, e *domain.CommandLogEntry) error {
	row := newVoiceCommandRow(e)

	n, err := s.exec(ctx, "UpdateCommandLog", `
		UPDATE `+s.table(voiceCommandsTable)+`
		SET original_text = @original_text,
		    processed_command = PARSE_JSON(@processed_command),
		    confidence_score = @confidence_score,
		    action_taken = @action_taken
		WHERE owner_id = @owner_id AND id = @id
	`, []bigquery.QueryParameter{
		{Name: "id", Value: row.ID},
		{Name: "owner_id", Value: row.OwnerID},
		{Name: "original_text", Value: row.OriginalText},
		{Name: "processed_command", Value: row.ProcessedCommand},
		{Name: "confidence_score", Value: row.ConfidenceScore},
		{Name: "action_taken", Value: row.ActionTaken},
	})
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("command log %s: %w", e.ID, store.ErrNotFound)
	}
	return nil
}

func (s *Store) ListCommandLogs(ctx context.Context, ownerID string, limit int) ([]*domain.CommandLogEntry, error) {
	rows, err := readAll[VoiceCommandRow](ctx, s, "ListCommandLogs", `
		SELECT `+voiceCommandColumns+`
		FROM `+s.table(voiceCommandsTable)+`
		WHERE owner_id = @owner_id
		ORDER BY created_at DESC, id DESC`+limitClause(limit), []bigquery.QueryParameter{
		{Name: "owner_id", Value: ownerID},
	})
	if err != nil {
		return nil, err
	}

	out := make([]*domain.CommandLogEntry, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.toDomain())
	}
	return out, nil
}
