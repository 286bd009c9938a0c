package notionsync

import (
	"context"
	"fmt"
	"time"

	"github.com/dvloznov/voice-inventory/internal/jobs"
	"github.com/dvloznov/voice-inventory/internal/logger"
	"github.com/dvloznov/voice-inventory/internal/store"
	"github.com/jomei/notionapi"
)

const (
	// BatchSize defines the number of transactions to process in a single batch
	BatchSize = 100
)

// SyncRequest selects the ledger slice to mirror.
type SyncRequest struct {
	OwnerID    string
	DatabaseID string
	StartDate  time.Time
	EndDate    time.Time
	DryRun     bool
}

// SyncLedger mirrors the owner's transactions dated within the request range
// into a Notion database. Pages are matched by their Transaction ID property:
// missing ones are created, drifted ones updated, and the owner's pages in
// range with no matching transaction are archived. Pages of other owners or
// outside the range are left alone.
func SyncLedger(ctx context.Context, src TransactionSource, notionClient NotionService, req SyncRequest) (*jobs.SyncStats, error) {
	log := logger.FromContext(ctx).With().
		Str("owner_id", req.OwnerID).
		Time("start_date", req.StartDate).
		Time("end_date", req.EndDate).
		Bool("dry_run", req.DryRun).
		Logger()

	log.Info().Msg("Starting ledger sync to Notion")

	transactions, err := src.ListTransactions(ctx, store.TransactionFilter{
		OwnerID: req.OwnerID,
		Since:   req.StartDate,
		Until:   req.EndDate,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to query transactions: %w", err)
	}
	log.Info().Int("transaction_count", len(transactions)).Msg("Retrieved ledger transactions")

	notionPages, err := queryAllNotionPages(ctx, notionClient, req.DatabaseID)
	if err != nil {
		return nil, fmt.Errorf("failed to query Notion pages: %w", err)
	}

	valid := make(map[string]bool, len(transactions))
	for _, tx := range transactions {
		valid[tx.ID] = true
	}

	stats := &jobs.SyncStats{}
	existing := make(map[string]notionapi.Page)

	for _, page := range notionPages {
		rec := readPage(page)
		if rec.Owner != req.OwnerID || !inRange(rec, req.StartDate, req.EndDate) {
			continue
		}
		if rec.TransactionID != "" && valid[rec.TransactionID] {
			if _, dup := existing[rec.TransactionID]; !dup {
				existing[rec.TransactionID] = page
				continue
			}
		}

		// Stale, untagged or duplicate.
		if req.DryRun {
			log.Info().
				Str("transaction_id", rec.TransactionID).
				Str("page_id", string(page.ID)).
				Msg("[DRY RUN] Would archive stale Notion page")
			stats.Archived++
			continue
		}
		if err := notionClient.DeletePage(ctx, string(page.ID)); err != nil {
			log.Warn().
				Err(err).
				Str("transaction_id", rec.TransactionID).
				Str("page_id", string(page.ID)).
				Msg("Failed to archive stale Notion page")
			continue
		}
		stats.Archived++
	}

	for i := 0; i < len(transactions); i += BatchSize {
		end := i + BatchSize
		if end > len(transactions) {
			end = len(transactions)
		}
		batch := transactions[i:end]
		log.Debug().
			Int("batch_start", i).
			Int("batch_end", end).
			Msg("Processing batch")

		for _, tx := range batch {
			page, found := existing[tx.ID]
			switch {
			case found && readPage(page).matches(tx):
				stats.Skipped++

			case found:
				if req.DryRun {
					log.Info().Str("transaction_id", tx.ID).Msg("[DRY RUN] Would update Notion page")
					stats.Updated++
					continue
				}
				if _, err := notionClient.UpdatePage(ctx, string(page.ID), TransactionToNotionProperties(tx)); err != nil {
					log.Warn().Err(err).Str("transaction_id", tx.ID).Msg("Failed to update Notion page")
					continue
				}
				stats.Updated++

			default:
				if req.DryRun {
					log.Info().Str("transaction_id", tx.ID).Msg("[DRY RUN] Would create Notion page")
					stats.Created++
					continue
				}
				created, err := notionClient.CreatePage(ctx, req.DatabaseID, TransactionToNotionProperties(tx))
				if err != nil {
					log.Warn().Err(err).Str("transaction_id", tx.ID).Msg("Failed to create Notion page")
					continue
				}
				log.Debug().
					Str("transaction_id", tx.ID).
					Str("page_id", string(created.ID)).
					Msg("Created Notion page")
				stats.Created++
			}
		}
	}

	log.Info().
		Int("created", stats.Created).
		Int("updated", stats.Updated).
		Int("archived", stats.Archived).
		Int("skipped", stats.Skipped).
		Int("total", len(transactions)).
		Msg("Ledger sync completed")

	return stats, nil
}

// inRange checks a page's date against the sync window. Pages without a
// date are in range so they can be cleaned up.
func inRange(rec pageRecord, start, end time.Time) bool {
	if !rec.HasDate {
		return true
	}
	if !start.IsZero() && rec.Date.Before(start) {
		return false
	}
	if !end.IsZero() && rec.Date.After(end) {
		return false
	}
	return true
}

// queryAllNotionPages queries all pages from a Notion database, following
// pagination cursors.
func queryAllNotionPages(ctx context.Context, notionClient NotionService, databaseID string) ([]notionapi.Page, error) {
	var allPages []notionapi.Page
	var cursor notionapi.Cursor

	for {
		req := &notionapi.DatabaseQueryRequest{
			PageSize: 100,
		}
		if cursor != "" {
			req.StartCursor = cursor
		}

		resp, err := notionClient.QueryDatabase(ctx, databaseID, req)
		if err != nil {
			return nil, fmt.Errorf("queryAllNotionPages: %w", err)
		}

		allPages = append(allPages, resp.Results...)

		if !resp.HasMore {
			break
		}
		cursor = resp.NextCursor
	}

	return allPages, nil
}

// NewJobHandler returns a jobs.JobHandler that runs SyncLedger for each
// SyncLedgerJob and records its stats on the job.
func NewJobHandler(src TransactionSource, notionClient NotionService, databaseID string) jobs.JobHandler {
	return func(ctx context.Context, job jobs.Job) error {
		j, ok := job.(*jobs.SyncLedgerJob)
		if !ok {
			return fmt.Errorf("unsupported job type %s", job.GetType())
		}
		stats, err := SyncLedger(ctx, src, notionClient, SyncRequest{
			OwnerID:    j.OwnerID,
			DatabaseID: databaseID,
			StartDate:  j.StartDate,
			EndDate:    j.EndDate,
			DryRun:     j.DryRun,
		})
		if err != nil {
			return err
		}
		j.Stats = stats
		return nil
	}
}
