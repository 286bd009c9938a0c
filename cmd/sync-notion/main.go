package main

import (
	"context"
	"fmt"
	"time"

	"github.com/dvloznov/voice-inventory/internal/app"
	"github.com/dvloznov/voice-inventory/internal/config"
	"github.com/dvloznov/voice-inventory/internal/logger"
	"github.com/dvloznov/voice-inventory/internal/notionsync"
	flag "github.com/spf13/pflag"
)

func main() {
	cfg := config.Load()

	// Initialize structured logger
	log := logger.NewFromOptions(logger.Options{Level: cfg.Logger.Level})

	// Parse CLI flags
	owner := flag.String("owner", "", "Owner ID whose ledger is synced (required)")
	startDateStr := flag.String("start-date", "", "Start date in YYYY-MM-DD format (required)")
	endDateStr := flag.String("end-date", "", "End date in YYYY-MM-DD format (required)")
	notionToken := flag.String("notion-token", cfg.Notion.Token, "Notion API token (or set NOTION_TOKEN)")
	notionDBID := flag.String("notion-db-id", cfg.Notion.DatabaseID, "Notion database ID (or set NOTION_DB_ID)")
	dryRun := flag.Bool("dry-run", false, "Dry run mode - preview changes without syncing")
	flag.Parse()

	// Validate required flags
	if *owner == "" {
		log.Fatal().Msg("Error: --owner is required")
	}
	if *startDateStr == "" {
		log.Fatal().Msg("Error: --start-date is required")
	}
	if *endDateStr == "" {
		log.Fatal().Msg("Error: --end-date is required")
	}
	if *notionToken == "" {
		log.Fatal().Msg("Error: --notion-token is required")
	}
	if *notionDBID == "" {
		log.Fatal().Msg("Error: --notion-db-id is required")
	}

	// Parse dates
	startDate, err := time.Parse("2006-01-02", *startDateStr)
	if err != nil {
		log.Fatal().Err(err).Str("start_date", *startDateStr).Msg("Error: invalid start-date format, expected YYYY-MM-DD")
	}

	endDate, err := time.Parse("2006-01-02", *endDateStr)
	if err != nil {
		log.Fatal().Err(err).Str("end_date", *endDateStr).Msg("Error: invalid end-date format, expected YYYY-MM-DD")
	}

	// Validate date range
	if endDate.Before(startDate) {
		log.Fatal().
			Time("start_date", startDate).
			Time("end_date", endDate).
			Msg("Error: end-date must be after start-date")
	}

	// Create context with timeout so CLI doesn't hang
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()

	// Add logger to context
	ctx = logger.WithContext(ctx, log)

	st, err := app.OpenStore(ctx, cfg.Store)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open store")
	}
	defer st.Close()

	// Initialize Notion client
	notionClient, err := notionsync.NewNotionClient(*notionToken)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create Notion client")
	}

	stats, err := notionsync.SyncLedger(ctx, st, notionClient, notionsync.SyncRequest{
		OwnerID:    *owner,
		DatabaseID: *notionDBID,
		StartDate:  startDate,
		EndDate:    endDate.Add(24*time.Hour - time.Nanosecond),
		DryRun:     *dryRun,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Sync failed")
	}

	fmt.Printf("Sync completed successfully: %d created, %d updated, %d archived, %d unchanged.\n",
		stats.Created, stats.Updated, stats.Archived, stats.Skipped)
}
