package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/dvloznov/voice-inventory/internal/api/middleware"
	"github.com/dvloznov/voice-inventory/internal/app"
	"github.com/dvloznov/voice-inventory/internal/config"
	"github.com/dvloznov/voice-inventory/internal/intent"
	"github.com/dvloznov/voice-inventory/internal/logger"
	"github.com/rs/zerolog"
	flag "github.com/spf13/pflag"
)

func main() {
	cfg := config.Load()
	log := logger.NewFromOptions(logger.Options{Level: cfg.Logger.Level})

	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "parse":
		runParse(cfg, log)
	case "voice":
		runVoice(cfg, log)
	case "text":
		runText(cfg, log)
	case "correct":
		runCorrect(cfg, log)
	case "history":
		runHistory(cfg, log)
	case "token":
		runToken(cfg, log)
	case "init-store":
		runInitStore(cfg, log)
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println("Voice Inventory CLI")
	fmt.Println("\nUsage:")
	fmt.Println("  cli <command> [options]")
	fmt.Println("\nCommands:")
	fmt.Println("  parse       Interpret a sentence without executing it")
	fmt.Println("  voice       Submit a recorded voice command")
	fmt.Println("  text        Submit a typed command")
	fmt.Println("  correct     Re-run a logged command with corrected text")
	fmt.Println("  history     Show recent commands")
	fmt.Println("  token       Mint a development API token")
	fmt.Println("  init-store  Create the store's tables")
	fmt.Println("  help        Show this help message")
	fmt.Println("\nRun 'cli <command> -h' for more information on a command.")
}

// setup opens the services with a timeout so the CLI doesn't hang.
func setup(cfg *config.Config, log zerolog.Logger, timeout time.Duration) (context.Context, *app.App, func()) {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	ctx = logger.WithContext(ctx, log)

	a, err := app.New(ctx, cfg, log)
	if err != nil {
		cancel()
		log.Fatal().Err(err).Msg("Failed to initialise services")
	}
	return ctx, a, func() {
		a.Close()
		cancel()
	}
}

func printJSON(v interface{}) {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	enc.Encode(v)
}

func runParse(cfg *config.Config, log zerolog.Logger) {
	fs := flag.NewFlagSet("parse", flag.ExitOnError)
	fs.Parse(os.Args[2:])

	text := strings.Join(fs.Args(), " ")
	if strings.TrimSpace(text) == "" {
		log.Fatal().Msg("Usage: cli parse <text>")
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()
	ctx = logger.WithContext(ctx, log)

	model, _, err := app.NewModel(ctx, cfg.LLM, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create language model")
	}
	printJSON(intent.NewParser(model).Parse(ctx, text))
}

func runVoice(cfg *config.Config, log zerolog.Logger) {
	fs := flag.NewFlagSet("voice", flag.ExitOnError)
	owner := fs.String("owner", "", "Owner ID (required)")
	filePath := fs.String("file", "", "Path to the recording (required)")
	fs.Parse(os.Args[2:])

	if *owner == "" || *filePath == "" {
		log.Fatal().Msg("Usage: cli voice --owner ID --file PATH")
	}

	audio, err := os.ReadFile(*filePath)
	if err != nil {
		log.Fatal().Err(err).Str("file", *filePath).Msg("Failed to read recording")
	}

	ctx, a, done := setup(cfg, log, 2*time.Minute)
	defer done()

	result, err := a.Voice.Submit(ctx, *owner, filepath.Base(*filePath), audio)
	if err != nil {
		log.Fatal().Err(err).Msg("Voice command failed")
	}
	printJSON(result)
}

func runText(cfg *config.Config, log zerolog.Logger) {
	fs := flag.NewFlagSet("text", flag.ExitOnError)
	owner := fs.String("owner", "", "Owner ID (required)")
	fs.Parse(os.Args[2:])

	text := strings.Join(fs.Args(), " ")
	if *owner == "" || strings.TrimSpace(text) == "" {
		log.Fatal().Msg("Usage: cli text --owner ID <text>")
	}

	ctx, a, done := setup(cfg, log, time.Minute)
	defer done()

	result, err := a.Voice.SubmitText(ctx, *owner, text)
	if err != nil {
		log.Fatal().Err(err).Msg("Command failed")
	}
	printJSON(result)
}

func runCorrect(cfg *config.Config, log zerolog.Logger) {
	fs := flag.NewFlagSet("correct", flag.ExitOnError)
	owner := fs.String("owner", "", "Owner ID (required)")
	commandID := fs.String("id", "", "Command ID to correct (required)")
	text := fs.String("text", "", "Corrected text (required)")
	fs.Parse(os.Args[2:])

	if *owner == "" || *commandID == "" || *text == "" {
		log.Fatal().Msg("Usage: cli correct --owner ID --id COMMAND_ID --text TEXT")
	}

	ctx, a, done := setup(cfg, log, time.Minute)
	defer done()

	result, err := a.Voice.Correct(ctx, *owner, *commandID, *text)
	if err != nil {
		log.Fatal().Err(err).Msg("Correction failed")
	}
	printJSON(result)
}

func runHistory(cfg *config.Config, log zerolog.Logger) {
	fs := flag.NewFlagSet("history", flag.ExitOnError)
	owner := fs.String("owner", "", "Owner ID (required)")
	limit := fs.IntP("limit", "n", 20, "Number of commands to show")
	fs.Parse(os.Args[2:])

	if *owner == "" {
		log.Fatal().Msg("Error: --owner is required")
	}

	ctx, a, done := setup(cfg, log, time.Minute)
	defer done()

	entries, err := a.Voice.History(ctx, *owner, *limit)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load history")
	}

	fmt.Printf("%-36s  %-20s  %-10s  %s\n", "ID", "CREATED", "ACTION", "TEXT")
	for _, e := range entries {
		fmt.Printf("%-36s  %-20s  %-10s  %s\n",
			e.ID, e.CreatedAt.Format("2006-01-02 15:04:05"), e.ActionTaken, e.OriginalText)
	}
}

func runToken(cfg *config.Config, log zerolog.Logger) {
	fs := flag.NewFlagSet("token", flag.ExitOnError)
	owner := fs.String("owner", "", "Owner ID to embed (required)")
	ttl := fs.Duration("ttl", 24*time.Hour, "Token lifetime")
	fs.Parse(os.Args[2:])

	if *owner == "" {
		log.Fatal().Msg("Error: --owner is required")
	}
	if cfg.JWT.Secret == "" {
		log.Fatal().Msg("JWT_SECRET is required")
	}

	token, err := middleware.IssueToken(cfg.JWT.Secret, *owner, *ttl)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to issue token")
	}
	fmt.Println(token)
}

func runInitStore(cfg *config.Config, log zerolog.Logger) {
	fs := flag.NewFlagSet("init-store", flag.ExitOnError)
	backend := fs.String("store", cfg.Store.Backend, "Store backend: postgres or bigquery")
	fs.Parse(os.Args[2:])

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()
	ctx = logger.WithContext(ctx, log)

	storeCfg := cfg.Store
	storeCfg.Backend = *backend
	storeCfg.EnsureSchema = true

	st, err := app.OpenStore(ctx, storeCfg)
	if err != nil {
		log.Fatal().Err(err).Str("store", *backend).Msg("Failed to initialise store")
	}
	defer st.Close()

	fmt.Printf("Store %q initialised successfully.\n", *backend)
}
