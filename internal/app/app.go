// Package app wires configuration into the concrete backends shared by the
// binaries.
package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/dvloznov/voice-inventory/internal/actions"
	"github.com/dvloznov/voice-inventory/internal/blob"
	"github.com/dvloznov/voice-inventory/internal/config"
	infraBQ "github.com/dvloznov/voice-inventory/internal/infra/bigquery"
	"github.com/dvloznov/voice-inventory/internal/intent"
	"github.com/dvloznov/voice-inventory/internal/jobs"
	"github.com/dvloznov/voice-inventory/internal/jobs/inmemory"
	"github.com/dvloznov/voice-inventory/internal/jobs/redisstore"
	"github.com/dvloznov/voice-inventory/internal/ledger"
	"github.com/dvloznov/voice-inventory/internal/llm"
	"github.com/dvloznov/voice-inventory/internal/pipeline"
	"github.com/dvloznov/voice-inventory/internal/store"
	"github.com/dvloznov/voice-inventory/internal/store/memory"
	"github.com/dvloznov/voice-inventory/internal/store/postgres"
	"github.com/dvloznov/voice-inventory/internal/transcribe"
	"github.com/rs/zerolog"
)

// App holds the wired services. Close releases every backend it opened.
type App struct {
	Config *config.Config
	Log    zerolog.Logger
	Store  store.Store
	Ledger *ledger.Service
	Voice  *pipeline.VoiceService

	closers []func() error
}

// New opens the configured store and builds the ledger and voice services.
// Without a usable transcriber the voice service still accepts text.
func New(ctx context.Context, cfg *config.Config, log zerolog.Logger) (*App, error) {
	a := &App{Config: cfg, Log: log}

	st, err := OpenStore(ctx, cfg.Store)
	if err != nil {
		return nil, err
	}
	a.Store = st
	a.onClose(st.Close)
	a.Ledger = ledger.NewService(st)

	model, gemini, err := NewModel(ctx, cfg.LLM, log)
	if err != nil {
		a.Close()
		return nil, err
	}

	deps := pipeline.Deps{
		Parser:     intent.NewParser(model),
		Dispatcher: actions.NewDispatcher(a.Ledger),
		Log:        st,
	}

	transcriber, err := a.newTranscriber(ctx, cfg.Transcriber, gemini)
	if err != nil {
		log.Warn().Err(err).Msg("Voice uploads disabled: no transcriber")
	} else {
		audio, err := a.newAudioStore(ctx, cfg.Audio)
		if err != nil {
			a.Close()
			return nil, err
		}
		deps.Audio = audio
		deps.Transcriber = transcriber
	}

	a.Voice = pipeline.NewVoiceService(deps)
	return a, nil
}

func (a *App) onClose(f func() error) {
	a.closers = append(a.closers, f)
}

// Close releases backends in reverse order of opening.
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}

// OpenStore connects the configured store backend, creating its schema when
// EnsureSchema is set.
func OpenStore(ctx context.Context, cfg config.StoreConfig) (store.Store, error) {
	switch cfg.Backend {
	case config.StoreMemory, "":
		return memory.NewStore(), nil

	case config.StorePostgres:
		if cfg.DatabaseURL == "" {
			return nil, errors.New("DATABASE_URL is required for the postgres store")
		}
		st, err := postgres.Open(ctx, cfg.DatabaseURL, postgres.Options{
			MaxOpenConns: cfg.MaxOpenConns,
			MaxIdleConns: cfg.MaxIdleConns,
		})
		if err != nil {
			return nil, err
		}
		if cfg.EnsureSchema {
			if err := st.EnsureSchema(ctx); err != nil {
				st.Close()
				return nil, err
			}
		}
		return st, nil

	case config.StoreBigQuery:
		if cfg.BQProject == "" {
			return nil, errors.New("BQ_PROJECT is required for the bigquery store")
		}
		st, err := infraBQ.NewStore(ctx, cfg.BQProject, cfg.BQDataset)
		if err != nil {
			return nil, err
		}
		if cfg.EnsureSchema {
			if err := st.EnsureTables(ctx); err != nil {
				st.Close()
				return nil, err
			}
		}
		return st, nil
	}
	return nil, fmt.Errorf("unknown store backend %q", cfg.Backend)
}

// NewModel builds the configured language model behind a circuit breaker.
// The Gemini client is returned as well when one was created, since the
// Gemini transcriber reuses it.
func NewModel(ctx context.Context, cfg config.LLMConfig, log zerolog.Logger) (llm.Model, *llm.Gemini, error) {
	var (
		model  llm.Model
		gemini *llm.Gemini
	)

	switch cfg.Provider {
	case config.ProviderGemini, "":
		g, err := llm.NewGemini(ctx, cfg.GeminiAPIKey, cfg.GeminiModel)
		if err != nil {
			return nil, nil, err
		}
		model, gemini = g, g

	case config.ProviderOpenAI:
		if cfg.OpenAIAPIKey == "" {
			return nil, nil, errors.New("OPENAI_API_KEY is required for the openai provider")
		}
		model = llm.NewOpenAI(cfg.OpenAIAPIKey, cfg.OpenAIModel)

	default:
		return nil, nil, fmt.Errorf("unknown LLM provider %q", cfg.Provider)
	}

	breaker := llm.NewBreaker(model, llm.BreakerSettings{
		Name:                cfg.Provider,
		ConsecutiveFailures: cfg.BreakerFailures,
		Timeout:             cfg.BreakerTimeout,
		MaxProbes:           cfg.BreakerMaxProbes,
		Logger:              log,
	})
	return breaker, gemini, nil
}

func (a *App) newTranscriber(ctx context.Context, cfg config.TranscriberConfig, gemini *llm.Gemini) (transcribe.Transcriber, error) {
	switch cfg.Backend {
	case config.TranscriberGemini, "":
		if gemini == nil {
			g, err := llm.NewGemini(ctx, a.Config.LLM.GeminiAPIKey, a.Config.LLM.GeminiModel)
			if err != nil {
				return nil, err
			}
			gemini = g
		}
		return transcribe.NewGemini(gemini, cfg.Language), nil

	case config.TranscriberCloudSpeech:
		cs, err := transcribe.NewCloudSpeech(ctx, cfg.Language)
		if err != nil {
			return nil, err
		}
		a.onClose(cs.Close)
		return cs, nil
	}
	return nil, fmt.Errorf("unknown transcriber %q", cfg.Backend)
}

func (a *App) newAudioStore(ctx context.Context, cfg config.AudioConfig) (blob.AudioStore, error) {
	switch cfg.Backend {
	case config.AudioLocal, "":
		local, err := blob.NewLocalStore(cfg.Dir)
		if err != nil {
			return nil, err
		}
		return local, nil

	case config.AudioGCS:
		if cfg.Bucket == "" {
			return nil, errors.New("GCS_BUCKET is required for the gcs audio backend")
		}
		gcs, err := blob.NewGCSStore(ctx, cfg.Bucket, "voice-uploads")
		if err != nil {
			return nil, err
		}
		a.onClose(gcs.Close)
		return gcs, nil
	}
	return nil, fmt.Errorf("unknown audio backend %q", cfg.Backend)
}

// NewJobStore returns a Redis-backed job store when REDIS_URL is set and an
// in-memory one otherwise.
func (a *App) NewJobStore(ctx context.Context) (jobs.JobStore, error) {
	if a.Config.Redis.URL == "" {
		return inmemory.NewStore(), nil
	}
	rs, err := redisstore.New(ctx, a.Config.Redis.URL)
	if err != nil {
		return nil, err
	}
	a.onClose(rs.Close)
	return rs, nil
}
