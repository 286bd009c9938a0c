package config

import (
	"testing"
	"time"
)

func TestGetEnv_Fallback(t *testing.T) {
	if got := getEnv("VOICE_TEST_UNSET_KEY", "fallback"); got != "fallback" {
		t.Errorf("getEnv() = %q, want fallback", got)
	}

	t.Setenv("VOICE_TEST_SET_KEY", "value")
	if got := getEnv("VOICE_TEST_SET_KEY", "fallback"); got != "value" {
		t.Errorf("getEnv() = %q, want value", got)
	}
}

func TestLoadEnv_Overrides(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("STORE_BACKEND", "Postgres")
	t.Setenv("DATABASE_URL", "postgres://u:p@localhost/db")
	t.Setenv("LLM_PROVIDER", "OPENAI")
	t.Setenv("MAX_UPLOAD_BYTES", "1024")
	t.Setenv("LLM_BREAKER_TIMEOUT_SECONDS", "5")
	t.Setenv("STORE_ENSURE_SCHEMA", "false")

	cfg := LoadEnv()

	if cfg.Server.Port != "9090" {
		t.Errorf("Port = %q", cfg.Server.Port)
	}
	if cfg.Store.Backend != StorePostgres {
		t.Errorf("Store.Backend = %q", cfg.Store.Backend)
	}
	if cfg.Store.DatabaseURL != "postgres://u:p@localhost/db" {
		t.Errorf("DatabaseURL = %q", cfg.Store.DatabaseURL)
	}
	if cfg.LLM.Provider != ProviderOpenAI {
		t.Errorf("LLM.Provider = %q", cfg.LLM.Provider)
	}
	if cfg.Server.MaxUploadBytes != 1024 {
		t.Errorf("MaxUploadBytes = %d", cfg.Server.MaxUploadBytes)
	}
	if cfg.LLM.BreakerTimeout != 5*time.Second {
		t.Errorf("BreakerTimeout = %v", cfg.LLM.BreakerTimeout)
	}
	if cfg.Store.EnsureSchema {
		t.Error("EnsureSchema = true, want false")
	}
}

func TestGetEnvInt_InvalidFallsBack(t *testing.T) {
	t.Setenv("VOICE_TEST_INT", "not-a-number")

	if got := getEnvInt("VOICE_TEST_INT", 42); got != 42 {
		t.Errorf("getEnvInt() = %d, want 42", got)
	}
}
