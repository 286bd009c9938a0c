package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Store backends.
const (
	StoreMemory   = "memory"
	StorePostgres = "postgres"
	StoreBigQuery = "bigquery"
)

// LLM providers.
const (
	ProviderGemini = "gemini"
	ProviderOpenAI = "openai"
)

// Transcriber backends.
const (
	TranscriberGemini      = "gemini"
	TranscriberCloudSpeech = "cloud-speech"
)

// Audio storage backends.
const (
	AudioLocal = "local"
	AudioGCS   = "gcs"
)

type Config struct {
	Server      ServerConfig
	Logger      LoggerConfig
	Store       StoreConfig
	LLM         LLMConfig
	Transcriber TranscriberConfig
	Audio       AudioConfig
	JWT         JWTConfig
	Redis       RedisConfig
	Notion      NotionConfig
}

type ServerConfig struct {
	Port           string
	MaxUploadBytes int64
	RequestTimeout time.Duration
}

type LoggerConfig struct {
	Level      string
	File       string
	MaxSizeMB  int
	MaxBackups int
}

type StoreConfig struct {
	Backend      string
	DatabaseURL  string
	MaxOpenConns int
	MaxIdleConns int
	BQProject    string
	BQDataset    string
	EnsureSchema bool
}

type LLMConfig struct {
	Provider         string
	GeminiAPIKey     string
	GeminiModel      string
	OpenAIAPIKey     string
	OpenAIModel      string
	BreakerFailures  int
	BreakerTimeout   time.Duration
	BreakerMaxProbes int
}

type TranscriberConfig struct {
	Backend  string
	Language string
}

type AudioConfig struct {
	Backend string
	Dir     string
	Bucket  string
}

type JWTConfig struct {
	Secret string
}

type RedisConfig struct {
	URL string
}

type NotionConfig struct {
	Token      string
	DatabaseID string
}

// Load reads an optional .env file and then the process environment.
func Load() *Config {
	_ = godotenv.Load()
	return LoadEnv()
}

// LoadEnv builds a Config from the process environment only.
func LoadEnv() *Config {
	return &Config{
		Server: ServerConfig{
			Port:           getEnv("PORT", "8080"),
			MaxUploadBytes: int64(getEnvInt("MAX_UPLOAD_BYTES", 16<<20)),
			RequestTimeout: time.Duration(getEnvInt("REQUEST_TIMEOUT_SECONDS", 60)) * time.Second,
		},
		Logger: LoggerConfig{
			Level:      getEnv("LOG_LEVEL", "info"),
			File:       getEnv("LOG_FILE", ""),
			MaxSizeMB:  getEnvInt("LOG_MAX_SIZE_MB", 50),
			MaxBackups: getEnvInt("LOG_MAX_BACKUPS", 5),
		},
		Store: StoreConfig{
			Backend:      strings.ToLower(getEnv("STORE_BACKEND", StoreMemory)),
			DatabaseURL:  getEnv("DATABASE_URL", ""),
			MaxOpenConns: getEnvInt("DB_MAX_OPEN_CONNS", 10),
			MaxIdleConns: getEnvInt("DB_MAX_IDLE_CONNS", 5),
			BQProject:    getEnv("BQ_PROJECT", ""),
			BQDataset:    getEnv("BQ_DATASET", "inventory"),
			EnsureSchema: getEnvBool("STORE_ENSURE_SCHEMA", true),
		},
		LLM: LLMConfig{
			Provider:         strings.ToLower(getEnv("LLM_PROVIDER", ProviderGemini)),
			GeminiAPIKey:     getEnv("GEMINI_API_KEY", ""),
			GeminiModel:      getEnv("GEMINI_MODEL", "gemini-2.5-flash"),
			OpenAIAPIKey:     getEnv("OPENAI_API_KEY", ""),
			OpenAIModel:      getEnv("OPENAI_MODEL", "gpt-5-nano"),
			BreakerFailures:  getEnvInt("LLM_BREAKER_FAILURES", 5),
			BreakerTimeout:   time.Duration(getEnvInt("LLM_BREAKER_TIMEOUT_SECONDS", 30)) * time.Second,
			BreakerMaxProbes: getEnvInt("LLM_BREAKER_MAX_PROBES", 1),
		},
		Transcriber: TranscriberConfig{
			Backend:  strings.ToLower(getEnv("TRANSCRIBER", TranscriberGemini)),
			Language: getEnv("SPEECH_LANGUAGE", "en-US"),
		},
		Audio: AudioConfig{
			Backend: strings.ToLower(getEnv("AUDIO_BACKEND", AudioLocal)),
			Dir:     getEnv("AUDIO_DIR", os.TempDir()),
			Bucket:  getEnv("GCS_BUCKET", ""),
		},
		JWT: JWTConfig{
			Secret: getEnv("JWT_SECRET", ""),
		},
		Redis: RedisConfig{
			URL: getEnv("REDIS_URL", ""),
		},
		Notion: NotionConfig{
			Token:      getEnv("NOTION_TOKEN", ""),
			DatabaseID: getEnv("NOTION_DB_ID", ""),
		},
	}
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if value, ok := os.LookupEnv(key); ok {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if value, ok := os.LookupEnv(key); ok {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return fallback
}
