package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config contains all runtime settings for the assistant service.
type Config struct {
	BindAddr         string
	ShutdownTimeout  time.Duration
	MetricsNamespace string

	AllowAnyOrigin bool

	DatabaseURL string

	GroqAPIKey  string
	GroqBaseURL string
	GroqModel   string

	TTSBaseURL string

	TrelloAPIKey string
	TrelloToken  string
	TrelloListID string

	RecordingsDir string

	GatherTimeout    int // seconds the IVR waits for caller input
	EmptyGatherLimit int // consecutive empty gathers before hanging up

	SidecarWorkers int
	SidecarBuffer  int
}

// Load reads environment variables and applies safe defaults.
func Load() (Config, error) {
	cfg := Config{
		BindAddr:         envOrDefault("APP_BIND_ADDR", ":8080"),
		MetricsNamespace: envOrDefault("APP_METRICS_NAMESPACE", "telvoice"),
		AllowAnyOrigin:   false,
		DatabaseURL:      envTrimmed("DATABASE_URL"),
		GroqAPIKey:       envTrimmed("GROQ_API_KEY"),
		GroqBaseURL:      envOrDefault("GROQ_BASE_URL", "https://api.groq.com/openai/v1"),
		GroqModel:        envOrDefault("GROQ_MODEL", "llama-3.3-70b-versatile"),
		TTSBaseURL:       envTrimmed("TTS_BASE_URL"),
		TrelloAPIKey:     envTrimmed("TRELLO_API_KEY"),
		TrelloToken:      envTrimmed("TRELLO_TOKEN"),
		TrelloListID:     envTrimmed("TRELLO_LIST_ID"),
		RecordingsDir:    envOrDefault("RECORDINGS_DIR", "recordings"),
		GatherTimeout:    5,
		EmptyGatherLimit: 2,
		SidecarWorkers:   2,
		SidecarBuffer:    64,
		ShutdownTimeout:  15 * time.Second,
	}
	var err error
	cfg.ShutdownTimeout, err = durationFromEnv("APP_SHUTDOWN_TIMEOUT", cfg.ShutdownTimeout)
	if err != nil {
		return Config{}, err
	}
	cfg.AllowAnyOrigin, err = boolFromEnv("APP_ALLOW_ANY_ORIGIN", cfg.AllowAnyOrigin)
	if err != nil {
		return Config{}, err
	}
	cfg.GatherTimeout, err = intFromEnv("IVR_GATHER_TIMEOUT", cfg.GatherTimeout)
	if err != nil {
		return Config{}, err
	}
	cfg.EmptyGatherLimit, err = intFromEnv("IVR_EMPTY_GATHER_LIMIT", cfg.EmptyGatherLimit)
	if err != nil {
		return Config{}, err
	}
	cfg.SidecarWorkers, err = intFromEnv("SIDECAR_WORKERS", cfg.SidecarWorkers)
	if err != nil {
		return Config{}, err
	}
	cfg.SidecarBuffer, err = intFromEnv("SIDECAR_BUFFER", cfg.SidecarBuffer)
	if err != nil {
		return Config{}, err
	}

	if cfg.GatherTimeout <= 0 {
		return Config{}, fmt.Errorf("IVR_GATHER_TIMEOUT must be positive")
	}
	if cfg.EmptyGatherLimit <= 0 {
		return Config{}, fmt.Errorf("IVR_EMPTY_GATHER_LIMIT must be positive")
	}
	if cfg.SidecarWorkers <= 0 {
		return Config{}, fmt.Errorf("SIDECAR_WORKERS must be positive")
	}
	if cfg.SidecarBuffer <= 0 {
		return Config{}, fmt.Errorf("SIDECAR_BUFFER must be positive")
	}

	return cfg, nil
}

func envOrDefault(key, fallback string) string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	return v
}

func envTrimmed(key string) string {
	return strings.TrimSpace(os.Getenv(key))
}

func durationFromEnv(key string, fallback time.Duration) (time.Duration, error) {
	v := envTrimmed(key)
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("%s parse error: %w", key, err)
	}
	return d, nil
}

func intFromEnv(key string, fallback int) (int, error) {
	v := envTrimmed(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s parse error: %w", key, err)
	}
	return n, nil
}

func boolFromEnv(key string, fallback bool) (bool, error) {
	v := strings.ToLower(envTrimmed(key))
	if v == "" {
		return fallback, nil
	}
	switch v {
	case "1", "true", "t", "yes", "y", "on":
		return true, nil
	case "0", "false", "f", "no", "n", "off":
		return false, nil
	default:
		return false, fmt.Errorf("%s parse error: expected bool", key)
	}
}
