// Package config centralises environment-driven configuration for the
// backend service. Values are read once at startup; a .env file is honoured
// for local development via godotenv.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config captures all runtime configuration for the service.
type Config struct {
	Service   ServiceConfig
	Logging   LoggingConfig
	Database  DatabaseConfig
	Strava    StravaConfig
	HTTP      HTTPConfig
	Sync      SyncConfig
	Tracing   TracingConfig
	Profiling ProfilingConfig

	ShutdownTimeout     time.Duration
	ReadinessDrainDelay time.Duration
}

type ServiceConfig struct {
	Name    string
	Version string
	Env     string
	Port    string
}

type LoggingConfig struct {
	Level string
}

type DatabaseConfig struct {
	URL string
}

// StravaConfig holds the identity-provider credentials and the API base URL.
// APIBaseURL is overridable so tests can point the client at a local stub.
type StravaConfig struct {
	ClientID     string
	ClientSecret string
	APIBaseURL   string
}

type HTTPConfig struct {
	BackendURL        string
	FrontendURL       string
	SessionCookieName string
	CORSOrigins       []string
}

type SyncConfig struct {
	// PageLimit caps how many activities a single remote list call may return.
	PageLimit int
}

type TracingConfig struct {
	Enabled    bool
	Endpoint   string
	SampleRate float64
}

type ProfilingConfig struct {
	Enabled  bool
	Endpoint string
}

// Load reads configuration from the environment, applying local-dev defaults
// where a missing value is not fatal. Call Validate afterwards.
func Load() *Config {
	// Best effort; absence of a .env file is normal outside local dev.
	_ = godotenv.Load()

	return &Config{
		Service: ServiceConfig{
			Name:    getEnv("SERVICE_NAME", "therunninggame-backend"),
			Version: getEnv("SERVICE_VERSION", "dev"),
			Env:     getEnv("SERVICE_ENV", "local"),
			Port:    getEnv("PORT", "8083"),
		},
		Logging: LoggingConfig{
			Level: getEnv("LOG_LEVEL", "info"),
		},
		Database: DatabaseConfig{
			URL: os.Getenv("DATABASE_URL"),
		},
		Strava: StravaConfig{
			ClientID:     os.Getenv("STRAVA_CLIENT_ID"),
			ClientSecret: os.Getenv("STRAVA_CLIENT_SECRET"),
			APIBaseURL:   getEnv("STRAVA_API_URL", "https://www.strava.com"),
		},
		HTTP: HTTPConfig{
			BackendURL:        os.Getenv("BACKEND_URL"),
			FrontendURL:       os.Getenv("FRONTEND_URL"),
			SessionCookieName: getEnv("SESSION_COOKIE_NAME", "therunninggame_sessionid"),
			CORSOrigins: splitAndTrim(getEnv("CORS_ALLOWED_ORIGINS",
				"http://localhost,http://localhost:8083,http://localhost:8080,http://localhost:3000")),
		},
		Sync: SyncConfig{
			PageLimit: getIntEnv("SYNC_PAGE_LIMIT", 100),
		},
		Tracing: TracingConfig{
			Enabled:    getBoolEnv("TRACING_ENABLED", false),
			Endpoint:   getEnv("TRACING_ENDPOINT", "localhost:4318"),
			SampleRate: getFloatEnv("TRACING_SAMPLE_RATE", 1.0),
		},
		Profiling: ProfilingConfig{
			Enabled:  getBoolEnv("PROFILING_ENABLED", false),
			Endpoint: getEnv("PROFILING_ENDPOINT", "http://localhost:4040"),
		},
		ShutdownTimeout:     getDurationEnv("SHUTDOWN_TIMEOUT", 15*time.Second),
		ReadinessDrainDelay: getDurationEnv("READINESS_DRAIN_DELAY", 0),
	}
}

// Validate reports the first missing required setting.
func (c *Config) Validate() error {
	required := []struct {
		key   string
		value string
	}{
		{"DATABASE_URL", c.Database.URL},
		{"BACKEND_URL", c.HTTP.BackendURL},
		{"FRONTEND_URL", c.HTTP.FrontendURL},
		{"STRAVA_CLIENT_ID", c.Strava.ClientID},
		{"STRAVA_CLIENT_SECRET", c.Strava.ClientSecret},
	}
	for _, r := range required {
		if r.value == "" {
			return fmt.Errorf("required setting %s is empty", r.key)
		}
	}
	if c.Sync.PageLimit <= 0 {
		return fmt.Errorf("SYNC_PAGE_LIMIT must be positive, got %d", c.Sync.PageLimit)
	}
	return nil
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok && value != "" {
		return value
	}
	return fallback
}

func getIntEnv(key string, fallback int) int {
	if value, ok := os.LookupEnv(key); ok && value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return fallback
}

func getBoolEnv(key string, fallback bool) bool {
	if value, ok := os.LookupEnv(key); ok && value != "" {
		if parsed, err := strconv.ParseBool(value); err == nil {
			return parsed
		}
	}
	return fallback
}

func getFloatEnv(key string, fallback float64) float64 {
	if value, ok := os.LookupEnv(key); ok && value != "" {
		if parsed, err := strconv.ParseFloat(value, 64); err == nil {
			return parsed
		}
	}
	return fallback
}

func getDurationEnv(key string, fallback time.Duration) time.Duration {
	if value, ok := os.LookupEnv(key); ok && value != "" {
		if parsed, err := time.ParseDuration(value); err == nil {
			return parsed
		}
	}
	return fallback
}

func splitAndTrim(value string) []string {
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
