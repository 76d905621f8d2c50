package config

import (
	"errors"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all application configuration.
// Values are loaded from environment variables with sensible defaults.
type Config struct {
	// Server
	Port     int
	LogLevel string

	// Ledger backend. An empty LedgerAPIURL selects the in-memory store.
	LedgerAPIURL string
	SeedFile     string

	// HTTP client
	HTTPTimeout time.Duration

	// Resilience
	MaxRetries     int
	InitialBackoff time.Duration
	MaxConcurrency int

	// Cache
	CacheTTL time.Duration

	// Observability
	OTLPEndpoint string

	// JWT / Auth. An empty secret disables authentication.
	JWTSecret string

	// CORS. Empty disables cross-origin access.
	AllowedOrigins []string

	// Notifications
	ToastDuration time.Duration
	ToastGrace    time.Duration

	// Wizard
	WizardSuccessDelay time.Duration
	WizardExitDelay    time.Duration
	SubmitTimeout      time.Duration

	// Transaction table
	PageSize int
}

// LoadDotEnv loads a .env file without overriding variables already set.
// A missing file is not an error.
func LoadDotEnv(path string) error {
	err := godotenv.Load(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return err
}

// Load reads configuration from environment variables with defaults.
func Load() *Config {
	return &Config{
		Port:     getEnvInt("PORT", 8080),
		LogLevel: getEnv("LOG_LEVEL", "info"),

		LedgerAPIURL: getEnv("LEDGER_API_URL", ""),
		SeedFile:     getEnv("SEED_FILE", ""),

		HTTPTimeout: getEnvDuration("HTTP_TIMEOUT", 10*time.Second),

		MaxRetries:     getEnvInt("MAX_RETRIES", 3),
		InitialBackoff: getEnvDuration("INITIAL_BACKOFF", 100*time.Millisecond),
		MaxConcurrency: getEnvInt("MAX_CONCURRENCY", 50),

		CacheTTL: getEnvDuration("CACHE_TTL", 5*time.Minute),

		OTLPEndpoint: getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", ""),

		JWTSecret: getEnv("JWT_SECRET", ""),

		AllowedOrigins: getEnvList("CORS_ALLOWED_ORIGINS"),

		ToastDuration: getEnvDuration("TOAST_DURATION", 4*time.Second),
		ToastGrace:    getEnvDuration("TOAST_GRACE", 300*time.Millisecond),

		WizardSuccessDelay: getEnvDuration("WIZARD_SUCCESS_DELAY", 1500*time.Millisecond),
		WizardExitDelay:    getEnvDuration("WIZARD_EXIT_DELAY", 300*time.Millisecond),
		SubmitTimeout:      getEnvDuration("SUBMIT_TIMEOUT", 30*time.Second),

		PageSize: getEnvInt("PAGE_SIZE", 10),
	}
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// getEnvList splits a comma-separated variable, dropping empty items.
func getEnvList(key string) []string {
	var out []string
	for _, item := range strings.Split(os.Getenv(key), ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
