package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/boddenberg/finance-entry-bfa-go/internal/config"
)

func TestLoad_Defaults(t *testing.T) {
	for _, k := range []string{"PORT", "LEDGER_API_URL", "TOAST_DURATION", "SUBMIT_TIMEOUT", "PAGE_SIZE", "JWT_SECRET", "CORS_ALLOWED_ORIGINS"} {
		t.Setenv(k, "")
	}

	cfg := config.Load()
	assert.Equal(t, 8080, cfg.Port)
	assert.Empty(t, cfg.LedgerAPIURL)
	assert.Empty(t, cfg.JWTSecret)
	assert.Equal(t, 4*time.Second, cfg.ToastDuration)
	assert.Equal(t, 300*time.Millisecond, cfg.ToastGrace)
	assert.Equal(t, 1500*time.Millisecond, cfg.WizardSuccessDelay)
	assert.Equal(t, 30*time.Second, cfg.SubmitTimeout)
	assert.Equal(t, 10, cfg.PageSize)
	assert.Empty(t, cfg.AllowedOrigins)
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("LEDGER_API_URL", "http://ledger:8000")
	t.Setenv("SUBMIT_TIMEOUT", "5s")
	t.Setenv("PAGE_SIZE", "not-a-number")
	t.Setenv("CORS_ALLOWED_ORIGINS", "http://localhost:5173, ,https://app.example.com")

	cfg := config.Load()
	assert.Equal(t, 9090, cfg.Port)
	assert.Equal(t, "http://ledger:8000", cfg.LedgerAPIURL)
	assert.Equal(t, 5*time.Second, cfg.SubmitTimeout)
	assert.Equal(t, 10, cfg.PageSize, "invalid values fall back to the default")
	assert.Equal(t, []string{"http://localhost:5173", "https://app.example.com"}, cfg.AllowedOrigins)
}

func TestLoadDotEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte("ENTRY_TEST_FROM_FILE=file\nENTRY_TEST_KEEP=file\n"), 0o600))

	t.Setenv("ENTRY_TEST_KEEP", "env")
	t.Setenv("ENTRY_TEST_FROM_FILE", "")
	require.NoError(t, os.Unsetenv("ENTRY_TEST_FROM_FILE"))

	require.NoError(t, config.LoadDotEnv(path))
	assert.Equal(t, "file", os.Getenv("ENTRY_TEST_FROM_FILE"))
	assert.Equal(t, "env", os.Getenv("ENTRY_TEST_KEEP"), "existing env wins")

	assert.NoError(t, config.LoadDotEnv(filepath.Join(t.TempDir(), "missing.env")))
}
