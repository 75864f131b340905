package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iho/factoryledger/internal/infrastructure/config"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("DATABASE_URL", "")

	cfg, err := config.Load()
	require.NoError(t, err)

	assert.NotEmpty(t, cfg.DatabaseURL)
	assert.Equal(t, "8080", cfg.HTTPPort)
	assert.Equal(t, "USD", cfg.BaseCurrency)
	assert.Equal(t, 24*time.Hour, cfg.IdempotencyTTL)

	verify := cfg.VerifyConfig()
	assert.Equal(t, 100*time.Millisecond, verify.InitialInterval)
	assert.Equal(t, uint64(6), verify.MaxAttempts)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://example")
	t.Setenv("REDIS_URL", "redis://example")
	t.Setenv("HTTP_PORT", "9090")
	t.Setenv("DATABASE_TIMEOUT", "45s")
	t.Setenv("BASE_CURRENCY", "PKR")
	t.Setenv("EDIT_VERIFY_MAX_ATTEMPTS", "3")
	t.Setenv("GUARD_TTL", "1m")

	cfg, err := config.Load()
	require.NoError(t, err)

	assert.Equal(t, "postgres://example", cfg.DatabaseURL)
	assert.Equal(t, "redis://example", cfg.RedisURL)
	assert.Equal(t, "9090", cfg.HTTPPort)
	assert.Equal(t, 45*time.Second, cfg.DatabaseTimeout)
	assert.Equal(t, "PKR", cfg.BaseCurrency)
	assert.Equal(t, uint64(3), cfg.VerifyConfig().MaxAttempts)
	assert.Equal(t, time.Minute, cfg.GuardTTL)
}

func TestLoadInvalidDuration(t *testing.T) {
	t.Setenv("HTTP_READ_TIMEOUT", "not-a-duration")

	_, err := config.Load()
	assert.Error(t, err)
}

func TestLoadEnvFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.env")
	require.NoError(t, os.WriteFile(path, []byte("LOG_LEVEL=debug\n"), 0o600))
	t.Setenv("LOG_LEVEL", "")
	os.Unsetenv("LOG_LEVEL")

	cfg, err := config.Load(path)
	require.NoError(t, err)
	assert.Equal(t, "debug", cfg.LogLevel)

	_, err = config.Load(filepath.Join(t.TempDir(), "missing.env"))
	assert.Error(t, err)
}

func writeSettings(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "settings.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadSettings(t *testing.T) {
	path := writeSettings(t, `
base_currency: usd
rates:
  eur: "0.9"
  PKR: "280"
chart:
  raw_materials:
    codes: ["140"]
  capital:
    name: Partners' Capital
    name_contains: Capital
`)

	s, err := config.LoadSettings(path)
	require.NoError(t, err)

	conv, err := s.Converter("GBP")
	require.NoError(t, err)
	assert.Equal(t, "USD", conv.Base())
	assert.True(t, conv.Rate("EUR").Equal(decimal.RequireFromString("0.9")))
	assert.True(t, conv.Rate("PKR").Equal(decimal.NewFromInt(280)))

	chart := s.ResolvedChart()
	assert.Equal(t, []string{"140"}, chart.RawMaterials.Codes)
	assert.Equal(t, "Inventory - Raw Materials", chart.RawMaterials.Name, "name kept from the default key")
	assert.Equal(t, "Partners' Capital", chart.Capital.Name)
	assert.Equal(t, []string{"503"}, chart.Adjustment.Codes, "untouched keys keep defaults")
}

func TestLoadSettingsEmptyPath(t *testing.T) {
	s, err := config.LoadSettings("")
	require.NoError(t, err)

	conv, err := s.Converter("EUR")
	require.NoError(t, err)
	assert.Equal(t, "EUR", conv.Base())
	assert.True(t, conv.Rate("PKR").IsZero())
}

func TestLoadSettingsRejectsBadRates(t *testing.T) {
	for name, body := range map[string]string{
		"not a number": "rates:\n  EUR: abc\n",
		"zero":         "rates:\n  EUR: \"0\"\n",
		"bad yaml":     "rates: [\n",
	} {
		t.Run(name, func(t *testing.T) {
			_, err := config.LoadSettings(writeSettings(t, body))
			assert.Error(t, err)
		})
	}

	_, err := config.LoadSettings(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
