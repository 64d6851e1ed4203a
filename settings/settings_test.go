package settings

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/etnz/finance/date"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	s, err := Load(filepath.Join(t.TempDir(), "missing.toml"))
	require.NoError(t, err)
	assert.Equal(t, Default(), s)
	assert.Equal(t, time.Hour, s.Quotes.GetCacheTTL())
}

func TestLoad_File(t *testing.T) {
	path := writeFile(t, DefaultFile, `
ledger = "family.jsonl"
base_currency = "eur"
time_zone = "Europe/Paris"
date_format = "02/01/2006"
log_level = "debug"

[quotes]
url = "https://quotes.example/{symbol}"
price_path = "$.last"
rate_limit = 2.5
cache_ttl = "10m"
timeout = "nonsense"
`)
	s, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "family.jsonl", s.Ledger)
	assert.Equal(t, "EUR", s.BaseCurrency)
	assert.Equal(t, "02/01/2024", s.FormatDate(date.New(2024, 1, 2)))
	assert.Equal(t, 2.5, s.Quotes.RateLimit)
	assert.Equal(t, 4, s.Quotes.Concurrency, "unset values keep their default")
	assert.Equal(t, 10*time.Minute, s.Quotes.GetCacheTTL())
	assert.Equal(t, 30*time.Second, s.Quotes.GetTimeout())

	level, err := s.Level()
	require.NoError(t, err)
	assert.Equal(t, zerolog.DebugLevel, level)
	loc, err := s.Location()
	require.NoError(t, err)
	assert.Equal(t, "Europe/Paris", loc.String())
}

func TestLoad_Environment(t *testing.T) {
	path := writeFile(t, DefaultFile, `ledger = "file.jsonl"`)
	env := writeFile(t, ".env", "FIN_LEDGER=dotenv.jsonl\nFIN_LOG_LEVEL=info\nFIN_QUOTE_RATE_LIMIT=1\n")
	t.Setenv(EnvLogLevel, "error")

	s, err := Load(path, env, filepath.Join(t.TempDir(), "missing.env"))
	require.NoError(t, err)
	assert.Equal(t, "dotenv.jsonl", s.Ledger, ".env overrides the file")
	assert.Equal(t, "error", s.LogLevel, "the process environment overrides .env")
	assert.Equal(t, 1.0, s.Quotes.RateLimit)
}

func TestLoad_Invalid(t *testing.T) {
	testCases := []struct {
		name, content string
	}{
		{"syntax", `ledger = `},
		{"time zone", `time_zone = "Mars/Olympus"`},
		{"log level", `log_level = "loud"`},
		{"rate limit", "[quotes]\nrate_limit = 0"},
		{"concurrency", "[quotes]\nconcurrency = 0"},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Load(writeFile(t, DefaultFile, tc.content))
			assert.Error(t, err)
		})
	}

	t.Run("environment", func(t *testing.T) {
		t.Setenv(EnvQuoteRate, "fast")
		_, err := Load(filepath.Join(t.TempDir(), "missing.toml"))
		assert.Error(t, err)
	})
}
