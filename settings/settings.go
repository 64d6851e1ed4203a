// Package settings holds the user settings of the fin command line.
//
// Settings come from defaults, then a TOML file, then the environment. A .env
// file may provide environment variables; the process environment wins over it.
package settings

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/etnz/finance/date"
	"github.com/joho/godotenv"
	toml "github.com/pelletier/go-toml/v2"
	"github.com/rs/zerolog"
)

const (
	EnvLedger       = "FIN_LEDGER"
	EnvBaseCurrency = "FIN_BASE_CURRENCY"
	EnvTimeZone     = "FIN_TIME_ZONE"
	EnvDateFormat   = "FIN_DATE_FORMAT"
	EnvLogLevel     = "FIN_LOG_LEVEL"
	EnvQuoteURL     = "FIN_QUOTE_URL"
	EnvQuoteRate    = "FIN_QUOTE_RATE_LIMIT"
)

// DefaultFile is the settings file name looked up in the working directory.
const DefaultFile = "fin.toml"

// Settings are the user preferences.
type Settings struct {
	Ledger       string `toml:"ledger"`
	BaseCurrency string `toml:"base_currency"` // used when the ledger has none
	TimeZone     string `toml:"time_zone"`     // IANA name, "Local" by default
	DateFormat   string `toml:"date_format"`   // Go layout used to display dates
	LogLevel     string `toml:"log_level"`
	CostBasis    string `toml:"cost_basis"` // average or fifo
	Quotes       Quotes `toml:"quotes"`
}

// Quotes configures the quote source used by "fin update".
type Quotes struct {
	// URL is the address of a JSON quote, "{symbol}" is replaced by the
	// security symbol or the exchange rate code.
	URL         string  `toml:"url"`
	PricePath   string  `toml:"price_path"`
	DatePath    string  `toml:"date_path"`
	RateLimit   float64 `toml:"rate_limit"` // requests per second
	Concurrency int     `toml:"concurrency"`
	CacheTTL    string  `toml:"cache_ttl"`
	Timeout     string  `toml:"timeout"`
}

// GetCacheTTL parses the quote cache duration, 1h when invalid.
func (q *Quotes) GetCacheTTL() time.Duration {
	d, err := time.ParseDuration(q.CacheTTL)
	if err != nil {
		return time.Hour
	}
	return d
}

// GetTimeout parses the HTTP timeout, 30s when invalid.
func (q *Quotes) GetTimeout() time.Duration {
	d, err := time.ParseDuration(q.Timeout)
	if err != nil {
		return 30 * time.Second
	}
	return d
}

// Default returns the settings used when nothing is configured.
func Default() *Settings {
	return &Settings{
		Ledger:     "ledger.jsonl",
		TimeZone:   "Local",
		DateFormat: date.DateFormat,
		LogLevel:   "warn",
		CostBasis:  "average",
		Quotes: Quotes{
			PricePath:   "$.price",
			RateLimit:   5,
			Concurrency: 4,
			CacheTTL:    "1h",
			Timeout:     "30s",
		},
	}
}

// Load reads the settings file at path, a missing file is not an error, then
// applies the environment. envFiles are read as .env files, missing ones are
// skipped, and only provide values absent from the process environment.
func Load(path string, envFiles ...string) (*Settings, error) {
	s := Default()
	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
	case err != nil:
		return nil, fmt.Errorf("failed to read settings file %s: %w", path, err)
	default:
		if err := toml.Unmarshal(data, s); err != nil {
			return nil, fmt.Errorf("failed to parse settings file %s: %w", path, err)
		}
	}

	env := make(map[string]string)
	for _, f := range envFiles {
		values, err := godotenv.Read(f)
		if errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read env file %s: %w", f, err)
		}
		for k, v := range values {
			env[k] = v
		}
	}
	lookup := func(key string) string {
		if v, ok := os.LookupEnv(key); ok {
			return v
		}
		return env[key]
	}
	if err := s.applyEnv(lookup); err != nil {
		return nil, err
	}
	return s, s.Validate()
}

func (s *Settings) applyEnv(getenv func(string) string) error {
	for key, field := range map[string]*string{
		EnvLedger:       &s.Ledger,
		EnvBaseCurrency: &s.BaseCurrency,
		EnvTimeZone:     &s.TimeZone,
		EnvDateFormat:   &s.DateFormat,
		EnvLogLevel:     &s.LogLevel,
		EnvQuoteURL:     &s.Quotes.URL,
	} {
		if v := getenv(key); v != "" {
			*field = v
		}
	}
	if v := getenv(EnvQuoteRate); v != "" {
		r, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("invalid %s %q: %w", EnvQuoteRate, v, err)
		}
		s.Quotes.RateLimit = r
	}
	s.BaseCurrency = strings.ToUpper(s.BaseCurrency)
	return nil
}

// Validate checks the values that cannot be repaired with a default.
func (s *Settings) Validate() error {
	if _, err := s.Location(); err != nil {
		return err
	}
	if _, err := s.Level(); err != nil {
		return err
	}
	if s.Quotes.RateLimit <= 0 {
		return fmt.Errorf("quote rate limit must be positive, got %v", s.Quotes.RateLimit)
	}
	if s.Quotes.Concurrency < 1 {
		return fmt.Errorf("quote concurrency must be at least 1, got %d", s.Quotes.Concurrency)
	}
	return nil
}

// Location returns the configured time zone.
func (s *Settings) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(s.TimeZone)
	if err != nil {
		return nil, fmt.Errorf("invalid time zone %q: %w", s.TimeZone, err)
	}
	return loc, nil
}

// Today returns the current day in the configured time zone.
func (s *Settings) Today() date.Date {
	loc, err := s.Location()
	if err != nil {
		return date.Today()
	}
	return date.TodayIn(loc)
}

// FormatDate formats d with the configured layout.
func (s *Settings) FormatDate(d date.Date) string { return d.Format(s.DateFormat) }

// Level returns the configured log level.
func (s *Settings) Level() (zerolog.Level, error) {
	l, err := zerolog.ParseLevel(s.LogLevel)
	if err != nil {
		return zerolog.NoLevel, fmt.Errorf("invalid log level %q: %w", s.LogLevel, err)
	}
	return l, nil
}
