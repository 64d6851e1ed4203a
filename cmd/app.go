// Package cmd implements the CLI application to manage a family ledger.
package cmd

import (
	"bytes"
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/etnz/finance"
	"github.com/etnz/finance/date"
	"github.com/etnz/finance/settings"
	"github.com/google/subcommands"
	"github.com/hako/durafmt"
	"github.com/rs/zerolog"
)

// Commands are the subcommands of the application, in help order.
var Commands = []subcommands.Command{
	&balanceCmd{},
	&cashflowCmd{},
	&networthCmd{},
	&attributesCmd{},
	&categoriesCmd{},
	&securitiesCmd{},
	&transactionsCmd{},
	&rateCmd{},
	&priceCmd{},
	&addSecurityCmd{},
	&updateCmd{},
	&fmtCmd{},
}

// Register the subcommands.
// A main package will call Register() to allow subcommands, and Execute() on the user-selected one.
func Register(c *subcommands.Commander) {
	for _, cmd := range Commands {
		group := "reports"
		switch cmd.Name() {
		case "rate", "price", "add-security", "update", "fmt":
			group = "ledger"
		}
		c.Register(cmd, group)
	}
}

// as a CLI application, it has a very short lived lifecycle, so it is ok to use global variables.

var (
	settingsFile = flag.String("settings", settings.DefaultFile, "Path to the settings file")
	ledgerFile   = flag.String("ledger", "", "Path to the ledger file. Defaults to the ledger of the settings.")
	Verbose      = flag.Bool("v", false, "Log debug messages")
)

// app is what every command needs: settings and a logger.
type app struct {
	settings *settings.Settings
	log      zerolog.Logger
}

// newApp loads the settings, then applies the global flags.
func newApp() (*app, error) {
	s, err := settings.Load(*settingsFile, ".env")
	if err != nil {
		return nil, err
	}
	if *ledgerFile != "" {
		s.Ledger = *ledgerFile
	}
	level, err := s.Level()
	if err != nil {
		return nil, err
	}
	if *Verbose {
		level = zerolog.DebugLevel
	}
	out := zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.TimeOnly}
	log := zerolog.New(out).Level(level).With().Timestamp().Logger()
	return &app{settings: s, log: log}, nil
}

// open decodes the ledger file, an absent file is an empty ledger with the
// base currency of the settings, if any.
func (a *app) open() (*finance.RecordKeeper, error) {
	start := time.Now()
	data, err := os.ReadFile(a.settings.Ledger)
	if errors.Is(err, fs.ErrNotExist) {
		a.log.Warn().Str("ledger", a.settings.Ledger).Msg("ledger does not exist, starting an empty one")
		rk := finance.New()
		rk.SetLogger(a.log)
		if a.settings.BaseCurrency != "" {
			if _, err := rk.AddCurrency(a.settings.BaseCurrency, -1); err != nil {
				return nil, err
			}
		}
		return rk, nil
	}
	if err != nil {
		return nil, err
	}
	rk, err := finance.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decoding %s: %w", a.settings.Ledger, err)
	}
	rk.SetLogger(a.log)
	a.elapsed(start, "decoded %s", a.settings.Ledger)
	return rk, nil
}

// save encodes the ledger into a temporary file, then replaces the ledger file.
func (a *app) save(rk *finance.RecordKeeper) error {
	var buf bytes.Buffer
	if err := finance.Encode(&buf, rk); err != nil {
		return err
	}
	dir := filepath.Dir(a.settings.Ledger)
	f, err := os.CreateTemp(dir, ".ledger-*.jsonl")
	if err != nil {
		return err
	}
	defer os.Remove(f.Name())
	if _, err := f.Write(buf.Bytes()); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	if err := os.Rename(f.Name(), a.settings.Ledger); err != nil {
		return err
	}
	a.log.Info().Str("ledger", a.settings.Ledger).Msg("ledger saved")
	return nil
}

// elapsed logs a debug message with the time spent since start.
func (a *app) elapsed(start time.Time, format string, args ...any) {
	a.log.Debug().Str("elapsed", durafmt.Parse(time.Since(start)).LimitFirstN(2).String()).Msgf(format, args...)
}

// parseDate parses a date flag, empty is today in the settings time zone.
func (a *app) parseDate(s string) (date.Date, error) {
	if s == "" {
		return a.settings.Today(), nil
	}
	return date.Parse(s)
}

// parseRange returns the range ending on the end flag, starting on the start
// flag when set, or else the period containing the end date.
func (a *app) parseRange(start, end, period string) (date.Range, error) {
	to, err := a.parseDate(end)
	if err != nil {
		return date.Range{}, fmt.Errorf("parsing end date: %w", err)
	}
	if start != "" {
		from, err := date.Parse(start)
		if err != nil {
			return date.Range{}, fmt.Errorf("parsing start date: %w", err)
		}
		if from.After(to) {
			return date.Range{}, fmt.Errorf("start date %s is after end date %s", from, to)
		}
		return date.NewRange(from, to), nil
	}
	p, err := date.ParsePeriod(period)
	if err != nil {
		return date.Range{}, fmt.Errorf("parsing period: %w", err)
	}
	r := p.Range(to)
	r.To = to
	return r, nil
}

// accounts resolves comma separated account paths, none is every account.
func accounts(rk *finance.RecordKeeper, paths string) ([]finance.Account, error) {
	if paths == "" {
		return rk.Accounts(), nil
	}
	var list []finance.Account
	for _, p := range strings.Split(paths, ",") {
		acc, err := rk.Account(strings.TrimSpace(p))
		if err != nil {
			return nil, err
		}
		list = append(list, acc)
	}
	return list, nil
}

// fail prints err and returns the failure status.
func fail(err error) subcommands.ExitStatus {
	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	return subcommands.ExitFailure
}

// usage prints err and returns the usage error status.
func usage(err error) subcommands.ExitStatus {
	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	return subcommands.ExitUsageError
}

// baseCurrency returns the base currency of rk, an error when the ledger has no currency.
func baseCurrency(rk *finance.RecordKeeper) (*finance.Currency, error) {
	base := rk.BaseCurrency()
	if base == nil {
		return nil, fmt.Errorf("the ledger has no currency, configure base_currency or %s", settings.EnvBaseCurrency)
	}
	return base, nil
}
