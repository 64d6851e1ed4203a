package cmd

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/etnz/finance/quote"
	"github.com/etnz/finance/settings"
	"github.com/google/subcommands"
)

type updateCmd struct {
	dryRun bool
}

func (*updateCmd) Name() string { return "update" }
func (*updateCmd) Synopsis() string {
	return "update security prices and exchange rates from the quote provider"
}
func (*updateCmd) Usage() string {
	return `fin update [-n]

  Fetch the latest quote of every security with a symbol and of every
  exchange rate from the quote provider of the settings, record them and
  save the ledger. Quotes that fail are reported, the others are recorded.
`
}

func (c *updateCmd) SetFlags(f *flag.FlagSet) {
	f.BoolVar(&c.dryRun, "n", false, "Fetch and print the quotes without saving them.")
}

func (c *updateCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if f.NArg() != 0 {
		return usage(errors.New("no arguments expected"))
	}
	a, err := newApp()
	if err != nil {
		return usage(err)
	}
	q := a.settings.Quotes
	if q.URL == "" {
		return usage(fmt.Errorf("no quote provider, configure quotes.url or %s", settings.EnvQuoteURL))
	}
	rk, err := a.open()
	if err != nil {
		return fail(err)
	}

	var src quote.Source = quote.NewJSONSource(q.URL, q.PricePath, q.DatePath, q.GetTimeout())
	src = quote.NewLimited(src, q.RateLimit)
	src = quote.NewCached(src, q.GetCacheTTL())
	u := &quote.Updater{Source: src, Concurrency: q.Concurrency, Log: a.log}

	start := time.Now()
	var results []quote.Result
	if c.dryRun {
		results, err = u.Fetch(ctx, quote.Targets(rk))
	} else {
		results, err = u.Update(ctx, rk)
	}
	a.elapsed(start, "fetched %d quotes", len(results))
	for _, r := range results {
		if r.Err != nil {
			fmt.Fprintf(os.Stderr, "Warning: %s: %v\n", r.Target, r.Err)
			continue
		}
		fmt.Printf("%s %s %s\n", a.settings.FormatDate(r.Date), r.Target, r.Value)
	}
	if results == nil && err != nil {
		return fail(err)
	}
	if !c.dryRun {
		if err := a.save(rk); err != nil {
			return fail(err)
		}
	}
	return exit(err)
}

// exit is the failure status when some quotes failed.
func exit(err error) subcommands.ExitStatus {
	if err != nil {
		return subcommands.ExitFailure
	}
	return subcommands.ExitSuccess
}
