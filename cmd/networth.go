package cmd

import (
	"context"
	"flag"
	"time"

	"github.com/etnz/finance"
	"github.com/etnz/finance/renderer"
	"github.com/google/subcommands"
)

type networthCmd struct {
	date    string
	start   string
	history bool
}

func (*networthCmd) Name() string     { return "networth" }
func (*networthCmd) Synopsis() string { return "show the net worth and its assets" }
func (*networthCmd) Usage() string {
	return `fin networth [-d <date>] [-history [-start <date>]]

  Show the net worth on a date as a tree of assets: cash by currency and
  securities by type, valued in the base currency.

  With -history, show the net worth on every day it changed instead.
`
}

func (c *networthCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.date, "d", "", "Date of the net worth. Defaults to today.")
	f.StringVar(&c.start, "start", "", "Start date of the history. Defaults to the first transaction.")
	f.BoolVar(&c.history, "history", false, "Show the net worth over time.")
}

func (c *networthCmd) Execute(_ context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	a, err := newApp()
	if err != nil {
		return usage(err)
	}
	on, err := a.parseDate(c.date)
	if err != nil {
		return usage(err)
	}
	rk, err := a.open()
	if err != nil {
		return fail(err)
	}
	base, err := baseCurrency(rk)
	if err != nil {
		return fail(err)
	}
	start := time.Now()

	if c.history {
		from := on
		if c.start != "" {
			if from, err = a.parseDate(c.start); err != nil {
				return usage(err)
			}
		} else if txs := rk.Transactions(); len(txs) > 0 {
			from = txs[0].Date()
		}
		h, err := finance.NetWorthOverTime(rk, base, from, on)
		if err != nil {
			return fail(err)
		}
		a.elapsed(start, "net worth from %s to %s", from, on)
		if err := show(renderer.RenderNetWorthOverTime(h)); err != nil {
			return fail(err)
		}
		return subcommands.ExitSuccess
	}

	roots, err := finance.AssetTree(rk, base, on)
	if err != nil {
		a.log.Warn().Err(err).Msg("some assets could not be valued")
	}
	a.elapsed(start, "asset tree on %s", on)
	if err := show(renderer.RenderNetWorth(roots, on)); err != nil {
		return fail(err)
	}
	return subcommands.ExitSuccess
}
