package cmd

import (
	"context"
	"flag"
	"time"

	"github.com/etnz/finance"
	"github.com/etnz/finance/renderer"
	"github.com/google/subcommands"
)

type balanceCmd struct {
	date string
}

func (*balanceCmd) Name() string     { return "balance" }
func (*balanceCmd) Synopsis() string { return "show the balance of every account" }
func (*balanceCmd) Usage() string {
	return `fin balance [-d <date>]

  Show the account tree with the balance of every account in its own
  currency and in the base currency. Groups sum their children.
`
}

func (c *balanceCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.date, "d", "", "Date of the balances. Defaults to today.")
}

func (c *balanceCmd) Execute(_ context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
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
	roots, err := finance.AccountTree(rk, base, on)
	if err != nil {
		a.log.Warn().Err(err).Msg("some accounts could not be valued")
	}
	a.elapsed(start, "account tree on %s", on)
	if err := show(renderer.RenderBalances(roots, on)); err != nil {
		return fail(err)
	}
	return subcommands.ExitSuccess
}
