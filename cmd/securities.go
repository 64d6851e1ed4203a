package cmd

import (
	"context"
	"flag"
	"time"

	"github.com/etnz/finance"
	"github.com/etnz/finance/renderer"
	"github.com/google/subcommands"
)

type securitiesCmd struct {
	date   string
	method string
}

func (*securitiesCmd) Name() string     { return "securities" }
func (*securitiesCmd) Synopsis() string { return "show the performance of every security" }
func (*securitiesCmd) Usage() string {
	return `fin securities [-d <date>] [-method average|fifo]

  Show the shares, value, cost basis and gains of every security held up to
  a date, with a detail per account when held in several accounts.
`
}

func (c *securitiesCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.date, "d", "", "Date of the report. Defaults to today.")
	f.StringVar(&c.method, "method", "", "Cost basis method (average, fifo). Defaults to the settings.")
}

func (c *securitiesCmd) Execute(_ context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	a, err := newApp()
	if err != nil {
		return usage(err)
	}
	on, err := a.parseDate(c.date)
	if err != nil {
		return usage(err)
	}
	if c.method == "" {
		c.method = a.settings.CostBasis
	}
	method, err := finance.ParseCostBasisMethod(c.method)
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
	report, err := finance.SecurityStats(rk, base, on, method)
	if err != nil {
		return fail(err)
	}
	a.elapsed(start, "security stats on %s", on)
	if err := show(renderer.RenderSecurityStats(report)); err != nil {
		return fail(err)
	}
	return subcommands.ExitSuccess
}
