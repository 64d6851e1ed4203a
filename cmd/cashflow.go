package cmd

import (
	"context"
	"flag"
	"time"

	"github.com/etnz/finance"
	"github.com/etnz/finance/date"
	"github.com/etnz/finance/renderer"
	"github.com/google/subcommands"
)

type cashflowCmd struct {
	date     string
	start    string
	period   string
	by       string
	accounts string
}

func (*cashflowCmd) Name() string     { return "cashflow" }
func (*cashflowCmd) Synopsis() string { return "show incomes, expenses and performance over a range" }
func (*cashflowCmd) Usage() string {
	return `fin cashflow [-p <period> | -start <date>] [-d <date>] [-a <accounts>] [-by <period>]

  Show the cash flow of a selection of accounts: what entered and left the
  selection, the performance of its securities and currencies, and the
  savings rate.

  With -by, show one column per period of the range, then the total and the
  average per period.

Usage Examples:
# This month so far.
$ fin cashflow

# Every month of 2024 for the checking account.
$ fin cashflow -start 2024-01-01 -d 2024-12-31 -by month -a Bank/Checking
`
}

func (c *cashflowCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.date, "d", "", "End date of the range. Defaults to today.")
	f.StringVar(&c.start, "start", "", "Start date of the range. Overrides -p.")
	f.StringVar(&c.period, "p", date.Monthly.String(), "Period containing the end date (day, week, month, quarter, year).")
	f.StringVar(&c.by, "by", "", "Split the range in periods (day, week, month, quarter, year).")
	f.StringVar(&c.accounts, "a", "", "Comma separated account paths. Defaults to every account.")
}

func (c *cashflowCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	a, err := newApp()
	if err != nil {
		return usage(err)
	}
	r, err := a.parseRange(c.start, c.date, c.period)
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
	accs, err := accounts(rk, c.accounts)
	if err != nil {
		return usage(err)
	}
	start := time.Now()

	if c.by != "" {
		by, err := date.ParsePeriod(c.by)
		if err != nil {
			return usage(err)
		}
		report, err := finance.PeriodicCashFlow(ctx, rk, accs, r, base, by)
		if err != nil {
			return fail(err)
		}
		a.elapsed(start, "%s cash flow of %s", by, r)
		if err := show(renderer.RenderPeriodicCashFlow(report)); err != nil {
			return fail(err)
		}
		return subcommands.ExitSuccess
	}

	stats, err := finance.CashFlow(rk, accs, r, base)
	if err != nil {
		return fail(err)
	}
	a.elapsed(start, "cash flow of %s", r)
	if err := show(renderer.RenderCashFlow(stats)); err != nil {
		return fail(err)
	}
	return subcommands.ExitSuccess
}
