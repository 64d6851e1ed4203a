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

type categoriesCmd struct {
	date   string
	start  string
	period string
	by     string
}

func (*categoriesCmd) Name() string     { return "categories" }
func (*categoriesCmd) Synopsis() string { return "show the balance of every category" }
func (*categoriesCmd) Usage() string {
	return `fin categories [-p <period> | -start <date>] [-d <date>] [-by <period>]

  Show the balance of every category over a range, in the base currency.
  A category includes the transactions of its subcategories.
`
}

func (c *categoriesCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.date, "d", "", "End date of the range. Defaults to today.")
	f.StringVar(&c.start, "start", "", "Start date of the range. Overrides -p.")
	f.StringVar(&c.period, "p", date.Yearly.String(), "Period containing the end date (day, week, month, quarter, year).")
	f.StringVar(&c.by, "by", "", "Split the range in periods (day, week, month, quarter, year).")
}

func (c *categoriesCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
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
	start := time.Now()

	if c.by != "" {
		by, err := date.ParsePeriod(c.by)
		if err != nil {
			return usage(err)
		}
		report, err := finance.PeriodicCategoryStats(ctx, rk.Transactions(), base, rk.Categories(), r, by)
		if err != nil {
			return fail(err)
		}
		a.elapsed(start, "%s category stats of %s", by, r)
		if err := show(renderer.RenderPeriodicCategoryStats(by, report)); err != nil {
			return fail(err)
		}
		return subcommands.ExitSuccess
	}

	txs, err := within(rk.Transactions(), r)
	if err != nil {
		return fail(err)
	}
	stats, err := finance.CategoryStats(txs, base, rk.Categories())
	if err != nil {
		return fail(err)
	}
	a.elapsed(start, "category stats of %s", r)
	if err := show(renderer.RenderCategoryStats(stats)); err != nil {
		return fail(err)
	}
	return subcommands.ExitSuccess
}
