package cmd

import (
	"context"
	"flag"
	"fmt"
	"time"

	"github.com/etnz/finance"
	"github.com/etnz/finance/date"
	"github.com/etnz/finance/renderer"
	"github.com/google/subcommands"
)

type attributesCmd struct {
	kind   string
	date   string
	start  string
	period string
	by     string
}

func (*attributesCmd) Name() string     { return "attributes" }
func (*attributesCmd) Synopsis() string { return "show the activity of tags or payees" }
func (*attributesCmd) Usage() string {
	return `fin attributes [-k tag|payee] [-p <period> | -start <date>] [-d <date>] [-by <period>]

  Show the amount and the number of transactions of every tag or payee over
  a range, in the base currency. Expenses are negative.
`
}

func (c *attributesCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.kind, "k", finance.TagAttribute.String(), "Kind of attribute (tag, payee).")
	f.StringVar(&c.date, "d", "", "End date of the range. Defaults to today.")
	f.StringVar(&c.start, "start", "", "Start date of the range. Overrides -p.")
	f.StringVar(&c.period, "p", date.Yearly.String(), "Period containing the end date (day, week, month, quarter, year).")
	f.StringVar(&c.by, "by", "", "Split the range in periods (day, week, month, quarter, year).")
}

func (c *attributesCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	a, err := newApp()
	if err != nil {
		return usage(err)
	}
	kind, err := finance.ParseAttributeKind(c.kind)
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
	title := fmt.Sprintf("%ss %s", kind, r)
	start := time.Now()

	if c.by != "" {
		by, err := date.ParsePeriod(c.by)
		if err != nil {
			return usage(err)
		}
		report, err := finance.PeriodicAttributeStats(ctx, rk.Transactions(), base, rk.Attributes(kind), r, by)
		if err != nil {
			return fail(err)
		}
		a.elapsed(start, "%s %s stats of %s", by, kind, r)
		if err := show(renderer.RenderPeriodicAttributeStats(title, by, report)); err != nil {
			return fail(err)
		}
		return subcommands.ExitSuccess
	}

	txs, err := within(rk.Transactions(), r)
	if err != nil {
		return fail(err)
	}
	stats, err := finance.AttributeStats(txs, base, rk.Attributes(kind))
	if err != nil {
		return fail(err)
	}
	a.elapsed(start, "%s stats of %s", kind, r)
	if err := show(renderer.RenderAttributeStats(title, stats)); err != nil {
		return fail(err)
	}
	return subcommands.ExitSuccess
}

// within returns the transactions dated in r.
func within(txs []finance.Transaction, r date.Range) ([]finance.Transaction, error) {
	f := finance.TransactionFilter{DateMode: finance.FilterKeep, Dates: r}
	return f.Apply(txs)
}
