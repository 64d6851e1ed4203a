package cmd

import (
	"context"
	"flag"
	"fmt"
	"strings"

	"github.com/etnz/finance"
	"github.com/google/subcommands"
	"github.com/shopspring/decimal"
)

type rateCmd struct {
	date   string
	set    string
	delete bool
}

func (*rateCmd) Name() string     { return "rate" }
func (*rateCmd) Synopsis() string { return "show, set or delete an exchange rate" }
func (*rateCmd) Usage() string {
	return `fin rate <PRIMARY/SECONDARY> [-d <date>] [-set <rate> | -delete]

  Show the exchange rate known on a date, the number of secondary units for
  one primary unit. With -set, record a rate on the date; with -delete,
  remove the rate recorded on the date. The rate is created when missing.

Usage Examples:
$ fin rate EUR/USD -d 2024-01-31 -set 1.0845
`
}

func (c *rateCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.date, "d", "", "Date of the rate. Defaults to today.")
	f.StringVar(&c.set, "set", "", "Rate to record on the date.")
	f.BoolVar(&c.delete, "delete", false, "Delete the rate recorded on the date.")
}

func (c *rateCmd) Execute(_ context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if f.NArg() != 1 {
		return usage(fmt.Errorf("want exactly one exchange rate code, got %d", f.NArg()))
	}
	code := f.Arg(0)
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

	switch {
	case c.set != "":
		rate, err := decimal.NewFromString(c.set)
		if err != nil {
			return usage(fmt.Errorf("invalid rate: %w", err))
		}
		if err := ensureRate(rk, code); err != nil {
			return fail(err)
		}
		if err := rk.SetExchangeRate(code, on, rate); err != nil {
			return fail(err)
		}
	case c.delete:
		if err := rk.DeleteExchangeRatePoint(code, on); err != nil {
			return fail(err)
		}
	default:
		r, err := rk.ExchangeRate(code)
		if err != nil {
			return fail(err)
		}
		rate, ok := r.Rate(on)
		if !ok {
			return fail(fmt.Errorf("no %s rate known on %s", r.Code(), a.settings.FormatDate(on)))
		}
		fmt.Printf("%s %s %s\n", a.settings.FormatDate(on), r.Code(), rate)
		return subcommands.ExitSuccess
	}

	if err := a.save(rk); err != nil {
		return fail(err)
	}
	return subcommands.ExitSuccess
}

// ensureRate adds the exchange rate "PRIMARY/SECONDARY" and its currencies when missing.
func ensureRate(rk *finance.RecordKeeper, code string) error {
	if _, err := rk.ExchangeRate(code); err == nil {
		return nil
	}
	primary, secondary, ok := strings.Cut(code, "/")
	if !ok {
		return fmt.Errorf("invalid exchange rate %q, want PRIMARY/SECONDARY", code)
	}
	for _, cur := range []string{primary, secondary} {
		if _, err := rk.Currency(cur); err != nil {
			if _, err := rk.AddCurrency(cur, -1); err != nil {
				return err
			}
		}
	}
	_, err := rk.AddExchangeRate(primary, secondary)
	return err
}
