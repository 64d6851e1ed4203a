package cmd

import (
	"context"
	"flag"
	"fmt"

	"github.com/google/subcommands"
	"github.com/shopspring/decimal"
)

type priceCmd struct {
	date   string
	set    string
	delete bool
}

func (*priceCmd) Name() string     { return "price" }
func (*priceCmd) Synopsis() string { return "show, set or delete a security price" }
func (*priceCmd) Usage() string {
	return `fin price <security> [-d <date>] [-set <price> | -delete]

  Show the price of a security known on a date, in the security currency.
  With -set, record a price on the date; with -delete, remove the price
  recorded on the date.
`
}

func (c *priceCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.date, "d", "", "Date of the price. Defaults to today.")
	f.StringVar(&c.set, "set", "", "Price to record on the date.")
	f.BoolVar(&c.delete, "delete", false, "Delete the price recorded on the date.")
}

func (c *priceCmd) Execute(_ context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if f.NArg() != 1 {
		return usage(fmt.Errorf("want exactly one security name, got %d", f.NArg()))
	}
	name := f.Arg(0)
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
		price, err := decimal.NewFromString(c.set)
		if err != nil {
			return usage(fmt.Errorf("invalid price: %w", err))
		}
		if err := rk.SetSecurityPrice(name, on, price); err != nil {
			return fail(err)
		}
	case c.delete:
		if err := rk.DeleteSecurityPrice(name, on); err != nil {
			return fail(err)
		}
	default:
		sec, err := rk.Security(name)
		if err != nil {
			return fail(err)
		}
		price := sec.Price(on)
		if price.IsNaN() {
			return fail(fmt.Errorf("no price of %s known on %s", sec.Name(), a.settings.FormatDate(on)))
		}
		fmt.Printf("%s %s %s\n", a.settings.FormatDate(on), sec.Name(), price)
		return subcommands.ExitSuccess
	}

	if err := a.save(rk); err != nil {
		return fail(err)
	}
	return subcommands.ExitSuccess
}
