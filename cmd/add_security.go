package cmd

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/etnz/finance"
	"github.com/google/subcommands"
)

type addSecurityCmd struct {
	name     string
	symbol   string
	typ      string
	currency string
	decimals int
}

func (*addSecurityCmd) Name() string     { return "add-security" }
func (*addSecurityCmd) Synopsis() string { return "add a new security to the ledger" }
func (*addSecurityCmd) Usage() string {
	return `fin add-security -name <name> -currency <currency> [-symbol <symbol>] [-type <type>] [-decimals <n>]

  Adds a new security to the ledger:
  - name: The unique name of the security (e.g., "Nvidia").
  - currency: The 3-letter code of the currency it trades in (e.g., "USD").
    The currency is added to the ledger when missing.
  - symbol: The symbol used to fetch quotes (e.g., "NVDA"), up to 8 of
    A-Z, 0-9 and ".". A security without a symbol is not updated.
  - type: A free type used to group securities in the net worth (e.g., "Stock").
  - decimals: The number of decimals of a share count.
`
}

func (c *addSecurityCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.name, "name", "", "Security name (required)")
	f.StringVar(&c.symbol, "symbol", "", "Quote symbol")
	f.StringVar(&c.typ, "type", "Stock", "Security type")
	f.StringVar(&c.currency, "currency", "", "Security's currency, 3-letter code (required)")
	f.IntVar(&c.decimals, "decimals", 4, "Decimals of a share count")
}

func (c *addSecurityCmd) Execute(_ context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if c.name == "" || c.currency == "" {
		return usage(fmt.Errorf("-name and -currency are required"))
	}
	a, err := newApp()
	if err != nil {
		return usage(err)
	}
	rk, err := a.open()
	if err != nil {
		return fail(err)
	}
	if _, err := rk.Currency(c.currency); err != nil {
		if _, err := rk.AddCurrency(c.currency, -1); err != nil {
			return usage(err)
		}
	}
	sec, err := rk.AddSecurity(finance.SecuritySpec{
		Name: c.name, Symbol: c.symbol, Type: c.typ, Currency: c.currency, SharesDecimals: int32(c.decimals),
	})
	if err != nil {
		return fail(err)
	}
	if err := a.save(rk); err != nil {
		return fail(err)
	}
	fmt.Fprintf(os.Stderr, "Added security %s in %s.\n", sec.Name(), sec.Currency())
	return subcommands.ExitSuccess
}
