package cmd

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/google/subcommands"
)

type fmtCmd struct{}

func (*fmtCmd) Name() string { return "fmt" }
func (*fmtCmd) Synopsis() string {
	return "validates and formats the ledger file into a canonical form"
}
func (*fmtCmd) Usage() string {
	return `fin fmt

  Validates and formats the ledger file. This command decodes every record,
  replaying it through the same checks as any edit, and writes the ledger
  back in its canonical form: one JSON object per line, in dependency order,
  with transactions sorted by date.

Usage Examples:
# Formats the ledger of the settings.
$ fin fmt

# Formats another ledger.
$ fin -ledger archive.jsonl fmt
`
}

func (*fmtCmd) SetFlags(f *flag.FlagSet) {}

func (*fmtCmd) Execute(_ context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	a, err := newApp()
	if err != nil {
		return usage(err)
	}
	if _, err := os.Stat(a.settings.Ledger); err != nil {
		return fail(err)
	}
	rk, err := a.open()
	if err != nil {
		return fail(err)
	}
	if err := a.save(rk); err != nil {
		return fail(err)
	}
	fmt.Fprintf(os.Stderr, "Formatted %s: %d transactions.\n", a.settings.Ledger, len(rk.Transactions()))
	return subcommands.ExitSuccess
}
