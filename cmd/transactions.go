package cmd

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"regexp"
	"strings"

	"github.com/etnz/finance"
	"github.com/etnz/finance/date"
	"github.com/etnz/finance/renderer"
	"github.com/google/subcommands"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type transactionsCmd struct {
	start, end  string
	kinds       string
	accounts    string
	payees      string
	tags        string
	tagless     string
	categories  string
	currencies  string
	securities  string
	description string
	min, max    string
	head, tail  int
	addTags     string
	removeTags  string
}

func (*transactionsCmd) Name() string     { return "transactions" }
func (*transactionsCmd) Synopsis() string { return "list, filter and tag transactions" }
func (*transactionsCmd) Usage() string {
	return `fin transactions [filters] [-head <n> | -tail <n>] [-add-tags <tags>] [-remove-tags <tags>]

  List the transactions passing every filter. List filters take comma
  separated values, a leading "!" discards the matching transactions
  instead of keeping them.

  With -add-tags or -remove-tags, change the tags of the listed transactions
  and save the ledger.

Usage Examples:
# Food expenses of 2024 that are not tagged Trip.
$ fin transactions -start 2024-01-01 -end 2024-12-31 -c Food -t '!Trip'

# Everything above 1000 in the base currency.
$ fin transactions -min 1000
`
}

func (c *transactionsCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.start, "start", "", "Keep transactions on or after this date.")
	f.StringVar(&c.end, "end", "", "Keep transactions on or before this date.")
	f.StringVar(&c.kinds, "kind", "", "Kinds (cash, transfer, refund, security, security-transfer).")
	f.StringVar(&c.accounts, "a", "", "Account paths.")
	f.StringVar(&c.payees, "payee", "", "Payees.")
	f.StringVar(&c.tags, "t", "", "Tags.")
	f.StringVar(&c.tagless, "tagless", "", "keep or discard transactions without tags.")
	f.StringVar(&c.categories, "c", "", "Category paths, subcategories included.")
	f.StringVar(&c.currencies, "currency", "", "Currency codes.")
	f.StringVar(&c.securities, "s", "", "Security names.")
	f.StringVar(&c.description, "desc", "", "Regular expression on the description, a leading ! discards.")
	f.StringVar(&c.min, "min", "", "Minimum amount in the base currency.")
	f.StringVar(&c.max, "max", "", "Maximum amount in the base currency.")
	f.IntVar(&c.head, "head", 0, "Show only the first N transactions.")
	f.IntVar(&c.tail, "tail", 0, "Show only the last N transactions.")
	f.StringVar(&c.addTags, "add-tags", "", "Comma separated tags to add to the listed transactions.")
	f.StringVar(&c.removeTags, "remove-tags", "", "Comma separated tags to remove from the listed transactions.")
}

func (c *transactionsCmd) Execute(_ context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if c.head > 0 && c.tail > 0 {
		return usage(errors.New("-head and -tail flags cannot be used together"))
	}
	a, err := newApp()
	if err != nil {
		return usage(err)
	}
	rk, err := a.open()
	if err != nil {
		return fail(err)
	}
	filter, err := c.filter(rk)
	if err != nil {
		return usage(err)
	}
	txs, err := filter.Apply(rk.Transactions())
	if err != nil {
		return fail(err)
	}
	if c.head > 0 && c.head < len(txs) {
		txs = txs[:c.head]
	}
	if c.tail > 0 && c.tail < len(txs) {
		txs = txs[len(txs)-c.tail:]
	}

	if c.addTags != "" || c.removeTags != "" {
		ids := make([]uuid.UUID, len(txs))
		for i, tx := range txs {
			ids[i] = tx.ID()
		}
		if c.addTags != "" {
			if err := rk.AddTagsToTransactions(ids, split(c.addTags)); err != nil {
				return fail(err)
			}
		}
		if c.removeTags != "" {
			if err := rk.RemoveTagsFromTransactions(ids, split(c.removeTags)); err != nil {
				return fail(err)
			}
		}
		if err := a.save(rk); err != nil {
			return fail(err)
		}
	}

	if err := show(renderer.RenderTransactions(txs)); err != nil {
		return fail(err)
	}
	return subcommands.ExitSuccess
}

// split splits a comma separated list, ignoring empty items.
func split(list string) []string {
	var items []string
	for _, s := range strings.Split(list, ",") {
		if s = strings.TrimSpace(s); s != "" {
			items = append(items, s)
		}
	}
	return items
}

// mode returns the filter mode of a flag value and the value without its "!".
func mode(value string) (finance.FilterMode, string) {
	switch {
	case value == "":
		return finance.FilterOff, ""
	case strings.HasPrefix(value, "!"):
		return finance.FilterDiscard, value[1:]
	}
	return finance.FilterKeep, value
}

// criterion builds a criterion resolving every value of a list flag.
func criterion[T comparable](value string, resolve func(string) (T, error)) (finance.Criterion[T], error) {
	m, list := mode(value)
	c := finance.Criterion[T]{Mode: m}
	if m == finance.FilterOff {
		return c, nil
	}
	for _, name := range split(list) {
		v, err := resolve(name)
		if err != nil {
			return c, err
		}
		c.Values = append(c.Values, v)
	}
	return c, nil
}

func (c *transactionsCmd) filter(rk *finance.RecordKeeper) (*finance.TransactionFilter, error) {
	var (
		f   finance.TransactionFilter
		err error
	)
	attribute := func(kind finance.AttributeKind) func(string) (*finance.Attribute, error) {
		return func(name string) (*finance.Attribute, error) { return rk.Attribute(kind, name) }
	}
	errs := []error{}
	collect := func(err error) { errs = append(errs, err) }

	f.Kinds, err = criterion(c.kinds, finance.ParseKind)
	collect(err)
	f.Accounts, err = criterion(c.accounts, rk.Account)
	collect(err)
	f.Payees, err = criterion(c.payees, attribute(finance.PayeeAttribute))
	collect(err)
	f.Tags, err = criterion(c.tags, attribute(finance.TagAttribute))
	collect(err)
	f.Categories, err = criterion(c.categories, rk.Category)
	collect(err)
	f.Currencies, err = criterion(c.currencies, rk.Currency)
	collect(err)
	f.Securities, err = criterion(c.securities, rk.Security)
	collect(err)
	if err := errors.Join(errs...); err != nil {
		return nil, err
	}

	switch c.tagless {
	case "":
	case "keep":
		f.Tagless = finance.FilterKeep
	case "discard":
		f.Tagless = finance.FilterDiscard
	default:
		return nil, fmt.Errorf("invalid -tagless %q, want keep or discard", c.tagless)
	}

	if c.start != "" || c.end != "" {
		f.DateMode = finance.FilterKeep
		f.Dates = date.NewRange(date.New(1, 1, 1), date.New(9999, 12, 31))
		if c.start != "" {
			if f.Dates.From, err = date.Parse(c.start); err != nil {
				return nil, err
			}
		}
		if c.end != "" {
			if f.Dates.To, err = date.Parse(c.end); err != nil {
				return nil, err
			}
		}
	}

	if m, expr := mode(c.description); m != finance.FilterOff {
		if f.Description, err = regexp.Compile(expr); err != nil {
			return nil, fmt.Errorf("invalid -desc: %w", err)
		}
		f.DescriptionMode = m
	}

	if c.min != "" || c.max != "" {
		base, err := baseCurrency(rk)
		if err != nil {
			return nil, err
		}
		f.AmountMode, f.AmountCurrency = finance.FilterKeep, base
		f.AmountMin, f.AmountMax = decimal.Zero, decimal.New(1, 18)
		if c.min != "" {
			if f.AmountMin, err = decimal.NewFromString(c.min); err != nil {
				return nil, fmt.Errorf("invalid -min: %w", err)
			}
		}
		if c.max != "" {
			if f.AmountMax, err = decimal.NewFromString(c.max); err != nil {
				return nil, fmt.Errorf("invalid -max: %w", err)
			}
		}
	}
	return &f, nil
}
