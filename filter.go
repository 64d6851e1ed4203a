package finance

import (
	"fmt"
	"regexp"
	"slices"

	"github.com/etnz/finance/date"
	"github.com/shopspring/decimal"
)

// FilterMode tells what a filter criterion does with matching transactions.
type FilterMode int

const (
	FilterOff     FilterMode = iota // criterion ignored
	FilterKeep                      // keep only matching transactions
	FilterDiscard                   // drop matching transactions
)

func (m FilterMode) String() string {
	switch m {
	case FilterKeep:
		return "keep"
	case FilterDiscard:
		return "discard"
	}
	return "off"
}

// Criterion selects transactions referencing any of Values.
type Criterion[T comparable] struct {
	Mode   FilterMode
	Values []T
}

// TransactionFilter selects transactions. A transaction passes when every
// active criterion passes: Keep criteria must match, Discard criteria must not.
type TransactionFilter struct {
	Kinds      Criterion[Kind]
	Accounts   Criterion[Account]
	Payees     Criterion[*Attribute]
	Tags       Criterion[*Attribute]
	Categories Criterion[*Category] // matches descendants too
	Currencies Criterion[*Currency]
	Securities Criterion[*Security]

	// Tagless matches transactions without tags.
	Tagless FilterMode

	DateMode FilterMode
	Dates    date.Range

	DescriptionMode FilterMode
	Description     *regexp.Regexp

	// AmountMode matches transactions whose amount converted to AmountCurrency
	// on the transaction date is between AmountMin and AmountMax.
	AmountMode           FilterMode
	AmountMin, AmountMax decimal.Decimal
	AmountCurrency       *Currency
}

// IsActive reports whether any criterion is active.
func (f *TransactionFilter) IsActive() bool {
	for _, m := range []FilterMode{
		f.Kinds.Mode, f.Accounts.Mode, f.Payees.Mode, f.Tags.Mode, f.Categories.Mode,
		f.Currencies.Mode, f.Securities.Mode, f.Tagless, f.DateMode, f.DescriptionMode, f.AmountMode,
	} {
		if m != FilterOff {
			return true
		}
	}
	return false
}

// Apply returns the transactions that pass the filter, in the same order.
func (f *TransactionFilter) Apply(txs []Transaction) ([]Transaction, error) {
	var kept []Transaction
	for _, tx := range txs {
		ok, err := f.Passes(tx)
		if err != nil {
			return nil, err
		}
		if ok {
			kept = append(kept, tx)
		}
	}
	return kept, nil
}

// Passes reports whether a transaction passes every active criterion.
func (f *TransactionFilter) Passes(tx Transaction) (bool, error) {
	checks := []struct {
		mode  FilterMode
		match func() bool
	}{
		{f.Kinds.Mode, func() bool { return slices.Contains(f.Kinds.Values, tx.Kind()) }},
		{f.Accounts.Mode, func() bool { return anyOf(tx.Accounts(), f.Accounts.Values) }},
		{f.Payees.Mode, func() bool { p := Payee(tx); return p != nil && slices.Contains(f.Payees.Values, p) }},
		{f.Tags.Mode, func() bool { return anyOf(tx.Tags(), f.Tags.Values) }},
		{f.Categories.Mode, func() bool { return matchCategories(tx, f.Categories.Values) }},
		{f.Currencies.Mode, func() bool { return anyOf(currencies(tx), f.Currencies.Values) }},
		{f.Securities.Mode, func() bool { s := txSecurity(tx); return s != nil && slices.Contains(f.Securities.Values, s) }},
		{f.Tagless, func() bool { return len(tx.Tags()) == 0 }},
		{f.DateMode, func() bool { return f.Dates.Contains(tx.Date()) }},
		{f.DescriptionMode, func() bool { return f.Description != nil && f.Description.MatchString(tx.Description()) }},
	}
	for _, c := range checks {
		if c.mode != FilterOff && c.match() != (c.mode == FilterKeep) {
			return false, nil
		}
	}
	if f.AmountMode == FilterOff {
		return true, nil
	}
	if f.AmountCurrency == nil {
		return false, invalidf("amount filter needs a currency")
	}
	amount, err := TransactionAmount(tx).Convert(f.AmountCurrency, tx.Date())
	if err != nil {
		return false, fmt.Errorf("amount filter: %w", err)
	}
	in := !amount.IsNaN() && amount.value.GreaterThanOrEqual(f.AmountMin) && amount.value.LessThanOrEqual(f.AmountMax)
	return in == (f.AmountMode == FilterKeep), nil
}

func anyOf[T comparable](list, values []T) bool {
	return slices.ContainsFunc(list, func(x T) bool { return slices.Contains(values, x) })
}

func matchCategories(tx Transaction, values []*Category) bool {
	for _, cs := range categorySplits(tx) {
		for _, c := range values {
			if cs.Category.IsDescendantOf(c) {
				return true
			}
		}
	}
	return false
}
