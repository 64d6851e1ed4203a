package finance

import (
	"context"
	"fmt"

	"github.com/etnz/finance/date"
)

// CategoryStat is the activity of a category, including its descendants.
type CategoryStat struct {
	Category *Category
	// TransactionsSelf counts transactions split directly into the category.
	TransactionsSelf int
	// TransactionsTotal counts transactions split into the category or a descendant.
	TransactionsTotal int
	Balance           CashAmount
}

// CategoryStats returns the activity of each category, in the given order.
//
// A transaction adds to a category the sum of its splits into that category and
// its descendants, once, converted to base on the transaction date. Amounts are
// signed like SignedAmount.
func CategoryStats(txs []Transaction, base *Currency, categories []*Category) ([]CategoryStat, error) {
	stats := make([]CategoryStat, len(categories))
	index := make(map[*Category]int, len(categories))
	for i, c := range categories {
		stats[i] = CategoryStat{Category: c, Balance: base.Zero()}
		index[c] = i
	}

	for _, tx := range txs {
		signed, ok := SignedAmount(tx)
		if !ok {
			continue
		}
		negative := signed.IsNegative()

		// Sum of the splits under each touched category.
		touched := make(map[*Category]CashAmount)
		direct := make(map[*Category]bool)
		var order []*Category
		for _, cs := range categorySplits(tx) {
			direct[cs.Category] = true
			for c := cs.Category; c != nil; c = c.parent {
				sum, ok := touched[c]
				if !ok {
					order = append(order, c)
					sum = cs.Amount.Currency().Zero()
				}
				touched[c] = sum.Add(cs.Amount)
			}
		}
		for _, c := range order {
			i, ok := index[c]
			if !ok {
				continue
			}
			amount := touched[c]
			if negative {
				amount = amount.Neg()
			}
			v, err := amount.Convert(base, tx.Date())
			if err != nil {
				return nil, fmt.Errorf("category %s: %w", c.Path(), err)
			}
			stats[i].Balance = stats[i].Balance.Add(v)
			stats[i].TransactionsTotal++
			if direct[c] {
				stats[i].TransactionsSelf++
			}
		}
	}
	return stats, nil
}

// PeriodicCategoryReport holds category stats bucketed by period.
type PeriodicCategoryReport struct {
	Categories []*Category
	Periods    []date.Range
	Stats      [][]CategoryStat // per period, then per category
	// Totals and Averages are per category, averages count every period of the span.
	Totals   []CategoryStat
	Averages []CashAmount
}

// PeriodicCategoryStats buckets transactions by period over r and computes the
// category stats of each bucket, then totals and averages per category.
// A zero r spans the transactions.
func PeriodicCategoryStats(ctx context.Context, txs []Transaction, base *Currency, categories []*Category, r date.Range, period date.Period) (*PeriodicCategoryReport, error) {
	report := &PeriodicCategoryReport{Categories: categories}
	buckets, err := bucketize(ctx, txs, r, period, func(p date.Range, txs []Transaction) error {
		stats, err := CategoryStats(txs, base, categories)
		if err != nil {
			return fmt.Errorf("%s: %w", p, err)
		}
		report.Stats = append(report.Stats, stats)
		return nil
	})
	if err != nil {
		return nil, err
	}
	report.Periods = buckets

	for i, c := range categories {
		total := CategoryStat{Category: c, Balance: base.Zero()}
		for _, stats := range report.Stats {
			total.Balance = total.Balance.Add(stats[i].Balance)
			total.TransactionsSelf += stats[i].TransactionsSelf
			total.TransactionsTotal += stats[i].TransactionsTotal
		}
		report.Totals = append(report.Totals, total)
		average := total.Balance
		if len(buckets) > 0 {
			average = average.Div(D(len(buckets)))
		}
		report.Averages = append(report.Averages, average)
	}
	return report, nil
}
