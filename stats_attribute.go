package finance

import (
	"context"
	"fmt"
	"slices"

	"github.com/etnz/finance/date"
	"github.com/shopspring/decimal"
)

// Flow is an amount with the transactions that contribute to it.
type Flow struct {
	Amount       CashAmount
	Transactions []Transaction
}

func newFlow(cur *Currency) Flow { return Flow{Amount: cur.Zero()} }

// Count returns the number of contributing transactions.
func (f Flow) Count() int { return len(f.Transactions) }

// add adds the amount of a transaction. Consecutive calls for the same transaction count it once.
func (f *Flow) add(tx Transaction, amount CashAmount) {
	f.Amount = f.Amount.Add(amount)
	if n := len(f.Transactions); n == 0 || f.Transactions[n-1] != tx {
		f.Transactions = append(f.Transactions, tx)
	}
}

// plus returns the sum of two flows with the union of their transactions.
func (f Flow) plus(g Flow) Flow {
	txs := slices.Clone(f.Transactions)
	for _, tx := range g.Transactions {
		if !slices.Contains(txs, tx) {
			txs = append(txs, tx)
		}
	}
	return Flow{Amount: f.Amount.Add(g.Amount), Transactions: txs}
}

// div returns the flow amount divided by n, keeping its transactions.
func (f Flow) div(n int) Flow {
	return Flow{Amount: f.Amount.Div(decimal.NewFromInt(int64(n))), Transactions: f.Transactions}
}

// AttributeStat is the activity of a tag or a payee.
type AttributeStat struct {
	Attribute *Attribute
	Flow
}

// AttributeStats returns the activity of each attribute, in the given order.
// Attributes must all be tags or all be payees.
//
// A tag accounts for its tag split of cash and refund transactions (zero splits are
// skipped) and for the whole amount of tagged dividends, a payee for the signed
// amount of its transactions. Amounts are converted to base on each transaction
// date: income, refund and dividend are positive, expense negative.
func AttributeStats(txs []Transaction, base *Currency, attributes []*Attribute) ([]AttributeStat, error) {
	stats := make([]AttributeStat, len(attributes))
	index := make(map[*Attribute]int, len(attributes))
	for i, a := range attributes {
		if a.kind != attributes[0].kind {
			return nil, invalidf("attribute stats of mixed kinds %s and %s", attributes[0].kind, a.kind)
		}
		stats[i] = AttributeStat{Attribute: a, Flow: newFlow(base)}
		index[a] = i
	}
	if len(attributes) == 0 {
		return stats, nil
	}
	kind := attributes[0].kind

	for _, tx := range txs {
		signed, ok := SignedAmount(tx)
		if !ok {
			continue
		}
		sign := decimal.NewFromInt(1)
		if signed.IsNegative() {
			sign = sign.Neg()
		}
		if kind == PayeeAttribute {
			i, ok := index[Payee(tx)]
			if !ok {
				continue
			}
			amount, err := signed.Convert(base, tx.Date())
			if err != nil {
				return nil, fmt.Errorf("payee %s: %w", stats[i].Attribute.name, err)
			}
			stats[i].add(tx, amount)
			continue
		}
		var tagSplits []TagSplit
		switch tx := tx.(type) {
		case *CashTransaction:
			tagSplits = tx.tagSplits
		case *RefundTransaction:
			tagSplits = tx.tagSplits
		case *SecurityTransaction:
			for _, tag := range tx.tags {
				tagSplits = append(tagSplits, TagSplit{Tag: tag, Amount: signed})
			}
		}
		for _, ts := range tagSplits {
			i, ok := index[ts.Tag]
			if !ok || ts.Amount.IsZero() {
				continue
			}
			amount, err := ts.Amount.Mul(sign).Convert(base, tx.Date())
			if err != nil {
				return nil, fmt.Errorf("tag %s: %w", ts.Tag.name, err)
			}
			stats[i].add(tx, amount)
		}
	}
	return stats, nil
}

// PeriodicAttributeReport holds attribute stats bucketed by period.
type PeriodicAttributeReport struct {
	Attributes []*Attribute
	Periods    []date.Range
	Stats      [][]AttributeStat // per period, then per attribute
	// PeriodTotals sums every attribute of a period.
	PeriodTotals []Flow
	// Totals and Averages are per attribute, averages count every period of the span.
	Totals   []Flow
	Averages []Flow
}

// PeriodicAttributeStats buckets transactions by period over r and computes the
// attribute stats of each bucket, then period totals, attribute totals and averages.
// A zero r spans the transactions.
func PeriodicAttributeStats(ctx context.Context, txs []Transaction, base *Currency, attributes []*Attribute, r date.Range, period date.Period) (*PeriodicAttributeReport, error) {
	report := &PeriodicAttributeReport{Attributes: attributes}
	buckets, err := bucketize(ctx, txs, r, period, func(p date.Range, txs []Transaction) error {
		stats, err := AttributeStats(txs, base, attributes)
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

	report.Totals = make([]Flow, len(attributes))
	for i := range attributes {
		report.Totals[i] = newFlow(base)
	}
	for _, stats := range report.Stats {
		total := newFlow(base)
		for i, s := range stats {
			total = total.plus(s.Flow)
			report.Totals[i] = report.Totals[i].plus(s.Flow)
		}
		report.PeriodTotals = append(report.PeriodTotals, total)
	}
	for _, t := range report.Totals {
		if len(buckets) == 0 {
			report.Averages = append(report.Averages, t)
			continue
		}
		report.Averages = append(report.Averages, t.div(len(buckets)))
	}
	return report, nil
}

// bucketize calls f for each period of r, clipped to r, with the transactions of that period.
// It stops between buckets when ctx is done.
func bucketize(ctx context.Context, txs []Transaction, r date.Range, period date.Period, f func(date.Range, []Transaction) error) ([]date.Range, error) {
	if r == (date.Range{}) {
		if len(txs) == 0 {
			return nil, nil
		}
		r = date.NewRange(txs[0].Date(), txs[0].Date())
		for _, tx := range txs {
			r = date.NewRange(date.Min(r.From, tx.Date()), date.Max(r.To, tx.Date()))
		}
	}
	var buckets []date.Range
	for p := range r.Periods(period) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		p, _ = p.Clip(r)
		var in []Transaction
		for _, tx := range txs {
			if p.Contains(tx.Date()) {
				in = append(in, tx)
			}
		}
		if err := f(p, in); err != nil {
			return nil, err
		}
		buckets = append(buckets, p)
	}
	return buckets, nil
}
