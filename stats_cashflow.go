package finance

import (
	"context"
	"fmt"
	"slices"

	"github.com/etnz/finance/date"
	"github.com/shopspring/decimal"
)

// CashFlowStats is the money moving in and out of a selection of accounts over a range.
//
// Amounts are in the base currency, converted on each transaction date.
// DeltaTotal always equals DeltaNeutral plus DeltaPerformance.
type CashFlowStats struct {
	Range date.Range
	Label string

	Incomes         Flow
	Expenses        Flow
	Refunds         Flow
	Inward          Flow // transfers and security legs entering the selection
	Outward         Flow // transfers and security legs leaving the selection
	InitialBalances CashAmount

	Inflows  Flow // Incomes + Inward + Refunds + InitialBalances
	Outflows Flow // Expenses + Outward

	// DeltaTotal is the balance change: end balance minus the balance the day before the start.
	DeltaTotal CashAmount
	// DeltaNeutral is the net cash flow, Inflows - Outflows.
	DeltaNeutral Flow
	// DeltaPerformance is the change not explained by cash flows.
	DeltaPerformance CashAmount
	// DeltaSecurities is the part of the performance due to security prices.
	DeltaSecurities CashAmount
	// DeltaCurrencies is the remaining performance, due to exchange rates.
	DeltaCurrencies CashAmount

	// SavingsRate is DeltaNeutral / (Incomes + Inward + InitialBalances).
	SavingsRate Percent
}

func newCashFlowStats(base *Currency, r date.Range) *CashFlowStats {
	zero := base.Zero()
	return &CashFlowStats{
		Range: r, Label: r.Identifier(),
		Incomes: newFlow(base), Expenses: newFlow(base), Refunds: newFlow(base),
		Inward: newFlow(base), Outward: newFlow(base), InitialBalances: zero,
		Inflows: newFlow(base), Outflows: newFlow(base), DeltaNeutral: newFlow(base),
		DeltaTotal: zero, DeltaPerformance: zero, DeltaSecurities: zero, DeltaCurrencies: zero,
		SavingsRate: NaNPercent(),
	}
}

// minus returns f - g with the union of their transactions.
func (f Flow) minus(g Flow) Flow {
	g.Amount = g.Amount.Neg()
	return f.plus(g)
}

// selection is a set of accounts.
type selection map[Account]bool

func newSelection(rk *RecordKeeper, accounts []Account) selection {
	if accounts == nil {
		accounts = rk.Accounts()
	}
	s := make(selection, len(accounts))
	for _, a := range accounts {
		s[a] = true
	}
	return s
}

// transactions returns the transactions in r touching the selection, in chronological order.
func (s selection) transactions(rk *RecordKeeper, r date.Range) []Transaction {
	var txs []Transaction
	for _, tx := range rk.transactions {
		if r.Contains(tx.Date()) && slices.ContainsFunc(tx.Accounts(), func(a Account) bool { return s[a] }) {
			txs = append(txs, tx)
		}
	}
	return txs
}

// span returns the range from the first to the last transaction of the selection.
func (s selection) span(rk *RecordKeeper) date.Range {
	var r date.Range
	for _, tx := range rk.transactions {
		if !slices.ContainsFunc(tx.Accounts(), func(a Account) bool { return s[a] }) {
			continue
		}
		if r.From.IsZero() {
			r.From = tx.Date()
		}
		r.To = tx.Date()
	}
	return r
}

// CashFlow returns the cash flow of accounts over r, all accounts when accounts is nil.
// A zero r spans the transactions of the accounts.
//
// Transfers fully inside the selection are ignored. Legs of security transactions and
// security transfers crossing the selection count as inward or outward transfers.
// Dividends paid into a selected cash account are incomes.
func CashFlow(rk *RecordKeeper, accounts []Account, r date.Range, base *Currency) (*CashFlowStats, error) {
	sel := newSelection(rk, accounts)
	if r == (date.Range{}) {
		r = sel.span(rk)
	}
	stats := newCashFlowStats(base, r)

	start, end := base.Zero(), base.Zero()
	deltaSecurities := base.Zero()
	for _, acc := range rk.Accounts() {
		if !sel[acc] {
			continue
		}
		before, err := acc.Balance(base, r.From.Add(-1))
		if err != nil {
			return nil, fmt.Errorf("cash flow start: %w", err)
		}
		after, err := acc.Balance(base, r.To)
		if err != nil {
			return nil, fmt.Errorf("cash flow end: %w", err)
		}
		start, end = start.Add(before), end.Add(after)

		switch acc := acc.(type) {
		case *CashAccount:
			if initial := acc.InitialDate(); !initial.IsZero() && r.Contains(initial) {
				v, err := acc.initialBalance.Convert(base, initial)
				if err != nil {
					return nil, fmt.Errorf("initial balance of %s: %w", acc.Path(), err)
				}
				stats.InitialBalances = stats.InitialBalances.Add(v)
			}
		case *SecurityAccount:
			deltaSecurities = deltaSecurities.Add(after).Sub(before)
		}
	}

	for _, tx := range sel.transactions(rk, r) {
		amount, err := TransactionAmount(tx).Convert(base, tx.Date())
		if err != nil {
			return nil, fmt.Errorf("cash flow of %s: %w", describe(tx), err)
		}
		switch tx := tx.(type) {
		case *CashTransaction:
			if tx.typ == IncomeTransaction {
				stats.Incomes.add(tx, amount)
			} else {
				stats.Expenses.add(tx, amount)
			}
		case *RefundTransaction:
			stats.Refunds.add(tx, amount)
		case *CashTransfer:
			switch {
			case sel[tx.sender] && sel[tx.recipient]:
			case sel[tx.sender]:
				stats.Outward.add(tx, amount)
			default:
				received, err := tx.received.Convert(base, tx.Date())
				if err != nil {
					return nil, fmt.Errorf("cash flow of %s: %w", describe(tx), err)
				}
				stats.Inward.add(tx, received)
			}
		case *SecurityTransaction:
			if tx.typ == Dividend {
				if sel[tx.cashAccount] {
					stats.Incomes.add(tx, amount)
				}
				break
			}
			buy := tx.typ == Buy
			switch {
			case sel[tx.cashAccount] && sel[tx.securityAccount]:
				// Purchases move value from cash to securities without performance.
				if buy {
					deltaSecurities = deltaSecurities.Sub(amount)
				} else {
					deltaSecurities = deltaSecurities.Add(amount)
				}
			case sel[tx.cashAccount] == buy:
				// buy paid from the selection, or sale out of a selected security account
				stats.Outward.add(tx, amount)
				if !buy {
					deltaSecurities = deltaSecurities.Add(amount)
				}
			default:
				stats.Inward.add(tx, amount)
				if buy {
					deltaSecurities = deltaSecurities.Sub(amount)
				}
			}
		case *SecurityTransfer:
			switch {
			case sel[tx.sender] && sel[tx.recipient]:
			case sel[tx.sender]:
				stats.Outward.add(tx, amount)
				deltaSecurities = deltaSecurities.Add(amount)
			default:
				stats.Inward.add(tx, amount)
				deltaSecurities = deltaSecurities.Sub(amount)
			}
		default:
			panic(fmt.Sprintf("unknown transaction type %T", tx))
		}
	}

	stats.Inflows = stats.Incomes.plus(stats.Inward).plus(stats.Refunds)
	stats.Inflows.Amount = stats.Inflows.Amount.Add(stats.InitialBalances)
	stats.Outflows = stats.Expenses.plus(stats.Outward)
	stats.DeltaNeutral = stats.Inflows.minus(stats.Outflows)
	stats.DeltaTotal = end.Sub(start)
	stats.DeltaPerformance = stats.DeltaTotal.Sub(stats.DeltaNeutral.Amount)
	stats.DeltaSecurities = deltaSecurities
	stats.DeltaCurrencies = stats.DeltaPerformance.Sub(deltaSecurities)
	stats.SavingsRate = savingsRate(stats)
	return stats, nil
}

func savingsRate(s *CashFlowStats) Percent {
	r, ok := savingsRatio(s)
	if !ok {
		return NaNPercent()
	}
	return percentOf(r)
}

// savingsRatio returns the exact savings ratio, false when undefined.
func savingsRatio(s *CashFlowStats) (decimal.Decimal, bool) {
	eligible := s.Incomes.Amount.Add(s.Inward.Amount).Add(s.InitialBalances)
	if eligible.IsZero() || eligible.IsNaN() || s.DeltaNeutral.Amount.IsNaN() {
		return decimal.Zero, false
	}
	return s.DeltaNeutral.Amount.Ratio(eligible), true
}

// PeriodicCashFlowReport is the cash flow of every period of a range.
type PeriodicCashFlowReport struct {
	Periods []*CashFlowStats
	// Average divides every amount by the number of periods; its savings rate
	// averages the defined rates over the number of periods.
	Average *CashFlowStats
	Total   *CashFlowStats
}

// PeriodicCashFlow returns the cash flow of accounts for each period of r, clipped to r.
// A zero r spans the transactions of the accounts.
func PeriodicCashFlow(ctx context.Context, rk *RecordKeeper, accounts []Account, r date.Range, base *Currency, period date.Period) (*PeriodicCashFlowReport, error) {
	if r == (date.Range{}) {
		r = newSelection(rk, accounts).span(rk)
	}
	report := &PeriodicCashFlowReport{}
	if r == (date.Range{}) {
		report.Average, report.Total = newCashFlowStats(base, r), newCashFlowStats(base, r)
		return report, nil
	}
	for p := range r.Periods(period) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		p, _ = p.Clip(r)
		stats, err := CashFlow(rk, accounts, p, base)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", p, err)
		}
		stats.Label = period.Label(p.From)
		report.Periods = append(report.Periods, stats)
	}

	total := newCashFlowStats(base, r)
	total.Label = "Total"
	rates := decimal.Zero
	for _, s := range report.Periods {
		total.Incomes = total.Incomes.plus(s.Incomes)
		total.Expenses = total.Expenses.plus(s.Expenses)
		total.Refunds = total.Refunds.plus(s.Refunds)
		total.Inward = total.Inward.plus(s.Inward)
		total.Outward = total.Outward.plus(s.Outward)
		total.InitialBalances = total.InitialBalances.Add(s.InitialBalances)
		total.Inflows = total.Inflows.plus(s.Inflows)
		total.Outflows = total.Outflows.plus(s.Outflows)
		total.DeltaNeutral = total.DeltaNeutral.plus(s.DeltaNeutral)
		total.DeltaTotal = total.DeltaTotal.Add(s.DeltaTotal)
		total.DeltaPerformance = total.DeltaPerformance.Add(s.DeltaPerformance)
		total.DeltaSecurities = total.DeltaSecurities.Add(s.DeltaSecurities)
		total.DeltaCurrencies = total.DeltaCurrencies.Add(s.DeltaCurrencies)
		if r, ok := savingsRatio(s); ok {
			rates = rates.Add(r)
		}
	}
	total.SavingsRate = savingsRate(total)
	report.Total = total

	n := D(len(report.Periods))
	average := *total
	average.Label = "Average"
	for _, f := range []*Flow{
		&average.Incomes, &average.Expenses, &average.Refunds, &average.Inward, &average.Outward,
		&average.Inflows, &average.Outflows, &average.DeltaNeutral,
	} {
		*f = f.div(len(report.Periods))
	}
	for _, a := range []*CashAmount{
		&average.InitialBalances, &average.DeltaTotal, &average.DeltaPerformance,
		&average.DeltaSecurities, &average.DeltaCurrencies,
	} {
		*a = a.Div(n)
	}
	average.SavingsRate = percentOf(rates.Div(n))
	report.Average = &average
	return report, nil
}
