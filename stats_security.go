package finance

import (
	"fmt"
	"slices"
	"strings"

	"github.com/etnz/finance/date"
)

// SecurityStat is the performance of a security in an account, or over all
// accounts when Account is nil.
//
// Native amounts are in the security currency, Base amounts in the base currency.
// Costs in base use the exchange rate of each acquisition date, values the rate of
// the report date, so base gains include currency effects.
type SecurityStat struct {
	Security     *Security
	Account      *SecurityAccount
	Accounts     []*SecurityStat // per account, for aggregates only
	Transactions []Transaction

	SharesOwned  Quantity
	SharesBought Quantity
	SharesSold   Quantity

	Price            CashAmount // market price on the report date, NaN when unknown
	AverageBuyPrice  CashAmount // NaN without buy
	AverageSellPrice CashAmount // NaN without sale

	Value, ValueBase         CashAmount // of the owned shares
	CostBasis, CostBasisBase CashAmount // of the owned shares
	CostSold, CostSoldBase   CashAmount // of the sold shares
	Bought, Sold             CashAmount // total paid and received, native
	Dividends                CashAmount // native, also part of Realized
	Unrealized               CashAmount
	UnrealizedBase           CashAmount
	Realized                 CashAmount
	RealizedBase             CashAmount

	UnrealizedReturn Percent // Unrealized / CostBasis
	RealizedReturn   Percent // Realized / CostSold
	TotalReturn      Percent // (Unrealized + Realized) / (CostBasis + CostSold)
}

func newSecurityStat(sec *Security, acc *SecurityAccount, base *Currency) *SecurityStat {
	native := sec.currency.Zero()
	return &SecurityStat{
		Security: sec, Account: acc,
		Bought: native, Sold: native, Dividends: native, Realized: native,
		RealizedBase: base.Zero(),
	}
}

// finish computes the values and ratios from the shares, prices and remaining lots.
func (s *SecurityStat) finish(held lots, base *Currency, on date.Date) error {
	sec := s.Security
	s.Price = sec.Price(on)
	s.AverageBuyPrice, s.AverageSellPrice = NaN(sec.currency), NaN(sec.currency)
	if s.SharesBought.IsPositive() {
		s.AverageBuyPrice = s.Bought.Div(s.SharesBought.value)
	}
	if s.SharesSold.IsPositive() {
		s.AverageSellPrice = s.Sold.Div(s.SharesSold.value)
	}
	if held != nil {
		s.CostBasis, s.CostBasisBase = held.cost(sec.currency, base)
	}

	s.Value = s.Price.Mul(s.SharesOwned.value)
	if s.SharesOwned.IsZero() {
		s.Value = sec.currency.Zero()
	}
	v, err := s.Value.Convert(base, on)
	if err != nil {
		return fmt.Errorf("value of %s: %w", sec.name, err)
	}
	s.ValueBase = v
	s.Unrealized = s.Value.Sub(s.CostBasis)
	s.UnrealizedBase = s.ValueBase.Sub(s.CostBasisBase)

	s.UnrealizedReturn = ratio(s.Unrealized, s.CostBasis)
	s.RealizedReturn = ratio(s.Realized, s.CostSold)
	s.TotalReturn = ratio(s.Unrealized.Add(s.Realized), s.CostBasis.Add(s.CostSold))
	return nil
}

// ratio returns a/b in percent, NaN when b is zero or either is NaN.
func ratio(a, b CashAmount) Percent {
	if a.IsNaN() || b.IsNaN() || b.IsZero() {
		return NaNPercent()
	}
	return percentOf(a.Ratio(b))
}

// SecurityReport is the performance of every security held at some point up to a date.
type SecurityReport struct {
	On     date.Date
	Method CostBasisMethod
	// Securities are sorted by name, each with its per-account stats.
	Securities []*SecurityStat
	// Total sums the base amounts of all securities.
	Total struct {
		ValueBase, CostBasisBase, CostSoldBase, UnrealizedBase, RealizedBase CashAmount
		UnrealizedReturn, RealizedReturn, TotalReturn                        Percent
	}
}

// SecurityStats replays the security transactions up to a date and returns
// shares, average prices, values and gains per security and account.
//
// Sales consume lots according to method. Security transfers move lots
// between accounts with their original cost, so they realize no gain.
// Dividends are realized gains that consume no lot.
func SecurityStats(rk *RecordKeeper, base *Currency, on date.Date, method CostBasisMethod) (*SecurityReport, error) {
	report := &SecurityReport{On: on, Method: method}

	type key struct {
		sec *Security
		acc *SecurityAccount
	}
	held := make(map[key]lots)
	stats := make(map[key]*SecurityStat)
	stat := func(sec *Security, acc *SecurityAccount, tx Transaction) *SecurityStat {
		k := key{sec, acc}
		s, ok := stats[k]
		if !ok {
			s = newSecurityStat(sec, acc, base)
			s.CostBasis, s.CostSold = sec.currency.Zero(), sec.currency.Zero()
			s.CostBasisBase, s.CostSoldBase = base.Zero(), base.Zero()
			stats[k] = s
		}
		s.Transactions = append(s.Transactions, tx)
		return s
	}

	for _, tx := range rk.transactions {
		if tx.Date().After(on) {
			break
		}
		switch tx := tx.(type) {
		case *SecurityTransaction:
			k := key{tx.security, tx.securityAccount}
			s := stat(tx.security, tx.securityAccount, tx)
			amount := tx.Amount()
			amountBase, err := amount.Convert(base, tx.on)
			if err != nil {
				return nil, fmt.Errorf("security stats of %s: %w", describe(tx), err)
			}
			switch tx.typ {
			case Dividend:
				s.Dividends = s.Dividends.Add(amount)
				s.Realized = s.Realized.Add(amount)
				s.RealizedBase = s.RealizedBase.Add(amountBase)
				continue
			case Buy:
				held[k] = append(held[k], lot{Date: tx.on, Quantity: tx.shares, Cost: amount, CostBase: amountBase})
				s.SharesBought = s.SharesBought.Add(tx.shares)
				s.SharesOwned = s.SharesOwned.Add(tx.shares)
				s.Bought = s.Bought.Add(amount)
				continue
			}
			var taken lots
			taken, held[k] = held[k].take(tx.shares, method)
			cost, costBase := taken.cost(tx.security.currency, base)
			s.SharesSold = s.SharesSold.Add(tx.shares)
			s.SharesOwned = s.SharesOwned.Sub(tx.shares)
			s.Sold = s.Sold.Add(amount)
			s.CostSold, s.CostSoldBase = s.CostSold.Add(cost), s.CostSoldBase.Add(costBase)
			s.Realized = s.Realized.Add(amount.Sub(cost))
			s.RealizedBase = s.RealizedBase.Add(amountBase.Sub(costBase))

		case *SecurityTransfer:
			from, to := key{tx.security, tx.sender}, key{tx.security, tx.recipient}
			sender := stat(tx.security, tx.sender, tx)
			recipient := stat(tx.security, tx.recipient, tx)
			var taken lots
			taken, held[from] = held[from].take(tx.shares, method)
			held[to] = append(held[to], taken...)
			slices.SortStableFunc(held[to], func(a, b lot) int { return a.Date.Compare(b.Date) })
			sender.SharesOwned = sender.SharesOwned.Sub(tx.shares)
			recipient.SharesOwned = recipient.SharesOwned.Add(tx.shares)
		}
	}

	// aggregate per security
	bySecurity := make(map[*Security]*SecurityStat)
	for k, s := range stats {
		if err := s.finish(held[k], base, on); err != nil {
			return nil, fmt.Errorf("security stats of %s: %w", k.acc.Path(), err)
		}
		agg, ok := bySecurity[k.sec]
		if !ok {
			agg = newSecurityStat(k.sec, nil, base)
			agg.CostBasis, agg.CostSold = k.sec.currency.Zero(), k.sec.currency.Zero()
			agg.CostBasisBase, agg.CostSoldBase = base.Zero(), base.Zero()
			bySecurity[k.sec] = agg
			report.Securities = append(report.Securities, agg)
		}
		agg.Accounts = append(agg.Accounts, s)
	}
	for _, agg := range report.Securities {
		slices.SortFunc(agg.Accounts, func(a, b *SecurityStat) int { return strings.Compare(a.Account.Path(), b.Account.Path()) })
		var all lots
		for _, s := range agg.Accounts {
			for _, tx := range s.Transactions {
				if !slices.Contains(agg.Transactions, tx) {
					agg.Transactions = append(agg.Transactions, tx)
				}
			}
			agg.SharesOwned = agg.SharesOwned.Add(s.SharesOwned)
			agg.SharesBought = agg.SharesBought.Add(s.SharesBought)
			agg.SharesSold = agg.SharesSold.Add(s.SharesSold)
			agg.Bought, agg.Sold = agg.Bought.Add(s.Bought), agg.Sold.Add(s.Sold)
			agg.Dividends = agg.Dividends.Add(s.Dividends)
			agg.CostSold, agg.CostSoldBase = agg.CostSold.Add(s.CostSold), agg.CostSoldBase.Add(s.CostSoldBase)
			agg.Realized, agg.RealizedBase = agg.Realized.Add(s.Realized), agg.RealizedBase.Add(s.RealizedBase)
			all = append(all, held[key{agg.Security, s.Account}]...)
		}
		slices.SortFunc(agg.Transactions, compareTx)
		if err := agg.finish(all, base, on); err != nil {
			return nil, fmt.Errorf("security stats: %w", err)
		}
	}
	slices.SortFunc(report.Securities, func(a, b *SecurityStat) int { return strings.Compare(a.Security.name, b.Security.name) })

	t := &report.Total
	t.ValueBase, t.CostBasisBase, t.CostSoldBase = base.Zero(), base.Zero(), base.Zero()
	t.UnrealizedBase, t.RealizedBase = base.Zero(), base.Zero()
	for _, s := range report.Securities {
		t.ValueBase = t.ValueBase.Add(s.ValueBase)
		t.CostBasisBase = t.CostBasisBase.Add(s.CostBasisBase)
		t.CostSoldBase = t.CostSoldBase.Add(s.CostSoldBase)
		t.UnrealizedBase = t.UnrealizedBase.Add(s.UnrealizedBase)
		t.RealizedBase = t.RealizedBase.Add(s.RealizedBase)
	}
	t.UnrealizedReturn = ratio(t.UnrealizedBase, t.CostBasisBase)
	t.RealizedReturn = ratio(t.RealizedBase, t.CostSoldBase)
	t.TotalReturn = ratio(t.UnrealizedBase.Add(t.RealizedBase), t.CostBasisBase.Add(t.CostSoldBase))
	return report, nil
}
