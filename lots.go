package finance

import (
	"github.com/etnz/finance/date"
)

// lot is a number of shares acquired together, used for cost basis calculations.
type lot struct {
	Date     date.Date
	Quantity Quantity
	Cost     CashAmount // total cost in the security currency
	CostBase CashAmount // total cost in the base currency, at the acquisition date
}

// split cuts q shares out of the lot. The rest keeps the cost not taken, so
// the two parts always add up to the lot.
func (l lot) split(q Quantity) (taken, rest lot) {
	if !q.LessThan(l.Quantity) {
		return l, lot{Date: l.Date, Cost: l.Cost.Sub(l.Cost), CostBase: l.CostBase.Sub(l.CostBase)}
	}
	ratio := q.value.Div(l.Quantity.value)
	taken = lot{Date: l.Date, Quantity: q, Cost: l.Cost.Mul(ratio), CostBase: l.CostBase.Mul(ratio)}
	rest = lot{Date: l.Date, Quantity: l.Quantity.Sub(q), Cost: l.Cost.Sub(taken.Cost), CostBase: l.CostBase.Sub(taken.CostBase)}
	return taken, rest
}

type lots []lot

// shares returns the number of shares in the lots.
func (l lots) shares() Quantity {
	var q Quantity
	for _, x := range l {
		q = q.Add(x.Quantity)
	}
	return q
}

// cost returns the total cost of the lots in the security and in the base currency.
func (l lots) cost(native, base *Currency) (CashAmount, CashAmount) {
	cost, costBase := native.Zero(), base.Zero()
	for _, x := range l {
		cost, costBase = cost.Add(x.Cost), costBase.Add(x.CostBase)
	}
	return cost, costBase
}

// take splits q shares out of the lots: FIFO consumes the oldest lots first,
// AverageCost takes the same fraction of every lot. Taking every share leaves
// no lot, and no cost, behind.
func (l lots) take(q Quantity, method CostBasisMethod) (taken, rest lots) {
	if method == AverageCost {
		total := l.shares()
		if total.IsZero() {
			return nil, l
		}
		if !q.LessThan(total) {
			return l, nil
		}
		left := q
		for i, x := range l {
			share := Quantity{value: x.Quantity.value.Mul(q.value).Div(total.value)}
			if i == len(l)-1 {
				// rounding of the other shares ends up in the last lot
				share = left
			}
			left = left.Sub(share)
			t, r := x.split(share)
			taken = append(taken, t)
			if r.Quantity.IsPositive() {
				rest = append(rest, r)
			}
		}
		return taken, rest
	}

	for _, x := range l {
		switch {
		case q.IsZero():
			rest = append(rest, x)
		case x.Quantity.GreaterThan(q):
			t, r := x.split(q)
			taken = append(taken, t)
			rest = append(rest, r)
			q = Quantity{}
		default:
			taken = append(taken, x)
			q = q.Sub(x.Quantity)
		}
	}
	return taken, rest
}
