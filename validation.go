package finance

import (
	"errors"
	"fmt"
	"slices"
)

// change is a set of transaction additions, replacements and removals,
// validated and applied as a whole.
type change struct {
	add      []Transaction
	replace  map[Transaction]Transaction // current -> candidate content
	remove   map[Transaction]bool
	resolver *resolver // pending attributes and categories used by the candidates
}

func (rk *RecordKeeper) newChange() *change {
	return &change{
		replace: make(map[Transaction]Transaction),
		remove:  make(map[Transaction]bool),
	}
}

// current returns the content of tx once the change is applied, nil if removed.
func (ch *change) current(tx Transaction) Transaction {
	if ch.remove[tx] {
		return nil
	}
	if c, ok := ch.replace[tx]; ok {
		return c
	}
	return tx
}

// candidates returns every transaction once the change is applied, in chronological order.
func (ch *change) candidates(rk *RecordKeeper) []Transaction {
	var txs []Transaction
	for _, tx := range rk.transactions {
		if c := ch.current(tx); c != nil {
			txs = append(txs, c)
		}
	}
	txs = append(txs, ch.add...)
	slices.SortFunc(txs, compareTx)
	return txs
}

// refundsOf returns the refunds of original once the change is applied.
func (ch *change) refundsOf(rk *RecordKeeper, original *CashTransaction) []*RefundTransaction {
	var refunds []*RefundTransaction
	for _, r := range rk.refunds[original] {
		if c := ch.current(r); c != nil {
			refunds = append(refunds, c.(*RefundTransaction))
		}
	}
	for _, tx := range ch.add {
		if r, ok := tx.(*RefundTransaction); ok && r.refunded == original {
			refunds = append(refunds, r)
		}
	}
	return refunds
}

// apply validates a change and commits it, or returns every validation failure.
func (rk *RecordKeeper) apply(ch *change) error {
	if err := errors.Join(rk.validateRefunds(ch), rk.validateHoldings(ch)); err != nil {
		return err
	}
	rk.commit(ch)
	return nil
}

// validateRefunds checks every refund of the expenses touched by the change.
func (rk *RecordKeeper) validateRefunds(ch *change) error {
	var originals []*CashTransaction
	touch := func(o *CashTransaction) {
		if !slices.Contains(originals, o) {
			originals = append(originals, o)
		}
	}
	for tx := range ch.remove {
		if o, ok := tx.(*CashTransaction); ok {
			for _, r := range rk.refunds[o] {
				if !ch.remove[r] {
					return &ReferencedError{Kind: "transaction", Key: o.id.String(), By: describe(r)}
				}
			}
		}
	}
	for old, tx := range ch.replace {
		switch tx := tx.(type) {
		case *RefundTransaction:
			touch(tx.refunded)
		case *CashTransaction:
			if len(rk.refunds[old.(*CashTransaction)]) > 0 {
				touch(old.(*CashTransaction))
			}
		}
	}
	for _, tx := range ch.add {
		if r, ok := tx.(*RefundTransaction); ok {
			touch(r.refunded)
		}
	}

	var errs []error
	for _, o := range originals {
		if ch.remove[o] {
			continue
		}
		errs = append(errs, validateRefundsOf(ch.current(o).(*CashTransaction), ch.refundsOf(rk, o)))
	}
	return errors.Join(errs...)
}

// validateRefundsOf checks the refunds of an expense against each other.
func validateRefundsOf(o *CashTransaction, refunds []*RefundTransaction) error {
	if o.typ != ExpenseTransaction {
		return invariantf("transaction %s has refunds and must remain an expense", o.id)
	}
	var errs []error
	for _, r := range refunds {
		if r.account.currency != o.account.currency {
			errs = append(errs, invariantf("refund on %s in %s does not match the refunded currency %s", r.on, r.account.currency, o.account.currency))
			continue
		}
		if r.on.Before(o.on) {
			errs = append(errs, invariantf("refund on %s precedes the refunded transaction on %s", r.on, o.on))
		}
		others := slices.DeleteFunc(slices.Clone(refunds), func(x *RefundTransaction) bool { return x == r })
		bounds := refundBounds(o, others, r.amount)
		for _, cs := range r.categories {
			b, ok := bounds.Categories[cs.Category]
			if !ok {
				errs = append(errs, invariantf("refund on %s: category %s is not in the refunded transaction", r.on, cs.Category.Path()))
				continue
			}
			if !b.contains(cs.Amount) {
				errs = append(errs, fmt.Errorf("%w: refund on %s: category %s amount %s must be within %s", ErrInvariant, r.on, cs.Category.Path(), cs.Amount, b))
			}
		}
		for _, ts := range r.tagSplits {
			if _, ok := bounds.Tags[ts.Tag]; !ok {
				errs = append(errs, invariantf("refund on %s: tag %s is not in the refunded transaction", r.on, ts.Tag.name))
			}
		}
		for tag, b := range bounds.Tags {
			amount, _ := r.TagAmount(tag)
			if amount.Currency() == nil {
				amount = r.amount.cur.Zero()
			}
			if !b.contains(amount) {
				errs = append(errs, fmt.Errorf("%w: refund on %s: tag %s amount %s must be within %s", ErrInvariant, r.on, tag.name, amount, b))
			}
		}
	}
	return errors.Join(errs...)
}

// Bounds is an inclusive range of amounts.
type Bounds struct {
	Min, Max CashAmount
}

func (b Bounds) contains(a CashAmount) bool { return a.Compare(b.Min) >= 0 && a.Compare(b.Max) <= 0 }

func (b Bounds) String() string { return "[" + b.Min.String() + ", " + b.Max.String() + "]" }

// RefundBounds holds the legal amounts of a refund per category and per tag.
type RefundBounds struct {
	Categories map[*Category]Bounds
	Tags       map[*Attribute]Bounds
}

// RefundBounds returns the legal amounts of a refund of original with a given
// total, considering every refund of original but exclude (nil for a new refund).
func (rk *RecordKeeper) RefundBounds(original *CashTransaction, total CashAmount, exclude *RefundTransaction) RefundBounds {
	others := slices.DeleteFunc(slices.Clone(rk.refunds[original]), func(x *RefundTransaction) bool { return x == exclude })
	return refundBounds(original, others, total)
}

// refundBounds computes category bounds first, then tag bounds which depend on the refund total.
func refundBounds(o *CashTransaction, others []*RefundTransaction, total CashAmount) RefundBounds {
	cur := o.account.currency
	bounds := RefundBounds{
		Categories: make(map[*Category]Bounds),
		Tags:       make(map[*Attribute]Bounds),
	}
	for _, cs := range o.categories {
		hi := cs.Amount
		for _, r := range others {
			if a, ok := r.CategoryAmount(cs.Category); ok {
				hi = hi.Sub(a)
			}
		}
		bounds.Categories[cs.Category] = Bounds{Min: cur.Zero(), Max: hi}
	}

	remaining := o.amount
	for _, r := range others {
		remaining = remaining.Sub(r.amount)
	}
	for _, ts := range o.tagSplits {
		hi, lo := o.amount, ts.Amount
		for _, r := range others {
			if a, ok := r.TagAmount(ts.Tag); ok {
				hi, lo = hi.Sub(a), lo.Sub(a)
			}
		}
		if total.Compare(hi) < 0 {
			hi = total
		}
		lo = lo.Sub(remaining.Sub(total))
		if lo.IsNegative() {
			lo = cur.Zero()
		}
		bounds.Tags[ts.Tag] = Bounds{Min: lo, Max: hi}
	}
	return bounds
}

type holdingKey struct {
	account  *SecurityAccount
	security *Security
}

// holdingKeys returns the (account, security) pairs whose shares tx changes.
func holdingKeys(tx Transaction) []holdingKey {
	switch tx := tx.(type) {
	case *SecurityTransaction:
		return []holdingKey{{tx.securityAccount, tx.security}}
	case *SecurityTransfer:
		return []holdingKey{{tx.sender, tx.security}, {tx.recipient, tx.security}}
	case *CashTransaction, *CashTransfer, *RefundTransaction:
		return nil
	default:
		panic(fmt.Sprintf("unknown transaction type %T", tx))
	}
}

// validateHoldings replays the shares of every holding touched by the change
// and rejects it when a holding goes negative at any point.
func (rk *RecordKeeper) validateHoldings(ch *change) error {
	var keys []holdingKey
	touch := func(tx Transaction) {
		for _, k := range holdingKeys(tx) {
			if !slices.Contains(keys, k) {
				keys = append(keys, k)
			}
		}
	}
	for tx := range ch.remove {
		touch(tx)
	}
	for old, tx := range ch.replace {
		touch(old)
		touch(tx)
	}
	for _, tx := range ch.add {
		touch(tx)
	}
	if len(keys) == 0 {
		return nil
	}

	candidates := ch.candidates(rk)
	var errs []error
	for _, k := range keys {
		var shares Quantity
		for _, tx := range candidates {
			effect := ShareEffect(tx, k.account, k.security)
			if effect.IsZero() {
				continue
			}
			shares = shares.Add(effect)
			if shares.IsNegative() {
				errs = append(errs, invariantf("%s would hold %s shares of %s on %s", k.account.Path(), shares, k.security.name, tx.Date()))
				break
			}
		}
	}
	return errors.Join(errs...)
}

// commit applies a validated change.
func (rk *RecordKeeper) commit(ch *change) {
	if ch.resolver != nil {
		ch.resolver.commit()
	}
	for tx := range ch.remove {
		rk.detach(tx)
		delete(rk.byID, tx.ID())
	}
	for old, tx := range ch.replace {
		rk.detach(old)
		assign(old, tx)
		rk.attach(old)
	}
	for _, tx := range ch.add {
		rk.attach(tx)
		rk.byID[tx.ID()] = tx
		rk.seq = max(rk.seq, tx.base().seq)
	}
}

// attach inserts tx in the ledger and its accounts.
func (rk *RecordKeeper) attach(tx Transaction) {
	i, _ := slices.BinarySearchFunc(rk.transactions, tx, compareTx)
	rk.transactions = slices.Insert(rk.transactions, i, tx)
	for _, a := range tx.Accounts() {
		a.entries().insert(tx)
	}
	if r, ok := tx.(*RefundTransaction); ok {
		rk.refunds[r.refunded] = append(rk.refunds[r.refunded], r)
	}
}

// detach removes tx from the ledger and its accounts.
func (rk *RecordKeeper) detach(tx Transaction) {
	rk.transactions = slices.DeleteFunc(rk.transactions, func(x Transaction) bool { return x == tx })
	for _, a := range tx.Accounts() {
		a.entries().remove(tx)
	}
	if r, ok := tx.(*RefundTransaction); ok {
		refunds := slices.DeleteFunc(rk.refunds[r.refunded], func(x *RefundTransaction) bool { return x == r })
		if len(refunds) == 0 {
			delete(rk.refunds, r.refunded)
		} else {
			rk.refunds[r.refunded] = refunds
		}
	}
}

// assign copies the content of tx into old, keeping the identity of old.
func assign(old, tx Transaction) {
	switch old := old.(type) {
	case *CashTransaction:
		*old = *tx.(*CashTransaction)
	case *CashTransfer:
		*old = *tx.(*CashTransfer)
	case *RefundTransaction:
		*old = *tx.(*RefundTransaction)
	case *SecurityTransaction:
		*old = *tx.(*SecurityTransaction)
	case *SecurityTransfer:
		*old = *tx.(*SecurityTransfer)
	default:
		panic(fmt.Sprintf("unknown transaction type %T", old))
	}
}
