package finance

import (
	"fmt"
	"slices"
	"sort"
	"strings"

	"github.com/etnz/finance/date"
	"github.com/google/uuid"
)

// AccountItem is a node of the account tree: an *AccountGroup, a *CashAccount or a *SecurityAccount.
type AccountItem interface {
	Name() string
	Path() string
	Parent() *AccountGroup
	// Balance returns the value of the item on a date, expressed in cur.
	Balance(cur *Currency, on date.Date) (CashAmount, error)
	base() *node
}

// Account is a leaf of the account tree: a *CashAccount or a *SecurityAccount.
type Account interface {
	AccountItem
	ID() uuid.UUID
	// Transactions returns the related transactions in chronological order.
	Transactions() []Transaction
	entries() *ledgerEntries
}

// node holds the tree position of an AccountItem.
type node struct {
	name   string
	parent *AccountGroup
}

func (n *node) Name() string          { return n.name }
func (n *node) Parent() *AccountGroup { return n.parent }
func (n *node) base() *node           { return n }

// Path returns the names of the item and its ancestors joined by "/".
func (n *node) Path() string {
	if n.parent == nil {
		return n.name
	}
	return n.parent.Path() + "/" + n.name
}

// AccountGroup is a folder of the account tree.
type AccountGroup struct {
	node
	children []AccountItem
}

// Children returns the direct children of the group, in order.
func (g *AccountGroup) Children() []AccountItem { return slices.Clone(g.children) }

func (g *AccountGroup) String() string { return g.Path() }

// Accounts returns all the accounts below g, depth first.
func (g *AccountGroup) Accounts() []Account {
	var accounts []Account
	for _, c := range g.children {
		switch c := c.(type) {
		case *AccountGroup:
			accounts = append(accounts, c.Accounts()...)
		case Account:
			accounts = append(accounts, c)
		}
	}
	return accounts
}

// Balance returns the sum of the children balances. The first failing child fails the group.
func (g *AccountGroup) Balance(cur *Currency, on date.Date) (CashAmount, error) {
	total := cur.Zero()
	for _, c := range g.children {
		b, err := c.Balance(cur, on)
		if err != nil {
			return NaN(cur), fmt.Errorf("balance of %s: %w", g.Path(), err)
		}
		total = total.Add(b)
	}
	return total, nil
}

// isAncestorOf reports whether g is item or one of its ancestors.
func (g *AccountGroup) isAncestorOf(item AccountItem) bool {
	if x, ok := item.(*AccountGroup); ok && x == g {
		return true
	}
	for p := item.Parent(); p != nil; p = p.parent {
		if p == g {
			return true
		}
	}
	return false
}

// setParent moves item under parent (nil for a root) at index, -1 appends.
func setParent(item AccountItem, parent *AccountGroup, index int, roots *[]AccountItem) {
	n := item.base()
	siblings := roots
	if n.parent != nil {
		siblings = &n.parent.children
	}
	*siblings = slices.DeleteFunc(*siblings, func(x AccountItem) bool { return x == item })

	n.parent = parent
	siblings = roots
	if parent != nil {
		siblings = &parent.children
	}
	*siblings = insertAt(*siblings, index, item)
}

// ledgerEntries is a chronological list of transactions.
type ledgerEntries struct {
	txs []Transaction
}

func (e *ledgerEntries) entries() *ledgerEntries { return e }

// Transactions returns a copy of the transactions in chronological order.
func (e *ledgerEntries) Transactions() []Transaction { return slices.Clone(e.txs) }

func (e *ledgerEntries) insert(tx Transaction) {
	i := sort.Search(len(e.txs), func(i int) bool { return compareTx(e.txs[i], tx) > 0 })
	e.txs = slices.Insert(e.txs, i, tx)
}

func (e *ledgerEntries) remove(tx Transaction) {
	e.txs = slices.DeleteFunc(e.txs, func(x Transaction) bool { return x == tx })
}

// upTo returns the transactions dated on or before a date.
func (e *ledgerEntries) upTo(on date.Date) []Transaction {
	i := sort.Search(len(e.txs), func(i int) bool { return e.txs[i].Date().After(on) })
	return e.txs[:i]
}

// CashAccount is an account holding money in a single currency.
type CashAccount struct {
	node
	ledgerEntries
	id             uuid.UUID
	currency       *Currency
	initialBalance CashAmount
}

func (a *CashAccount) ID() uuid.UUID              { return a.id }
func (a *CashAccount) Currency() *Currency        { return a.currency }
func (a *CashAccount) InitialBalance() CashAmount { return a.initialBalance }
func (a *CashAccount) String() string             { return a.Path() }

// InitialDate returns the day before the first transaction, when the initial
// balance becomes effective. It is the zero Date when there is no transaction.
func (a *CashAccount) InitialDate() date.Date {
	if len(a.txs) == 0 {
		return date.Date{}
	}
	return a.txs[0].Date().Add(-1)
}

// NativeBalance returns the balance on a date in the account currency.
func (a *CashAccount) NativeBalance(on date.Date) CashAmount {
	if on.Before(a.InitialDate()) {
		return a.currency.Zero()
	}
	total := a.initialBalance
	for _, tx := range a.upTo(on) {
		total = total.Add(CashEffect(tx, a))
	}
	return total
}

// Balance returns the balance on a date in cur.
//
// The initial balance is converted at its effective date and every transaction
// at its own date, so historical flows keep their historical value.
func (a *CashAccount) Balance(cur *Currency, on date.Date) (CashAmount, error) {
	initialDate := a.InitialDate()
	if on.Before(initialDate) {
		return cur.Zero(), nil
	}
	if initialDate.IsZero() {
		initialDate = on
	}
	total, err := a.initialBalance.Convert(cur, initialDate)
	if err != nil {
		return NaN(cur), fmt.Errorf("initial balance of %s: %w", a.Path(), err)
	}
	for _, tx := range a.upTo(on) {
		v, err := CashEffect(tx, a).Convert(cur, tx.Date())
		if err != nil {
			return NaN(cur), fmt.Errorf("balance of %s: %w", a.Path(), err)
		}
		total = total.Add(v)
	}
	return total, nil
}

// LatestBalance returns the balance in cur after every transaction. Without
// transactions it is the initial balance at the latest rate.
func (a *CashAccount) LatestBalance(cur *Currency) (CashAmount, error) {
	if len(a.txs) == 0 {
		v, err := a.initialBalance.ConvertLatest(cur)
		if err != nil {
			return NaN(cur), fmt.Errorf("initial balance of %s: %w", a.Path(), err)
		}
		return v, nil
	}
	return a.Balance(cur, a.txs[len(a.txs)-1].Date())
}

// BalanceHistory returns the balance in cur after each day with activity,
// starting with the initial balance on its effective date.
func (a *CashAccount) BalanceHistory(cur *Currency) (*date.History[CashAmount], error) {
	h := new(date.History[CashAmount])
	if len(a.txs) == 0 {
		return h, nil
	}
	initialDate := a.InitialDate()
	total, err := a.initialBalance.Convert(cur, initialDate)
	if err != nil {
		return nil, fmt.Errorf("initial balance of %s: %w", a.Path(), err)
	}
	h.Append(initialDate, total)
	for _, tx := range a.txs {
		v, err := CashEffect(tx, a).Convert(cur, tx.Date())
		if err != nil {
			return nil, fmt.Errorf("balance of %s: %w", a.Path(), err)
		}
		total = total.Add(v)
		h.Append(tx.Date(), total)
	}
	return h, nil
}

// SecurityAccount is an account holding shares of securities.
type SecurityAccount struct {
	node
	ledgerEntries
	id uuid.UUID
}

func (a *SecurityAccount) ID() uuid.UUID  { return a.id }
func (a *SecurityAccount) String() string { return a.Path() }

// Holding is a number of shares of a security.
type Holding struct {
	Security *Security
	Shares   Quantity
}

// Securities returns every security the account ever held, sorted by name.
func (a *SecurityAccount) Securities() []*Security {
	var securities []*Security
	for _, tx := range a.txs {
		if s := txSecurity(tx); s != nil && !slices.Contains(securities, s) {
			securities = append(securities, s)
		}
	}
	slices.SortFunc(securities, func(x, y *Security) int { return strings.Compare(x.name, y.name) })
	return securities
}

// Shares returns the number of shares of sec held on a date.
func (a *SecurityAccount) Shares(sec *Security, on date.Date) Quantity {
	var shares Quantity
	for _, tx := range a.upTo(on) {
		shares = shares.Add(ShareEffect(tx, a, sec))
	}
	return shares
}

// Holdings returns the non zero holdings on a date, sorted by security name.
func (a *SecurityAccount) Holdings(on date.Date) []Holding {
	var holdings []Holding
	for _, sec := range a.Securities() {
		if shares := a.Shares(sec, on); !shares.IsZero() {
			holdings = append(holdings, Holding{Security: sec, Shares: shares})
		}
	}
	return holdings
}

// Balance returns the market value on a date in cur: shares times price, both as of that date.
// A security without price yet makes the balance NaN.
func (a *SecurityAccount) Balance(cur *Currency, on date.Date) (CashAmount, error) {
	total := cur.Zero()
	for _, h := range a.Holdings(on) {
		v, err := h.Security.Price(on).Mul(h.Shares.Decimal()).Convert(cur, on)
		if err != nil {
			return NaN(cur), fmt.Errorf("balance of %s: %w", a.Path(), err)
		}
		total = total.Add(v)
	}
	return total, nil
}

// NativeBalances returns the market value of each holding in the security currency.
func (a *SecurityAccount) NativeBalances(on date.Date) map[*Security]CashAmount {
	balances := make(map[*Security]CashAmount)
	for _, h := range a.Holdings(on) {
		balances[h.Security] = h.Security.Price(on).Mul(h.Shares.Decimal())
	}
	return balances
}
