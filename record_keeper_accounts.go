package finance

import (
	"slices"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Item returns the account or group of a path.
func (rk *RecordKeeper) Item(path string) (AccountItem, error) {
	path = strings.Trim(strings.TrimSpace(path), "/")
	for _, g := range rk.groups {
		if g.Path() == path {
			return g, nil
		}
	}
	for _, a := range rk.accounts {
		if a.Path() == path {
			return a, nil
		}
	}
	return nil, notFound("account", path)
}

// Account returns the account of a path.
func (rk *RecordKeeper) Account(path string) (Account, error) {
	item, err := rk.Item(path)
	if err != nil {
		return nil, err
	}
	a, ok := item.(Account)
	if !ok {
		return nil, notFound("account", path)
	}
	return a, nil
}

// AccountByID returns the account of an identifier.
func (rk *RecordKeeper) AccountByID(id uuid.UUID) (Account, error) {
	for _, a := range rk.accounts {
		if a.ID() == id {
			return a, nil
		}
	}
	return nil, notFound("account", id.String())
}

// CashAccount returns the cash account of a path.
func (rk *RecordKeeper) CashAccount(path string) (*CashAccount, error) {
	item, err := rk.Item(path)
	if err != nil {
		return nil, err
	}
	a, ok := item.(*CashAccount)
	if !ok {
		return nil, notFound("cash account", path)
	}
	return a, nil
}

// SecurityAccount returns the security account of a path.
func (rk *RecordKeeper) SecurityAccount(path string) (*SecurityAccount, error) {
	item, err := rk.Item(path)
	if err != nil {
		return nil, err
	}
	a, ok := item.(*SecurityAccount)
	if !ok {
		return nil, notFound("security account", path)
	}
	return a, nil
}

// AccountGroup returns the group of a path.
func (rk *RecordKeeper) AccountGroup(path string) (*AccountGroup, error) {
	item, err := rk.Item(path)
	if err != nil {
		return nil, err
	}
	g, ok := item.(*AccountGroup)
	if !ok {
		return nil, notFound("account group", path)
	}
	return g, nil
}

// RootItems returns the top level groups and accounts, in order.
func (rk *RecordKeeper) RootItems() []AccountItem { return slices.Clone(rk.rootItems) }

// Accounts returns all accounts in tree order.
func (rk *RecordKeeper) Accounts() []Account {
	var accounts []Account
	for _, item := range rk.rootItems {
		switch item := item.(type) {
		case *AccountGroup:
			accounts = append(accounts, item.Accounts()...)
		case Account:
			accounts = append(accounts, item)
		}
	}
	return accounts
}

// AccountGroups returns all groups in creation order.
func (rk *RecordKeeper) AccountGroups() []*AccountGroup { return slices.Clone(rk.groups) }

// placement resolves the parent and name of a new path for item (nil for a new item).
func (rk *RecordKeeper) placement(item AccountItem, path string) (*AccountGroup, string, error) {
	parentPath, name := splitPath(path)
	name, err := validateName("account", name)
	if err != nil {
		return nil, "", err
	}
	var parent *AccountGroup
	if parentPath != "" {
		if parent, err = rk.AccountGroup(parentPath); err != nil {
			return nil, "", err
		}
		if g, ok := item.(*AccountGroup); ok && g.isAncestorOf(parent) {
			return nil, "", invalidf("account group %s cannot move below itself", g.Path())
		}
	}
	if x, err := rk.Item(joinPath(parentPath, name)); err == nil && x != item {
		return nil, "", invalidf("account %s already exists", x.Path())
	}
	return parent, name, nil
}

// AddAccountGroup adds a group at index among its siblings, -1 appends.
func (rk *RecordKeeper) AddAccountGroup(path string, index int) (*AccountGroup, error) {
	parent, name, err := rk.placement(nil, path)
	if err != nil {
		return nil, err
	}
	g := &AccountGroup{node: node{name: name}}
	setParent(g, parent, index, &rk.rootItems)
	rk.groups = append(rk.groups, g)
	return g, nil
}

// AddCashAccount adds a cash account at index among its siblings, -1 appends.
func (rk *RecordKeeper) AddCashAccount(path, currency string, initialBalance decimal.Decimal, index int) (*CashAccount, error) {
	parent, name, err := rk.placement(nil, path)
	if err != nil {
		return nil, err
	}
	cur, err := rk.Currency(currency)
	if err != nil {
		return nil, err
	}
	balance, err := amountIn(cur, initialBalance, "initial balance")
	if err != nil {
		return nil, err
	}
	a := &CashAccount{node: node{name: name}, id: uuid.New(), currency: cur, initialBalance: balance}
	setParent(a, parent, index, &rk.rootItems)
	rk.accounts = append(rk.accounts, a)
	return a, nil
}

// AddSecurityAccount adds a security account at index among its siblings, -1 appends.
func (rk *RecordKeeper) AddSecurityAccount(path string, index int) (*SecurityAccount, error) {
	parent, name, err := rk.placement(nil, path)
	if err != nil {
		return nil, err
	}
	a := &SecurityAccount{node: node{name: name}, id: uuid.New()}
	setParent(a, parent, index, &rk.rootItems)
	rk.accounts = append(rk.accounts, a)
	return a, nil
}

// move renames and moves item to newPath at index.
func (rk *RecordKeeper) move(item AccountItem, newPath string, index int) error {
	parent, name, err := rk.placement(item, newPath)
	if err != nil {
		return err
	}
	item.base().name = name
	setParent(item, parent, index, &rk.rootItems)
	return nil
}

// EditAccountGroup renames or moves a group.
func (rk *RecordKeeper) EditAccountGroup(path, newPath string, index int) error {
	g, err := rk.AccountGroup(path)
	if err != nil {
		return err
	}
	return rk.move(g, newPath, index)
}

// EditCashAccount renames or moves a cash account and sets its initial balance.
func (rk *RecordKeeper) EditCashAccount(path, newPath string, initialBalance decimal.Decimal, index int) error {
	a, err := rk.CashAccount(path)
	if err != nil {
		return err
	}
	balance, err := amountIn(a.currency, initialBalance, "initial balance")
	if err != nil {
		return err
	}
	if err := rk.move(a, newPath, index); err != nil {
		return err
	}
	a.initialBalance = balance
	return nil
}

// EditSecurityAccount renames or moves a security account.
func (rk *RecordKeeper) EditSecurityAccount(path, newPath string, index int) error {
	a, err := rk.SecurityAccount(path)
	if err != nil {
		return err
	}
	return rk.move(a, newPath, index)
}

// RemoveAccountGroup removes an empty group.
func (rk *RecordKeeper) RemoveAccountGroup(path string) error {
	g, err := rk.AccountGroup(path)
	if err != nil {
		return err
	}
	if len(g.children) > 0 {
		return &ReferencedError{Kind: "account group", Key: g.Path(), By: "account " + g.children[0].Path()}
	}
	rk.detachItem(g)
	rk.groups = slices.DeleteFunc(rk.groups, func(x *AccountGroup) bool { return x == g })
	return nil
}

// RemoveAccount removes an account without transactions.
func (rk *RecordKeeper) RemoveAccount(path string) error {
	a, err := rk.Account(path)
	if err != nil {
		return err
	}
	if txs := a.entries().txs; len(txs) > 0 {
		return &ReferencedError{Kind: "account", Key: a.Path(), By: describe(txs[0])}
	}
	rk.detachItem(a)
	rk.accounts = slices.DeleteFunc(rk.accounts, func(x Account) bool { return x == a })
	rk.log.Debug().Str("account", a.Path()).Msg("account removed")
	return nil
}

func (rk *RecordKeeper) detachItem(item AccountItem) {
	siblings := &rk.rootItems
	if p := item.Parent(); p != nil {
		siblings = &p.children
	}
	*siblings = slices.DeleteFunc(*siblings, func(x AccountItem) bool { return x == item })
}

// amountIn returns value as an amount of cur, value must fit the currency places.
func amountIn(cur *Currency, value decimal.Decimal, what string) (CashAmount, error) {
	if !value.Equal(value.Truncate(cur.places)) {
		return CashAmount{}, invalidf("%s %s has more than %d decimals for %s", what, value, cur.places, cur.code)
	}
	return NewCashAmount(value, cur), nil
}
