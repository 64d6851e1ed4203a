package finance

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/etnz/finance/date"
)

// AssetKind classifies the nodes of an asset tree.
type AssetKind int

const (
	CurrencyAsset AssetKind = iota
	SecurityAsset
	AccountAsset
	GroupAsset
)

// AssetNode is a node of a net worth tree.
//
// Base is the value in the base currency. Native is the value in the node's own
// currency when it differs from base, and the zero CashAmount otherwise.
// A node whose value could not be computed carries Err and a NaN Base, the NaN
// propagates to its ancestors.
type AssetNode struct {
	Name     string
	Kind     AssetKind
	Base     CashAmount
	Native   CashAmount
	Err      error
	Parent   *AssetNode
	Children []*AssetNode
}

// HasNative reports whether the node has a value in a currency other than base.
func (n *AssetNode) HasNative() bool { return n.Native.cur != nil }

func (n *AssetNode) child(name string, kind AssetKind, base *Currency) *AssetNode {
	for _, c := range n.Children {
		if c.Name == name {
			return c
		}
	}
	c := &AssetNode{Name: name, Kind: kind, Base: base.Zero(), Parent: n}
	n.Children = append(n.Children, c)
	return c
}

// add adds a leaf value to n and its ancestors.
func (n *AssetNode) add(v CashAmount) {
	for ; n != nil; n = n.Parent {
		n.Base = n.Base.Add(v)
	}
}

// Walk calls f on n and its descendants, depth first, with their depth.
func (n *AssetNode) Walk(f func(n *AssetNode, depth int)) {
	var walk func(*AssetNode, int)
	walk = func(n *AssetNode, depth int) {
		f(n, depth)
		for _, c := range n.Children {
			walk(c, depth+1)
		}
	}
	walk(n, 0)
}

func sortNodes(nodes []*AssetNode) {
	slices.SortFunc(nodes, func(a, b *AssetNode) int { return strings.Compare(a.Name, b.Name) })
}

// NetWorth returns the value of every account on a date, in base.
func NetWorth(rk *RecordKeeper, base *Currency, on date.Date) (CashAmount, error) {
	total := base.Zero()
	for _, acc := range rk.Accounts() {
		v, err := acc.Balance(base, on)
		if err != nil {
			return NaN(base), fmt.Errorf("net worth on %s: %w", on, err)
		}
		total = total.Add(v)
	}
	return total, nil
}

// AssetTree returns the net worth on a date as two roots: "Currencies" grouping
// cash accounts by currency code, and "Securities" grouping holdings by security
// type then security name. Accounts with a zero balance are skipped.
//
// A failing account does not stop the computation: its node carries the error,
// and the joined errors are returned along with the tree.
func AssetTree(rk *RecordKeeper, base *Currency, on date.Date) ([]*AssetNode, error) {
	currencies := &AssetNode{Name: "Currencies", Kind: CurrencyAsset, Base: base.Zero()}
	securities := &AssetNode{Name: "Securities", Kind: SecurityAsset, Base: base.Zero()}
	var errs []error

	for _, acc := range rk.Accounts() {
		switch acc := acc.(type) {
		case *CashAccount:
			native := acc.NativeBalance(on)
			if native.Rounded().IsZero() {
				continue
			}
			cur := currencies.child(acc.currency.code, CurrencyAsset, base)
			leaf := cur.child(acc.Path(), AccountAsset, base)
			if acc.currency != base {
				if !cur.HasNative() {
					cur.Native = acc.currency.Zero()
				}
				cur.Native = cur.Native.Add(native)
				leaf.Native = native
			}
			v, err := acc.Balance(base, on)
			if err != nil {
				leaf.Err = err
				errs = append(errs, err)
			}
			leaf.add(v)

		case *SecurityAccount:
			for _, h := range acc.Holdings(on) {
				sec := h.Security
				typ := securities.child(sec.typ, SecurityAsset, base)
				name := typ.child(sec.name, SecurityAsset, base)
				leaf := name.child(acc.Path(), AccountAsset, base)
				native := sec.Price(on).Mul(h.Shares.Decimal())
				if sec.currency != base {
					if !name.HasNative() {
						name.Native = sec.currency.Zero()
					}
					name.Native = name.Native.Add(native)
					leaf.Native = native
				}
				v, err := native.Convert(base, on)
				if err == nil && native.IsNaN() {
					err = fmt.Errorf("value of %s in %s: %w", sec.name, acc.Path(), notFound("price", sec.name))
				}
				if err != nil {
					leaf.Err = err
					errs = append(errs, err)
					v = NaN(base)
				}
				leaf.add(v)
			}
		}
	}

	sortNodes(currencies.Children)
	sortNodes(securities.Children)
	for _, typ := range securities.Children {
		sortNodes(typ.Children)
	}
	return []*AssetNode{currencies, securities}, errors.Join(errs...)
}

// AccountTree returns the value on a date of every root item of the account
// tree, mirroring its groups. Like AssetTree, failing accounts carry their
// error and the joined errors are returned along with the tree.
func AccountTree(rk *RecordKeeper, base *Currency, on date.Date) ([]*AssetNode, error) {
	var errs []error
	var build func(item AccountItem, parent *AssetNode) *AssetNode
	build = func(item AccountItem, parent *AssetNode) *AssetNode {
		n := &AssetNode{Name: item.Name(), Kind: AccountAsset, Base: base.Zero(), Parent: parent}
		switch item := item.(type) {
		case *AccountGroup:
			n.Kind = GroupAsset
			for _, c := range item.children {
				n.Children = append(n.Children, build(c, n))
			}
		case *CashAccount:
			if item.currency != base {
				n.Native = item.NativeBalance(on)
			}
			v, err := item.Balance(base, on)
			if err != nil {
				n.Err = err
				errs = append(errs, err)
			}
			n.add(v)
		case *SecurityAccount:
			v, err := item.Balance(base, on)
			if err != nil {
				n.Err = err
				errs = append(errs, err)
			}
			n.add(v)
		}
		return n
	}

	var roots []*AssetNode
	for _, item := range rk.rootItems {
		roots = append(roots, build(item, nil))
	}
	return roots, errors.Join(errs...)
}

// NetWorthOverTime returns the net worth in base for each day between from and
// to, keeping a point only when the value differs from the previous one. NaN
// values, from securities without a price, count as equal to each other.
func NetWorthOverTime(rk *RecordKeeper, base *Currency, from, to date.Date) (*date.History[CashAmount], error) {
	h := new(date.History[CashAmount])
	var last CashAmount
	for day := range date.NewRange(from, to).Days() {
		v, err := NetWorth(rk, base, day)
		if err != nil {
			return nil, err
		}
		if h.Len() > 0 && (v.IsNaN() && last.IsNaN() || v.Equal(last)) {
			continue
		}
		h.Append(day, v)
		last = v
	}
	return h, nil
}
