package finance

import (
	"fmt"
	"slices"
	"unicode/utf8"

	"github.com/etnz/finance/date"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const maxDescriptionLength = 256

// CashTransactionSpec describes a CashTransaction by names and paths.
// Missing payee, tags and categories are made, categories with the type
// matching the transaction type.
type CashTransactionSpec struct {
	Account     string
	Date        date.Date
	Type        CashTransactionType
	Payee       string
	Categories  []Split // category paths, at least one
	Tags        []Split
	Description string
}

// CashTransferSpec describes a CashTransfer.
type CashTransferSpec struct {
	Sender, Recipient          string
	Date                       date.Date
	AmountSent, AmountReceived decimal.Decimal
	Tags                       []string
	Description                string
}

// RefundSpec describes a RefundTransaction of an expense.
// Categories and tags must be the ones of the refunded transaction.
type RefundSpec struct {
	Refunded    uuid.UUID
	Account     string
	Date        date.Date
	Payee       string
	Categories  []Split
	Tags        []Split
	Description string
}

// SecurityTransactionSpec describes a SecurityTransaction.
type SecurityTransactionSpec struct {
	Type            SecurityTransactionType
	SecurityAccount string
	CashAccount     string
	Security        string
	Date            date.Date
	Shares          decimal.Decimal
	PricePerShare   decimal.Decimal // paid per share by a Dividend
	Tags            []string
	Description     string
}

// SecurityTransferSpec describes a SecurityTransfer.
type SecurityTransferSpec struct {
	Sender, Recipient string
	Security          string
	Date              date.Date
	Shares            decimal.Decimal
	Tags              []string
	Description       string
}

// Transaction returns a transaction by identifier.
func (rk *RecordKeeper) Transaction(id uuid.UUID) (Transaction, error) {
	if tx, ok := rk.byID[id]; ok {
		return tx, nil
	}
	return nil, notFound("transaction", id.String())
}

// Transactions returns all transactions in chronological order.
func (rk *RecordKeeper) Transactions() []Transaction { return slices.Clone(rk.transactions) }

// Refunds returns the refunds of a transaction in chronological order.
func (rk *RecordKeeper) Refunds(tx *CashTransaction) []*RefundTransaction {
	refunds := slices.Clone(rk.refunds[tx])
	slices.SortFunc(refunds, func(a, b *RefundTransaction) int { return compareTx(a, b) })
	return refunds
}

// AddCashTransaction adds an income or an expense.
func (rk *RecordKeeper) AddCashTransaction(spec CashTransactionSpec) (*CashTransaction, error) {
	res := rk.resolver()
	tx, err := rk.buildCashTransaction(res, spec)
	if err != nil {
		return nil, err
	}
	return tx, rk.add(res, tx)
}

// EditCashTransaction replaces the content of a cash transaction.
func (rk *RecordKeeper) EditCashTransaction(id uuid.UUID, spec CashTransactionSpec) error {
	old, err := transactionOf[*CashTransaction](rk, id)
	if err != nil {
		return err
	}
	res := rk.resolver()
	tx, err := rk.buildCashTransaction(res, spec)
	if err != nil {
		return err
	}
	return rk.edit(res, old, tx)
}

// CashTransactionsEdit changes the same fields of several cash transactions.
// Nil fields keep the value of each transaction.
type CashTransactionsEdit struct {
	Account     *string
	Date        *date.Date
	Type        *CashTransactionType
	Payee       *string
	Categories  []Split // replace every category split
	Tags        []Split // replace every tag split
	Description *string
}

// EditCashTransactions applies the same edit to cash transactions of a single
// currency. Either every transaction is edited or none is.
func (rk *RecordKeeper) EditCashTransactions(ids []uuid.UUID, edit CashTransactionsEdit) error {
	res := rk.resolver()
	ch := rk.newChange()
	ch.resolver = res
	var cur *Currency
	for _, id := range ids {
		old, err := transactionOf[*CashTransaction](rk, id)
		if err != nil {
			return err
		}
		if cur == nil {
			cur = old.account.currency
		}
		if old.account.currency != cur {
			return invalidf("edited transactions mix %s and %s", cur.code, old.account.currency.code)
		}
		tx, err := rk.buildCashTransaction(res, edit.apply(cashSpecOf(old)))
		if err != nil {
			return fmt.Errorf("transaction %s: %w", id, err)
		}
		b := tx.base()
		b.id, b.seq = old.id, old.seq
		ch.replace[old] = tx
	}
	return rk.apply(ch)
}

func (e CashTransactionsEdit) apply(spec CashTransactionSpec) CashTransactionSpec {
	if e.Account != nil {
		spec.Account = *e.Account
	}
	if e.Date != nil {
		spec.Date = *e.Date
	}
	if e.Type != nil {
		spec.Type = *e.Type
	}
	if e.Payee != nil {
		spec.Payee = *e.Payee
	}
	if e.Categories != nil {
		spec.Categories = e.Categories
	}
	if e.Tags != nil {
		spec.Tags = e.Tags
	}
	if e.Description != nil {
		spec.Description = *e.Description
	}
	return spec
}

// cashSpecOf returns the spec building a copy of tx.
func cashSpecOf(tx *CashTransaction) CashTransactionSpec {
	spec := CashTransactionSpec{
		Account: tx.account.Path(), Date: tx.on, Type: tx.typ, Payee: tx.payee.name, Description: tx.description,
	}
	for _, cs := range tx.categories {
		spec.Categories = append(spec.Categories, Split{Name: cs.Category.Path(), Amount: cs.Amount.value})
	}
	for _, ts := range tx.tagSplits {
		spec.Tags = append(spec.Tags, Split{Name: ts.Tag.name, Amount: ts.Amount.value})
	}
	return spec
}

// AddCashTransfer adds a transfer between two cash accounts.
func (rk *RecordKeeper) AddCashTransfer(spec CashTransferSpec) (*CashTransfer, error) {
	res := rk.resolver()
	tx, err := rk.buildCashTransfer(res, spec)
	if err != nil {
		return nil, err
	}
	return tx, rk.add(res, tx)
}

// EditCashTransfer replaces the content of a cash transfer.
func (rk *RecordKeeper) EditCashTransfer(id uuid.UUID, spec CashTransferSpec) error {
	old, err := transactionOf[*CashTransfer](rk, id)
	if err != nil {
		return err
	}
	res := rk.resolver()
	tx, err := rk.buildCashTransfer(res, spec)
	if err != nil {
		return err
	}
	return rk.edit(res, old, tx)
}

// AddRefund adds a refund of an expense.
func (rk *RecordKeeper) AddRefund(spec RefundSpec) (*RefundTransaction, error) {
	res := rk.resolver()
	tx, err := rk.buildRefund(res, spec)
	if err != nil {
		return nil, err
	}
	return tx, rk.add(res, tx)
}

// EditRefund replaces the content of a refund. The refunded transaction cannot change.
func (rk *RecordKeeper) EditRefund(id uuid.UUID, spec RefundSpec) error {
	old, err := transactionOf[*RefundTransaction](rk, id)
	if err != nil {
		return err
	}
	if spec.Refunded == uuid.Nil {
		spec.Refunded = old.refunded.id
	}
	if spec.Refunded != old.refunded.id {
		return invalidf("refund %s cannot change its refunded transaction", id)
	}
	res := rk.resolver()
	tx, err := rk.buildRefund(res, spec)
	if err != nil {
		return err
	}
	return rk.edit(res, old, tx)
}

// AddSecurityTransaction adds a buy, a sell or a dividend.
func (rk *RecordKeeper) AddSecurityTransaction(spec SecurityTransactionSpec) (*SecurityTransaction, error) {
	res := rk.resolver()
	tx, err := rk.buildSecurityTransaction(res, spec)
	if err != nil {
		return nil, err
	}
	return tx, rk.add(res, tx)
}

// EditSecurityTransaction replaces the content of a buy or a sell.
func (rk *RecordKeeper) EditSecurityTransaction(id uuid.UUID, spec SecurityTransactionSpec) error {
	old, err := transactionOf[*SecurityTransaction](rk, id)
	if err != nil {
		return err
	}
	res := rk.resolver()
	tx, err := rk.buildSecurityTransaction(res, spec)
	if err != nil {
		return err
	}
	return rk.edit(res, old, tx)
}

// AddSecurityTransfer adds a transfer of shares between two security accounts.
func (rk *RecordKeeper) AddSecurityTransfer(spec SecurityTransferSpec) (*SecurityTransfer, error) {
	res := rk.resolver()
	tx, err := rk.buildSecurityTransfer(res, spec)
	if err != nil {
		return nil, err
	}
	return tx, rk.add(res, tx)
}

// EditSecurityTransfer replaces the content of a security transfer.
func (rk *RecordKeeper) EditSecurityTransfer(id uuid.UUID, spec SecurityTransferSpec) error {
	old, err := transactionOf[*SecurityTransfer](rk, id)
	if err != nil {
		return err
	}
	res := rk.resolver()
	tx, err := rk.buildSecurityTransfer(res, spec)
	if err != nil {
		return err
	}
	return rk.edit(res, old, tx)
}

// RemoveTransactions removes transactions as a whole. A refunded transaction
// can only be removed together with its refunds.
func (rk *RecordKeeper) RemoveTransactions(ids ...uuid.UUID) error {
	ch := rk.newChange()
	for _, id := range ids {
		tx, err := rk.Transaction(id)
		if err != nil {
			return err
		}
		ch.remove[tx] = true
	}
	if err := rk.apply(ch); err != nil {
		return err
	}
	rk.log.Debug().Int("count", len(ch.remove)).Msg("transactions removed")
	return nil
}

// AddTagsToTransactions tags transactions with their full amount, making missing tags.
// Refunds follow their refunded transaction: tagging an expense tags its refunds,
// refunds cannot be tagged directly.
func (rk *RecordKeeper) AddTagsToTransactions(ids []uuid.UUID, tags []string) error {
	return rk.retag(ids, tags, true)
}

// RemoveTagsFromTransactions removes tags from transactions and from the refunds of refunded ones.
func (rk *RecordKeeper) RemoveTagsFromTransactions(ids []uuid.UUID, tags []string) error {
	return rk.retag(ids, tags, false)
}

func (rk *RecordKeeper) retag(ids []uuid.UUID, names []string, add bool) error {
	res := rk.resolver()
	var tags []*Attribute
	for _, name := range names {
		var tag *Attribute
		var err error
		if add {
			tag, err = res.attribute(TagAttribute, name)
		} else {
			tag, err = rk.Attribute(TagAttribute, name)
		}
		if err != nil {
			return err
		}
		tags = append(tags, tag)
	}

	ch := rk.newChange()
	ch.resolver = res
	for _, id := range ids {
		tx, err := rk.Transaction(id)
		if err != nil {
			return err
		}
		if _, ok := tx.(*RefundTransaction); ok {
			return invalidf("tags of refund %s follow its refunded transaction", id)
		}
		ch.replace[tx] = retagged(tx, tags, add)
		if tx, ok := tx.(*CashTransaction); ok {
			for _, r := range rk.refunds[tx] {
				ch.replace[r] = retagged(r, tags, add)
			}
		}
	}
	return rk.apply(ch)
}

// retagged returns a copy of tx with tags added or removed. Tag splits added use the full amount.
func retagged(tx Transaction, tags []*Attribute, add bool) Transaction {
	c := cloneTx(tx)
	var s *splits
	switch c := c.(type) {
	case *CashTransaction:
		s = &c.splits
	case *RefundTransaction:
		s = &c.splits
	}
	for _, tag := range tags {
		switch {
		case s != nil && add:
			if _, ok := s.TagAmount(tag); !ok {
				s.tagSplits = append(s.tagSplits, TagSplit{Tag: tag, Amount: s.amount})
			}
		case s != nil:
			s.tagSplits = slices.DeleteFunc(s.tagSplits, func(ts TagSplit) bool { return ts.Tag == tag })
		case add:
			if b := c.base(); !slices.Contains(b.tags, tag) {
				b.tags = append(b.tags, tag)
			}
		default:
			b := c.base()
			b.tags = slices.DeleteFunc(b.tags, func(x *Attribute) bool { return x == tag })
		}
	}
	return c
}

// transactionOf returns the transaction of an identifier with the expected type.
func transactionOf[T Transaction](rk *RecordKeeper, id uuid.UUID) (T, error) {
	var zero T
	tx, err := rk.Transaction(id)
	if err != nil {
		return zero, err
	}
	t, ok := tx.(T)
	if !ok {
		return zero, invalidf("transaction %s is a %s transaction", id, tx.Kind())
	}
	return t, nil
}

// add adds a new transaction.
func (rk *RecordKeeper) add(res *resolver, tx Transaction) error {
	b := tx.base()
	b.id = uuid.New()
	b.seq = rk.seq + 1
	ch := rk.newChange()
	ch.resolver = res
	ch.add = append(ch.add, tx)
	return rk.apply(ch)
}

// edit replaces old by the content of tx.
func (rk *RecordKeeper) edit(res *resolver, old, tx Transaction) error {
	b := tx.base()
	b.id, b.seq = old.ID(), old.base().seq
	ch := rk.newChange()
	ch.resolver = res
	ch.replace[old] = tx
	return rk.apply(ch)
}

// newBase validates and returns the common fields of a transaction.
func newBase(res *resolver, on date.Date, description string, tags []string) (baseTx, error) {
	if on.IsZero() {
		return baseTx{}, invalidf("transaction needs a date")
	}
	if n := utf8.RuneCountInString(description); n > maxDescriptionLength {
		return baseTx{}, invalidf("description must be at most %d characters, got %d", maxDescriptionLength, n)
	}
	b := baseTx{on: on, description: description}
	for _, name := range tags {
		tag, err := res.attribute(TagAttribute, name)
		if err != nil {
			return baseTx{}, err
		}
		if slices.Contains(b.tags, tag) {
			return baseTx{}, invalidf("duplicate tag %s", tag.name)
		}
		b.tags = append(b.tags, tag)
	}
	return b, nil
}

// buildTagSplits resolves tag splits, each amount must be positive and at most max
// (at least zero when refund is set).
func buildTagSplits(cur *Currency, specs []Split, max CashAmount, tag func(string) (*Attribute, error), refund bool) ([]TagSplit, error) {
	var tagSplits []TagSplit
	for _, s := range specs {
		t, err := tag(s.Name)
		if err != nil {
			return nil, err
		}
		amount, err := amountIn(cur, s.Amount, "tag "+t.name)
		if err != nil {
			return nil, err
		}
		if amount.IsNegative() || (!refund && amount.IsZero()) {
			return nil, invalidf("tag %s amount must be positive, got %s", t.name, amount)
		}
		if !refund && amount.Compare(max) > 0 {
			return nil, invalidf("tag %s amount %s exceeds the transaction amount %s", t.name, amount, max)
		}
		if slices.ContainsFunc(tagSplits, func(ts TagSplit) bool { return ts.Tag == t }) {
			return nil, invalidf("duplicate tag %s", t.name)
		}
		tagSplits = append(tagSplits, TagSplit{Tag: t, Amount: amount})
	}
	return tagSplits, nil
}

func (rk *RecordKeeper) buildCashTransaction(res *resolver, spec CashTransactionSpec) (*CashTransaction, error) {
	b, err := newBase(res, spec.Date, spec.Description, nil)
	if err != nil {
		return nil, err
	}
	account, err := rk.CashAccount(spec.Account)
	if err != nil {
		return nil, err
	}
	if spec.Type != IncomeTransaction && spec.Type != ExpenseTransaction {
		return nil, invalidf("unknown cash transaction type %d", int(spec.Type))
	}
	tx := &CashTransaction{baseTx: b, account: account, typ: spec.Type}
	if tx.payee, err = res.attribute(PayeeAttribute, spec.Payee); err != nil {
		return nil, err
	}
	if len(spec.Categories) == 0 {
		return nil, invalidf("cash transaction needs at least one category")
	}
	categoryType := Income
	if spec.Type == ExpenseTransaction {
		categoryType = Expense
	}
	tx.amount = account.currency.Zero()
	for _, s := range spec.Categories {
		c, err := res.category(s.Name, categoryType)
		if err != nil {
			return nil, err
		}
		if !c.accepts(spec.Type) {
			return nil, invalidf("category %s of type %s cannot split an %s", c.Path(), c.typ, spec.Type)
		}
		amount, err := amountIn(account.currency, s.Amount, "category "+c.Path())
		if err != nil {
			return nil, err
		}
		if !amount.IsPositive() {
			return nil, invalidf("category %s amount must be positive, got %s", c.Path(), amount)
		}
		if _, dup := tx.CategoryAmount(c); dup {
			return nil, invalidf("duplicate category %s", c.Path())
		}
		tx.categories = append(tx.categories, CategorySplit{Category: c, Amount: amount})
		tx.amount = tx.amount.Add(amount)
	}
	tag := func(name string) (*Attribute, error) { return res.attribute(TagAttribute, name) }
	if tx.tagSplits, err = buildTagSplits(account.currency, spec.Tags, tx.amount, tag, false); err != nil {
		return nil, err
	}
	return tx, nil
}

func (rk *RecordKeeper) buildCashTransfer(res *resolver, spec CashTransferSpec) (*CashTransfer, error) {
	b, err := newBase(res, spec.Date, spec.Description, spec.Tags)
	if err != nil {
		return nil, err
	}
	tx := &CashTransfer{baseTx: b}
	if tx.sender, err = rk.CashAccount(spec.Sender); err != nil {
		return nil, err
	}
	if tx.recipient, err = rk.CashAccount(spec.Recipient); err != nil {
		return nil, err
	}
	if tx.sender == tx.recipient {
		return nil, invalidf("transfer sender and recipient are both %s", tx.sender.Path())
	}
	if tx.sent, err = amountIn(tx.sender.currency, spec.AmountSent, "amount sent"); err != nil {
		return nil, err
	}
	if tx.received, err = amountIn(tx.recipient.currency, spec.AmountReceived, "amount received"); err != nil {
		return nil, err
	}
	if !tx.sent.IsPositive() || !tx.received.IsPositive() {
		return nil, invalidf("transfer amounts must be positive, got %s and %s", tx.sent, tx.received)
	}
	return tx, nil
}

func (rk *RecordKeeper) buildRefund(res *resolver, spec RefundSpec) (*RefundTransaction, error) {
	b, err := newBase(res, spec.Date, spec.Description, nil)
	if err != nil {
		return nil, err
	}
	original, err := transactionOf[*CashTransaction](rk, spec.Refunded)
	if err != nil {
		return nil, err
	}
	if original.typ != ExpenseTransaction {
		return nil, invalidf("only expenses can be refunded, %s is an %s", original.id, original.typ)
	}
	tx := &RefundTransaction{baseTx: b, refunded: original}
	if tx.account, err = rk.CashAccount(spec.Account); err != nil {
		return nil, err
	}
	if tx.payee, err = res.attribute(PayeeAttribute, spec.Payee); err != nil {
		return nil, err
	}
	cur := tx.account.currency
	tx.amount = cur.Zero()
	for _, s := range spec.Categories {
		c, err := rk.Category(s.Name)
		if err != nil {
			return nil, err
		}
		amount, err := amountIn(cur, s.Amount, "category "+c.Path())
		if err != nil {
			return nil, err
		}
		if amount.IsNegative() {
			return nil, invalidf("refunded amount of category %s must not be negative, got %s", c.Path(), amount)
		}
		if _, dup := tx.CategoryAmount(c); dup {
			return nil, invalidf("duplicate category %s", c.Path())
		}
		tx.categories = append(tx.categories, CategorySplit{Category: c, Amount: amount})
		tx.amount = tx.amount.Add(amount)
	}
	if !tx.amount.IsPositive() {
		return nil, invalidf("refunded amount must be positive, got %s", tx.amount)
	}
	tag := func(name string) (*Attribute, error) { return rk.Attribute(TagAttribute, name) }
	if tx.tagSplits, err = buildTagSplits(cur, spec.Tags, tx.amount, tag, true); err != nil {
		return nil, err
	}
	return tx, nil
}

func (rk *RecordKeeper) buildSecurityTransaction(res *resolver, spec SecurityTransactionSpec) (*SecurityTransaction, error) {
	b, err := newBase(res, spec.Date, spec.Description, spec.Tags)
	if err != nil {
		return nil, err
	}
	if spec.Type != Buy && spec.Type != Sell && spec.Type != Dividend {
		return nil, invalidf("unknown security transaction type %d", int(spec.Type))
	}
	tx := &SecurityTransaction{baseTx: b, typ: spec.Type}
	if tx.securityAccount, err = rk.SecurityAccount(spec.SecurityAccount); err != nil {
		return nil, err
	}
	if tx.cashAccount, err = rk.CashAccount(spec.CashAccount); err != nil {
		return nil, err
	}
	if tx.security, err = rk.Security(spec.Security); err != nil {
		return nil, err
	}
	if tx.cashAccount.currency != tx.security.currency {
		return nil, invalidf("cash account %s in %s cannot trade %s in %s",
			tx.cashAccount.Path(), tx.cashAccount.currency, tx.security.name, tx.security.currency)
	}
	if tx.shares, err = sharesOf(tx.security, spec.Shares); err != nil {
		return nil, err
	}
	if spec.PricePerShare.IsNegative() {
		return nil, invalidf("price per share must not be negative, got %s", spec.PricePerShare)
	}
	if spec.Type == Dividend && spec.PricePerShare.IsZero() {
		return nil, invalidf("dividend of %s pays nothing", tx.security.name)
	}
	tx.price = NewCashAmount(spec.PricePerShare, tx.security.currency)
	return tx, nil
}

func (rk *RecordKeeper) buildSecurityTransfer(res *resolver, spec SecurityTransferSpec) (*SecurityTransfer, error) {
	b, err := newBase(res, spec.Date, spec.Description, spec.Tags)
	if err != nil {
		return nil, err
	}
	tx := &SecurityTransfer{baseTx: b}
	if tx.sender, err = rk.SecurityAccount(spec.Sender); err != nil {
		return nil, err
	}
	if tx.recipient, err = rk.SecurityAccount(spec.Recipient); err != nil {
		return nil, err
	}
	if tx.sender == tx.recipient {
		return nil, invalidf("transfer sender and recipient are both %s", tx.sender.Path())
	}
	if tx.security, err = rk.Security(spec.Security); err != nil {
		return nil, err
	}
	if tx.shares, err = sharesOf(tx.security, spec.Shares); err != nil {
		return nil, err
	}
	return tx, nil
}

// sharesOf checks a positive number of shares quantized to the security decimals.
func sharesOf(sec *Security, shares decimal.Decimal) (Quantity, error) {
	q := Quantity{value: shares}
	if !q.IsPositive() {
		return q, invalidf("shares of %s must be positive, got %s", sec.name, q)
	}
	if !q.fits(sec.sharesDecimals) {
		return q, invalidf("shares of %s have at most %d decimals, got %s", sec.name, sec.sharesDecimals, q)
	}
	return q, nil
}

// cloneTx returns a copy of a transaction that shares no slice with it.
func cloneTx(tx Transaction) Transaction {
	switch tx := tx.(type) {
	case *CashTransaction:
		c := *tx
		c.tags = slices.Clone(tx.tags)
		c.categories = slices.Clone(tx.categories)
		c.tagSplits = slices.Clone(tx.tagSplits)
		return &c
	case *CashTransfer:
		c := *tx
		c.tags = slices.Clone(tx.tags)
		return &c
	case *RefundTransaction:
		c := *tx
		c.tags = slices.Clone(tx.tags)
		c.categories = slices.Clone(tx.categories)
		c.tagSplits = slices.Clone(tx.tagSplits)
		return &c
	case *SecurityTransaction:
		c := *tx
		c.tags = slices.Clone(tx.tags)
		return &c
	case *SecurityTransfer:
		c := *tx
		c.tags = slices.Clone(tx.tags)
		return &c
	default:
		panic("unknown transaction type")
	}
}
