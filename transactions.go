package finance

import (
	"fmt"
	"slices"
	"strings"

	"github.com/etnz/finance/date"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Kind is the discriminator of the closed set of transaction types.
type Kind int

// Transaction kinds.
const (
	KindCash             Kind = iota // *CashTransaction
	KindTransfer                     // *CashTransfer
	KindRefund                       // *RefundTransaction
	KindSecurity                     // *SecurityTransaction
	KindSecurityTransfer             // *SecurityTransfer
)

func (k Kind) String() string {
	switch k {
	case KindCash:
		return "cash"
	case KindTransfer:
		return "transfer"
	case KindRefund:
		return "refund"
	case KindSecurity:
		return "security"
	case KindSecurityTransfer:
		return "security-transfer"
	default:
		panic(fmt.Sprintf("unknown transaction kind %d", int(k)))
	}
}

// ParseKind parses a transaction kind name.
func ParseKind(s string) (Kind, error) {
	for k := KindCash; k <= KindSecurityTransfer; k++ {
		if strings.EqualFold(k.String(), strings.TrimSpace(s)) {
			return k, nil
		}
	}
	return KindCash, invalidf("unknown transaction kind %q", s)
}

// Transaction is a ledger event. The set of implementations is closed:
// *CashTransaction, *CashTransfer, *RefundTransaction, *SecurityTransaction and *SecurityTransfer.
//
// Transactions are created, edited and removed through the RecordKeeper only.
type Transaction interface {
	ID() uuid.UUID
	Kind() Kind
	Date() date.Date
	Description() string
	// Tags returns the tags of the transaction.
	Tags() []*Attribute
	// Accounts returns the accounts affected by the transaction.
	Accounts() []Account
	base() *baseTx
}

// baseTx holds the fields common to every transaction.
type baseTx struct {
	id          uuid.UUID
	seq         int64 // insertion order, breaks ties between same day transactions
	on          date.Date
	description string
	tags        []*Attribute // plain tags, for kinds without tag splits
}

func (t *baseTx) ID() uuid.UUID       { return t.id }
func (t *baseTx) Date() date.Date     { return t.on }
func (t *baseTx) Description() string { return t.description }
func (t *baseTx) Tags() []*Attribute  { return slices.Clone(t.tags) }
func (t *baseTx) base() *baseTx       { return t }

// compareTx orders transactions chronologically, then by insertion order.
func compareTx(a, b Transaction) int {
	if c := a.Date().Compare(b.Date()); c != 0 {
		return c
	}
	sa, sb := a.base().seq, b.base().seq
	switch {
	case sa < sb:
		return -1
	case sa > sb:
		return 1
	}
	return 0
}

// CashTransactionType is the direction of a CashTransaction.
type CashTransactionType int

const (
	IncomeTransaction CashTransactionType = iota
	ExpenseTransaction
)

func (t CashTransactionType) String() string {
	if t == IncomeTransaction {
		return "income"
	}
	return "expense"
}

// ParseCashTransactionType parses "income" or "expense".
func ParseCashTransactionType(s string) (CashTransactionType, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "income":
		return IncomeTransaction, nil
	case "expense":
		return ExpenseTransaction, nil
	}
	return IncomeTransaction, invalidf("unknown cash transaction type %q", s)
}

// CategorySplit is the part of a transaction amount assigned to a category.
type CategorySplit struct {
	Category *Category
	Amount   CashAmount
}

// TagSplit is the part of a transaction amount tagged with a tag.
type TagSplit struct {
	Tag    *Attribute
	Amount CashAmount
}

// splits holds the payee, category and tag splits of cash and refund transactions.
type splits struct {
	payee      *Attribute
	categories []CategorySplit
	tagSplits  []TagSplit
	amount     CashAmount // sum of the category splits
}

func (s *splits) Payee() *Attribute  { return s.payee }
func (s *splits) Amount() CashAmount { return s.amount }

// Categories returns the category splits, in order.
func (s *splits) Categories() []CategorySplit { return slices.Clone(s.categories) }

// TagSplits returns the tag splits, in order.
func (s *splits) TagSplits() []TagSplit { return slices.Clone(s.tagSplits) }

// Tags returns the tags of the tag splits.
func (s *splits) Tags() []*Attribute {
	tags := make([]*Attribute, len(s.tagSplits))
	for i, ts := range s.tagSplits {
		tags[i] = ts.Tag
	}
	return tags
}

// CategoryAmount returns the amount split to a category, and false if absent.
func (s *splits) CategoryAmount(c *Category) (CashAmount, bool) {
	for _, cs := range s.categories {
		if cs.Category == c {
			return cs.Amount, true
		}
	}
	return CashAmount{}, false
}

// TagAmount returns the amount tagged with a tag, and false if absent.
func (s *splits) TagAmount(tag *Attribute) (CashAmount, bool) {
	for _, ts := range s.tagSplits {
		if ts.Tag == tag {
			return ts.Amount, true
		}
	}
	return CashAmount{}, false
}

// CashTransaction is an income or an expense on a cash account.
type CashTransaction struct {
	baseTx
	splits
	account *CashAccount
	typ     CashTransactionType
}

func (t *CashTransaction) Kind() Kind                { return KindCash }
func (t *CashTransaction) Account() *CashAccount     { return t.account }
func (t *CashTransaction) Type() CashTransactionType { return t.typ }
func (t *CashTransaction) Accounts() []Account       { return []Account{t.account} }
func (t *CashTransaction) Tags() []*Attribute        { return t.splits.Tags() }

func (t *CashTransaction) String() string {
	return fmt.Sprintf("%s %s %s %s", t.on, t.typ, t.account.Path(), t.amount)
}

// CashTransfer moves money between two cash accounts, possibly in different currencies.
type CashTransfer struct {
	baseTx
	sender, recipient *CashAccount
	sent, received    CashAmount
}

func (t *CashTransfer) Kind() Kind                 { return KindTransfer }
func (t *CashTransfer) Sender() *CashAccount       { return t.sender }
func (t *CashTransfer) Recipient() *CashAccount    { return t.recipient }
func (t *CashTransfer) AmountSent() CashAmount     { return t.sent }
func (t *CashTransfer) AmountReceived() CashAmount { return t.received }
func (t *CashTransfer) Accounts() []Account        { return []Account{t.sender, t.recipient} }

func (t *CashTransfer) String() string {
	return fmt.Sprintf("%s transfer %s %s -> %s %s", t.on, t.sender.Path(), t.sent, t.recipient.Path(), t.received)
}

// RefundTransaction gives back part of an expense.
type RefundTransaction struct {
	baseTx
	splits
	account  *CashAccount
	refunded *CashTransaction
}

func (t *RefundTransaction) Kind() Kind                 { return KindRefund }
func (t *RefundTransaction) Account() *CashAccount      { return t.account }
func (t *RefundTransaction) Refunded() *CashTransaction { return t.refunded }
func (t *RefundTransaction) Accounts() []Account        { return []Account{t.account} }
func (t *RefundTransaction) Tags() []*Attribute         { return t.splits.Tags() }

func (t *RefundTransaction) String() string {
	return fmt.Sprintf("%s refund %s %s", t.on, t.account.Path(), t.amount)
}

// SecurityTransactionType is the kind of a SecurityTransaction.
type SecurityTransactionType int

const (
	Buy SecurityTransactionType = iota
	Sell
	// Dividend pays an amount per share into the cash account, shares do not move.
	Dividend
)

func (t SecurityTransactionType) String() string {
	switch t {
	case Buy:
		return "buy"
	case Sell:
		return "sell"
	case Dividend:
		return "dividend"
	}
	return fmt.Sprintf("SecurityTransactionType(%d)", int(t))
}

// ParseSecurityTransactionType parses "buy", "sell" or "dividend".
func ParseSecurityTransactionType(s string) (SecurityTransactionType, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "buy":
		return Buy, nil
	case "sell":
		return Sell, nil
	case "dividend":
		return Dividend, nil
	}
	return Buy, invalidf("unknown security transaction type %q", s)
}

// SecurityTransaction buys or sells shares of a security, paid from a cash
// account. A Dividend pays PricePerShare for each share into the cash account.
type SecurityTransaction struct {
	baseTx
	typ             SecurityTransactionType
	securityAccount *SecurityAccount
	cashAccount     *CashAccount
	security        *Security
	shares          Quantity
	price           CashAmount // per share
}

func (t *SecurityTransaction) Kind() Kind                        { return KindSecurity }
func (t *SecurityTransaction) Type() SecurityTransactionType     { return t.typ }
func (t *SecurityTransaction) SecurityAccount() *SecurityAccount { return t.securityAccount }
func (t *SecurityTransaction) CashAccount() *CashAccount         { return t.cashAccount }
func (t *SecurityTransaction) Security() *Security               { return t.security }
func (t *SecurityTransaction) Shares() Quantity                  { return t.shares }
func (t *SecurityTransaction) PricePerShare() CashAmount         { return t.price }
func (t *SecurityTransaction) Accounts() []Account               { return []Account{t.cashAccount, t.securityAccount} }

// Amount returns the cash amount of the transaction: shares times price.
func (t *SecurityTransaction) Amount() CashAmount { return t.price.Mul(t.shares.Decimal()) }

func (t *SecurityTransaction) String() string {
	return fmt.Sprintf("%s %s %s %s @ %s", t.on, t.typ, t.shares, t.security.name, t.price)
}

// SecurityTransfer moves shares of a security between two security accounts.
type SecurityTransfer struct {
	baseTx
	sender, recipient *SecurityAccount
	security          *Security
	shares            Quantity
}

func (t *SecurityTransfer) Kind() Kind                  { return KindSecurityTransfer }
func (t *SecurityTransfer) Sender() *SecurityAccount    { return t.sender }
func (t *SecurityTransfer) Recipient() *SecurityAccount { return t.recipient }
func (t *SecurityTransfer) Security() *Security         { return t.security }
func (t *SecurityTransfer) Shares() Quantity            { return t.shares }
func (t *SecurityTransfer) Accounts() []Account         { return []Account{t.sender, t.recipient} }

func (t *SecurityTransfer) String() string {
	return fmt.Sprintf("%s transfer %s %s %s -> %s", t.on, t.shares, t.security.name, t.sender.Path(), t.recipient.Path())
}

// CashEffect returns the amount a transaction adds to a cash account, in the
// account currency. It is zero for unrelated accounts.
func CashEffect(tx Transaction, acc *CashAccount) CashAmount {
	switch tx := tx.(type) {
	case *CashTransaction:
		if tx.account != acc {
			break
		}
		if tx.typ == IncomeTransaction {
			return tx.amount
		}
		return tx.amount.Neg()
	case *CashTransfer:
		effect := acc.currency.Zero()
		if tx.sender == acc {
			effect = effect.Sub(tx.sent)
		}
		if tx.recipient == acc {
			effect = effect.Add(tx.received)
		}
		return effect
	case *RefundTransaction:
		if tx.account == acc {
			return tx.amount
		}
	case *SecurityTransaction:
		if tx.cashAccount != acc {
			break
		}
		if tx.typ == Buy {
			return tx.Amount().Neg()
		}
		// sales and dividends
		return tx.Amount()
	case *SecurityTransfer:
	default:
		panic(fmt.Sprintf("unknown transaction type %T", tx))
	}
	return acc.currency.Zero()
}

// ShareEffect returns the number of shares of sec a transaction adds to a security account.
func ShareEffect(tx Transaction, acc *SecurityAccount, sec *Security) Quantity {
	switch tx := tx.(type) {
	case *SecurityTransaction:
		if tx.securityAccount != acc || tx.security != sec {
			break
		}
		switch tx.typ {
		case Buy:
			return tx.shares
		case Sell:
			return tx.shares.Neg()
		}
	case *SecurityTransfer:
		if tx.security != sec {
			break
		}
		var effect Quantity
		if tx.sender == acc {
			effect = effect.Sub(tx.shares)
		}
		if tx.recipient == acc {
			effect = effect.Add(tx.shares)
		}
		return effect
	case *CashTransaction, *CashTransfer, *RefundTransaction:
	default:
		panic(fmt.Sprintf("unknown transaction type %T", tx))
	}
	return Quantity{}
}

// txSecurity returns the security of a security related transaction, or nil.
func txSecurity(tx Transaction) *Security {
	switch tx := tx.(type) {
	case *SecurityTransaction:
		return tx.security
	case *SecurityTransfer:
		return tx.security
	}
	return nil
}

// Payee returns the payee of cash and refund transactions, or nil.
func Payee(tx Transaction) *Attribute {
	switch tx := tx.(type) {
	case *CashTransaction:
		return tx.payee
	case *RefundTransaction:
		return tx.payee
	}
	return nil
}

// SignedAmount returns the signed amount of cash, refund and dividend transactions:
// positive for incomes, refunds and dividends, negative for expenses. ok is false
// for other kinds.
func SignedAmount(tx Transaction) (amount CashAmount, ok bool) {
	switch tx := tx.(type) {
	case *CashTransaction:
		if tx.typ == ExpenseTransaction {
			return tx.amount.Neg(), true
		}
		return tx.amount, true
	case *RefundTransaction:
		return tx.amount, true
	case *SecurityTransaction:
		if tx.typ == Dividend {
			return tx.Amount(), true
		}
	}
	return CashAmount{}, false
}

// Split is a (name, amount) pair used to describe category and tag splits by name.
type Split struct {
	Name   string
	Amount decimal.Decimal
}

// TransactionAmount returns the unsigned amount of a transaction in its own currency:
// the amount sent for transfers and the shares value at the latest price known on the
// transaction date for security transfers.
func TransactionAmount(tx Transaction) CashAmount {
	switch tx := tx.(type) {
	case *CashTransaction:
		return tx.amount
	case *CashTransfer:
		return tx.sent
	case *RefundTransaction:
		return tx.amount
	case *SecurityTransaction:
		return tx.Amount()
	case *SecurityTransfer:
		return tx.security.Price(tx.on).Mul(tx.shares.Decimal())
	default:
		panic(fmt.Sprintf("unknown transaction type %T", tx))
	}
}

// currencies returns the currencies a transaction involves.
func currencies(tx Transaction) []*Currency {
	var list []*Currency
	for _, a := range tx.Accounts() {
		if a, ok := a.(*CashAccount); ok && !slices.Contains(list, a.currency) {
			list = append(list, a.currency)
		}
	}
	if s := txSecurity(tx); s != nil && !slices.Contains(list, s.currency) {
		list = append(list, s.currency)
	}
	return list
}
