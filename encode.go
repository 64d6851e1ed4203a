package finance

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"slices"

	"github.com/etnz/finance/date"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// A ledger file is a JSONL stream: one object per line, each with a
// "datatype" discriminator. Cross references use currency codes, names,
// paths and transaction UUIDs.
//
// Encode writes entities in dependency order: currencies, exchange rates,
// securities, attributes, categories, accounts then transactions in
// chronological order. Decode accepts lines in any order and replays them
// through the RecordKeeper operations in that same order, so a decoded
// ledger satisfies every invariant.

const (
	dtCurrency            = "Currency"
	dtBaseCurrency        = "BaseCurrency"
	dtExchangeRate        = "ExchangeRate"
	dtSecurity            = "Security"
	dtTag                 = "Tag"
	dtPayee               = "Payee"
	dtCategory            = "Category"
	dtAccountGroup        = "AccountGroup"
	dtCashAccount         = "CashAccount"
	dtSecurityAccount     = "SecurityAccount"
	dtCashTransaction     = "CashTransaction"
	dtCashTransfer        = "CashTransfer"
	dtRefundTransaction   = "RefundTransaction"
	dtSecurityTransaction = "SecurityTransaction"
	dtSecurityTransfer    = "SecurityTransfer"
)

// decodeRank orders datatypes by dependency.
var decodeRank = map[string]int{
	dtCurrency:            0,
	dtBaseCurrency:        1,
	dtExchangeRate:        2,
	dtSecurity:            3,
	dtTag:                 4,
	dtPayee:               4,
	dtCategory:            5,
	dtAccountGroup:        6,
	dtCashAccount:         6,
	dtSecurityAccount:     6,
	dtCashTransaction:     7,
	dtCashTransfer:        7,
	dtRefundTransaction:   7,
	dtSecurityTransaction: 7,
	dtSecurityTransfer:    7,
}

// txRecord holds the fields common to every transaction record.
type txRecord struct {
	Datatype    string    `json:"datatype"`
	UUID        uuid.UUID `json:"uuid"`
	Date        date.Date `json:"date"`
	Description string    `json:"description,omitempty"`
}

type splitRecord struct {
	Name   string          `json:"name"`
	Amount decimal.Decimal `json:"amount"`
}

func splitRecords[T any](splits []T, f func(T) splitRecord) []splitRecord {
	records := make([]splitRecord, 0, len(splits))
	for _, s := range splits {
		records = append(records, f(s))
	}
	return records
}

func (r splitRecord) split() Split { return Split{Name: r.Name, Amount: r.Amount} }

func splitsOf(records []splitRecord) []Split {
	splits := make([]Split, len(records))
	for i, r := range records {
		splits[i] = r.split()
	}
	return splits
}

func names(attributes []*Attribute) []string {
	out := make([]string, len(attributes))
	for i, a := range attributes {
		out[i] = a.name
	}
	return out
}

// historyRecord returns a history as a date keyed map, marshaled in chronological order.
func historyRecord(h *date.History[decimal.Decimal]) map[string]decimal.Decimal {
	m := make(map[string]decimal.Decimal, h.Len())
	for on, v := range h.Values() {
		m[on.String()] = v
	}
	return m
}

// Encode writes the whole ledger to w.
func Encode(w io.Writer, rk *RecordKeeper) error {
	bw := bufio.NewWriter(w)
	emit := func(o *jsonObjectWriter) error {
		b, err := o.MarshalJSON()
		if err != nil {
			return err
		}
		bw.Write(b)
		return bw.WriteByte('\n')
	}
	var lines []*jsonObjectWriter
	add := func(datatype string) *jsonObjectWriter {
		o := new(jsonObjectWriter)
		o.Append("datatype", datatype)
		lines = append(lines, o)
		return o
	}

	for _, c := range rk.currencies {
		add(dtCurrency).Append("code", c.code).Append("places", c.places)
	}
	if rk.base != nil {
		add(dtBaseCurrency).Append("code", rk.base.code)
	}
	for _, r := range rk.rates {
		add(dtExchangeRate).
			Append("primary", r.primary.code).
			Append("secondary", r.secondary.code).
			Optional("rates", historyRecord(&r.history))
	}
	for _, s := range rk.securities {
		add(dtSecurity).
			Append("uuid", s.id).
			Append("name", s.name).
			Optional("symbol", s.symbol).
			Append("type", s.typ).
			Append("currency", s.currency.code).
			Append("shares_decimals", s.sharesDecimals).
			Optional("prices", historyRecord(&s.prices))
	}
	for _, a := range rk.tags {
		add(dtTag).Append("uuid", a.id).Append("name", a.name)
	}
	for _, a := range rk.payees {
		add(dtPayee).Append("uuid", a.id).Append("name", a.name)
	}
	for _, c := range rk.Categories() {
		add(dtCategory).Append("uuid", c.id).Append("path", c.Path()).Append("type", c.typ.String())
	}
	var items func([]AccountItem)
	items = func(list []AccountItem) {
		for _, item := range list {
			switch item := item.(type) {
			case *AccountGroup:
				add(dtAccountGroup).Append("path", item.Path())
				items(item.children)
			case *CashAccount:
				add(dtCashAccount).
					Append("uuid", item.id).
					Append("path", item.Path()).
					Append("currency", item.currency.code).
					Append("initial_balance", item.initialBalance.value)
			case *SecurityAccount:
				add(dtSecurityAccount).Append("uuid", item.id).Append("path", item.Path())
			}
		}
	}
	items(rk.rootItems)

	for _, tx := range rk.transactions {
		o := new(jsonObjectWriter)
		encodeTransaction(o, tx)
		lines = append(lines, o)
	}

	for _, o := range lines {
		if err := emit(o); err != nil {
			return err
		}
	}
	return bw.Flush()
}

func encodeTransaction(o *jsonObjectWriter, tx Transaction) {
	b := tx.base()
	head := txRecord{UUID: b.id, Date: b.on, Description: b.description}
	category := func(cs CategorySplit) splitRecord { return splitRecord{cs.Category.Path(), cs.Amount.value} }
	tag := func(ts TagSplit) splitRecord { return splitRecord{ts.Tag.name, ts.Amount.value} }
	switch tx := tx.(type) {
	case *CashTransaction:
		head.Datatype = dtCashTransaction
		o.EmbedFrom(head).
			Append("account", tx.account.Path()).
			Append("type", tx.typ.String()).
			Append("payee", tx.payee.name).
			Append("categories", splitRecords(tx.categories, category)).
			Optional("tags", splitRecords(tx.tagSplits, tag))
	case *CashTransfer:
		head.Datatype = dtCashTransfer
		o.EmbedFrom(head).
			Append("sender", tx.sender.Path()).
			Append("recipient", tx.recipient.Path()).
			Append("amount_sent", tx.sent.value).
			Append("amount_received", tx.received.value).
			Optional("tags", names(tx.tags))
	case *RefundTransaction:
		head.Datatype = dtRefundTransaction
		o.EmbedFrom(head).
			Append("refunded", tx.refunded.id).
			Append("account", tx.account.Path()).
			Append("payee", tx.payee.name).
			Append("categories", splitRecords(tx.categories, category)).
			Optional("tags", splitRecords(tx.tagSplits, tag))
	case *SecurityTransaction:
		head.Datatype = dtSecurityTransaction
		o.EmbedFrom(head).
			Append("type", tx.typ.String()).
			Append("security_account", tx.securityAccount.Path()).
			Append("cash_account", tx.cashAccount.Path()).
			Append("security", tx.security.name).
			Append("shares", tx.shares).
			Append("price_per_share", tx.price.value).
			Optional("tags", names(tx.tags))
	case *SecurityTransfer:
		head.Datatype = dtSecurityTransfer
		o.EmbedFrom(head).
			Append("sender", tx.sender.Path()).
			Append("recipient", tx.recipient.Path()).
			Append("security", tx.security.name).
			Append("shares", tx.shares).
			Optional("tags", names(tx.tags))
	default:
		panic(fmt.Sprintf("unknown transaction type %T", tx))
	}
}

type line struct {
	n        int
	datatype string
	raw      []byte
}

// Decode reads a ledger written by Encode.
func Decode(r io.Reader) (*RecordKeeper, error) {
	var lines []line
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	for n := 1; scanner.Scan(); n++ {
		raw := scanner.Bytes()
		if len(raw) == 0 {
			continue
		}
		var identifier struct {
			Datatype string `json:"datatype"`
		}
		if err := json.Unmarshal(raw, &identifier); err != nil {
			return nil, fmt.Errorf("line %d: could not identify datatype: %w", n, err)
		}
		if _, ok := decodeRank[identifier.Datatype]; !ok {
			return nil, fmt.Errorf("line %d: unknown datatype %q", n, identifier.Datatype)
		}
		lines = append(lines, line{n: n, datatype: identifier.Datatype, raw: slices.Clone(raw)})
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	slices.SortStableFunc(lines, func(a, b line) int { return decodeRank[a.datatype] - decodeRank[b.datatype] })

	rk := New()
	for _, l := range lines {
		if err := rk.decodeLine(l); err != nil {
			return nil, fmt.Errorf("line %d: %s: %w", l.n, l.datatype, err)
		}
	}
	return rk, nil
}

func (rk *RecordKeeper) decodeLine(l line) error {
	switch l.datatype {
	case dtCurrency:
		var rec struct {
			Code   string `json:"code"`
			Places int32  `json:"places"`
		}
		if err := json.Unmarshal(l.raw, &rec); err != nil {
			return err
		}
		_, err := rk.AddCurrency(rec.Code, rec.Places)
		return err

	case dtBaseCurrency:
		var rec struct {
			Code string `json:"code"`
		}
		if err := json.Unmarshal(l.raw, &rec); err != nil {
			return err
		}
		return rk.SetBaseCurrency(rec.Code)

	case dtExchangeRate:
		var rec struct {
			Primary   string                     `json:"primary"`
			Secondary string                     `json:"secondary"`
			Rates     map[string]decimal.Decimal `json:"rates"`
		}
		if err := json.Unmarshal(l.raw, &rec); err != nil {
			return err
		}
		r, err := rk.AddExchangeRate(rec.Primary, rec.Secondary)
		if err != nil {
			return err
		}
		return decodeHistory(rec.Rates, func(on date.Date, v decimal.Decimal) error { return r.setRate(on, v) })

	case dtSecurity:
		var rec struct {
			UUID           uuid.UUID                  `json:"uuid"`
			Name           string                     `json:"name"`
			Symbol         string                     `json:"symbol"`
			Type           string                     `json:"type"`
			Currency       string                     `json:"currency"`
			SharesDecimals int32                      `json:"shares_decimals"`
			Prices         map[string]decimal.Decimal `json:"prices"`
		}
		if err := json.Unmarshal(l.raw, &rec); err != nil {
			return err
		}
		s, err := rk.AddSecurity(SecuritySpec{Name: rec.Name, Symbol: rec.Symbol, Type: rec.Type, Currency: rec.Currency, SharesDecimals: rec.SharesDecimals})
		if err != nil {
			return err
		}
		s.id = keepID(s.id, rec.UUID)
		return decodeHistory(rec.Prices, s.setPrice)

	case dtTag, dtPayee:
		var rec struct {
			UUID uuid.UUID `json:"uuid"`
			Name string    `json:"name"`
		}
		if err := json.Unmarshal(l.raw, &rec); err != nil {
			return err
		}
		kind := TagAttribute
		if l.datatype == dtPayee {
			kind = PayeeAttribute
		}
		a, err := rk.AddAttribute(kind, rec.Name)
		if err != nil {
			return err
		}
		a.id = keepID(a.id, rec.UUID)
		return nil

	case dtCategory:
		var rec struct {
			UUID uuid.UUID `json:"uuid"`
			Path string    `json:"path"`
			Type string    `json:"type"`
		}
		if err := json.Unmarshal(l.raw, &rec); err != nil {
			return err
		}
		typ, err := ParseCategoryType(rec.Type)
		if err != nil {
			return err
		}
		c, err := rk.AddCategory(rec.Path, typ)
		if err != nil {
			return err
		}
		c.id = keepID(c.id, rec.UUID)
		return nil

	case dtAccountGroup:
		var rec struct {
			Path string `json:"path"`
		}
		if err := json.Unmarshal(l.raw, &rec); err != nil {
			return err
		}
		_, err := rk.AddAccountGroup(rec.Path, -1)
		return err

	case dtCashAccount:
		var rec struct {
			UUID           uuid.UUID       `json:"uuid"`
			Path           string          `json:"path"`
			Currency       string          `json:"currency"`
			InitialBalance decimal.Decimal `json:"initial_balance"`
		}
		if err := json.Unmarshal(l.raw, &rec); err != nil {
			return err
		}
		a, err := rk.AddCashAccount(rec.Path, rec.Currency, rec.InitialBalance, -1)
		if err != nil {
			return err
		}
		a.id = keepID(a.id, rec.UUID)
		return nil

	case dtSecurityAccount:
		var rec struct {
			UUID uuid.UUID `json:"uuid"`
			Path string    `json:"path"`
		}
		if err := json.Unmarshal(l.raw, &rec); err != nil {
			return err
		}
		a, err := rk.AddSecurityAccount(rec.Path, -1)
		if err != nil {
			return err
		}
		a.id = keepID(a.id, rec.UUID)
		return nil
	}
	return rk.decodeTransaction(l)
}

func (rk *RecordKeeper) decodeTransaction(l line) error {
	var tx Transaction
	var head txRecord
	var err error
	switch l.datatype {
	case dtCashTransaction:
		var rec struct {
			txRecord
			Account    string        `json:"account"`
			Type       string        `json:"type"`
			Payee      string        `json:"payee"`
			Categories []splitRecord `json:"categories"`
			Tags       []splitRecord `json:"tags"`
		}
		if err := json.Unmarshal(l.raw, &rec); err != nil {
			return err
		}
		head = rec.txRecord
		typ, err := ParseCashTransactionType(rec.Type)
		if err != nil {
			return err
		}
		tx, err = rk.AddCashTransaction(CashTransactionSpec{
			Account: rec.Account, Date: rec.Date, Type: typ, Payee: rec.Payee,
			Categories: splitsOf(rec.Categories), Tags: splitsOf(rec.Tags), Description: rec.Description,
		})
		if err != nil {
			return err
		}

	case dtCashTransfer:
		var rec struct {
			txRecord
			Sender         string          `json:"sender"`
			Recipient      string          `json:"recipient"`
			AmountSent     decimal.Decimal `json:"amount_sent"`
			AmountReceived decimal.Decimal `json:"amount_received"`
			Tags           []string        `json:"tags"`
		}
		if err := json.Unmarshal(l.raw, &rec); err != nil {
			return err
		}
		head = rec.txRecord
		tx, err = rk.AddCashTransfer(CashTransferSpec{
			Sender: rec.Sender, Recipient: rec.Recipient, Date: rec.Date,
			AmountSent: rec.AmountSent, AmountReceived: rec.AmountReceived, Tags: rec.Tags, Description: rec.Description,
		})

	case dtRefundTransaction:
		var rec struct {
			txRecord
			Refunded   uuid.UUID     `json:"refunded"`
			Account    string        `json:"account"`
			Payee      string        `json:"payee"`
			Categories []splitRecord `json:"categories"`
			Tags       []splitRecord `json:"tags"`
		}
		if err := json.Unmarshal(l.raw, &rec); err != nil {
			return err
		}
		head = rec.txRecord
		tx, err = rk.AddRefund(RefundSpec{
			Refunded: rec.Refunded, Account: rec.Account, Date: rec.Date, Payee: rec.Payee,
			Categories: splitsOf(rec.Categories), Tags: splitsOf(rec.Tags), Description: rec.Description,
		})

	case dtSecurityTransaction:
		var rec struct {
			txRecord
			Type            string          `json:"type"`
			SecurityAccount string          `json:"security_account"`
			CashAccount     string          `json:"cash_account"`
			Security        string          `json:"security"`
			Shares          decimal.Decimal `json:"shares"`
			PricePerShare   decimal.Decimal `json:"price_per_share"`
			Tags            []string        `json:"tags"`
		}
		if err := json.Unmarshal(l.raw, &rec); err != nil {
			return err
		}
		head = rec.txRecord
		typ, err := ParseSecurityTransactionType(rec.Type)
		if err != nil {
			return err
		}
		tx, err = rk.AddSecurityTransaction(SecurityTransactionSpec{
			Type: typ, SecurityAccount: rec.SecurityAccount, CashAccount: rec.CashAccount, Security: rec.Security,
			Date: rec.Date, Shares: rec.Shares, PricePerShare: rec.PricePerShare, Tags: rec.Tags, Description: rec.Description,
		})
		if err != nil {
			return err
		}

	case dtSecurityTransfer:
		var rec struct {
			txRecord
			Sender    string          `json:"sender"`
			Recipient string          `json:"recipient"`
			Security  string          `json:"security"`
			Shares    decimal.Decimal `json:"shares"`
			Tags      []string        `json:"tags"`
		}
		if err := json.Unmarshal(l.raw, &rec); err != nil {
			return err
		}
		head = rec.txRecord
		tx, err = rk.AddSecurityTransfer(SecurityTransferSpec{
			Sender: rec.Sender, Recipient: rec.Recipient, Security: rec.Security,
			Date: rec.Date, Shares: rec.Shares, Tags: rec.Tags, Description: rec.Description,
		})
	}
	if err != nil {
		return err
	}
	return rk.reidentify(tx, head.UUID)
}

// reidentify restores the persisted identifier of a decoded transaction.
func (rk *RecordKeeper) reidentify(tx Transaction, id uuid.UUID) error {
	if id == uuid.Nil {
		return nil
	}
	if _, dup := rk.byID[id]; dup {
		return invalidf("duplicate transaction uuid %s", id)
	}
	delete(rk.byID, tx.ID())
	tx.base().id = id
	rk.byID[id] = tx
	return nil
}

// keepID returns the persisted identifier, or the generated one when missing.
func keepID(generated, persisted uuid.UUID) uuid.UUID {
	if persisted == uuid.Nil {
		return generated
	}
	return persisted
}

func decodeHistory(m map[string]decimal.Decimal, set func(date.Date, decimal.Decimal) error) error {
	for s, v := range m {
		on, err := date.Parse(s)
		if err != nil {
			return err
		}
		if err := set(on, v); err != nil {
			return err
		}
	}
	return nil
}
