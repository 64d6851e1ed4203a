package finance

import (
	"slices"
	"strings"

	"github.com/etnz/finance/date"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// RecordKeeper owns every entity of a ledger: currencies, exchange rates,
// securities, attributes, accounts and transactions.
//
// Entities are created, edited and removed only through its methods. A
// mutation is validated as a whole before being applied, a failed mutation
// leaves the RecordKeeper unchanged.
//
// A RecordKeeper is not safe for concurrent use.
type RecordKeeper struct {
	log zerolog.Logger

	currencies  []*Currency // sorted by code
	base        *Currency
	baseChanges int

	rates      []*ExchangeRate // sorted by code
	securities []*Security     // sorted by name

	tags, payees  []*Attribute   // sorted by name
	categoryRoots [3][]*Category // indexed by CategoryType

	rootItems []AccountItem
	accounts  []Account
	groups    []*AccountGroup

	transactions []Transaction // sorted by compareTx
	seq          int64
	byID         map[uuid.UUID]Transaction
	refunds      map[*CashTransaction][]*RefundTransaction
}

// New returns an empty RecordKeeper.
func New() *RecordKeeper {
	return &RecordKeeper{
		log:     zerolog.Nop(),
		byID:    make(map[uuid.UUID]Transaction),
		refunds: make(map[*CashTransaction][]*RefundTransaction),
	}
}

// SetLogger sets the logger used to report mutations.
func (rk *RecordKeeper) SetLogger(log zerolog.Logger) { rk.log = log }

// AddCurrency adds a currency. A negative places selects the ISO default for
// the code. The first currency becomes the base currency.
func (rk *RecordKeeper) AddCurrency(code string, places int32) (*Currency, error) {
	if places < 0 {
		places = DefaultPlaces(code)
	}
	cur, err := newCurrency(code, places)
	if err != nil {
		return nil, err
	}
	if _, err := rk.Currency(cur.code); err == nil {
		return nil, invalidf("currency %s already exists", cur.code)
	}
	rk.currencies = insertSorted(rk.currencies, cur, (*Currency).Code)
	if rk.base == nil {
		rk.base = cur
	}
	return cur, nil
}

// Currency returns the currency of a code.
func (rk *RecordKeeper) Currency(code string) (*Currency, error) {
	code = strings.ToUpper(strings.TrimSpace(code))
	if i, ok := slices.BinarySearchFunc(rk.currencies, code, func(c *Currency, code string) int {
		return strings.Compare(c.code, code)
	}); ok {
		return rk.currencies[i], nil
	}
	return nil, notFound("currency", code)
}

// Currencies returns all currencies sorted by code.
func (rk *RecordKeeper) Currencies() []*Currency { return slices.Clone(rk.currencies) }

// RemoveCurrency removes a currency that no exchange rate, security or account uses.
// The base currency can only be removed when it is the last one.
func (rk *RecordKeeper) RemoveCurrency(code string) error {
	cur, err := rk.Currency(code)
	if err != nil {
		return err
	}
	if len(cur.rates) > 0 {
		return &ReferencedError{Kind: "currency", Key: cur.code, By: "exchange rate " + cur.rates[0].Code()}
	}
	for _, s := range rk.securities {
		if s.currency == cur {
			return &ReferencedError{Kind: "currency", Key: cur.code, By: "security " + s.name}
		}
	}
	for _, a := range rk.accounts {
		if a, ok := a.(*CashAccount); ok && a.currency == cur {
			return &ReferencedError{Kind: "currency", Key: cur.code, By: "account " + a.Path()}
		}
	}
	if cur == rk.base && len(rk.currencies) > 1 {
		return &ReferencedError{Kind: "currency", Key: cur.code, By: "base currency setting"}
	}
	rk.currencies = slices.DeleteFunc(rk.currencies, func(c *Currency) bool { return c == cur })
	if cur == rk.base {
		rk.base = nil
	}
	rk.log.Debug().Str("currency", cur.code).Msg("currency removed")
	return nil
}

// BaseCurrency returns the reporting currency, nil when there is no currency.
func (rk *RecordKeeper) BaseCurrency() *Currency { return rk.base }

// BaseCurrencyChanges returns the number of times the base currency was changed.
func (rk *RecordKeeper) BaseCurrencyChanges() int { return rk.baseChanges }

// SetBaseCurrency sets the reporting currency.
func (rk *RecordKeeper) SetBaseCurrency(code string) error {
	cur, err := rk.Currency(code)
	if err != nil {
		return err
	}
	if cur == rk.base {
		return nil
	}
	from := "none"
	if rk.base != nil {
		from = rk.base.code
	}
	rk.base = cur
	rk.baseChanges++
	rk.log.Info().Str("from", from).Str("to", cur.code).Int("changes", rk.baseChanges).Msg("base currency changed")
	return nil
}

// AddExchangeRate adds the exchange rate between two different currencies.
func (rk *RecordKeeper) AddExchangeRate(primary, secondary string) (*ExchangeRate, error) {
	p, err := rk.Currency(primary)
	if err != nil {
		return nil, err
	}
	s, err := rk.Currency(secondary)
	if err != nil {
		return nil, err
	}
	if p == s {
		return nil, invalidf("exchange rate needs two different currencies, got %s twice", p.code)
	}
	if r := p.rateWith(s); r != nil {
		return nil, invalidf("exchange rate %s already exists", r.Code())
	}
	r := &ExchangeRate{primary: p, secondary: s}
	p.attachRate(r)
	s.attachRate(r)
	rk.rates = insertSorted(rk.rates, r, (*ExchangeRate).Code)
	return r, nil
}

// ExchangeRate returns the exchange rate of a "AAA/BBB" code, in any order.
func (rk *RecordKeeper) ExchangeRate(code string) (*ExchangeRate, error) {
	r, _, err := rk.exchangeRate(code)
	return r, err
}

// exchangeRate returns the rate of a code and whether the code is reversed.
func (rk *RecordKeeper) exchangeRate(code string) (r *ExchangeRate, reversed bool, err error) {
	p, s, err := splitRateCode(code)
	if err != nil {
		return nil, false, err
	}
	pc, err := rk.Currency(p)
	if err != nil {
		return nil, false, err
	}
	sc, err := rk.Currency(s)
	if err != nil {
		return nil, false, err
	}
	if r = pc.rateWith(sc); r == nil {
		return nil, false, notFound("exchange rate", code)
	}
	return r, r.primary != pc, nil
}

// ExchangeRates returns all exchange rates sorted by code.
func (rk *RecordKeeper) ExchangeRates() []*ExchangeRate { return slices.Clone(rk.rates) }

// SetExchangeRate sets the rate of a code on a date. A reversed code stores the inverse rate.
func (rk *RecordKeeper) SetExchangeRate(code string, on date.Date, rate decimal.Decimal) error {
	r, reversed, err := rk.exchangeRate(code)
	if err != nil {
		return err
	}
	if on.IsZero() {
		return invalidf("exchange rate %s needs a date", code)
	}
	if reversed && rate.IsPositive() {
		rate = decimal.NewFromInt(1).Div(rate)
	}
	return r.setRate(on, rate)
}

// DeleteExchangeRatePoint deletes the rate of a code on a date.
func (rk *RecordKeeper) DeleteExchangeRatePoint(code string, on date.Date) error {
	r, err := rk.ExchangeRate(code)
	if err != nil {
		return err
	}
	if !r.history.Delete(on) {
		return notFound("exchange rate point", code+" "+on.String())
	}
	return nil
}

// RemoveExchangeRate removes an exchange rate and its history.
func (rk *RecordKeeper) RemoveExchangeRate(code string) error {
	r, err := rk.ExchangeRate(code)
	if err != nil {
		return err
	}
	r.primary.detachRate(r)
	r.secondary.detachRate(r)
	rk.rates = slices.DeleteFunc(rk.rates, func(x *ExchangeRate) bool { return x == r })
	rk.log.Debug().Str("rate", r.Code()).Msg("exchange rate removed")
	return nil
}

// AddSecurity adds a security.
func (rk *RecordKeeper) AddSecurity(spec SecuritySpec) (*Security, error) {
	spec, err := spec.normalize()
	if err != nil {
		return nil, err
	}
	cur, err := rk.Currency(spec.Currency)
	if err != nil {
		return nil, err
	}
	if err := rk.checkSecurityKeys(nil, spec); err != nil {
		return nil, err
	}
	s := &Security{
		id:             uuid.New(),
		name:           spec.Name,
		symbol:         spec.Symbol,
		typ:            spec.Type,
		currency:       cur,
		sharesDecimals: spec.SharesDecimals,
	}
	rk.securities = insertSorted(rk.securities, s, (*Security).Name)
	return s, nil
}

// checkSecurityKeys checks that name and symbol are not used by another security than self.
func (rk *RecordKeeper) checkSecurityKeys(self *Security, spec SecuritySpec) error {
	for _, s := range rk.securities {
		if s == self {
			continue
		}
		if s.name == spec.Name {
			return invalidf("security %q already exists", spec.Name)
		}
		if spec.Symbol != "" && s.symbol == spec.Symbol {
			return invalidf("security symbol %q already used by %s", spec.Symbol, s.name)
		}
	}
	return nil
}

// EditSecurity edits a security. The currency cannot change, and the shares
// decimals must still fit every transaction of that security.
func (rk *RecordKeeper) EditSecurity(name string, spec SecuritySpec) error {
	s, err := rk.Security(name)
	if err != nil {
		return err
	}
	if spec.Currency == "" {
		spec.Currency = s.currency.code
	}
	spec, err = spec.normalize()
	if err != nil {
		return err
	}
	if !strings.EqualFold(spec.Currency, s.currency.code) {
		return invalidf("security %s currency cannot change from %s to %s", s.name, s.currency, spec.Currency)
	}
	if err := rk.checkSecurityKeys(s, spec); err != nil {
		return err
	}
	for _, tx := range rk.transactions {
		var shares Quantity
		switch tx := tx.(type) {
		case *SecurityTransaction:
			shares = tx.shares
		case *SecurityTransfer:
			shares = tx.shares
		}
		if txSecurity(tx) == s && !shares.fits(spec.SharesDecimals) {
			return invalidf("security %s shares decimals %d do not fit %s shares on %s", s.name, spec.SharesDecimals, shares, tx.Date())
		}
	}
	s.symbol, s.typ, s.sharesDecimals = spec.Symbol, spec.Type, spec.SharesDecimals
	if s.name != spec.Name {
		s.name = spec.Name
		slices.SortFunc(rk.securities, func(a, b *Security) int { return strings.Compare(a.name, b.name) })
	}
	return nil
}

// Security returns a security by name.
func (rk *RecordKeeper) Security(name string) (*Security, error) {
	name = strings.TrimSpace(name)
	for _, s := range rk.securities {
		if s.name == name {
			return s, nil
		}
	}
	return nil, notFound("security", name)
}

// SecurityBySymbol returns a security by symbol.
func (rk *RecordKeeper) SecurityBySymbol(symbol string) (*Security, error) {
	symbol = strings.ToUpper(strings.TrimSpace(symbol))
	for _, s := range rk.securities {
		if symbol != "" && s.symbol == symbol {
			return s, nil
		}
	}
	return nil, notFound("security symbol", symbol)
}

// Securities returns all securities sorted by name.
func (rk *RecordKeeper) Securities() []*Security { return slices.Clone(rk.securities) }

// SetSecurityPrice sets the price of a security on a date.
func (rk *RecordKeeper) SetSecurityPrice(name string, on date.Date, price decimal.Decimal) error {
	s, err := rk.Security(name)
	if err != nil {
		return err
	}
	if on.IsZero() {
		return invalidf("price of %s needs a date", s.name)
	}
	return s.setPrice(on, price)
}

// DeleteSecurityPrice deletes the price of a security on a date.
func (rk *RecordKeeper) DeleteSecurityPrice(name string, on date.Date) error {
	s, err := rk.Security(name)
	if err != nil {
		return err
	}
	if !s.prices.Delete(on) {
		return notFound("price", s.name+" "+on.String())
	}
	return nil
}

// RemoveSecurity removes a security no transaction uses.
func (rk *RecordKeeper) RemoveSecurity(name string) error {
	s, err := rk.Security(name)
	if err != nil {
		return err
	}
	for _, tx := range rk.transactions {
		if txSecurity(tx) == s {
			return &ReferencedError{Kind: "security", Key: s.name, By: describe(tx)}
		}
	}
	rk.securities = slices.DeleteFunc(rk.securities, func(x *Security) bool { return x == s })
	rk.log.Debug().Str("security", s.name).Msg("security removed")
	return nil
}

// insertSorted inserts v in s sorted by key.
func insertSorted[T any](s []T, v T, key func(T) string) []T {
	i, _ := slices.BinarySearchFunc(s, key(v), func(x T, k string) int { return strings.Compare(key(x), k) })
	return slices.Insert(s, i, v)
}

// describe returns a short description of a transaction for error messages.
func describe(tx Transaction) string {
	return tx.Kind().String() + " transaction " + tx.ID().String() + " on " + tx.Date().String()
}
