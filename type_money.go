package finance

import (
	"fmt"
	"slices"
	"strings"

	"github.com/Rhymond/go-money"
	"github.com/etnz/finance/date"
	"github.com/shopspring/decimal"
)

// Currency is a currency identified by its code, with a fixed number of decimal places.
type Currency struct {
	code   string
	places int32
	rates  []*ExchangeRate // rates this currency is part of, sorted by the other currency code
}

// Code returns the upper case currency code, like "EUR".
func (c *Currency) Code() string { return c.code }

// Places returns the number of decimal places of the currency.
func (c *Currency) Places() int32 { return c.places }

// String returns the currency code.
func (c *Currency) String() string { return c.code }

// Zero returns the zero amount in that currency.
func (c *Currency) Zero() CashAmount { return CashAmount{value: decimal.Zero, cur: c} }

// ExchangeRates returns the exchange rates this currency is part of.
func (c *Currency) ExchangeRates() []*ExchangeRate { return slices.Clone(c.rates) }

// DefaultPlaces returns the ISO number of decimal places of a currency code, or 2 if unknown.
func DefaultPlaces(code string) int32 {
	if cur := money.GetCurrency(strings.ToUpper(code)); cur != nil {
		return int32(cur.Fraction)
	}
	return 2
}

// normalizeCurrencyCode validates and upper cases a currency code.
func normalizeCurrencyCode(code string) (string, error) {
	code = strings.ToUpper(strings.TrimSpace(code))
	if len(code) != 3 {
		return "", invalidf("currency code %q must be 3 letters", code)
	}
	for _, r := range code {
		if r < 'A' || r > 'Z' {
			return "", invalidf("currency code %q must be 3 letters", code)
		}
	}
	return code, nil
}

func newCurrency(code string, places int32) (*Currency, error) {
	code, err := normalizeCurrencyCode(code)
	if err != nil {
		return nil, err
	}
	if places < 0 {
		return nil, invalidf("currency %s places must be positive, got %d", code, places)
	}
	return &Currency{code: code, places: places}, nil
}

// rateWith returns the exchange rate between c and x if any.
func (c *Currency) rateWith(x *Currency) *ExchangeRate {
	for _, r := range c.rates {
		if r.primary == x || r.secondary == x {
			return r
		}
	}
	return nil
}

func (c *Currency) attachRate(r *ExchangeRate) {
	c.rates = append(c.rates, r)
	slices.SortFunc(c.rates, func(a, b *ExchangeRate) int {
		return strings.Compare(a.other(c).code, b.other(c).code)
	})
}

func (c *Currency) detachRate(r *ExchangeRate) {
	c.rates = slices.DeleteFunc(c.rates, func(x *ExchangeRate) bool { return x == r })
}

// rateLookup returns the rate of an exchange rate, at a given date or the latest one.
type rateLookup func(*ExchangeRate) (decimal.Decimal, bool)

func asOf(on date.Date) rateLookup {
	return func(r *ExchangeRate) (decimal.Decimal, bool) { return r.Rate(on) }
}

func latest(r *ExchangeRate) (decimal.Decimal, bool) { return r.LatestRate() }

// step converts value in currency c through the rate r.
func (c *Currency) step(value decimal.Decimal, r *ExchangeRate, rate decimal.Decimal) decimal.Decimal {
	if r.primary == c {
		return value.Mul(rate)
	}
	return value.Div(rate)
}

// convert converts a value in c to target, directly or through at most one intermediate currency.
func (c *Currency) convert(value decimal.Decimal, target *Currency, lookup rateLookup) (decimal.Decimal, bool) {
	if c == target {
		return value, true
	}
	if r := c.rateWith(target); r != nil {
		if rate, ok := lookup(r); ok {
			return c.step(value, r, rate), true
		}
	}
	for _, r1 := range c.rates {
		middle := r1.other(c)
		if middle == target {
			continue
		}
		r2 := middle.rateWith(target)
		if r2 == nil {
			continue
		}
		rate1, ok1 := lookup(r1)
		rate2, ok2 := lookup(r2)
		if ok1 && ok2 {
			return middle.step(c.step(value, r1, rate1), r2, rate2), true
		}
	}
	return decimal.Zero, false
}

// ConversionFactor returns the factor to convert an amount in c into target as of a date.
func (c *Currency) ConversionFactor(target *Currency, on date.Date) (decimal.Decimal, error) {
	f, ok := c.convert(decimal.NewFromInt(1), target, asOf(on))
	if !ok {
		return f, &ConversionError{From: c.code, To: target.code, On: on}
	}
	return f, nil
}

// LatestConversionFactor is like ConversionFactor using the latest rates.
func (c *Currency) LatestConversionFactor(target *Currency) (decimal.Decimal, error) {
	f, ok := c.convert(decimal.NewFromInt(1), target, latest)
	if !ok {
		return f, &ConversionError{From: c.code, To: target.code}
	}
	return f, nil
}

// CashAmount is an exact decimal amount in a currency.
//
// Arithmetic between amounts of different currencies panics: amounts must be
// converted first.
type CashAmount struct {
	value decimal.Decimal
	cur   *Currency
	nan   bool // no data, only built by NaN
}

// NewCashAmount returns an amount of value in currency cur.
func NewCashAmount(value decimal.Decimal, cur *Currency) CashAmount {
	return CashAmount{value: value, cur: cur}
}

// C is a convenient factory for CashAmount.
func C[T number](value T, cur *Currency) CashAmount {
	return CashAmount{value: newDecimal(value), cur: cur}
}

// NaN returns the "no data" amount in a currency.
func NaN(cur *Currency) CashAmount { return CashAmount{cur: cur, nan: true} }

func (a CashAmount) Currency() *Currency    { return a.cur }
func (a CashAmount) Value() decimal.Decimal { return a.value }
func (a CashAmount) IsNaN() bool            { return a.nan }
func (a CashAmount) IsZero() bool           { return !a.nan && a.value.IsZero() }
func (a CashAmount) IsPositive() bool       { return !a.nan && a.value.IsPositive() }
func (a CashAmount) IsNegative() bool       { return !a.nan && a.value.IsNegative() }

// Rounded returns the value rounded half-even to the currency places.
func (a CashAmount) Rounded() decimal.Decimal { return a.value.RoundBank(a.cur.places) }

// Round returns the amount rounded to the currency places.
func (a CashAmount) Round() CashAmount { a.value = a.Rounded(); return a }

func (a CashAmount) Neg() CashAmount { a.value = a.value.Neg(); return a }
func (a CashAmount) Abs() CashAmount { a.value = a.value.Abs(); return a }

// Mul multiplies the amount by a scalar.
func (a CashAmount) Mul(d decimal.Decimal) CashAmount { a.value = a.value.Mul(d); return a }

// Div divides the amount by a non zero scalar.
func (a CashAmount) Div(d decimal.Decimal) CashAmount { a.value = a.value.Div(d); return a }

// Add returns a+b.
func (a CashAmount) Add(b CashAmount) CashAmount {
	return CashAmount{value: a.value.Add(b.value), cur: same(a, b), nan: a.nan || b.nan}
}

// Sub returns a-b.
func (a CashAmount) Sub(b CashAmount) CashAmount {
	return CashAmount{value: a.value.Sub(b.value), cur: same(a, b), nan: a.nan || b.nan}
}

// Ratio returns the dimensionless a/b, b must not be zero.
func (a CashAmount) Ratio(b CashAmount) decimal.Decimal {
	same(a, b)
	return a.value.Div(b.value)
}

// Compare returns -1, 0 or +1. Amounts in different currencies are only comparable when zero.
func (a CashAmount) Compare(b CashAmount) int {
	if a.cur != b.cur && a.value.IsZero() && b.value.IsZero() {
		return 0
	}
	same(a, b)
	return a.value.Cmp(b.value)
}

// Equal reports whether a and b are the same amount. Zero amounts are equal in any currency.
func (a CashAmount) Equal(b CashAmount) bool {
	if a.nan || b.nan {
		return false
	}
	return a.Compare(b) == 0
}

// same returns the common currency of a and b, a nil currency is weak.
func same(a, b CashAmount) *Currency {
	switch {
	case a.cur == nil:
		return b.cur
	case b.cur == nil:
		return a.cur
	case a.cur != b.cur:
		panic("currency mismatch " + a.cur.code + "!=" + b.cur.code)
	}
	return a.cur
}

// Convert returns the amount converted to target at the rate applicable on a date.
func (a CashAmount) Convert(target *Currency, on date.Date) (CashAmount, error) {
	return a.convert(target, asOf(on), on)
}

// ConvertLatest returns the amount converted to target at the latest rate.
func (a CashAmount) ConvertLatest(target *Currency) (CashAmount, error) {
	return a.convert(target, latest, date.Date{})
}

func (a CashAmount) convert(target *Currency, lookup rateLookup, on date.Date) (CashAmount, error) {
	if a.cur == target {
		return a, nil
	}
	v, ok := a.cur.convert(a.value, target, lookup)
	if !ok {
		return NaN(target), &ConversionError{From: a.cur.code, To: target.code, On: on}
	}
	return CashAmount{value: v, cur: target, nan: a.nan}, nil
}

// normalized returns the value with at least the currency places.
func (a CashAmount) normalized() string {
	s := a.value.String()
	decimals := 0
	if i := strings.IndexByte(s, '.'); i >= 0 {
		decimals = len(s) - i - 1
	}
	if decimals < int(a.cur.places) {
		return a.value.StringFixed(a.cur.places)
	}
	return s
}

// String returns the exact amount as "12.50 EUR", this is also its persisted form.
func (a CashAmount) String() string {
	if a.nan {
		return "NaN " + a.cur.code
	}
	return a.normalized() + " " + a.cur.code
}

// Format returns the amount rounded and formatted for display, like "€12.50".
func (a CashAmount) Format() string {
	if a.nan {
		return "NaN"
	}
	cur := money.GetCurrency(a.cur.code)
	if cur == nil {
		return a.Round().String()
	}
	dec := a.value.RoundBank(int32(cur.Fraction)).Shift(int32(cur.Fraction))
	return cur.Formatter().Format(dec.IntPart())
}

// SignedFormat is like Format with an explicit sign, zero is represented as "-".
func (a CashAmount) SignedFormat() string {
	switch {
	case a.nan:
		return "NaN"
	case a.Rounded().IsZero():
		return "-"
	case a.value.IsPositive():
		return "+" + a.Format()
	}
	return a.Format()
}

// ParseCashAmount parses the persisted form "12.50 EUR", currency is resolved with lookup.
func ParseCashAmount(s string, lookup func(code string) (*Currency, error)) (CashAmount, error) {
	value, code, ok := strings.Cut(strings.TrimSpace(s), " ")
	if !ok {
		return CashAmount{}, invalidf("amount %q want format \"<value> <CODE>\"", s)
	}
	cur, err := lookup(strings.TrimSpace(code))
	if err != nil {
		return CashAmount{}, fmt.Errorf("amount %q: %w", s, err)
	}
	if value == "NaN" {
		return NaN(cur), nil
	}
	d, err := decimal.NewFromString(strings.ReplaceAll(value, ",", ""))
	if err != nil {
		return CashAmount{}, invalidf("amount %q: %v", s, err)
	}
	return NewCashAmount(d, cur), nil
}

// Sum returns the sum of amounts in currency cur.
func Sum(cur *Currency, amounts ...CashAmount) CashAmount {
	total := cur.Zero()
	for _, a := range amounts {
		total = total.Add(a)
	}
	return total
}
