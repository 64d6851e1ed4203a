package finance

import (
	"iter"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/etnz/finance/date"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// symbolRegex checks for up to 8 letters, digits or dots.
var symbolRegex = regexp.MustCompile(`^[A-Z0-9.]{0,8}$`)

const maxSharesDecimals = 18

// Security is a tradeable asset (stock, fund, bond) with a price history.
type Security struct {
	id             uuid.UUID
	name           string
	symbol         string
	typ            string
	currency       *Currency
	sharesDecimals int32
	prices         date.History[decimal.Decimal]
}

// SecuritySpec holds the editable fields of a Security.
type SecuritySpec struct {
	Name           string
	Symbol         string // optional, used to fetch quotes
	Type           string // free classification like "ETF" or "Bond"
	Currency       string // currency code, cannot be edited
	SharesDecimals int32
}

func (s *Security) ID() uuid.UUID         { return s.id }
func (s *Security) Name() string          { return s.name }
func (s *Security) Symbol() string        { return s.symbol }
func (s *Security) Type() string          { return s.typ }
func (s *Security) Currency() *Currency   { return s.currency }
func (s *Security) SharesDecimals() int32 { return s.sharesDecimals }
func (s *Security) String() string        { return s.name }

// Price returns the price as of a date: the price on that day or the latest before.
// It returns the NaN amount when no price is known yet.
func (s *Security) Price(on date.Date) CashAmount {
	p, ok := s.prices.ValueAsOf(on)
	if !ok {
		return NaN(s.currency)
	}
	return NewCashAmount(p, s.currency)
}

// LatestPrice returns the latest known price and its date, or NaN.
func (s *Security) LatestPrice() (date.Date, CashAmount) {
	if s.prices.Len() == 0 {
		return date.Date{}, NaN(s.currency)
	}
	on, p := s.prices.Latest()
	return on, NewCashAmount(p, s.currency)
}

// Prices iterates over the price history in chronological order.
func (s *Security) Prices() iter.Seq2[date.Date, decimal.Decimal] { return s.prices.Values() }

func (s *Security) setPrice(on date.Date, price decimal.Decimal) error {
	if price.IsNegative() {
		return invalidf("price of %s on %s must not be negative, got %s", s.name, on, price)
	}
	s.prices.Append(on, price)
	return nil
}

// normalize validates a spec and returns its canonical form.
func (spec SecuritySpec) normalize() (SecuritySpec, error) {
	spec.Name = strings.TrimSpace(spec.Name)
	if n := utf8.RuneCountInString(spec.Name); n < 1 || n > 64 {
		return spec, invalidf("security name %q must be between 1 and 64 characters", spec.Name)
	}
	spec.Symbol = strings.ToUpper(strings.TrimSpace(spec.Symbol))
	if !symbolRegex.MatchString(spec.Symbol) {
		return spec, invalidf("security symbol %q must be up to 8 letters, digits or dots", spec.Symbol)
	}
	spec.Type = strings.TrimSpace(spec.Type)
	if n := utf8.RuneCountInString(spec.Type); n < 1 || n > 32 {
		return spec, invalidf("security type %q must be between 1 and 32 characters", spec.Type)
	}
	if spec.SharesDecimals < 0 || spec.SharesDecimals > maxSharesDecimals {
		return spec, invalidf("security %s shares decimals must be between 0 and %d, got %d", spec.Name, maxSharesDecimals, spec.SharesDecimals)
	}
	return spec, nil
}
