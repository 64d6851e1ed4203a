package finance

import (
	"iter"
	"strings"

	"github.com/etnz/finance/date"
	"github.com/shopspring/decimal"
)

// ExchangeRate is the time series of conversion rates between two currencies.
//
// A rate r on a date means that 1 unit of the primary currency is worth r units
// of the secondary currency.
type ExchangeRate struct {
	primary, secondary *Currency
	history            date.History[decimal.Decimal]
}

func (r *ExchangeRate) Primary() *Currency   { return r.primary }
func (r *ExchangeRate) Secondary() *Currency { return r.secondary }

// Code returns the "PRIMARY/SECONDARY" code of the rate.
func (r *ExchangeRate) Code() string { return r.primary.code + "/" + r.secondary.code }

func (r *ExchangeRate) String() string { return r.Code() }

// other returns the currency of the pair that is not c.
func (r *ExchangeRate) other(c *Currency) *Currency {
	if r.primary == c {
		return r.secondary
	}
	return r.primary
}

// Rate returns the rate on a given day, or the most recent rate before it.
func (r *ExchangeRate) Rate(on date.Date) (decimal.Decimal, bool) { return r.history.ValueAsOf(on) }

// LatestRate returns the rate of the latest point.
func (r *ExchangeRate) LatestRate() (decimal.Decimal, bool) {
	if r.history.Len() == 0 {
		return decimal.Zero, false
	}
	_, rate := r.history.Latest()
	return rate, true
}

// LatestDate returns the date of the latest point, or the zero Date.
func (r *ExchangeRate) LatestDate() date.Date {
	on, _ := r.history.Latest()
	return on
}

// Len returns the number of points.
func (r *ExchangeRate) Len() int { return r.history.Len() }

// Points iterates over the points in chronological order.
func (r *ExchangeRate) Points() iter.Seq2[date.Date, decimal.Decimal] { return r.history.Values() }

func (r *ExchangeRate) setRate(on date.Date, rate decimal.Decimal) error {
	if !rate.IsPositive() {
		return invalidf("exchange rate %s on %s must be positive, got %s", r.Code(), on, rate)
	}
	r.history.Append(on, rate)
	return nil
}

// splitRateCode splits "EUR/USD" into its two currency codes.
func splitRateCode(code string) (primary, secondary string, err error) {
	primary, secondary, ok := strings.Cut(code, "/")
	if !ok {
		return "", "", invalidf("exchange rate code %q want format \"AAA/BBB\"", code)
	}
	return strings.TrimSpace(primary), strings.TrimSpace(secondary), nil
}
