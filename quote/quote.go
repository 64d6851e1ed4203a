// Package quote fetches the latest security prices and exchange rates and
// records them in a finance.RecordKeeper.
package quote

import (
	"context"
	"errors"

	"github.com/etnz/finance/date"
	"github.com/shopspring/decimal"
)

// ErrNoQuote is returned by a Source that has no quote for a symbol.
var ErrNoQuote = errors.New("no quote")

// Source returns the latest known quote of a symbol: a security symbol or an
// exchange rate code like "EUR/USD".
type Source interface {
	LatestQuote(ctx context.Context, symbol string) (date.Date, decimal.Decimal, error)
}

// SourceFunc adapts a function to the Source interface.
type SourceFunc func(ctx context.Context, symbol string) (date.Date, decimal.Decimal, error)

func (f SourceFunc) LatestQuote(ctx context.Context, symbol string) (date.Date, decimal.Decimal, error) {
	return f(ctx, symbol)
}
