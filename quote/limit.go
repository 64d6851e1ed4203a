package quote

import (
	"context"

	"github.com/etnz/finance/date"
	"github.com/shopspring/decimal"
	"golang.org/x/time/rate"
)

// Limited is a Source throttling the requests to another Source.
type Limited struct {
	src     Source
	limiter *rate.Limiter
}

// NewLimited returns a Source allowing at most perSecond requests per second
// to src, with bursts of one request.
func NewLimited(src Source, perSecond float64) *Limited {
	return &Limited{src: src, limiter: rate.NewLimiter(rate.Limit(perSecond), 1)}
}

func (l *Limited) LatestQuote(ctx context.Context, symbol string) (date.Date, decimal.Decimal, error) {
	if err := l.limiter.Wait(ctx); err != nil {
		return date.Date{}, decimal.Decimal{}, err
	}
	return l.src.LatestQuote(ctx, symbol)
}
