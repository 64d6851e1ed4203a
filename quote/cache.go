package quote

import (
	"context"
	"time"

	"github.com/etnz/finance/date"
	"github.com/patrickmn/go-cache"
	"github.com/shopspring/decimal"
)

type cached struct {
	on    date.Date
	price decimal.Decimal
}

// Cached is a Source remembering the quotes of another Source for a while.
// Errors are not cached.
type Cached struct {
	src   Source
	cache *cache.Cache
}

// NewCached returns a Source caching the quotes of src for ttl.
func NewCached(src Source, ttl time.Duration) *Cached {
	return &Cached{src: src, cache: cache.New(ttl, 2*ttl)}
}

func (c *Cached) LatestQuote(ctx context.Context, symbol string) (date.Date, decimal.Decimal, error) {
	if v, ok := c.cache.Get(symbol); ok {
		q := v.(cached)
		return q.on, q.price, nil
	}
	on, price, err := c.src.LatestQuote(ctx, symbol)
	if err != nil {
		return on, price, err
	}
	c.cache.SetDefault(symbol, cached{on, price})
	return on, price, nil
}

// Forget drops every cached quote.
func (c *Cached) Forget() { c.cache.Flush() }
