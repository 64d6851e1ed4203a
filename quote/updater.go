package quote

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/etnz/finance"
	"github.com/etnz/finance/date"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"
)

// Target is what a quote updates: a security price or an exchange rate.
type Target struct {
	Symbol   string
	Security *finance.Security     // nil for an exchange rate
	Rate     *finance.ExchangeRate // nil for a security
}

func (t Target) String() string {
	if t.Security != nil {
		return t.Security.Name()
	}
	return t.Rate.Code()
}

// Result is the outcome of a quote request.
type Result struct {
	Target Target
	Date   date.Date
	Value  decimal.Decimal
	Err    error
}

// Updater fetches quotes concurrently and records them in a RecordKeeper.
type Updater struct {
	Source      Source
	Concurrency int
	Log         zerolog.Logger
}

// Targets returns every security with a symbol and every exchange rate of rk.
func Targets(rk *finance.RecordKeeper) []Target {
	var targets []Target
	for _, s := range rk.Securities() {
		if s.Symbol() != "" {
			targets = append(targets, Target{Symbol: s.Symbol(), Security: s})
		}
	}
	for _, r := range rk.ExchangeRates() {
		targets = append(targets, Target{Symbol: r.Code(), Rate: r})
	}
	return targets
}

// Fetch requests the quote of every target, at most Concurrency at a time.
// Individual failures are reported in the results, only a cancelled ctx
// stops the fetch.
func (u *Updater) Fetch(ctx context.Context, targets []Target) ([]Result, error) {
	results := make([]Result, len(targets))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(max(u.Concurrency, 1))
	for i, t := range targets {
		g.Go(func() error {
			start := time.Now()
			on, v, err := u.Source.LatestQuote(ctx, t.Symbol)
			results[i] = Result{Target: t, Date: on, Value: v, Err: err}
			if ctxErr := ctx.Err(); ctxErr != nil {
				return ctxErr
			}
			u.Log.Debug().Str("symbol", t.Symbol).Dur("elapsed", time.Since(start)).Err(err).Msg("quote fetched")
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

// Update fetches the quotes of every target of rk, then records them
// sequentially. It returns the results and the joined failures.
func (u *Updater) Update(ctx context.Context, rk *finance.RecordKeeper) ([]Result, error) {
	results, err := u.Fetch(ctx, Targets(rk))
	if err != nil {
		return nil, err
	}
	var errs []error
	for i, r := range results {
		if r.Err == nil {
			r.Err = apply(rk, r)
			results[i] = r
		}
		if r.Err != nil {
			u.Log.Warn().Str("symbol", r.Target.Symbol).Err(r.Err).Msg("quote not recorded")
			errs = append(errs, fmt.Errorf("%s: %w", r.Target, r.Err))
		}
	}
	return results, errors.Join(errs...)
}

func apply(rk *finance.RecordKeeper, r Result) error {
	if r.Target.Security != nil {
		return rk.SetSecurityPrice(r.Target.Security.Name(), r.Date, r.Value)
	}
	return rk.SetExchangeRate(r.Target.Rate.Code(), r.Date, r.Value)
}
