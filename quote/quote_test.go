package quote

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/etnz/finance"
	"github.com/etnz/finance/date"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func quoteServer(t *testing.T, quotes map[string]string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, ok := quotes[r.URL.Query().Get("s")]
		if !ok {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, body)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestJSONSource(t *testing.T) {
	srv := quoteServer(t, map[string]string{
		"ACME":    `{"quote":{"last":123.4567,"day":"2024-03-01T17:30:00Z"}}`,
		"BETA":    `{"quote":{"last":"12,5","day":"2024-03-01"}}`,
		"EUR/USD": `{"quote":{"last":1.0837,"day":1709251200}}`,
		"EMPTY":   `{"quote":{"last":"./.","day":"2024-03-01"}}`,
		"ZERO":    `{"quote":{"last":0,"day":"2024-03-01"}}`,
	})
	src := NewJSONSource(srv.URL+"?s={symbol}", "$.quote.last", "$.quote.day", time.Second)

	testCases := []struct {
		symbol string
		want   string
	}{
		{"ACME", "123.4567"},
		{"BETA", "12.5"},
		{"EUR/USD", "1.0837"},
	}
	for _, tc := range testCases {
		t.Run(tc.symbol, func(t *testing.T) {
			on, price, err := src.LatestQuote(context.Background(), tc.symbol)
			require.NoError(t, err)
			assert.Equal(t, date.New(2024, 3, 1), on)
			assert.True(t, price.Equal(decimal.RequireFromString(tc.want)), "price = %v, want %s", price, tc.want)
		})
	}

	for _, symbol := range []string{"EMPTY", "ZERO"} {
		_, _, err := src.LatestQuote(context.Background(), symbol)
		assert.ErrorIs(t, err, ErrNoQuote, symbol)
	}
	_, _, err := src.LatestQuote(context.Background(), "MISSING")
	assert.ErrorContains(t, err, "404")

	t.Run("dated today", func(t *testing.T) {
		src := NewJSONSource(srv.URL+"?s={symbol}", "$.quote.last", "", time.Second)
		src.Today = func() date.Date { return date.New(2024, 5, 6) }
		on, _, err := src.LatestQuote(context.Background(), "ACME")
		require.NoError(t, err)
		assert.Equal(t, date.New(2024, 5, 6), on)
	})
}

func countingSource(calls *atomic.Int32, quotes map[string]float64) Source {
	return SourceFunc(func(ctx context.Context, symbol string) (date.Date, decimal.Decimal, error) {
		calls.Add(1)
		v, ok := quotes[symbol]
		if !ok {
			return date.Date{}, decimal.Decimal{}, ErrNoQuote
		}
		return date.New(2024, 3, 1), decimal.NewFromFloat(v), nil
	})
}

func TestCached(t *testing.T) {
	var calls atomic.Int32
	c := NewCached(countingSource(&calls, map[string]float64{"ACME": 10}), time.Minute)
	ctx := context.Background()

	for range 3 {
		_, price, err := c.LatestQuote(ctx, "ACME")
		require.NoError(t, err)
		assert.True(t, price.Equal(decimal.NewFromInt(10)))
	}
	assert.Equal(t, int32(1), calls.Load())

	for range 2 {
		_, _, err := c.LatestQuote(ctx, "NOPE")
		assert.ErrorIs(t, err, ErrNoQuote)
	}
	assert.Equal(t, int32(3), calls.Load(), "errors are not cached")

	c.Forget()
	_, _, err := c.LatestQuote(ctx, "ACME")
	require.NoError(t, err)
	assert.Equal(t, int32(4), calls.Load())
}

func TestLimited(t *testing.T) {
	var calls atomic.Int32
	l := NewLimited(countingSource(&calls, map[string]float64{"ACME": 10}), 1000)
	_, _, err := l.LatestQuote(context.Background(), "ACME")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, _, err = l.LatestQuote(ctx, "ACME")
	assert.Error(t, err)
	assert.Equal(t, int32(1), calls.Load())
}

func TestUpdater(t *testing.T) {
	rk := finance.New()
	_, err := rk.AddCurrency("EUR", 2)
	require.NoError(t, err)
	_, err = rk.AddCurrency("USD", 2)
	require.NoError(t, err)
	_, err = rk.AddExchangeRate("EUR", "USD")
	require.NoError(t, err)
	for _, spec := range []finance.SecuritySpec{
		{Name: "Acme Corp", Symbol: "ACME", Type: "Stock", Currency: "USD", SharesDecimals: 0},
		{Name: "Delisted", Symbol: "GONE", Type: "Stock", Currency: "USD", SharesDecimals: 0},
		{Name: "Private", Type: "Fund", Currency: "EUR", SharesDecimals: 2},
	} {
		_, err := rk.AddSecurity(spec)
		require.NoError(t, err)
	}
	assert.Len(t, Targets(rk), 3, "securities without symbol are skipped")

	var calls atomic.Int32
	u := &Updater{
		Source:      countingSource(&calls, map[string]float64{"ACME": 123.45, "EUR/USD": 1.09}),
		Concurrency: 2,
		Log:         zerolog.Nop(),
	}
	results, err := u.Update(context.Background(), rk)
	assert.ErrorIs(t, err, ErrNoQuote)
	assert.ErrorContains(t, err, "Delisted")
	assert.Len(t, results, 3)
	assert.Equal(t, int32(3), calls.Load())

	acme, err := rk.Security("Acme Corp")
	require.NoError(t, err)
	on, price := acme.LatestPrice()
	assert.Equal(t, date.New(2024, 3, 1), on)
	assert.Equal(t, "123.45 USD", price.String())

	rate, err := rk.ExchangeRate("EUR/USD")
	require.NoError(t, err)
	v, ok := rate.Rate(date.New(2024, 3, 2))
	require.True(t, ok)
	assert.True(t, v.Equal(decimal.RequireFromString("1.09")))

	t.Run("cancelled", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		_, err := u.Update(ctx, rk)
		assert.ErrorIs(t, err, context.Canceled)
	})
}
