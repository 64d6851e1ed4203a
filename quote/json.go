package quote

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PaesslerAG/jsonpath"
	"github.com/etnz/finance/date"
	"github.com/shopspring/decimal"
)

// JSONSource reads quotes from an HTTP endpoint returning JSON.
type JSONSource struct {
	// URL is the quote address, "{symbol}" is replaced by the escaped symbol.
	URL string
	// PricePath is the jsonpath of the price, a number or a string.
	PricePath string
	// DatePath is the optional jsonpath of the quote date, an ISO date or a
	// unix timestamp in seconds. Without it quotes are dated Today.
	DatePath string

	Client *http.Client
	Today  func() date.Date
}

// NewJSONSource returns a source with a client using timeout.
func NewJSONSource(url, pricePath, datePath string, timeout time.Duration) *JSONSource {
	return &JSONSource{
		URL:       url,
		PricePath: pricePath,
		DatePath:  datePath,
		Client:    &http.Client{Timeout: timeout},
		Today:     date.Today,
	}
}

func (s *JSONSource) LatestQuote(ctx context.Context, symbol string) (date.Date, decimal.Decimal, error) {
	addr := strings.ReplaceAll(s.URL, "{symbol}", url.QueryEscape(symbol))
	var doc any
	if err := getJSON(ctx, s.client(), addr, &doc); err != nil {
		return date.Date{}, decimal.Decimal{}, fmt.Errorf("quote of %s: %w", symbol, err)
	}

	jval, err := first(s.PricePath, doc)
	if err != nil {
		return date.Date{}, decimal.Decimal{}, fmt.Errorf("quote of %s: %w", symbol, err)
	}
	price, err := toDecimal(jval)
	if err != nil {
		return date.Date{}, decimal.Decimal{}, fmt.Errorf("quote of %s: %q: %w", symbol, s.PricePath, err)
	}
	if price.IsZero() {
		// some APIs return 0 when there is no trade yet
		return date.Date{}, decimal.Decimal{}, fmt.Errorf("quote of %s: %w", symbol, ErrNoQuote)
	}

	on := s.today()
	if s.DatePath != "" {
		jval, err := first(s.DatePath, doc)
		if err != nil {
			return date.Date{}, decimal.Decimal{}, fmt.Errorf("quote date of %s: %w", symbol, err)
		}
		if on, err = toDate(jval); err != nil {
			return date.Date{}, decimal.Decimal{}, fmt.Errorf("quote date of %s: %q: %w", symbol, s.DatePath, err)
		}
	}
	return on, price, nil
}

func (s *JSONSource) client() *http.Client {
	if s.Client == nil {
		return http.DefaultClient
	}
	return s.Client
}

func (s *JSONSource) today() date.Date {
	if s.Today == nil {
		return date.Today()
	}
	return s.Today()
}

// getJSON performs an HTTP GET request and unmarshals the JSON response into data.
// Numbers are kept as json.Number to preserve their decimals.
func getJSON(ctx context.Context, client *http.Client, addr string, data any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, addr, nil)
	if err != nil {
		return err
	}
	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("cannot http GET %v%v: %v", resp.Request.URL.Host, resp.Request.URL.Path, resp.Status)
	}
	dec := json.NewDecoder(resp.Body)
	dec.UseNumber()
	return dec.Decode(data)
}

// first evaluates path and keeps the first answer when jsonpath returns a list.
func first(path string, doc any) (any, error) {
	jval, err := jsonpath.Get(path, doc)
	if err != nil {
		return nil, err
	}
	if jlist, ok := jval.([]any); ok {
		if len(jlist) == 0 {
			return nil, fmt.Errorf("%q: %w", path, ErrNoQuote)
		}
		jval = jlist[0]
	}
	return jval, nil
}

func toDecimal(jval any) (decimal.Decimal, error) {
	switch v := jval.(type) {
	case json.Number:
		return decimal.NewFromString(v.String())
	case float64:
		return decimal.NewFromFloat(v), nil
	case string:
		// sometimes the value comes as a string with a decimal comma
		v = strings.ReplaceAll(v, ",", ".")
		v = strings.ReplaceAll(v, " ", "")
		if v == "" || v == "./." {
			return decimal.Decimal{}, ErrNoQuote
		}
		return decimal.NewFromString(v)
	}
	return decimal.Decimal{}, fmt.Errorf("not a number: %v", jval)
}

func toDate(jval any) (date.Date, error) {
	switch v := jval.(type) {
	case string:
		if len(v) > 10 {
			v = v[:10]
		}
		return date.Parse(v)
	case json.Number:
		sec, err := v.Int64()
		if err != nil {
			return date.Date{}, err
		}
		return date.Of(time.Unix(sec, 0).UTC()), nil
	}
	return date.Date{}, fmt.Errorf("not a date: %v", jval)
}
