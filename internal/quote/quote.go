// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package quote implements the market-quote capability.
package quote

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/pdiddy/equity-research/internal/httputil"
	"github.com/pdiddy/equity-research/pkg/types"
)

// Provider returns a market snapshot for a ticker.
type Provider interface {
	GetQuote(ctx context.Context, ticker string) (types.Quote, error)
}

// QuoteError reports a failed quote lookup.
type QuoteError struct {
	Ticker string
	Err    error
}

func (e *QuoteError) Error() string {
	return fmt.Sprintf("quote %s: %v", e.Ticker, e.Err)
}

func (e *QuoteError) Unwrap() error { return e.Err }

// yahooChartBase is the Yahoo Finance chart endpoint. Declared as a var so
// tests can substitute an httptest server.
var yahooChartBase = "https://query1.finance.yahoo.com/v8/finance/chart/"

// YahooProvider reads quotes from the Yahoo Finance chart API.
type YahooProvider struct {
	Client    *http.Client
	UserAgent string
}

// NewYahoo builds a provider from configuration.
func NewYahoo(cfg types.QuoteConfig) *YahooProvider {
	return &YahooProvider{Client: &http.Client{Timeout: cfg.Timeout}, UserAgent: cfg.UserAgent}
}

type chartResponse struct {
	Chart struct {
		Result []struct {
			Meta struct {
				Currency            string  `json:"currency"`
				RegularMarketPrice  float64 `json:"regularMarketPrice"`
				ChartPreviousClose  float64 `json:"chartPreviousClose"`
				PreviousClose       float64 `json:"previousClose"`
				RegularMarketVolume float64 `json:"regularMarketVolume"`
				MarketCap           float64 `json:"marketCap"`
			} `json:"meta"`
		} `json:"result"`
		Error *struct {
			Code        string `json:"code"`
			Description string `json:"description"`
		} `json:"error"`
	} `json:"chart"`
}

// GetQuote implements Provider.
func (p *YahooProvider) GetQuote(ctx context.Context, ticker string) (types.Quote, error) {
	ticker = strings.ToUpper(strings.TrimSpace(ticker))
	if ticker == "" {
		return types.Quote{}, &QuoteError{Ticker: ticker, Err: fmt.Errorf("empty ticker")}
	}

	reqURL := yahooChartBase + url.PathEscape(ticker) + "?" + url.Values{
		"range":    {"1d"},
		"interval": {"1d"},
	}.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return types.Quote{}, &QuoteError{Ticker: ticker, Err: fmt.Errorf("creating request: %w", err)}
	}
	if p.UserAgent != "" {
		req.Header.Set("User-Agent", p.UserAgent)
	}

	resp, err := httputil.DoWithRetry(ctx, p.Client, req, 0)
	if err != nil {
		return types.Quote{}, &QuoteError{Ticker: ticker, Err: err}
	}
	defer resp.Body.Close()

	var cr chartResponse
	decodeErr := json.NewDecoder(resp.Body).Decode(&cr)
	if cr.Chart.Error != nil {
		return types.Quote{}, &QuoteError{Ticker: ticker, Err: fmt.Errorf("%s: %s", cr.Chart.Error.Code, cr.Chart.Error.Description)}
	}
	if resp.StatusCode != http.StatusOK {
		return types.Quote{}, &QuoteError{Ticker: ticker, Err: fmt.Errorf("HTTP %d", resp.StatusCode)}
	}
	if decodeErr != nil {
		return types.Quote{}, &QuoteError{Ticker: ticker, Err: fmt.Errorf("parsing response: %w", decodeErr)}
	}
	if len(cr.Chart.Result) == 0 {
		return types.Quote{}, &QuoteError{Ticker: ticker, Err: fmt.Errorf("no chart data")}
	}

	m := cr.Chart.Result[0].Meta
	prev := m.ChartPreviousClose
	if prev == 0 {
		prev = m.PreviousClose
	}
	q := types.Quote{
		Price:     m.RegularMarketPrice,
		MarketCap: m.MarketCap,
		Volume:    m.RegularMarketVolume,
		Currency:  m.Currency,
	}
	if prev != 0 {
		q.Change = m.RegularMarketPrice - prev
		q.ChangePercent = q.Change / prev * 100
	}
	return q, nil
}

// Summary renders a one-line description of q for prompts and CLI output.
func Summary(ticker string, q types.Quote) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s %.2f %s (%+.2f, %+.2f%%)", ticker, q.Price, q.Currency, q.Change, q.ChangePercent)
	if q.MarketCap > 0 {
		fmt.Fprintf(&b, ", market cap %.0f", q.MarketCap)
	}
	if q.Volume > 0 {
		fmt.Fprintf(&b, ", volume %.0f", q.Volume)
	}
	return b.String()
}
