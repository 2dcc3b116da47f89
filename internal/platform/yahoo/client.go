// Package yahoo implements the secondary price source against the Yahoo
// Finance chart API. The API has no batch endpoint, so Snapshots fans out
// one request per symbol behind a shared rate limiter.
package yahoo

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/sentientlabs/stockcast/internal/domain"
)

const sourceName = "yahoo"

// Config holds endpoints and limits for the Yahoo client.
type Config struct {
	BaseURL        string
	Timeout        time.Duration
	BatchLimit     int
	RequestsPerSec int
	MaxConcurrent  int
}

// Client is the REST client for the Yahoo Finance chart API. It implements
// domain.PriceSource.
type Client struct {
	baseURL       string
	batchLimit    int
	maxConcurrent int
	limiter       *rate.Limiter
	httpClient    *http.Client
	now           func() time.Time
}

// NewClient creates a new Yahoo Finance client.
func NewClient(cfg Config) *Client {
	return &Client{
		baseURL:       cfg.BaseURL,
		batchLimit:    cfg.BatchLimit,
		maxConcurrent: cfg.MaxConcurrent,
		limiter:       rate.NewLimiter(rate.Limit(cfg.RequestsPerSec), cfg.RequestsPerSec),
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
		now: time.Now,
	}
}

// Name identifies this source in logs and resolution errors.
func (c *Client) Name() string { return sourceName }

// BatchLimit returns the maximum symbols per Snapshots call. Since each
// symbol costs one upstream request, the limit keeps fallback bursts small.
func (c *Client) BatchLimit() int { return c.batchLimit }

// Snapshots fetches current prices for the given symbols, one request per
// symbol. Symbols whose lookup fails or returns no usable price are omitted;
// an error is returned only when every symbol fails.
func (c *Client) Snapshots(ctx context.Context, symbols []string) (map[string]domain.Quote, error) {
	if len(symbols) == 0 {
		return map[string]domain.Quote{}, nil
	}

	var (
		mu      sync.Mutex
		quotes  = make(map[string]domain.Quote, len(symbols))
		lastErr error
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.maxConcurrent)

	for _, sym := range symbols {
		sym := sym
		g.Go(func() error {
			price, err := c.currentPrice(gctx, sym)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				lastErr = err
				return nil
			}
			quotes[sym] = domain.Quote{
				Symbol:     sym,
				Price:      price,
				ResolvedAt: c.now(),
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("yahoo: snapshots: %w", err)
	}
	if len(quotes) == 0 && lastErr != nil {
		return nil, fmt.Errorf("yahoo: snapshots: %w", lastErr)
	}
	return quotes, nil
}

// currentPrice fetches the regular market price for one symbol.
func (c *Client) currentPrice(ctx context.Context, symbol string) (float64, error) {
	params := url.Values{}
	params.Set("interval", "1d")
	params.Set("range", "1d")

	result, err := c.chart(ctx, symbol, params)
	if err != nil {
		return 0, err
	}

	if result.Meta.RegularMarketPrice > 0 {
		return result.Meta.RegularMarketPrice, nil
	}
	if px, ok := lastClose(result); ok {
		return px, nil
	}
	return 0, fmt.Errorf("yahoo: %s: %w", symbol, domain.ErrNoData)
}

// HistoricalClose returns the daily close for symbol on the trading day
// starting at day, querying the chart API over [day, until). The first
// non-nil close in the window is the close of record.
func (c *Client) HistoricalClose(ctx context.Context, symbol string, day, until time.Time) (float64, error) {
	params := url.Values{}
	params.Set("interval", "1d")
	params.Set("period1", strconv.FormatInt(day.UTC().Unix(), 10))
	params.Set("period2", strconv.FormatInt(until.UTC().Unix(), 10))

	result, err := c.chart(ctx, symbol, params)
	if err != nil {
		return 0, fmt.Errorf("yahoo: bars %s: %w", symbol, err)
	}

	if len(result.Indicators.Quote) > 0 {
		for _, px := range result.Indicators.Quote[0].Close {
			if px != nil && *px > 0 {
				return *px, nil
			}
		}
	}
	return 0, fmt.Errorf("yahoo: bars %s: %w", symbol, domain.ErrNoData)
}

// History returns the daily close series for symbol over [from, until),
// oldest first. Nil closes (holidays, halts) are skipped.
func (c *Client) History(ctx context.Context, symbol string, from, until time.Time) (domain.HistoricalSeries, error) {
	params := url.Values{}
	params.Set("interval", "1d")
	params.Set("period1", strconv.FormatInt(from.UTC().Unix(), 10))
	params.Set("period2", strconv.FormatInt(until.UTC().Unix(), 10))

	result, err := c.chart(ctx, symbol, params)
	if err != nil {
		return domain.HistoricalSeries{}, fmt.Errorf("yahoo: history %s: %w", symbol, err)
	}
	if len(result.Indicators.Quote) == 0 {
		return domain.HistoricalSeries{}, fmt.Errorf("yahoo: history %s: %w", symbol, domain.ErrNoData)
	}

	closes := result.Indicators.Quote[0].Close
	series := domain.HistoricalSeries{
		Symbol: symbol,
		Dates:  make([]time.Time, 0, len(closes)),
		Closes: make([]float64, 0, len(closes)),
	}
	for i, px := range closes {
		if px == nil || *px <= 0 || i >= len(result.Timestamps) {
			continue
		}
		series.Dates = append(series.Dates, time.Unix(result.Timestamps[i], 0).UTC())
		series.Closes = append(series.Closes, *px)
	}
	if len(series.Closes) == 0 {
		return domain.HistoricalSeries{}, fmt.Errorf("yahoo: history %s: %w", symbol, domain.ErrNoData)
	}
	return series, nil
}

// chart performs a rate-limited request against the chart endpoint and
// unwraps the response envelope.
func (c *Client) chart(ctx context.Context, symbol string, params url.Values) (chartResult, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return chartResult{}, &domain.ResolveError{Source: sourceName, Transient: true, Err: err}
	}

	path := fmt.Sprintf("%s/v8/finance/chart/%s?%s", c.baseURL, url.PathEscape(symbol), params.Encode())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, path, nil)
	if err != nil {
		return chartResult{}, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	// The public endpoint rejects requests without a browser-like agent.
	req.Header.Set("User-Agent", "Mozilla/5.0 (compatible; stockcast/1.0)")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return chartResult{}, &domain.ResolveError{Source: sourceName, Transient: true, Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return chartResult{}, &domain.ResolveError{Source: sourceName, Transient: true, Err: fmt.Errorf("read response: %w", err)}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		transient := resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500
		return chartResult{}, &domain.ResolveError{
			Source:    sourceName,
			Transient: transient,
			Err:       fmt.Errorf("status %d", resp.StatusCode),
		}
	}

	var env chartResponse
	if err := json.Unmarshal(body, &env); err != nil {
		return chartResult{}, fmt.Errorf("decode chart: %w", err)
	}
	if env.Chart.Error != nil {
		return chartResult{}, &domain.ResolveError{
			Source: sourceName,
			Err:    fmt.Errorf("%s: %s", env.Chart.Error.Code, env.Chart.Error.Description),
		}
	}
	if len(env.Chart.Result) == 0 {
		return chartResult{}, fmt.Errorf("%s: %w", symbol, domain.ErrNoData)
	}

	return env.Chart.Result[0], nil
}

// lastClose returns the most recent non-nil close in the result.
func lastClose(r chartResult) (float64, bool) {
	if len(r.Indicators.Quote) == 0 {
		return 0, false
	}
	closes := r.Indicators.Quote[0].Close
	for i := len(closes) - 1; i >= 0; i-- {
		if closes[i] != nil && *closes[i] > 0 {
			return *closes[i], true
		}
	}
	return 0, false
}

// Compile-time interface check.
var _ domain.PriceSource = (*Client)(nil)
