// Package alpaca implements the primary price source against the Alpaca
// market data REST API.
package alpaca

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/sentientlabs/stockcast/internal/domain"
)

const sourceName = "alpaca"

// snapshotBatchLimit is the number of symbols requested per snapshots call.
const snapshotBatchLimit = 100

// toWire converts a canonical symbol to the notation the data API expects.
// Class shares use a dot on the wire ("BRK.B") but a dash everywhere else,
// so every dash is rewritten; responses are mapped back through a
// request-scoped reverse lookup.
func toWire(symbol string) string {
	return strings.ReplaceAll(symbol, "-", ".")
}

// Config holds credentials and endpoints for the Alpaca client.
type Config struct {
	BaseURL   string
	APIKey    string
	APISecret string
	Feed      string
	Timeout   time.Duration
}

// Client is the REST client for the Alpaca market data API. It implements
// domain.PriceSource.
type Client struct {
	baseURL    string
	apiKey     string
	apiSecret  string
	feed       string
	httpClient *http.Client
	now        func() time.Time
}

// NewClient creates a new Alpaca market data client.
func NewClient(cfg Config) *Client {
	return &Client{
		baseURL:   strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:    cfg.APIKey,
		apiSecret: cfg.APISecret,
		feed:      cfg.Feed,
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
		now: time.Now,
	}
}

// Name identifies this source in logs and resolution errors.
func (c *Client) Name() string { return sourceName }

// BatchLimit returns the maximum symbols per Snapshots call.
func (c *Client) BatchLimit() int { return snapshotBatchLimit }

// Snapshots fetches current prices for the given symbols in one batch call.
// For each symbol the price is the latest trade, falling back to the daily
// bar close and then the previous daily close. Symbols with no usable price
// are omitted from the result rather than reported as zero.
func (c *Client) Snapshots(ctx context.Context, symbols []string) (map[string]domain.Quote, error) {
	if len(symbols) == 0 {
		return map[string]domain.Quote{}, nil
	}

	wire := make([]string, len(symbols))
	canonical := make(map[string]string, len(symbols))
	for i, sym := range symbols {
		w := toWire(sym)
		wire[i] = w
		canonical[w] = sym
	}

	params := url.Values{}
	params.Set("symbols", strings.Join(wire, ","))
	if c.feed != "" {
		params.Set("feed", c.feed)
	}

	body, err := c.get(ctx, "/v2/stocks/snapshots?"+params.Encode())
	if err != nil {
		return nil, fmt.Errorf("alpaca: snapshots: %w", err)
	}

	var snaps map[string]snapshot
	if err := json.Unmarshal(body, &snaps); err != nil {
		return nil, fmt.Errorf("alpaca: decode snapshots: %w", err)
	}

	resolvedAt := c.now()
	quotes := make(map[string]domain.Quote, len(snaps))
	for wireSym, snap := range snaps {
		price, ok := snapshotPrice(snap)
		if !ok {
			continue
		}
		sym, ok := canonical[wireSym]
		if !ok {
			sym = wireSym
		}
		quotes[sym] = domain.Quote{
			Symbol:     sym,
			Price:      price,
			ResolvedAt: resolvedAt,
		}
	}

	return quotes, nil
}

// HistoricalClose returns the daily close for symbol on the trading day
// starting at day. until bounds the request window so providers that treat
// the end date as exclusive still return the target day's bar. The first
// bar in the window is the close of record; domain.ErrNoData is returned
// when the window holds no bars.
func (c *Client) HistoricalClose(ctx context.Context, symbol string, day, until time.Time) (float64, error) {
	params := url.Values{}
	params.Set("timeframe", "1Day")
	params.Set("start", day.UTC().Format("2006-01-02"))
	params.Set("end", until.UTC().Format("2006-01-02"))
	params.Set("limit", "1")
	if c.feed != "" {
		params.Set("feed", c.feed)
	}

	path := fmt.Sprintf("/v2/stocks/%s/bars?%s", url.PathEscape(toWire(symbol)), params.Encode())
	body, err := c.get(ctx, path)
	if err != nil {
		return 0, fmt.Errorf("alpaca: bars %s: %w", symbol, err)
	}

	var resp barsResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return 0, fmt.Errorf("alpaca: decode bars: %w", err)
	}

	if len(resp.Bars) == 0 || resp.Bars[0].Close <= 0 {
		return 0, fmt.Errorf("alpaca: bars %s: %w", symbol, domain.ErrNoData)
	}

	return resp.Bars[0].Close, nil
}

// History returns the daily close series for symbol over [from, until),
// oldest first. Used as forecaster input.
func (c *Client) History(ctx context.Context, symbol string, from, until time.Time) (domain.HistoricalSeries, error) {
	params := url.Values{}
	params.Set("timeframe", "1Day")
	params.Set("start", from.UTC().Format("2006-01-02"))
	params.Set("end", until.UTC().Format("2006-01-02"))
	params.Set("limit", "10000")
	if c.feed != "" {
		params.Set("feed", c.feed)
	}

	path := fmt.Sprintf("/v2/stocks/%s/bars?%s", url.PathEscape(toWire(symbol)), params.Encode())
	body, err := c.get(ctx, path)
	if err != nil {
		return domain.HistoricalSeries{}, fmt.Errorf("alpaca: history %s: %w", symbol, err)
	}

	var resp barsResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return domain.HistoricalSeries{}, fmt.Errorf("alpaca: decode history: %w", err)
	}
	if len(resp.Bars) == 0 {
		return domain.HistoricalSeries{}, fmt.Errorf("alpaca: history %s: %w", symbol, domain.ErrNoData)
	}

	series := domain.HistoricalSeries{
		Symbol: symbol,
		Dates:  make([]time.Time, 0, len(resp.Bars)),
		Closes: make([]float64, 0, len(resp.Bars)),
	}
	for _, b := range resp.Bars {
		ts, err := time.Parse(time.RFC3339, b.Timestamp)
		if err != nil {
			return domain.HistoricalSeries{}, fmt.Errorf("alpaca: parse bar timestamp %q: %w", b.Timestamp, err)
		}
		series.Dates = append(series.Dates, ts)
		series.Closes = append(series.Closes, b.Close)
	}
	return series, nil
}

// get builds, sends, and reads an authenticated GET request.
func (c *Client) get(ctx context.Context, path string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("Accept", "application/json")
	req.Header.Set("APCA-API-KEY-ID", c.apiKey)
	req.Header.Set("APCA-API-SECRET-KEY", c.apiSecret)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &domain.ResolveError{Source: sourceName, Transient: true, Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &domain.ResolveError{Source: sourceName, Transient: true, Err: fmt.Errorf("read response: %w", err)}
	}

	if err := checkStatus(resp.StatusCode, body); err != nil {
		return nil, err
	}

	return body, nil
}

// checkStatus maps non-2xx HTTP status codes to resolution errors. Rate
// limits and server errors are transient; auth and request errors are not.
func checkStatus(statusCode int, body []byte) error {
	if statusCode >= 200 && statusCode < 300 {
		return nil
	}

	var apiErr errorResponse
	_ = json.Unmarshal(body, &apiErr)
	msg := apiErr.Message
	if msg == "" {
		msg = "HTTP " + strconv.Itoa(statusCode)
	}

	transient := statusCode == http.StatusTooManyRequests || statusCode >= 500
	return &domain.ResolveError{
		Source:    sourceName,
		Transient: transient,
		Err:       fmt.Errorf("status %d: %s", statusCode, msg),
	}
}

// snapshotPrice picks the best available price from a snapshot: the latest
// trade, then today's bar close, then the previous daily close.
func snapshotPrice(s snapshot) (float64, bool) {
	if s.LatestTrade != nil && s.LatestTrade.Price > 0 {
		return s.LatestTrade.Price, true
	}
	if s.DailyBar != nil && s.DailyBar.Close > 0 {
		return s.DailyBar.Close, true
	}
	if s.PrevDaily != nil && s.PrevDaily.Close > 0 {
		return s.PrevDaily.Close, true
	}
	return 0, false
}

// Compile-time interface check.
var _ domain.PriceSource = (*Client)(nil)
