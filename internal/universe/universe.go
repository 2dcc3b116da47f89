// Package universe maintains the set of symbols predictions may be created
// against. The set is either a built-in default or fetched from a remote
// list (JSON array or CSV), cached for a configurable interval.
package universe

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"
)

// defaultSymbols is the built-in universe used when no source URL is
// configured.
var defaultSymbols = []string{
	"AAPL", "MSFT", "GOOGL", "AMZN", "NVDA", "META", "TSLA", "BRK-B",
	"JPM", "V", "UNH", "XOM", "JNJ", "WMT", "PG", "MA", "HD", "AVGO",
	"CVX", "MRK", "ABBV", "COST", "PEP", "KO", "ADBE", "CRM", "NFLX",
	"AMD", "INTC", "DIS", "SPY", "QQQ",
}

// Universe answers symbol membership queries. A remote source, when
// configured, is refreshed lazily once the cached set passes its TTL; fetch
// failures fall back to the last good set.
type Universe struct {
	sourceURL  string
	ttl        time.Duration
	httpClient *http.Client
	logger     *slog.Logger
	now        func() time.Time

	mu        sync.RWMutex
	symbols   map[string]bool
	fetchedAt time.Time
}

// New creates a Universe. sourceURL may be empty, in which case the built-in
// default set is used and never refreshed.
func New(sourceURL string, ttl time.Duration, logger *slog.Logger) *Universe {
	u := &Universe{
		sourceURL:  sourceURL,
		ttl:        ttl,
		httpClient: &http.Client{Timeout: 15 * time.Second},
		logger:     logger.With(slog.String("component", "universe")),
		now:        time.Now,
		symbols:    make(map[string]bool, len(defaultSymbols)),
	}
	for _, sym := range defaultSymbols {
		u.symbols[sym] = true
	}
	return u
}

// Contains reports whether symbol is part of the tracked universe. The
// symbol is matched case-insensitively.
func (u *Universe) Contains(ctx context.Context, symbol string) (bool, error) {
	if err := u.refreshIfStale(ctx); err != nil {
		return false, err
	}

	u.mu.RLock()
	defer u.mu.RUnlock()
	return u.symbols[strings.ToUpper(symbol)], nil
}

// Symbols returns a snapshot of the tracked universe.
func (u *Universe) Symbols(ctx context.Context) ([]string, error) {
	if err := u.refreshIfStale(ctx); err != nil {
		return nil, err
	}

	u.mu.RLock()
	defer u.mu.RUnlock()
	out := make([]string, 0, len(u.symbols))
	for sym := range u.symbols {
		out = append(out, sym)
	}
	return out, nil
}

// refreshIfStale refetches the remote list once the cached set is older than
// the TTL. A failed refresh keeps serving the previous set; an error is only
// returned when no set was ever loaded.
func (u *Universe) refreshIfStale(ctx context.Context) error {
	if u.sourceURL == "" {
		return nil
	}

	u.mu.RLock()
	stale := u.fetchedAt.IsZero() || u.now().Sub(u.fetchedAt) >= u.ttl
	u.mu.RUnlock()
	if !stale {
		return nil
	}

	symbols, err := u.fetch(ctx)
	if err != nil {
		u.mu.RLock()
		loaded := !u.fetchedAt.IsZero()
		u.mu.RUnlock()
		if loaded {
			u.logger.Warn("universe refresh failed, keeping cached set",
				slog.String("error", err.Error()))
			return nil
		}
		return fmt.Errorf("universe: initial fetch: %w", err)
	}

	u.mu.Lock()
	u.symbols = symbols
	u.fetchedAt = u.now()
	u.mu.Unlock()
	return nil
}

func (u *Universe) fetch(ctx context.Context) (map[string]bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.sourceURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := u.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	list, err := parseSymbolList(body)
	if err != nil {
		return nil, err
	}

	symbols := make(map[string]bool, len(list))
	for _, sym := range list {
		sym = strings.ToUpper(strings.TrimSpace(sym))
		if sym != "" {
			symbols[sym] = true
		}
	}
	return symbols, nil
}

// parseSymbolList accepts either a JSON array of strings or a CSV/line list,
// one symbol per field.
func parseSymbolList(body []byte) ([]string, error) {
	var list []string
	if err := json.Unmarshal(body, &list); err != nil {
		for _, line := range strings.Split(string(body), "\n") {
			for _, field := range strings.Split(line, ",") {
				if field = strings.TrimSpace(field); field != "" {
					list = append(list, field)
				}
			}
		}
	}
	if len(list) == 0 {
		return nil, fmt.Errorf("empty symbol list")
	}
	return list, nil
}
