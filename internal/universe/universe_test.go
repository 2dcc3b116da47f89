package universe

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var discard = slog.New(slog.NewTextHandler(io.Discard, nil))

func TestContains_DefaultSet(t *testing.T) {
	u := New("", 24*time.Hour, discard)

	ok, err := u.Contains(context.Background(), "AAPL")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = u.Contains(context.Background(), "aapl")
	require.NoError(t, err)
	assert.True(t, ok, "membership is case-insensitive")

	ok, err = u.Contains(context.Background(), "NOPE")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestContains_RemoteSource(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		_, _ = w.Write([]byte(`["aapl", " MSFT ", "GME"]`))
	}))
	t.Cleanup(srv.Close)

	u := New(srv.URL, 24*time.Hour, discard)

	ok, err := u.Contains(context.Background(), "GME")
	require.NoError(t, err)
	assert.True(t, ok)

	// Default-only symbols are replaced by the remote set.
	ok, err = u.Contains(context.Background(), "SPY")
	require.NoError(t, err)
	assert.False(t, ok)

	// Second lookup served from cache.
	_, err = u.Contains(context.Background(), "MSFT")
	require.NoError(t, err)
	assert.Equal(t, int32(1), calls.Load())
}

func TestParseSymbolList(t *testing.T) {
	list, err := parseSymbolList([]byte(`["AAPL","MSFT"]`))
	require.NoError(t, err)
	assert.Equal(t, []string{"AAPL", "MSFT"}, list)

	list, err = parseSymbolList([]byte("AAPL,MSFT\nGME\n"))
	require.NoError(t, err)
	assert.Equal(t, []string{"AAPL", "MSFT", "GME"}, list)

	_, err = parseSymbolList([]byte("\n  \n"))
	assert.Error(t, err)
}

func TestContains_RefreshAfterTTL(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		_, _ = w.Write([]byte(`["AAPL"]`))
	}))
	t.Cleanup(srv.Close)

	base := time.Date(2025, 6, 2, 9, 0, 0, 0, time.UTC)
	u := New(srv.URL, time.Hour, discard)
	u.now = func() time.Time { return base }

	_, err := u.Contains(context.Background(), "AAPL")
	require.NoError(t, err)

	u.now = func() time.Time { return base.Add(2 * time.Hour) }
	_, err = u.Contains(context.Background(), "AAPL")
	require.NoError(t, err)
	assert.Equal(t, int32(2), calls.Load())
}

func TestContains_FailedRefreshKeepsCachedSet(t *testing.T) {
	var fail atomic.Bool
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if fail.Load() {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		_, _ = w.Write([]byte(`["AAPL"]`))
	}))
	t.Cleanup(srv.Close)

	base := time.Date(2025, 6, 2, 9, 0, 0, 0, time.UTC)
	u := New(srv.URL, time.Hour, discard)
	u.now = func() time.Time { return base }

	_, err := u.Contains(context.Background(), "AAPL")
	require.NoError(t, err)

	fail.Store(true)
	u.now = func() time.Time { return base.Add(2 * time.Hour) }

	ok, err := u.Contains(context.Background(), "AAPL")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestContains_InitialFetchFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	t.Cleanup(srv.Close)

	u := New(srv.URL, time.Hour, discard)
	_, err := u.Contains(context.Background(), "AAPL")
	assert.Error(t, err)
}
