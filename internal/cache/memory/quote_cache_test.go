package memory

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestQuoteCache_MissOnEmpty(t *testing.T) {
	c := NewQuoteCache(5 * time.Minute)

	_, found, fresh := c.Get(context.Background(), "AAPL")
	assert.False(t, found)
	assert.False(t, fresh)
}

func TestQuoteCache_FreshWithinTTL(t *testing.T) {
	c := NewQuoteCache(5 * time.Minute)
	base := time.Date(2025, 6, 2, 15, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return base }

	c.Put(context.Background(), "AAPL", 201.50, base)

	c.now = func() time.Time { return base.Add(4 * time.Minute) }
	price, found, fresh := c.Get(context.Background(), "AAPL")
	assert.True(t, found)
	assert.True(t, fresh)
	assert.Equal(t, 201.50, price)
}

func TestQuoteCache_StaleAfterTTL(t *testing.T) {
	c := NewQuoteCache(5 * time.Minute)
	base := time.Date(2025, 6, 2, 15, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return base }

	c.Put(context.Background(), "AAPL", 201.50, base)

	// Exactly at the TTL boundary the entry is already stale.
	c.now = func() time.Time { return base.Add(5 * time.Minute) }
	price, found, fresh := c.Get(context.Background(), "AAPL")
	assert.True(t, found)
	assert.False(t, fresh)
	assert.Equal(t, 201.50, price)
}

func TestQuoteCache_PutRefreshes(t *testing.T) {
	c := NewQuoteCache(5 * time.Minute)
	base := time.Date(2025, 6, 2, 15, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return base.Add(10 * time.Minute) }

	c.Put(context.Background(), "AAPL", 200, base)
	c.Put(context.Background(), "AAPL", 205, base.Add(10*time.Minute))

	price, found, fresh := c.Get(context.Background(), "AAPL")
	assert.True(t, found)
	assert.True(t, fresh)
	assert.Equal(t, 205.0, price)
}

func TestQuoteCache_Purge(t *testing.T) {
	c := NewQuoteCache(5 * time.Minute)
	base := time.Date(2025, 6, 2, 15, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return base }

	c.Put(context.Background(), "OLD", 10, base.Add(-2*time.Hour))
	c.Put(context.Background(), "NEW", 20, base.Add(-time.Minute))

	dropped := c.Purge(time.Hour)
	assert.Equal(t, 1, dropped)
	assert.Equal(t, 1, c.Len())

	_, found, _ := c.Get(context.Background(), "OLD")
	assert.False(t, found)
	_, found, _ = c.Get(context.Background(), "NEW")
	assert.True(t, found)
}

func TestQuoteCache_ConcurrentAccess(t *testing.T) {
	c := NewQuoteCache(5 * time.Minute)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				c.Put(ctx, "SPY", float64(j), time.Now())
			}
		}()
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				c.Get(ctx, "SPY")
			}
		}()
	}
	wg.Wait()

	_, found, _ := c.Get(ctx, "SPY")
	assert.True(t, found)
}
