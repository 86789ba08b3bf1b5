package cache

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/storesight/insights-crawler/internal/insights"
)

type stepClock struct {
	now time.Time
}

func (c *stepClock) Now() time.Time { return c.now }

func (c *stepClock) advance(d time.Duration) { c.now = c.now.Add(d) }

func TestCacheHitWithinTTL(t *testing.T) {
	t.Parallel()

	clk := &stepClock{now: time.Unix(1700000000, 0).UTC()}
	c := New(30*time.Minute, clk)

	entry := Entry{
		ID:     "run-1",
		Result: insights.InsightsResult{Store: insights.StoreRef{RootURL: "https://shop.example.com"}},
	}
	c.Put("https://shop.example.com", entry)

	clk.advance(29 * time.Minute)
	got, ok := c.Get("https://shop.example.com")
	require.True(t, ok)
	require.Equal(t, "run-1", got.ID)
}

func TestCacheExpiry(t *testing.T) {
	t.Parallel()

	clk := &stepClock{now: time.Unix(1700000000, 0).UTC()}
	c := New(30*time.Minute, clk)
	c.Put("https://shop.example.com", Entry{ID: "run-1"})

	clk.advance(31 * time.Minute)
	_, ok := c.Get("https://shop.example.com")
	require.False(t, ok)
	require.Equal(t, 0, c.Len())
}

func TestCacheMiss(t *testing.T) {
	t.Parallel()

	c := New(0, &stepClock{now: time.Unix(1700000000, 0).UTC()})
	_, ok := c.Get("https://other.example.com")
	require.False(t, ok)
}

func TestPutResetsTTL(t *testing.T) {
	t.Parallel()

	clk := &stepClock{now: time.Unix(1700000000, 0).UTC()}
	c := New(10*time.Minute, clk)
	c.Put("https://shop.example.com", Entry{ID: "run-1"})

	clk.advance(8 * time.Minute)
	c.Put("https://shop.example.com", Entry{ID: "run-2"})

	clk.advance(8 * time.Minute)
	got, ok := c.Get("https://shop.example.com")
	require.True(t, ok)
	require.Equal(t, "run-2", got.ID)
}
