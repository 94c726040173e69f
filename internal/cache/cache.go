package cache

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"vciquote/internal/marketdata"
)

// entry stores the bars of one resolved query window with expiry.
type entry struct {
	expiresAt time.Time
	bars      []marketdata.Bar
}

// Provider caches History results per (symbol, interval, window) for a TTL.
// Intraday and depth calls are session-sensitive and always pass through.
// Concurrent misses on the same key are coalesced into one upstream call.
type Provider struct {
	P        marketdata.Provider
	TTL      time.Duration
	MaxItems int

	mu    sync.RWMutex
	items map[string]entry

	sf singleflight.Group
}

func (c *Provider) Symbol() string { return c.P.Symbol() }

func (c *Provider) Intraday(ctx context.Context, req marketdata.IntradayRequest) ([]marketdata.Tick, error) {
	return c.P.Intraday(ctx, req)
}

func (c *Provider) PriceDepth(ctx context.Context) ([]marketdata.DepthLevel, error) {
	return c.P.PriceDepth(ctx)
}

// History returns cached bars when the window is still fresh.
func (c *Provider) History(ctx context.Context, req marketdata.HistoryRequest) ([]marketdata.Bar, error) {
	if c.TTL <= 0 {
		return c.P.History(ctx, req)
	}

	key := historyKey(c.P.Symbol(), req)
	now := time.Now()

	c.mu.RLock()
	e, ok := c.items[key]
	c.mu.RUnlock()
	if ok && now.Before(e.expiresAt) {
		return e.bars, nil
	}

	v, err, _ := c.sf.Do(key, func() (any, error) {
		bars, err := c.P.History(ctx, req)
		if err != nil {
			return nil, err
		}
		c.store(key, bars)
		return bars, nil
	})
	if err != nil {
		return nil, err
	}
	return v.([]marketdata.Bar), nil
}

func historyKey(symbol string, req marketdata.HistoryRequest) string {
	return fmt.Sprintf("%s|%s|%s|%s|%d|%d",
		symbol, req.Interval, req.Start, req.End, req.CountBack, req.Floating)
}

func (c *Provider) store(key string, bars []marketdata.Bar) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.items == nil {
		c.items = make(map[string]entry)
	}
	c.items[key] = entry{expiresAt: time.Now().Add(c.TTL), bars: bars}

	// best-effort cap: drop expired entries first, then arbitrary ones
	if c.MaxItems > 0 && len(c.items) > c.MaxItems {
		now := time.Now()
		for k, v := range c.items {
			if now.After(v.expiresAt) {
				delete(c.items, k)
			}
			if len(c.items) <= c.MaxItems {
				return
			}
		}
		for k := range c.items {
			if len(c.items) <= c.MaxItems {
				return
			}
			delete(c.items, k)
		}
	}
}
