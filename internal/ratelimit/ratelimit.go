package ratelimit

import (
	"context"
	"sync"
	"time"

	"vciquote/internal/marketdata"
)

// MinInterval wraps a provider and enforces a minimum time between calls.
// Concurrent calls will wait until the interval has elapsed since the last call,
// or return early if the context is canceled.
type MinInterval struct {
	P        marketdata.Provider
	Interval time.Duration
	mu       sync.Mutex
	last     time.Time
}

func (m *MinInterval) Symbol() string { return m.P.Symbol() }

func (m *MinInterval) History(ctx context.Context, req marketdata.HistoryRequest) ([]marketdata.Bar, error) {
	if err := m.gate(ctx); err != nil {
		return nil, err
	}
	bars, err := m.P.History(ctx, req)
	m.mark()
	return bars, err
}

func (m *MinInterval) Intraday(ctx context.Context, req marketdata.IntradayRequest) ([]marketdata.Tick, error) {
	if err := m.gate(ctx); err != nil {
		return nil, err
	}
	ticks, err := m.P.Intraday(ctx, req)
	m.mark()
	return ticks, err
}

func (m *MinInterval) PriceDepth(ctx context.Context) ([]marketdata.DepthLevel, error) {
	if err := m.gate(ctx); err != nil {
		return nil, err
	}
	levels, err := m.P.PriceDepth(ctx)
	m.mark()
	return levels, err
}

// gate blocks until at least Interval has passed since the last call.
func (m *MinInterval) gate(ctx context.Context) error {
	if m.Interval <= 0 {
		return nil
	}
	m.mu.Lock()
	wait := time.Until(m.last.Add(m.Interval))
	m.mu.Unlock()
	if wait <= 0 {
		return nil
	}
	t := time.NewTimer(wait)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

func (m *MinInterval) mark() {
	if m.Interval <= 0 {
		return
	}
	m.mu.Lock()
	m.last = time.Now()
	m.mu.Unlock()
}
