package marketdata

import (
	"bytes"
	"context"
	"encoding/json"
	"time"
)

// Bar is one normalized OHLCV record for a fixed time bucket.
type Bar struct {
	Time      time.Time `json:"time"`
	Open      float64   `json:"open"`
	High      float64   `json:"high"`
	Low       float64   `json:"low"`
	Close     float64   `json:"close"`
	Volume    int64     `json:"volume"`
	Symbol    string    `json:"symbol"`
	AssetType string    `json:"asset_type"`
	Source    string    `json:"source"`
	Interval  Interval  `json:"interval"`
}

// Tick is one individual trade/match record. Rows keep the order the
// provider returned them in.
type Tick struct {
	Time      time.Time `json:"time"`
	Price     float64   `json:"price"`
	Volume    int64     `json:"volume"`
	MatchType string    `json:"match_type"`
	Symbol    string    `json:"symbol"`
	AssetType string    `json:"asset_type"`
	Source    string    `json:"source"`
}

// DepthLevel is the accumulated matched volume at one price step of the
// order book.
type DepthLevel struct {
	Price         float64 `json:"price"`
	AccVolume     int64   `json:"acc_volume"`
	AccBuyVolume  int64   `json:"acc_buy_volume"`
	AccSellVolume int64   `json:"acc_sell_volume"`
	Source        string  `json:"source"`
}

// SessionState is the provider's data-availability phase.
type SessionState string

const (
	SessionPreparing SessionState = "preparing"
	SessionOpen      SessionState = "open"
	SessionBreak     SessionState = "break"
	SessionClosed    SessionState = "closed"
)

// MarketStatus is a read-only snapshot of the current market session.
type MarketStatus struct {
	IsTradingHour bool         `json:"is_trading_hour"`
	DataStatus    SessionState `json:"data_status"`
	Time          time.Time    `json:"time"`
}

// HistoryRequest describes one historical price query. End empty means "now".
// CountBack zero means "derive from the Start..End span". Floating is the
// number of decimal digits for price columns; zero or negative means the
// default of 2.
type HistoryRequest struct {
	Start     string
	End       string
	Interval  Interval
	CountBack int
	Floating  int
}

// IntradayRequest describes one trade-tick page query. PageSize zero means
// the provider default of 100. LastTime, when set, truncates the page to
// records after that time.
type IntradayRequest struct {
	PageSize int
	LastTime string
}

// Provider is the normalized surface of a single-instrument data source.
// Implementations hold only immutable per-instrument configuration and are
// safe for concurrent calls.
type Provider interface {
	Symbol() string
	History(ctx context.Context, req HistoryRequest) ([]Bar, error)
	Intraday(ctx context.Context, req IntradayRequest) ([]Tick, error)
	PriceDepth(ctx context.Context) ([]DepthLevel, error)
}

// RecordsJSON serializes a record slice as an ordered JSON array, the raw
// form callers can request instead of typed rows.
func RecordsJSON(records any) (string, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(records); err != nil {
		return "", err
	}
	return string(bytes.TrimRight(buf.Bytes(), "\n")), nil
}
