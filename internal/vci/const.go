package vci

import "vciquote/internal/marketdata"

// Source is the tag stamped on every record returned by this package.
const Source = "VCI"

const (
	defaultBaseURL = "https://trading.vietcap.com.vn/api/"

	chartPath    = "chart/OHLCChart/gap-chart"
	intradayPath = "market-watch"

	tickEndpoint  = intradayPath + "/LEData/getAll"
	depthEndpoint = intradayPath + "/AccumulatedPriceStepVol/getSymbolData"
)

// Provider timeframe buckets. Eight fine interval labels collapse onto
// these three; weekly and monthly bars are derived client-side from daily
// data.
const (
	timeframeMinute = "ONE_MINUTE"
	timeframeHour   = "ONE_HOUR"
	timeframeDay    = "ONE_DAY"
)

var timeframeByInterval = map[marketdata.Interval]string{
	marketdata.Interval1m:  timeframeMinute,
	marketdata.Interval5m:  timeframeMinute,
	marketdata.Interval15m: timeframeMinute,
	marketdata.Interval30m: timeframeMinute,
	marketdata.Interval1H:  timeframeHour,
	marketdata.Interval1D:  timeframeDay,
	marketdata.Interval1W:  timeframeDay,
	marketdata.Interval1M:  timeframeDay,
}

// indexBySymbol maps index aliases to the provider-native codes. The table
// is closed; an alias outside it is rejected.
var indexBySymbol = map[string]string{
	"VNINDEX":    "VNINDEX",
	"HNXINDEX":   "HNXIndex",
	"UPCOMINDEX": "HNXUpcomIndex",
}

// depthColumns is the fixed rename table for order-book depth payloads.
// Every key must be present in the raw records.
var depthColumns = []struct {
	Key  string
	Name string
}{
	{"priceStep", "price"},
	{"accumulatedVolume", "acc_volume"},
	{"accumulatedBuyVolume", "acc_buy_volume"},
	{"accumulatedSellVolume", "acc_sell_volume"},
}

// pageSizeWarnThreshold is the intraday page size above which a request is
// permitted but logged as discouraged.
const pageSizeWarnThreshold = 30_000

// fallbackCountBack is used when the lookback derivation sees an interval
// label it does not recognize. Unreachable after interval validation, kept
// as the documented default rather than a panic.
const fallbackCountBack = 30

const defaultFloating = 2
