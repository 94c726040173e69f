package vci

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"vciquote/internal/marketdata"
)

// recordMeta is the tag set stamped on every normalized row.
type recordMeta struct {
	Symbol    string
	AssetType string
	Source    string
}

// chartResponse is the provider's column-array payload for one symbol.
type chartResponse struct {
	Symbol string    `json:"symbol"`
	T      []int64   `json:"t"`
	O      []float64 `json:"o"`
	H      []float64 `json:"h"`
	L      []float64 `json:"l"`
	C      []float64 `json:"c"`
	V      []float64 `json:"v"`
}

// normalizeBars converts a column-array payload into Bar rows: canonical
// names, price rounding, optional calendar resampling for weekly/monthly
// intervals, and truncation to the last countBack rows.
func normalizeBars(raw chartResponse, meta recordMeta, interval marketdata.Interval, floating, countBack int) ([]marketdata.Bar, error) {
	n := len(raw.T)
	if n == 0 {
		return nil, fmt.Errorf("%w: provider returned an empty series for %s",
			marketdata.ErrEmptyResult, meta.Symbol)
	}
	for name, col := range map[string][]float64{"o": raw.O, "h": raw.H, "l": raw.L, "c": raw.C, "v": raw.V} {
		if len(col) != n {
			return nil, fmt.Errorf("%w: column %q has %d values, want %d",
				marketdata.ErrMissingColumns, name, len(col), n)
		}
	}

	bars := make([]marketdata.Bar, n)
	for i := 0; i < n; i++ {
		bars[i] = marketdata.Bar{
			Time:      time.Unix(raw.T[i], 0).In(vnLocation),
			Open:      roundTo(raw.O[i], floating),
			High:      roundTo(raw.H[i], floating),
			Low:       roundTo(raw.L[i], floating),
			Close:     roundTo(raw.C[i], floating),
			Volume:    int64(raw.V[i]),
			Symbol:    meta.Symbol,
			AssetType: meta.AssetType,
			Source:    meta.Source,
			Interval:  interval,
		}
	}

	// Weekly and monthly bars ride on daily provider data.
	if interval == marketdata.Interval1W || interval == marketdata.Interval1M {
		bars = resampleBars(bars, interval)
	}
	if countBack > 0 && len(bars) > countBack {
		bars = bars[len(bars)-countBack:]
	}
	return bars, nil
}

// resampleBars aggregates time-ascending bars into calendar buckets:
// open=first, high=max, low=min, close=last, volume=sum. Bucket starts are
// Monday for weeks and the first of the month for months.
func resampleBars(bars []marketdata.Bar, interval marketdata.Interval) []marketdata.Bar {
	out := make([]marketdata.Bar, 0, len(bars))
	for _, bar := range bars {
		start := bucketStart(bar.Time, interval)
		if len(out) > 0 && out[len(out)-1].Time.Equal(start) {
			agg := &out[len(out)-1]
			agg.High = math.Max(agg.High, bar.High)
			agg.Low = math.Min(agg.Low, bar.Low)
			agg.Close = bar.Close
			agg.Volume += bar.Volume
			continue
		}
		bar.Time = start
		out = append(out, bar)
	}
	return out
}

func bucketStart(t time.Time, interval marketdata.Interval) time.Time {
	if interval == marketdata.Interval1M {
		return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, t.Location())
	}
	// Week starting Monday.
	offset := (int(t.Weekday()) + 6) % 7
	day := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
	return day.AddDate(0, 0, -offset)
}

func roundTo(v float64, digits int) float64 {
	pow := math.Pow10(digits)
	return math.Round(v*pow) / pow
}

// tickRecord is one raw trade/match record. truncTime arrives as either a
// number or a numeric string depending on the endpoint revision.
type tickRecord struct {
	TruncTime  any     `json:"truncTime"`
	MatchPrice float64 `json:"matchPrice"`
	MatchVol   int64   `json:"matchVol"`
	MatchType  string  `json:"matchType"`
}

// normalizeTicks renames and casts raw trade records, preserving provider
// order. No resampling.
func normalizeTicks(records []tickRecord, meta recordMeta) ([]marketdata.Tick, error) {
	ticks := make([]marketdata.Tick, len(records))
	for i, rec := range records {
		stamp, err := epochSeconds(rec.TruncTime)
		if err != nil {
			return nil, fmt.Errorf("record %d: parse truncTime: %w", i, err)
		}
		ticks[i] = marketdata.Tick{
			Time:      time.Unix(stamp, 0).In(vnLocation),
			Price:     rec.MatchPrice,
			Volume:    rec.MatchVol,
			MatchType: rec.MatchType,
			Symbol:    meta.Symbol,
			AssetType: meta.AssetType,
			Source:    meta.Source,
		}
	}
	return ticks, nil
}

func epochSeconds(v any) (int64, error) {
	switch x := v.(type) {
	case nil:
		return 0, nil
	case json.Number:
		return x.Int64()
	case string:
		return strconv.ParseInt(x, 10, 64)
	case float64:
		return int64(x), nil
	default:
		return 0, fmt.Errorf("unsupported timestamp type %T", v)
	}
}

// normalizeDepth selects the columns named in the rename table. Any
// expected key absent from the payload is a failure, not a zero fill.
func normalizeDepth(records []map[string]any) ([]marketdata.DepthLevel, error) {
	var missing []string
	for _, col := range depthColumns {
		if _, ok := records[0][col.Key]; !ok {
			missing = append(missing, col.Key)
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("%w: %s", marketdata.ErrMissingColumns, strings.Join(missing, ", "))
	}

	levels := make([]marketdata.DepthLevel, len(records))
	for i, rec := range records {
		price, err := toFloat(rec["priceStep"])
		if err != nil {
			return nil, fmt.Errorf("record %d: priceStep: %w", i, err)
		}
		acc, err := toInt(rec["accumulatedVolume"])
		if err != nil {
			return nil, fmt.Errorf("record %d: accumulatedVolume: %w", i, err)
		}
		buy, err := toInt(rec["accumulatedBuyVolume"])
		if err != nil {
			return nil, fmt.Errorf("record %d: accumulatedBuyVolume: %w", i, err)
		}
		sell, err := toInt(rec["accumulatedSellVolume"])
		if err != nil {
			return nil, fmt.Errorf("record %d: accumulatedSellVolume: %w", i, err)
		}
		levels[i] = marketdata.DepthLevel{
			Price:         price,
			AccVolume:     acc,
			AccBuyVolume:  buy,
			AccSellVolume: sell,
			Source:        Source,
		}
	}
	return levels, nil
}

func toFloat(v any) (float64, error) {
	switch x := v.(type) {
	case nil:
		return 0, nil
	case json.Number:
		return x.Float64()
	case float64:
		return x, nil
	default:
		return 0, fmt.Errorf("unsupported numeric type %T", v)
	}
}

func toInt(v any) (int64, error) {
	switch x := v.(type) {
	case nil:
		return 0, nil
	case json.Number:
		if i, err := x.Int64(); err == nil {
			return i, nil
		}
		f, err := x.Float64()
		if err != nil {
			return 0, err
		}
		return int64(f), nil
	case float64:
		return int64(x), nil
	default:
		return 0, fmt.Errorf("unsupported numeric type %T", v)
	}
}
