package vci

import (
	"fmt"
	"time"

	"vciquote/internal/marketdata"
)

const dateLayout = "2006-01-02"

// vnLocation is the exchange wall clock. Vietnam has no DST, so the fixed
// fallback is exact when the tzdata lookup fails.
var vnLocation = loadVNLocation()

func loadVNLocation() *time.Location {
	loc, err := time.LoadLocation("Asia/Ho_Chi_Minh")
	if err != nil {
		return time.FixedZone("ICT", 7*60*60)
	}
	return loc
}

// computeRange resolves a start/end date pair into the provider's native
// pagination parameters: the "to" epoch timestamp and the lookback count.
//
// The provider has no start-date parameter, only "as-of timestamp plus N
// bars back", so the span is converted into a bar count per fine interval.
// The "to" boundary needs a one-day pad to include the final day; the count
// itself is derived from the un-padded end.
func computeRange(start, end string, interval marketdata.Interval, now time.Time) (endStamp int64, countBack int, err error) {
	startTime, err := time.ParseInLocation(dateLayout, start, vnLocation)
	if err != nil {
		return 0, 0, fmt.Errorf("parse start date %q: %w", start, err)
	}

	endTime := now.In(vnLocation)
	if end != "" {
		endTime, err = time.ParseInLocation(dateLayout, end, vnLocation)
		if err != nil {
			return 0, 0, fmt.Errorf("parse end date %q: %w", end, err)
		}
		if startTime.After(endTime) {
			return 0, 0, fmt.Errorf("%w: start %s is after end %s",
				marketdata.ErrInvalidRange, start, end)
		}
	}

	endStamp = endTime.AddDate(0, 0, 1).Unix()
	return endStamp, lookbackCount(startTime, endTime, interval), nil
}

// lookbackCount derives the bar count for the start..end span, branching on
// the fine interval label rather than the coarse timeframe bucket.
func lookbackCount(start, end time.Time, interval marketdata.Interval) int {
	var count int
	switch interval {
	case marketdata.Interval1D:
		count = wholeDays(start, end)
	case marketdata.Interval1W:
		count = wholeDays(start, end) / 7
	case marketdata.Interval1M:
		count = (end.Year()-start.Year())*12 + int(end.Month()) - int(start.Month())
	case marketdata.Interval1H:
		count = int(end.Sub(start) / time.Hour)
	case marketdata.Interval1m:
		count = int(end.Sub(start) / time.Minute)
	case marketdata.Interval5m:
		count = int(end.Sub(start)/time.Minute) / 5
	case marketdata.Interval15m:
		count = int(end.Sub(start)/time.Minute) / 15
	case marketdata.Interval30m:
		count = int(end.Sub(start)/time.Minute) / 30
	default:
		// Unreachable after interval validation; documented fallback rather
		// than an error.
		count = fallbackCountBack
	}
	if count <= 0 {
		count = 1
	}
	return count
}

func wholeDays(start, end time.Time) int {
	startDay := time.Date(start.Year(), start.Month(), start.Day(), 0, 0, 0, 0, vnLocation)
	endDay := time.Date(end.Year(), end.Month(), end.Day(), 0, 0, 0, 0, vnLocation)
	return int(endDay.Sub(startDay) / (24 * time.Hour))
}
