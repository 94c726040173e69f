package vci

import (
	"errors"
	"testing"
	"time"

	"vciquote/internal/marketdata"
)

func TestComputeRange_DailySpan(t *testing.T) {
	now := time.Date(2024, 6, 1, 10, 0, 0, 0, vnLocation)

	endStamp, countBack, err := computeRange("2024-01-01", "2024-01-10", marketdata.Interval1D, now)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if countBack != 9 {
		t.Fatalf("countBack = %d, want 9", countBack)
	}
	// "to" boundary is padded by one day to include the final day
	wantStamp := time.Date(2024, 1, 11, 0, 0, 0, 0, vnLocation).Unix()
	if endStamp != wantStamp {
		t.Fatalf("endStamp = %d, want %d", endStamp, wantStamp)
	}
}

func TestComputeRange_SameDayClampsToOne(t *testing.T) {
	now := time.Date(2024, 6, 1, 10, 0, 0, 0, vnLocation)

	for _, interval := range []marketdata.Interval{marketdata.Interval1D, marketdata.Interval1W, marketdata.Interval1M} {
		_, countBack, err := computeRange("2024-01-01", "2024-01-01", interval, now)
		if err != nil {
			t.Fatalf("%s: unexpected error: %v", interval, err)
		}
		if countBack != 1 {
			t.Fatalf("%s: countBack = %d, want 1 (clamped)", interval, countBack)
		}
	}
}

func TestComputeRange_StartAfterEnd(t *testing.T) {
	now := time.Date(2024, 6, 1, 10, 0, 0, 0, vnLocation)

	_, _, err := computeRange("2024-02-01", "2024-01-01", marketdata.Interval1D, now)
	if !errors.Is(err, marketdata.ErrInvalidRange) {
		t.Fatalf("err = %v, want ErrInvalidRange", err)
	}
}

func TestComputeRange_OpenEndUsesNow(t *testing.T) {
	now := time.Date(2024, 1, 11, 0, 0, 0, 0, vnLocation)

	endStamp, countBack, err := computeRange("2024-01-01", "", marketdata.Interval1D, now)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if countBack != 10 {
		t.Fatalf("countBack = %d, want 10", countBack)
	}
	if want := now.AddDate(0, 0, 1).Unix(); endStamp != want {
		t.Fatalf("endStamp = %d, want %d", endStamp, want)
	}
}

func TestLookbackCount_PerInterval(t *testing.T) {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, vnLocation)
	end := time.Date(2024, 1, 15, 0, 0, 0, 0, vnLocation) // 14 days, 336h

	cases := []struct {
		interval marketdata.Interval
		want     int
	}{
		{marketdata.Interval1D, 14},
		{marketdata.Interval1W, 2},
		{marketdata.Interval1M, 1}, // clamped from 0 months
		{marketdata.Interval1H, 336},
		{marketdata.Interval1m, 336 * 60},
		{marketdata.Interval5m, 336 * 60 / 5},
		{marketdata.Interval15m, 336 * 60 / 15},
		{marketdata.Interval30m, 336 * 60 / 30},
	}
	for _, tc := range cases {
		if got := lookbackCount(start, end, tc.interval); got != tc.want {
			t.Errorf("%s: lookbackCount = %d, want %d", tc.interval, got, tc.want)
		}
	}
}

func TestLookbackCount_MonthsAcrossYears(t *testing.T) {
	start := time.Date(2022, 11, 1, 0, 0, 0, 0, vnLocation)
	end := time.Date(2024, 2, 1, 0, 0, 0, 0, vnLocation)

	if got := lookbackCount(start, end, marketdata.Interval1M); got != 15 {
		t.Fatalf("lookbackCount = %d, want 15", got)
	}
}

func TestLookbackCount_UnknownIntervalFallsBack(t *testing.T) {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, vnLocation)
	end := time.Date(2024, 2, 1, 0, 0, 0, 0, vnLocation)

	if got := lookbackCount(start, end, marketdata.Interval("3D")); got != fallbackCountBack {
		t.Fatalf("lookbackCount = %d, want fallback %d", got, fallbackCountBack)
	}
}

func TestLookbackCount_MonotonicInSpan(t *testing.T) {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, vnLocation)

	for _, interval := range marketdata.Intervals {
		prev := 0
		for days := 0; days <= 120; days += 3 {
			end := start.AddDate(0, 0, days)
			got := lookbackCount(start, end, interval)
			if got < prev {
				t.Fatalf("%s: count decreased from %d to %d at %d days", interval, prev, got, days)
			}
			prev = got
		}
	}
}
