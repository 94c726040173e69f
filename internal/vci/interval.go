package vci

import (
	"fmt"
	"strings"

	"vciquote/internal/marketdata"
)

// ResolveInterval validates a fine interval label and returns the provider
// timeframe bucket it belongs to.
func ResolveInterval(interval marketdata.Interval) (string, error) {
	timeframe, ok := timeframeByInterval[interval]
	if !ok {
		return "", fmt.Errorf("%w: %q, valid values: %s",
			marketdata.ErrInvalidInterval, interval, intervalList())
	}
	return timeframe, nil
}

func intervalList() string {
	labels := make([]string, len(marketdata.Intervals))
	for i, iv := range marketdata.Intervals {
		labels[i] = string(iv)
	}
	return strings.Join(labels, ", ")
}
