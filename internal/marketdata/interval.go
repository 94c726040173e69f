package marketdata

// Interval is a fine-grained bar granularity label. The set is closed;
// anything else is rejected during validation.
type Interval string

const (
	Interval1m  Interval = "1m"
	Interval5m  Interval = "5m"
	Interval15m Interval = "15m"
	Interval30m Interval = "30m"
	Interval1H  Interval = "1H"
	Interval1D  Interval = "1D"
	Interval1W  Interval = "1W"
	Interval1M  Interval = "1M"
)

// Intervals lists every accepted interval label, in display order.
var Intervals = []Interval{
	Interval1m, Interval5m, Interval15m, Interval30m,
	Interval1H, Interval1D, Interval1W, Interval1M,
}

func (i Interval) Valid() bool {
	switch i {
	case Interval1m, Interval5m, Interval15m, Interval30m,
		Interval1H, Interval1D, Interval1W, Interval1M:
		return true
	}
	return false
}

func (i Interval) String() string { return string(i) }
