package vci

import (
	"fmt"
	"time"

	"vciquote/internal/marketdata"
)

// SessionFunc reports the current market session. Injectable so tests and
// alternative session clocks can replace the wall-clock schedule.
type SessionFunc func() marketdata.MarketStatus

// SessionStatus derives the HOSE session state from the exchange wall
// clock. Continuous trading runs 09:00-11:30 and 13:00-14:45 on weekdays
// with a pre-session preparation window from 08:00.
func SessionStatus(now time.Time) marketdata.MarketStatus {
	local := now.In(vnLocation)
	status := marketdata.MarketStatus{Time: local, DataStatus: marketdata.SessionClosed}

	switch local.Weekday() {
	case time.Saturday, time.Sunday:
		return status
	}

	minutes := local.Hour()*60 + local.Minute()
	switch {
	case minutes >= 8*60 && minutes < 9*60:
		status.DataStatus = marketdata.SessionPreparing
	case minutes >= 9*60 && minutes < 11*60+30:
		status.IsTradingHour = true
		status.DataStatus = marketdata.SessionOpen
	case minutes >= 11*60+30 && minutes < 13*60:
		status.DataStatus = marketdata.SessionBreak
	case minutes >= 13*60 && minutes < 14*60+45:
		status.IsTradingHour = true
		status.DataStatus = marketdata.SessionOpen
	}
	return status
}

// checkSession gates intraday-sensitive requests. Only the exact pair
// (not trading, preparing) blocks; every other combination passes.
func checkSession(status marketdata.MarketStatus) error {
	if !status.IsTradingHour && status.DataStatus == marketdata.SessionPreparing {
		return fmt.Errorf("%w: intraday data is unavailable while the session is preparing (as of %s)",
			marketdata.ErrSessionNotReady, status.Time.Format(time.DateTime))
	}
	return nil
}
