package marketdata

import "errors"

// Failure taxonomy shared by every provider implementation. Callers match
// with errors.Is; messages carry the offending value and, where useful, the
// accepted set.
var (
	ErrInvalidSymbol   = errors.New("invalid symbol")
	ErrInvalidInterval = errors.New("invalid interval")
	ErrInvalidRange    = errors.New("start cannot be after end")
	ErrSessionNotReady = errors.New("market session not ready")
	ErrEmptyResult     = errors.New("no data returned")
	ErrMissingColumns  = errors.New("payload missing expected columns")
)
