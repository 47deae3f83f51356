package models

import "errors"

// Sentinel errors for the engine. External service failures are never
// represented here: those degrade through the fallback chains and reach
// the caller only as flags on the result.
var (
	// ErrInvalidInput marks a malformed or out-of-domain caller value.
	ErrInvalidInput = errors.New("invalid input")

	// ErrRateOutOfRange marks a per-km rate outside the allowed band.
	ErrRateOutOfRange = errors.New("rate per km out of range")

	// ErrInvalidPrecision marks a rate with more than two decimal digits.
	ErrInvalidPrecision = errors.New("rate precision exceeds two decimals")

	// ErrRouteResolutionFailed is terminal: start or end address could not
	// be geocoded at any fallback level.
	ErrRouteResolutionFailed = errors.New("route resolution failed")

	// ErrSearchUnavailable is the diagnostic carried when both the remote
	// and local search paths are exhausted.
	ErrSearchUnavailable = errors.New("search unavailable")
)
