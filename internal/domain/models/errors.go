package models

import "errors"

var (
	// ErrDataUnavailable is returned when every provider in the data
	// source chain has been exhausted.
	ErrDataUnavailable = errors.New("data unavailable: all providers failed")

	// ErrValidationPending marks a realized value that is not yet
	// knowable. Expected transient state, not a fault.
	ErrValidationPending = errors.New("validation pending: realized value not yet available")

	// ErrPersistenceDegraded signals the primary durable backend is
	// unreachable and the local mirror served the operation. Absorbed
	// internally; surfaced only through diagnostics.
	ErrPersistenceDegraded = errors.New("persistence degraded: primary backend unreachable, mirror used")

	// ErrDriftStale marks drift reports reused from the last successful
	// computation because the current window could not be fetched.
	ErrDriftStale = errors.New("drift computation stale: current window unavailable")

	// ErrRetrainRejected is the expected outcome of a candidate failing
	// its quality bars; the active snapshot stays in place.
	ErrRetrainRejected = errors.New("retrain rejected: candidate failed quality bars")
)
