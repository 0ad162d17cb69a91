package domain

import "errors"

// Sentinel errors used throughout the application.
// Handlers translate these to HTTP status codes via a single mapError function.
var (
	ErrInvalidBody = errors.New("invalid JSON body")

	// ErrMissingFields deliberately carries the exact body text the dispatch
	// endpoint has always returned; triggers match on it.
	ErrMissingFields = errors.New("Missing userId or title")
)
