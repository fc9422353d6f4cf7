package reencode

import "errors"

var (
	// ErrInvalidMaxAttempts is returned when maxAttempts is <= 0
	ErrInvalidMaxAttempts = errors.New("maxAttempts must be greater than 0")

	// ErrInvalidConfig is returned when a Config fails validation
	ErrInvalidConfig = errors.New("invalid reencode config")
)
