package domain

import "errors"

var (
	// ErrBaselineFailed is returned when the unmutated project does not pass its tests.
	ErrBaselineFailed = errors.New("baseline run failed")
	// ErrInvalidTimeout is returned for non-positive timeouts and multipliers.
	ErrInvalidTimeout = errors.New("invalid timeout")
	// ErrInvalidArgs is returned when command arguments fail validation.
	ErrInvalidArgs = errors.New("invalid arguments")
)
