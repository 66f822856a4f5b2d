package soc

import (
	"errors"
	"fmt"
)

// ErrUnavailable is returned when no implementation is bound, typically because
// the hardware driver failed to initialize on a board.
var ErrUnavailable = errors.New("UNAVAILABLE")

// ErrInvalidChannel is returned when a channel option names a channel the
// board does not have.
var ErrInvalidChannel = errors.New("INVALID_CHANNEL")

// InitError records why an implementation could not be constructed while
// keeping ErrUnavailable as the observable code.
type InitError struct {
	Cause error
}

func (e *InitError) Error() string {
	return fmt.Sprintf("%v (init: %v)", ErrUnavailable, e.Cause)
}

// Unwrap lets errors.Is match both ErrUnavailable and the underlying cause.
func (e *InitError) Unwrap() []error {
	return []error{ErrUnavailable, e.Cause}
}
