package capture

import (
	"errors"
	"fmt"
)

// ErrNotSupported is returned when an optional operation is not supported.
var ErrNotSupported = errors.New("operation not supported")

// ErrNotAvailable is returned when the native capture library is not loaded.
var ErrNotAvailable = errors.New("capture backend not available")

// ErrLockFailed is returned when the native side refuses a buffer lock
// (already locked elsewhere, or the buffer is in an invalid state).
var ErrLockFailed = errors.New("buffer lock failed")

// ErrOutOfBounds is returned when a read reaches past a locked buffer's
// reported extent.
var ErrOutOfBounds = errors.New("read beyond buffer extent")

// ErrProtocolViolation signals a broken completion contract: a token
// resolved more than once, or a waiter polled after cancellation. With a
// correct native side this never happens.
var ErrProtocolViolation = errors.New("completion protocol violation")

// ForeignError is a failure reported by the native framework, carrying the
// human-readable message extracted from the foreign error object.
type ForeignError struct {
	Message string
}

func (e *ForeignError) Error() string {
	return "native capture error: " + e.Message
}

// foreignFailure builds a ForeignError from an extracted message, falling
// back to a fixed placeholder when the native side supplied none.
func foreignFailure(msg string) error {
	if msg == "" {
		msg = "unspecified failure"
	}
	return &ForeignError{Message: msg}
}

// wrapErr annotates err with the operation that failed.
func wrapErr(op string, err error) error {
	return fmt.Errorf("%s: %w", op, err)
}
