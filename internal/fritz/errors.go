package fritz

import (
	"errors"
	"fmt"
)

var (
	// ErrUnreachable means no connection could be established. Fatal to Init.
	ErrUnreachable = errors.New("device unreachable")
	// ErrUnsupportedBaseline means the device does not answer the baseline
	// status operation. Fatal to Init.
	ErrUnsupportedBaseline = errors.New("status information via UPnP is not enabled")
	// ErrEnumerationOverflow means an indexed action did not terminate
	// within the configured iteration cap.
	ErrEnumerationOverflow = errors.New("enumeration did not terminate")
	// ErrNotInitialized means Read was called before a successful Init.
	ErrNotInitialized = errors.New("collector not initialized")
)

// AuthError reports a rejected or malformed authenticated probe. Init
// fails as a whole; the plain connection is dropped too.
type AuthError struct {
	Address    string
	Underlying error
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("authentication against %s failed (check password): %v", e.Address, e.Underlying)
}

func (e *AuthError) Unwrap() error { return e.Underlying }

// InvalidDataError reports a malformed response during a single
// invocation. It aborts the current cycle; the caller reconnects before
// the next one.
type InvalidDataError struct {
	Service    string
	Action     string
	Underlying error
}

func (e *InvalidDataError) Error() string {
	return fmt.Sprintf("invalid data from %s/%s: %v", e.Service, e.Action, e.Underlying)
}

func (e *InvalidDataError) Unwrap() error { return e.Underlying }

// ConversionError reports a raw value outside a conversion's expected
// domain. The affected point is dropped; the cycle continues.
type ConversionError struct {
	Field string
	Raw   any
	Cause string
}

func (e *ConversionError) Error() string {
	return fmt.Sprintf("cannot convert %s value %v (%T): %s", e.Field, e.Raw, e.Raw, e.Cause)
}
