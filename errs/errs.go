// Package errs defines the error-kind taxonomy shared across the installer,
// supervisor, detection engine, and switcher.
package errs

import "fmt"

// Kind classifies an Error without tying callers to a specific wrapped type.
type Kind string

const (
	NotFound        Kind = "not_found"
	InvalidArgument Kind = "invalid_argument"
	StartFailed     Kind = "start_failed"
	Timeout         Kind = "timeout"
	ProtocolError   Kind = "protocol_error"
	VersionMismatch Kind = "version_mismatch"
	Parse           Kind = "parse"
)

// Error wraps an underlying cause with the operation that failed and its Kind.
type Error struct {
	Op   string
	Kind Kind
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Op, e.Kind, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Op, e.Kind)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// New builds an *Error for op/kind, optionally wrapping cause.
func New(op string, kind Kind, cause error) *Error {
	return &Error{Op: op, Kind: kind, Err: cause}
}

// IsKind reports whether err is (or wraps) an *Error of the given Kind.
func IsKind(err error, k Kind) bool {
	for err != nil {
		if e, ok := err.(*Error); ok {
			return e.Kind == k
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			return false
		}
		err = u.Unwrap()
	}
	return false
}

// Retryable reports whether a detection probe should treat this error as
// "config infeasible, keep searching" rather than propagate it.
func Retryable(err error) bool {
	return IsKind(err, StartFailed) || IsKind(err, Timeout) || IsKind(err, ProtocolError)
}
