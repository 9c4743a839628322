package thread

import (
	"errors"
	"fmt"
)

// ErrorKind classifies a failed fetch into the closed taxonomy every
// consumer switches over. New kinds must be handled at every call site.
type ErrorKind int

const (
	// KindNotFound means the post was deleted or the identifier is unknown.
	KindNotFound ErrorKind = iota

	// KindBlocked means the viewer is blocked by the author or vice versa.
	KindBlocked

	// KindRateLimited means the upstream API asked us to back off.
	KindRateLimited

	// KindTransient covers network failures and upstream 5xx responses.
	// Safe to retry.
	KindTransient

	// KindMalformed means the response did not match the expected shape.
	// Fatal for the request; retrying will not help.
	KindMalformed

	// KindInvalidInput means the handle, post id, or URL failed validation
	// before any fetch was issued.
	KindInvalidInput
)

func (k ErrorKind) String() string {
	switch k {
	case KindNotFound:
		return "not_found"
	case KindBlocked:
		return "blocked"
	case KindRateLimited:
		return "rate_limited"
	case KindTransient:
		return "transient"
	case KindMalformed:
		return "malformed"
	case KindInvalidInput:
		return "invalid_input"
	default:
		return "unknown"
	}
}

// FetchError is the error type crossing the Fetcher boundary.
type FetchError struct {
	Kind ErrorKind

	// Message is a human-readable description of what failed.
	Message string

	// Err is the underlying cause, if any.
	Err error
}

func (e *FetchError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// Errorf builds a FetchError of the given kind.
func Errorf(kind ErrorKind, format string, args ...any) *FetchError {
	return &FetchError{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// WrapError builds a FetchError of the given kind wrapping a cause.
func WrapError(kind ErrorKind, err error, format string, args ...any) *FetchError {
	return &FetchError{Kind: kind, Message: fmt.Sprintf(format, args...), Err: err}
}

// KindOf extracts the taxonomy kind from an error chain. Errors that did
// not originate at the fetch boundary report as transient, the only safe
// default for an unclassified failure.
func KindOf(err error) ErrorKind {
	var fe *FetchError
	if errors.As(err, &fe) {
		return fe.Kind
	}
	return KindTransient
}
