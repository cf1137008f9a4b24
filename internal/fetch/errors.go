package fetch

import (
	"context"
	"errors"
	"fmt"
)

// Kind classifies a fetch failure.
type Kind int

const (
	KindTimeout Kind = iota
	KindHTTP
	KindParse
)

func (k Kind) String() string {
	switch k {
	case KindTimeout:
		return "timeout"
	case KindHTTP:
		return "http_error"
	case KindParse:
		return "parse_error"
	default:
		return "unknown"
	}
}

// Error is a typed fetch failure from an upstream source.
type Error struct {
	Kind   Kind
	Source string
	Status int // HTTP status, set for KindHTTP
	Cause  error
}

func (e *Error) Error() string {
	switch e.Kind {
	case KindHTTP:
		return fmt.Sprintf("%s: upstream returned status %d", e.Source, e.Status)
	case KindTimeout:
		return fmt.Sprintf("%s: request timed out: %v", e.Source, e.Cause)
	default:
		return fmt.Sprintf("%s: %s: %v", e.Source, e.Kind, e.Cause)
	}
}

func (e *Error) Unwrap() error { return e.Cause }

// MissingCredentialError indicates a source requires an API key that was
// not configured. It is scoped to one source and must never take the
// whole dashboard down.
type MissingCredentialError struct {
	Source string
}

func (e *MissingCredentialError) Error() string {
	return fmt.Sprintf("%s: missing API credential", e.Source)
}

// wrap converts an arbitrary transport error into a typed Error.
func wrap(source string, err error) *Error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return &Error{Kind: KindTimeout, Source: source, Cause: err}
	}
	return &Error{Kind: KindHTTP, Source: source, Cause: err}
}

// Outcome returns the metrics label for an error, "success" for nil.
func Outcome(err error) string {
	if err == nil {
		return "success"
	}
	var fe *Error
	if errors.As(err, &fe) {
		return fe.Kind.String()
	}
	var mc *MissingCredentialError
	if errors.As(err, &mc) {
		return "missing_credential"
	}
	return "unknown"
}
