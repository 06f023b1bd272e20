package domain

import (
	"errors"
	"fmt"
)

// ErrorKind classifies failures of the refresh pipeline
type ErrorKind string

// error kinds recorded in feed health
const (
	ErrConnectivity     ErrorKind = "connectivity"      // timeout, reset, DNS, TLS, bad HTTP status
	ErrMalformed        ErrorKind = "malformed"         // document can't be parsed
	ErrInvalidStructure ErrorKind = "invalid_structure" // required channel data missing
	ErrInvalidEntry     ErrorKind = "invalid_entry"     // single entry missing required fields
	ErrPersistence      ErrorKind = "persistence"       // commit or rollback failure
	ErrUnexpected       ErrorKind = "unexpected"
)

// FeedError is an error with a pipeline kind attached
type FeedError struct {
	Kind ErrorKind
	Err  error
}

// NewFeedError wraps err with the given kind
func NewFeedError(kind ErrorKind, err error) *FeedError {
	return &FeedError{Kind: kind, Err: err}
}

// Error implements error
func (e *FeedError) Error() string {
	if e.Err == nil {
		return string(e.Kind)
	}
	return fmt.Sprintf("%s: %v", e.Kind, e.Err)
}

// Unwrap returns the underlying error
func (e *FeedError) Unwrap() error {
	return e.Err
}

// KindOf returns the kind of the first FeedError in err's chain, ErrUnexpected otherwise
func KindOf(err error) ErrorKind {
	var fe *FeedError
	if errors.As(err, &fe) {
		return fe.Kind
	}
	return ErrUnexpected
}
