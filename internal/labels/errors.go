package labels

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
)

// Reason classifies a mutation failure for the dispatcher's retry decision.
type Reason string

const (
	ReasonAuth     Reason = "auth"
	ReasonNotFound Reason = "not_found"
	ReasonTimeout  Reason = "timeout"
	ReasonUnknown  Reason = "unknown"
)

// MutationError wraps a label store failure with a classified reason. The
// mutator never retries these; retry policy belongs to the queue's
// redelivery contract via the dispatcher.
type MutationError struct {
	Reason Reason
	Err    error
}

func (e *MutationError) Error() string {
	return fmt.Sprintf("mutation failed (%s): %v", e.Reason, e.Err)
}

func (e *MutationError) Unwrap() error {
	return e.Err
}

// statusCoder is implemented by store errors that carry an HTTP status.
// Declared here rather than importing the store implementation so the
// store can depend on this package's Store interface.
type statusCoder interface {
	HTTPStatus() int
}

// classify maps a store error onto the failure taxonomy.
func classify(err error) Reason {
	if errors.Is(err, context.DeadlineExceeded) {
		return ReasonTimeout
	}

	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		return ReasonTimeout
	}

	var sc statusCoder
	if errors.As(err, &sc) {
		switch sc.HTTPStatus() {
		case http.StatusUnauthorized, http.StatusForbidden:
			return ReasonAuth
		case http.StatusNotFound, http.StatusGone:
			return ReasonNotFound
		}
	}

	return ReasonUnknown
}

// wrapStoreError converts a store failure into a MutationError.
func wrapStoreError(err error) error {
	if err == nil {
		return nil
	}
	return &MutationError{Reason: classify(err), Err: err}
}
