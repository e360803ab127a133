package reconcile

import (
	"errors"
	"fmt"
)

var (
	// ErrNoChanges is returned when a save or batch has nothing to submit.
	ErrNoChanges = &ValidationError{Field: "deltas", Msg: "no changes to save"}
	// ErrBusy is returned while a submission or reconciliation is in flight.
	ErrBusy = errors.New("another operation is in progress")
	// ErrSessionClosed is returned when results arrive after the editing
	// session was torn down. Nothing was applied locally.
	ErrSessionClosed = errors.New("editing session closed")
)

// ValidationError is raised client side, before any network I/O.
type ValidationError struct {
	Field string
	Msg   string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return "validation: " + e.Msg
	}
	return fmt.Sprintf("validation: %s: %s", e.Field, e.Msg)
}

// AuthorizationError means the server rejected the authorizing secret or the
// caller's credentials.
type AuthorizationError struct {
	Msg string
}

func (e *AuthorizationError) Error() string { return "authorization: " + e.Msg }

// NetworkError covers transport failures and non-2xx responses. Status is 0
// when no response was received.
type NetworkError struct {
	Op     string
	Status int
	Err    error
}

func (e *NetworkError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("%s: status %d: %v", e.Op, e.Status, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }

// PartialBatchFailure reports that some, but not all, updates of a batch
// failed.
type PartialBatchFailure struct {
	Result BatchResult
}

func (e *PartialBatchFailure) Error() string {
	return fmt.Sprintf("%d of %d updated, %d failed", e.Result.Succeeded, e.Result.Total, e.Result.Failed)
}

func IsValidation(err error) bool {
	var v *ValidationError
	return errors.As(err, &v)
}

func IsAuthorization(err error) bool {
	var a *AuthorizationError
	return errors.As(err, &a)
}

func IsNetwork(err error) bool {
	var n *NetworkError
	return errors.As(err, &n)
}

// ErrNeedsRetry is returned by edits and saves while the driver sits in the
// Error state.
var ErrNeedsRetry = errors.New("previous operation failed, retry first")
