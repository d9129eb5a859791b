// internal/fault/fault.go
//
// Every remote-calling layer in medimint converts its failures into a
// *fault.Error so the view layer can decide presentation per kind instead
// of pattern-matching free text. Nothing here is fatal: a fault always
// returns the UI to an interactive idle state.

package fault

import (
	"errors"
	"fmt"
)

// Kind classifies where in a remote workflow a failure happened.
type Kind string

const (
	// Validation failures are caught locally, pre-flight. No remote call
	// was made and retrying without changing the input is pointless.
	Validation Kind = "validation"

	// Network means the request never completed (dial, timeout, EOF).
	Network Kind = "network"

	// RemoteRejection means the remote answered with an explicit failure
	// envelope or a non-success status.
	RemoteRejection Kind = "remote_rejection"

	// UserCancelled means a wallet/signer prompt was dismissed. Views must
	// not offer a retry for this kind.
	UserCancelled Kind = "user_cancelled"

	// ExecutionReverted means an on-chain call failed after submission.
	// The transaction consumed gas; resubmitting is a manual decision.
	ExecutionReverted Kind = "execution_reverted"
)

// Error is a classified failure raised by a remote client or orchestrator.
type Error struct {
	Kind    Kind
	Op      string // short operation name, e.g. "clinic.add_slot"
	Message string // human-readable banner text
	Err     error  // underlying cause, may be nil
}

func (e *Error) Error() string {
	switch {
	case e.Message != "" && e.Err != nil:
		return fmt.Sprintf("%s: %s: %v", e.Op, e.Message, e.Err)
	case e.Message != "":
		return fmt.Sprintf("%s: %s", e.Op, e.Message)
	case e.Err != nil:
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	default:
		return e.Op
	}
}

func (e *Error) Unwrap() error { return e.Err }

// New creates a fault with a formatted message and no underlying cause.
func New(kind Kind, op, format string, args ...any) *Error {
	return &Error{Kind: kind, Op: op, Message: fmt.Sprintf(format, args...)}
}

// Wrap attaches a kind and operation to an underlying error. If err is
// already a fault its kind is preserved and only the operation chain grows.
func Wrap(kind Kind, op string, err error, message string) *Error {
	var inner *Error
	if errors.As(err, &inner) {
		kind = inner.Kind
	}
	return &Error{Kind: kind, Op: op, Message: message, Err: err}
}

// KindOf reports the classification of err. Unclassified errors count as
// Network: the only way an error reaches a caller without passing through
// a client wrapper is a transport-level failure.
func KindOf(err error) Kind {
	var fe *Error
	if errors.As(err, &fe) {
		return fe.Kind
	}
	return Network
}

// Retryable reports whether a manual retry could plausibly succeed.
// Cancellations and validation failures need user action first.
func Retryable(err error) bool {
	switch KindOf(err) {
	case UserCancelled, Validation:
		return false
	}
	return true
}
