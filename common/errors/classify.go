package errors

import (
	"context"

	"github.com/pkg/errors"
)

// ErrorKind is the orchestrator-level classification of a step failure.
type ErrorKind string

const (
	KindNetwork              ErrorKind = "NETWORK"
	KindInsufficientFunds    ErrorKind = "INSUFFICIENT_FUNDS"
	KindUnregisteredToken    ErrorKind = "UNREGISTERED_TOKEN"
	KindUnsupportedToken     ErrorKind = "UNSUPPORTED_TOKEN"
	KindMalformedMessage     ErrorKind = "MALFORMED_MESSAGE"
	KindDuplicateExecution   ErrorKind = "DUPLICATE_EXECUTION"
	KindExecution            ErrorKind = "EXECUTION"
	KindTimeout              ErrorKind = "TIMEOUT"
	KindVerificationMismatch ErrorKind = "VERIFICATION_MISMATCH"
	KindCancelled            ErrorKind = "CANCELLED"
	KindUnknown              ErrorKind = "UNKNOWN"
)

// Classify maps an error raised by a gateway call to its ErrorKind.
// Wrapped errors are unwrapped with errors.Is, so gateways may add context
// with errors.Wrap without losing the classification.
func Classify(err error) ErrorKind {
	switch {
	case err == nil:
		return KindUnknown
	case errors.Is(err, context.DeadlineExceeded):
		return KindTimeout
	case errors.Is(err, context.Canceled), errors.Is(err, ErrCancelled):
		return KindCancelled
	case errors.Is(err, ErrInsufficientFunds):
		return KindInsufficientFunds
	case errors.Is(err, ErrUnregisteredToken):
		return KindUnregisteredToken
	case errors.Is(err, ErrUnsupportedToken):
		return KindUnsupportedToken
	case errors.Is(err, ErrMalformedMessage):
		return KindMalformedMessage
	case errors.Is(err, ErrDuplicateExecution):
		return KindDuplicateExecution
	case errors.Is(err, ErrExecution), errors.Is(err, ErrSubmitFailed):
		return KindExecution
	case errors.Is(err, ErrSequenceWindowExpired):
		return KindTimeout
	case errors.Is(err, ErrVerificationMismatch):
		return KindVerificationMismatch
	case errors.Is(err, ErrNetwork), errors.Is(err, ErrNotConnected):
		return KindNetwork
	default:
		return KindUnknown
	}
}

// Fatal reports whether a failure of the given kind must abort the pipeline.
// A duplicate execution means the destination effect already happened, so the
// orchestrator records it as an idempotent success instead of aborting.
func (k ErrorKind) Fatal() bool {
	return k != KindDuplicateExecution
}
