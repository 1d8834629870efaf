package errors

import "github.com/pkg/errors"

var (
	ErrNetwork               = errors.New("network transport failure")
	ErrNotConnected          = errors.New("ledger client not connected")
	ErrInsufficientFunds     = errors.New("insufficient source balance")
	ErrUnregisteredToken     = errors.New("token not registered for bridging")
	ErrUnsupportedToken      = errors.New("token not supported on destination")
	ErrMalformedMessage      = errors.New("malformed relay message")
	ErrDuplicateExecution    = errors.New("transfer already executed on destination")
	ErrExecution             = errors.New("destination contract execution reverted")
	ErrVerificationMismatch  = errors.New("balance verification mismatch")
	ErrCancelled             = errors.New("transfer cancelled")
	ErrSequenceWindowExpired = errors.New("sequence window expired")
	ErrSubmitFailed          = errors.New("ledger submission rejected")
	ErrInvalidParams         = errors.New("invalid transfer parameters")
	ErrDatabaseConnect       = errors.New("failed to connect to database")
	ErrSessionNotFound       = errors.New("transfer session not found")
)
