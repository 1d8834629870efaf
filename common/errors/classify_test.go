package errors

import (
	"context"
	"testing"

	"github.com/pkg/errors"
)

func TestClassifyUnwrapsWrappedErrors(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want ErrorKind
	}{
		{"network", errors.Wrap(ErrNetwork, "rpc call failed"), KindNetwork},
		{"not connected", ErrNotConnected, KindNetwork},
		{"insufficient funds", errors.Wrapf(ErrInsufficientFunds, "account holds 5"), KindInsufficientFunds},
		{"unregistered token", ErrUnregisteredToken, KindUnregisteredToken},
		{"unsupported token", ErrUnsupportedToken, KindUnsupportedToken},
		{"malformed message", errors.Wrap(ErrMalformedMessage, "bad base64"), KindMalformedMessage},
		{"duplicate execution", ErrDuplicateExecution, KindDuplicateExecution},
		{"execution revert", errors.Wrap(ErrExecution, "reverted"), KindExecution},
		{"submit failed", ErrSubmitFailed, KindExecution},
		{"sequence window", errors.Wrap(ErrSequenceWindowExpired, "tefPAST_SEQ"), KindTimeout},
		{"deadline", context.DeadlineExceeded, KindTimeout},
		{"cancelled context", context.Canceled, KindCancelled},
		{"cancelled sentinel", ErrCancelled, KindCancelled},
		{"verification mismatch", ErrVerificationMismatch, KindVerificationMismatch},
		{"unknown", errors.New("something else"), KindUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Classify(tt.err); got != tt.want {
				t.Errorf("Classify() = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestFatal(t *testing.T) {
	if KindDuplicateExecution.Fatal() {
		t.Error("duplicate execution must not abort the pipeline")
	}
	for _, kind := range []ErrorKind{KindNetwork, KindInsufficientFunds, KindExecution, KindTimeout, KindUnknown} {
		if !kind.Fatal() {
			t.Errorf("%s must abort the pipeline", kind)
		}
	}
}
