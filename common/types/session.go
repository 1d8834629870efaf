package types

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"sync"
	"time"

	"github.com/crosslane/bridge-orchestrator/common/errors"
)

// StepResult records the outcome of one pipeline step. It is written exactly
// once per step per session; only an explicit retry may replace a prior
// failed result.
//
// Fields:
// - Name: the step name, unique within a session.
// - Success: whether the step's gateway call succeeded.
// - Payload: the step-specific result (a ledger tx hash, a relay request or
//   message id, a destination tx hash).
// - Verification: the reconciliation record, set only by the verification step.
// - Kind: the failure classification, empty on success.
// - Err: the failure detail, empty on success.
// - StartedAt, FinishedAt: step timing.
type StepResult struct {
	Name         string
	Success      bool
	Payload      string
	Verification *VerificationRecord
	Kind         errors.ErrorKind
	Err          string
	StartedAt    time.Time
	FinishedAt   time.Time
}

// Duration returns how long the step ran.
func (r *StepResult) Duration() time.Duration {
	return r.FinishedAt.Sub(r.StartedAt)
}

// TransferSession is the mutable state of one transfer. It is owned
// exclusively by the orchestrator for the session's lifetime; the mutex
// exists so reports and the session registry can read it safely while the
// pipeline runs.
type TransferSession struct {
	TransferID string
	Params     TransferParams
	CreatedAt  time.Time

	mu      sync.RWMutex
	status  SessionState
	results []StepResult
}

// NewTransferSession creates a session in the INIT state with a freshly
// generated transfer id of the form <prefix>-<millis>-<6-char-suffix>.
func NewTransferSession(prefix string, params TransferParams) *TransferSession {
	return &TransferSession{
		TransferID: GenerateID(prefix),
		Params:     params,
		CreatedAt:  time.Now().UTC(),
		status:     StateInit,
	}
}

// Status returns the session's current state.
func (s *TransferSession) Status() SessionState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.status
}

// SetStatus moves the session to the given state. Transitions out of a
// terminal state are ignored: a session never re-enters a non-terminal state.
func (s *TransferSession) SetStatus(state SessionState) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.status.Terminal() {
		return
	}
	s.status = state
}

// RecordResult appends a step result, preserving execution order. If a failed
// result with the same name already exists it is replaced in place, which is
// how an explicit retry overwrites its prior attempt.
func (s *TransferSession) RecordResult(result StepResult) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.results {
		if s.results[i].Name == result.Name && !s.results[i].Success {
			s.results[i] = result
			return
		}
	}
	s.results = append(s.results, result)
}

// Results returns a copy of the recorded step results in execution order.
func (s *TransferSession) Results() []StepResult {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]StepResult, len(s.results))
	copy(out, s.results)
	return out
}

// Result returns the recorded result for the named step.
func (s *TransferSession) Result(name string) (StepResult, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, r := range s.results {
		if r.Name == name {
			return r, true
		}
	}
	return StepResult{}, false
}

const idSuffixAlphabet = "abcdefghijklmnopqrstuvwxyz0123456789"

// GenerateID builds a practically unique identifier without a central
// allocator: <prefix>-<millisecond-timestamp>-<6-char-random-suffix>.
func GenerateID(prefix string) string {
	suffix := make([]byte, 6)
	max := big.NewInt(int64(len(idSuffixAlphabet)))
	for i := range suffix {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			// crypto/rand only fails when the platform entropy source is
			// broken; fall back to a timestamp-derived digit.
			suffix[i] = idSuffixAlphabet[time.Now().UnixNano()%int64(len(idSuffixAlphabet))]
			continue
		}
		suffix[i] = idSuffixAlphabet[n.Int64()]
	}
	return fmt.Sprintf("%s-%d-%s", prefix, time.Now().UnixMilli(), suffix)
}
