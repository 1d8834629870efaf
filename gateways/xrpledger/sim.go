package xrpledger

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"math/big"
	"sync"

	commonerrors "github.com/crosslane/bridge-orchestrator/common/errors"
	"github.com/crosslane/bridge-orchestrator/common/types"
	"github.com/crosslane/bridge-orchestrator/gateways/signing"
	"github.com/pkg/errors"
)

// Simulator is the deterministic LedgerGateway used in tests and dry runs.
// It enacts submissions against an in-memory account book and enforces the
// same invariants the live ledger would: sufficient funds, per-submission
// fees, finality codes.
type Simulator struct {
	mu         sync.Mutex
	connected  bool
	balances   map[string]*big.Float
	trustLines map[string][]types.TrustLine
	fee        *big.Float
	nextSeq    uint64

	// sequenceFailures injects that many sequence-window expiries before a
	// submission is allowed to succeed, for exercising the retry budget.
	sequenceFailures int
	submitAttempts   int
}

// NewSimulator creates a ledger simulator charging the given fee (decimal
// string, native units) per submission.
func NewSimulator(fee string) *Simulator {
	f, ok := new(big.Float).SetString(fee)
	if !ok {
		f = big.NewFloat(0)
	}
	return &Simulator{
		balances:   make(map[string]*big.Float),
		trustLines: make(map[string][]types.TrustLine),
		fee:        f,
		nextSeq:    1,
	}
}

// Fund sets an account's native balance.
func (s *Simulator) Fund(address, amount string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	f, ok := new(big.Float).SetString(amount)
	if !ok {
		f = big.NewFloat(0)
	}
	s.balances[address] = f
}

// SetTrustLine installs an issued-asset line on an account.
func (s *Simulator) SetTrustLine(address string, line types.TrustLine) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.trustLines[address] = append(s.trustLines[address], line)
}

// FailSubmissionsWithSequenceError makes the next n submissions fail with a
// sequence window expiry before succeeding.
func (s *Simulator) FailSubmissionsWithSequenceError(n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sequenceFailures = n
}

// SubmitAttempts reports how many submission attempts the simulator has seen.
func (s *Simulator) SubmitAttempts() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.submitAttempts
}

// Connect is idempotent, like the live gateway's.
func (s *Simulator) Connect(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.connected = true
	return nil
}

// Disconnect is idempotent and safe to defer.
func (s *Simulator) Disconnect() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.connected = false
	return nil
}

// Connected reports the connection state, for lifecycle assertions.
func (s *Simulator) Connected() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.connected
}

// GetBalance returns the account's native balance.
func (s *Simulator) GetBalance(_ context.Context, address string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.connected {
		return "", commonerrors.ErrNotConnected
	}
	balance, ok := s.balances[address]
	if !ok {
		return "0", nil
	}
	return types.FormatAmount(balance), nil
}

// SubmitTransaction enacts a signed payment against the account book. The
// retry contract mirrors the live gateway: only sequence window expiries
// consume retry budget.
func (s *Simulator) SubmitTransaction(ctx context.Context, signedBlob string, maxAttempts int) (*types.SubmissionResult, error) {
	if maxAttempts < 1 {
		maxAttempts = 1
	}

	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		result, err := s.applySubmission(signedBlob)
		if err == nil {
			return result, nil
		}
		lastErr = err
		if !errors.Is(err, commonerrors.ErrSequenceWindowExpired) {
			return nil, err
		}
	}
	return nil, lastErr
}

func (s *Simulator) applySubmission(signedBlob string) (*types.SubmissionResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.connected {
		return nil, commonerrors.ErrNotConnected
	}
	s.submitAttempts++

	if s.sequenceFailures > 0 {
		s.sequenceFailures--
		return nil, errors.Wrap(commonerrors.ErrSequenceWindowExpired, "engine result tefPAST_SEQ")
	}

	intent, err := signing.DecodeBlob(signedBlob)
	if err != nil {
		return nil, errors.Wrap(commonerrors.ErrSubmitFailed, err.Error())
	}

	amount, ok := new(big.Float).SetString(intent.Amount)
	if !ok {
		return nil, errors.Wrap(commonerrors.ErrSubmitFailed, "malformed amount")
	}

	from, ok := s.balances[intent.Account]
	if !ok {
		from = big.NewFloat(0)
		s.balances[intent.Account] = from
	}

	required := new(big.Float).Add(amount, s.fee)
	if from.Cmp(required) < 0 {
		return nil, errors.Wrapf(commonerrors.ErrInsufficientFunds,
			"account %s holds %s, needs %s", intent.Account, types.FormatAmount(from), types.FormatAmount(required))
	}

	from.Sub(from, required)
	to, ok := s.balances[intent.Destination]
	if !ok {
		to = big.NewFloat(0)
		s.balances[intent.Destination] = to
	}
	to.Add(to, amount)

	seq := s.nextSeq
	s.nextSeq++

	digest := sha256.Sum256([]byte(fmt.Sprintf("%s:%d", signedBlob, seq)))
	return &types.SubmissionResult{
		Hash:        hex.EncodeToString(digest[:]),
		LedgerIndex: 10_000_000 + seq,
		Fee:         types.FormatAmount(s.fee),
		ResultCode:  resultCodeSuccess,
	}, nil
}

// GetTrustLine looks up an issued-asset line on the account.
func (s *Simulator) GetTrustLine(_ context.Context, address, counterparty, currency string) (*types.TrustLine, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.connected {
		return nil, false, commonerrors.ErrNotConnected
	}
	for _, line := range s.trustLines[address] {
		if line.Currency == currency && line.Counterparty == counterparty {
			l := line
			return &l, true, nil
		}
	}
	return nil, false, nil
}
