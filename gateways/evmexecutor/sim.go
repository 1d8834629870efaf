package evmexecutor

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"math/big"
	"sync"

	commonerrors "github.com/crosslane/bridge-orchestrator/common/errors"
	"github.com/crosslane/bridge-orchestrator/common/types"
	"github.com/pkg/errors"
)

// Simulator is the deterministic DestinationExecutor. It keeps the
// destination contract's books in memory: the token registry, per-address
// balances and the replay guard over executed transfer ids.
type Simulator struct {
	mu       sync.Mutex
	tokens   map[string]types.TokenInfo
	balances map[string]map[string]*big.Float
	executed map[string]string

	// revertNext forces the next Execute call to fail as a contract revert.
	revertNext bool
}

// NewSimulator creates an executor simulator with an empty token registry.
func NewSimulator() *Simulator {
	return &Simulator{
		tokens:   make(map[string]types.TokenInfo),
		balances: make(map[string]map[string]*big.Float),
		executed: make(map[string]string),
	}
}

// SupportToken registers a token with the simulated contract.
func (s *Simulator) SupportToken(info types.TokenInfo) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tokens[info.Symbol] = info
}

// RevertNextExecution makes the next Execute call fail like a contract
// revert would.
func (s *Simulator) RevertNextExecution() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.revertNext = true
}

// DecodeMessage validates and decodes a relayed payload.
func (s *Simulator) DecodeMessage(payload string) (*types.TransferIntent, error) {
	return DecodeTransferMessage(payload)
}

// LookupToken returns the contract's record for a symbol.
func (s *Simulator) LookupToken(_ context.Context, symbol string) (*types.TokenInfo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	info, ok := s.tokens[symbol]
	if !ok {
		return nil, errors.Wrapf(commonerrors.ErrUnsupportedToken, "no record for symbol %q", symbol)
	}
	return &info, nil
}

// Execute mints the transfer amount to the intent's recipient. The replay
// guard lives here, in the contract: a second call with the same transfer
// id fails with ErrDuplicateExecution and does not double-mint.
func (s *Simulator) Execute(_ context.Context, intent *types.TransferIntent) (*types.ExecutionResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.revertNext {
		s.revertNext = false
		return nil, errors.Wrap(commonerrors.ErrExecution, "execution reverted")
	}

	if _, ok := s.tokens[intent.TokenSymbol]; !ok {
		return nil, errors.Wrapf(commonerrors.ErrUnsupportedToken, "no record for symbol %q", intent.TokenSymbol)
	}
	if prior, done := s.executed[intent.TransferID]; done {
		return nil, errors.Wrapf(commonerrors.ErrDuplicateExecution,
			"transfer %s already executed in tx %s", intent.TransferID, prior)
	}

	amount, ok := new(big.Float).SetString(intent.Amount)
	if !ok {
		return nil, errors.Wrap(commonerrors.ErrExecution, "malformed amount")
	}

	holders, ok := s.balances[intent.TokenSymbol]
	if !ok {
		holders = make(map[string]*big.Float)
		s.balances[intent.TokenSymbol] = holders
	}
	balance, ok := holders[intent.DestinationAddress]
	if !ok {
		balance = big.NewFloat(0)
		holders[intent.DestinationAddress] = balance
	}
	balance.Add(balance, amount)

	digest := sha256.Sum256([]byte(intent.TransferID))
	txHash := "0x" + hex.EncodeToString(digest[:])
	s.executed[intent.TransferID] = txHash

	return &types.ExecutionResult{
		TxHash: txHash,
		Events: []types.ExecutionEvent{{
			Name:       "TokensMinted",
			Recipient:  intent.DestinationAddress,
			Amount:     intent.Amount,
			TransferID: intent.TransferID,
		}},
	}, nil
}

// GetTokenBalance reads a holder's balance for reconciliation.
func (s *Simulator) GetTokenBalance(_ context.Context, address, symbol string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	holders, ok := s.balances[symbol]
	if !ok {
		return "0", nil
	}
	balance, ok := holders[address]
	if !ok {
		return "0", nil
	}
	return types.FormatAmount(balance), nil
}
