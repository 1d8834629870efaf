package axelarrelay

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"math/big"
	"sync"

	commonerrors "github.com/crosslane/bridge-orchestrator/common/errors"
	"github.com/crosslane/bridge-orchestrator/common/types"
	"github.com/google/uuid"
	"github.com/pkg/errors"
)

// relayStatusSteps is the progression a simulated transfer walks through,
// one step per poll.
var relayStatusSteps = []types.RelayStatus{
	{Status: "pending", ProgressPercent: 25, CurrentStep: "source_confirmation"},
	{Status: "executing", ProgressPercent: 50, CurrentStep: "validator_attestation"},
	{Status: "executing", ProgressPercent: 75, CurrentStep: "destination_dispatch"},
	{Status: "completed", ProgressPercent: 100, CurrentStep: "done"},
}

// Simulator is the deterministic RelayGateway. It keeps the relay service's
// own books: token registrations, transfer requests, transmitted messages
// and per-id status progression.
type Simulator struct {
	mu            sync.Mutex
	registrations map[string]types.TokenRegistration
	requests      map[string]requestRecord
	messages      map[string]messageRecord
	seenNonces    map[string]string
	pollCounts    map[string]int
	baseFee       *big.Float
}

type requestRecord struct {
	TransferID string
	Params     types.TransferParams
}

type messageRecord struct {
	Payload  string
	Envelope types.MessageEnvelope
}

// NewSimulator creates a relay simulator charging the given base fee.
func NewSimulator(baseFee string) *Simulator {
	fee, ok := new(big.Float).SetString(baseFee)
	if !ok {
		fee = big.NewFloat(0)
	}
	return &Simulator{
		registrations: make(map[string]types.TokenRegistration),
		requests:      make(map[string]requestRecord),
		messages:      make(map[string]messageRecord),
		seenNonces:    make(map[string]string),
		pollCounts:    make(map[string]int),
		baseFee:       fee,
	}
}

// RegisterToken adds a bridgeable token to the relay's registry.
func (s *Simulator) RegisterToken(symbol, sourceChain, destChain string) types.TokenRegistration {
	s.mu.Lock()
	defer s.mu.Unlock()
	reg := types.TokenRegistration{
		Symbol:            symbol,
		InterchainTokenID: "itid-" + uuid.NewString(),
		SourceChain:       sourceChain,
		DestinationChain:  destChain,
		Registered:        true,
	}
	s.registrations[registrationKey(symbol, sourceChain, destChain)] = reg
	return reg
}

func registrationKey(symbol, src, dst string) string {
	return fmt.Sprintf("%s|%s|%s", symbol, src, dst)
}

// CheckTokenRegistration returns the registration record or
// ErrUnregisteredToken when the pair is not bridgeable.
func (s *Simulator) CheckTokenRegistration(_ context.Context, symbol, sourceChain, destChain string) (*types.TokenRegistration, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	reg, ok := s.registrations[registrationKey(symbol, sourceChain, destChain)]
	if !ok || !reg.Registered {
		return nil, errors.Wrapf(commonerrors.ErrUnregisteredToken,
			"%s is not bridgeable from %s to %s", symbol, sourceChain, destChain)
	}
	return &reg, nil
}

// EstimateFee returns a deterministic advisory fee: the base fee plus a
// 0.1% share of the amount. Callers must expect drift before execution.
func (s *Simulator) EstimateFee(_ context.Context, params *types.TransferParams) (string, error) {
	amount, err := types.ParseAmount(params.Amount)
	if err != nil {
		return "", errors.Wrap(commonerrors.ErrInvalidParams, err.Error())
	}
	share := new(big.Float).Quo(amount, big.NewFloat(1000))
	s.mu.Lock()
	total := new(big.Float).Add(s.baseFee, share)
	s.mu.Unlock()
	return types.FormatAmount(total), nil
}

// RequestTransfer registers a transfer intent and returns a relay-minted
// request id. The relay does not dedupe: calling twice for the same logical
// transfer creates two intents, which is why idempotency is the caller's
// responsibility.
func (s *Simulator) RequestTransfer(ctx context.Context, params *types.TransferParams, transferID string) (string, error) {
	if _, err := s.CheckTokenRegistration(ctx, params.TokenSymbol, params.SourceChain, params.DestinationChain); err != nil {
		return "", err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	requestID := "its-" + uuid.NewString()
	s.requests[requestID] = requestRecord{TransferID: transferID, Params: *params}
	return requestID, nil
}

// TransmitMessage validates the envelope structurally, rejects nonce
// replays and returns a relay-minted message id.
func (s *Simulator) TransmitMessage(_ context.Context, payload string) (string, error) {
	raw, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return "", errors.Wrap(commonerrors.ErrMalformedMessage, "payload is not valid base64")
	}
	var envelope types.MessageEnvelope
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return "", errors.Wrap(commonerrors.ErrMalformedMessage, "payload is not a message envelope")
	}
	if envelope.Nonce == "" {
		return "", errors.Wrap(commonerrors.ErrMalformedMessage, "envelope carries no nonce")
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if prior, seen := s.seenNonces[envelope.Nonce]; seen {
		return "", errors.Errorf("replayed payload, already transmitted as %s", prior)
	}
	messageID := "gmp-" + uuid.NewString()
	s.seenNonces[envelope.Nonce] = messageID
	s.messages[messageID] = messageRecord{Payload: payload, Envelope: envelope}
	return messageID, nil
}

// PollStatus advances the simulated transfer one stage per call and returns
// the snapshot. Unknown ids report a not_found status rather than an error;
// the caller owns timeout policy.
func (s *Simulator) PollStatus(_ context.Context, id string) (*types.RelayStatus, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, isRequest := s.requests[id]
	_, isMessage := s.messages[id]
	if !isRequest && !isMessage {
		return &types.RelayStatus{Status: "not_found"}, nil
	}

	idx := s.pollCounts[id]
	if idx >= len(relayStatusSteps) {
		idx = len(relayStatusSteps) - 1
	}
	s.pollCounts[id]++
	status := relayStatusSteps[idx]
	return &status, nil
}

// Message returns a transmitted message's payload, for destination-side
// delivery in tests.
func (s *Simulator) Message(messageID string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.messages[messageID]
	return rec.Payload, ok
}
