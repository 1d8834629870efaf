// Package signing holds the transaction-signing collaborator boundary. Key
// material never leaves this package; the orchestrator only consumes signed
// blobs.
package signing

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"strings"

	"github.com/crosslane/bridge-orchestrator/common/types"
	"github.com/pkg/errors"
)

// blobPrefix marks blobs produced by the local signing strategy.
const blobPrefix = "LSTX1."

// Strategy names an alternate signing path selectable per transaction type.
// The default strategy covers plain payments; ledgers that require a
// different encode-for-signing scheme register their own.
type Strategy string

const (
	// StrategyPayment is the standard wallet-sign path for payments.
	StrategyPayment Strategy = "payment"
)

// LocalSigner signs payment intents with a seed held in memory. It is the
// deterministic implementation of types.TransactionSigner used for
// development and tests; production deployments inject a remote signer
// behind the same interface.
type LocalSigner struct {
	seed []byte
}

// NewLocalSigner creates a signer from an environment-provided seed.
func NewLocalSigner(seed string) (*LocalSigner, error) {
	if seed == "" {
		return nil, errors.New("signing seed required")
	}
	return &LocalSigner{seed: []byte(seed)}, nil
}

// signedEnvelope is the canonical wire form of a locally signed payment:
// the intent plus an HMAC over its JSON encoding.
type signedEnvelope struct {
	Intent    types.PaymentIntent `json:"intent"`
	Signature string              `json:"signature"`
}

// SignPayment produces a signed transaction blob from a payment intent.
func (s *LocalSigner) SignPayment(_ context.Context, intent *types.PaymentIntent) (string, error) {
	if intent.Account == "" || intent.Destination == "" {
		return "", errors.New("payment intent missing account or destination")
	}

	body, err := json.Marshal(intent)
	if err != nil {
		return "", errors.Wrap(err, "failed to encode payment intent")
	}

	mac := hmac.New(sha256.New, s.seed)
	mac.Write(body)

	envelope, err := json.Marshal(&signedEnvelope{
		Intent:    *intent,
		Signature: hex.EncodeToString(mac.Sum(nil)),
	})
	if err != nil {
		return "", errors.Wrap(err, "failed to encode signed envelope")
	}

	return blobPrefix + base64.StdEncoding.EncodeToString(envelope), nil
}

// DecodeBlob recovers the payment intent from a locally signed blob. The
// ledger simulator uses it to enact submissions; a real ledger node decodes
// its own binary format instead.
func DecodeBlob(blob string) (*types.PaymentIntent, error) {
	if !strings.HasPrefix(blob, blobPrefix) {
		return nil, errors.Errorf("unrecognized blob format")
	}
	raw, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(blob, blobPrefix))
	if err != nil {
		return nil, errors.Wrap(err, "failed to decode blob")
	}
	var envelope signedEnvelope
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return nil, errors.Wrap(err, "failed to decode signed envelope")
	}
	if envelope.Signature == "" {
		return nil, errors.New("blob carries no signature")
	}
	return &envelope.Intent, nil
}
