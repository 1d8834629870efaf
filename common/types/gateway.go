package types

import (
	"context"
)

// SubmissionResult is the finality outcome of one ledger submission.
//
// Fields:
// - Hash: the transaction hash assigned by the ledger.
// - LedgerIndex: the ledger (block) the transaction was included in.
// - Fee: the fee actually charged, as a decimal string in native units.
// - ResultCode: the ledger's engine result code for the submission.
type SubmissionResult struct {
	Hash        string
	LedgerIndex uint64
	Fee         string
	ResultCode  string
}

// TrustLine is an account-level record enabling the ledger to hold an issued
// (non-native) asset, reported by the account_lines query.
type TrustLine struct {
	Counterparty string
	Currency     string
	Balance      string
	Limit        string
}

// LedgerGateway wraps access to the source ledger: connection lifecycle,
// balance queries and submission with narrow retry.
type LedgerGateway interface {
	// Connect acquires the network connection. Idempotent.
	Connect(ctx context.Context) error

	// Disconnect releases the connection. Idempotent and safe to defer
	// around every pipeline run.
	Disconnect() error

	// GetBalance returns the native-asset balance of the address as a
	// decimal string.
	GetBalance(ctx context.Context, address string) (string, error)

	// SubmitTransaction submits a pre-signed transaction blob and waits for
	// finality. A finality error classified as a sequence window expiry is
	// retried up to maxAttempts with a fixed backoff; every other error
	// propagates immediately.
	SubmitTransaction(ctx context.Context, signedBlob string, maxAttempts int) (*SubmissionResult, error)

	// GetTrustLine returns the trust-line balance for the given currency
	// and counterparty, or ok=false when no such line exists.
	GetTrustLine(ctx context.Context, address, counterparty, currency string) (*TrustLine, bool, error)
}

// RelayStatus is a point-in-time snapshot of a relay-side transfer or message.
type RelayStatus struct {
	Status          string
	ProgressPercent int
	CurrentStep     string
}

// RelayGateway wraps the interchain messaging service.
type RelayGateway interface {
	// CheckTokenRegistration returns the relay network's registration record
	// for the token, failing with ErrUnregisteredToken when the token is not
	// bridgeable between the two chains.
	CheckTokenRegistration(ctx context.Context, symbol, sourceChain, destChain string) (*TokenRegistration, error)

	// EstimateFee returns an advisory fee estimate as a decimal string.
	// Fees may drift between estimate and execution.
	EstimateFee(ctx context.Context, params *TransferParams) (string, error)

	// RequestTransfer registers an interchain transfer intent and returns
	// the relay-minted request id. Idempotency is the caller's
	// responsibility: never call twice with the same transfer id.
	RequestTransfer(ctx context.Context, params *TransferParams, transferID string) (string, error)

	// TransmitMessage sends an encoded message envelope and returns the
	// relay-minted message id.
	TransmitMessage(ctx context.Context, payload string) (string, error)

	// PollStatus returns the current status of a request or message without
	// blocking. Polling cadence and timeout are the caller's concern.
	PollStatus(ctx context.Context, id string) (*RelayStatus, error)
}

// ExecutionEvent is an event emitted by the destination contract call.
type ExecutionEvent struct {
	Name       string
	Recipient  string
	Amount     string
	TransferID string
}

// ExecutionResult is the outcome of a destination contract execution.
type ExecutionResult struct {
	TxHash string
	Events []ExecutionEvent
}

// DestinationExecutor wraps destination-chain message decoding and contract
// execution.
type DestinationExecutor interface {
	// DecodeMessage decodes and structurally validates a relayed payload,
	// failing with ErrMalformedMessage on a broken envelope.
	DecodeMessage(payload string) (*TransferIntent, error)

	// LookupToken returns the destination contract's record for a symbol,
	// failing with ErrUnsupportedToken when unknown.
	LookupToken(ctx context.Context, symbol string) (*TokenInfo, error)

	// Execute performs the mint call. Fails with ErrExecution on revert and
	// ErrDuplicateExecution when the transfer id was already processed; the
	// contract, not the orchestrator, is the source of truth for replays.
	Execute(ctx context.Context, intent *TransferIntent) (*ExecutionResult, error)

	// GetTokenBalance reads the token balance of an address for
	// reconciliation, as a decimal string.
	GetTokenBalance(ctx context.Context, address, symbol string) (string, error)
}

// Memo is an auxiliary data attachment on a ledger payment.
type Memo struct {
	Type string
	Data string
}

// PaymentIntent describes a payment for the signing collaborator to turn
// into a signed blob. Issuer and Currency are empty for native-asset sends.
type PaymentIntent struct {
	Account     string
	Destination string
	Amount      string
	Currency    string
	Issuer      string
	Memos       []Memo
}

// TransactionSigner produces a signed transaction blob from a payment
// intent. Key material stays behind this boundary; the orchestrator only
// ever sees the resulting blob.
type TransactionSigner interface {
	SignPayment(ctx context.Context, intent *PaymentIntent) (string, error)
}

// CompletionNotice is the payload handed to the notification sink when a
// session reaches a terminal state.
type CompletionNotice struct {
	TransferID  string
	Status      string
	TokenSymbol string
	Amount      string
	Destination string
	Verified    bool
}

// NotificationSink delivers completion notices. Failures are logged by the
// caller and never change a session's terminal status.
type NotificationSink interface {
	Notify(ctx context.Context, notice *CompletionNotice) error
}

// AddressStore is the injected key-value interface behind the wallet-connect
// address relay. Last write wins; Clear resets it at process stop.
type AddressStore interface {
	Set(address string)
	Get() (string, bool)
	Clear()
}
