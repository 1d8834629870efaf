package xrpledger

import (
	"context"
	"strings"
	"time"

	commonerrors "github.com/crosslane/bridge-orchestrator/common/errors"
	"github.com/crosslane/bridge-orchestrator/common/types"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// resultCodeSuccess is the engine result every finalized submission must
// carry; any other code is a terminal failure for that submission.
const resultCodeSuccess = "tesSUCCESS"

type submitResult struct {
	EngineResult        string `json:"engine_result"`
	EngineResultMessage string `json:"engine_result_message"`
	TxJSON              struct {
		Hash string `json:"hash"`
		Fee  string `json:"Fee"`
	} `json:"tx_json"`
}

type txResult struct {
	Hash        string `json:"hash"`
	LedgerIndex uint64 `json:"ledger_index"`
	Validated   bool   `json:"validated"`
	Fee         string `json:"Fee"`
	Meta        struct {
		TransactionResult string `json:"TransactionResult"`
	} `json:"meta"`
}

// SubmitTransaction submits a pre-signed blob and waits for finality.
//
// Only a sequence window expiry (the transient race between an account's
// monotonically increasing sequence numbers and the submission's last-ledger
// deadline) is retried, up to maxAttempts with a fixed backoff. Every other
// error propagates immediately: this is a narrow, classified retry, not a
// blanket retry-on-any-error.
//
// Parameters:
// - ctx: the context for managing the request.
// - signedBlob: the pre-signed transaction blob.
// - maxAttempts: the total submission budget, including the first attempt.
//
// Returns:
// - *types.SubmissionResult: the finality result.
// - error: the last submission error once the budget is exhausted.
func (g *Gateway) SubmitTransaction(ctx context.Context, signedBlob string, maxAttempts int) (*types.SubmissionResult, error) {
	if maxAttempts < 1 {
		maxAttempts = 1
	}

	var lastResult *types.SubmissionResult
	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		result, err := g.submitAndWait(ctx, signedBlob)
		if err == nil {
			return result, nil
		}
		lastResult, lastErr = result, err

		if !isSequenceWindowExpired(err) || attempt == maxAttempts {
			// A non-nil result alongside the error carries the hash of a
			// submitted-but-unconfirmed transaction; hand it up so the
			// caller can record the partial state.
			return result, err
		}

		g.logger.WithFields(logrus.Fields{
			"attempt":     attempt,
			"maxAttempts": maxAttempts,
		}).Warn("sequence window expired, retrying submission")

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(g.config.SubmitBackoff):
		}
	}
	return lastResult, lastErr
}

// submitAndWait performs one submit round trip and polls the transaction
// until it lands in a validated ledger or the finality timeout elapses.
func (g *Gateway) submitAndWait(ctx context.Context, signedBlob string) (*types.SubmissionResult, error) {
	var submitted submitResult
	err := g.call(ctx, "submit", map[string]interface{}{
		"tx_blob": signedBlob,
	}, &submitted)
	if err != nil {
		return nil, err
	}

	if submitted.EngineResult != resultCodeSuccess {
		if isSequenceCode(submitted.EngineResult) {
			return nil, errors.Wrapf(commonerrors.ErrSequenceWindowExpired,
				"engine result %s: %s", submitted.EngineResult, submitted.EngineResultMessage)
		}
		if isUnfundedCode(submitted.EngineResult) {
			return nil, errors.Wrapf(commonerrors.ErrInsufficientFunds,
				"engine result %s: %s", submitted.EngineResult, submitted.EngineResultMessage)
		}
		return nil, errors.Wrapf(commonerrors.ErrSubmitFailed,
			"engine result %s: %s", submitted.EngineResult, submitted.EngineResultMessage)
	}

	return g.waitValidated(ctx, submitted.TxJSON.Hash)
}

// waitValidated polls the tx method until the transaction is validated. The
// finality timeout is distinct from the retry backoff: it bounds a single
// wait, not the whole submission budget.
func (g *Gateway) waitValidated(ctx context.Context, hash string) (*types.SubmissionResult, error) {
	waitCtx, cancel := context.WithTimeout(ctx, g.config.FinalityTimeout)
	defer cancel()

	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-waitCtx.Done():
			if errors.Is(waitCtx.Err(), context.DeadlineExceeded) {
				// The transaction may still validate later; hand the hash
				// back with the timeout so the caller can record the partial
				// state for manual reconciliation.
				return &types.SubmissionResult{Hash: hash}, errors.Wrapf(context.DeadlineExceeded,
					"transaction %s submitted but not validated in time", hash)
			}
			return nil, waitCtx.Err()

		case <-ticker.C:
			var tx txResult
			if err := g.call(waitCtx, "tx", map[string]interface{}{
				"transaction": hash,
			}, &tx); err != nil {
				if strings.Contains(err.Error(), "txnNotFound") {
					continue
				}
				return nil, err
			}
			if !tx.Validated {
				continue
			}

			fee, err := dropsToNative(tx.Fee)
			if err != nil {
				fee = ""
			}
			result := &types.SubmissionResult{
				Hash:        tx.Hash,
				LedgerIndex: tx.LedgerIndex,
				Fee:         fee,
				ResultCode:  tx.Meta.TransactionResult,
			}
			if tx.Meta.TransactionResult != resultCodeSuccess {
				if isSequenceCode(tx.Meta.TransactionResult) {
					return nil, errors.Wrapf(commonerrors.ErrSequenceWindowExpired,
						"transaction %s finalized with %s", hash, tx.Meta.TransactionResult)
				}
				if isUnfundedCode(tx.Meta.TransactionResult) {
					return result, errors.Wrapf(commonerrors.ErrInsufficientFunds,
						"transaction %s finalized with %s", hash, tx.Meta.TransactionResult)
				}
				return result, errors.Wrapf(commonerrors.ErrSubmitFailed,
					"transaction %s finalized with %s", hash, tx.Meta.TransactionResult)
			}
			return result, nil
		}
	}
}

// isSequenceCode matches the engine codes raised when a submission misses
// its last-ledger deadline or reuses a consumed sequence number.
func isSequenceCode(code string) bool {
	return code == "tefPAST_SEQ" || code == "tefMAX_LEDGER" || code == "terPRE_SEQ"
}

// isUnfundedCode matches the engine codes raised when the sending account
// cannot cover the payment plus fee (tecUNFUNDED, tecUNFUNDED_PAYMENT and
// friends).
func isUnfundedCode(code string) bool {
	return strings.HasPrefix(code, "tecUNFUNDED")
}

// isSequenceWindowExpired classifies an error as the transient ordering race
// that justifies a retry.
func isSequenceWindowExpired(err error) bool {
	if errors.Is(err, commonerrors.ErrSequenceWindowExpired) {
		return true
	}
	return err != nil && strings.Contains(err.Error(), "LastLedgerSequence")
}
