package orchestrator

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"

	commonerrors "github.com/crosslane/bridge-orchestrator/common/errors"
	"github.com/crosslane/bridge-orchestrator/common/types"
	"github.com/crosslane/bridge-orchestrator/gateways/axelarrelay"
	errors "github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// Pipeline step names, in execution order. These appear verbatim in session
// step maps, reports and archived rows.
const (
	StepLedgerConnection     = "ledger_connection"
	StepBalanceCheck         = "balance_check"
	StepSourceSettlement     = "source_settlement"
	StepGatewayHandoff       = "gateway_handoff"
	StepBridgeRequest        = "bridge_request"
	StepMessageTransmission  = "message_transmission"
	StepDestinationExecution = "destination_execution"
	StepFinalVerification    = "final_verification"
)

// nativeAssetSymbol is the source ledger's native asset. Any other symbol is
// an issued token held on a trust line against the bridge gateway account.
const nativeAssetSymbol = "XRP"

// pipelineStep binds a step name to its target state and implementation.
type pipelineStep struct {
	name   string
	target types.SessionState
	fn     func(ctx context.Context, session *types.TransferSession, run *runState) (string, *types.VerificationRecord, error)
}

// runState carries intermediate values between steps of a single run. It is
// owned by exactly one Execute call and never shared.
type runState struct {
	sourceBalance  string
	userBalance    string
	settlementHash string
	settlementFee  string
	handoffHash    string
	handoffFee     string
	bridgeFee      string
	requestID      string
	encodedPayload string
	messageID      string
	executionTx    string
}

func (o *Orchestrator) steps() []pipelineStep {
	return []pipelineStep{
		{StepLedgerConnection, types.StateConnected, o.stepConnect},
		{StepBalanceCheck, types.StateBalancesChecked, o.stepBalanceCheck},
		{StepSourceSettlement, types.StateSourceSettled, o.stepSourceSettlement},
		{StepGatewayHandoff, types.StateGatewayProcessed, o.stepGatewayHandoff},
		{StepBridgeRequest, types.StateBridgeRequested, o.stepBridgeRequest},
		{StepMessageTransmission, types.StateMessageTransmitted, o.stepMessageTransmission},
		{StepDestinationExecution, types.StateDestinationExecuted, o.stepDestinationExecution},
		{StepFinalVerification, types.StateVerified, o.stepFinalVerification},
	}
}

func (o *Orchestrator) stepConnect(ctx context.Context, session *types.TransferSession, _ *runState) (string, *types.VerificationRecord, error) {
	if err := o.ledger.Connect(ctx); err != nil {
		return "", nil, err
	}
	return "connected", nil, nil
}

// stepBalanceCheck snapshots the pre-transfer balances. When the caller did
// not supply an original balance, the observed source balance becomes the
// reconciliation baseline.
func (o *Orchestrator) stepBalanceCheck(ctx context.Context, session *types.TransferSession, run *runState) (string, *types.VerificationRecord, error) {
	sourceBalance, err := o.sourceAssetBalance(ctx, session.Params)
	if err != nil {
		return "", nil, errors.Wrap(err, "source balance query failed")
	}
	run.sourceBalance = sourceBalance

	userBalance, err := o.ledger.GetBalance(ctx, session.Params.UserAddress)
	if err != nil {
		return "", nil, errors.Wrap(err, "user balance query failed")
	}
	run.userBalance = userBalance

	if session.Params.OriginalBalance == "" {
		session.Params.OriginalBalance = sourceBalance
	}

	return fmt.Sprintf("source=%s user=%s", sourceBalance, userBalance), nil, nil
}

// stepSourceSettlement funds the user account from the source account with
// the transfer amount, retrying submission on sequence window expiry only.
func (o *Orchestrator) stepSourceSettlement(ctx context.Context, session *types.TransferSession, run *runState) (string, *types.VerificationRecord, error) {
	blob, err := o.signer.SignPayment(ctx, &types.PaymentIntent{
		Account:     session.Params.SourceAddress,
		Destination: session.Params.UserAddress,
		Amount:      session.Params.Amount,
	})
	if err != nil {
		return "", nil, errors.Wrap(err, "settlement signing failed")
	}

	result, err := o.ledger.SubmitTransaction(ctx, blob, o.config.SubmitMaxAttempts)
	if err != nil {
		// A partial result carries a hash for a transaction that was
		// submitted but never confirmed; surface it for manual follow-up.
		if result != nil && result.Hash != "" {
			return result.Hash, nil, err
		}
		return "", nil, err
	}
	run.settlementHash = result.Hash
	run.settlementFee = result.Fee
	return fmt.Sprintf("hash=%s fee=%s", result.Hash, result.Fee), nil, nil
}

// stepGatewayHandoff pays the transfer amount from the user account to the
// bridge gateway account, attaching a memo that tells the gateway where the
// funds are headed.
func (o *Orchestrator) stepGatewayHandoff(ctx context.Context, session *types.TransferSession, run *runState) (string, *types.VerificationRecord, error) {
	memo, err := handoffMemo(session)
	if err != nil {
		return "", nil, err
	}

	blob, err := o.signer.SignPayment(ctx, &types.PaymentIntent{
		Account:     session.Params.UserAddress,
		Destination: o.config.GatewayAddress,
		Amount:      session.Params.Amount,
		Memos:       []types.Memo{memo},
	})
	if err != nil {
		return "", nil, errors.Wrap(err, "hand-off signing failed")
	}

	result, err := o.ledger.SubmitTransaction(ctx, blob, o.config.SubmitMaxAttempts)
	if err != nil {
		if result != nil && result.Hash != "" {
			return result.Hash, nil, err
		}
		return "", nil, err
	}
	run.handoffHash = result.Hash
	run.handoffFee = result.Fee
	return fmt.Sprintf("hash=%s fee=%s", result.Hash, result.Fee), nil, nil
}

// handoffMemo encodes the routing instruction carried on the gateway payment.
func handoffMemo(session *types.TransferSession) (types.Memo, error) {
	instruction := map[string]string{
		"destinationChain":   session.Params.DestinationChain,
		"destinationAddress": session.Params.DestinationAddress,
		"amount":             session.Params.Amount,
		"transferId":         session.TransferID,
	}
	raw, err := json.Marshal(instruction)
	if err != nil {
		return types.Memo{}, errors.Wrap(err, "memo encoding failed")
	}
	return types.Memo{
		Type: "interchain_transfer",
		Data: hex.EncodeToString(raw),
	}, nil
}

// stepBridgeRequest verifies the token is bridgeable, records the advisory
// fee and registers the transfer intent with the relay network. The relay
// does not deduplicate requests, so this step must run at most once per
// transfer id.
func (o *Orchestrator) stepBridgeRequest(ctx context.Context, session *types.TransferSession, run *runState) (string, *types.VerificationRecord, error) {
	registration, err := o.relay.CheckTokenRegistration(ctx, session.Params.TokenSymbol, session.Params.SourceChain, session.Params.DestinationChain)
	if err != nil {
		return "", nil, err
	}

	fee, err := o.relay.EstimateFee(ctx, &session.Params)
	if err != nil {
		return "", nil, errors.Wrap(err, "bridge fee estimate failed")
	}
	run.bridgeFee = fee

	requestID, err := o.relay.RequestTransfer(ctx, &session.Params, session.TransferID)
	if err != nil {
		return "", nil, err
	}
	run.requestID = requestID

	o.logger.WithField("tokenId", registration.InterchainTokenID).
		WithField("requestId", requestID).
		WithField("estimatedFee", fee).
		Debug("bridge transfer requested")
	return fmt.Sprintf("requestId=%s estimatedFee=%s", requestID, fee), nil, nil
}

// stepMessageTransmission encodes the transfer intent into the relay message
// envelope, transmits it and polls the relay until it reports completion.
// The step timeout bounds the polling.
func (o *Orchestrator) stepMessageTransmission(ctx context.Context, session *types.TransferSession, run *runState) (string, *types.VerificationRecord, error) {
	payload, err := axelarrelay.EncodeTransferIntent(&types.TransferIntent{
		TokenSymbol:        session.Params.TokenSymbol,
		Amount:             session.Params.Amount,
		SourceAddress:      session.Params.UserAddress,
		DestinationAddress: session.Params.DestinationAddress,
		TransferID:         session.TransferID,
		SourceChain:        session.Params.SourceChain,
		Metadata:           map[string]string{"requestId": run.requestID},
	})
	if err != nil {
		return "", nil, err
	}
	run.encodedPayload = payload

	messageID, err := o.relay.TransmitMessage(ctx, payload)
	if err != nil {
		return "", nil, err
	}
	run.messageID = messageID

	if err := o.awaitRelayCompletion(ctx, messageID); err != nil {
		return messageID, nil, err
	}
	return messageID, nil, nil
}

func (o *Orchestrator) awaitRelayCompletion(ctx context.Context, messageID string) error {
	ticker := time.NewTicker(o.config.RelayPollInterval)
	defer ticker.Stop()

	for {
		status, err := o.relay.PollStatus(ctx, messageID)
		if err != nil {
			return errors.Wrap(err, "relay status poll failed")
		}
		switch status.Status {
		case "completed":
			return nil
		case "failed":
			return errors.Wrapf(commonerrors.ErrExecution, "relay reported failure at %s", status.CurrentStep)
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// stepDestinationExecution decodes the relayed message and drives the
// destination contract call. A duplicate execution error is returned as-is;
// the orchestrator downgrades it to an idempotent success.
func (o *Orchestrator) stepDestinationExecution(ctx context.Context, session *types.TransferSession, run *runState) (string, *types.VerificationRecord, error) {
	intent, err := o.destination.DecodeMessage(run.encodedPayload)
	if err != nil {
		return "", nil, err
	}

	if _, err := o.destination.LookupToken(ctx, intent.TokenSymbol); err != nil {
		return "", nil, err
	}

	result, err := o.destination.Execute(ctx, intent)
	if err != nil {
		return "", nil, err
	}
	run.executionTx = result.TxHash
	return result.TxHash, nil, nil
}

// stepFinalVerification reads both post-transfer balances and reconciles
// them against the expectations. A tolerance breach is recorded on the
// verification record rather than failing the step; only unreadable balances
// abort here.
func (o *Orchestrator) stepFinalVerification(ctx context.Context, session *types.TransferSession, run *runState) (string, *types.VerificationRecord, error) {
	sourceObserved, err := o.sourceAssetBalance(ctx, session.Params)
	if err != nil {
		return "", nil, errors.Wrap(err, "source balance read failed")
	}

	destObserved, err := o.destination.GetTokenBalance(ctx, session.Params.DestinationAddress, session.Params.TokenSymbol)
	if err != nil {
		return "", nil, errors.Wrap(err, "destination balance read failed")
	}

	record, err := ReconcileBalances(session.Params, sourceObserved, destObserved, o.config.Tolerance)
	if err != nil {
		return "", nil, err
	}

	if !record.Verified {
		o.logger.WithFields(logrus.Fields{
			"transferId":       session.TransferID,
			"sourceDifference": record.Source.Difference,
			"destDifference":   record.Destination.Difference,
		}).Warn("balance reconciliation outside tolerance")
	}

	return fmt.Sprintf("source=%s dest=%s verified=%t", sourceObserved, destObserved, record.Verified), record, nil
}

// sourceAssetBalance reads the source-side balance of the transferred asset:
// the native ledger balance for the native asset, the trust line held
// against the bridge gateway for issued tokens. A missing trust line is an
// error; an issued token cannot be reconciled without one.
func (o *Orchestrator) sourceAssetBalance(ctx context.Context, params types.TransferParams) (string, error) {
	if params.TokenSymbol == nativeAssetSymbol {
		return o.ledger.GetBalance(ctx, params.SourceAddress)
	}

	line, ok, err := o.ledger.GetTrustLine(ctx, params.SourceAddress, o.config.GatewayAddress, params.TokenSymbol)
	if err != nil {
		return "", err
	}
	if !ok {
		return "", errors.Errorf("account %s holds no %s trust line against gateway %s",
			params.SourceAddress, params.TokenSymbol, o.config.GatewayAddress)
	}
	return line.Balance, nil
}
