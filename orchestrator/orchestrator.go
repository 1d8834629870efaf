package orchestrator

import (
	"context"
	"time"

	commonerrors "github.com/crosslane/bridge-orchestrator/common/errors"
	"github.com/crosslane/bridge-orchestrator/common/types"
	errors "github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// SessionArchiver persists a terminal session. Archival is best-effort: a
// failure is logged and never changes the session outcome.
type SessionArchiver interface {
	ArchiveSession(ctx context.Context, session *types.TransferSession) error
}

// Config carries the tunables of a transfer run.
type Config struct {
	// SessionPrefix prefixes every minted transfer id.
	SessionPrefix string

	// GatewayAddress is the bridge entry account on the source ledger.
	GatewayAddress string

	// StepTimeout bounds each pipeline step individually.
	StepTimeout time.Duration

	// SubmitMaxAttempts is the total submission budget passed to the ledger
	// gateway for sequence window expiry retries.
	SubmitMaxAttempts int

	// RelayPollInterval is the cadence of relay status polling during
	// message transmission.
	RelayPollInterval time.Duration

	// Tolerance is the absolute balance difference accepted during final
	// verification, as a decimal string.
	Tolerance string
}

func (c *Config) applyDefaults() {
	if c.SessionPrefix == "" {
		c.SessionPrefix = "its"
	}
	if c.StepTimeout == 0 {
		c.StepTimeout = 90 * time.Second
	}
	if c.SubmitMaxAttempts == 0 {
		c.SubmitMaxAttempts = 3
	}
	if c.RelayPollInterval == 0 {
		c.RelayPollInterval = 500 * time.Millisecond
	}
	if c.Tolerance == "" {
		c.Tolerance = defaultTolerance
	}
}

// Orchestrator drives a transfer session through the pipeline: source ledger
// settlement, bridge gateway hand-off, interchain relay and destination
// execution, followed by balance reconciliation. All collaborators are
// injected, so live and simulated gateways are interchangeable.
type Orchestrator struct {
	config      *Config
	logger      *logrus.Logger
	ledger      types.LedgerGateway
	relay       types.RelayGateway
	destination types.DestinationExecutor
	signer      types.TransactionSigner
	notifier    types.NotificationSink
	archiver    SessionArchiver
	registry    *SessionRegistry
	runner      *StepRunner
}

// Sessions exposes the in-memory registry of sessions started by this
// orchestrator.
func (o *Orchestrator) Sessions() *SessionRegistry {
	return o.registry
}

// Execute runs the full transfer pipeline for the given parameters.
//
// The returned session is always usable: every attempted step is recorded on
// it, successes and failures alike, and its status is terminal when Execute
// returns. The error return is reserved for parameter validation; a pipeline
// failure is reported through the session itself.
//
// Parameters:
//   - ctx: cancels the run between steps and bounds in-flight gateway calls
//   - params: the validated transfer parameters
//
// Returns:
//   - *types.TransferSession: the session with its full step record
//   - error: non-nil only when params are invalid
func (o *Orchestrator) Execute(ctx context.Context, params types.TransferParams) (*types.TransferSession, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}

	session := types.NewTransferSession(o.config.SessionPrefix, params)
	o.registry.Add(session)

	o.logger.WithFields(logrus.Fields{
		"transferId":  session.TransferID,
		"tokenSymbol": params.TokenSymbol,
		"amount":      params.Amount,
		"source":      params.SourceChain,
		"destination": params.DestinationChain,
	}).Info("transfer session started")

	// The connection is released on every exit path, successful or not.
	defer func() {
		if err := o.ledger.Disconnect(); err != nil {
			o.logger.WithField("transferId", session.TransferID).
				WithError(err).Warn("ledger disconnect failed")
		}
	}()

	run := &runState{}
	for _, step := range o.steps() {
		if err := ctx.Err(); err != nil {
			o.recordCancellation(session, step.name, err)
			o.finish(ctx, session)
			return session, nil
		}

		result := o.runner.Run(ctx, session.TransferID, step.name, func(stepCtx context.Context) (string, *types.VerificationRecord, error) {
			return step.fn(stepCtx, session, run)
		})

		// The destination contract rejecting a replayed transfer id means
		// the transfer already took effect; treat it as settled.
		if !result.Success && !result.Kind.Fatal() {
			result.Success = true
			o.logger.WithFields(logrus.Fields{
				"transferId": session.TransferID,
				"step":       step.name,
			}).Info("duplicate execution treated as settled")
		}

		session.RecordResult(result)
		if !result.Success {
			session.SetStatus(types.StateFailed)
			o.finish(ctx, session)
			return session, nil
		}
		session.SetStatus(step.target)
	}

	session.SetStatus(types.StateCompleted)
	o.finish(ctx, session)
	return session, nil
}

// recordCancellation records the step that was about to run when the caller
// cancelled, then marks the session failed.
func (o *Orchestrator) recordCancellation(session *types.TransferSession, stepName string, err error) {
	now := time.Now().UTC()
	session.RecordResult(types.StepResult{
		Name:       stepName,
		Success:    false,
		Kind:       commonerrors.KindCancelled,
		Err:        errors.Wrap(commonerrors.ErrCancelled, err.Error()).Error(),
		StartedAt:  now,
		FinishedAt: now,
	})
	session.SetStatus(types.StateFailed)
	o.logger.WithFields(logrus.Fields{
		"transferId": session.TransferID,
		"step":       stepName,
	}).Warn("transfer cancelled")
}

// finish archives and announces a terminal session. Both collaborators are
// optional and best-effort.
func (o *Orchestrator) finish(ctx context.Context, session *types.TransferSession) {
	status := session.Status()
	o.logger.WithFields(logrus.Fields{
		"transferId": session.TransferID,
		"status":     status.String(),
		"steps":      len(session.Results()),
	}).Info("transfer session finished")

	// Archival and notification must survive a cancelled parent context.
	finishCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
	defer cancel()

	if o.archiver != nil {
		if err := o.archiver.ArchiveSession(finishCtx, session); err != nil {
			o.logger.WithField("transferId", session.TransferID).
				WithError(err).Warn("session archival failed")
		}
	}

	if o.notifier != nil {
		notice := &types.CompletionNotice{
			TransferID:  session.TransferID,
			Status:      status.String(),
			TokenSymbol: session.Params.TokenSymbol,
			Amount:      session.Params.Amount,
			Destination: session.Params.DestinationAddress,
			Verified:    sessionVerified(session),
		}
		if err := o.notifier.Notify(finishCtx, notice); err != nil {
			o.logger.WithField("transferId", session.TransferID).
				WithError(err).Warn("completion notification failed")
		}
	}
}

// sessionVerified reports whether the final verification step passed its
// reconciliation check.
func sessionVerified(session *types.TransferSession) bool {
	result, ok := session.Result(StepFinalVerification)
	if !ok || result.Verification == nil {
		return false
	}
	return result.Verification.Verified
}
