package orchestrator

import (
	"context"
	"time"

	commonerrors "github.com/crosslane/bridge-orchestrator/common/errors"
	"github.com/crosslane/bridge-orchestrator/common/types"
	"github.com/sirupsen/logrus"
)

// StepFunc executes one pipeline step's gateway call. The payload is the
// step-specific result; a non-empty payload may accompany an error when the
// step left partial state behind (a submitted-but-unconfirmed transaction)
// that must be recorded for manual reconciliation.
type StepFunc func(ctx context.Context) (payload string, verification *types.VerificationRecord, err error)

// StepRunner executes one named step against a gateway, bounds it with a
// timeout and converts any error into a classified StepResult. Failures are
// returned as data, never raised past the orchestrator's boundary, so
// partial progress is always recordable.
type StepRunner struct {
	logger  *logrus.Logger
	timeout time.Duration
}

// NewStepRunner creates a runner applying the given per-step timeout.
func NewStepRunner(timeout time.Duration, logger *logrus.Logger) *StepRunner {
	if timeout == 0 {
		timeout = 90 * time.Second
	}
	return &StepRunner{logger: logger, timeout: timeout}
}

// Run executes the step and records its outcome.
func (r *StepRunner) Run(ctx context.Context, transferID, name string, fn StepFunc) types.StepResult {
	stepCtx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	result := types.StepResult{
		Name:      name,
		StartedAt: time.Now().UTC(),
	}

	r.logger.WithFields(logrus.Fields{
		"transferId": transferID,
		"step":       name,
	}).Info("step started")

	payload, verification, err := fn(stepCtx)
	result.FinishedAt = time.Now().UTC()
	result.Payload = payload
	result.Verification = verification

	if err != nil {
		result.Success = false
		result.Kind = commonerrors.Classify(err)
		result.Err = err.Error()
		r.logger.WithFields(logrus.Fields{
			"transferId": transferID,
			"step":       name,
			"kind":       result.Kind,
			"duration":   result.Duration().String(),
		}).WithError(err).Error("step failed")
		return result
	}

	result.Success = true
	r.logger.WithFields(logrus.Fields{
		"transferId": transferID,
		"step":       name,
		"duration":   result.Duration().String(),
	}).Info("step completed")
	return result
}
