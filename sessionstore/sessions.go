package sessionstore

import (
	"context"
	"database/sql"
	"time"

	commonerrors "github.com/crosslane/bridge-orchestrator/common/errors"
	"github.com/crosslane/bridge-orchestrator/common/types"
	errors "github.com/pkg/errors"
)

// SessionRecord is an archived session row.
type SessionRecord struct {
	TransferID         string
	Status             string
	TokenSymbol        string
	Amount             string
	SourceChain        string
	DestinationChain   string
	SourceAddress      string
	DestinationAddress string
	Verified           bool
	CreatedAt          time.Time
	ArchivedAt         time.Time
}

// StepRecord is an archived step result row.
type StepRecord struct {
	TransferID string
	Position   int
	Name       string
	Success    bool
	Payload    string
	Kind       string
	Err        string
	StartedAt  time.Time
	FinishedAt time.Time
}

// ArchiveSession persists a terminal session together with every recorded
// step result. Re-archiving the same transfer id replaces the prior rows.
func (s *SessionStore) ArchiveSession(ctx context.Context, session *types.TransferSession) error {
	db, err := sql.Open("postgres", s.dbConnStr)
	if err != nil {
		return commonerrors.ErrDatabaseConnect
	}
	defer db.Close()

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "failed to begin archive transaction")
	}
	defer tx.Rollback()

	verified := false
	results := session.Results()
	for _, result := range results {
		if result.Verification != nil {
			verified = result.Verification.Verified
		}
	}

	_, err = tx.ExecContext(ctx, `
       INSERT INTO transfer_sessions (
           transfer_id,
           status,
           token_symbol,
           amount,
           source_chain,
           destination_chain,
           source_address,
           destination_address,
           verified,
           created_at,
           archived_at
       ) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, NOW())
       ON CONFLICT (transfer_id) DO UPDATE SET
           status = EXCLUDED.status,
           verified = EXCLUDED.verified,
           archived_at = NOW()
    `,
		session.TransferID,
		session.Status().String(),
		session.Params.TokenSymbol,
		session.Params.Amount,
		session.Params.SourceChain,
		session.Params.DestinationChain,
		session.Params.SourceAddress,
		session.Params.DestinationAddress,
		verified,
		session.CreatedAt,
	)
	if err != nil {
		return errors.Wrap(err, "failed to archive session")
	}

	_, err = tx.ExecContext(ctx, `
       DELETE FROM transfer_steps WHERE transfer_id = $1
    `, session.TransferID)
	if err != nil {
		return errors.Wrap(err, "failed to clear prior step rows")
	}

	for i, result := range results {
		_, err = tx.ExecContext(ctx, `
           INSERT INTO transfer_steps (
               transfer_id,
               position,
               name,
               success,
               payload,
               kind,
               error,
               started_at,
               finished_at
           ) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
        `,
			session.TransferID,
			i,
			result.Name,
			result.Success,
			result.Payload,
			string(result.Kind),
			result.Err,
			result.StartedAt,
			result.FinishedAt,
		)
		if err != nil {
			return errors.Wrap(err, "failed to archive step result")
		}
	}

	if err := tx.Commit(); err != nil {
		return errors.Wrap(err, "failed to commit archive transaction")
	}
	return nil
}

// GetSession returns an archived session row by transfer id.
func (s *SessionStore) GetSession(ctx context.Context, transferID string) (*SessionRecord, error) {
	if transferID == "" {
		return nil, commonerrors.ErrInvalidParams
	}

	db, err := sql.Open("postgres", s.dbConnStr)
	if err != nil {
		return nil, commonerrors.ErrDatabaseConnect
	}
	defer db.Close()

	var record SessionRecord
	err = db.QueryRowContext(ctx, `
       SELECT
           transfer_id,
           status,
           token_symbol,
           amount,
           source_chain,
           destination_chain,
           source_address,
           destination_address,
           verified,
           created_at,
           archived_at
       FROM transfer_sessions
       WHERE transfer_id = $1
    `, transferID).Scan(
		&record.TransferID,
		&record.Status,
		&record.TokenSymbol,
		&record.Amount,
		&record.SourceChain,
		&record.DestinationChain,
		&record.SourceAddress,
		&record.DestinationAddress,
		&record.Verified,
		&record.CreatedAt,
		&record.ArchivedAt,
	)

	if err == sql.ErrNoRows {
		return nil, commonerrors.ErrSessionNotFound
	}
	if err != nil {
		return nil, commonerrors.ErrDatabaseConnect
	}

	return &record, nil
}

// GetSteps returns the archived step results for a transfer in execution
// order.
func (s *SessionStore) GetSteps(ctx context.Context, transferID string) ([]StepRecord, error) {
	if transferID == "" {
		return nil, commonerrors.ErrInvalidParams
	}

	db, err := sql.Open("postgres", s.dbConnStr)
	if err != nil {
		return nil, commonerrors.ErrDatabaseConnect
	}
	defer db.Close()

	rows, err := db.QueryContext(ctx, `
       SELECT
           transfer_id,
           position,
           name,
           success,
           payload,
           kind,
           error,
           started_at,
           finished_at
       FROM transfer_steps
       WHERE transfer_id = $1
       ORDER BY position
    `, transferID)
	if err != nil {
		return nil, commonerrors.ErrDatabaseConnect
	}
	defer rows.Close()

	var steps []StepRecord
	for rows.Next() {
		var step StepRecord
		if err := rows.Scan(
			&step.TransferID,
			&step.Position,
			&step.Name,
			&step.Success,
			&step.Payload,
			&step.Kind,
			&step.Err,
			&step.StartedAt,
			&step.FinishedAt,
		); err != nil {
			return nil, errors.Wrap(err, "failed to scan step row")
		}
		steps = append(steps, step)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "failed to read step rows")
	}

	return steps, nil
}
