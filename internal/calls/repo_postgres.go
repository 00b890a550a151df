package calls

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"whisperline/internal/ledger"
	"whisperline/pkg/utils"
)

// PostgresRepo persists calls in the calls table.
//
// Assumed schema:
//
//	calls (
//	  id TEXT PRIMARY KEY,
//	  caller_id TEXT NOT NULL REFERENCES users(id),
//	  whisper_id TEXT NOT NULL REFERENCES users(id),
//	  status TEXT NOT NULL,
//	  coins_charged BIGINT NOT NULL,
//	  created_at TIMESTAMPTZ NOT NULL,
//	  ringing_until TIMESTAMPTZ NOT NULL,
//	  accepted_at TIMESTAMPTZ,
//	  started_at TIMESTAMPTZ,
//	  active_until TIMESTAMPTZ,
//	  ended_at TIMESTAMPTZ,
//	  caller_ready BOOLEAN NOT NULL DEFAULT FALSE,
//	  whisper_ready BOOLEAN NOT NULL DEFAULT FALSE,
//	  duration_ms BIGINT NOT NULL DEFAULT 0,
//	  flagged BOOLEAN NOT NULL DEFAULT FALSE
//	)
//
// Useful indexes: (status, ringing_until), (status, active_until), (created_at).
type PostgresRepo struct {
	db *sql.DB
}

func NewPostgresRepo(db *sql.DB) *PostgresRepo {
	return &PostgresRepo{db: db}
}

const callColumns = `id, caller_id, whisper_id, status, coins_charged,
created_at, ringing_until, accepted_at, started_at, active_until, ended_at,
caller_ready, whisper_ready, duration_ms, flagged`

func (r *PostgresRepo) CreateWithCharge(ctx context.Context, c Call) error {
	return utils.WithTx(ctx, r.db, &sql.TxOptions{}, func(ctx context.Context, tx *sql.Tx) error {
		// Debit first: the conditional update is the funds check. The call
		// insert shares the transaction, so the charge and the record are
		// atomic and a retry can never double-charge.
		_, err := ledger.AdjustCoinsTx(ctx, tx, c.CallerID, -c.CoinsCharged, ledger.ReasonCallCharge, c.ID, c.CreatedAt)
		if err != nil {
			return translateLedgerErr(err)
		}

		const ins = `
INSERT INTO calls (id, caller_id, whisper_id, status, coins_charged, created_at, ringing_until)
VALUES ($1,$2,$3,$4,$5,$6,$7)
`
		_, err = tx.ExecContext(ctx, ins,
			c.ID, c.CallerID, c.WhisperID, c.Status, c.CoinsCharged, c.CreatedAt, c.RingingUntil,
		)
		return err
	})
}

func (r *PostgresRepo) Get(ctx context.Context, id string) (Call, error) {
	const q = `SELECT ` + callColumns + ` FROM calls WHERE id = $1`
	return scanCall(r.db.QueryRowContext(ctx, q, id))
}

func (r *PostgresRepo) Accept(ctx context.Context, id string, now time.Time) (Call, bool, error) {
	const q = `
UPDATE calls SET status = $2, accepted_at = $3
WHERE id = $1 AND status = $4
RETURNING ` + callColumns
	c, err := scanCall(r.db.QueryRowContext(ctx, q, id, StatusAccepted, now, StatusRinging))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return Call{}, false, nil
		}
		return Call{}, false, err
	}
	return c, true, nil
}

func (r *PostgresRepo) MarkReady(ctx context.Context, id, partyID string, now time.Time) (Call, bool, error) {
	var out Call
	var ok bool

	err := utils.WithTx(ctx, r.db, &sql.TxOptions{}, func(ctx context.Context, tx *sql.Tx) error {
		// Atomic add to the readiness set, valid only while accepted.
		// Re-confirming is a no-op because of the OR.
		const mark = `
UPDATE calls SET
  caller_ready = caller_ready OR (caller_id = $2),
  whisper_ready = whisper_ready OR (whisper_id = $2)
WHERE id = $1 AND status = $3
RETURNING ` + callColumns
		c, err := scanCall(tx.QueryRowContext(ctx, mark, id, partyID, StatusAccepted))
		if err != nil {
			if errors.Is(err, ErrNotFound) {
				return nil
			}
			return err
		}
		out, ok = c, true

		if !(c.CallerReady && c.WhisperReady) {
			return nil
		}

		// Both sides confirmed: flip to active. The status condition makes
		// the flip exactly-once when two confirmations race; the loser sees
		// the row already active and keeps that result.
		const flip = `
UPDATE calls SET status = $2, started_at = $3, active_until = $4
WHERE id = $1 AND status = $5 AND caller_ready AND whisper_ready
RETURNING ` + callColumns
		flipped, err := scanCall(tx.QueryRowContext(ctx, flip, id, StatusActive, now, now.Add(ActiveBudget), StatusAccepted))
		if err != nil {
			if errors.Is(err, ErrNotFound) {
				return nil
			}
			return err
		}
		out = flipped
		return nil
	})
	return out, ok, err
}

func (r *PostgresRepo) Settle(ctx context.Context, id string, from Status, s Settlement, endedAt time.Time) (Call, bool, error) {
	var out Call
	var ok bool

	err := utils.WithTx(ctx, r.db, &sql.TxOptions{}, func(ctx context.Context, tx *sql.Tx) error {
		const q = `
UPDATE calls SET status = $2, ended_at = $3, duration_ms = $4, flagged = $5
WHERE id = $1 AND status = $6
RETURNING ` + callColumns
		c, err := scanCall(tx.QueryRowContext(ctx, q, id, s.To, endedAt, s.DurationMS, s.Flagged, from))
		if err != nil {
			if errors.Is(err, ErrNotFound) {
				// Lost the race; whoever won performed the settlement.
				return nil
			}
			return err
		}

		if s.RefundCaller {
			if _, err := ledger.AdjustCoinsTx(ctx, tx, c.CallerID, c.CoinsCharged, ledger.ReasonCallRefund, c.ID, endedAt); err != nil {
				return translateLedgerErr(err)
			}
		}
		if s.CreditWhisper {
			if _, err := ledger.AdjustEarningsTx(ctx, tx, c.WhisperID, CoinsPerCall, ledger.ReasonCallEarnings, c.ID, endedAt); err != nil {
				return translateLedgerErr(err)
			}
			if err := ledger.IncrementCallsCompletedTx(ctx, tx, c.WhisperID, endedAt); err != nil {
				return translateLedgerErr(err)
			}
		}

		out, ok = c, true
		return nil
	})
	return out, ok, err
}

func (r *PostgresRepo) ListExpiredRinging(ctx context.Context, now time.Time, limit int) ([]string, error) {
	const q = `
SELECT id FROM calls
WHERE status = $1 AND ringing_until < $2
ORDER BY ringing_until ASC
LIMIT $3
`
	return listIDs(ctx, r.db, q, StatusRinging, now, limit)
}

func (r *PostgresRepo) ListOverdueActive(ctx context.Context, now time.Time, limit int) ([]string, error) {
	const q = `
SELECT id FROM calls
WHERE status = $1 AND active_until < $2
ORDER BY active_until ASC
LIMIT $3
`
	return listIDs(ctx, r.db, q, StatusActive, now, limit)
}

func (r *PostgresRepo) PurgeBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	// Strictly-before: a call created exactly at the boundary is retained.
	const q = `DELETE FROM calls WHERE created_at < $1`
	res, err := r.db.ExecContext(ctx, q, cutoff)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func listIDs(ctx context.Context, db *sql.DB, q string, status Status, now time.Time, limit int) ([]string, error) {
	rows, err := db.QueryContext(ctx, q, status, now, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanCall(row rowScanner) (Call, error) {
	var c Call
	var acceptedAt, startedAt, activeUntil, endedAt sql.NullTime
	err := row.Scan(
		&c.ID,
		&c.CallerID,
		&c.WhisperID,
		&c.Status,
		&c.CoinsCharged,
		&c.CreatedAt,
		&c.RingingUntil,
		&acceptedAt,
		&startedAt,
		&activeUntil,
		&endedAt,
		&c.CallerReady,
		&c.WhisperReady,
		&c.DurationMS,
		&c.Flagged,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Call{}, ErrNotFound
		}
		return Call{}, err
	}
	c.AcceptedAt = nullTimePtr(acceptedAt)
	c.StartedAt = nullTimePtr(startedAt)
	c.ActiveUntil = nullTimePtr(activeUntil)
	c.EndedAt = nullTimePtr(endedAt)
	return c, nil
}

func nullTimePtr(t sql.NullTime) *time.Time {
	if !t.Valid {
		return nil
	}
	v := t.Time
	return &v
}

func translateLedgerErr(err error) error {
	switch {
	case errors.Is(err, ledger.ErrInsufficientFunds):
		return ErrInsufficientFunds
	case errors.Is(err, ledger.ErrNotFound):
		return ErrNotFound
	default:
		return err
	}
}
