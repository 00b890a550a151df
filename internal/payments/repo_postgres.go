package payments

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"whisperline/internal/ledger"
	"whisperline/pkg/utils"
)

// NOTE: This repository assumes the following table exists:
//
// - payment_sessions:
//     id           TEXT PRIMARY KEY
//     user_id      TEXT NOT NULL REFERENCES users(id)
//     amount_cents BIGINT NOT NULL
//     status       TEXT NOT NULL
//     created_at   TIMESTAMPTZ NOT NULL
//     completed_at TIMESTAMPTZ

type PostgresRepo struct {
	db *sql.DB
}

func NewPostgresRepo(db *sql.DB) *PostgresRepo {
	return &PostgresRepo{db: db}
}

func (r *PostgresRepo) Create(ctx context.Context, s Session) error {
	const q = `
INSERT INTO payment_sessions (id, user_id, amount_cents, status, created_at)
VALUES ($1,$2,$3,$4,$5)
`
	_, err := r.db.ExecContext(ctx, q, s.ID, s.UserID, s.AmountCents, s.Status, s.CreatedAt)
	return err
}

// Complete flips the session pending->completed and posts the coin credit
// inside the same transaction. A credit failure rolls back the status
// flip, leaving the session pending for a redelivered event to settle.
func (r *PostgresRepo) Complete(ctx context.Context, id string, credit Credit, now time.Time) (Session, bool, error) {
	var out Session
	settled := false
	err := utils.WithTx(ctx, r.db, nil, func(ctx context.Context, tx *sql.Tx) error {
		const q = `
UPDATE payment_sessions
SET status = $2, completed_at = $3
WHERE id = $1 AND status = $4
RETURNING id, user_id, amount_cents, status, created_at, completed_at
`
		err := tx.QueryRowContext(ctx, q, id, SessionStatusCompleted, now, SessionStatusPending).
			Scan(&out.ID, &out.UserID, &out.AmountCents, &out.Status, &out.CreatedAt, &out.CompletedAt)
		if errors.Is(err, sql.ErrNoRows) {
			return nil
		}
		if err != nil {
			return err
		}

		uid := credit.UserID
		if uid == "" {
			uid = out.UserID
		}
		if credit.Coins > 0 && uid != "" {
			if _, err := ledger.AdjustCoinsTx(ctx, tx, uid, credit.Coins, credit.Reason, out.ID, now); err != nil {
				return err
			}
		}
		settled = true
		return nil
	})
	if err != nil {
		return Session{}, false, err
	}
	return out, settled, nil
}
