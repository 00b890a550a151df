package payouts

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"whisperline/internal/ledger"
	"whisperline/pkg/utils"

	"github.com/google/uuid"
)

// NOTE: This repository assumes the following tables exist:
//
// - users (earnings, pending_earnings_cents, payout_email, last_payout_at)
// - payout_batches:
//     id                 TEXT PRIMARY KEY
//     user_count         INT NOT NULL
//     total_coins        BIGINT NOT NULL
//     total_amount_cents BIGINT NOT NULL
//     details            JSONB NOT NULL
//     created_at         TIMESTAMPTZ NOT NULL

type PostgresRepo struct {
	db *sql.DB
}

func NewPostgresRepo(db *sql.DB) *PostgresRepo {
	return &PostgresRepo{db: db}
}

func (r *PostgresRepo) ListCandidates(ctx context.Context, limit int) ([]Candidate, error) {
	const q = `
SELECT id, earnings, payout_email
FROM users
WHERE earnings > 0 AND payout_email <> ''
ORDER BY earnings DESC
LIMIT $1
`
	rows, err := r.db.QueryContext(ctx, q, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Candidate
	for rows.Next() {
		var c Candidate
		if err := rows.Scan(&c.UserID, &c.Earnings, &c.PayoutEmail); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// SettleUser zeroes the user's earnings and books the cash amount as
// pending, conditional on the earnings balance still matching what the
// listing observed. The ledger debit rides in the same transaction.
func (r *PostgresRepo) SettleUser(ctx context.Context, userID string, observedEarnings, amountCents int64, batchID string, now time.Time) (bool, error) {
	settled := false
	err := utils.WithTx(ctx, r.db, nil, func(ctx context.Context, tx *sql.Tx) error {
		const q = `
UPDATE users
SET earnings = 0,
    pending_earnings_cents = pending_earnings_cents + $3,
    last_payout_at = $4,
    updated_at = $4
WHERE id = $1 AND earnings = $2
RETURNING id
`
		var id string
		if err := tx.QueryRowContext(ctx, q, userID, observedEarnings, amountCents, now).Scan(&id); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return nil
			}
			return err
		}
		if err := ledger.InsertEntryTx(ctx, tx, ledger.Entry{
			ID:          uuid.NewString(),
			UserID:      userID,
			Field:       ledger.FieldEarnings,
			Delta:       -observedEarnings,
			Reason:      ledger.ReasonPayout,
			ExternalRef: batchID,
			CreatedAt:   now,
		}); err != nil {
			return err
		}
		settled = true
		return nil
	})
	return settled, err
}

func (r *PostgresRepo) InsertBatch(ctx context.Context, b Batch) error {
	details, err := json.Marshal(b.Details)
	if err != nil {
		return err
	}
	const q = `
INSERT INTO payout_batches (id, user_count, total_coins, total_amount_cents, details, created_at)
VALUES ($1,$2,$3,$4,$5,$6)
`
	_, err = r.db.ExecContext(ctx, q, b.ID, b.UserCount, b.TotalCoins, b.TotalAmountCents, details, b.CreatedAt)
	return err
}

func (r *PostgresRepo) GetBatch(ctx context.Context, id string) (Batch, error) {
	const q = `
SELECT id, user_count, total_coins, total_amount_cents, details, created_at
FROM payout_batches WHERE id = $1
`
	var b Batch
	var details []byte
	err := r.db.QueryRowContext(ctx, q, id).Scan(&b.ID, &b.UserCount, &b.TotalCoins, &b.TotalAmountCents, &details, &b.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return Batch{}, ErrNotFound
	}
	if err != nil {
		return Batch{}, err
	}
	if err := json.Unmarshal(details, &b.Details); err != nil {
		return Batch{}, err
	}
	return b, nil
}
