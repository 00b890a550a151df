package ledger

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
)

// NOTE: This repository assumes the following tables exist:
// - users (balance columns: coins, earnings, both BIGINT NOT NULL DEFAULT 0
//   with CHECK (coins >= 0) and CHECK (earnings >= 0))
// - coin_ledger (immutable append-only)
//
// The Tx-scoped helpers below are exported so that other repositories
// (notably the call repository) can post balance adjustments inside their
// own transaction, keeping a state transition and its money side effect
// atomic.

// AdjustCoinsTx applies a conditional coin adjustment inside tx and appends
// the ledger entry. Returns the new balance.
func AdjustCoinsTx(ctx context.Context, tx *sql.Tx, userID string, delta int64, reason Reason, externalRef string, now time.Time) (int64, error) {
	const q = `
UPDATE users
SET coins = coins + $2, updated_at = $3
WHERE id = $1 AND coins + $2 >= 0
RETURNING coins
`
	var balance int64
	if err := tx.QueryRowContext(ctx, q, userID, delta, now).Scan(&balance); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, classifyNoRows(ctx, tx, userID)
		}
		return 0, err
	}
	if err := InsertEntryTx(ctx, tx, Entry{
		ID:          uuid.NewString(),
		UserID:      userID,
		Field:       FieldCoins,
		Delta:       delta,
		Reason:      reason,
		ExternalRef: externalRef,
		CreatedAt:   now,
	}); err != nil {
		return 0, err
	}
	return balance, nil
}

// AdjustEarningsTx applies a conditional earnings adjustment inside tx and
// appends the ledger entry. Returns the new balance.
func AdjustEarningsTx(ctx context.Context, tx *sql.Tx, userID string, delta int64, reason Reason, externalRef string, now time.Time) (int64, error) {
	const q = `
UPDATE users
SET earnings = earnings + $2, updated_at = $3
WHERE id = $1 AND earnings + $2 >= 0
RETURNING earnings
`
	var balance int64
	if err := tx.QueryRowContext(ctx, q, userID, delta, now).Scan(&balance); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, classifyNoRows(ctx, tx, userID)
		}
		return 0, err
	}
	if err := InsertEntryTx(ctx, tx, Entry{
		ID:          uuid.NewString(),
		UserID:      userID,
		Field:       FieldEarnings,
		Delta:       delta,
		Reason:      reason,
		ExternalRef: externalRef,
		CreatedAt:   now,
	}); err != nil {
		return 0, err
	}
	return balance, nil
}

// IncrementCallsCompletedTx bumps the whisper's completed-call counter.
// Counter only; no ledger entry is written for it.
func IncrementCallsCompletedTx(ctx context.Context, tx *sql.Tx, userID string, now time.Time) error {
	const q = `
UPDATE users SET calls_completed = calls_completed + 1, updated_at = $2
WHERE id = $1
`
	res, err := tx.ExecContext(ctx, q, userID, now)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// classifyNoRows distinguishes a missing user from an underflow rejection.
func classifyNoRows(ctx context.Context, tx *sql.Tx, userID string) error {
	const q = `SELECT EXISTS (SELECT 1 FROM users WHERE id = $1)`
	var exists bool
	if err := tx.QueryRowContext(ctx, q, userID).Scan(&exists); err != nil {
		return err
	}
	if !exists {
		return ErrNotFound
	}
	return ErrInsufficientFunds
}

// InsertEntryTx appends a ledger entry inside tx. Callers that maintain the
// balance column themselves (user creation with a signup bonus) use this to
// keep the ledger complete.
func InsertEntryTx(ctx context.Context, tx *sql.Tx, e Entry) error {
	const q = `
INSERT INTO coin_ledger (id, user_id, field, delta, reason, external_ref, created_at)
VALUES ($1,$2,$3,$4,$5,$6,$7)
`
	_, err := tx.ExecContext(ctx, q,
		e.ID,
		e.UserID,
		e.Field,
		e.Delta,
		e.Reason,
		e.ExternalRef,
		e.CreatedAt,
	)
	return err
}
