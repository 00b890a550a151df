package users

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"whisperline/internal/ledger"
	"whisperline/pkg/utils"

	"github.com/google/uuid"
)

// PostgresRepo persists users in the users table.
//
// Assumed schema:
//
//	users (
//	  id TEXT PRIMARY KEY,
//	  coins BIGINT NOT NULL DEFAULT 0 CHECK (coins >= 0),
//	  earnings BIGINT NOT NULL DEFAULT 0 CHECK (earnings >= 0),
//	  pending_earnings_cents BIGINT NOT NULL DEFAULT 0,
//	  calls_completed BIGINT NOT NULL DEFAULT 0,
//	  is_whisper BOOLEAN NOT NULL DEFAULT FALSE,
//	  is_available BOOLEAN NOT NULL DEFAULT FALSE,
//	  payout_email TEXT NOT NULL DEFAULT '',
//	  last_payout_at TIMESTAMPTZ,
//	  created_at TIMESTAMPTZ NOT NULL,
//	  updated_at TIMESTAMPTZ NOT NULL
//	)
type PostgresRepo struct {
	db *sql.DB
}

func NewPostgresRepo(db *sql.DB) *PostgresRepo {
	return &PostgresRepo{db: db}
}

const userColumns = `id, coins, earnings, pending_earnings_cents, calls_completed,
is_whisper, is_available, payout_email, last_payout_at, created_at, updated_at`

func (r *PostgresRepo) Ensure(ctx context.Context, u User) (User, bool, error) {
	var out User
	var created bool

	err := utils.WithTx(ctx, r.db, &sql.TxOptions{}, func(ctx context.Context, tx *sql.Tx) error {
		const ins = `
INSERT INTO users (id, coins, created_at, updated_at)
VALUES ($1, $2, $3, $3)
ON CONFLICT (id) DO NOTHING
`
		res, err := tx.ExecContext(ctx, ins, u.ID, u.Coins, u.CreatedAt)
		if err != nil {
			return err
		}
		n, err := res.RowsAffected()
		if err != nil {
			return err
		}
		created = n == 1

		// The signup bonus is set in the INSERT; the ledger entry keeps the
		// money trail complete.
		if created && u.Coins > 0 {
			if err := ledger.InsertEntryTx(ctx, tx, ledger.Entry{
				ID:        uuid.NewString(),
				UserID:    u.ID,
				Field:     ledger.FieldCoins,
				Delta:     u.Coins,
				Reason:    ledger.ReasonSignupBonus,
				CreatedAt: u.CreatedAt,
			}); err != nil {
				return err
			}
		}

		got, err := getTx(ctx, tx, u.ID)
		if err != nil {
			return err
		}
		out = got
		return nil
	})
	return out, created, err
}

func (r *PostgresRepo) Get(ctx context.Context, id string) (User, error) {
	const q = `SELECT ` + userColumns + ` FROM users WHERE id = $1`
	return scanUser(r.db.QueryRowContext(ctx, q, id))
}

func getTx(ctx context.Context, tx *sql.Tx, id string) (User, error) {
	const q = `SELECT ` + userColumns + ` FROM users WHERE id = $1`
	return scanUser(tx.QueryRowContext(ctx, q, id))
}

func (r *PostgresRepo) SetAvailability(ctx context.Context, id string, available bool, now time.Time) error {
	// Both flags track the same toggle.
	const q = `
UPDATE users SET is_whisper = $2, is_available = $2, updated_at = $3
WHERE id = $1
`
	res, err := r.db.ExecContext(ctx, q, id, available, now)
	if err != nil {
		return err
	}
	return requireRow(res)
}

func (r *PostgresRepo) SetPayoutEmail(ctx context.Context, id, email string, now time.Time) error {
	const q = `UPDATE users SET payout_email = $2, updated_at = $3 WHERE id = $1`
	res, err := r.db.ExecContext(ctx, q, id, email, now)
	if err != nil {
		return err
	}
	return requireRow(res)
}

func (r *PostgresRepo) ListAvailableWhispers(ctx context.Context, excludeID string) ([]User, error) {
	const q = `
SELECT ` + userColumns + `
FROM users
WHERE is_whisper AND is_available AND id <> $1
ORDER BY calls_completed DESC, created_at ASC
`
	rows, err := r.db.QueryContext(ctx, q, excludeID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, u)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row rowScanner) (User, error) {
	var u User
	var lastPayout sql.NullTime
	err := row.Scan(
		&u.ID,
		&u.Coins,
		&u.Earnings,
		&u.PendingEarningsCents,
		&u.CallsCompleted,
		&u.IsWhisper,
		&u.IsAvailable,
		&u.PayoutEmail,
		&lastPayout,
		&u.CreatedAt,
		&u.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return User{}, ErrNotFound
		}
		return User{}, err
	}
	if lastPayout.Valid {
		t := lastPayout.Time
		u.LastPayoutAt = &t
	}
	return u, nil
}

func requireRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
