package ledger

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"whisperline/pkg/utils"
)

// Service applies atomic balance adjustments to user coin/earnings fields.
//
// Money invariants:
// - No balance update without a ledger entry
// - The ledger is append-only (immutable)
// - Adjustments are conditional single-statement updates; the balance can
//   never go negative, checked by the database, not by a read-then-write.
//
// Two concurrent debits against a balance of 1 must not both succeed; the
// conditional UPDATE guarantees exactly one wins and the other observes
// ErrInsufficientFunds.
type Service struct {
	db *sql.DB
	// clock is injectable for deterministic tests.
	clock func() time.Time
}

func NewService(db *sql.DB) *Service {
	return &Service{db: db, clock: time.Now}
}

var (
	ErrNotFound          = errors.New("ledger: user not found")
	ErrInsufficientFunds = errors.New("ledger: insufficient funds")
	ErrInvalidArgument   = errors.New("ledger: invalid argument")
)

// AdjustCoins applies a signed delta to a user's coin balance and returns
// the new balance. Negative deltas fail with ErrInsufficientFunds when the
// post-adjustment balance would go below zero.
func (s *Service) AdjustCoins(ctx context.Context, userID string, delta int64, reason Reason, externalRef string) (int64, error) {
	if userID == "" || delta == 0 || reason == "" {
		return 0, ErrInvalidArgument
	}

	now := s.clock().UTC()
	var balance int64
	err := utils.WithTx(ctx, s.db, &sql.TxOptions{}, func(ctx context.Context, tx *sql.Tx) error {
		b, err := AdjustCoinsTx(ctx, tx, userID, delta, reason, externalRef, now)
		if err != nil {
			return err
		}
		balance = b
		return nil
	})
	return balance, err
}

// AdjustEarnings applies a signed delta to a user's earnings balance.
// Earnings only ever grow or get zeroed at payout, but the same underflow
// guard applies for symmetry.
func (s *Service) AdjustEarnings(ctx context.Context, userID string, delta int64, reason Reason, externalRef string) (int64, error) {
	if userID == "" || delta == 0 || reason == "" {
		return 0, ErrInvalidArgument
	}

	now := s.clock().UTC()
	var balance int64
	err := utils.WithTx(ctx, s.db, &sql.TxOptions{}, func(ctx context.Context, tx *sql.Tx) error {
		b, err := AdjustEarningsTx(ctx, tx, userID, delta, reason, externalRef, now)
		if err != nil {
			return err
		}
		balance = b
		return nil
	})
	return balance, err
}
