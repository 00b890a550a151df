package payouts

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"whisperline/internal/config"

	"github.com/google/uuid"
)

// Repository is the persistence contract for payout runs.
//
// SettleUser must be conditional on the observed earnings balance: it
// reports ok=false when the balance changed between listing and settling,
// in which case the user is picked up by a later run instead.
type Repository interface {
	ListCandidates(ctx context.Context, limit int) ([]Candidate, error)
	SettleUser(ctx context.Context, userID string, observedEarnings, amountCents int64, batchID string, now time.Time) (bool, error)
	InsertBatch(ctx context.Context, b Batch) error
	GetBatch(ctx context.Context, id string) (Batch, error)
}

var ErrNotFound = errors.New("payouts: not found")

const batchSize = 500

// Service converts accumulated whisper earnings into cash payout amounts
// on a fixed rate per coin.
type Service struct {
	repo    Repository
	billing config.BillingConfig
	clock   func() time.Time
}

func NewService(repo Repository, billing config.BillingConfig) *Service {
	return &Service{repo: repo, billing: billing, clock: time.Now}
}

// RunBatch settles every eligible whisper: zeroes their earnings balance,
// books the cash amount as pending, and writes one immutable batch record
// for the run. Users whose balance moved since listing are skipped and
// caught by the next run. Returns the batch; a run with no eligible users
// writes nothing and returns an empty batch.
func (s *Service) RunBatch(ctx context.Context) (Batch, error) {
	now := s.clock().UTC()

	candidates, err := s.repo.ListCandidates(ctx, batchSize)
	if err != nil {
		return Batch{}, err
	}
	if len(candidates) == 0 {
		return Batch{}, nil
	}

	b := Batch{
		ID:        uuid.NewString(),
		CreatedAt: now,
	}
	for _, c := range candidates {
		if c.Earnings <= 0 || c.PayoutEmail == "" {
			continue
		}
		amount := c.Earnings * s.billing.PayoutRateCents
		ok, err := s.repo.SettleUser(ctx, c.UserID, c.Earnings, amount, b.ID, now)
		if err != nil {
			slog.Error("payout settle failed", "user_id", c.UserID, "batch_id", b.ID, "error", err)
			continue
		}
		if !ok {
			continue
		}
		b.UserCount++
		b.TotalCoins += c.Earnings
		b.TotalAmountCents += amount
		b.Details = append(b.Details, BatchDetail{
			UserID:      c.UserID,
			PayoutEmail: c.PayoutEmail,
			Coins:       c.Earnings,
			AmountCents: amount,
		})
	}

	if b.UserCount == 0 {
		return Batch{}, nil
	}
	if err := s.repo.InsertBatch(ctx, b); err != nil {
		return Batch{}, err
	}
	slog.Info("payout batch complete",
		"batch_id", b.ID,
		"users", b.UserCount,
		"coins", b.TotalCoins,
		"amount_cents", b.TotalAmountCents)
	return b, nil
}

// GetBatch returns one batch record.
func (s *Service) GetBatch(ctx context.Context, id string) (Batch, error) {
	if id == "" {
		return Batch{}, ErrNotFound
	}
	return s.repo.GetBatch(ctx, id)
}
