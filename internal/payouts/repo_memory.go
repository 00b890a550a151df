package payouts

import (
	"context"
	"sort"
	"sync"
	"time"
)

type memAccount struct {
	earnings     int64
	pendingCents int64
	payoutEmail  string
	lastPayoutAt *time.Time
}

// MemoryRepo is an in-memory payout repository useful for tests.
// It is not intended for production use.
type MemoryRepo struct {
	mu       sync.Mutex
	accounts map[string]*memAccount
	batches  map[string]Batch
}

func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{
		accounts: make(map[string]*memAccount),
		batches:  make(map[string]Batch),
	}
}

// SeedAccount installs a user with earnings and a payout email. Test helper.
func (r *MemoryRepo) SeedAccount(userID string, earnings int64, payoutEmail string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.accounts[userID] = &memAccount{earnings: earnings, payoutEmail: payoutEmail}
}

// Earnings returns the user's current earnings balance. Test helper.
func (r *MemoryRepo) Earnings(userID string) int64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	if a, ok := r.accounts[userID]; ok {
		return a.earnings
	}
	return 0
}

// PendingCents returns the user's pending payout amount. Test helper.
func (r *MemoryRepo) PendingCents(userID string) int64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	if a, ok := r.accounts[userID]; ok {
		return a.pendingCents
	}
	return 0
}

func (r *MemoryRepo) ListCandidates(ctx context.Context, limit int) ([]Candidate, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []Candidate
	for id, a := range r.accounts {
		if a.earnings > 0 && a.payoutEmail != "" {
			out = append(out, Candidate{UserID: id, Earnings: a.earnings, PayoutEmail: a.payoutEmail})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Earnings > out[j].Earnings })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *MemoryRepo) SettleUser(ctx context.Context, userID string, observedEarnings, amountCents int64, batchID string, now time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	a, ok := r.accounts[userID]
	if !ok || a.earnings != observedEarnings {
		return false, nil
	}
	a.earnings = 0
	a.pendingCents += amountCents
	t := now
	a.lastPayoutAt = &t
	return true, nil
}

func (r *MemoryRepo) InsertBatch(ctx context.Context, b Batch) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.batches[b.ID] = b
	return nil
}

func (r *MemoryRepo) GetBatch(ctx context.Context, id string) (Batch, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	b, ok := r.batches[id]
	if !ok {
		return Batch{}, ErrNotFound
	}
	return b, nil
}
