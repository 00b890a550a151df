package calls

import (
	"context"
	"sort"
	"sync"
	"time"
)

// MemoryRepo is an in-memory call repository with its own coin accounts,
// mirroring the transactional coupling of the Postgres implementation.
// Useful for tests; not intended for production use.
type MemoryRepo struct {
	mu       sync.Mutex
	calls    map[string]Call
	accounts map[string]*memAccount
}

type memAccount struct {
	coins          int64
	earnings       int64
	callsCompleted int64
}

func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{
		calls:    make(map[string]Call),
		accounts: make(map[string]*memAccount),
	}
}

// SeedAccount creates an account with a starting coin balance. Test helper.
func (r *MemoryRepo) SeedAccount(id string, coins int64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.accounts[id] = &memAccount{coins: coins}
}

func (r *MemoryRepo) Coins(id string) int64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	if a, ok := r.accounts[id]; ok {
		return a.coins
	}
	return 0
}

func (r *MemoryRepo) Earnings(id string) int64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	if a, ok := r.accounts[id]; ok {
		return a.earnings
	}
	return 0
}

func (r *MemoryRepo) CallsCompleted(id string) int64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	if a, ok := r.accounts[id]; ok {
		return a.callsCompleted
	}
	return 0
}

func (r *MemoryRepo) CreateWithCharge(ctx context.Context, c Call) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.accounts[c.CallerID]
	if !ok {
		return ErrNotFound
	}
	if a.coins < c.CoinsCharged {
		return ErrInsufficientFunds
	}
	a.coins -= c.CoinsCharged
	r.calls[c.ID] = c
	return nil
}

func (r *MemoryRepo) Get(ctx context.Context, id string) (Call, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.calls[id]
	if !ok {
		return Call{}, ErrNotFound
	}
	return c, nil
}

func (r *MemoryRepo) Accept(ctx context.Context, id string, now time.Time) (Call, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.calls[id]
	if !ok || c.Status != StatusRinging {
		return Call{}, false, nil
	}
	c.Status = StatusAccepted
	t := now
	c.AcceptedAt = &t
	r.calls[id] = c
	return c, true, nil
}

func (r *MemoryRepo) MarkReady(ctx context.Context, id, partyID string, now time.Time) (Call, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.calls[id]
	if !ok || c.Status != StatusAccepted {
		return Call{}, false, nil
	}
	if partyID == c.CallerID {
		c.CallerReady = true
	}
	if partyID == c.WhisperID {
		c.WhisperReady = true
	}
	if c.CallerReady && c.WhisperReady {
		c.Status = StatusActive
		started := now
		until := now.Add(ActiveBudget)
		c.StartedAt = &started
		c.ActiveUntil = &until
	}
	r.calls[id] = c
	return c, true, nil
}

func (r *MemoryRepo) Settle(ctx context.Context, id string, from Status, s Settlement, endedAt time.Time) (Call, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.calls[id]
	if !ok || c.Status != from {
		return Call{}, false, nil
	}

	c.Status = s.To
	t := endedAt
	c.EndedAt = &t
	c.DurationMS = s.DurationMS
	c.Flagged = s.Flagged
	r.calls[id] = c

	if s.RefundCaller {
		if a, ok := r.accounts[c.CallerID]; ok {
			a.coins += c.CoinsCharged
		}
	}
	if s.CreditWhisper {
		if a, ok := r.accounts[c.WhisperID]; ok {
			a.earnings += CoinsPerCall
			a.callsCompleted++
		}
	}
	return c, true, nil
}

func (r *MemoryRepo) ListExpiredRinging(ctx context.Context, now time.Time, limit int) ([]string, error) {
	return r.listByDeadline(StatusRinging, now, limit, func(c Call) time.Time { return c.RingingUntil })
}

func (r *MemoryRepo) ListOverdueActive(ctx context.Context, now time.Time, limit int) ([]string, error) {
	return r.listByDeadline(StatusActive, now, limit, func(c Call) time.Time {
		if c.ActiveUntil == nil {
			return now
		}
		return *c.ActiveUntil
	})
}

func (r *MemoryRepo) listByDeadline(status Status, now time.Time, limit int, deadline func(Call) time.Time) ([]string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var ids []string
	for id, c := range r.calls {
		if c.Status == status && deadline(c).Before(now) {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	if limit > 0 && len(ids) > limit {
		ids = ids[:limit]
	}
	return ids, nil
}

func (r *MemoryRepo) PurgeBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for id, c := range r.calls {
		if c.CreatedAt.Before(cutoff) {
			delete(r.calls, id)
			n++
		}
	}
	return n, nil
}
