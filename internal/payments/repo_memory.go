package payments

import (
	"context"
	"sync"
	"time"
)

// MemoryRepo is an in-memory session repository useful for tests. It
// carries its own coin accounts so the transactional coupling between the
// session flip and the credit can be exercised without a database. It is
// not intended for production use.
type MemoryRepo struct {
	mu       sync.Mutex
	sessions map[string]Session
	coins    map[string]int64

	// failCredit, when set, is consulted before applying a credit;
	// returning an error simulates a ledger failure inside the
	// transaction. Test hook.
	failCredit func(credit Credit) error
}

func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{
		sessions: make(map[string]Session),
		coins:    make(map[string]int64),
	}
}

// Coins returns the user's credited balance. Test helper.
func (r *MemoryRepo) Coins(userID string) int64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.coins[userID]
}

// Get returns a stored session. Test helper.
func (r *MemoryRepo) Get(id string) (Session, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[id]
	return s, ok
}

func (r *MemoryRepo) Create(ctx context.Context, s Session) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sessions[s.ID] = s
	return nil
}

func (r *MemoryRepo) Complete(ctx context.Context, id string, credit Credit, now time.Time) (Session, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.sessions[id]
	if !ok || s.Status != SessionStatusPending {
		return Session{}, false, nil
	}

	uid := credit.UserID
	if uid == "" {
		uid = s.UserID
	}
	if credit.Coins > 0 && uid != "" {
		if r.failCredit != nil {
			if err := r.failCredit(credit); err != nil {
				// Nothing is mutated: the session stays pending.
				return Session{}, false, err
			}
		}
		r.coins[uid] += credit.Coins
	}

	s.Status = SessionStatusCompleted
	t := now
	s.CompletedAt = &t
	r.sessions[id] = s
	return s, true, nil
}
