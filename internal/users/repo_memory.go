package users

import (
	"context"
	"sync"
	"time"
)

// MemoryRepo is an in-memory user repository useful for tests.
// It is not intended for production use.
type MemoryRepo struct {
	mu    sync.Mutex
	users map[string]User
}

func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{users: make(map[string]User)}
}

func (r *MemoryRepo) Ensure(ctx context.Context, u User) (User, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if existing, ok := r.users[u.ID]; ok {
		return existing, false, nil
	}
	r.users[u.ID] = u
	return u, true, nil
}

func (r *MemoryRepo) Get(ctx context.Context, id string) (User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return User{}, ErrNotFound
	}
	return u, nil
}

func (r *MemoryRepo) SetAvailability(ctx context.Context, id string, available bool, now time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return ErrNotFound
	}
	u.IsWhisper = available
	u.IsAvailable = available
	u.UpdatedAt = now
	r.users[id] = u
	return nil
}

func (r *MemoryRepo) SetPayoutEmail(ctx context.Context, id, email string, now time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return ErrNotFound
	}
	u.PayoutEmail = email
	u.UpdatedAt = now
	r.users[id] = u
	return nil
}

func (r *MemoryRepo) ListAvailableWhispers(ctx context.Context, excludeID string) ([]User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []User
	for _, u := range r.users {
		if u.ID == excludeID {
			continue
		}
		if u.IsWhisper && u.IsAvailable {
			out = append(out, u)
		}
	}
	return out, nil
}

// Put seeds a user directly, bypassing signup semantics. Test helper.
func (r *MemoryRepo) Put(u User) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.users[u.ID] = u
}
