package users

import (
	"context"
	"errors"
	"strings"
	"time"
)

// Repository is the persistence contract for user records.
//
// Ensure must be idempotent: creating an already-existing user is a no-op
// that reports created=false and must not touch balances.
type Repository interface {
	Ensure(ctx context.Context, u User) (User, bool, error)
	Get(ctx context.Context, id string) (User, error)
	SetAvailability(ctx context.Context, id string, available bool, now time.Time) error
	SetPayoutEmail(ctx context.Context, id, email string, now time.Time) error
	ListAvailableWhispers(ctx context.Context, excludeID string) ([]User, error)
}

// Service owns user records and the availability directory.
type Service struct {
	repo  Repository
	bonus int64
	clock func() time.Time
}

func NewService(repo Repository, signupBonusCoins int64) *Service {
	return &Service{repo: repo, bonus: signupBonusCoins, clock: time.Now}
}

var (
	ErrNotFound        = errors.New("users: not found")
	ErrInvalidArgument = errors.New("users: invalid argument")
)

// EnsureUser creates the user on first authenticated touch with the signup
// bonus balance. Safe to call on every request; only the first call creates.
func (s *Service) EnsureUser(ctx context.Context, id string) (User, error) {
	if id == "" {
		return User{}, ErrInvalidArgument
	}
	now := s.clock().UTC()
	u, _, err := s.repo.Ensure(ctx, User{
		ID:        id,
		Coins:     s.bonus,
		CreatedAt: now,
		UpdatedAt: now,
	})
	return u, err
}

func (s *Service) Get(ctx context.Context, id string) (User, error) {
	if id == "" {
		return User{}, ErrInvalidArgument
	}
	return s.repo.Get(ctx, id)
}

// SetAvailability toggles the user's directory presence. The whisper flag
// follows the availability flag: a user cannot be listed as available
// without also offering calls. Toggling off does not cancel in-flight calls.
func (s *Service) SetAvailability(ctx context.Context, id string, available bool) error {
	if id == "" {
		return ErrInvalidArgument
	}
	return s.repo.SetAvailability(ctx, id, available, s.clock().UTC())
}

// SetPayoutEmail records the payout destination used by the payout batch.
func (s *Service) SetPayoutEmail(ctx context.Context, id, email string) error {
	if id == "" {
		return ErrInvalidArgument
	}
	email = strings.TrimSpace(email)
	if email != "" && !strings.Contains(email, "@") {
		return ErrInvalidArgument
	}
	return s.repo.SetPayoutEmail(ctx, id, email, s.clock().UTC())
}

// ListAvailableWhispers is the read-only directory query: users currently
// offering and online for calls, excluding the requesting user.
func (s *Service) ListAvailableWhispers(ctx context.Context, excludeID string) ([]User, error) {
	return s.repo.ListAvailableWhispers(ctx, excludeID)
}
