package users

import (
	"context"
	"testing"
	"time"
)

func newTestService(repo *MemoryRepo) *Service {
	svc := NewService(repo, 10)
	svc.clock = func() time.Time { return time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC) }
	return svc
}

func TestEnsureUser_GrantsSignupBonusOnce(t *testing.T) {
	repo := NewMemoryRepo()
	svc := newTestService(repo)

	u, err := svc.EnsureUser(context.Background(), "u1")
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if u.Coins != 10 {
		t.Fatalf("expected 10 signup coins, got %d", u.Coins)
	}

	// Simulate spend, then re-ensure: balance must not reset.
	u.Coins = 3
	repo.Put(u)

	again, err := svc.EnsureUser(context.Background(), "u1")
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if again.Coins != 3 {
		t.Fatalf("expected ensure to be a no-op, got coins %d", again.Coins)
	}
}

func TestSetAvailability_SetsBothFlags(t *testing.T) {
	repo := NewMemoryRepo()
	svc := newTestService(repo)

	if _, err := svc.EnsureUser(context.Background(), "w1"); err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if err := svc.SetAvailability(context.Background(), "w1", true); err != nil {
		t.Fatalf("unexpected err: %v", err)
	}

	u, err := svc.Get(context.Background(), "w1")
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if !u.IsWhisper || !u.IsAvailable {
		t.Fatalf("expected both flags set, got whisper=%v available=%v", u.IsWhisper, u.IsAvailable)
	}

	if err := svc.SetAvailability(context.Background(), "w1", false); err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	u, _ = svc.Get(context.Background(), "w1")
	if u.IsWhisper || u.IsAvailable {
		t.Fatalf("expected both flags cleared")
	}
}

func TestListAvailableWhispers_ExcludesRequester(t *testing.T) {
	repo := NewMemoryRepo()
	svc := newTestService(repo)

	for _, id := range []string{"a", "b", "c"} {
		if _, err := svc.EnsureUser(context.Background(), id); err != nil {
			t.Fatalf("unexpected err: %v", err)
		}
	}
	_ = svc.SetAvailability(context.Background(), "a", true)
	_ = svc.SetAvailability(context.Background(), "b", true)

	got, err := svc.ListAvailableWhispers(context.Background(), "a")
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if len(got) != 1 || got[0].ID != "b" {
		t.Fatalf("expected only b listed, got %+v", got)
	}
}

func TestSetPayoutEmail_Validates(t *testing.T) {
	repo := NewMemoryRepo()
	svc := newTestService(repo)
	if _, err := svc.EnsureUser(context.Background(), "u1"); err != nil {
		t.Fatalf("unexpected err: %v", err)
	}

	if err := svc.SetPayoutEmail(context.Background(), "u1", "not-an-email"); err != ErrInvalidArgument {
		t.Fatalf("expected ErrInvalidArgument, got %v", err)
	}
	if err := svc.SetPayoutEmail(context.Background(), "u1", "pay@example.com"); err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	// Clearing the destination is allowed.
	if err := svc.SetPayoutEmail(context.Background(), "u1", ""); err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
}
