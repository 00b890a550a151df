package payments

import (
	"context"
	"errors"
	"testing"
	"time"

	"whisperline/internal/config"
)

func newTestService(t *testing.T) (*Service, *MemoryRepo) {
	t.Helper()
	repo := NewMemoryRepo()
	svc := &Service{
		repo:    repo,
		billing: config.BillingConfig{CoinPriceCents: 1500, PayoutRateCents: 1200, SignupBonusCoins: 10},
		clock:   func() time.Time { return time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC) },
	}
	return svc, repo
}

func seedSession(t *testing.T, svc *Service, repo *MemoryRepo, id, userID string, amountCents int64) {
	t.Helper()
	if err := repo.Create(context.Background(), Session{
		ID:          id,
		UserID:      userID,
		AmountCents: amountCents,
		Status:      SessionStatusPending,
		CreatedAt:   svc.clock(),
	}); err != nil {
		t.Fatalf("create session: %v", err)
	}
}

func TestCoinsForAmount(t *testing.T) {
	cases := []struct {
		amount int64
		want   int64
	}{
		{0, 0},
		{-500, 0},
		{1499, 0},
		{1500, 1},
		{2999, 1},
		{3000, 2},
		{4500, 3},
	}
	for _, tc := range cases {
		if got := CoinsForAmount(tc.amount, 1500); got != tc.want {
			t.Errorf("CoinsForAmount(%d) = %d, want %d", tc.amount, got, tc.want)
		}
	}
	if got := CoinsForAmount(1500, 0); got != 0 {
		t.Errorf("zero coin price should yield 0, got %d", got)
	}
}

func TestCompleteSession_CreditsCoinsOnce(t *testing.T) {
	svc, repo := newTestService(t)
	ctx := context.Background()
	seedSession(t, svc, repo, "cs_test_1", "buyer-1", 3000)

	if err := svc.CompleteSession(ctx, "cs_test_1", 3000, "buyer-1"); err != nil {
		t.Fatalf("first completion: %v", err)
	}
	// Redelivered webhook for the same session.
	if err := svc.CompleteSession(ctx, "cs_test_1", 3000, "buyer-1"); err != nil {
		t.Fatalf("second completion: %v", err)
	}

	if got := repo.Coins("buyer-1"); got != 2 {
		t.Fatalf("expected exactly 2 coins credited, got %d", got)
	}
	sess, ok := repo.Get("cs_test_1")
	if !ok || sess.Status != SessionStatusCompleted || sess.CompletedAt == nil {
		t.Fatalf("session not marked completed: %+v", sess)
	}
}

func TestCompleteSession_CreditFailureLeavesSessionPending(t *testing.T) {
	svc, repo := newTestService(t)
	ctx := context.Background()
	seedSession(t, svc, repo, "cs_test_2", "buyer-2", 3000)

	// First delivery hits a transient ledger failure inside the
	// settlement transaction; nothing may be committed.
	failures := 0
	repo.failCredit = func(Credit) error {
		failures++
		return errors.New("connection reset")
	}
	if err := svc.CompleteSession(ctx, "cs_test_2", 3000, "buyer-2"); err == nil {
		t.Fatal("expected error from failed credit")
	}
	if sess, _ := repo.Get("cs_test_2"); sess.Status != SessionStatusPending {
		t.Fatalf("session must stay pending after failed credit, got %s", sess.Status)
	}
	if got := repo.Coins("buyer-2"); got != 0 {
		t.Fatalf("no coins may be credited on failure, got %d", got)
	}

	// Redelivery settles the purchase in full.
	repo.failCredit = nil
	if err := svc.CompleteSession(ctx, "cs_test_2", 3000, "buyer-2"); err != nil {
		t.Fatalf("redelivery: %v", err)
	}
	if got := repo.Coins("buyer-2"); got != 2 {
		t.Fatalf("expected 2 coins after redelivery, got %d", got)
	}
	if failures != 1 {
		t.Fatalf("expected a single failed attempt, got %d", failures)
	}
}

func TestCompleteSession_FallsBackToStoredUser(t *testing.T) {
	svc, repo := newTestService(t)
	ctx := context.Background()
	seedSession(t, svc, repo, "cs_test_3", "buyer-3", 1500)

	// Event metadata without a user id; the stored session supplies it.
	if err := svc.CompleteSession(ctx, "cs_test_3", 1500, ""); err != nil {
		t.Fatalf("completion: %v", err)
	}
	if got := repo.Coins("buyer-3"); got != 1 {
		t.Fatalf("expected credit to buyer-3, got %d", got)
	}
}

func TestCompleteSession_UnknownSessionIsNoOp(t *testing.T) {
	svc, repo := newTestService(t)

	if err := svc.CompleteSession(context.Background(), "cs_missing", 1500, "buyer-4"); err != nil {
		t.Fatalf("unknown session should not error: %v", err)
	}
	if got := repo.Coins("buyer-4"); got != 0 {
		t.Fatalf("expected no credits, got %d", got)
	}
}

func TestCompleteSession_BelowCoinPriceCreditsNothing(t *testing.T) {
	svc, repo := newTestService(t)
	ctx := context.Background()
	seedSession(t, svc, repo, "cs_test_4", "buyer-5", 500)

	if err := svc.CompleteSession(ctx, "cs_test_4", 500, "buyer-5"); err != nil {
		t.Fatalf("completion: %v", err)
	}
	if got := repo.Coins("buyer-5"); got != 0 {
		t.Fatalf("expected no credit below coin price, got %d", got)
	}
	sess, _ := repo.Get("cs_test_4")
	if sess.Status != SessionStatusCompleted {
		t.Fatalf("session should still be marked completed: %+v", sess)
	}
}

func TestCompleteSession_EmptyID(t *testing.T) {
	svc, _ := newTestService(t)
	if err := svc.CompleteSession(context.Background(), "", 1500, "buyer"); err != ErrInvalidArgument {
		t.Fatalf("expected ErrInvalidArgument, got %v", err)
	}
}
