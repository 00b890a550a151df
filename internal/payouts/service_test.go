package payouts

import (
	"context"
	"testing"
	"time"

	"whisperline/internal/config"
)

func newTestService(t *testing.T) (*Service, *MemoryRepo) {
	t.Helper()
	repo := NewMemoryRepo()
	svc := NewService(repo, config.BillingConfig{
		CoinPriceCents:   1500,
		PayoutRateCents:  1200,
		SignupBonusCoins: 10,
	})
	svc.clock = func() time.Time { return time.Date(2025, 6, 2, 9, 0, 0, 0, time.UTC) }
	return svc, repo
}

func TestRunBatch_SettlesEligibleWhispers(t *testing.T) {
	svc, repo := newTestService(t)
	repo.SeedAccount("w-1", 5, "w1@example.com")
	repo.SeedAccount("w-2", 3, "w2@example.com")

	b, err := svc.RunBatch(context.Background())
	if err != nil {
		t.Fatalf("run batch: %v", err)
	}
	if b.UserCount != 2 {
		t.Fatalf("expected 2 users settled, got %d", b.UserCount)
	}
	if b.TotalCoins != 8 {
		t.Fatalf("expected 8 coins total, got %d", b.TotalCoins)
	}
	if b.TotalAmountCents != 8*1200 {
		t.Fatalf("expected %d cents total, got %d", 8*1200, b.TotalAmountCents)
	}

	if got := repo.Earnings("w-1"); got != 0 {
		t.Fatalf("w-1 earnings should be zeroed, got %d", got)
	}
	if got := repo.PendingCents("w-1"); got != 5*1200 {
		t.Fatalf("w-1 pending = %d, want %d", got, 5*1200)
	}

	if len(b.Details) != 2 {
		t.Fatalf("expected 2 detail rows, got %+v", b.Details)
	}
	// Candidates are listed by earnings, highest first.
	d := b.Details[0]
	if d.UserID != "w-1" || d.PayoutEmail != "w1@example.com" || d.Coins != 5 || d.AmountCents != 5*1200 {
		t.Fatalf("unexpected detail row %+v", d)
	}

	stored, err := svc.GetBatch(context.Background(), b.ID)
	if err != nil {
		t.Fatalf("get batch: %v", err)
	}
	if stored.ID != b.ID || stored.TotalAmountCents != b.TotalAmountCents {
		t.Fatalf("stored batch %+v != returned %+v", stored, b)
	}
	if len(stored.Details) != 2 || stored.Details[1].UserID != "w-2" {
		t.Fatalf("stored batch lost detail rows: %+v", stored.Details)
	}
}

func TestRunBatch_SkipsUsersWithoutPayoutEmail(t *testing.T) {
	svc, repo := newTestService(t)
	repo.SeedAccount("w-1", 4, "")
	repo.SeedAccount("w-2", 2, "w2@example.com")

	b, err := svc.RunBatch(context.Background())
	if err != nil {
		t.Fatalf("run batch: %v", err)
	}
	if b.UserCount != 1 || b.TotalCoins != 2 {
		t.Fatalf("expected only w-2 settled, got %+v", b)
	}
	if got := repo.Earnings("w-1"); got != 4 {
		t.Fatalf("w-1 earnings should be untouched, got %d", got)
	}
}

func TestRunBatch_EmptyRunWritesNothing(t *testing.T) {
	svc, repo := newTestService(t)

	b, err := svc.RunBatch(context.Background())
	if err != nil {
		t.Fatalf("run batch: %v", err)
	}
	if b.ID != "" || b.UserCount != 0 {
		t.Fatalf("expected empty batch, got %+v", b)
	}
	if len(repo.batches) != 0 {
		t.Fatalf("expected no batch record, got %d", len(repo.batches))
	}
}

func TestRunBatch_SecondRunIsNoOp(t *testing.T) {
	svc, repo := newTestService(t)
	repo.SeedAccount("w-1", 5, "w1@example.com")

	if _, err := svc.RunBatch(context.Background()); err != nil {
		t.Fatalf("first run: %v", err)
	}
	b, err := svc.RunBatch(context.Background())
	if err != nil {
		t.Fatalf("second run: %v", err)
	}
	if b.UserCount != 0 {
		t.Fatalf("second run should settle nobody, got %+v", b)
	}
	if got := repo.PendingCents("w-1"); got != 5*1200 {
		t.Fatalf("pending should not double, got %d", got)
	}
}

func TestGetBatch_NotFound(t *testing.T) {
	svc, _ := newTestService(t)
	if _, err := svc.GetBatch(context.Background(), "missing"); err != ErrNotFound {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
