package ledger

import (
	"context"
	"database/sql"
	"testing"
)

// The adjustment operations are implemented with Postgres-specific
// conditional UPDATEs; end-to-end behavior (underflow rejection, ledger
// inserts, concurrent debits) is covered by integration tests against
// Postgres. What we can safely unit-test without a DB is input validation.

func TestAdjustCoins_RejectsInvalidArgs(t *testing.T) {
	svc := NewService((*sql.DB)(nil))

	if _, err := svc.AdjustCoins(context.Background(), "", 1, ReasonPurchase, ""); err != ErrInvalidArgument {
		t.Fatalf("expected ErrInvalidArgument for missing user, got %v", err)
	}
	if _, err := svc.AdjustCoins(context.Background(), "u1", 0, ReasonPurchase, ""); err != ErrInvalidArgument {
		t.Fatalf("expected ErrInvalidArgument for zero delta, got %v", err)
	}
	if _, err := svc.AdjustCoins(context.Background(), "u1", 1, "", ""); err != ErrInvalidArgument {
		t.Fatalf("expected ErrInvalidArgument for missing reason, got %v", err)
	}
}

func TestAdjustEarnings_RejectsInvalidArgs(t *testing.T) {
	svc := NewService((*sql.DB)(nil))

	if _, err := svc.AdjustEarnings(context.Background(), "", 1, ReasonCallEarnings, "c1"); err != ErrInvalidArgument {
		t.Fatalf("expected ErrInvalidArgument for missing user, got %v", err)
	}
	if _, err := svc.AdjustEarnings(context.Background(), "u1", 0, ReasonCallEarnings, "c1"); err != ErrInvalidArgument {
		t.Fatalf("expected ErrInvalidArgument for zero delta, got %v", err)
	}
}
