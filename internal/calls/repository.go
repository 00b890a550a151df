package calls

import (
	"context"
	"errors"
	"time"
)

// Repository is the persistence contract for call records.
//
// Every transition method is a conditional update on the expected source
// status. When the condition does not hold anymore (another actor won the
// race) the method reports ok=false with no error and no side effect; the
// caller decides whether that is a conflict or a benign no-op.
type Repository interface {
	// CreateWithCharge debits CoinsPerCall from the caller and inserts the
	// ringing call in a single transaction, so a failure cannot leave the
	// caller charged without a call record.
	CreateWithCharge(ctx context.Context, c Call) error

	Get(ctx context.Context, id string) (Call, error)

	// Accept transitions ringing -> accepted, stamping accepted_at.
	Accept(ctx context.Context, id string, now time.Time) (Call, bool, error)

	// MarkReady adds partyID to the readiness set while status is accepted
	// (idempotent per party) and flips to active when both are confirmed,
	// stamping started_at and active_until. Reports ok=false when the call
	// is not in accepted state.
	MarkReady(ctx context.Context, id, partyID string, now time.Time) (Call, bool, error)

	// Settle applies the terminal transition from the expected status and
	// posts the settlement's ledger effects atomically.
	Settle(ctx context.Context, id string, from Status, s Settlement, endedAt time.Time) (Call, bool, error)

	// ListExpiredRinging returns ids of calls still ringing past their
	// ringing_until deadline.
	ListExpiredRinging(ctx context.Context, now time.Time, limit int) ([]string, error)

	// ListOverdueActive returns ids of calls still active past their
	// active_until budget.
	ListOverdueActive(ctx context.Context, now time.Time, limit int) ([]string, error)

	// PurgeBefore deletes calls created strictly before cutoff.
	PurgeBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

var (
	ErrNotFound          = errors.New("calls: not found")
	ErrPermissionDenied  = errors.New("calls: permission denied")
	ErrInvalidState      = errors.New("calls: invalid state")
	ErrInvalidArgument   = errors.New("calls: invalid argument")
	ErrUnavailable       = errors.New("calls: whisper not available")
	ErrInsufficientFunds = errors.New("calls: insufficient funds")
	ErrCallInProgress    = errors.New("calls: caller already has a ringing call")
)
