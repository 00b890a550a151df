package payments

import "time"

// Session is the audit-trail record of a Stripe checkout session. It is not
// billing-authoritative: the coin credit posted through the ledger on
// completion is. The pending->completed transition is the idempotency guard
// for webhook redelivery.
type Session struct {
	// ID is the Stripe checkout session id.
	ID     string `json:"id" db:"id"`
	UserID string `json:"user_id" db:"user_id"`

	AmountCents int64 `json:"amount_cents" db:"amount_cents"`

	Status SessionStatus `json:"status" db:"status"`

	CreatedAt   time.Time  `json:"created_at" db:"created_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty" db:"completed_at"`
}

type SessionStatus string

const (
	SessionStatusPending   SessionStatus = "pending"
	SessionStatusCompleted SessionStatus = "completed"
)
