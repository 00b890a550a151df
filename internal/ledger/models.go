package ledger

import "time"

// Entry is an immutable append-only coin-ledger record.
// Each row represents one signed adjustment to a user balance field.
//
// Money invariant: any balance change MUST have a corresponding entry,
// written in the same transaction as the balance update.
type Entry struct {
	ID     string `json:"id" db:"id"`
	UserID string `json:"user_id" db:"user_id"`

	// Field names the balance column the delta applies to.
	Field Field `json:"field" db:"field"`

	// Delta is signed: charges are negative, credits positive.
	Delta int64 `json:"delta" db:"delta"`

	Reason Reason `json:"reason" db:"reason"`

	// ExternalRef links the adjustment to its cause:
	// call id, payment session id, payout batch id, admin actor id.
	ExternalRef string `json:"external_ref,omitempty" db:"external_ref"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

type Field string

const (
	FieldCoins    Field = "coins"
	FieldEarnings Field = "earnings"
)

type Reason string

const (
	ReasonCallCharge   Reason = "call_charge"
	ReasonCallRefund   Reason = "call_refund"
	ReasonCallEarnings Reason = "call_earnings"
	ReasonPurchase     Reason = "purchase"
	ReasonSignupBonus  Reason = "signup_bonus"
	ReasonAdminGrant   Reason = "admin_grant"
	ReasonPayout       Reason = "payout"
)
