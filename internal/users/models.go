package users

import "time"

// User is the account record for both roles. Identity is the opaque stable
// id from the auth subject; there is no separate profile entity.
//
// Money invariant reminder: coins and earnings are only ever mutated through
// the ledger's conditional updates (or the payout batch's CAS), never by a
// blind overwrite.
type User struct {
	ID string `json:"id" db:"id"`

	// Coins is the spendable balance. Non-negative, enforced by the ledger.
	Coins int64 `json:"coins" db:"coins"`

	// Earnings is whisper revenue in coins, pending the next payout batch.
	Earnings int64 `json:"earnings" db:"earnings"`

	// PendingEarningsCents accumulates converted earnings after payout,
	// awaiting external disbursement.
	PendingEarningsCents int64 `json:"pending_earnings_cents" db:"pending_earnings_cents"`

	CallsCompleted int64 `json:"calls_completed" db:"calls_completed"`

	// IsWhisper marks the account as offering calls; IsAvailable marks it
	// currently online for calls. The availability toggle sets both.
	IsWhisper   bool `json:"is_whisper" db:"is_whisper"`
	IsAvailable bool `json:"is_available" db:"is_available"`

	// PayoutEmail is the payout destination. Empty means not configured;
	// the payout batch skips such users.
	PayoutEmail string `json:"payout_email,omitempty" db:"payout_email"`

	LastPayoutAt *time.Time `json:"last_payout_at,omitempty" db:"last_payout_at"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}
