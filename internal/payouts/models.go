package payouts

import "time"

// Batch is the immutable record of one payout run: aggregates for
// monitoring plus the per-user detail an operator needs to execute the
// actual transfers out of band.
type Batch struct {
	ID               string        `json:"id" db:"id"`
	UserCount        int           `json:"user_count" db:"user_count"`
	TotalCoins       int64         `json:"total_coins" db:"total_coins"`
	TotalAmountCents int64         `json:"total_amount_cents" db:"total_amount_cents"`
	Details          []BatchDetail `json:"details" db:"details"`
	CreatedAt        time.Time     `json:"created_at" db:"created_at"`
}

// BatchDetail is one settled user within a batch.
type BatchDetail struct {
	UserID      string `json:"user_id"`
	PayoutEmail string `json:"payout_email"`
	Coins       int64  `json:"coins"`
	AmountCents int64  `json:"amount_cents"`
}

// Candidate is a whisper eligible for the current run: positive earnings
// and a payout email on file.
type Candidate struct {
	UserID      string
	Earnings    int64
	PayoutEmail string
}
