package calls

import "time"

// Call is a brokered voice session between a caller and a whisper.
//
// The status field is the single source of truth for the lifecycle; every
// transition is a conditional update on the expected source status, so a
// call can never move backward and terminal rows are immutable.
//
// Money invariant reminder: the one-coin charge, refunds and earnings are
// posted through the ledger in the same transaction as the status change
// that causes them, referencing the call id as external_ref.
type Call struct {
	ID        string `json:"id" db:"id"`
	CallerID  string `json:"caller_id" db:"caller_id"`
	WhisperID string `json:"whisper_id" db:"whisper_id"`

	Status Status `json:"status" db:"status"`

	// CoinsCharged is fixed at 1 for the life of the call.
	CoinsCharged int64 `json:"coins_charged" db:"coins_charged"`

	CreatedAt    time.Time  `json:"created_at" db:"created_at"`
	RingingUntil time.Time  `json:"ringing_until" db:"ringing_until"`
	AcceptedAt   *time.Time `json:"accepted_at,omitempty" db:"accepted_at"`
	StartedAt    *time.Time `json:"started_at,omitempty" db:"started_at"`
	ActiveUntil  *time.Time `json:"active_until,omitempty" db:"active_until"`
	EndedAt      *time.Time `json:"ended_at,omitempty" db:"ended_at"`

	// CallerReady/WhisperReady form the readiness set (capacity 2). Both
	// must confirm transport readiness before billing starts.
	CallerReady  bool `json:"caller_ready" db:"caller_ready"`
	WhisperReady bool `json:"whisper_ready" db:"whisper_ready"`

	// DurationMS is computed at settlement: ended_at - started_at, or 0 if
	// the call never went active.
	DurationMS int64 `json:"duration_ms" db:"duration_ms"`

	// Flagged marks an anomalously short call refunded for audit review.
	Flagged bool `json:"flagged" db:"flagged"`
}

type Status string

const (
	StatusRinging  Status = "ringing"
	StatusAccepted Status = "accepted"
	StatusActive   Status = "active"
	StatusEnded    Status = "ended"
	StatusExpired  Status = "expired"
)

// IsTerminal reports whether the status permits no further transitions.
func (s Status) IsTerminal() bool {
	return s == StatusEnded || s == StatusExpired
}

const (
	// RingingWindow is the acceptance deadline after call creation.
	RingingWindow = 60 * time.Second

	// ActiveBudget is the maximum duration of a live call.
	ActiveBudget = 300 * time.Second

	// RefundThreshold: active calls shorter than this refund the caller
	// and get flagged.
	RefundThreshold = 30 * time.Second

	// EarnThreshold: active calls at least this long pay the whisper.
	// Calls between the two thresholds pay neither party.
	EarnThreshold = 60 * time.Second

	// CoinsPerCall is the flat per-call price.
	CoinsPerCall int64 = 1

	// DefaultRetention is how long settled calls are kept before the purge.
	DefaultRetention = 30 * 24 * time.Hour
)

// IsParty reports whether id is one of the two call participants.
func (c Call) IsParty(id string) bool {
	return id == c.CallerID || id == c.WhisperID
}

// ReadyCount is the cardinality of the readiness set.
func (c Call) ReadyCount() int {
	n := 0
	if c.CallerReady {
		n++
	}
	if c.WhisperReady {
		n++
	}
	return n
}
