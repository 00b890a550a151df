package calls

import "time"

// Settlement is the computed outcome of terminating a call. It is applied
// together with the terminal status transition in one transaction; the
// transition's status check makes applying it exactly-once.
type Settlement struct {
	// To is the terminal status: ended for explicit/active-timeout ends,
	// expired for the unanswered-ringing sweep.
	To Status

	// RefundCaller returns the charged coin to the caller.
	RefundCaller bool

	// CreditWhisper posts one coin of earnings to the whisper and bumps
	// their completed-call counter.
	CreditWhisper bool

	Flagged    bool
	DurationMS int64
}

// settleEnded computes the outcome of ending a call at now.
//
// Boundary policy: an active call shorter than 30s refunds the caller and
// is flagged; one of at least 60s pays the whisper; the 30-60s band pays
// neither party, the coin is retained as a partial-service cost. A call
// that never went active refunds in full.
func settleEnded(c Call, now time.Time) Settlement {
	if c.StartedAt == nil {
		return Settlement{To: StatusEnded, RefundCaller: true}
	}

	d := now.Sub(*c.StartedAt)
	if d < 0 {
		d = 0
	}
	s := Settlement{To: StatusEnded, DurationMS: d.Milliseconds()}
	switch {
	case d < RefundThreshold:
		s.RefundCaller = true
		s.Flagged = true
	case d >= EarnThreshold:
		s.CreditWhisper = true
	}
	return s
}

// settleExpired is the outcome of the unanswered-ringing sweep: the coin
// was charged but no service was rendered.
func settleExpired() Settlement {
	return Settlement{To: StatusExpired, RefundCaller: true}
}
