package calls

import (
	"context"
	"log/slog"
	"time"

	"whisperline/internal/users"

	"github.com/google/uuid"
)

// Directory is the availability lookup the lifecycle needs from the user
// layer.
type Directory interface {
	Get(ctx context.Context, id string) (users.User, error)
}

// RingingLimiter caps outstanding ringing calls per caller. Acquire reports
// false when the cap is reached; slots expire on their own, so a missed
// Release self-heals.
type RingingLimiter interface {
	Acquire(ctx context.Context, callerID string) (bool, error)
	Release(ctx context.Context, callerID string) error
}

// Service is the call lifecycle state machine.
//
// All transitions are optimistic: read the call, decide, then apply a
// conditional update keyed on the observed status. Two actors racing to
// settle the same call resolve to exactly one settlement; the loser
// observes the terminal state.
type Service struct {
	repo    Repository
	dir     Directory
	limiter RingingLimiter
	clock   func() time.Time
}

// NewService wires the lifecycle. limiter may be nil, disabling the
// per-caller ringing cap.
func NewService(repo Repository, dir Directory, limiter RingingLimiter) *Service {
	return &Service{repo: repo, dir: dir, limiter: limiter, clock: time.Now}
}

// Request validates availability and balance, debits one coin and creates
// the call in ringing state. The debit and the insert share one
// transaction in the repository, so a partial failure cannot charge the
// caller without a call record.
func (s *Service) Request(ctx context.Context, callerID, whisperID string) (Call, error) {
	if callerID == "" || whisperID == "" {
		return Call{}, ErrInvalidArgument
	}
	if callerID == whisperID {
		return Call{}, ErrInvalidArgument
	}

	w, err := s.dir.Get(ctx, whisperID)
	if err != nil {
		if err == users.ErrNotFound {
			return Call{}, ErrUnavailable
		}
		return Call{}, err
	}
	if !w.IsWhisper || !w.IsAvailable {
		return Call{}, ErrUnavailable
	}

	if s.limiter != nil {
		ok, err := s.limiter.Acquire(ctx, callerID)
		if err != nil {
			return Call{}, err
		}
		if !ok {
			return Call{}, ErrCallInProgress
		}
	}

	now := s.clock().UTC()
	c := Call{
		ID:           uuid.NewString(),
		CallerID:     callerID,
		WhisperID:    whisperID,
		Status:       StatusRinging,
		CoinsCharged: CoinsPerCall,
		CreatedAt:    now,
		RingingUntil: now.Add(RingingWindow),
	}
	if err := s.repo.CreateWithCharge(ctx, c); err != nil {
		s.releaseSlot(ctx, callerID)
		return Call{}, err
	}
	return c, nil
}

// Accept transitions ringing -> accepted. Only the designated whisper may
// accept.
func (s *Service) Accept(ctx context.Context, callID, actorID string) (Call, error) {
	if callID == "" || actorID == "" {
		return Call{}, ErrInvalidArgument
	}
	c, err := s.repo.Get(ctx, callID)
	if err != nil {
		return Call{}, err
	}
	if c.WhisperID != actorID {
		return Call{}, ErrPermissionDenied
	}
	if c.Status != StatusRinging {
		return Call{}, ErrInvalidState
	}

	out, ok, err := s.repo.Accept(ctx, callID, s.clock().UTC())
	if err != nil {
		return Call{}, err
	}
	if !ok {
		// The ringing sweep or a cancel got there first.
		return Call{}, ErrInvalidState
	}
	s.releaseSlot(ctx, c.CallerID)
	return out, nil
}

// ConfirmReady records a party's transport-readiness confirmation. When
// both parties have confirmed, the call flips to active exactly once and
// the duration budget starts. Re-confirming is a no-op.
func (s *Service) ConfirmReady(ctx context.Context, callID, actorID string) (Call, error) {
	if callID == "" || actorID == "" {
		return Call{}, ErrInvalidArgument
	}
	c, err := s.repo.Get(ctx, callID)
	if err != nil {
		return Call{}, err
	}
	if !c.IsParty(actorID) {
		return Call{}, ErrPermissionDenied
	}
	if c.Status != StatusAccepted {
		return Call{}, ErrInvalidState
	}

	out, ok, err := s.repo.MarkReady(ctx, callID, actorID, s.clock().UTC())
	if err != nil {
		return Call{}, err
	}
	if !ok {
		return Call{}, ErrInvalidState
	}
	return out, nil
}

// End terminates a call in any non-terminal state and settles it. Parties
// may end their own call; admin ends any. The settlement and the terminal
// transition are a single conditional write, retried on state races.
func (s *Service) End(ctx context.Context, callID, actorID string, admin bool) (Call, error) {
	if callID == "" || actorID == "" {
		return Call{}, ErrInvalidArgument
	}

	for attempt := 0; attempt < 3; attempt++ {
		c, err := s.repo.Get(ctx, callID)
		if err != nil {
			return Call{}, err
		}
		if !admin && !c.IsParty(actorID) {
			return Call{}, ErrPermissionDenied
		}
		if c.Status.IsTerminal() {
			return Call{}, ErrInvalidState
		}

		now := s.clock().UTC()
		out, ok, err := s.repo.Settle(ctx, callID, c.Status, settleEnded(c, now), now)
		if err != nil {
			return Call{}, err
		}
		if ok {
			if c.Status == StatusRinging {
				s.releaseSlot(ctx, c.CallerID)
			}
			return out, nil
		}
		// Status moved under us (accept or a sweep); re-read and retry.
	}
	return Call{}, ErrInvalidState
}

// ExpireRinging sweeps calls still ringing past their deadline, expiring
// each and refunding the caller. Idempotent and safe to run concurrently:
// the conditional transition guards against double refunds, and a call
// another actor already settled is skipped silently.
func (s *Service) ExpireRinging(ctx context.Context) (int, error) {
	now := s.clock().UTC()
	ids, err := s.repo.ListExpiredRinging(ctx, now, sweepBatchSize)
	if err != nil {
		return 0, err
	}

	settled := 0
	for _, id := range ids {
		c, ok, err := s.repo.Settle(ctx, id, StatusRinging, settleExpired(), now)
		if err != nil {
			slog.Error("ringing expiry failed", "call_id", id, "err", err)
			continue
		}
		if ok {
			settled++
			s.releaseSlot(ctx, c.CallerID)
		}
	}
	return settled, nil
}

// SettleOverdue sweeps calls still active past their budget, settling each
// as if ended at the budget boundary. The clamp keeps a late sweep from
// inflating the billed duration past the 300s budget.
func (s *Service) SettleOverdue(ctx context.Context) (int, error) {
	now := s.clock().UTC()
	ids, err := s.repo.ListOverdueActive(ctx, now, sweepBatchSize)
	if err != nil {
		return 0, err
	}

	settled := 0
	for _, id := range ids {
		c, err := s.repo.Get(ctx, id)
		if err != nil {
			if err == ErrNotFound {
				continue
			}
			slog.Error("overdue settle read failed", "call_id", id, "err", err)
			continue
		}
		if c.Status != StatusActive {
			continue
		}
		endAt := now
		if c.ActiveUntil != nil && endAt.After(*c.ActiveUntil) {
			endAt = *c.ActiveUntil
		}
		if _, ok, err := s.repo.Settle(ctx, id, StatusActive, settleEnded(c, endAt), endAt); err != nil {
			slog.Error("overdue settle failed", "call_id", id, "err", err)
		} else if ok {
			settled++
		}
	}
	return settled, nil
}

// PurgeOldCalls deletes calls created strictly before now-retention.
func (s *Service) PurgeOldCalls(ctx context.Context, retention time.Duration) (int64, error) {
	if retention <= 0 {
		retention = DefaultRetention
	}
	cutoff := s.clock().UTC().Add(-retention)
	return s.repo.PurgeBefore(ctx, cutoff)
}

// Get returns a call visible to one of its parties (or an admin).
func (s *Service) Get(ctx context.Context, callID, actorID string, admin bool) (Call, error) {
	c, err := s.repo.Get(ctx, callID)
	if err != nil {
		return Call{}, err
	}
	if !admin && !c.IsParty(actorID) {
		return Call{}, ErrPermissionDenied
	}
	return c, nil
}

const sweepBatchSize = 500

func (s *Service) releaseSlot(ctx context.Context, callerID string) {
	if s.limiter == nil {
		return
	}
	if err := s.limiter.Release(ctx, callerID); err != nil {
		slog.Warn("ringing slot release failed", "caller_id", callerID, "err", err)
	}
}
