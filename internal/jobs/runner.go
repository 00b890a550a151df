package jobs

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"whisperline/internal/calls"
	"whisperline/internal/payouts"
)

// Intervals for the maintenance loops. The sweep cadences are deliberately
// shorter than the windows they police so a missed tick never doubles the
// effective deadline.
const (
	ExpireInterval = 15 * time.Second
	SettleInterval = 30 * time.Second
	PurgeInterval  = 24 * time.Hour
	PayoutInterval = 7 * 24 * time.Hour
)

// Runner drives the periodic maintenance work: expiring unanswered calls,
// settling calls that ran past their budget, purging old records, and the
// payout batch. Each loop runs a first pass on startup so restarts do not
// delay overdue work by a full interval.
type Runner struct {
	calls     *calls.Service
	payouts   *payouts.Service
	retention time.Duration
	log       *slog.Logger

	wg sync.WaitGroup
}

func NewRunner(callSvc *calls.Service, payoutSvc *payouts.Service, retention time.Duration, log *slog.Logger) *Runner {
	if retention <= 0 {
		retention = calls.DefaultRetention
	}
	return &Runner{calls: callSvc, payouts: payoutSvc, retention: retention, log: log}
}

// Start launches the loops. They stop when ctx is canceled; Wait blocks
// until all of them have exited.
func (r *Runner) Start(ctx context.Context) {
	r.loop(ctx, "expire_ringing", ExpireInterval, func(ctx context.Context) error {
		n, err := r.calls.ExpireRinging(ctx)
		if n > 0 {
			r.log.Info("expired unanswered calls", "count", n)
		}
		return err
	})

	r.loop(ctx, "settle_overdue", SettleInterval, func(ctx context.Context) error {
		n, err := r.calls.SettleOverdue(ctx)
		if n > 0 {
			r.log.Info("settled overdue calls", "count", n)
		}
		return err
	})

	r.loop(ctx, "purge_calls", PurgeInterval, func(ctx context.Context) error {
		n, err := r.calls.PurgeOldCalls(ctx, r.retention)
		if n > 0 {
			r.log.Info("purged old calls", "count", n)
		}
		return err
	})

	if r.payouts != nil {
		r.loop(ctx, "payout_batch", PayoutInterval, func(ctx context.Context) error {
			b, err := r.payouts.RunBatch(ctx)
			if err == nil && b.UserCount > 0 {
				r.log.Info("payout batch run", "batch_id", b.ID, "users", b.UserCount)
			}
			return err
		})
	}
}

// Wait blocks until every loop has stopped.
func (r *Runner) Wait() {
	r.wg.Wait()
}

func (r *Runner) loop(ctx context.Context, name string, interval time.Duration, fn func(context.Context) error) {
	r.wg.Add(1)
	go func() {
		defer r.wg.Done()

		run := func() {
			if err := fn(ctx); err != nil && ctx.Err() == nil {
				r.log.Error("maintenance job failed", "job", name, "error", err)
			}
		}

		run()

		t := time.NewTicker(interval)
		defer t.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-t.C:
				run()
			}
		}
	}()
}
