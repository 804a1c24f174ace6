package retention

import (
	"context"
	"log/slog"
	"time"

	"github.com/flowforge/dagmanager/pkg/core"
	"github.com/flowforge/dagmanager/pkg/dqueue"
	"github.com/flowforge/dagmanager/pkg/schedule"
)

// Retention sweeps the shared failedDagIds set on a fixed cadence,
// deleting from the failed store anything older than the configured
// retention window.
type Retention struct {
	failed       core.DagStateStore
	failedDagIds *dqueue.ConcurrentSet[core.DagId]
	retention    time.Duration
	interval     time.Duration
	logger       *slog.Logger
}

// New creates a retention sweeper. retention <= 0 disables the sweep
// entirely: Run returns immediately without scheduling anything.
func New(failed core.DagStateStore, failedDagIds *dqueue.ConcurrentSet[core.DagId], retention, interval time.Duration, logger *slog.Logger) *Retention {
	if logger == nil {
		logger = slog.Default()
	}
	return &Retention{failed: failed, failedDagIds: failedDagIds, retention: retention, interval: interval, logger: logger}
}

// Run blocks, sweeping every interval, until ctx is cancelled.
func (r *Retention) Run(ctx context.Context) {
	if r.retention <= 0 {
		return
	}
	sched := schedule.Every(r.interval)
	next := sched.Next(time.Now())
	timer := time.NewTimer(time.Until(next))
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-timer.C:
			r.sweep(ctx)
			next = sched.Next(time.Now())
			timer.Reset(time.Until(next))
		}
	}
}

func (r *Retention) sweep(ctx context.Context) {
	now := time.Now()
	for _, id := range r.failedDagIds.Snapshot() {
		if !time.UnixMilli(id.FlowExecutionId).Add(r.retention).Before(now) {
			continue
		}
		if err := r.failed.CleanUp(ctx, id); err != nil {
			r.logger.Error("retention: cleanup failed store", "dag", id, "err", err)
			continue
		}
		r.failedDagIds.Remove(id)
	}
}
