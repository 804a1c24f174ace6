package metrics

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/flowforge/dagmanager/pkg/core"
)

// Counters holds the observability-surface counters from the design's
// external-interfaces section: per-state job counts, plus start/run SLA
// breaches.
type Counters struct {
	JobsSent             int64
	JobsSucceeded        int64
	JobsFailed           int64
	JobsStartSLAExpired  int64
	JobsRunSLAExpired    int64
	RunningJobs          int64
	OrchestrationDelayMs int64
}

// Emitter fans out flow/job timing events to subscribers and maintains
// the counters above. One Emitter is shared by the manager and all of
// its shards.
type Emitter struct {
	mu   sync.RWMutex
	subs []chan core.Event

	counters Counters

	hbMu       sync.Mutex
	heartbeats map[int]time.Time
}

// New creates an empty emitter.
func New() *Emitter {
	return &Emitter{heartbeats: make(map[int]time.Time)}
}

// Subscribe returns a channel receiving every emitted event. The caller
// must call Unsubscribe when done.
func (e *Emitter) Subscribe() <-chan core.Event {
	ch := make(chan core.Event, 256)
	e.mu.Lock()
	e.subs = append(e.subs, ch)
	e.mu.Unlock()
	return ch
}

// Unsubscribe removes a subscriber channel created by Subscribe.
func (e *Emitter) Unsubscribe(ch <-chan core.Event) {
	e.mu.Lock()
	defer e.mu.Unlock()
	for i, sub := range e.subs {
		if sub == ch {
			e.subs = append(e.subs[:i], e.subs[i+1:]...)
			return
		}
	}
}

// Emit fans out ev to every subscriber, dropping it for any subscriber
// whose channel is full rather than blocking the caller.
func (e *Emitter) Emit(ev core.Event) {
	e.mu.RLock()
	subs := make([]chan core.Event, len(e.subs))
	copy(subs, e.subs)
	e.mu.RUnlock()

	for _, ch := range subs {
		select {
		case ch <- ev:
		default:
		}
	}
}

// FlowEvent emits a flow-state timing event. It updates no counters
// (FLOW_SUCCEEDED/FLOW_FAILED are counted at the job level, not here —
// this only forwards the event).
func (e *Emitter) FlowEvent(ev *core.FlowStateEvent) {
	e.Emit(ev)
}

// JobEvent emits a job-level timing event and updates the matching
// counter.
func (e *Emitter) JobEvent(ev *core.JobStateEvent) {
	switch ev.Name {
	case core.JobOrchestrated:
		atomic.AddInt64(&e.counters.JobsSent, 1)
	case core.JobFailed:
		atomic.AddInt64(&e.counters.JobsFailed, 1)
	}
	e.Emit(ev)
}

// IncJobSucceeded increments the succeeded counter.
func (e *Emitter) IncJobSucceeded() { atomic.AddInt64(&e.counters.JobsSucceeded, 1) }

// IncStartSLAExpired increments the start-SLA breach counter.
func (e *Emitter) IncStartSLAExpired() { atomic.AddInt64(&e.counters.JobsStartSLAExpired, 1) }

// IncRunSLAExpired increments the run-SLA breach counter.
func (e *Emitter) IncRunSLAExpired() { atomic.AddInt64(&e.counters.JobsRunSLAExpired, 1) }

// IncRunningJobs adjusts the running-jobs gauge by delta.
func (e *Emitter) IncRunningJobs(delta int64) { atomic.AddInt64(&e.counters.RunningJobs, delta) }

// RecordOrchestrationDelay updates the orchestration-delay gauge (the
// time between a flow's assigned execution ID and its first pass through
// initialize).
func (e *Emitter) RecordOrchestrationDelay(d time.Duration) {
	atomic.StoreInt64(&e.counters.OrchestrationDelayMs, d.Milliseconds())
}

// Heartbeat records that shard fired a pass just now.
func (e *Emitter) Heartbeat(shard int) {
	e.hbMu.Lock()
	defer e.hbMu.Unlock()
	e.heartbeats[shard] = time.Now()
}

// LastHeartbeat returns the last time shard reported a pass.
func (e *Emitter) LastHeartbeat(shard int) (time.Time, bool) {
	e.hbMu.Lock()
	defer e.hbMu.Unlock()
	t, ok := e.heartbeats[shard]
	return t, ok
}

// Snapshot returns a copy of the current counters.
func (e *Emitter) Snapshot() Counters {
	return Counters{
		JobsSent:             atomic.LoadInt64(&e.counters.JobsSent),
		JobsSucceeded:        atomic.LoadInt64(&e.counters.JobsSucceeded),
		JobsFailed:           atomic.LoadInt64(&e.counters.JobsFailed),
		JobsStartSLAExpired:  atomic.LoadInt64(&e.counters.JobsStartSLAExpired),
		JobsRunSLAExpired:    atomic.LoadInt64(&e.counters.JobsRunSLAExpired),
		RunningJobs:          atomic.LoadInt64(&e.counters.RunningJobs),
		OrchestrationDelayMs: atomic.LoadInt64(&e.counters.OrchestrationDelayMs),
	}
}
