package worker

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/flowforge/dagmanager/pkg/core"
	"github.com/flowforge/dagmanager/pkg/dqueue"
	"github.com/flowforge/dagmanager/pkg/metrics"
	"github.com/flowforge/dagmanager/pkg/retrywrap"
	"github.com/flowforge/dagmanager/pkg/schedule"
	"github.com/flowforge/dagmanager/pkg/security"
)

// dagFlowStatusTolerance is DAG_FLOW_STATUS_TOLERANCE_TIME_MILLIS: how
// long a terminal flow event may go unconfirmed before it is re-emitted.
const dagFlowStatusTolerance = 5 * time.Minute

// ProducerResolver returns the SpecProducer responsible for one executor
// URI. Implementations typically hold a small registry keyed by
// executor type or hostname.
type ProducerResolver func(executorURI string) (core.SpecProducer, error)

// FlowSLALookup resolves a per-flow SLA override, mirroring
// pkg/config.Config.FlowSLA without tying this package to pkg/config.
type FlowSLALookup func(flowGroup, flowName string) (time.Duration, bool)

// Config is one shard's tuning knobs.
type Config struct {
	Index           int
	NumShards       int
	PollingInterval time.Duration
	JobStartSLA     time.Duration
	DefaultFlowSLA  time.Duration
	FlowSLA         FlowSLALookup
}

type cleanupState struct {
	lastEmitted time.Time
}

// Worker is one DagWorker shard. All of its index maps are single-writer
// (only the goroutine running Run mutates them); the three queues are
// the only state other goroutines touch, and they are internally
// synchronized.
type Worker struct {
	cfg          Config
	live         core.DagStateStore
	failed       core.DagStateStore
	actions      core.DagActionStore
	statuses     core.JobStatusRetriever
	quota        core.QuotaManager
	producers    ProducerResolver
	metrics      *metrics.Emitter
	failedDagIds *dqueue.ConcurrentSet[core.DagId]
	logger       *slog.Logger

	submitQ *dqueue.Queue[*core.Dag]
	cancelQ *dqueue.Queue[core.DagId]
	resumeQ *dqueue.Queue[core.DagId]

	dags          map[core.DagId]*core.Dag
	jobToDag      map[core.NodeRef]*core.Dag
	dagToJobs     map[core.DagId][]string
	dagToSLA      map[core.DagId]time.Time
	dagIdsToClean map[core.DagId]*cleanupState
	resumingDags  map[core.DagId]*core.Dag
}

// New constructs a shard. failedDagIds is shared across all shards and
// the retention sweep.
func New(
	cfg Config,
	live, failed core.DagStateStore,
	actions core.DagActionStore,
	statuses core.JobStatusRetriever,
	quota core.QuotaManager,
	producers ProducerResolver,
	emitter *metrics.Emitter,
	failedDagIds *dqueue.ConcurrentSet[core.DagId],
	logger *slog.Logger,
) *Worker {
	if logger == nil {
		logger = slog.Default()
	}
	return &Worker{
		cfg:           cfg,
		live:          live,
		failed:        failed,
		actions:       actions,
		statuses:      statuses,
		quota:         quota,
		producers:     producers,
		metrics:       emitter,
		failedDagIds:  failedDagIds,
		logger:        logger.With("shard", cfg.Index),
		submitQ:       dqueue.New[*core.Dag](),
		cancelQ:       dqueue.New[core.DagId](),
		resumeQ:       dqueue.New[core.DagId](),
		dags:          make(map[core.DagId]*core.Dag),
		jobToDag:      make(map[core.NodeRef]*core.Dag),
		dagToJobs:     make(map[core.DagId][]string),
		dagToSLA:      make(map[core.DagId]time.Time),
		dagIdsToClean: make(map[core.DagId]*cleanupState),
		resumingDags:  make(map[core.DagId]*core.Dag),
	}
}

// OfferSubmit enqueues a DAG for the submit phase — used both for brand
// new flow executions and for recovery replay of DAGs loaded from the
// live store.
func (w *Worker) OfferSubmit(dag *core.Dag) bool { return w.submitQ.Offer(dag) }

// OfferCancel enqueues a kill request for id.
func (w *Worker) OfferCancel(id core.DagId) bool { return w.cancelQ.Offer(id) }

// OfferResume enqueues a resume request for id.
func (w *Worker) OfferResume(id core.DagId) bool { return w.resumeQ.Offer(id) }

// TrackedDagCount reports how many DAGs this shard currently supervises.
// Exposed for tests and dashboards; racy against a live shard.
func (w *Worker) TrackedDagCount() int { return len(w.dags) }

// Run drives the shard at cfg.PollingInterval until ctx is cancelled.
func (w *Worker) Run(ctx context.Context) {
	sched := schedule.Every(w.cfg.PollingInterval)
	next := sched.Next(time.Now())
	timer := time.NewTimer(time.Until(next))
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-timer.C:
			w.safePass(ctx)
			if w.metrics != nil {
				w.metrics.Heartbeat(w.cfg.Index)
			}
			next = sched.Next(time.Now())
			timer.Reset(time.Until(next))
		}
	}
}

// safePass runs one pass, recovering from a panic so the shard never
// stops voluntarily except on deactivation.
func (w *Worker) safePass(ctx context.Context) {
	defer func() {
		if r := recover(); r != nil {
			w.logger.Error("worker pass panicked", "panic", r)
		}
	}()
	w.cancelPhase(ctx)
	w.submitPhase(ctx)
	w.resumeBeginPhase(ctx)
	w.resumeFinishPhase(ctx)
	w.pollAndAdvancePhase(ctx)
	w.cleanupPhase(ctx)
}

// --- phase 1: cancel ---

func (w *Worker) cancelPhase(ctx context.Context) {
	id, ok := w.cancelQ.TryPoll()
	if !ok {
		return
	}
	dag, ok := w.dags[id]
	if !ok {
		w.logger.Warn("cancel: unknown dag", "dag", id)
		w.deleteAction(ctx, id, core.ActionKill)
		return
	}
	for _, name := range append([]string(nil), w.dagToJobs[id]...) {
		plan, ok := dag.Node(name)
		if !ok {
			continue
		}
		w.cancelJobBestEffort(ctx, dag, name, plan)
		w.metrics.JobEvent(&core.JobStateEvent{DagId: id, JobName: name, Name: core.JobCancel, Timestamp: time.Now()})
		plan.Status = core.StatusCancelled
		w.quota.ReleaseQuota(ctx, core.NodeRef{DagId: id, JobName: name})
		w.metrics.IncRunningJobs(-1)
		w.untrackActive(id, name)
	}
	dag.FlowEvent = string(core.FlowCancelled)
	dag.Message = "killed by request"
	w.deleteAction(ctx, id, core.ActionKill)
}

func (w *Worker) cancelJobBestEffort(ctx context.Context, dag *core.Dag, name string, plan *core.JobExecutionPlan) {
	producer, err := w.producers(plan.ExecutorURI)
	if err != nil {
		w.logger.Error("cancel: no producer", "job", name, "err", err)
		return
	}
	props := map[string]string{}
	if plan.Future != nil {
		if link, err := producer.SerializeAddSpecResponse(plan.Future); err == nil {
			props["link"] = link
		}
	}
	if err := producer.CancelJob(ctx, plan.ExecutorURI, props); err != nil {
		w.logger.Error("cancel: producer refused", "job", name, "err", err)
	}
}

// --- phase 2: submit ---

func (w *Worker) submitPhase(ctx context.Context) {
	for _, dag := range w.submitQ.DrainAll() {
		if dag == nil || dag.IsEmpty() {
			w.logger.Warn("submit: empty or nil dag skipped")
			continue
		}
		w.initialize(ctx, dag)
	}
}

// initialize admits dag into this shard's indices, recovers already
// running nodes, and dispatches whatever is newly ready. It is a no-op
// if dag.Id is already tracked, per the duplicate-DagId guard the
// housekeeping re-sync relies on.
func (w *Worker) initialize(ctx context.Context, dag *core.Dag) {
	if _, exists := w.dags[dag.Id]; exists {
		return
	}
	w.dags[dag.Id] = dag
	if dag.FlowStartTime.IsZero() {
		dag.FlowStartTime = time.Now()
	}

	wasAlreadyRunning := len(dag.RunningNodes()) > 0
	for _, name := range dag.RunningNodes() {
		w.trackActive(dag.Id, name)
	}
	for _, name := range dag.ReadyNodes() {
		w.submitJob(ctx, dag, name)
		w.trackActive(dag.Id, name)
	}

	dag.FlowEvent = string(core.FlowRunning)
	w.metrics.FlowEvent(&core.FlowStateEvent{DagId: dag.Id, Name: core.FlowRunning, Timestamp: time.Now()})

	if !wasAlreadyRunning {
		w.metrics.RecordOrchestrationDelay(time.Since(time.UnixMilli(dag.Id.FlowExecutionId)))
	}
}

// --- phase 3: resume begin ---

func (w *Worker) resumeBeginPhase(ctx context.Context) {
	for _, id := range w.resumeQ.DrainAll() {
		if !w.failedDagIds.Contains(id) {
			w.deleteAction(ctx, id, core.ActionResume)
			continue
		}
		dag, err := w.failed.GetDag(ctx, id)
		if err != nil {
			w.logger.Error("resume: load failed dag", "dag", id, "err", err)
			continue
		}

		now := time.Now()
		for _, name := range dag.Nodes() {
			plan, _ := dag.Node(name)
			if plan.Status != core.StatusFailed && plan.Status != core.StatusCancelled {
				continue
			}
			plan.Status = core.StatusPendingResume
			plan.CurrentAttempts = 0
			plan.JobGeneration++
			w.metrics.JobEvent(&core.JobStateEvent{DagId: id, JobName: name, Name: core.JobPendingResume, Timestamp: now})
		}
		dag.FlowStartTime = now
		dag.FlowEvent = string(core.FlowPendingResume)
		w.metrics.FlowEvent(&core.FlowStateEvent{DagId: id, Name: core.FlowPendingResume, Timestamp: now})

		w.resumingDags[id] = dag
	}
}

// --- phase 4: resume finish ---

func (w *Worker) resumeFinishPhase(ctx context.Context) {
	for id, dag := range w.resumingDags {
		events, err := w.statuses.GetJobStatusesForFlowExecution(ctx, id)
		if err != nil {
			w.logger.Error("resume: poll status", "dag", id, "err", err)
			continue
		}
		if !resumeReady(events) {
			continue
		}

		if err := w.checkpointNow(ctx, dag); err != nil {
			w.logger.Error("resume: checkpoint", "dag", id, "err", err)
			continue
		}
		if err := w.failed.CleanUp(ctx, id); err != nil {
			w.logger.Error("resume: cleanup failed store", "dag", id, "err", err)
		}
		for _, name := range dag.Nodes() {
			plan, _ := dag.Node(name)
			if plan.Status == core.StatusPendingResume {
				plan.Status = core.StatusPending
			}
		}

		w.deleteAction(ctx, id, core.ActionResume)
		w.failedDagIds.Remove(id)
		delete(w.resumingDags, id)

		delete(w.dags, id) // let initialize re-admit it fresh
		w.initialize(ctx, dag)
	}
}

// resumeReady reports whether the status store has caught up with a
// PENDING_RESUME transition: the flow-level event is PENDING_RESUME
// (either the ExecutionStatus or the FLOW_PENDING_RESUME event name) and
// no per-job event still reads FAILED/CANCELLED.
func resumeReady(events []core.JobStatusEvent) bool {
	sawFlowPendingResume := false
	for _, ev := range events {
		if ev.JobName == core.NAKey {
			if mapEventToStatus(ev.EventName) == core.StatusPendingResume || ev.EventName == string(core.FlowPendingResume) {
				sawFlowPendingResume = true
			}
			continue
		}
		if ev.EventName == string(core.StatusFailed) || ev.EventName == string(core.StatusCancelled) {
			return false
		}
	}
	return sawFlowPendingResume
}

// --- phase 5: poll and advance ---

func (w *Worker) pollAndAdvancePhase(ctx context.Context) {
	now := time.Now()
	statusCache := make(map[core.DagId][]core.JobStatusEvent)

	for node, dag := range w.jobToDag {
		plan, ok := dag.Node(node.JobName)
		if !ok {
			continue
		}

		if w.slaKillIfNeeded(ctx, dag, node.JobName, plan, now) {
			continue
		}
		if w.killJobIfOrphaned(ctx, dag, node.JobName, plan, now) {
			continue
		}

		events, cached := statusCache[dag.Id]
		if !cached {
			var err error
			events, err = w.statuses.GetJobStatusesForFlowExecution(ctx, dag.Id)
			if err != nil {
				w.logger.Error("poll status", "dag", dag.Id, "err", err)
				events = nil
			}
			statusCache[dag.Id] = events
		}

		status, shouldRetry := statusFor(events, node.JobName)
		plan.Status = status

		switch status {
		case core.StatusComplete, core.StatusFailed, core.StatusCancelled:
			w.onJobFinish(ctx, dag, node.JobName, status)
			w.untrackActive(dag.Id, node.JobName)
		default:
			if shouldRetry {
				dag.FlowEvent = ""
				w.submitJob(ctx, dag, node.JobName)
			}
		}
	}
}

func statusFor(events []core.JobStatusEvent, jobName string) (core.ExecutionStatus, bool) {
	for _, ev := range events {
		if ev.JobName != jobName {
			continue
		}
		return mapEventToStatus(ev.EventName), ev.ShouldRetry
	}
	return core.StatusPending, false
}

func mapEventToStatus(name string) core.ExecutionStatus {
	switch core.ExecutionStatus(name) {
	case core.StatusPending, core.StatusPendingRetry, core.StatusPendingResume, core.StatusOrchestrated,
		core.StatusRunning, core.StatusComplete, core.StatusFailed, core.StatusCancelled:
		return core.ExecutionStatus(name)
	default:
		return core.StatusPending
	}
}

func (w *Worker) slaKillIfNeeded(ctx context.Context, dag *core.Dag, name string, plan *core.JobExecutionPlan, now time.Time) bool {
	deadline, memoised := w.dagToSLA[dag.Id]
	if !memoised {
		sla := w.cfg.DefaultFlowSLA
		if w.cfg.FlowSLA != nil {
			if override, found := w.cfg.FlowSLA(dag.Id.FlowGroup, dag.Id.FlowName); found {
				sla = override
			}
		}
		if sla <= 0 {
			return false
		}
		deadline = dag.FlowStartTime.Add(sla)
		w.dagToSLA[dag.Id] = deadline
	}
	if !now.After(deadline) {
		return false
	}
	w.cancelForDeadline(ctx, dag, name, plan, core.FlowRunDeadlineExceeded)
	w.metrics.IncRunSLAExpired()
	return true
}

func (w *Worker) killJobIfOrphaned(ctx context.Context, dag *core.Dag, name string, plan *core.JobExecutionPlan, now time.Time) bool {
	if plan.Status != core.StatusOrchestrated || w.cfg.JobStartSLA <= 0 {
		return false
	}
	if !now.After(plan.OrchestratedAt.Add(w.cfg.JobStartSLA)) {
		return false
	}
	w.cancelForDeadline(ctx, dag, name, plan, core.FlowStartDeadlineExceeded)
	w.metrics.IncStartSLAExpired()
	return true
}

func (w *Worker) cancelForDeadline(ctx context.Context, dag *core.Dag, name string, plan *core.JobExecutionPlan, reason core.FlowEventName) {
	w.cancelJobBestEffort(ctx, dag, name, plan)
	plan.Status = core.StatusCancelled
	dag.FlowEvent = string(reason)
	w.onJobFinish(ctx, dag, name, core.StatusCancelled)
	w.untrackActive(dag.Id, name)
}

// --- phase 6: cleanup ---

func (w *Worker) cleanupPhase(ctx context.Context) {
	now := time.Now()

	// Pass A: classify DAGs with no more active jobs and stamp their
	// terminal event.
	for id, dag := range w.dags {
		if _, already := w.dagIdsToClean[id]; already {
			continue
		}

		if (dag.FlowEvent == string(core.FlowFailed) || dag.FlowEvent == string(core.FlowCancelled)) &&
			dag.FailureOption == core.FinishRunning {
			w.truncateRunning(ctx, id, dag)
		}

		if len(w.dagToJobs[id]) > 0 {
			continue
		}

		if dag.FlowEvent == "" {
			dag.FlowEvent = string(core.FlowSucceeded)
		}
		if dag.FlowEvent != string(core.FlowSucceeded) {
			if err := w.failed.WriteCheckpoint(ctx, dag); err != nil {
				w.logger.Error("cleanup: write failed store", "dag", id, "err", err)
			}
			w.failedDagIds.Add(id)
		}
		dag.EventEmittedTimeMillis = now.UnixMilli()
		w.emitTerminal(dag, now)
		w.dagIdsToClean[id] = &cleanupState{lastEmitted: now}
	}

	// Pass B: wait for the status store to confirm the terminal status,
	// re-emitting past the tolerance window rather than assuming loss.
	for id, state := range w.dagIdsToClean {
		dag, ok := w.dags[id]
		if !ok {
			delete(w.dagIdsToClean, id)
			continue
		}
		events, err := w.statuses.GetJobStatusesForFlowExecution(ctx, id)
		if err != nil {
			w.logger.Error("cleanup: poll status", "dag", id, "err", err)
			continue
		}
		if flowTerminalConfirmed(events) {
			w.cleanUpDag(ctx, dag)
			continue
		}
		if now.Sub(state.lastEmitted) > dagFlowStatusTolerance {
			w.emitTerminal(dag, now)
			state.lastEmitted = now
		}
	}
}

func (w *Worker) truncateRunning(ctx context.Context, id core.DagId, dag *core.Dag) {
	for _, name := range append([]string(nil), w.dagToJobs[id]...) {
		plan, ok := dag.Node(name)
		if !ok || plan.Status.IsTerminal() {
			continue
		}
		plan.Status = core.StatusCancelled
		w.quota.ReleaseQuota(ctx, core.NodeRef{DagId: id, JobName: name})
		w.metrics.IncRunningJobs(-1)
	}
	w.dagToJobs[id] = nil
	for node := range w.jobToDag {
		if node.DagId == id {
			delete(w.jobToDag, node)
		}
	}
}

// flowTerminalConfirmed reports whether the flow-level event is terminal,
// read either as an ExecutionStatus or as a terminal flow event name.
func flowTerminalConfirmed(events []core.JobStatusEvent) bool {
	for _, ev := range events {
		if ev.JobName != core.NAKey {
			continue
		}
		if mapEventToStatus(ev.EventName).IsTerminal() {
			return true
		}
		switch core.FlowEventName(ev.EventName) {
		case core.FlowSucceeded, core.FlowFailed, core.FlowCancelled,
			core.FlowRunDeadlineExceeded, core.FlowStartDeadlineExceeded:
			return true
		}
	}
	return false
}

func (w *Worker) emitTerminal(dag *core.Dag, now time.Time) {
	w.metrics.FlowEvent(&core.FlowStateEvent{
		DagId:     dag.Id,
		Name:      core.FlowEventName(dag.FlowEvent),
		Message:   dag.Message,
		Timestamp: now,
	})
}

func (w *Worker) cleanUpDag(ctx context.Context, dag *core.Dag) {
	dag.FlowEvent = ""
	if err := w.live.CleanUp(ctx, dag.Id); err != nil {
		w.logger.Error("cleanup: delete live store", "dag", dag.Id, "err", err)
	}
	delete(w.dags, dag.Id)
	delete(w.dagToJobs, dag.Id)
	delete(w.dagToSLA, dag.Id)
	delete(w.dagIdsToClean, dag.Id)
	for node := range w.jobToDag {
		if node.DagId == dag.Id {
			delete(w.jobToDag, node)
		}
	}
}

// --- job submission and completion ---

// submitJob dispatches one job node to its executor. Checkpointing after
// the future is stored but before blocking on it means a crash between
// submission and ack still lets the new leader discover the DAG, though
// with the future missing.
func (w *Worker) submitJob(ctx context.Context, dag *core.Dag, name string) {
	plan, ok := dag.Node(name)
	if !ok {
		return
	}
	plan.CurrentAttempts++
	plan.Status = core.StatusRunning

	node := core.NodeRef{DagId: dag.Id, JobName: name}
	if err := w.quota.CheckQuota(ctx, node); err != nil {
		w.failSubmission(dag, name, plan, err)
		return
	}

	producer, err := w.producers(plan.ExecutorURI)
	if err != nil {
		w.failSubmission(dag, name, plan, err)
		return
	}

	plan.OrchestratedAt = time.Now()
	if plan.CurrentAttempts == 1 {
		w.metrics.IncRunningJobs(1)
	}

	future, err := producer.AddSpec(ctx, plan.Spec)
	if err != nil {
		w.failSubmission(dag, name, plan, err)
		return
	}
	plan.Future = future
	plan.Status = core.StatusOrchestrated
	w.checkpoint(ctx, dag)

	if err := future.Wait(ctx); err != nil {
		w.failSubmission(dag, name, plan, err)
		return
	}

	link := producer.GetExecutionLink(future, plan.ExecutorURI)
	w.metrics.JobEvent(&core.JobStateEvent{
		DagId: dag.Id, JobName: name, Name: core.JobOrchestrated,
		ExecutorLink: link, Timestamp: time.Now(),
	})
}

func (w *Worker) failSubmission(dag *core.Dag, name string, plan *core.JobExecutionPlan, cause error) {
	err := &core.SubmissionError{JobName: name, Err: cause}
	w.logger.Error("submit job", "dag", dag.Id, "job", name, "err", err)
	w.metrics.JobEvent(&core.JobStateEvent{
		DagId: dag.Id, JobName: name, Name: core.JobFailed,
		Message: security.SanitizeMessage(err.Error()), Timestamp: time.Now(),
	})
	plan.Status = core.StatusFailed
}

// onJobFinish applies the terminal-status policy: COMPLETE releases
// quota and advances the DAG, FAILED marks the flow event for the
// cleanup pass to interpret per failure-option, CANCELLED releases quota
// without advancing.
func (w *Worker) onJobFinish(ctx context.Context, dag *core.Dag, name string, status core.ExecutionStatus) {
	node := core.NodeRef{DagId: dag.Id, JobName: name}
	switch status {
	case core.StatusComplete:
		if dag.FlowEvent == string(core.FlowRunning) {
			dag.FlowEvent = ""
		}
		w.quota.ReleaseQuota(ctx, node)
		w.metrics.IncRunningJobs(-1)
		w.metrics.IncJobSucceeded()
		w.submitNext(ctx, dag)
	case core.StatusFailed:
		dag.FlowEvent = string(core.FlowFailed)
		dag.Message = security.SanitizeMessage(fmt.Sprintf("job %q failed", name))
		w.quota.ReleaseQuota(ctx, node)
		w.metrics.IncRunningJobs(-1)
	case core.StatusCancelled:
		if dag.FlowEvent == "" || dag.FlowEvent == string(core.FlowRunning) {
			dag.FlowEvent = string(core.FlowCancelled)
		}
		w.quota.ReleaseQuota(ctx, node)
		w.metrics.IncRunningJobs(-1)
	}
}

// submitNext dispatches every newly-unblocked node and re-checkpoints.
func (w *Worker) submitNext(ctx context.Context, dag *core.Dag) {
	ready := dag.ReadyNodes()
	for _, name := range ready {
		w.submitJob(ctx, dag, name)
		w.trackActive(dag.Id, name)
	}
	w.checkpoint(ctx, dag)
}

// --- index bookkeeping ---

func (w *Worker) trackActive(id core.DagId, name string) {
	w.jobToDag[core.NodeRef{DagId: id, JobName: name}] = w.dags[id]
	for _, existing := range w.dagToJobs[id] {
		if existing == name {
			return
		}
	}
	w.dagToJobs[id] = append(w.dagToJobs[id], name)
}

func (w *Worker) untrackActive(id core.DagId, name string) {
	delete(w.jobToDag, core.NodeRef{DagId: id, JobName: name})
	jobs := w.dagToJobs[id]
	for i, existing := range jobs {
		if existing == name {
			w.dagToJobs[id] = append(jobs[:i], jobs[i+1:]...)
			return
		}
	}
}

func (w *Worker) checkpoint(ctx context.Context, dag *core.Dag) {
	if err := w.checkpointNow(ctx, dag); err != nil {
		w.logger.Error("checkpoint", "dag", dag.Id, "err", err)
	}
}

func (w *Worker) checkpointNow(ctx context.Context, dag *core.Dag) error {
	return retrywrap.Do(ctx, retrywrap.Default(), func() error {
		return w.live.WriteCheckpoint(ctx, dag)
	})
}

func (w *Worker) deleteAction(ctx context.Context, id core.DagId, action core.DagActionType) {
	if w.actions == nil {
		return
	}
	if err := w.actions.DeleteDagAction(ctx, id, action); err != nil {
		w.logger.Error("delete dag action", "dag", id, "action", action, "err", err)
	}
}
