package worker

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flowforge/dagmanager/pkg/core"
	"github.com/flowforge/dagmanager/pkg/dqueue"
	"github.com/flowforge/dagmanager/pkg/metrics"
)

// memStore is a minimal in-memory core.DagStateStore for shard tests.
type memStore struct {
	mu   sync.Mutex
	dags map[core.DagId]*core.Dag
}

func newMemStore() *memStore { return &memStore{dags: make(map[core.DagId]*core.Dag)} }

func (s *memStore) WriteCheckpoint(_ context.Context, dag *core.Dag) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.dags[dag.Id] = dag
	return nil
}

func (s *memStore) GetDag(_ context.Context, id core.DagId) (*core.Dag, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	dag, ok := s.dags[id]
	if !ok {
		return nil, core.ErrDagNotFound
	}
	return dag, nil
}

func (s *memStore) GetDags(_ context.Context) ([]*core.Dag, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*core.Dag, 0, len(s.dags))
	for _, dag := range s.dags {
		out = append(out, dag)
	}
	return out, nil
}

func (s *memStore) GetDagIds(_ context.Context) ([]core.DagId, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]core.DagId, 0, len(s.dags))
	for id := range s.dags {
		out = append(out, id)
	}
	return out, nil
}

func (s *memStore) CleanUp(_ context.Context, id core.DagId) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.dags, id)
	return nil
}

// memActionStore is a minimal in-memory core.DagActionStore.
type memActionStore struct {
	mu      sync.Mutex
	pending map[core.DagAction]struct{}
}

func newMemActionStore() *memActionStore {
	return &memActionStore{pending: make(map[core.DagAction]struct{})}
}

func (s *memActionStore) AddDagAction(_ context.Context, id core.DagId, action core.DagActionType) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pending[core.DagAction{DagId: id, Type: action}] = struct{}{}
	return nil
}

func (s *memActionStore) DeleteDagAction(_ context.Context, id core.DagId, action core.DagActionType) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.pending, core.DagAction{DagId: id, Type: action})
	return nil
}

func (s *memActionStore) Exists(_ context.Context, id core.DagId, action core.DagActionType) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.pending[core.DagAction{DagId: id, Type: action}]
	return ok, nil
}

func (s *memActionStore) PendingActions(_ context.Context) ([]core.DagAction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]core.DagAction, 0, len(s.pending))
	for a := range s.pending {
		out = append(out, a)
	}
	return out, nil
}

// stubStatuses is a settable core.JobStatusRetriever.
type stubStatuses struct {
	mu     sync.Mutex
	events map[core.DagId][]core.JobStatusEvent
}

func newStubStatuses() *stubStatuses {
	return &stubStatuses{events: make(map[core.DagId][]core.JobStatusEvent)}
}

func (s *stubStatuses) set(id core.DagId, events []core.JobStatusEvent) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events[id] = events
}

func (s *stubStatuses) GetLatestExecutionIdsForFlow(_ context.Context, _, _ string, _ int) ([]int64, error) {
	return nil, nil
}

func (s *stubStatuses) GetJobStatusesForFlowExecution(_ context.Context, id core.DagId) ([]core.JobStatusEvent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.events[id], nil
}

// noopQuota always grants and always reports a successful release.
type noopQuota struct{}

func (noopQuota) Init(context.Context, []*core.Dag) error                  { return nil }
func (noopQuota) CheckQuota(context.Context, core.NodeRef) error           { return nil }
func (noopQuota) ReleaseQuota(context.Context, core.NodeRef) (bool, error) { return true, nil }

// syncFuture is already resolved at construction.
type syncFuture struct{ err error }

func (f syncFuture) Wait(context.Context) error { return f.err }
func (f syncFuture) Done() bool                 { return true }
func (f syncFuture) Err() error                 { return f.err }

// fakeProducer resolves every submission synchronously and successfully.
type fakeProducer struct {
	failSubmit bool
}

func (p *fakeProducer) AddSpec(context.Context, core.JobSpec) (core.SubmissionFuture, error) {
	if p.failSubmit {
		return nil, assertErr
	}
	return syncFuture{}, nil
}

func (p *fakeProducer) CancelJob(context.Context, string, map[string]string) error { return nil }

func (p *fakeProducer) SerializeAddSpecResponse(core.SubmissionFuture) (string, error) {
	return "link", nil
}

func (p *fakeProducer) GetExecutionLink(_ core.SubmissionFuture, executorURI string) string {
	return executorURI + "/link"
}

var assertErr = errSentinel{}

type errSentinel struct{}

func (errSentinel) Error() string { return "submission refused" }

func testWorker(t *testing.T, cfg Config, live, failed core.DagStateStore, actions core.DagActionStore, statuses core.JobStatusRetriever) *Worker {
	t.Helper()
	if cfg.NumShards == 0 {
		cfg.NumShards = 1
	}
	producers := func(string) (core.SpecProducer, error) { return &fakeProducer{}, nil }
	return New(cfg, live, failed, actions, statuses, noopQuota{}, producers, metrics.New(), dqueue.NewConcurrentSet[core.DagId](), nil)
}

func singleNodeDag(execId int64) *core.Dag {
	dag := core.NewDag(core.DagId{FlowGroup: "grp", FlowName: "flow", FlowExecutionId: execId}, core.FinishAllPossible)
	dag.FlowStartTime = time.Now()
	dag.AddNode("extract", &core.JobExecutionPlan{
		Spec:        core.JobSpec{Name: "extract", ExecutorURI: "http://executor"},
		ExecutorURI: "http://executor",
		Status:      core.StatusPending,
		MaxAttempts: 3,
	})
	return dag
}

func TestSubmitPhase_DispatchesReadyNode(t *testing.T) {
	live := newMemStore()
	w := testWorker(t, Config{}, live, newMemStore(), newMemActionStore(), newStubStatuses())
	ctx := context.Background()

	dag := singleNodeDag(1)
	require.True(t, w.OfferSubmit(dag))
	w.submitPhase(ctx)

	assert.Equal(t, 1, w.TrackedDagCount())
	plan, _ := dag.Node("extract")
	assert.Equal(t, core.StatusOrchestrated, plan.Status)
	assert.NotNil(t, plan.Future)

	_, err := live.GetDag(ctx, dag.Id)
	assert.NoError(t, err)
}

func TestSubmitPhase_DuplicateIsNoop(t *testing.T) {
	w := testWorker(t, Config{}, newMemStore(), newMemStore(), newMemActionStore(), newStubStatuses())
	ctx := context.Background()

	dag := singleNodeDag(1)
	w.OfferSubmit(dag)
	w.submitPhase(ctx)
	w.OfferSubmit(dag)
	w.submitPhase(ctx)

	assert.Equal(t, 1, w.TrackedDagCount())
}

func TestSubmitJob_QuotaExceededFailsJob(t *testing.T) {
	live := newMemStore()
	cfg := Config{}
	producers := func(string) (core.SpecProducer, error) { return &fakeProducer{}, nil }
	w := New(cfg, live, newMemStore(), newMemActionStore(), newStubStatuses(),
		rejectingQuota{}, producers, metrics.New(), dqueue.NewConcurrentSet[core.DagId](), nil)

	dag := singleNodeDag(1)
	w.OfferSubmit(dag)
	w.submitPhase(context.Background())

	plan, _ := dag.Node("extract")
	assert.Equal(t, core.StatusFailed, plan.Status)
}

type controlCharProducer struct{}

func (controlCharProducer) AddSpec(context.Context, core.JobSpec) (core.SubmissionFuture, error) {
	return nil, errors.New("executor said \x00no\x1b[31m capacity")
}
func (controlCharProducer) CancelJob(context.Context, string, map[string]string) error { return nil }
func (controlCharProducer) SerializeAddSpecResponse(core.SubmissionFuture) (string, error) {
	return "", nil
}
func (controlCharProducer) GetExecutionLink(_ core.SubmissionFuture, executorURI string) string {
	return executorURI
}

func TestFailSubmission_SanitizesMessageBeforeEmitting(t *testing.T) {
	live := newMemStore()
	cfg := Config{}
	emitter := metrics.New()
	events := emitter.Subscribe()
	producers := func(string) (core.SpecProducer, error) { return controlCharProducer{}, nil }
	w := New(cfg, live, newMemStore(), newMemActionStore(), newStubStatuses(),
		noopQuota{}, producers, emitter, dqueue.NewConcurrentSet[core.DagId](), nil)

	dag := singleNodeDag(1)
	w.OfferSubmit(dag)
	w.submitPhase(context.Background())

	select {
	case ev := <-events:
		jobEv, ok := ev.(*core.JobStateEvent)
		require.True(t, ok)
		assert.NotContains(t, jobEv.Message, "\x00")
		assert.NotContains(t, jobEv.Message, "\x1b")
		assert.Contains(t, jobEv.Message, "no")
	case <-time.After(time.Second):
		t.Fatal("expected a job failed event")
	}
}

type rejectingQuota struct{}

func (rejectingQuota) Init(context.Context, []*core.Dag) error { return nil }
func (rejectingQuota) CheckQuota(context.Context, core.NodeRef) error {
	return &core.QuotaExceededError{Reason: "no capacity"}
}
func (rejectingQuota) ReleaseQuota(context.Context, core.NodeRef) (bool, error) { return true, nil }

func TestPollAndAdvancePhase_CompletionReleasesAndAdvances(t *testing.T) {
	live := newMemStore()
	statuses := newStubStatuses()
	w := testWorker(t, Config{}, live, newMemStore(), newMemActionStore(), statuses)
	ctx := context.Background()

	dag := singleNodeDag(1)
	w.OfferSubmit(dag)
	w.submitPhase(ctx)

	statuses.set(dag.Id, []core.JobStatusEvent{{JobName: "extract", EventName: string(core.StatusComplete)}})
	w.pollAndAdvancePhase(ctx)

	plan, _ := dag.Node("extract")
	assert.Equal(t, core.StatusComplete, plan.Status)
	assert.Empty(t, w.dagToJobs[dag.Id])
}

func TestPollAndAdvancePhase_RetryResubmits(t *testing.T) {
	live := newMemStore()
	statuses := newStubStatuses()
	w := testWorker(t, Config{}, live, newMemStore(), newMemActionStore(), statuses)
	ctx := context.Background()

	dag := singleNodeDag(1)
	w.OfferSubmit(dag)
	w.submitPhase(ctx)

	statuses.set(dag.Id, []core.JobStatusEvent{{JobName: "extract", EventName: string(core.StatusRunning), ShouldRetry: true}})
	w.pollAndAdvancePhase(ctx)

	plan, _ := dag.Node("extract")
	assert.Equal(t, 2, plan.CurrentAttempts)
}

func TestKillJobIfOrphaned_CancelsPastStartSLA(t *testing.T) {
	live := newMemStore()
	statuses := newStubStatuses()
	w := testWorker(t, Config{JobStartSLA: time.Minute}, live, newMemStore(), newMemActionStore(), statuses)
	ctx := context.Background()

	dag := singleNodeDag(1)
	w.OfferSubmit(dag)
	w.submitPhase(ctx)

	plan, _ := dag.Node("extract")
	plan.OrchestratedAt = time.Now().Add(-2 * time.Minute)

	w.pollAndAdvancePhase(ctx)

	assert.Equal(t, core.StatusCancelled, plan.Status)
	assert.Equal(t, string(core.FlowStartDeadlineExceeded), dag.FlowEvent)
	assert.Equal(t, int64(1), w.metrics.Snapshot().JobsStartSLAExpired)
}

func TestSlaKillIfNeeded_CancelsPastFlowSLA(t *testing.T) {
	live := newMemStore()
	statuses := newStubStatuses()
	w := testWorker(t, Config{DefaultFlowSLA: time.Minute}, live, newMemStore(), newMemActionStore(), statuses)
	ctx := context.Background()

	dag := singleNodeDag(1)
	dag.FlowStartTime = time.Now().Add(-2 * time.Minute)
	w.OfferSubmit(dag)
	w.submitPhase(ctx)

	w.pollAndAdvancePhase(ctx)

	plan, _ := dag.Node("extract")
	assert.Equal(t, core.StatusCancelled, plan.Status)
	assert.Equal(t, string(core.FlowRunDeadlineExceeded), dag.FlowEvent)
	assert.Equal(t, int64(1), w.metrics.Snapshot().JobsRunSLAExpired)
}

func TestCancelPhase_MarksDagCancelled(t *testing.T) {
	live := newMemStore()
	actions := newMemActionStore()
	w := testWorker(t, Config{}, live, newMemStore(), actions, newStubStatuses())
	ctx := context.Background()

	dag := singleNodeDag(1)
	w.OfferSubmit(dag)
	w.submitPhase(ctx)

	require.NoError(t, actions.AddDagAction(ctx, dag.Id, core.ActionKill))
	w.OfferCancel(dag.Id)
	w.cancelPhase(ctx)

	assert.Equal(t, string(core.FlowCancelled), dag.FlowEvent)
	plan, _ := dag.Node("extract")
	assert.Equal(t, core.StatusCancelled, plan.Status)

	exists, err := actions.Exists(ctx, dag.Id, core.ActionKill)
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestCancelPhase_UnknownDagDeletesAction(t *testing.T) {
	actions := newMemActionStore()
	w := testWorker(t, Config{}, newMemStore(), newMemStore(), actions, newStubStatuses())
	ctx := context.Background()

	id := core.DagId{FlowGroup: "grp", FlowName: "flow", FlowExecutionId: 99}
	require.NoError(t, actions.AddDagAction(ctx, id, core.ActionKill))
	w.OfferCancel(id)
	w.cancelPhase(ctx)

	exists, err := actions.Exists(ctx, id, core.ActionKill)
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestCleanupPhase_SucceededDagWaitsForConfirmationThenCleansUp(t *testing.T) {
	live := newMemStore()
	statuses := newStubStatuses()
	w := testWorker(t, Config{}, live, newMemStore(), newMemActionStore(), statuses)
	ctx := context.Background()

	dag := singleNodeDag(1)
	w.OfferSubmit(dag)
	w.submitPhase(ctx)

	statuses.set(dag.Id, []core.JobStatusEvent{{JobName: "extract", EventName: string(core.StatusComplete)}})
	w.pollAndAdvancePhase(ctx)

	w.cleanupPhase(ctx)
	assert.Equal(t, string(core.FlowSucceeded), dag.FlowEvent)
	_, tracked := w.dags[dag.Id]
	assert.True(t, tracked, "not cleaned up until status store confirms")

	statuses.set(dag.Id, []core.JobStatusEvent{{JobName: core.NAKey, EventName: string(core.FlowSucceeded)}})
	w.cleanupPhase(ctx)

	_, tracked = w.dags[dag.Id]
	assert.False(t, tracked)
	_, err := live.GetDag(ctx, dag.Id)
	assert.ErrorIs(t, err, core.ErrDagNotFound)
}

func TestCleanupPhase_FailedDagWrittenToFailedStore(t *testing.T) {
	live := newMemStore()
	failed := newMemStore()
	statuses := newStubStatuses()
	w := testWorker(t, Config{}, live, failed, newMemActionStore(), statuses)
	ctx := context.Background()

	dag := singleNodeDag(1)
	w.OfferSubmit(dag)
	w.submitPhase(ctx)

	statuses.set(dag.Id, []core.JobStatusEvent{{JobName: "extract", EventName: string(core.StatusFailed)}})
	w.pollAndAdvancePhase(ctx)
	w.cleanupPhase(ctx)

	assert.Equal(t, string(core.FlowFailed), dag.FlowEvent)
	_, err := failed.GetDag(ctx, dag.Id)
	assert.NoError(t, err)
	assert.True(t, w.failedDagIds.Contains(dag.Id))
}

func TestResumeBeginAndFinish_ReplaysFailedDag(t *testing.T) {
	live := newMemStore()
	failed := newMemStore()
	statuses := newStubStatuses()
	failedIds := dqueue.NewConcurrentSet[core.DagId]()

	dag := singleNodeDag(1)
	plan, _ := dag.Node("extract")
	plan.Status = core.StatusFailed
	dag.FlowEvent = string(core.FlowFailed)
	require.NoError(t, failed.WriteCheckpoint(context.Background(), dag))
	failedIds.Add(dag.Id)

	producers := func(string) (core.SpecProducer, error) { return &fakeProducer{}, nil }
	w := New(Config{NumShards: 1}, live, failed, newMemActionStore(), statuses, noopQuota{}, producers, metrics.New(), failedIds, nil)

	ctx := context.Background()
	w.OfferResume(dag.Id)
	w.resumeBeginPhase(ctx)

	require.Contains(t, w.resumingDags, dag.Id)

	statuses.set(dag.Id, []core.JobStatusEvent{{JobName: core.NAKey, EventName: string(core.FlowPendingResume)}})
	w.resumeFinishPhase(ctx)

	assert.NotContains(t, w.resumingDags, dag.Id)
	assert.False(t, failedIds.Contains(dag.Id))
	assert.Equal(t, 1, w.TrackedDagCount())

	resubmitted, _ := dag.Node("extract")
	assert.Equal(t, core.StatusOrchestrated, resubmitted.Status, "resumed node should be resubmitted, not stuck in PENDING_RESUME")
}

func TestResumeBeginPhase_UnknownFailedIdDeletesAction(t *testing.T) {
	actions := newMemActionStore()
	failedIds := dqueue.NewConcurrentSet[core.DagId]()
	w := testWorker(t, Config{}, newMemStore(), newMemStore(), actions, newStubStatuses())
	w.failedDagIds = failedIds

	id := core.DagId{FlowGroup: "grp", FlowName: "flow", FlowExecutionId: 5}
	require.NoError(t, actions.AddDagAction(context.Background(), id, core.ActionResume))
	w.OfferResume(id)
	w.resumeBeginPhase(context.Background())

	exists, err := actions.Exists(context.Background(), id, core.ActionResume)
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestStatusFor_UnknownJobDefaultsToPending(t *testing.T) {
	status, retry := statusFor(nil, "extract")
	assert.Equal(t, core.StatusPending, status)
	assert.False(t, retry)
}

func TestMapEventToStatus_UnknownNameDefaultsToPending(t *testing.T) {
	assert.Equal(t, core.StatusPending, mapEventToStatus("SOMETHING_ELSE"))
	assert.Equal(t, core.StatusComplete, mapEventToStatus(string(core.StatusComplete)))
}

func TestResumeReady(t *testing.T) {
	assert.True(t, resumeReady([]core.JobStatusEvent{{JobName: core.NAKey, EventName: string(core.FlowPendingResume)}}))
	assert.False(t, resumeReady([]core.JobStatusEvent{{JobName: core.NAKey, EventName: string(core.FlowPendingResume)}, {JobName: "extract", EventName: string(core.StatusFailed)}}))
	assert.False(t, resumeReady(nil))
}

func TestFlowTerminalConfirmed(t *testing.T) {
	assert.True(t, flowTerminalConfirmed([]core.JobStatusEvent{{JobName: core.NAKey, EventName: string(core.StatusComplete)}}))
	assert.False(t, flowTerminalConfirmed([]core.JobStatusEvent{{JobName: core.NAKey, EventName: string(core.StatusRunning)}}))
	assert.False(t, flowTerminalConfirmed(nil))
}
