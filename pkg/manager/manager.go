package manager

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/flowforge/dagmanager/pkg/config"
	"github.com/flowforge/dagmanager/pkg/core"
	"github.com/flowforge/dagmanager/pkg/dqueue"
	"github.com/flowforge/dagmanager/pkg/metrics"
	"github.com/flowforge/dagmanager/pkg/retention"
	"github.com/flowforge/dagmanager/pkg/retrywrap"
	"github.com/flowforge/dagmanager/pkg/security"
	"github.com/flowforge/dagmanager/pkg/worker"
)

// deactivateTimeout bounds how long SetActive(false) waits for shards to
// finish their in-flight pass before giving up and returning anyway.
const deactivateTimeout = 30 * time.Second

// housekeepingInitialDelay and housekeepingMaxDelay bound the
// exponential back-off re-sync schedule (2, 4, 8, ... up to 180 min)
// that recovers DAGs a transient read error might have dropped from the
// initial load.
const (
	housekeepingInitialDelay = 2 * time.Minute
	housekeepingMaxDelay     = 180 * time.Minute
)

// Manager is DagManager: the leader-gated supervisor. It is idle at
// construction; call SetActive(true) once the node wins leadership.
type Manager struct {
	mu     sync.Mutex
	active bool

	cfg       *config.Config
	live      core.DagStateStore
	failed    core.DagStateStore
	actions   core.DagActionStore
	statuses  core.JobStatusRetriever
	quota     core.QuotaManager
	producers worker.ProducerResolver
	catalog   core.FlowCatalog
	metrics   *metrics.Emitter
	logger    *slog.Logger

	failedDagIds    *dqueue.ConcurrentSet[core.DagId]
	topologySpecMap map[string]*core.TopologySpec

	shards []*worker.Worker
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New wires a Manager's collaborators. catalog may be nil if ad-hoc flow
// specs are never removed by this deployment.
func New(
	cfg *config.Config,
	live, failed core.DagStateStore,
	actions core.DagActionStore,
	statuses core.JobStatusRetriever,
	quota core.QuotaManager,
	producers worker.ProducerResolver,
	catalog core.FlowCatalog,
	emitter *metrics.Emitter,
	logger *slog.Logger,
) *Manager {
	if cfg == nil {
		cfg = config.Default()
	}
	if emitter == nil {
		emitter = metrics.New()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{
		cfg:             cfg,
		live:            live,
		failed:          failed,
		actions:         actions,
		statuses:        statuses,
		quota:           quota,
		producers:       producers,
		catalog:         catalog,
		metrics:         emitter,
		logger:          logger,
		failedDagIds:    dqueue.NewConcurrentSet[core.DagId](),
		topologySpecMap: make(map[string]*core.TopologySpec),
	}
}

// IsActive reports whether this node currently believes itself leader.
func (m *Manager) IsActive() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.active
}

// SetActive gates every other public operation. Transitioning to active
// triggers the full recovery sequence; transitioning to inactive shuts
// the shards down and discards in-memory state.
func (m *Manager) SetActive(ctx context.Context, active bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if active == m.active {
		return nil
	}
	if active {
		return m.activateLocked(ctx)
	}
	m.deactivateLocked()
	return nil
}

func (m *Manager) activateLocked(ctx context.Context) error {
	failedIds, err := m.failed.GetDagIds(ctx)
	if err != nil {
		return fmt.Errorf("dagmanager: load failed dag ids: %w", err)
	}
	for _, id := range failedIds {
		m.failedDagIds.Add(id)
	}

	liveDags, err := m.live.GetDags(ctx)
	if err != nil {
		return fmt.Errorf("dagmanager: load live dags: %w", err)
	}
	if err := m.quota.Init(ctx, liveDags); err != nil {
		return fmt.Errorf("dagmanager: init quota manager: %w", err)
	}

	m.shards = make([]*worker.Worker, m.cfg.NumThreads)
	for i := range m.shards {
		m.shards[i] = worker.New(worker.Config{
			Index:           i,
			NumShards:       m.cfg.NumThreads,
			PollingInterval: m.cfg.PollingInterval,
			JobStartSLA:     m.cfg.JobStartSla,
			FlowSLA:         m.cfg.FlowSLA,
		}, m.live, m.failed, m.actions, m.statuses, m.quota, m.producers, m.metrics, m.failedDagIds, m.logger)
	}

	runCtx, cancel := context.WithCancel(context.Background())
	m.cancel = cancel
	for _, shard := range m.shards {
		m.wg.Add(1)
		go func(w *worker.Worker) {
			defer m.wg.Done()
			w.Run(runCtx)
		}(shard)
	}

	for _, dag := range liveDags {
		m.shardFor(dag.Id).OfferSubmit(dag)
	}

	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		m.housekeeping(runCtx)
	}()

	sweeper := retention.New(m.failed, m.failedDagIds, m.cfg.RetentionTime, m.cfg.RetentionPollInterval, m.logger)
	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		sweeper.Run(runCtx)
	}()

	m.active = true
	return nil
}

func (m *Manager) deactivateLocked() {
	if m.cancel != nil {
		m.cancel()
	}
	done := make(chan struct{})
	go func() {
		m.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(deactivateTimeout):
		m.logger.Warn("deactivate: shard shutdown exceeded bound", "timeout", deactivateTimeout)
	}
	m.shards = nil
	m.active = false
}

// housekeeping re-runs the load step on an exponential back-off, in case
// a transient read error dropped a DAG from the initial activation load.
func (m *Manager) housekeeping(ctx context.Context) {
	delay := housekeepingInitialDelay
	timer := time.NewTimer(delay)
	defer timer.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-timer.C:
			m.resync(ctx)
			delay *= 2
			if delay > housekeepingMaxDelay {
				delay = housekeepingMaxDelay
			}
			timer.Reset(delay)
		}
	}
}

func (m *Manager) resync(ctx context.Context) {
	dags, err := m.live.GetDags(ctx)
	if err != nil {
		m.logger.Error("housekeeping: reload live dags", "err", err)
		return
	}
	for _, dag := range dags {
		m.shardFor(dag.Id).OfferSubmit(dag)
	}
}

func (m *Manager) shardFor(id core.DagId) *worker.Worker {
	return m.shards[id.ShardIndex(len(m.shards))]
}

// AddDag persists dag (if persist) and routes it to its owning shard's
// submit queue. Silently a no-op while inactive.
func (m *Manager) AddDag(ctx context.Context, dag *core.Dag, persist, setStatus bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.active {
		return nil
	}
	if dag == nil || dag.IsEmpty() {
		m.logger.Warn("addDag: empty dag ignored")
		return nil
	}
	if err := security.ValidateFlowGroup(dag.Id.FlowGroup); err != nil {
		return err
	}
	if err := security.ValidateFlowName(dag.Id.FlowName); err != nil {
		return err
	}
	for _, name := range dag.Nodes() {
		if plan, ok := dag.Node(name); ok {
			plan.MaxAttempts = security.ClampRetries(plan.MaxAttempts)
		}
	}

	if persist {
		if err := retrywrap.Do(ctx, retrywrap.Default(), func() error {
			return m.live.WriteCheckpoint(ctx, dag)
		}); err != nil {
			return fmt.Errorf("dagmanager: persist dag %s: %w", dag.Id, err)
		}
		if m.actions != nil {
			if err := m.actions.DeleteDagAction(ctx, dag.Id, core.ActionLaunch); err != nil {
				m.logger.Error("addDag: delete launch action", "dag", dag.Id, "err", err)
			}
		}
	}

	if !m.shardFor(dag.Id).OfferSubmit(dag) {
		return core.ErrQueueOfferRejected
	}

	if setStatus {
		m.metrics.FlowEvent(&core.FlowStateEvent{DagId: dag.Id, Name: core.FlowPending, Timestamp: time.Now()})
	}
	return nil
}

// AddDagAndRemoveAdhocFlowSpec calls AddDag and, on success, removes the
// flow spec from the catalog if it is ad-hoc (no recurring schedule).
func (m *Manager) AddDagAndRemoveAdhocFlowSpec(ctx context.Context, spec core.FlowSpec, dag *core.Dag, persist, setStatus bool) error {
	if err := m.AddDag(ctx, dag, persist, setStatus); err != nil {
		return err
	}
	if spec.Adhoc && m.catalog != nil {
		if err := m.catalog.RemoveAdhocFlowSpec(ctx, spec); err != nil {
			m.logger.Error("remove adhoc flow spec", "group", spec.FlowGroup, "name", spec.FlowName, "err", err)
		}
	}
	return nil
}

// StopFlow resolves flowGroup/flowName's most recent executions (bounded
// to limit, default 10) and enqueues a KILL on each one's owning shard.
func (m *Manager) StopFlow(ctx context.Context, flowGroup, flowName string, limit int) error {
	if !m.IsActive() {
		return nil
	}
	if limit <= 0 {
		limit = 10
	}
	execIds, err := m.statuses.GetLatestExecutionIdsForFlow(ctx, flowGroup, flowName, limit)
	if err != nil {
		return fmt.Errorf("dagmanager: resolve executions for %s.%s: %w", flowGroup, flowName, err)
	}
	for _, execId := range execIds {
		id := core.DagId{FlowGroup: flowGroup, FlowName: flowName, FlowExecutionId: execId}
		m.shardFor(id).OfferCancel(id)
	}
	return nil
}

// HandleKillFlowRequest routes a KILL for one specific execution to its
// owning shard.
func (m *Manager) HandleKillFlowRequest(ctx context.Context, flowGroup, flowName string, flowExecutionId int64) error {
	if !m.IsActive() {
		return nil
	}
	id := core.DagId{FlowGroup: flowGroup, FlowName: flowName, FlowExecutionId: flowExecutionId}
	if !m.shardFor(id).OfferCancel(id) {
		return core.ErrQueueOfferRejected
	}
	return nil
}

// HandleResumeFlowRequest routes a RESUME for one specific execution to
// its owning shard.
func (m *Manager) HandleResumeFlowRequest(ctx context.Context, flowGroup, flowName string, flowExecutionId int64) error {
	if !m.IsActive() {
		return nil
	}
	id := core.DagId{FlowGroup: flowGroup, FlowName: flowName, FlowExecutionId: flowExecutionId}
	if !m.shardFor(id).OfferResume(id) {
		return core.ErrQueueOfferRejected
	}
	return nil
}

// SetTopologySpecMap swaps in a new read-mostly view of topology name to
// executor URI, guarded by the same mutex as the other state-transition
// entry points.
func (m *Manager) SetTopologySpecMap(specs map[string]*core.TopologySpec) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.topologySpecMap = specs
}

// TopologySpec looks up one entry from the current topology map.
func (m *Manager) TopologySpec(name string) (*core.TopologySpec, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	spec, ok := m.topologySpecMap[name]
	return spec, ok
}

// AddFailedDag records id as failed in the shared set outside of the
// normal worker cleanup path (e.g. driven by an external admin action).
func (m *Manager) AddFailedDag(id core.DagId) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failedDagIds.Add(id)
}

// Metrics exposes the shared emitter for dashboards and tests.
func (m *Manager) Metrics() *metrics.Emitter { return m.metrics }
