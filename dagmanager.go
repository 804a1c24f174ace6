// Package dagmanager provides a DAG execution manager for a distributed
// data-integration service. This is the package most callers should
// import; it re-exports the public types from the internal pkg/
// packages for a clean API surface.
//
// Basic usage:
//
//	cfg := dagmanager.DefaultConfig()
//	stores, _ := dagmanager.OpenSQLite(cfg, "dagmanager.db")
//	mgr := dagmanager.New(cfg, stores, statusRetriever, quotaManager, producerResolver, nil, nil, nil)
//	mgr.SetActive(ctx, true) // call this once the node wins leadership
//	mgr.AddDag(ctx, dag, true, true)
package dagmanager

import (
	"log/slog"

	"github.com/flowforge/dagmanager/pkg/config"
	"github.com/flowforge/dagmanager/pkg/core"
	"github.com/flowforge/dagmanager/pkg/manager"
	"github.com/flowforge/dagmanager/pkg/metrics"
	"github.com/flowforge/dagmanager/pkg/producer"
	"github.com/flowforge/dagmanager/pkg/quota"
	"github.com/flowforge/dagmanager/pkg/storage"
	"github.com/flowforge/dagmanager/pkg/worker"
)

// Type aliases re-exporting the domain model and collaborator contracts.
type (
	// DagId totally identifies one flow execution.
	DagId = core.DagId

	// Dag is a directed acyclic graph of JobExecutionPlan nodes.
	Dag = core.Dag

	// JobSpec is the immutable configuration for one job in a flow.
	JobSpec = core.JobSpec

	// JobExecutionPlan is a DAG node: a job spec paired with live state.
	JobExecutionPlan = core.JobExecutionPlan

	// ExecutionStatus is the closed set of per-job/per-flow states.
	ExecutionStatus = core.ExecutionStatus

	// FailureOption controls how a DAG reacts to its first job failure.
	FailureOption = core.FailureOption

	// SubmissionFuture is the opaque handle a SpecProducer returns.
	SubmissionFuture = core.SubmissionFuture

	// DagStateStore is a durable key/value store of serialized DAGs.
	DagStateStore = core.DagStateStore

	// DagActionStore is a durable log of pending LAUNCH/KILL/RESUME actions.
	DagActionStore = core.DagActionStore

	// JobStatusRetriever is a read-through view of job/flow status events.
	JobStatusRetriever = core.JobStatusRetriever

	// SpecProducer submits and cancels jobs against one remote executor.
	SpecProducer = core.SpecProducer

	// QuotaManager enforces per-flow concurrency caps.
	QuotaManager = core.QuotaManager

	// FlowCatalog is the out-of-scope flow-spec catalog.
	FlowCatalog = core.FlowCatalog

	// FlowSpec is the catalog's view of one flow.
	FlowSpec = core.FlowSpec

	// TopologySpec resolves a job's chosen executor URI.
	TopologySpec = core.TopologySpec

	// Config is the resolved DagManager/DagWorker configuration.
	Config = config.Config

	// Manager is DagManager, the leader-gated supervisor.
	Manager = manager.Manager

	// ProducerResolver returns the SpecProducer for one executor URI.
	ProducerResolver = worker.ProducerResolver

	// Emitter fans out flow/job timing events and maintains counters.
	Emitter = metrics.Emitter

	// Stores bundles the live, failed, and action GORM-backed stores.
	Stores = storage.Stores
)

// ExecutionStatus constants.
const (
	StatusPending       = core.StatusPending
	StatusPendingRetry  = core.StatusPendingRetry
	StatusPendingResume = core.StatusPendingResume
	StatusOrchestrated  = core.StatusOrchestrated
	StatusRunning       = core.StatusRunning
	StatusComplete      = core.StatusComplete
	StatusFailed        = core.StatusFailed
	StatusCancelled     = core.StatusCancelled
)

// FailureOption constants.
const (
	FinishRunning     = core.FinishRunning
	Cancel            = core.Cancel
	FinishAllPossible = core.FinishAllPossible
)

// DefaultConfig returns configuration matching every documented default:
// 3 shards, 10s polling, 10min job-start SLA, 7-day failed-dag retention
// polled hourly, FINISH_ALL_POSSIBLE on first failure.
func DefaultConfig() *Config {
	return config.Default()
}

// LoadConfig parses an HCL configuration file, resolving any key it
// omits against DefaultConfig().
func LoadConfig(path string) (*Config, error) {
	return config.Load(path)
}

// OpenSQLite opens a sqlite-backed live store, failed-dag store, and
// action log at dsn. The connection pool is sized off cfg.NumThreads
// (one DagWorker shard per thread), overridable via opts.
func OpenSQLite(cfg *Config, dsn string, opts ...storage.PoolOption) (*Stores, error) {
	return storage.OpenWithShardPool(dsn, cfg.NumThreads, opts...)
}

// NewInMemoryQuotaManager creates the default QuotaManager, capping
// concurrently-running jobs per (flowGroup, flowName). limit <= 0 means
// unbounded.
func NewInMemoryQuotaManager(limit int) QuotaManager {
	return quota.New(limit)
}

// NewHTTPProducerResolver wraps a single HTTPSpecProducer so every
// executor URI resolves to the same client. Callers with multiple
// executor types can supply their own ProducerResolver instead.
func NewHTTPProducerResolver() ProducerResolver {
	p := producer.New()
	return func(executorURI string) (SpecProducer, error) {
		return p, nil
	}
}

// New wires a Manager from its collaborators. stores.Live/Failed/Actions
// back the durable state; statuses and quota are required; producers
// resolves a job's executor; catalog and emitter may be nil.
func New(
	cfg *Config,
	stores *Stores,
	statuses JobStatusRetriever,
	quota QuotaManager,
	producers ProducerResolver,
	catalog FlowCatalog,
	emitter *Emitter,
	logger *slog.Logger,
) *Manager {
	return manager.New(cfg, stores.Live, stores.Failed, stores.Actions, statuses, quota, producers, catalog, emitter, logger)
}
