package core

import "context"

// DagStateStore is a durable key/value store of serialized DAGs keyed by
// DagId. Two logical instances exist in a running manager: the live
// store and the failed store (see DESIGN.md for the overlay config).
type DagStateStore interface {
	WriteCheckpoint(ctx context.Context, dag *Dag) error
	GetDag(ctx context.Context, id DagId) (*Dag, error)
	GetDags(ctx context.Context) ([]*Dag, error)
	GetDagIds(ctx context.Context) ([]DagId, error)
	CleanUp(ctx context.Context, id DagId) error
}

// DagActionType is the closed set of durable action records.
type DagActionType string

const (
	ActionLaunch DagActionType = "LAUNCH"
	ActionKill   DagActionType = "KILL"
	ActionResume DagActionType = "RESUME"
)

// DagAction is one pending external request, replayed on leader failover.
type DagAction struct {
	DagId DagId
	Type  DagActionType
}

// DagActionStore is an optional durable log of pending LAUNCH/KILL/RESUME
// actions, keyed by (group, name, execId, actionType).
type DagActionStore interface {
	AddDagAction(ctx context.Context, id DagId, action DagActionType) error
	DeleteDagAction(ctx context.Context, id DagId, action DagActionType) error
	Exists(ctx context.Context, id DagId, action DagActionType) (bool, error)
	PendingActions(ctx context.Context) ([]DagAction, error)
}

// NAKey is the sentinel job-name/group used to request a flow-level
// status rather than a specific job's status.
const NAKey = "$NA$"

// JobStatusEvent is one status observation for a job (or, using NAKey,
// for the flow as a whole).
type JobStatusEvent struct {
	JobName     string
	EventName   string
	ShouldRetry bool
}

// JobStatusRetriever is a read-through view of per-job and per-flow
// status events, owned by an external monitoring subsystem.
type JobStatusRetriever interface {
	GetLatestExecutionIdsForFlow(ctx context.Context, flowGroup, flowName string, limit int) ([]int64, error)
	GetJobStatusesForFlowExecution(ctx context.Context, id DagId) ([]JobStatusEvent, error)
}

// SpecProducer submits and cancels jobs against one remote executor.
type SpecProducer interface {
	AddSpec(ctx context.Context, spec JobSpec) (SubmissionFuture, error)
	CancelJob(ctx context.Context, executorURI string, props map[string]string) error
	SerializeAddSpecResponse(f SubmissionFuture) (string, error)
	GetExecutionLink(f SubmissionFuture, executorURI string) string
}

// NodeRef identifies one job node for quota accounting.
type NodeRef struct {
	DagId   DagId
	JobName string
}

// QuotaManager enforces global per-user/per-flow concurrency caps.
type QuotaManager interface {
	Init(ctx context.Context, dags []*Dag) error
	CheckQuota(ctx context.Context, node NodeRef) error
	ReleaseQuota(ctx context.Context, node NodeRef) (bool, error)
}

// TopologySpec resolves a job's chosen executor URI at submission time.
// It is a read-mostly value the supervisor swaps in via
// DagManager.SetTopologySpecMap.
type TopologySpec struct {
	Name        string
	ExecutorURI string
}

// FlowSpec is the flow-spec catalog's view of one flow: whether it is
// ad-hoc (no recurring schedule) and therefore safe to delete from the
// catalog once its one-shot DAG has been submitted.
type FlowSpec struct {
	FlowGroup string
	FlowName  string
	Adhoc     bool
}

// FlowCatalog is the out-of-scope flow-spec catalog, referenced only by
// interface so DagManager can clean up ad-hoc specs after submission.
type FlowCatalog interface {
	RemoveAdhocFlowSpec(ctx context.Context, spec FlowSpec) error
}
