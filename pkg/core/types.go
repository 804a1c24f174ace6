package core

import (
	"context"
	"fmt"
	"hash/fnv"
	"sort"
	"strings"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// ExecutionStatus is the closed set of states a job or flow can occupy.
type ExecutionStatus string

const (
	StatusPending       ExecutionStatus = "PENDING"
	StatusPendingRetry  ExecutionStatus = "PENDING_RETRY"
	StatusPendingResume ExecutionStatus = "PENDING_RESUME"
	StatusOrchestrated  ExecutionStatus = "ORCHESTRATED"
	StatusRunning       ExecutionStatus = "RUNNING"
	StatusComplete      ExecutionStatus = "COMPLETE"
	StatusFailed        ExecutionStatus = "FAILED"
	StatusCancelled     ExecutionStatus = "CANCELLED"
)

// IsTerminal reports whether the status is absorbing for a job/flow.
func (s ExecutionStatus) IsTerminal() bool {
	switch s {
	case StatusComplete, StatusFailed, StatusCancelled:
		return true
	default:
		return false
	}
}

// FailureOption controls how a DAG reacts to its first job failure.
type FailureOption string

const (
	// FinishRunning drains only already-running jobs on first failure, then finalizes.
	FinishRunning FailureOption = "FINISH_RUNNING"
	// Cancel cancels everything immediately on first failure.
	Cancel FailureOption = "CANCEL"
	// FinishAllPossible keeps scheduling any node whose ancestors all succeeded.
	FinishAllPossible FailureOption = "FINISH_ALL_POSSIBLE"
)

var titleCaser = cases.Lower(language.Und)

// DagId totally identifies one flow execution.
type DagId struct {
	FlowGroup       string
	FlowName        string
	FlowExecutionId int64
}

// String renders the canonical "group_name_execId" store key. Group and
// name are case-folded so two callers differing only in case land on the
// same shard and the same store row.
func (id DagId) String() string {
	return fmt.Sprintf("%s_%s_%d",
		titleCaser.String(id.FlowGroup),
		titleCaser.String(id.FlowName),
		id.FlowExecutionId)
}

// ShardIndex returns the owning shard for n shards, stable for the
// lifetime of the flow execution.
func (id DagId) ShardIndex(n int) int {
	if n <= 0 {
		return 0
	}
	h := fnv.New64a()
	fmt.Fprintf(h, "%d", id.FlowExecutionId)
	return int(h.Sum64() % uint64(n))
}

// JobSpec is the immutable configuration for one job in a flow. It is
// opaque business logic as far as the manager is concerned: the manager
// only needs to hand it to a SpecProducer and to know which executor URI
// it targets.
type JobSpec struct {
	Name        string
	ExecutorURI string
	Properties  map[string]string
	// FlowInfo carries free-form flow-level metadata (e.g. flow group,
	// name, and orchestrator-supplied tags) through to the executor
	// without the core interpreting it.
	FlowInfo map[string]string
}

// SubmissionFuture is the opaque handle a SpecProducer hands back from
// AddSpec. Its only contractual behavior is that completion means the
// submission was accepted by the executor, not that the job finished.
type SubmissionFuture interface {
	// Wait blocks until the submission completes or ctx is done.
	Wait(ctx context.Context) error
	// Done reports whether the future has resolved.
	Done() bool
	// Err returns the resolution error, if any, once Done is true.
	Err() error
}

// JobExecutionPlan is a DAG node: a job spec paired with its live
// execution state.
type JobExecutionPlan struct {
	Spec            JobSpec
	ExecutorURI     string
	Status          ExecutionStatus
	Future          SubmissionFuture `json:"-"`
	CurrentAttempts int
	MaxAttempts     int
	FlowStartTime   time.Time
	JobGeneration   int64
	// OrchestratedAt records when Status last became ORCHESTRATED, used
	// by the orphan-job start-SLA check.
	OrchestratedAt time.Time
}

// Dag is a directed acyclic graph of JobExecutionPlan nodes belonging to
// one flow execution. Node identity is the job spec's Name, unique
// within the DAG.
type Dag struct {
	Id            DagId
	FailureOption FailureOption
	FlowEvent     string
	Message       string
	// EventEmittedTimeMillis is stamped whenever FlowEvent is (re-)emitted.
	EventEmittedTimeMillis int64
	FlowStartTime          time.Time

	nodes    map[string]*JobExecutionPlan
	parents  map[string][]string
	children map[string][]string
	order    []string
}

// NewDag constructs an empty DAG ready for AddNode/AddEdge calls.
func NewDag(id DagId, failureOption FailureOption) *Dag {
	return &Dag{
		Id:            id,
		FailureOption: failureOption,
		nodes:         make(map[string]*JobExecutionPlan),
		parents:       make(map[string][]string),
		children:      make(map[string][]string),
	}
}

// AddNode registers a job node. Calling it twice for the same name
// overwrites the plan but preserves ordering.
func (d *Dag) AddNode(name string, plan *JobExecutionPlan) {
	if _, exists := d.nodes[name]; !exists {
		d.order = append(d.order, name)
	}
	d.nodes[name] = plan
	if _, ok := d.parents[name]; !ok {
		d.parents[name] = nil
	}
	if _, ok := d.children[name]; !ok {
		d.children[name] = nil
	}
}

// AddEdge records that child depends on parent completing first.
func (d *Dag) AddEdge(parent, child string) {
	d.parents[child] = append(d.parents[child], parent)
	d.children[parent] = append(d.children[parent], child)
}

// Node returns the plan for name, if present.
func (d *Dag) Node(name string) (*JobExecutionPlan, bool) {
	p, ok := d.nodes[name]
	return p, ok
}

// Nodes returns node names in insertion order, for deterministic
// iteration in tests and passes over the DAG.
func (d *Dag) Nodes() []string {
	out := make([]string, len(d.order))
	copy(out, d.order)
	return out
}

// Parents returns the parent job names of a node.
func (d *Dag) Parents(name string) []string {
	return d.parents[name]
}

// Children returns the child job names of a node.
func (d *Dag) Children(name string) []string {
	return d.children[name]
}

// IsEmpty reports whether the DAG has no nodes at all.
func (d *Dag) IsEmpty() bool {
	return len(d.nodes) == 0
}

// ReadyNodes returns, in stable order, every PENDING node all of whose
// parents are terminal and COMPLETE.
func (d *Dag) ReadyNodes() []string {
	var ready []string
	for _, name := range d.order {
		plan := d.nodes[name]
		if plan.Status != StatusPending {
			continue
		}
		if d.allParentsComplete(name) {
			ready = append(ready, name)
		}
	}
	sort.Strings(ready)
	return ready
}

func (d *Dag) allParentsComplete(name string) bool {
	for _, parent := range d.parents[name] {
		p, ok := d.nodes[parent]
		if !ok || p.Status != StatusComplete {
			return false
		}
	}
	return true
}

// HasActiveNodes reports whether any node is not yet terminal.
func (d *Dag) HasActiveNodes() bool {
	for _, name := range d.order {
		if !d.nodes[name].Status.IsTerminal() {
			return true
		}
	}
	return false
}

// FailedOrCancelledNodes returns the names of nodes in FAILED or CANCELLED.
func (d *Dag) FailedOrCancelledNodes() []string {
	var out []string
	for _, name := range d.order {
		switch d.nodes[name].Status {
		case StatusFailed, StatusCancelled:
			out = append(out, name)
		}
	}
	return out
}

// RunningNodes returns node names currently RUNNING, ORCHESTRATED or
// PENDING_RETRY.
func (d *Dag) RunningNodes() []string {
	var out []string
	for _, name := range d.order {
		switch d.nodes[name].Status {
		case StatusRunning, StatusOrchestrated, StatusPendingRetry:
			out = append(out, name)
		}
	}
	return out
}

// String is a compact human-readable summary, useful in log lines.
func (d *Dag) String() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Dag{%s, nodes=%d, event=%q}", d.Id, len(d.nodes), d.FlowEvent)
	return sb.String()
}
