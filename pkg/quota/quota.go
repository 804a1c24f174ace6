package quota

import (
	"context"
	"fmt"
	"sync"

	"github.com/flowforge/dagmanager/pkg/core"
)

type flowKey struct {
	group string
	name  string
}

func keyOf(id core.DagId) flowKey {
	return flowKey{group: id.FlowGroup, name: id.FlowName}
}

type nodeKey struct {
	flow flowKey
	exec int64
	job  string
}

func nodeKeyOf(n core.NodeRef) nodeKey {
	return nodeKey{flow: keyOf(n.DagId), exec: n.DagId.FlowExecutionId, job: n.JobName}
}

// InMemoryQuotaManager caps concurrently-running jobs per (flowGroup,
// flowName). It is the default quotaManagerClass.
type InMemoryQuotaManager struct {
	mu       sync.Mutex
	limit    int
	counts   map[flowKey]int
	acquired map[nodeKey]struct{}
}

// New creates a quota manager with the given per-flow concurrency limit.
// limit <= 0 means unbounded.
func New(limit int) *InMemoryQuotaManager {
	return &InMemoryQuotaManager{
		limit:    limit,
		counts:   make(map[flowKey]int),
		acquired: make(map[nodeKey]struct{}),
	}
}

// Init seeds quota counts from already-active nodes of dags loaded from
// durable storage, so quota survives a restart.
func (q *InMemoryQuotaManager) Init(_ context.Context, dags []*core.Dag) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	for _, dag := range dags {
		for _, name := range dag.Nodes() {
			plan, _ := dag.Node(name)
			if plan == nil || plan.Status.IsTerminal() {
				continue
			}
			nk := nodeKey{flow: keyOf(dag.Id), exec: dag.Id.FlowExecutionId, job: name}
			if _, seen := q.acquired[nk]; seen {
				continue
			}
			q.acquired[nk] = struct{}{}
			q.counts[keyOf(dag.Id)]++
		}
	}
	return nil
}

// CheckQuota acquires one slot for node's flow, or returns a
// QuotaExceededError. Acquiring the same node twice without an
// intervening release is a no-op success (idempotent on retry paths
// that re-check before re-submitting).
func (q *InMemoryQuotaManager) CheckQuota(_ context.Context, node core.NodeRef) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	nk := nodeKeyOf(node)
	if _, already := q.acquired[nk]; already {
		return nil
	}

	fk := keyOf(node.DagId)
	if q.limit > 0 && q.counts[fk] >= q.limit {
		return &core.QuotaExceededError{
			FlowGroup: node.DagId.FlowGroup,
			FlowName:  node.DagId.FlowName,
			Reason:    fmt.Sprintf("limit %d reached", q.limit),
		}
	}

	q.acquired[nk] = struct{}{}
	q.counts[fk]++
	return nil
}

// ReleaseQuota releases node's slot. Returns false if the node had no
// outstanding acquire (already released, or never acquired) — this is
// what keeps release counts exactly matching acquire counts even when a
// terminal status is observed twice.
func (q *InMemoryQuotaManager) ReleaseQuota(_ context.Context, node core.NodeRef) (bool, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	nk := nodeKeyOf(node)
	if _, ok := q.acquired[nk]; !ok {
		return false, nil
	}
	delete(q.acquired, nk)

	fk := keyOf(node.DagId)
	if q.counts[fk] > 0 {
		q.counts[fk]--
	}
	if q.counts[fk] == 0 {
		delete(q.counts, fk)
	}
	return true, nil
}
