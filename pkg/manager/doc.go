// Package manager implements DagManager, the leader-gated supervisor
// that shards DAG execution across worker.Worker instances, recovers
// state from durable storage on activation, and routes external
// requests to the shard that owns them.
//
// Grounded on the teacher's queue supervisor (options-style
// construction, a single mutex guarding lifecycle scalars, bounded
// shutdown) generalized from a flat job queue to sharded DAG ownership.
package manager
