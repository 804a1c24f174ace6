// Package worker implements DagWorker, the per-shard state machine that
// drives jobs through submission, polling, retry, SLA enforcement,
// failure handling, and teardown.
//
// A Worker owns a disjoint subset of DAGs, decided by DagId.ShardIndex,
// and never shares its index maps with another shard. Each scheduled
// pass runs, in order: cancel, submit, resume-begin, resume-finish,
// poll-and-advance, cleanup — mirroring the ordering guarantees a single
// shard must uphold.
//
// Grounded on the teacher's pkg/worker (the fixed-interval run loop,
// panic-recovery-per-pass, and options-style construction), generalized
// from a generic job queue consumer to a DAG-aware scheduler.
package worker
