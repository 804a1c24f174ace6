// Package quota provides the default in-memory QuotaManager: a per-flow
// concurrency cap checked on submit and released on terminal status.
//
// Grounded on the teacher's runningJobs registry in pkg/queue.Queue
// (a mutex-guarded map counting outstanding work), generalized from a
// single global count to one per flow.
package quota
