// Package dqueue provides the multi-producer/single-consumer FIFO queues
// and the shared concurrent set the DagManager and its shards use.
//
// Neither structure has a natural third-party home in the retrieval
// pack: they are small, allocation-light data structures built on
// container/list and sync, in the same spirit as the teacher package's
// hand-rolled registries (e.g. Queue.runningJobs in pkg/queue).
package dqueue
