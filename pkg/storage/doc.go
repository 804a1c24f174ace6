// Package storage provides the default GORM-backed implementations of
// core.DagStateStore and core.DagActionStore.
//
// The live store, the failed-dag store, and the action log all use the
// same GORM connection and driver — by default gorm.io/driver/sqlite,
// matching the design's "FS-backed store" default (§6) — differing only
// in which table they address, mirroring the design's
// failedDagStateStore.* config overlay.
//
// Grounded on the teacher's pkg/storage (GormStorage) and
// pkg/storage/pool.go (connection-pool tuning), generalized from a
// single Job table to the DAG/action tables this domain needs.
package storage
