// Package core provides the fundamental types and interfaces for the DAG
// execution manager.
//
// This package contains:
//   - DagId, Dag, and JobExecutionPlan data models
//   - ExecutionStatus and FailureOption closed enums
//   - Interfaces for the external collaborators (stores, quota, executors)
//   - Timing event types emitted at flow/job transitions
//
// Most users should import the root package
// github.com/flowforge/dagmanager instead of this package directly.
package core
