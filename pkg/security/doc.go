// Package security provides validation, sanitization, and limits for the
// DAG execution manager.
//
// This package includes:
//   - Input validation for flow group and flow name (job names have only
//     a length constant, no validator)
//   - Error message sanitization before it is stored on a DAG's Message
//   - Clamping functions to enforce safe limits on shard/retry counts
//   - Security-related constants defining maximum sizes and counts
//
// The root package github.com/flowforge/dagmanager does not re-export
// these functions; import this package directly.
package security
