// Package retention implements FailedDagRetention, the periodic purge of
// failed DAGs older than a configured retention bound.
//
// Grounded on the teacher's pkg/schedule cadence abstraction (robfig/cron
// under an Every/Cron wrapper) applied here to a single sweep task rather
// than per-job scheduling.
package retention
