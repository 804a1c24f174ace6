// Package schedule provides the cadence primitives used to drive shard
// polling and the failed-DAG retention sweep.
//
// Every wraps robfig/cron's ConstantDelaySchedule for fixed-rate ticks
// and is what both the shard loop and the retention sweep use; Cron
// wraps a parsed cron expression (including "@every" and "@daily"-style
// descriptors).
package schedule
