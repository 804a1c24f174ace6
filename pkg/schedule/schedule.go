package schedule

import (
	"time"

	"github.com/robfig/cron/v3"
)

// Schedule computes the next fire time given the last one.
type Schedule interface {
	Next(from time.Time) time.Time
}

// cronSchedule adapts a robfig/cron Schedule to our Schedule interface.
type cronSchedule struct {
	underlying cron.Schedule
}

func (s cronSchedule) Next(from time.Time) time.Time {
	return s.underlying.Next(from)
}

// Every creates a fixed-rate schedule, backed by robfig/cron's
// ConstantDelaySchedule so ticks share the same jitter-free semantics as
// a parsed "@every" expression.
func Every(d time.Duration) Schedule {
	return cronSchedule{underlying: cron.ConstantDelaySchedule{Delay: d}}
}

// Cron parses a cron expression, including the "@every"/"@daily"/"@hourly"
// descriptors, and panics on malformed input — schedules are wired at
// startup from static configuration, so a parse error there is a
// configuration bug, not a runtime condition to recover from.
func Cron(expr string) Schedule {
	parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)
	parsed, err := parser.Parse(expr)
	if err != nil {
		panic("dagmanager: invalid cron expression " + expr + ": " + err.Error())
	}
	return cronSchedule{underlying: parsed}
}
