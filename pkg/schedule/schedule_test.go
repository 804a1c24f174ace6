package schedule_test

import (
	"testing"
	"time"

	"github.com/flowforge/dagmanager/pkg/schedule"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEvery_AdvancesByFixedDelay(t *testing.T) {
	s := schedule.Every(10 * time.Second)
	from := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	next := s.Next(from)

	assert.Equal(t, from.Add(10*time.Second), next)
}

func TestCron_ParsesStandardExpression(t *testing.T) {
	s := schedule.Cron("0 * * * *")
	from := time.Date(2026, 1, 1, 0, 30, 0, 0, time.UTC)

	next := s.Next(from)

	assert.Equal(t, time.Date(2026, 1, 1, 1, 0, 0, 0, time.UTC), next)
}

func TestCron_PanicsOnMalformedExpression(t *testing.T) {
	assert.Panics(t, func() {
		schedule.Cron("not a cron expression")
	})
}

func TestEvery_ImplementsScheduleInterface(t *testing.T) {
	var s schedule.Schedule
	require.NotPanics(t, func() {
		s = schedule.Every(time.Minute)
	})
	require.NotNil(t, s)
}
