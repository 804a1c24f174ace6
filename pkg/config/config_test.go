package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/flowforge/dagmanager/pkg/config"
	"github.com/flowforge/dagmanager/pkg/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault_MatchesDocumentedDefaults(t *testing.T) {
	cfg := config.Default()

	assert.Equal(t, 3, cfg.NumThreads)
	assert.Equal(t, 10*time.Second, cfg.PollingInterval)
	assert.Equal(t, 10*time.Minute, cfg.JobStartSla)
	assert.Equal(t, 7*24*time.Hour, cfg.RetentionTime)
	assert.Equal(t, 60*time.Minute, cfg.RetentionPollInterval)
	assert.Equal(t, core.FinishAllPossible, cfg.FailureOption)
}

func TestLoad_OverridesOnlyExplicitKeys(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "dagmanager.hcl")
	writeFile(t, path, `
num_threads = 5
job_start_sla = 2 * minute

flow_sla "reports" "daily" {
  sla = 30 * minute
}
`)

	cfg, err := config.Load(path)
	require.NoError(t, err)

	assert.Equal(t, 5, cfg.NumThreads)
	assert.Equal(t, 2*time.Minute, cfg.JobStartSla)
	assert.Equal(t, 10*time.Second, cfg.PollingInterval, "unspecified key keeps its default")

	sla, ok := cfg.FlowSLA("reports", "daily")
	require.True(t, ok)
	assert.Equal(t, 30*time.Minute, sla)

	_, ok = cfg.FlowSLA("reports", "weekly")
	assert.False(t, ok)
}

func TestLoad_ClampsOutOfRangeNumThreads(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "dagmanager.hcl")
	writeFile(t, path, `num_threads = 5000`)

	cfg, err := config.Load(path)
	require.NoError(t, err)

	assert.Equal(t, 256, cfg.NumThreads, "num_threads is clamped to the hard shard-count ceiling")
}

func TestLoad_RetentionBlock(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "dagmanager.hcl")
	writeFile(t, path, `
failed_dag_retention {
  time = 3 * day
  polling_interval_minutes = 15 * minute
}
`)

	cfg, err := config.Load(path)
	require.NoError(t, err)

	assert.Equal(t, 3*24*time.Hour, cfg.RetentionTime)
	assert.Equal(t, 15*time.Minute, cfg.RetentionPollInterval)
}

func TestLoad_MalformedFileReturnsError(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "broken.hcl")
	writeFile(t, path, `num_threads = `)

	_, err := config.Load(path)
	assert.Error(t, err)
}

func writeFile(t *testing.T, path, contents string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o644))
}
