package config

import (
	"fmt"
	"time"

	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"

	"github.com/flowforge/dagmanager/pkg/core"
	"github.com/flowforge/dagmanager/pkg/security"
)

// Config is the resolved, ready-to-use configuration for a DagManager.
type Config struct {
	NumThreads             int
	PollingInterval        time.Duration
	DagStateStoreClass     string
	QuotaManagerClass      string
	FailureOption          core.FailureOption
	JobStartSla            time.Duration
	RetentionTime          time.Duration
	RetentionPollInterval  time.Duration
	FlowSLAOverrides       map[flowKey]time.Duration
}

type flowKey struct {
	group, name string
}

// Default returns every key's documented default (design §6):
// numThreads=3, pollingInterval=10s, jobStartSla=10min,
// failedDagStateStore.retention.time=7 days,
// failedDagStateStore.retention.pollingIntervalMinutes=60,
// failureOption=FINISH_ALL_POSSIBLE.
func Default() *Config {
	return &Config{
		NumThreads:            3,
		PollingInterval:       10 * time.Second,
		DagStateStoreClass:    "gorm_sqlite",
		QuotaManagerClass:     "in_memory",
		FailureOption:         core.FinishAllPossible,
		JobStartSla:           10 * time.Minute,
		RetentionTime:         7 * 24 * time.Hour,
		RetentionPollInterval: 60 * time.Minute,
		FlowSLAOverrides:      make(map[flowKey]time.Duration),
	}
}

// Load parses an HCL file at path and resolves it against Default() for
// any key it omits.
func Load(path string) (*Config, error) {
	parser := hclparse.NewParser()
	file, diags := parser.ParseHCLFile(path)
	if diags.HasErrors() {
		return nil, fmt.Errorf("dagmanager: parse config %s: %s", path, diags.Error())
	}

	var schema Schema
	if diags := gohcl.DecodeBody(file.Body, nil, &schema); diags.HasErrors() {
		return nil, fmt.Errorf("dagmanager: decode config %s: %s", path, diags.Error())
	}

	return resolve(&schema)
}

func resolve(schema *Schema) (*Config, error) {
	cfg := Default()

	if schema.NumThreads > 0 {
		cfg.NumThreads = security.ClampShards(schema.NumThreads)
	}
	if schema.DagStateStoreClass != "" {
		cfg.DagStateStoreClass = schema.DagStateStoreClass
	}
	if schema.QuotaManagerClass != "" {
		cfg.QuotaManagerClass = schema.QuotaManagerClass
	}
	if schema.FailureOption != "" {
		cfg.FailureOption = core.FailureOption(schema.FailureOption)
	}

	var err error
	cfg.PollingInterval, err = evalDuration(schema.PollingIntervalSeconds, cfg.PollingInterval)
	if err != nil {
		return nil, fmt.Errorf("dagmanager: polling_interval_seconds: %w", err)
	}
	cfg.JobStartSla, err = evalDuration(schema.JobStartSla, cfg.JobStartSla)
	if err != nil {
		return nil, fmt.Errorf("dagmanager: job_start_sla: %w", err)
	}

	if schema.Retention != nil {
		cfg.RetentionTime, err = evalDuration(schema.Retention.Time, cfg.RetentionTime)
		if err != nil {
			return nil, fmt.Errorf("dagmanager: failed_dag_retention.time: %w", err)
		}
		cfg.RetentionPollInterval, err = evalDuration(schema.Retention.PollingIntervalMinutes, cfg.RetentionPollInterval)
		if err != nil {
			return nil, fmt.Errorf("dagmanager: failed_dag_retention.polling_interval_minutes: %w", err)
		}
	}

	for _, override := range schema.FlowSLAs {
		d, err := evalDuration(override.SLA, 0)
		if err != nil {
			return nil, fmt.Errorf("dagmanager: flow_sla %q.%q: %w", override.FlowGroup, override.FlowName, err)
		}
		cfg.FlowSLAOverrides[flowKey{override.FlowGroup, override.FlowName}] = d
	}

	return cfg, nil
}

// FlowSLA returns the configured flow SLA for (group, name), if any.
func (c *Config) FlowSLA(group, name string) (time.Duration, bool) {
	d, ok := c.FlowSLAOverrides[flowKey{group, name}]
	return d, ok
}
