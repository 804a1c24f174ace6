package config

import "github.com/hashicorp/hcl/v2"

// FailedDagRetentionSchema is the failed_dag_retention block.
type FailedDagRetentionSchema struct {
	Time                   hcl.Expression `hcl:"time,optional"`
	PollingIntervalMinutes hcl.Expression `hcl:"polling_interval_minutes,optional"`
}

// FlowSLASchema is one flow_sla "group" "name" { ... } override block.
type FlowSLASchema struct {
	FlowGroup string         `hcl:"flow_group,label"`
	FlowName  string         `hcl:"flow_name,label"`
	SLA       hcl.Expression `hcl:"sla"`
}

// Schema is the top-level shape of a DagManager HCL config file. Every
// field is optional; Load fills the rest from Default().
type Schema struct {
	NumThreads             int                       `hcl:"num_threads,optional"`
	PollingIntervalSeconds hcl.Expression            `hcl:"polling_interval_seconds,optional"`
	DagStateStoreClass     string                    `hcl:"dag_state_store_class,optional"`
	QuotaManagerClass      string                    `hcl:"quota_manager_class,optional"`
	FailureOption          string                    `hcl:"failure_option,optional"`
	JobStartSla            hcl.Expression            `hcl:"job_start_sla,optional"`
	Retention              *FailedDagRetentionSchema `hcl:"failed_dag_retention,block"`
	FlowSLAs               []*FlowSLASchema          `hcl:"flow_sla,block"`
	Body                   hcl.Body                  `hcl:",remain"`
}
