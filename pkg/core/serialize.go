package core

import (
	"encoding/json"
	"time"
)

func unixMillisToTime(ms int64) time.Time {
	if ms == 0 {
		return time.Time{}
	}
	return time.UnixMilli(ms)
}

// dagWire is the durable-store's opaque JSON representation of a Dag.
// Submission futures are not part of it: per the design notes, a
// future's serialization for cancellation purposes is the SpecProducer's
// job, not the checkpoint's — a crash between submission and ack simply
// means the recovered node has Future == nil.
type dagWire struct {
	Id                     DagId
	FailureOption          FailureOption
	FlowEvent              string
	Message                string
	EventEmittedTimeMillis int64
	FlowStartTime          int64 // unix millis
	Order                  []string
	Nodes                  map[string]*JobExecutionPlan
	Parents                map[string][]string
	Children               map[string][]string
}

// MarshalJSON implements the durable checkpoint format for a Dag.
func (d *Dag) MarshalJSON() ([]byte, error) {
	return json.Marshal(dagWire{
		Id:                     d.Id,
		FailureOption:          d.FailureOption,
		FlowEvent:              d.FlowEvent,
		Message:                d.Message,
		EventEmittedTimeMillis: d.EventEmittedTimeMillis,
		FlowStartTime:          d.FlowStartTime.UnixMilli(),
		Order:                  d.order,
		Nodes:                  d.nodes,
		Parents:                d.parents,
		Children:               d.children,
	})
}

// UnmarshalJSON reconstructs a Dag from its durable checkpoint format.
// Recovered nodes always have Future == nil; the owning shard treats
// that the same as "never submitted" on the next pass.
func (d *Dag) UnmarshalJSON(data []byte) error {
	var w dagWire
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	d.Id = w.Id
	d.FailureOption = w.FailureOption
	d.FlowEvent = w.FlowEvent
	d.Message = w.Message
	d.EventEmittedTimeMillis = w.EventEmittedTimeMillis
	d.FlowStartTime = unixMillisToTime(w.FlowStartTime)
	d.order = w.Order
	d.nodes = w.Nodes
	d.parents = w.Parents
	d.children = w.Children
	if d.nodes == nil {
		d.nodes = make(map[string]*JobExecutionPlan)
	}
	if d.parents == nil {
		d.parents = make(map[string][]string)
	}
	if d.children == nil {
		d.children = make(map[string][]string)
	}
	return nil
}
