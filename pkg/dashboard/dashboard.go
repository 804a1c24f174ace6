package dashboard

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/flowforge/dagmanager/pkg/core"
	"github.com/flowforge/dagmanager/pkg/metrics"
)

// Dashboard serves a read-only JSON view of manager state. It never
// mutates the stores it reads from.
type Dashboard struct {
	live    core.DagStateStore
	failed  core.DagStateStore
	metrics *metrics.Emitter
	logger  *slog.Logger
}

// New wires a Dashboard against the live store, failed store, and shared
// emitter a Manager was constructed with.
func New(live, failed core.DagStateStore, emitter *metrics.Emitter, logger *slog.Logger) *Dashboard {
	if logger == nil {
		logger = slog.Default()
	}
	return &Dashboard{live: live, failed: failed, metrics: emitter, logger: logger}
}

// Handler returns the dashboard's HTTP mux: GET /dags, GET /dags/failed,
// GET /counters.
func (d *Dashboard) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/dags", d.handleDags(d.live))
	mux.HandleFunc("/dags/failed", d.handleDags(d.failed))
	mux.HandleFunc("/counters", d.handleCounters)
	return mux
}

type dagSummary struct {
	Id            string            `json:"id"`
	FlowGroup     string            `json:"flowGroup"`
	FlowName      string            `json:"flowName"`
	FlowExecution int64             `json:"flowExecutionId"`
	FlowEvent     string            `json:"flowEvent"`
	Message       string            `json:"message,omitempty"`
	Nodes         map[string]string `json:"nodes"`
}

func summarize(dag *core.Dag) dagSummary {
	nodes := make(map[string]string, len(dag.Nodes()))
	for _, name := range dag.Nodes() {
		plan, ok := dag.Node(name)
		if !ok {
			continue
		}
		nodes[name] = string(plan.Status)
	}
	return dagSummary{
		Id:            dag.Id.String(),
		FlowGroup:     dag.Id.FlowGroup,
		FlowName:      dag.Id.FlowName,
		FlowExecution: dag.Id.FlowExecutionId,
		FlowEvent:     dag.FlowEvent,
		Message:       dag.Message,
		Nodes:         nodes,
	}
}

func (d *Dashboard) handleDags(store core.DagStateStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		dags, err := store.GetDags(r.Context())
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		summaries := make([]dagSummary, 0, len(dags))
		for _, dag := range dags {
			summaries = append(summaries, summarize(dag))
		}
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(summaries); err != nil {
			d.logger.Error("dashboard: encode response", "err", err)
		}
	}
}

func (d *Dashboard) handleCounters(w http.ResponseWriter, r *http.Request) {
	if d.metrics == nil {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(metrics.Counters{})
		return
	}
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(d.metrics.Snapshot()); err != nil {
		d.logger.Error("dashboard: encode counters", "err", err)
	}
}
