// Package dashboard provides a minimal read-only HTTP view of DAG and
// shard state: per-DAG node status summaries, the failed-dag backlog,
// and the metrics.Emitter's counters.
//
// Grounded on the teacher's pkg/storage/gorm_ui.go (GetQueueStats'
// group-and-summarize pattern, applied here to node status instead of
// job status) and ui/handler.go's http.ServeMux composition. The
// teacher's Connect-RPC service and embedded SPA frontend are not
// carried over — there is no generated protobuf/frontend asset pack in
// this repository to adapt, and a hand-rolled placeholder would not be
// grounded in anything the corpus demonstrates.
package dashboard
