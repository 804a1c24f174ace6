// Package metrics provides the counters, gauges, and timing-event
// fanout the manager and its shards report through.
//
// The in-process pub/sub is grounded on the teacher's
// Queue.Emit/Events()/Unsubscribe trio in pkg/queue.Queue; the optional
// websocket broadcaster adapts that same fanout for external
// dashboards, using gorilla/websocket.
package metrics
