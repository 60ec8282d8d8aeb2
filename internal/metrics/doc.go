// Package metrics collects router observability data through a buffered
// event channel: per-operation request counts, per-provider selections,
// call durations and failures, and the last observed circuit breaker state.
//
// Producers send MetricEvent values to the collector's channel (dropping
// when the buffer is full rather than blocking); the collector goroutine
// folds them into an in-memory store served as a JSON snapshot.
package metrics
