// Package metrics provides observability hooks for encode and resolve
// operations.
//
// The package implements the Null Object pattern: components receive a
// Recorder through dependency injection and default to NoopRecorder, so
// metrics collection needs no nil checks and costs nothing when disabled.
// Swapping in NewPrometheusRecorder activates real collection without code
// changes elsewhere.
package metrics
