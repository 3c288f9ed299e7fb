package metrics

import "time"

// OutcomeLabel enumerates placeholder resolution outcomes for counters.
type OutcomeLabel string

const (
	OutcomeResolved     OutcomeLabel = "resolved"
	OutcomeLinkDegraded OutcomeLabel = "link_degraded"
	OutcomeFailed       OutcomeLabel = "failed"
)

// Recorder defines observability hooks for encode and resolve metrics.
// Implementations may forward to Prometheus, OpenTelemetry, etc. All methods
// must be safe on the NoopRecorder (allowing optional injection).
type Recorder interface {
	ObserveEncodeDuration(d time.Duration)
	ObserveResolveDuration(d time.Duration)
	ObserveClassDuration(class string, d time.Duration)
	IncPlaceholderOutcome(class string, outcome OutcomeLabel)
	IncEmbedService(service string)
}

// NoopRecorder is a Recorder that does nothing (default when metrics not configured).
type NoopRecorder struct{}

func (NoopRecorder) ObserveEncodeDuration(time.Duration)        {}
func (NoopRecorder) ObserveResolveDuration(time.Duration)       {}
func (NoopRecorder) ObserveClassDuration(string, time.Duration) {}
func (NoopRecorder) IncPlaceholderOutcome(string, OutcomeLabel) {}
func (NoopRecorder) IncEmbedService(string)                     {}
