package metrics

import (
	"sync"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
)

// PrometheusRecorder implements Recorder using Prometheus metrics.
type PrometheusRecorder struct {
	once           sync.Once
	encodeDuration prom.Histogram
	totalDuration  prom.Histogram
	classDuration  *prom.HistogramVec
	outcomes       *prom.CounterVec
	embedServices  *prom.CounterVec
}

// NewPrometheusRecorder constructs and registers Prometheus metrics (idempotent).
func NewPrometheusRecorder(reg *prom.Registry) *PrometheusRecorder {
	if reg == nil {
		reg = prom.NewRegistry()
	}
	pr := &PrometheusRecorder{}
	pr.once.Do(func() {
		pr.encodeDuration = prom.NewHistogram(prom.HistogramOpts{
			Namespace: "notedown",
			Name:      "encode_duration_seconds",
			Help:      "Duration of Markdown to markup encoding",
			Buckets:   prom.DefBuckets,
		})
		pr.totalDuration = prom.NewHistogram(prom.HistogramOpts{
			Namespace: "notedown",
			Name:      "resolve_duration_seconds",
			Help:      "Total duration of document placeholder resolution",
			Buckets:   prom.DefBuckets,
		})
		pr.classDuration = prom.NewHistogramVec(prom.HistogramOpts{
			Namespace: "notedown",
			Name:      "resolve_class_duration_seconds",
			Help:      "Duration of per-class placeholder resolution",
			Buckets:   prom.DefBuckets,
		}, []string{"class"})
		pr.outcomes = prom.NewCounterVec(prom.CounterOpts{
			Namespace: "notedown",
			Name:      "placeholder_outcomes_total",
			Help:      "Placeholder resolution outcomes by class",
		}, []string{"class", "outcome"})
		pr.embedServices = prom.NewCounterVec(prom.CounterOpts{
			Namespace: "notedown",
			Name:      "embed_services_total",
			Help:      "Recognized embed URLs by service",
		}, []string{"service"})
		reg.MustRegister(pr.encodeDuration, pr.totalDuration, pr.classDuration, pr.outcomes, pr.embedServices)
	})
	return pr
}

func (p *PrometheusRecorder) ObserveEncodeDuration(d time.Duration) {
	if p == nil || p.encodeDuration == nil {
		return
	}
	p.encodeDuration.Observe(d.Seconds())
}

func (p *PrometheusRecorder) ObserveResolveDuration(d time.Duration) {
	if p == nil || p.totalDuration == nil {
		return
	}
	p.totalDuration.Observe(d.Seconds())
}

func (p *PrometheusRecorder) ObserveClassDuration(class string, d time.Duration) {
	if p == nil || p.classDuration == nil {
		return
	}
	p.classDuration.WithLabelValues(class).Observe(d.Seconds())
}

func (p *PrometheusRecorder) IncPlaceholderOutcome(class string, outcome OutcomeLabel) {
	if p == nil || p.outcomes == nil {
		return
	}
	p.outcomes.WithLabelValues(class, string(outcome)).Inc()
}

func (p *PrometheusRecorder) IncEmbedService(service string) {
	if p == nil || p.embedServices == nil {
		return
	}
	p.embedServices.WithLabelValues(service).Inc()
}
