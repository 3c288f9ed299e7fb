package metrics

import "time"

type testRecorder struct {
	encodes        int
	resolves       int
	classDurations map[string]int
	outcomes       map[string]map[OutcomeLabel]int
	services       map[string]int
}

func newTestRecorder() *testRecorder {
	return &testRecorder{
		classDurations: map[string]int{},
		outcomes:       map[string]map[OutcomeLabel]int{},
		services:       map[string]int{},
	}
}

func (t *testRecorder) ObserveEncodeDuration(time.Duration)  { t.encodes++ }
func (t *testRecorder) ObserveResolveDuration(time.Duration) { t.resolves++ }
func (t *testRecorder) ObserveClassDuration(class string, _ time.Duration) {
	t.classDurations[class]++
}
func (t *testRecorder) IncPlaceholderOutcome(class string, outcome OutcomeLabel) {
	m, ok := t.outcomes[class]
	if !ok {
		m = map[OutcomeLabel]int{}
		t.outcomes[class] = m
	}
	m[outcome]++
}
func (t *testRecorder) IncEmbedService(service string) { t.services[service]++ }
