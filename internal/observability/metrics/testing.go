package metrics

import (
	"slices"
	"sync"
)

type opLabel struct{ op, label string }

// TestRecorder is an in-memory Recorder for tests of packages that report
// through Recorder.
type TestRecorder struct {
	mu        sync.RWMutex
	outcomes  map[opLabel]int // label is the status
	failures  map[opLabel]int // label is the error type
	durations map[string][]float64
}

// NewTestRecorder returns an empty TestRecorder.
func NewTestRecorder() *TestRecorder {
	return &TestRecorder{
		outcomes:  map[opLabel]int{},
		failures:  map[opLabel]int{},
		durations: map[string][]float64{},
	}
}

func (r *TestRecorder) RecordOperation(operation, status string) {
	r.mu.Lock()
	r.outcomes[opLabel{operation, status}]++
	r.mu.Unlock()
}

func (r *TestRecorder) RecordDuration(operation string, seconds float64) {
	r.mu.Lock()
	r.durations[operation] = append(r.durations[operation], seconds)
	r.mu.Unlock()
}

func (r *TestRecorder) RecordError(operation, errorType string) {
	r.mu.Lock()
	r.failures[opLabel{operation, errorType}]++
	r.mu.Unlock()
}

// OperationCount returns how often operation finished with status.
func (r *TestRecorder) OperationCount(operation, status string) int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.outcomes[opLabel{operation, status}]
}

// ErrorCount returns how often operation failed with errorType.
func (r *TestRecorder) ErrorCount(operation, errorType string) int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.failures[opLabel{operation, errorType}]
}

// Durations returns a copy of the durations recorded for operation.
func (r *TestRecorder) Durations(operation string) []float64 {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return slices.Clone(r.durations[operation])
}

// HasRecordedMetrics reports whether anything was recorded.
func (r *TestRecorder) HasRecordedMetrics() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.outcomes)+len(r.failures)+len(r.durations) > 0
}
