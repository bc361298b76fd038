package metrics

// Recorder defines a minimal interface for recording metrics.
// Components depend on it rather than on a concrete metrics struct so tests
// can pass a TestRecorder or NoOpRecorder.
type Recorder interface {
	// RecordOperation records an operation outcome, e.g. ("catalog_insert", "success").
	RecordOperation(operation, status string)

	// RecordDuration records how long an operation took, in seconds.
	RecordDuration(operation string, seconds float64)

	// RecordError records an error for operation. errorType is usually an
	// error category such as "file-io" or "database".
	RecordError(operation, errorType string)
}

// NoOpRecorder discards everything.
type NoOpRecorder struct{}

// RecordOperation does nothing.
func (NoOpRecorder) RecordOperation(string, string) {}

// RecordDuration does nothing.
func (NoOpRecorder) RecordDuration(string, float64) {}

// RecordError does nothing.
func (NoOpRecorder) RecordError(string, string) {}
