package errors

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"
)

// ErrorBuilder collects metadata for an EnhancedError.
type ErrorBuilder struct {
	err       error
	component string
	category  ErrorCategory
	priority  string
	context   map[string]any
}

// New starts an error around err. err may be nil for category sentinels.
func New(err error) *ErrorBuilder {
	return &ErrorBuilder{err: err}
}

// Newf starts an error from a format string. %w works as with fmt.Errorf.
func Newf(format string, args ...any) *ErrorBuilder {
	return New(fmt.Errorf(format, args...))
}

// Component names the raising component. Without it the component is
// derived from the caller's package when telemetry is active.
func (eb *ErrorBuilder) Component(component string) *ErrorBuilder {
	eb.component = component
	return eb
}

// Category sets the category. Without it one is guessed from the wrapped error.
func (eb *ErrorBuilder) Category(category ErrorCategory) *ErrorBuilder {
	eb.category = category
	return eb
}

// Priority sets an explicit priority. Unknown non-empty values become medium.
func (eb *ErrorBuilder) Priority(priority string) *ErrorBuilder {
	switch priority {
	case "", PriorityLow, PriorityMedium, PriorityHigh, PriorityCritical:
		eb.priority = priority
	default:
		eb.priority = PriorityMedium
	}
	return eb
}

// Context attaches a key/value pair.
func (eb *ErrorBuilder) Context(key string, value any) *ErrorBuilder {
	if eb.context == nil {
		eb.context = make(map[string]any, 4)
	}
	eb.context[key] = value
	return eb
}

// FileContext describes a file without recording its path: whether the path
// is absolute, the extension and a size bucket.
func (eb *ErrorBuilder) FileContext(path string, size int64) *ErrorBuilder {
	if path != "" {
		kind := "relative-path"
		if filepath.IsAbs(path) {
			kind = "absolute-path"
		}
		ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(path), "."))
		if ext == "" {
			ext = "none"
		}
		eb.Context("file_type", kind).Context("file_extension", ext)
	}
	if size > 0 {
		eb.Context("file_size_category", sizeBucket(size))
	}
	return eb
}

// Timing records the operation and how long it ran.
func (eb *ErrorBuilder) Timing(operation string, d time.Duration) *ErrorBuilder {
	return eb.Context("operation", operation).Context("duration_ms", d.Milliseconds())
}

// Build returns the error. When a reporter or hook is installed the error is
// also passed to them; otherwise no stack walk happens.
func (eb *ErrorBuilder) Build() *EnhancedError {
	active := hasActiveReporting.Load()

	ee := &EnhancedError{
		Err:       eb.err,
		Category:  eb.category,
		Priority:  eb.priority,
		Context:   eb.context,
		Timestamp: time.Now(),
		component: eb.component,
	}
	if ee.component == "" && active {
		ee.component = callerComponent()
	}
	if ee.component == "" {
		ee.component = ComponentUnknown
	}
	if ee.Category == "" {
		if active {
			ee.Category = guessCategory(eb.err)
		} else {
			ee.Category = CategoryGeneric
		}
	}

	if active {
		reportToTelemetry(ee)
	}
	return ee
}

func sizeBucket(size int64) string {
	switch {
	case size < 1<<10:
		return "tiny"
	case size < 1<<20:
		return "small"
	case size < 10<<20:
		return "medium"
	case size < 100<<20:
		return "large"
	default:
		return "very-large"
	}
}

// guessCategory looks for a category in err's chain, then at its message.
func guessCategory(err error) ErrorCategory {
	if err == nil {
		return CategoryGeneric
	}
	var ce CategorizedError
	if As(err, &ce) {
		return ce.ErrorCategory()
	}
	var ee *EnhancedError
	if As(err, &ee) && ee.Category != "" {
		return ee.Category
	}

	msg := strings.ToLower(err.Error())
	for _, rule := range messageRules {
		for _, word := range rule.words {
			if strings.Contains(msg, word) {
				return rule.category
			}
		}
	}
	return CategoryGeneric
}

var messageRules = []struct {
	category ErrorCategory
	words    []string
}{
	{CategoryCodecConfig, []string{"codec", "encoder"}},
	{CategoryFileIO, []string{"file", "open", "write"}},
	{CategoryNetwork, []string{"connection", "dial"}},
	{CategoryValidation, []string{"invalid", "mismatch"}},
}
