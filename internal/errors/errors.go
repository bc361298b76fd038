// Package errors wraps errors with a category, the component that raised
// them and free-form context. Built errors can be forwarded to telemetry.
//
//	return errors.New(err).
//	    Component("encode").
//	    Category(errors.CategoryCodecConfig).
//	    Context("codec", "aac").
//	    Build()
//
// The standard library helpers (Is, As, Join...) are re-exported so callers
// import only this package.
package errors

import (
	"maps"
	"sync/atomic"
	"time"
)

// ErrorCategory groups errors for handling decisions, metrics and telemetry.
type ErrorCategory string

// CategorizedError lets foreign error types declare their category.
type CategorizedError interface {
	error
	ErrorCategory() ErrorCategory
}

const (
	CategoryValidation    ErrorCategory = "validation"
	CategoryConfiguration ErrorCategory = "configuration"
	CategoryFileIO        ErrorCategory = "file-io"
	CategoryNetwork       ErrorCategory = "network"
	CategoryDatabase      ErrorCategory = "database"
	CategoryHTTP          ErrorCategory = "http-request"
	CategorySystem        ErrorCategory = "system-resource"
	CategoryDiskUsage     ErrorCategory = "disk-usage"
	CategoryMQTTPublish   ErrorCategory = "mqtt-publish"
	CategoryMQTTConnect   ErrorCategory = "mqtt-connection"
	CategoryAudioSource   ErrorCategory = "audio-source"
	CategoryGeneric       ErrorCategory = "generic"
	CategoryNotFound      ErrorCategory = "not-found"
	CategoryState         ErrorCategory = "state"
	CategoryTimeout       ErrorCategory = "timeout"
	CategoryCancellation  ErrorCategory = "cancellation"

	CategoryEmptyBuffer      ErrorCategory = "empty-buffer"      // no video frames at save time
	CategoryMalformedFrame   ErrorCategory = "malformed-frame"   // payload size does not match the format
	CategoryCodecUnavailable ErrorCategory = "codec-unavailable" // encoder missing from the FFmpeg build
	CategoryCodecConfig      ErrorCategory = "codec-config"      // encoder or muxer rejected parameters
	CategoryWorkerJoin       ErrorCategory = "worker-join"       // encode worker died before finishing
	CategoryIngest           ErrorCategory = "ingest"            // producer stream failed
)

// Priorities override the level telemetry derives from the category.
const (
	PriorityLow      = "low"
	PriorityMedium   = "medium"
	PriorityHigh     = "high"
	PriorityCritical = "critical"
)

// ComponentUnknown is reported when no component was set or detected.
const ComponentUnknown = "unknown"

// EnhancedError is the error type produced by ErrorBuilder. Apart from the
// reported flag it does not change after Build.
type EnhancedError struct {
	Err       error
	Category  ErrorCategory
	Priority  string
	Context   map[string]any
	Timestamp time.Time

	component string
	reported  atomic.Bool
}

func (ee *EnhancedError) Error() string {
	if ee.Err == nil {
		return string(ee.Category)
	}
	return ee.Err.Error()
}

func (ee *EnhancedError) Unwrap() error { return ee.Err }

// Is matches any EnhancedError of the same category, which makes
// category-only values usable as sentinels.
func (ee *EnhancedError) Is(target error) bool {
	if t, ok := target.(*EnhancedError); ok {
		return ee.Category == t.Category
	}
	return Is(ee.Err, target)
}

// GetComponent returns the component name or ComponentUnknown.
func (ee *EnhancedError) GetComponent() string { return ee.component }

// GetCategory returns the category as a plain string for metric labels.
func (ee *EnhancedError) GetCategory() string { return string(ee.Category) }

// GetPriority returns the explicit priority, or "" when none was set.
func (ee *EnhancedError) GetPriority() string { return ee.Priority }

// GetTimestamp returns when the error was built.
func (ee *EnhancedError) GetTimestamp() time.Time { return ee.Timestamp }

// GetContext returns a copy of the context map.
func (ee *EnhancedError) GetContext() map[string]any {
	if ee.Context == nil {
		return nil
	}
	return maps.Clone(ee.Context)
}

// MarkReported records that telemetry has seen the error.
func (ee *EnhancedError) MarkReported() { ee.reported.Store(true) }

// IsReported reports whether MarkReported was called.
func (ee *EnhancedError) IsReported() bool { return ee.reported.Load() }

// IsCategory reports whether err's chain holds an EnhancedError of category.
func IsCategory(err error, category ErrorCategory) bool {
	var ee *EnhancedError
	return As(err, &ee) && ee.Category == category
}

// CategoryOf returns the category of the outermost EnhancedError in err's
// chain, or CategoryGeneric.
func CategoryOf(err error) ErrorCategory {
	var ee *EnhancedError
	if As(err, &ee) {
		return ee.Category
	}
	return CategoryGeneric
}
