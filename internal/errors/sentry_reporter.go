package errors

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/getsentry/sentry-go"
)

// SentryReporter forwards errors to the Sentry hub set up by the telemetry
// package. Messages and string context values are scrubbed first.
type SentryReporter struct {
	enabled bool
}

// NewSentryReporter returns a reporter; a disabled one drops everything.
func NewSentryReporter(enabled bool) *SentryReporter {
	return &SentryReporter{enabled: enabled}
}

func (sr *SentryReporter) IsEnabled() bool { return sr.enabled }

// ReportError sends ee once. Events are fingerprinted by title, component
// and category so repeats of the same failure group together.
func (sr *SentryReporter) ReportError(ee *EnhancedError) {
	if !sr.enabled || ee.IsReported() {
		return
	}
	ee.MarkReported()

	title := generateErrorTitle(ee)
	message := scrubMessageForPrivacy(fmt.Sprintf("[%s] %s", ee.Category, ee.Error()))
	level := sentryLevel(ee.Category)

	sentry.WithScope(func(scope *sentry.Scope) {
		scope.SetTags(map[string]string{
			"error_title": title,
			"component":   ee.GetComponent(),
			"category":    string(ee.Category),
			"error_type":  fmt.Sprintf("%T", ee.Err),
		})
		if ee.Priority != "" {
			scope.SetTag("priority", ee.Priority)
		}
		for key, value := range ee.GetContext() {
			if s, ok := value.(string); ok {
				value = scrubMessageForPrivacy(s)
			}
			scope.SetContext(key, sentry.Context{"value": value})
		}
		scope.SetLevel(level)
		scope.SetFingerprint([]string{title, ee.GetComponent(), string(ee.Category)})

		event := sentry.NewEvent()
		event.Level = level
		event.Message = message
		event.Exception = []sentry.Exception{{Type: title, Value: message}}
		sentry.CaptureEvent(event)
	})
}

var categoryTitles = map[ErrorCategory]string{
	CategoryValidation:       "Validation Error",
	CategoryFileIO:           "File I/O Error",
	CategoryDatabase:         "Database Error",
	CategoryConfiguration:    "Configuration Error",
	CategoryEmptyBuffer:      "Empty Buffer",
	CategoryMalformedFrame:   "Malformed Frame",
	CategoryCodecUnavailable: "Codec Unavailable",
	CategoryCodecConfig:      "Codec Configuration Error",
	CategoryWorkerJoin:       "Worker Join Error",
}

// generateErrorTitle builds "Component Category Operation", e.g.
// "Encode Codec Configuration Error Open Audio Encoder".
func generateErrorTitle(ee *EnhancedError) string {
	var parts []string
	if c := ee.GetComponent(); c != "" && c != ComponentUnknown {
		parts = append(parts, titleWords(c))
	}
	if t, ok := categoryTitles[ee.Category]; ok {
		parts = append(parts, t)
	} else if ee.Category != "" {
		parts = append(parts, string(ee.Category))
	}
	if op, ok := ee.Context["operation"].(string); ok && op != "" {
		parts = append(parts, titleWords(op))
	}
	if len(parts) == 0 {
		return fmt.Sprintf("%T", ee.Err)
	}
	return strings.Join(parts, " ")
}

// titleWords turns snake_case into capitalized words.
func titleWords(s string) string {
	words := strings.Fields(strings.ReplaceAll(s, "_", " "))
	for i, w := range words {
		r := []rune(w)
		r[0] = unicode.ToUpper(r[0])
		words[i] = string(r)
	}
	return strings.Join(words, " ")
}

func sentryLevel(category ErrorCategory) sentry.Level {
	switch category {
	case CategoryCancellation, CategoryTimeout:
		return sentry.LevelInfo
	case CategoryNetwork, CategoryMQTTConnect, CategoryMQTTPublish,
		CategoryFileIO, CategoryDiskUsage, CategoryEmptyBuffer, CategoryMalformedFrame:
		return sentry.LevelWarning
	default:
		return sentry.LevelError
	}
}
