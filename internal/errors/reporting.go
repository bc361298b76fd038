package errors

import (
	"regexp"
	"sync"
	"sync/atomic"
)

// TelemetryReporter receives every error built while it is enabled.
type TelemetryReporter interface {
	ReportError(err *EnhancedError)
	IsEnabled() bool
}

// ErrorHook is called for every built error while reporting is active. The
// metrics package uses one to count errors by component and category.
type ErrorHook func(ee *EnhancedError)

// PrivacyScrubber rewrites text before it leaves the process.
type PrivacyScrubber func(string) string

var (
	// hasActiveReporting lets Build skip the stack walk when nobody listens.
	hasActiveReporting atomic.Bool

	reportingMu sync.RWMutex
	reporter    TelemetryReporter
	hooks       []ErrorHook
	scrubber    PrivacyScrubber
)

// SetTelemetryReporter installs r, or removes the reporter when r is nil.
func SetTelemetryReporter(r TelemetryReporter) {
	reportingMu.Lock()
	defer reportingMu.Unlock()
	reporter = r
	refreshActiveLocked()
}

// GetTelemetryReporter returns the installed reporter, if any.
func GetTelemetryReporter() TelemetryReporter {
	reportingMu.RLock()
	defer reportingMu.RUnlock()
	return reporter
}

// AddErrorHook registers hook for all errors built from now on.
func AddErrorHook(hook ErrorHook) {
	reportingMu.Lock()
	defer reportingMu.Unlock()
	hooks = append(hooks, hook)
	refreshActiveLocked()
}

// ClearErrorHooks removes every hook.
func ClearErrorHooks() {
	reportingMu.Lock()
	defer reportingMu.Unlock()
	hooks = nil
	refreshActiveLocked()
}

// SetPrivacyScrubber replaces the built-in scrubbing of reported messages.
func SetPrivacyScrubber(s PrivacyScrubber) {
	reportingMu.Lock()
	defer reportingMu.Unlock()
	scrubber = s
}

func refreshActiveLocked() {
	hasActiveReporting.Store(len(hooks) > 0 || (reporter != nil && reporter.IsEnabled()))
}

func reportToTelemetry(ee *EnhancedError) {
	reportingMu.RLock()
	hs, r := hooks, reporter
	reportingMu.RUnlock()

	for _, hook := range hs {
		hook(ee)
	}
	if r != nil && r.IsEnabled() {
		r.ReportError(ee)
	}
}

func scrubMessageForPrivacy(message string) string {
	reportingMu.RLock()
	s := scrubber
	reportingMu.RUnlock()
	if s != nil {
		return s(message)
	}
	return basicURLScrub(message)
}

var basicScrubRules = []struct {
	re   *regexp.Regexp
	repl string
}{
	{regexp.MustCompile(`(\w+://[^?\s]+)\?\S*`), "$1?[REDACTED]"},
	{regexp.MustCompile(`(\w+://)[^/@\s]+@`), "$1[USER]@"},
	{regexp.MustCompile(`(?i)\b(api[_-]?key|token|auth|password|secret)[=:]\S+`), "$1=[REDACTED]"},
	{regexp.MustCompile(`\b[0-9a-fA-F]{32,}\b`), "[REDACTED]"},
}

// basicURLScrub drops query strings, URL userinfo and credential-looking
// key=value pairs. It runs when no PrivacyScrubber is installed.
func basicURLScrub(message string) string {
	for _, rule := range basicScrubRules {
		message = rule.re.ReplaceAllString(message, rule.repl)
	}
	return message
}
