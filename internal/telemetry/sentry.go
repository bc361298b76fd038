// Package telemetry provides opt-in, privacy-filtered error reporting to
// Sentry and the installation's system ID.
package telemetry

import (
	"fmt"
	"runtime"
	"time"

	"github.com/getsentry/sentry-go"

	"github.com/DA1F/RoAnalyzer/internal/buildinfo"
	"github.com/DA1F/RoAnalyzer/internal/conf"
	"github.com/DA1F/RoAnalyzer/internal/errors"
	"github.com/DA1F/RoAnalyzer/internal/logger"
	"github.com/DA1F/RoAnalyzer/internal/privacy"
)

func getLogger() logger.Logger {
	return logger.Global().Module("telemetry")
}

// InitSentry initializes the Sentry SDK and routes reported errors to it.
// It does nothing unless Sentry is explicitly enabled.
func InitSentry(settings *conf.SentrySettings, build buildinfo.BuildInfo) error {
	if !settings.Enabled {
		getLogger().Debug("sentry telemetry is disabled")
		return nil
	}

	err := sentry.Init(sentry.ClientOptions{
		Dsn:              settings.DSN,
		SampleRate:       1.0,
		AttachStacktrace: false,
		Environment:      "production",
		ServerName:       "", // never send the hostname
		Release:          "streampuffer@" + build.GetVersion(),
		BeforeSend:       scrubEvent,
	})
	if err != nil {
		return fmt.Errorf("sentry initialization failed: %w", err)
	}

	configureScope(build)
	errors.SetPrivacyScrubber(privacy.ScrubMessage)
	errors.SetTelemetryReporter(errors.NewSentryReporter(true))

	getLogger().Info("sentry telemetry enabled",
		logger.String("system_id", build.GetSystemID()),
		logger.String("release", build.GetVersion()))
	return nil
}

// scrubEvent drops the parts of an event that could identify the host or
// the user and anonymizes URLs in messages.
func scrubEvent(event *sentry.Event, _ *sentry.EventHint) *sentry.Event {
	event.ServerName = ""
	event.User = sentry.User{}
	event.Request = nil
	for _, key := range []string{"device", "os", "culture"} {
		delete(event.Contexts, key)
	}

	event.Message = privacy.ScrubMessage(event.Message)
	for i := range event.Exception {
		event.Exception[i].Value = privacy.ScrubMessage(event.Exception[i].Value)
	}
	return event
}

func configureScope(build buildinfo.BuildInfo) {
	sentry.ConfigureScope(func(scope *sentry.Scope) {
		scope.SetTag("system_id", build.GetSystemID())
		scope.SetTag("os", runtime.GOOS)
		scope.SetTag("arch", runtime.GOARCH)
		scope.SetContext("application", map[string]any{
			"name":       "streampuffer",
			"version":    build.GetVersion(),
			"build_date": build.GetBuildDate(),
		})
		scope.SetContext("platform", map[string]any{
			"num_cpu":    runtime.NumCPU(),
			"go_version": runtime.Version(),
		})
	})
}

// Flush waits up to timeout for buffered events to be sent.
func Flush(timeout time.Duration) {
	if errors.GetTelemetryReporter() == nil {
		return
	}
	sentry.Flush(timeout)
}
