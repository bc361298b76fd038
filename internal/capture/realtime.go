// Package capture starts the capture service: recorder, producers, catalog,
// MQTT, notifications and the HTTP API, and tears them down in order.
package capture

import (
	"context"
	"time"

	"github.com/shirou/gopsutil/v3/host"

	"github.com/DA1F/RoAnalyzer/internal/api"
	"github.com/DA1F/RoAnalyzer/internal/buildinfo"
	"github.com/DA1F/RoAnalyzer/internal/conf"
	"github.com/DA1F/RoAnalyzer/internal/datastore"
	"github.com/DA1F/RoAnalyzer/internal/errors"
	"github.com/DA1F/RoAnalyzer/internal/ingest"
	"github.com/DA1F/RoAnalyzer/internal/logger"
	"github.com/DA1F/RoAnalyzer/internal/mqtt"
	"github.com/DA1F/RoAnalyzer/internal/notification"
	"github.com/DA1F/RoAnalyzer/internal/observability"
	"github.com/DA1F/RoAnalyzer/internal/recorder"
)

const (
	componentName = "capture"

	retentionInterval = 5 * time.Minute
	shutdownTimeout   = 30 * time.Second
	connectTimeout    = 30 * time.Second
)

// Sources the record command can start.
const (
	SourceSynthetic = "synthetic" // generated video and audio
	SourceDevice    = "device"    // audio from a host device, video over HTTP
	SourceNone      = "none"      // everything over HTTP
)

// Options controls one run.
type Options struct {
	// Duration stops the run after this long. 0 runs until ctx ends.
	Duration time.Duration
	// SaveOnExit writes the buffered window before shutting down.
	SaveOnExit bool
	// SaveName names the file written on exit.
	SaveName string
	// RecorderOptions are applied after the service wiring.
	RecorderOptions []recorder.Option
}

// Realtime runs the capture service until ctx ends or opts.Duration
// elapses, then saves (when asked) and shuts everything down.
func Realtime(ctx context.Context, settings *conf.Settings, build buildinfo.BuildInfo, opts Options) error {
	log := logger.Global().Module(componentName)
	logSystemDetails(log, settings)

	m, err := observability.NewMetrics()
	if err != nil {
		return errors.New(err).
			Component(componentName).
			Category(errors.CategorySystemResource).
			Context("operation", "init_metrics").
			Build()
	}
	m.InstallErrorHook()

	recOpts := []recorder.Option{recorder.WithMetrics(m)}

	var store datastore.Interface
	if settings.Database.Enabled {
		store, err = datastore.New(&settings.Database, datastore.WithMetrics(m.Datastore))
		if err != nil {
			return err
		}
		if err := store.Open(); err != nil {
			return err
		}
		defer closeDataStore(log, store)
		recOpts = append(recOpts, recorder.WithStore(store))
	}

	if settings.MQTT.Enabled {
		client, err := mqtt.NewClient(mqtt.ConfigFromSettings(&settings.MQTT), m.MQTT, nil)
		if err != nil {
			return err
		}
		connectCtx, cancel := context.WithTimeout(ctx, connectTimeout)
		if err := client.Connect(connectCtx); err != nil {
			// Auto-reconnect keeps trying; saves publish once it is up.
			log.Warn("MQTT broker unavailable at startup", logger.Error(err))
		}
		cancel()
		defer client.Disconnect()
		recOpts = append(recOpts, recorder.WithPublisher(mqtt.NewPublisher(client, settings.MQTT.Topic)))
	}

	if settings.Notify.Enabled {
		svc, err := notification.NewServiceFromSettings(&settings.Notify, notification.WithMetrics(m.Notification))
		if err != nil {
			return err
		}
		defer svc.Close()
		recOpts = append(recOpts, recorder.WithNotifier(svc))
	}

	rec, err := recorder.New(settings, append(recOpts, opts.RecorderOptions...)...)
	if err != nil {
		return err
	}

	runCtx, stop := context.WithCancel(ctx)
	defer stop()
	if opts.Duration > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(runCtx, opts.Duration)
		defer cancel()
	}

	rec.StartRetention(runCtx, retentionInterval)

	var server *api.Server
	if settings.WebServer.Enabled {
		srvOpts := []api.ServerOption{api.WithMetrics(m), api.WithBuildInfo(build)}
		if store != nil {
			srvOpts = append(srvOpts, api.WithDataStore(store))
		}
		server, err = api.New(settings, rec, srvOpts...)
		if err != nil {
			_ = rec.Close(context.Background())
			return err
		}
		if err := server.Start(); err != nil {
			_ = rec.Close(context.Background())
			return err
		}
	}

	pumpDone := make(chan error, 1)
	if err := startSource(runCtx, settings, rec, m, log, pumpDone); err != nil {
		log.Error("capture source failed to start", logger.Error(err))
		stop()
	}

	log.Info("capture running",
		logger.String("source", settings.Capture.Source),
		logger.Bool("audio", settings.Capture.Audio.Enabled),
		logger.String("output", settings.Output.Path),
		logger.Duration("duration", opts.Duration))

	select {
	case <-runCtx.Done():
	case err := <-pumpDone:
		if err != nil {
			log.Error("capture source stopped", logger.Error(err))
		}
	}
	stop()

	return shutdown(log, rec, server, opts)
}

// shutdown saves on request, stops the HTTP server, then drains the
// recorder.
func shutdown(log logger.Logger, rec *recorder.Recorder, server *api.Server, opts Options) error {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	var saveErr error
	if opts.SaveOnExit {
		var saved *recorder.Recording
		saved, saveErr = rec.Save(ctx, recorder.SaveRequest{Name: opts.SaveName})
		if saveErr == nil {
			log.Info("saved window on exit", logger.String("path", saved.Path))
		}
	}

	if server != nil {
		if err := server.Shutdown(ctx); err != nil {
			log.Warn("HTTP server shutdown failed", logger.Error(err))
		}
	}
	if err := rec.Close(ctx); err != nil {
		log.Warn("recorder did not drain in time", logger.Error(err))
	}
	return saveErr
}

// startSource launches the configured producer. The pump result is sent on
// done; with no producer nothing is ever sent.
func startSource(ctx context.Context, settings *conf.Settings, rec *recorder.Recorder, m *observability.Metrics, log logger.Logger, done chan<- error) error {
	c := settings.Capture
	switch c.Source {
	case SourceSynthetic:
		src := ingest.NewSyntheticSource(ingest.SyntheticConfig{
			Width:      c.Video.Width,
			Height:     c.Video.Height,
			FPS:        c.Video.FPS,
			SampleRate: c.Audio.SampleRate,
			Channels:   c.Audio.Channels,
			Realtime:   true,
		})
		var audio ingest.AudioStream
		if c.Audio.Enabled {
			audio = src.Audio(ctx)
		}
		go func() { done <- ingest.Pump(ctx, rec, src.Video(ctx), audio, log.Module("ingest")) }()

	case SourceDevice:
		if !c.Audio.Enabled {
			log.Warn("device source selected with audio disabled; waiting for HTTP ingest")
			return nil
		}
		dev := ingest.NewDeviceSource(c.Audio.Device, c.Audio.SampleRate, c.Audio.Channels, log.Module("device"))
		audio, err := dev.Start(ctx)
		if err != nil {
			return err
		}
		if err := m.Capture.TrackDeviceDrops(dev.Dropped); err != nil {
			log.Warn("device drop counter not exported", logger.Error(err))
		}
		go func() { done <- ingest.Pump(ctx, rec, nil, audio, log.Module("ingest")) }()

	case SourceNone, "":
		log.Info("no capture source; waiting for HTTP ingest")
	}
	return nil
}

func logSystemDetails(log logger.Logger, settings *conf.Settings) {
	info, err := host.Info()
	if err != nil {
		log.Debug("failed to read host info", logger.Error(err))
		return
	}
	log.Info("system details",
		logger.String("os", info.OS),
		logger.String("platform", info.Platform),
		logger.String("platform_version", info.PlatformVersion),
		logger.String("arch", info.KernelArch),
		logger.Int("video_capacity", settings.Capture.Video.Capacity),
		logger.Int("audio_capacity", settings.Capture.Audio.Capacity))
}

// closeDataStore closes the catalog and logs the result.
func closeDataStore(log logger.Logger, store datastore.Interface) {
	if err := store.Close(); err != nil {
		log.Warn("failed to close database", logger.Error(err))
		return
	}
	log.Debug("database closed")
}
