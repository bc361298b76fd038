// Package record provides the command that runs the capture service.
package record

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/DA1F/RoAnalyzer/internal/buildinfo"
	"github.com/DA1F/RoAnalyzer/internal/capture"
	"github.com/DA1F/RoAnalyzer/internal/conf"
)

// Command creates a cobra.Command that keeps the capture buffer running until
// interrupted.
func Command(settings *conf.Settings, build buildinfo.BuildInfo) *cobra.Command {
	var opts capture.Options

	cmd := &cobra.Command{
		Use:   "record",
		Short: "Buffer a live feed and serve the HTTP API",
		Long: `Buffer the most recent video frames and audio chunks and save them on request.

Sources:
  synthetic  generated test pattern and tone
  device     audio from a capture device, video over HTTP
  none       video and audio over HTTP`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return run(ctx, settings, build, opts)
		},
	}

	if err := setupFlags(cmd, settings, &opts); err != nil {
		panic(err)
	}

	return cmd
}

func run(ctx context.Context, settings *conf.Settings, build buildinfo.BuildInfo, opts capture.Options) error {
	return capture.Realtime(ctx, settings, build, opts)
}

func setupFlags(cmd *cobra.Command, settings *conf.Settings, opts *capture.Options) error {
	cmd.Flags().StringVar(&settings.Capture.Source, "source", viper.GetString("capture.source"), "Capture source: synthetic, device or none")
	cmd.Flags().StringVar(&settings.Capture.Audio.Device, "device", viper.GetString("capture.audio.device"), "Audio capture device name")
	cmd.Flags().BoolVar(&settings.Capture.Audio.Enabled, "audio", viper.GetBool("capture.audio.enabled"), "Buffer audio")
	cmd.Flags().BoolVar(&settings.WebServer.Enabled, "api", viper.GetBool("webserver.enabled"), "Serve the HTTP API")
	cmd.Flags().DurationVar(&opts.Duration, "duration", 0, "Stop after this long, 0 to run until interrupted")
	cmd.Flags().BoolVar(&opts.SaveOnExit, "save-on-exit", false, "Save the buffered window before exiting")
	cmd.Flags().StringVar(&opts.SaveName, "name", "final", "Name used for the file saved on exit")

	if err := viper.BindPFlags(cmd.Flags()); err != nil {
		return err
	}
	return nil
}
