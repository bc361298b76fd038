package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/DA1F/RoAnalyzer/cmd/devices"
	"github.com/DA1F/RoAnalyzer/cmd/notify"
	"github.com/DA1F/RoAnalyzer/cmd/record"
	"github.com/DA1F/RoAnalyzer/cmd/version"
	"github.com/DA1F/RoAnalyzer/internal/buildinfo"
	"github.com/DA1F/RoAnalyzer/internal/conf"
	"github.com/DA1F/RoAnalyzer/internal/telemetry"
)

// RootCommand creates and returns the root command
func RootCommand(settings *conf.Settings, build *buildinfo.Context) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:          "streampuffer",
		Short:        "StreamPuffer capture buffer",
		SilenceUsage: true,
	}

	// Set up the global flags for the root command.
	if err := setupFlags(rootCmd, settings); err != nil {
		panic(err)
	}

	recordCmd := record.Command(settings, build)
	devicesCmd := devices.Command()
	versionCmd := version.Command(build)
	notifyCmd := notify.Command(settings)

	rootCmd.AddCommand(recordCmd, devicesCmd, versionCmd, notifyCmd)

	rootCmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		// Flags have overwritten settings fields; check the result again.
		if err := conf.ValidateSettings(settings); err != nil {
			return err
		}

		// Skip setup for commands that touch no service
		if cmd.Name() == versionCmd.Name() || cmd.Name() == devicesCmd.Name() {
			return nil
		}
		return initialize(settings, build)
	}

	return rootCmd
}

// initialize runs before every service command.
func initialize(settings *conf.Settings, build *buildinfo.Context) error {
	if err := telemetry.InitSentry(&settings.Sentry, build); err != nil {
		return fmt.Errorf("failed to initialize telemetry: %w", err)
	}
	return nil
}

// setupFlags defines flags that are global to the command line interface
func setupFlags(rootCmd *cobra.Command, settings *conf.Settings) error {
	rootCmd.PersistentFlags().BoolVarP(&settings.Debug, "debug", "d", viper.GetBool("debug"), "Enable debug output")
	rootCmd.PersistentFlags().StringVar(&settings.Output.Path, "output", viper.GetString("output.path"), "Directory for saved recordings")
	rootCmd.PersistentFlags().StringVar(&settings.Output.Session, "session", viper.GetString("output.session"), "Session name used in file names")
	rootCmd.PersistentFlags().StringVar(&settings.WebServer.Listen, "listen", viper.GetString("webserver.listen"), "HTTP API listen address")

	if err := viper.BindPFlags(rootCmd.PersistentFlags()); err != nil {
		return fmt.Errorf("error binding flags: %w", err)
	}

	return nil
}
