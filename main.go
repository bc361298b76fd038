package main

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"

	"github.com/DA1F/RoAnalyzer/cmd"
	"github.com/DA1F/RoAnalyzer/internal/buildinfo"
	"github.com/DA1F/RoAnalyzer/internal/conf"
	"github.com/DA1F/RoAnalyzer/internal/logger"
	"github.com/DA1F/RoAnalyzer/internal/telemetry"
)

// Set at build time with -ldflags "-X main.version=... -X main.buildDate=..."
var (
	version   string
	buildDate string
)

func main() {
	os.Exit(mainWithExitCode())
}

func mainWithExitCode() int {
	settings, err := conf.Load("")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading configuration: %v\n", err)
		return 1
	}

	central, err := logger.NewCentralLogger(&settings.Logging)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error initializing logging: %v\n", err)
		return 1
	}
	logger.SetGlobal(central)
	defer func() { _ = central.Close() }()

	log := logger.Global().Module("main")

	// The system ID lives next to the config file.
	dataDir := "."
	if used := viper.ConfigFileUsed(); used != "" {
		dataDir = filepath.Dir(used)
	}
	systemID, err := telemetry.LoadOrCreateSystemID(dataDir)
	if err != nil {
		log.Warn("failed to load system ID", logger.Error(err))
	}

	build := buildinfo.NewContext(version, buildDate, systemID)
	log.Debug("starting",
		logger.String("version", build.GetVersion()),
		logger.String("build_date", build.GetBuildDate()))

	rootCmd := cmd.RootCommand(settings, build)
	err = rootCmd.Execute()
	telemetry.Flush(2 * time.Second)
	if err != nil {
		return 1
	}
	return 0
}
