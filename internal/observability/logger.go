package observability

import "github.com/DA1F/RoAnalyzer/internal/logger"

func getLogger() logger.Logger {
	return logger.Global().Module("telemetry")
}
