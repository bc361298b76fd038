package encode

import (
	"strings"
	"sync"

	"github.com/asticode/go-astiav"

	"github.com/DA1F/RoAnalyzer/internal/logger"
)

var logBridgeOnce sync.Once

// GetLogger returns the encode module logger from the global logger.
func GetLogger() logger.Logger {
	return logger.Global().Module(componentName)
}

// installLogBridge routes libav* log lines into the structured logger.
// FFmpeg keeps a single process-wide callback, so only the first caller wins.
func installLogBridge(log logger.Logger) {
	logBridgeOnce.Do(func() {
		ffLog := log.Module("ffmpeg")
		astiav.SetLogLevel(astiav.LogLevelWarning)
		astiav.SetLogCallback(func(_ astiav.Classer, level astiav.LogLevel, _, msg string) {
			msg = strings.TrimSpace(msg)
			if msg == "" {
				return
			}
			switch {
			case level <= astiav.LogLevelError:
				ffLog.Error(msg)
			case level <= astiav.LogLevelWarning:
				ffLog.Warn(msg)
			default:
				ffLog.Debug(msg)
			}
		})
	})
}
