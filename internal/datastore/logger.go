package datastore

import "github.com/DA1F/RoAnalyzer/internal/logger"

// GetLogger returns the datastore module logger.
func GetLogger() logger.Logger {
	return logger.Global().Module("datastore")
}
