package conf

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/DA1F/RoAnalyzer/internal/errors"
	"github.com/DA1F/RoAnalyzer/internal/logger"
)

const (
	appDirName     = "streampuffer"
	configFileName = "config.yaml"
)

// GetLogger returns the config module logger. It is looked up on each call
// so it follows a SetGlobal made after package init.
func GetLogger() logger.Logger {
	return logger.Global().Module("config")
}

// GetDefaultConfigPaths lists where config.yaml is looked for, in order:
// the working directory, then ~/.config/streampuffer. When one of them
// already holds the file only that directory is returned. The last entry is
// where a default config gets written on first run.
func GetDefaultConfigPaths() ([]string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return nil, errors.New(err).
			Component("conf").
			Category(errors.CategorySystem).
			Context("operation", "get-home-directory").
			Build()
	}

	dirs := []string{".", filepath.Join(home, ".config", appDirName)}
	for _, dir := range dirs {
		if fileExists(filepath.Join(dir, configFileName)) {
			return []string{dir}, nil
		}
	}
	return dirs, nil
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}

// ParsePercentage reads values like "80%" or " 92.5% ". The % sign is
// required so a bare number in the config is not mistaken for bytes.
func ParsePercentage(s string) (float64, error) {
	num, ok := strings.CutSuffix(strings.TrimSpace(s), "%")
	if !ok {
		return 0, errors.Newf("percentage %q must end with %%", s).
			Component("conf").
			Category(errors.CategoryValidation).
			Context("input", s).
			Build()
	}
	v, err := strconv.ParseFloat(strings.TrimSpace(num), 64)
	if err != nil {
		return 0, errors.New(err).
			Component("conf").
			Category(errors.CategoryValidation).
			Context("input", s).
			Build()
	}
	return v, nil
}
