package telemetry

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
)

const systemIDFile = ".system_id"

var systemIDPattern = regexp.MustCompile(`^[0-9A-Fa-f]{4}-[0-9A-Fa-f]{4}-[0-9A-Fa-f]{4}$`)

// GenerateSystemID returns a random identifier shaped XXXX-XXXX-XXXX.
func GenerateSystemID() (string, error) {
	var raw [6]byte
	if _, err := rand.Read(raw[:]); err != nil {
		return "", fmt.Errorf("failed to generate random bytes: %w", err)
	}
	h := strings.ToUpper(hex.EncodeToString(raw[:]))
	return h[:4] + "-" + h[4:8] + "-" + h[8:], nil
}

// LoadOrCreateSystemID returns the installation's ID from dataDir, writing a
// new one when the file is missing or malformed. Sentry tags every event with
// it so reports from one capture box can be grouped.
func LoadOrCreateSystemID(dataDir string) (string, error) {
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create data directory: %w", err)
	}
	path := filepath.Join(dataDir, systemIDFile)

	if data, err := os.ReadFile(path); err == nil {
		if id := strings.TrimSpace(string(data)); isValidSystemID(id) {
			return id, nil
		}
	}

	id, err := GenerateSystemID()
	if err != nil {
		return "", err
	}
	if err := os.WriteFile(path, []byte(id), 0o600); err != nil {
		return "", fmt.Errorf("failed to save system ID: %w", err)
	}
	return id, nil
}

func isValidSystemID(id string) bool {
	return systemIDPattern.MatchString(id)
}
