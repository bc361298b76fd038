// Package buildinfo holds build-time metadata, kept apart from user
// configuration.
package buildinfo

import (
	"runtime"
	"runtime/debug"
)

// UnknownValue is reported for metadata that was not injected at build time.
const UnknownValue = "unknown"

// BuildInfo provides access to build-time metadata.
type BuildInfo interface {
	GetVersion() string
	GetBuildDate() string
	GetSystemID() string
}

// Context contains build-time metadata injected at startup.
type Context struct {
	// Version holds the Git version tag from build
	Version string

	// BuildDate is the time when the binary was built
	BuildDate string

	// SystemID identifies this installation in telemetry and MQTT client ids
	SystemID string
}

// NewContext creates a Context. An empty version falls back to the module
// version recorded by the Go toolchain, if any.
func NewContext(version, buildDate, systemID string) *Context {
	if version == "" {
		if bi, ok := debug.ReadBuildInfo(); ok && bi.Main.Version != "" && bi.Main.Version != "(devel)" {
			version = bi.Main.Version
		}
	}
	return &Context{Version: version, BuildDate: buildDate, SystemID: systemID}
}

// GetVersion implements BuildInfo.GetVersion
func (c *Context) GetVersion() string {
	if c == nil || c.Version == "" {
		return UnknownValue
	}
	return c.Version
}

// GetBuildDate implements BuildInfo.GetBuildDate
func (c *Context) GetBuildDate() string {
	if c == nil || c.BuildDate == "" {
		return UnknownValue
	}
	return c.BuildDate
}

// GetSystemID implements BuildInfo.GetSystemID
func (c *Context) GetSystemID() string {
	if c == nil || c.SystemID == "" {
		return UnknownValue
	}
	return c.SystemID
}

// Summary is the JSON form served by the health endpoint and printed by the
// version command.
type Summary struct {
	Version   string `json:"version"`
	BuildDate string `json:"build_date"`
	GoVersion string `json:"go_version"`
	Platform  string `json:"platform"`
}

// Summarize collects the metadata together with runtime details.
func Summarize(b BuildInfo) Summary {
	s := Summary{
		Version:   UnknownValue,
		BuildDate: UnknownValue,
		GoVersion: runtime.Version(),
		Platform:  runtime.GOOS + "/" + runtime.GOARCH,
	}
	if b != nil {
		s.Version = b.GetVersion()
		s.BuildDate = b.GetBuildDate()
	}
	return s
}
