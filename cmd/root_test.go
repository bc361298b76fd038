package cmd

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/DA1F/RoAnalyzer/internal/buildinfo"
	"github.com/DA1F/RoAnalyzer/internal/conf"
)

func TestRootCommandTree(t *testing.T) {
	settings := &conf.Settings{}
	root := RootCommand(settings, buildinfo.NewContext("1.0.0", "", ""))

	names := make([]string, 0, len(root.Commands()))
	for _, c := range root.Commands() {
		names = append(names, c.Name())
	}
	for _, want := range []string{"record", "devices", "version", "notify"} {
		assert.Contains(t, names, want)
	}

	for _, flag := range []string{"debug", "output", "session", "listen"} {
		assert.NotNil(t, root.PersistentFlags().Lookup(flag), flag)
	}
}

func TestRecordFlagsOverrideSettings(t *testing.T) {
	settings := &conf.Settings{}
	root := RootCommand(settings, buildinfo.NewContext("1.0.0", "", ""))

	rec, _, err := root.Find([]string{"record"})
	assert.NoError(t, err)
	assert.NoError(t, rec.ParseFlags([]string{"--source=none", "--audio=false"}))
	assert.Equal(t, "none", settings.Capture.Source)
	assert.False(t, settings.Capture.Audio.Enabled)
}
