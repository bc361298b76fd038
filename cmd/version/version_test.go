package version

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/DA1F/RoAnalyzer/internal/buildinfo"
)

func TestVersionCommand(t *testing.T) {
	t.Parallel()

	build := buildinfo.NewContext("1.2.3", "2026-10-01", "abc")

	tests := []struct {
		name string
		args []string
		want string
	}{
		{"text", nil, "streampuffer 1.2.3 (built 2026-10-01"},
		{"json", []string{"--json"}, `"version":"1.2.3"`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			cmd := Command(build)
			out := &bytes.Buffer{}
			cmd.SetOut(out)
			cmd.SetArgs(tt.args)
			require.NoError(t, cmd.Execute())
			assert.Contains(t, out.String(), tt.want)
		})
	}
}

func TestVersionJSONDecodes(t *testing.T) {
	t.Parallel()

	cmd := Command(buildinfo.NewContext("1.2.3", "", ""))
	out := &bytes.Buffer{}
	cmd.SetOut(out)
	cmd.SetArgs([]string{"--json"})
	require.NoError(t, cmd.Execute())

	var s buildinfo.Summary
	require.NoError(t, json.Unmarshal(out.Bytes(), &s))
	assert.Equal(t, "1.2.3", s.Version)
	assert.Equal(t, buildinfo.UnknownValue, s.BuildDate)
}
