package buildinfo

import (
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestContextAccessors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name          string
		ctx           *Context
		wantVersion   string
		wantBuildDate string
		wantSystemID  string
	}{
		{
			name:          "nil context",
			ctx:           nil,
			wantVersion:   UnknownValue,
			wantBuildDate: UnknownValue,
			wantSystemID:  UnknownValue,
		},
		{
			name:          "empty fields",
			ctx:           &Context{},
			wantVersion:   UnknownValue,
			wantBuildDate: UnknownValue,
			wantSystemID:  UnknownValue,
		},
		{
			name:          "populated",
			ctx:           NewContext("1.0.0-beta.1", "2026-10-19", "abc123"),
			wantVersion:   "1.0.0-beta.1",
			wantBuildDate: "2026-10-19",
			wantSystemID:  "abc123",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.wantVersion, tt.ctx.GetVersion())
			assert.Equal(t, tt.wantBuildDate, tt.ctx.GetBuildDate())
			assert.Equal(t, tt.wantSystemID, tt.ctx.GetSystemID())
		})
	}
}

func TestContextImplementsBuildInfo(t *testing.T) {
	t.Parallel()
	var _ BuildInfo = (*Context)(nil)
}

func TestSummarize(t *testing.T) {
	t.Parallel()

	s := Summarize(NewContext("2.1.0", "2026-10-19", ""))
	assert.Equal(t, "2.1.0", s.Version)
	assert.Equal(t, "2026-10-19", s.BuildDate)
	assert.Equal(t, runtime.Version(), s.GoVersion)
	assert.Equal(t, runtime.GOOS+"/"+runtime.GOARCH, s.Platform)

	s = Summarize(nil)
	assert.Equal(t, UnknownValue, s.Version)
}
