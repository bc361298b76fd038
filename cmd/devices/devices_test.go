package devices

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/DA1F/RoAnalyzer/internal/ingest"
)

func TestPrintDevices(t *testing.T) {
	t.Parallel()

	devs := []ingest.AudioDeviceInfo{
		{Index: 0, Name: "Built-in Microphone", ID: "hw:0,0", IsDefault: true},
		{Index: 1, Name: "USB Audio", ID: "hw:1,0"},
	}

	var text bytes.Buffer
	require.NoError(t, printDevices(&text, devs, false))
	assert.Contains(t, text.String(), "0: Built-in Microphone (default)")
	assert.Contains(t, text.String(), "1: USB Audio\n   id: hw:1,0")

	var raw bytes.Buffer
	require.NoError(t, printDevices(&raw, devs, true))
	var decoded []ingest.AudioDeviceInfo
	require.NoError(t, json.Unmarshal(raw.Bytes(), &decoded))
	assert.Equal(t, devs, decoded)

	var empty bytes.Buffer
	require.NoError(t, printDevices(&empty, nil, false))
	assert.Equal(t, "No capture devices found\n", empty.String())
}
