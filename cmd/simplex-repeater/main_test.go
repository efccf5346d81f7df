package main

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/doismellburning/simplex/src/config"
)

// noSearch stops loadConfig from finding a real configuration file.
func noSearch(t *testing.T) {
	t.Helper()
	var saved = config.SearchLocations
	config.SearchLocations = nil
	t.Cleanup(func() { config.SearchLocations = saved })
}

func Test_ParseArgs(t *testing.T) {
	var o, _, err = parseArgs([]string{"-d", "USB", "--output-level", "0.5", "N0CALL"}, io.Discard)
	require.NoError(t, err)
	assert.Equal(t, "N0CALL", o.callsign)
	assert.Equal(t, "USB", o.device)
	assert.True(t, o.set["output-level"])
	assert.True(t, o.set["device"])
	assert.False(t, o.set["recordings"])

	_, _, err = parseArgs([]string{"--callsign", "N0CALL", "N1CALL"}, io.Discard)
	assert.ErrorContains(t, err, "callsign given twice")

	o, _, err = parseArgs([]string{"--callsign", "N0CALL", "N0CALL"}, io.Discard)
	require.NoError(t, err)
	assert.Equal(t, "N0CALL", o.callsign)

	_, _, err = parseArgs([]string{"N0CALL", "extra"}, io.Discard)
	assert.ErrorContains(t, err, "extra")
}

func Test_LoadConfig_Defaults(t *testing.T) {
	noSearch(t)

	var o, _, err = parseArgs([]string{"N0CALL"}, io.Discard)
	require.NoError(t, err)

	cfg, path, err := loadConfig(o)
	require.NoError(t, err)
	assert.Empty(t, path)
	assert.Equal(t, "N0CALL", cfg.Station.Callsign)
	assert.Equal(t, config.Default().Timing, cfg.Timing)
}

func Test_LoadConfig_FileThenFlags(t *testing.T) {
	noSearch(t)

	var path = filepath.Join(t.TempDir(), "simplex.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
station:
  callsign: N0FILE
audio:
  output_level: 0.25
  device: Scarlett
timing:
  hang: 500ms
recordings:
  format: wav
`), 0o644))

	var o, _, err = parseArgs([]string{"-c", path, "--output-level", "0.75", "-r", "/tmp/msgs"}, io.Discard)
	require.NoError(t, err)

	cfg, got, err := loadConfig(o)
	require.NoError(t, err)
	assert.Equal(t, path, got)
	assert.Equal(t, "N0FILE", cfg.Station.Callsign)
	assert.Equal(t, 0.75, cfg.Audio.OutputLevel)
	assert.Equal(t, "Scarlett", cfg.Audio.Device)
	assert.Equal(t, 500*time.Millisecond, cfg.Timing.Hang)
	assert.Equal(t, "/tmp/msgs", cfg.Recordings.Dir)
	assert.Equal(t, "wav", cfg.Recordings.Format)
}

func Test_LoadConfig_Invalid(t *testing.T) {
	noSearch(t)

	var o, _, err = parseArgs(nil, io.Discard)
	require.NoError(t, err)
	_, _, err = loadConfig(o)
	assert.ErrorIs(t, err, config.ErrInvalid)
	assert.ErrorContains(t, err, "callsign")

	o, _, err = parseArgs([]string{"--log-level", "chatty", "--output-level", "2", "N0CALL"}, io.Discard)
	require.NoError(t, err)
	_, _, err = loadConfig(o)
	assert.ErrorContains(t, err, "chatty")
	assert.ErrorContains(t, err, "output level")

	o, _, err = parseArgs([]string{"-c", filepath.Join(t.TempDir(), "missing.yaml"), "N0CALL"}, io.Discard)
	require.NoError(t, err)
	_, _, err = loadConfig(o)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func Test_Run_Usage(t *testing.T) {
	noSearch(t)

	var stdout, stderr bytes.Buffer
	assert.Equal(t, 0, run([]string{"--help"}, &stdout, &stderr))
	assert.Contains(t, stderr.String(), "Usage: simplex-repeater")

	stderr.Reset()
	assert.Equal(t, 2, run([]string{"--colour"}, &stdout, &stderr))

	stderr.Reset()
	assert.Equal(t, 2, run(nil, &stdout, &stderr))
	assert.Contains(t, stderr.String(), "callsign is required")

	stderr.Reset()
	assert.Equal(t, 2, run([]string{"--format", "mp3", "N0CALL"}, &stdout, &stderr))
	assert.Contains(t, stderr.String(), "mp3")
}
