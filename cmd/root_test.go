package cmd

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tphakala/go-miniaudio/internal/app"
	"github.com/tphakala/go-miniaudio/internal/buildinfo"
	"github.com/tphakala/go-miniaudio/internal/logger"
	"github.com/tphakala/go-miniaudio/internal/native/softengine"
)

const testConfig = `
audio:
  samplerate: 44100
logging:
  default_level: error
  timezone: UTC
  console:
    enabled: true
    level: error
`

func writeConfig(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(testConfig), 0o600))
	return path
}

func execute(t *testing.T, args ...string) (*app.Session, string, error) {
	t.Helper()
	quiet := logger.NewSlogLogger(io.Discard, logger.LogLevelError, time.UTC)
	session := app.NewSession(buildinfo.NewContext("0.0.1-test", ""), app.WithDriver(softengine.New(softengine.WithLogger(quiet))))
	t.Cleanup(func() { assert.NoError(t, session.Close()) })

	root := RootCommand(session)
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(io.Discard)
	root.SetArgs(args)
	err := root.Execute()
	return session, out.String(), err
}

func TestVersionSkipsInitialization(t *testing.T) {
	session, out, err := execute(t, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "maudio 0.0.1-test")
	assert.Nil(t, session.Settings(), "version does not load settings")
}

func TestDevicesWithConfigFile(t *testing.T) {
	session, out, err := execute(t, "devices", "--config", writeConfig(t), "--kind", "playback")
	require.NoError(t, err)
	assert.Equal(t, "playback devices:\n  1. Null Playback Device [default]\n     id: null\n", out)
	assert.Equal(t, uint32(44100), session.Settings().Audio.SampleRate)
}

func TestFlagsOverrideConfig(t *testing.T) {
	session, _, err := execute(t, "devices", "--config", writeConfig(t),
		"--samplerate", "96000", "--backend", "null", "--output-channels", "1")
	require.NoError(t, err)

	audio := session.Settings().Audio
	assert.Equal(t, uint32(96000), audio.SampleRate)
	assert.Equal(t, uint32(1), audio.Channels)
	assert.Equal(t, []string{"null"}, audio.Backends)
}

func TestInvalidFlagOverrideIsRejected(t *testing.T) {
	_, _, err := execute(t, "devices", "--config", writeConfig(t), "--samplerate", "12")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "sample rate")
}

func TestMissingConfigFile(t *testing.T) {
	_, _, err := execute(t, "devices", "--config", filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
}
