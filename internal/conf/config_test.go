package conf

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tphakala/go-miniaudio/internal/errors"
	"github.com/tphakala/go-miniaudio/internal/miniaudio"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func isolateConfigDirs(t *testing.T) {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("HOME", dir)
	t.Setenv("XDG_CONFIG_HOME", dir)
	t.Chdir(dir)
}

func TestLoadDefaults(t *testing.T) {
	isolateConfigDirs(t)

	s, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, uint32(48000), s.Audio.SampleRate)
	assert.Equal(t, uint32(2), s.Audio.Channels)
	assert.Empty(t, s.Audio.Backends)
	assert.Equal(t, []uint32{48000, 44100}, s.Audio.SampleRates())
	assert.InDelta(t, 0.5, s.Stream.BufferSeconds, 1e-9)
	assert.Equal(t, 20, s.Stream.ChunkMillis)
	assert.Equal(t, 5*time.Millisecond, s.Stream.RetryDelay)
	assert.Equal(t, 250*time.Millisecond, s.Monitor.Interval)
	assert.Equal(t, "info", s.Logging.DefaultLevel)
	assert.False(t, s.Metrics.Enabled)
	assert.Same(t, s, GetSettings())
}

func TestLoadFileAndEnvironment(t *testing.T) {
	isolateConfigDirs(t)
	path := writeConfig(t, `
audio:
  backends: [pulseaudio, " alsa ", ""]
  samplerate: 44100
  channels: 1
  capturedevice: hw:1,0
stream:
  retrydelay: 10ms
metrics:
  enabled: true
  listen: ":9100"
`)
	t.Setenv("MAUDIO_AUDIO_CHANNELS", "2")
	t.Setenv("MAUDIO_MONITOR_INTERVAL", "1s")

	s, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"pulseaudio", "alsa"}, s.Audio.Backends)
	assert.Equal(t, uint32(44100), s.Audio.SampleRate)
	assert.Equal(t, uint32(2), s.Audio.Channels, "environment overrides the file")
	assert.Equal(t, "hw:1,0", s.Audio.CaptureDevice)
	assert.Equal(t, 10*time.Millisecond, s.Stream.RetryDelay)
	assert.Equal(t, time.Second, s.Monitor.Interval)
	assert.True(t, s.Metrics.Enabled)

	backends, err := s.Audio.ParsedBackends()
	require.NoError(t, err)
	assert.Equal(t, []miniaudio.Backend{miniaudio.BackendPulseAudio, miniaudio.BackendALSA}, backends)
	assert.Equal(t, []uint32{44100}, s.Audio.SampleRates())
}

func TestLoadMissingExplicitFile(t *testing.T) {
	isolateConfigDirs(t)

	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
	assert.True(t, errors.IsCategory(err, errors.CategoryConfiguration))
}

func TestLoadRejectsInvalidSettings(t *testing.T) {
	isolateConfigDirs(t)

	_, err := Load(writeConfig(t, "audio:\n  backends: [beeper]\n"))
	require.Error(t, err)
	assert.True(t, errors.IsCategory(err, errors.CategoryValidation))
	var ve ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Len(t, ve.Errors, 1)
}

func TestValidateSettings(t *testing.T) {
	t.Parallel()

	valid := func() *Settings {
		return &Settings{
			Audio:   AudioSettings{SampleRate: 48000, Channels: 2},
			Stream:  StreamSettings{BufferSeconds: 0.5, ChunkMillis: 20, RetryDelay: time.Millisecond},
			Monitor: MonitorSettings{Interval: time.Second},
			Metrics: MetricsSettings{Listen: "127.0.0.1:9464"},
		}
	}
	require.NoError(t, ValidateSettings(valid()))

	tests := []struct {
		name   string
		mutate func(*Settings)
	}{
		{"low sample rate", func(s *Settings) { s.Audio.SampleRate = 100 }},
		{"no channels", func(s *Settings) { s.Audio.Channels = 0 }},
		{"bad fallback", func(s *Settings) { s.Audio.FallbackSampleRates = []uint32{1} }},
		{"unknown backend", func(s *Settings) { s.Audio.Backends = []string{"beeper"} }},
		{"empty buffer", func(s *Settings) { s.Stream.BufferSeconds = 0 }},
		{"chunk larger than buffer", func(s *Settings) { s.Stream.ChunkMillis = 600 }},
		{"zero retry", func(s *Settings) { s.Stream.RetryDelay = 0 }},
		{"negative interval", func(s *Settings) { s.Monitor.Interval = -time.Second }},
		{"bad log level", func(s *Settings) { s.Logging.DefaultLevel = "loud" }},
		{"bad metrics address", func(s *Settings) { s.Metrics.Enabled = true; s.Metrics.Listen = "nowhere" }},
		{"sentry without dsn", func(s *Settings) { s.Sentry.Enabled = true }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			s := valid()
			tt.mutate(s)
			err := ValidateSettings(s)
			var ve ValidationError
			require.ErrorAs(t, err, &ve)
			assert.Len(t, ve.Errors, 1)
		})
	}
}

func TestEnvValidators(t *testing.T) {
	t.Parallel()

	assert.NoError(t, validateEnvBool("true"))
	assert.Error(t, validateEnvBool("yes please"))
	assert.NoError(t, validateEnvPositive("48000"))
	assert.Error(t, validateEnvPositive("0"))
	assert.Error(t, validateEnvPositive("-1"))
	assert.NoError(t, validateEnvBackends("alsa, pulse,"))
	assert.Error(t, validateEnvBackends("alsa,beeper"))
}
