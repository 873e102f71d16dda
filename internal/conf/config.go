// Package conf loads the maudio command line settings from config.yaml, MAUDIO_
// environment variables and built-in defaults.
package conf

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/spf13/viper"

	"github.com/tphakala/go-miniaudio/internal/errors"
	"github.com/tphakala/go-miniaudio/internal/logger"
	"github.com/tphakala/go-miniaudio/internal/miniaudio"
)

// Settings is the complete maudio configuration.
type Settings struct {
	Debug bool `yaml:"debug" mapstructure:"debug"`

	Audio   AudioSettings        `yaml:"audio" mapstructure:"audio"`
	Stream  StreamSettings       `yaml:"stream" mapstructure:"stream"`
	Monitor MonitorSettings      `yaml:"monitor" mapstructure:"monitor"`
	Logging logger.LoggingConfig `yaml:"logging" mapstructure:"logging"`
	Metrics MetricsSettings      `yaml:"metrics" mapstructure:"metrics"`
	Sentry  SentrySettings       `yaml:"sentry" mapstructure:"sentry"`
}

// AudioSettings select the backend, devices and engine format.
type AudioSettings struct {
	Backends       []string `yaml:"backends" mapstructure:"backends"`             // preferred backends in order, empty for native choice
	PlaybackDevice string   `yaml:"playbackdevice" mapstructure:"playbackdevice"` // device id, empty for the default device
	CaptureDevice  string   `yaml:"capturedevice" mapstructure:"capturedevice"`
	SampleRate     uint32   `yaml:"samplerate" mapstructure:"samplerate"`
	Channels       uint32   `yaml:"channels" mapstructure:"channels"`
	PeriodFrames   uint32   `yaml:"periodframes" mapstructure:"periodframes"` // 0 lets the backend choose
	NoAutoStart    bool     `yaml:"noautostart" mapstructure:"noautostart"`
	// FallbackSampleRates are tried in order when a device rejects SampleRate.
	FallbackSampleRates []uint32 `yaml:"fallbacksamplerates" mapstructure:"fallbacksamplerates"`
}

// StreamSettings tune the streaming producer loop.
type StreamSettings struct {
	BufferSeconds float64       `yaml:"bufferseconds" mapstructure:"bufferseconds"` // ring buffer capacity
	ChunkMillis   int           `yaml:"chunkmillis" mapstructure:"chunkmillis"`     // frames generated per append
	RetryDelay    time.Duration `yaml:"retrydelay" mapstructure:"retrydelay"`       // wait after a partial append
}

// MonitorSettings tune the capture level meter.
type MonitorSettings struct {
	Interval time.Duration `yaml:"interval" mapstructure:"interval"` // minimum time between level reports
}

// MetricsSettings control the Prometheus endpoint.
type MetricsSettings struct {
	Enabled bool   `yaml:"enabled" mapstructure:"enabled"`
	Listen  string `yaml:"listen" mapstructure:"listen"`
}

// SentrySettings control optional error telemetry.
type SentrySettings struct {
	Enabled bool   `yaml:"enabled" mapstructure:"enabled"`
	DSN     string `yaml:"dsn" mapstructure:"dsn"`
}

// ParsedBackends resolves the configured backend names.
func (a *AudioSettings) ParsedBackends() ([]miniaudio.Backend, error) {
	out := make([]miniaudio.Backend, 0, len(a.Backends))
	for _, name := range a.Backends {
		b, err := miniaudio.ParseBackend(name)
		if err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, nil
}

// SampleRates returns SampleRate followed by the fallbacks, without duplicates.
func (a *AudioSettings) SampleRates() []uint32 {
	rates := []uint32{a.SampleRate}
	for _, r := range a.FallbackSampleRates {
		if r != 0 && !slices.Contains(rates, r) {
			rates = append(rates, r)
		}
	}
	return rates
}

var (
	settingsInstance *Settings
	settingsMutex    sync.RWMutex
)

// Load reads configFile, or config.yaml from the default paths when configFile is
// empty, applies environment overrides and validates the result. A missing config file
// in the default paths is not an error.
func Load(configFile string) (*Settings, error) {
	settingsMutex.Lock()
	defer settingsMutex.Unlock()

	v := viper.New()
	setDefaultConfig(v)
	if err := configureEnvironmentVariables(v); err != nil {
		GetLogger().Warn("environment configuration issues", logger.Error(err))
	}

	if err := readConfig(v, configFile); err != nil {
		return nil, err
	}

	settings := &Settings{}
	if err := v.Unmarshal(settings); err != nil {
		return nil, errors.New(err).
			Component("conf").
			Category(errors.CategoryConfiguration).
			Context("operation", "unmarshal_config").
			Build()
	}
	settings.Audio.Backends = normalizeBackends(settings.Audio.Backends)
	if err := ValidateSettings(settings); err != nil {
		return nil, errors.New(err).
			Component("conf").
			Category(errors.CategoryValidation).
			Context("operation", "validate_config").
			Build()
	}

	settingsInstance = settings
	return settings, nil
}

func readConfig(v *viper.Viper, configFile string) error {
	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		for _, path := range GetDefaultConfigPaths() {
			v.AddConfigPath(path)
		}
	}

	err := v.ReadInConfig()
	if err == nil {
		GetLogger().Debug("config loaded", logger.String("path", v.ConfigFileUsed()))
		return nil
	}
	var notFound viper.ConfigFileNotFoundError
	if configFile == "" && errors.As(err, &notFound) {
		return nil
	}
	return errors.New(fmt.Errorf("reading config: %w", err)).
		Component("conf").
		Category(errors.CategoryConfiguration).
		FileContext(configFile).
		Context("operation", "read_config").
		Build()
}

// GetDefaultConfigPaths returns the directories searched for config.yaml.
func GetDefaultConfigPaths() []string {
	paths := []string{"."}
	if dir, err := os.UserConfigDir(); err == nil {
		paths = append(paths, filepath.Join(dir, "maudio"))
	}
	if runtime.GOOS != "windows" {
		paths = append(paths, "/etc/maudio")
	}
	return paths
}

// GetSettings returns the settings from the last successful Load, or nil.
func GetSettings() *Settings {
	settingsMutex.RLock()
	defer settingsMutex.RUnlock()
	return settingsInstance
}

func normalizeBackends(names []string) []string {
	out := names[:0]
	for _, n := range names {
		if n = strings.TrimSpace(n); n != "" {
			out = append(out, n)
		}
	}
	return out
}
