package conf

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/viper"

	"github.com/tphakala/go-miniaudio/internal/miniaudio"
)

// EnvPrefix is prepended to every environment override, e.g. MAUDIO_AUDIO_SAMPLERATE.
const EnvPrefix = "MAUDIO"

// envBinding holds metadata for environment variable bindings
type envBinding struct {
	ConfigKey string
	EnvVar    string
	Validate  func(string) error
}

func getEnvBindings() []envBinding {
	return []envBinding{
		{"debug", "MAUDIO_DEBUG", validateEnvBool},
		{"audio.backends", "MAUDIO_AUDIO_BACKENDS", validateEnvBackends},
		{"audio.playbackdevice", "MAUDIO_AUDIO_PLAYBACKDEVICE", nil},
		{"audio.capturedevice", "MAUDIO_AUDIO_CAPTUREDEVICE", nil},
		{"audio.samplerate", "MAUDIO_AUDIO_SAMPLERATE", validateEnvPositive},
		{"audio.channels", "MAUDIO_AUDIO_CHANNELS", validateEnvPositive},
		{"metrics.enabled", "MAUDIO_METRICS_ENABLED", validateEnvBool},
		{"metrics.listen", "MAUDIO_METRICS_LISTEN", nil},
		{"sentry.dsn", "MAUDIO_SENTRY_DSN", nil},
	}
}

// bindEnvVars binds the explicit variables and validates the ones that are set.
func bindEnvVars(v *viper.Viper) error {
	var warnings []string
	for _, binding := range getEnvBindings() {
		if err := v.BindEnv(binding.ConfigKey, binding.EnvVar); err != nil {
			warnings = append(warnings, fmt.Sprintf("Failed to bind %s: %v", binding.EnvVar, err))
			continue
		}
		if binding.Validate == nil {
			continue
		}
		if value := os.Getenv(binding.EnvVar); value != "" {
			if err := binding.Validate(value); err != nil {
				warnings = append(warnings, fmt.Sprintf("Invalid %s value '%s': %v", binding.EnvVar, value, err))
			}
		}
	}

	if len(warnings) > 0 {
		return fmt.Errorf("environment variable issues:\n  - %s", strings.Join(warnings, "\n  - "))
	}
	return nil
}

func validateEnvBool(value string) error {
	if _, err := strconv.ParseBool(value); err != nil {
		return fmt.Errorf("must be true or false")
	}
	return nil
}

func validateEnvPositive(value string) error {
	n, err := strconv.ParseUint(value, 10, 32)
	if err != nil || n == 0 {
		return fmt.Errorf("must be a positive integer")
	}
	return nil
}

func validateEnvBackends(value string) error {
	for name := range strings.SplitSeq(value, ",") {
		if strings.TrimSpace(name) == "" {
			continue
		}
		if _, err := miniaudio.ParseBackend(name); err != nil {
			return err
		}
	}
	return nil
}

// configureEnvironmentVariables enables MAUDIO_ overrides for every key.
func configureEnvironmentVariables(v *viper.Viper) error {
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return bindEnvVars(v)
}
