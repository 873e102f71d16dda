package conf

import (
	"fmt"
	"net"
	"strings"
)

// ValidationError represents a collection of validation errors
type ValidationError struct {
	Errors []string
}

// Error returns a string representation of the validation errors
func (ve ValidationError) Error() string {
	return fmt.Sprintf("Validation errors: %v", ve.Errors)
}

var validLogLevels = map[string]bool{"trace": true, "debug": true, "info": true, "warn": true, "warning": true, "error": true}

// ValidateSettings validates the entire Settings struct
func ValidateSettings(settings *Settings) error {
	ve := ValidationError{}

	if err := validateAudioSettings(&settings.Audio); err != nil {
		ve.Errors = append(ve.Errors, err.Error())
	}
	if err := validateStreamSettings(&settings.Stream); err != nil {
		ve.Errors = append(ve.Errors, err.Error())
	}
	if settings.Monitor.Interval < 0 {
		ve.Errors = append(ve.Errors, "monitor interval must not be negative")
	}
	if level := strings.ToLower(settings.Logging.DefaultLevel); level != "" && !validLogLevels[level] {
		ve.Errors = append(ve.Errors, fmt.Sprintf("unknown log level %q", settings.Logging.DefaultLevel))
	}
	if settings.Metrics.Enabled {
		if _, _, err := net.SplitHostPort(settings.Metrics.Listen); err != nil {
			ve.Errors = append(ve.Errors, fmt.Sprintf("metrics listen address %q: %v", settings.Metrics.Listen, err))
		}
	}
	if settings.Sentry.Enabled && settings.Sentry.DSN == "" {
		ve.Errors = append(ve.Errors, "sentry is enabled but no DSN is set")
	}

	if len(ve.Errors) > 0 {
		return ve
	}
	return nil
}

func validateAudioSettings(a *AudioSettings) error {
	if _, err := a.ParsedBackends(); err != nil {
		return err
	}
	if a.SampleRate < 8000 || a.SampleRate > 384000 {
		return fmt.Errorf("audio sample rate %d is outside 8000-384000 Hz", a.SampleRate)
	}
	if a.Channels == 0 || a.Channels > 8 {
		return fmt.Errorf("audio channels must be between 1 and 8, got %d", a.Channels)
	}
	for _, r := range a.FallbackSampleRates {
		if r < 8000 || r > 384000 {
			return fmt.Errorf("fallback sample rate %d is outside 8000-384000 Hz", r)
		}
	}
	return nil
}

func validateStreamSettings(s *StreamSettings) error {
	if s.BufferSeconds <= 0 {
		return fmt.Errorf("stream buffer must be positive, got %v seconds", s.BufferSeconds)
	}
	if s.ChunkMillis <= 0 {
		return fmt.Errorf("stream chunk must be positive, got %d ms", s.ChunkMillis)
	}
	if float64(s.ChunkMillis)/1000 > s.BufferSeconds {
		return fmt.Errorf("stream chunk of %d ms does not fit a %v second buffer", s.ChunkMillis, s.BufferSeconds)
	}
	if s.RetryDelay <= 0 {
		return fmt.Errorf("stream retry delay must be positive")
	}
	return nil
}
