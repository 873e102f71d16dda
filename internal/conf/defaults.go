package conf

import (
	"time"

	"github.com/spf13/viper"

	"github.com/tphakala/go-miniaudio/internal/logger"
)

// Sets default values for the configuration.
func setDefaultConfig(v *viper.Viper) {
	v.SetDefault("debug", false)

	v.SetDefault("audio.backends", []string{})
	v.SetDefault("audio.playbackdevice", "")
	v.SetDefault("audio.capturedevice", "")
	v.SetDefault("audio.samplerate", 48000)
	v.SetDefault("audio.channels", 2)
	v.SetDefault("audio.periodframes", 0)
	v.SetDefault("audio.noautostart", false)
	v.SetDefault("audio.fallbacksamplerates", []uint32{44100})

	v.SetDefault("stream.bufferseconds", 0.5)
	v.SetDefault("stream.chunkmillis", 20)
	v.SetDefault("stream.retrydelay", 5*time.Millisecond)

	v.SetDefault("monitor.interval", 250*time.Millisecond)

	v.SetDefault("logging.default_level", logger.DefaultLogLevel)
	v.SetDefault("logging.timezone", "Local")
	v.SetDefault("logging.console.enabled", logger.DefaultConsoleEnabled)
	v.SetDefault("logging.console.level", logger.DefaultLogLevel)
	v.SetDefault("logging.file_output.enabled", logger.DefaultFileEnabled)
	v.SetDefault("logging.file_output.path", logger.DefaultLogPath)
	v.SetDefault("logging.file_output.level", logger.DefaultLogLevel)

	v.SetDefault("metrics.enabled", false)
	v.SetDefault("metrics.listen", "127.0.0.1:9464")

	v.SetDefault("sentry.enabled", false)
	v.SetDefault("sentry.dsn", "")
}
