package app

import (
	"fmt"
	"time"

	"github.com/getsentry/sentry-go"

	"github.com/tphakala/go-miniaudio/internal/buildinfo"
	"github.com/tphakala/go-miniaudio/internal/conf"
	"github.com/tphakala/go-miniaudio/internal/errors"
)

const sentryFlushTimeout = 2 * time.Second

// initSentry starts the sentry client and routes enhanced errors to it.
func initSentry(cfg conf.SentrySettings, info *buildinfo.Context) error {
	err := sentry.Init(sentry.ClientOptions{
		Dsn:              cfg.DSN,
		SampleRate:       1.0,
		AttachStacktrace: false,
		Environment:      "production",
		// Keep the hostname out of events.
		ServerName: "",
		Release:    fmt.Sprintf("maudio@%s", info.GetVersion()),
	})
	if err != nil {
		return fmt.Errorf("sentry initialization failed: %w", err)
	}
	sentry.ConfigureScope(func(scope *sentry.Scope) {
		scope.SetTag("session", info.GetSessionID())
	})
	errors.SetTelemetryReporter(errors.NewSentryReporter(true))
	return nil
}

func flushSentry() {
	errors.SetTelemetryReporter(nil)
	sentry.Flush(sentryFlushTimeout)
}
