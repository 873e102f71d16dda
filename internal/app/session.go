// Package app wires settings, logging, telemetry, metrics and the native driver into
// one session shared by the CLI commands.
package app

import (
	"context"
	stderrors "errors"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/tphakala/go-miniaudio/internal/buildinfo"
	"github.com/tphakala/go-miniaudio/internal/conf"
	"github.com/tphakala/go-miniaudio/internal/errors"
	"github.com/tphakala/go-miniaudio/internal/logger"
	"github.com/tphakala/go-miniaudio/internal/miniaudio"
	"github.com/tphakala/go-miniaudio/internal/native"
	"github.com/tphakala/go-miniaudio/internal/native/malgodevice"
	"github.com/tphakala/go-miniaudio/internal/native/softengine"
	"github.com/tphakala/go-miniaudio/internal/observability"
	"github.com/tphakala/go-miniaudio/internal/observability/metrics"
)

// ErrNotInitialized is returned by session operations before Init.
var ErrNotInitialized = errors.NewStd("session is not initialized")

// Option configures a Session.
type Option func(*Session)

// WithDriver replaces the malgo-backed driver, mainly for tests.
func WithDriver(d native.Driver) Option {
	return func(s *Session) {
		s.driver = d
	}
}

// Session holds everything a command needs to talk to the audio layer.
type Session struct {
	info     *buildinfo.Context
	settings *conf.Settings
	log      logger.Logger
	central  *logger.CentralLogger
	driver   native.Driver
	endpoint *observability.Endpoint
	sentryOn bool

	mu     sync.Mutex
	cancel context.CancelFunc
	group  *errgroup.Group
	closed bool
}

// NewSession returns an uninitialised session. Commands receive it when the command
// tree is built and use it after Init has run.
func NewSession(info *buildinfo.Context, opts ...Option) *Session {
	if info == nil {
		info = buildinfo.NewContext("", "")
	}
	s := &Session{info: info}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Init configures logging, telemetry, metrics and the driver from settings.
func (s *Session) Init(settings *conf.Settings) error {
	if settings == nil {
		return errors.Newf("settings are nil").
			Component("app").
			Category(errors.CategoryConfiguration).
			Build()
	}
	if settings.Debug {
		settings.Logging.DefaultLevel = string(logger.LogLevelDebug)
		if settings.Logging.Console != nil {
			settings.Logging.Console.Level = string(logger.LogLevelDebug)
		}
	}

	central, err := logger.NewCentralLogger(&settings.Logging)
	if err != nil {
		return errors.New(err).
			Component("app").
			Category(errors.CategoryConfiguration).
			Context("operation", "init_logging").
			Build()
	}
	logger.SetGlobal(central)

	session := logger.String("session", s.info.GetSessionID())
	s.central = central
	s.settings = settings
	s.log = central.Module("maudio").With(session)
	miniaudio.SetLogger(central.Module("audio").With(session))

	if settings.Sentry.Enabled {
		if err := initSentry(settings.Sentry, s.info); err != nil {
			s.log.Warn("error telemetry disabled", logger.Error(err))
		} else {
			s.sentryOn = true
		}
	}

	if settings.Metrics.Enabled {
		ep, err := observability.NewEndpoint(settings.Metrics.Listen, central.Module("metrics"))
		if err != nil {
			return errors.New(err).
				Component("app").
				Category(errors.CategoryConfiguration).
				Context("operation", "init_metrics").
				Build()
		}
		s.endpoint = ep
		miniaudio.SetMetrics(ep.Audio())
	}

	if s.driver == nil {
		s.driver = softengine.New(
			softengine.WithBackendFactory(malgodevice.Factory(central.Module("malgo"))),
			softengine.WithLogger(central.Module("softengine")),
		)
	}

	s.log.Debug("session initialized",
		logger.String("version", s.info.GetVersion()),
		logger.Bool("metrics", s.endpoint != nil),
		logger.Bool("sentry", s.sentryOn))
	return nil
}

// Run starts background services such as the metrics endpoint. It returns at once;
// Close stops them.
func (s *Session) Run(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.endpoint == nil || s.group != nil || s.closed {
		return
	}
	ctx, s.cancel = context.WithCancel(ctx)
	s.group, ctx = errgroup.WithContext(ctx)
	ep := s.endpoint
	s.group.Go(func() error {
		return ep.Run(ctx)
	})
}

// Close stops background services, flushes telemetry and detaches the audio layer
// from this session's logger and metrics. It is idempotent.
func (s *Session) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	cancel, group := s.cancel, s.group
	s.mu.Unlock()

	var errs []error
	if cancel != nil {
		cancel()
		if err := group.Wait(); err != nil {
			errs = append(errs, err)
		}
	}
	if s.endpoint != nil {
		miniaudio.SetMetrics(nil)
	}
	if s.sentryOn {
		flushSentry()
	}
	if s.central != nil {
		miniaudio.SetLogger(nil)
		if err := s.central.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return stderrors.Join(errs...)
}

// Info returns the build metadata.
func (s *Session) Info() *buildinfo.Context { return s.info }

// Settings returns the settings passed to Init.
func (s *Session) Settings() *conf.Settings { return s.settings }

// Logger returns the session logger.
func (s *Session) Logger() logger.Logger {
	if s.log == nil {
		return logger.Global().Module("maudio")
	}
	return s.log
}

// Driver returns the native driver.
func (s *Session) Driver() native.Driver { return s.driver }

// Metrics returns the audio metrics, or nil when metrics are disabled.
func (s *Session) Metrics() *metrics.AudioMetrics {
	if s.endpoint == nil {
		return nil
	}
	return s.endpoint.Audio()
}

func (s *Session) ready() error {
	if s.settings == nil || s.driver == nil {
		return ErrNotInitialized
	}
	return nil
}
