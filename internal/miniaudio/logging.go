package miniaudio

import (
	"sync"
	"sync/atomic"

	"github.com/tphakala/go-miniaudio/internal/logger"
	"github.com/tphakala/go-miniaudio/internal/observability/metrics"
)

var (
	loggerMu      sync.RWMutex
	serviceLogger logger.Logger

	globalMetrics atomic.Pointer[metrics.AudioMetrics]
)

// GetLogger returns the audio module logger.
func GetLogger() logger.Logger {
	loggerMu.RLock()
	l := serviceLogger
	loggerMu.RUnlock()
	if l != nil {
		return l
	}

	loggerMu.Lock()
	defer loggerMu.Unlock()
	if serviceLogger == nil {
		serviceLogger = logger.Global().Module("audio")
	}
	return serviceLogger
}

// SetLogger replaces the audio module logger. Passing nil restores the default.
func SetLogger(l logger.Logger) {
	loggerMu.Lock()
	defer loggerMu.Unlock()
	serviceLogger = l
}

// SetMetrics sets the collectors updated by handles, the callback bridge and streaming
// sounds. Passing nil disables metrics.
func SetMetrics(m *metrics.AudioMetrics) {
	globalMetrics.Store(m)
}

func getMetrics() *metrics.AudioMetrics {
	return globalMetrics.Load()
}

// metricsHooks forwards handle, bridge and panic events to the current metrics. Every
// AudioMetrics method accepts a nil receiver.
type metricsHooks struct{}

func (metricsHooks) HandleAcquired(kind string)        { getMetrics().HandleAcquired(kind) }
func (metricsHooks) HandleReleased(kind string)        { getMetrics().HandleReleased(kind) }
func (metricsHooks) BridgeTokenRegistered(kind string) { getMetrics().BridgeTokenRegistered(kind) }
func (metricsHooks) BridgeTokenReleased(kind string)   { getMetrics().BridgeTokenReleased(kind) }
func (metricsHooks) CallbackPanic(name string)         { getMetrics().CallbackPanic(name) }

var hooks metricsHooks
