package miniaudio

import (
	"io"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/tphakala/go-miniaudio/internal/logger"
	"github.com/tphakala/go-miniaudio/internal/native/softengine"
	"github.com/tphakala/go-miniaudio/internal/observability/metrics"
)

func TestMain(m *testing.M) {
	SetLogger(quietLogger())
	goleak.VerifyTestMain(m)
}

func quietLogger() logger.Logger {
	return logger.NewSlogLogger(io.Discard, logger.LogLevelError, time.UTC)
}

func newDriver() *softengine.Driver {
	return softengine.New(softengine.WithLogger(quietLogger()))
}

// newOfflineEngine returns a device-less engine closed at the end of the test.
func newOfflineEngine(t *testing.T, rate, channels uint32) *Engine {
	t.Helper()
	e, err := NewEngine(newDriver(), &EngineOptions{NoDevice: true, SampleRate: rate, Channels: channels})
	require.NoError(t, err)
	t.Cleanup(func() { _ = e.Close() })
	return e
}

func newPCMSound(t *testing.T, e *Engine, samples []float32, flags SoundInitFlags) *Sound {
	t.Helper()
	s, err := e.NewSoundFromPCMFrames(samples, 1, 1000, flags)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func renderFrames(t *testing.T, e *Engine, frames int) []float32 {
	t.Helper()
	ch, err := e.Channels()
	require.NoError(t, err)
	out := make([]float32, frames*int(ch))
	n, err := e.ReadPCMFrames(out)
	require.NoError(t, err)
	require.Equal(t, uint64(frames), n)
	return out
}

// withMetrics installs fresh metrics for the duration of a non-parallel test.
func withMetrics(t *testing.T) *prometheus.Registry {
	t.Helper()
	reg := prometheus.NewRegistry()
	m, err := metrics.NewAudioMetrics(reg)
	require.NoError(t, err)
	SetMetrics(m)
	t.Cleanup(func() { SetMetrics(nil) })
	return reg
}

// metricValue sums every series of the named metric family.
func metricValue(t *testing.T, reg *prometheus.Registry, name string) float64 {
	t.Helper()
	families, err := reg.Gather()
	require.NoError(t, err)
	var sum float64
	for _, f := range families {
		if f.GetName() != name {
			continue
		}
		for _, m := range f.GetMetric() {
			switch {
			case m.GetCounter() != nil:
				sum += m.GetCounter().GetValue()
			case m.GetGauge() != nil:
				sum += m.GetGauge().GetValue()
			}
		}
	}
	return sum
}
