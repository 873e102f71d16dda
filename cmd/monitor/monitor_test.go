package monitor

import (
	"context"
	"io"
	"slices"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/tphakala/go-miniaudio/internal/logger"
	"github.com/tphakala/go-miniaudio/internal/miniaudio"
	"github.com/tphakala/go-miniaudio/internal/native/softengine"
	"github.com/tphakala/go-miniaudio/internal/testutil"
)

func TestMain(m *testing.M) {
	miniaudio.SetLogger(quiet())
	goleak.VerifyTestMain(m)
}

func quiet() logger.Logger {
	return logger.NewSlogLogger(io.Discard, logger.LogLevelError, time.UTC)
}

func TestDBFS(t *testing.T) {
	t.Parallel()

	assert.InDelta(t, 0, DBFS(1), 1e-9)
	assert.InDelta(t, -6.0206, DBFS(0.5), 1e-4)
	assert.Equal(t, MinDBFS, DBFS(0))
	assert.Equal(t, MinDBFS, DBFS(1e-9), "levels below the floor are clamped")
}

func TestMeterSnapshotResets(t *testing.T) {
	t.Parallel()

	var m Meter
	m.Add([]float32{0.5, -0.5, 0.5, -0.5})
	m.Add([]float32{0.5, -1})

	l := m.Snapshot()
	assert.Equal(t, uint64(6), l.Samples)
	assert.InDelta(t, 0, l.Peak, 1e-9)
	// mean square (5*0.25 + 1) / 6
	assert.InDelta(t, DBFS(0.6124), l.RMS, 1e-3)

	empty := m.Snapshot()
	assert.Equal(t, Level{RMS: MinDBFS, Peak: MinDBFS}, empty)
}

// lineWriter hands every Write to the test goroutine.
type lineWriter chan string

func (w lineWriter) Write(p []byte) (int, error) {
	w <- string(p)
	return len(p), nil
}

func openCapture(t *testing.T) (*miniaudio.CaptureDevice, *softengine.ManualBackend) {
	t.Helper()
	mb := softengine.NewManualBackend(nil, nil)
	drv := softengine.New(softengine.WithBackendFactory(mb.Factory()), softengine.WithLogger(quiet()))
	dev, err := miniaudio.NewCaptureDevice(drv, &miniaudio.CaptureDeviceOptions{SampleRate: 1000, Channels: 1})
	require.NoError(t, err)
	t.Cleanup(func() { assert.NoError(t, dev.Close()) })
	return dev, mb
}

// pushUntilStarted pushes block once the capture device is running.
func pushUntilStarted(t *testing.T, mb *softengine.ManualBackend, block []float32) {
	t.Helper()
	deadline := time.Now().Add(testutil.DefaultTestTimeout)
	for time.Now().Before(deadline) {
		if dev := mb.Capture(); dev != nil && dev.Push(block) {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatal("capture device never started")
}

func TestRunPrintsLevels(t *testing.T) {
	dev, mb := openCapture(t)
	out := make(chan string, 4)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- Run(ctx, dev, 0, time.Hour, lineWriter(out)) }()

	pushUntilStarted(t, mb, slices.Repeat([]float32{0.5, -0.5}, 50))

	line := testutil.ReceiveWithTimeout(t, out, testutil.DefaultTestTimeout, "no level reported")
	assert.Equal(t, "rms   -6.0 dBFS  peak   -6.0 dBFS  (100 samples)\n", line)

	// Within the interval further blocks are only accumulated.
	require.True(t, mb.Capture().Push(slices.Repeat([]float32{0.1}, 10)))
	cancel()
	require.NoError(t, <-done)
	assert.Empty(t, out)
	assert.False(t, mb.Capture().Running(), "the device is stopped on return")
}

func TestRunStopsAfterDuration(t *testing.T) {
	dev, _ := openCapture(t)
	assert.NoError(t, Run(context.Background(), dev, 10*time.Millisecond, time.Millisecond, io.Discard))
}
