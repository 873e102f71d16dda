package tone

import (
	"context"
	"io"
	"math"
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

func testOptions() Options {
	return Options{
		Frequency:    100,
		Amplitude:    0.5,
		Duration:     100 * time.Millisecond,
		Buffer:       40 * time.Millisecond,
		Chunk:        10 * time.Millisecond,
		RetryDelay:   time.Millisecond,
		PollInterval: time.Millisecond,
	}
}

func TestGeneratorFillsWholeFrames(t *testing.T) {
	t.Parallel()

	g := NewGenerator(250, 1, 1000, 2)
	buf := make([]float32, 9)
	assert.Equal(t, 4, g.Fill(buf))

	want := []float32{0, 0, 1, 1, 0, 0, -1, -1}
	for i, w := range want {
		assert.InDelta(t, w, buf[i], 1e-6, "sample %d", i)
	}
	assert.Zero(t, buf[8], "a trailing partial frame is left untouched")
}

func TestOptionsValidate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		mutate func(*Options)
	}{
		{"zero frequency", func(o *Options) { o.Frequency = 0 }},
		{"loud", func(o *Options) { o.Amplitude = 1.5 }},
		{"no duration", func(o *Options) { o.Duration = 0 }},
		{"chunk larger than buffer", func(o *Options) { o.Chunk = time.Second }},
		{"no retry delay", func(o *Options) { o.RetryDelay = 0 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			opts := testOptions()
			tt.mutate(&opts)
			assert.Error(t, opts.validate())
		})
	}
	assert.NoError(t, testOptions().validate())
}

// TestRunStreamsWholeTone pulls the manual playback device until Run returns and
// checks the energy of everything played. Underruns only add silence.
func TestRunStreamsWholeTone(t *testing.T) {
	mb := softengine.NewManualBackend(nil, nil)
	drv := softengine.New(softengine.WithBackendFactory(mb.Factory()), softengine.WithLogger(quiet()))
	engine, err := miniaudio.NewEngine(drv, &miniaudio.EngineOptions{SampleRate: 1000, Channels: 1})
	require.NoError(t, err)
	defer func() { assert.NoError(t, engine.Close()) }()

	done := make(chan error, 1)
	go func() {
		done <- Run(context.Background(), engine, testOptions(), quiet())
	}()

	var energy float64
	var peak float32
	err = testutil.DriveUntil(t, done, 10*time.Second, func() {
		for _, v := range mb.Playback().Pull(8) {
			energy += float64(v) * float64(v)
			peak = max(peak, float32(math.Abs(float64(v))))
		}
	})
	require.NoError(t, err)
	// Ten full periods of a 0.5 sine: 100 * 0.25 / 2.
	assert.InDelta(t, 12.5, energy, 0.01)
	assert.InDelta(t, 0.5, peak, 0.01)
}

func TestRunStopsOnCancel(t *testing.T) {
	drv := softengine.New(softengine.WithBackendFactory(softengine.NewManualBackend(nil, nil).Factory()), softengine.WithLogger(quiet()))
	engine, err := miniaudio.NewEngine(drv, &miniaudio.EngineOptions{SampleRate: 1000, Channels: 1})
	require.NoError(t, err)
	defer func() { assert.NoError(t, engine.Close()) }()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	// Nothing pulls the device, so the buffer fills and the producer waits until the
	// deadline.
	err = Run(ctx, engine, testOptions(), quiet())
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
