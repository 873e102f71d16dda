package play

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"slices"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/tphakala/go-miniaudio/internal/logger"
	"github.com/tphakala/go-miniaudio/internal/miniaudio"
	"github.com/tphakala/go-miniaudio/internal/native/softengine"
	"github.com/tphakala/go-miniaudio/internal/native/softengine/decoders"
	"github.com/tphakala/go-miniaudio/internal/testutil"
)

func TestMain(m *testing.M) {
	miniaudio.SetLogger(quiet())
	goleak.VerifyTestMain(m)
}

func quiet() logger.Logger {
	return logger.NewSlogLogger(io.Discard, logger.LogLevelError, time.UTC)
}

// writeClip writes frames mono samples of value at 1000 Hz.
func writeClip(t *testing.T, frames int, value float32) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "clip.wav")
	f, err := os.Create(path)
	require.NoError(t, err)
	require.NoError(t, decoders.EncodeWAV(f, slices.Repeat([]float32{value}, frames), 1, 1000))
	require.NoError(t, f.Close())
	return path
}

func offlineEngine(t *testing.T) *miniaudio.Engine {
	t.Helper()
	engine, err := miniaudio.NewEngine(softengine.New(softengine.WithLogger(quiet())), &miniaudio.EngineOptions{
		SampleRate: 1000,
		Channels:   1,
		NoDevice:   true,
	})
	require.NoError(t, err)
	t.Cleanup(func() { assert.NoError(t, engine.Close()) })
	return engine
}

func TestRenderSchedulesStartAndFades(t *testing.T) {
	t.Parallel()

	engine := offlineEngine(t)
	clip := writeClip(t, 20, 0.5)

	out, err := Render(engine, clip, Options{
		Delay:   5 * time.Millisecond,
		FadeIn:  4 * time.Millisecond,
		FadeOut: 4 * time.Millisecond,
		Volume:  1,
		Tail:    3 * time.Millisecond,
	})
	require.NoError(t, err)

	want := []float32{
		0, 0, 0, 0, 0, // delay
		0, 0.125, 0.25, 0.375, // fade in
		0.5, 0.5, 0.5, 0.5, 0.5, 0.5, 0.5, 0.5, 0.5, 0.5, 0.5, 0.5, 0.5,
		0.375, 0.25, 0.125, // fade out, stopping at frame 25
		0, 0, 0, // tail
	}
	require.Len(t, out, len(want))
	for i := range want {
		assert.InDelta(t, want[i], out[i], 1e-3, "frame %d", i)
	}
}

func TestRenderAppliesVolume(t *testing.T) {
	t.Parallel()

	engine := offlineEngine(t)
	out, err := Render(engine, writeClip(t, 10, 0.5), Options{Volume: 0.5})
	require.NoError(t, err)
	require.Len(t, out, 10)
	for _, v := range out {
		assert.InDelta(t, 0.25, v, 1e-3)
	}
}

func TestRenderToFileWritesWav(t *testing.T) {
	t.Parallel()

	engine := offlineEngine(t)
	dst := filepath.Join(t.TempDir(), "out.wav")
	require.NoError(t, RenderToFile(engine, writeClip(t, 50, 0.25), dst, Options{Volume: 1, Tail: 10 * time.Millisecond}, quiet()))

	pcm, err := decoders.DecodeFile(dst)
	require.NoError(t, err)
	assert.Equal(t, uint32(1000), pcm.SampleRate)
	assert.Equal(t, uint32(1), pcm.Channels)
	assert.Equal(t, uint64(60), pcm.Frames())
	assert.InDelta(t, 0.25, pcm.Samples[0], 1e-3)
	assert.InDelta(t, 0, pcm.Samples[59], 1e-3)
}

func TestScheduleValidates(t *testing.T) {
	t.Parallel()

	engine := offlineEngine(t)
	clip := writeClip(t, 10, 0.5)

	tests := []struct {
		name string
		opts Options
	}{
		{"fades longer than the clip", Options{Volume: 1, FadeIn: 6 * time.Millisecond, FadeOut: 6 * time.Millisecond}},
		{"negative delay", Options{Volume: 1, Delay: -time.Millisecond}},
		{"negative volume", Options{Volume: -1}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Schedule(engine, clip, tt.opts)
			assert.Error(t, err)
		})
	}

	_, err := Schedule(engine, filepath.Join(t.TempDir(), "missing.wav"), Options{Volume: 1})
	assert.ErrorIs(t, err, miniaudio.ErrConstruction)
}

func TestPlayReturnsAfterScheduledStop(t *testing.T) {
	mb := softengine.NewManualBackend(nil, nil)
	drv := softengine.New(softengine.WithBackendFactory(mb.Factory()), softengine.WithLogger(quiet()))
	engine, err := miniaudio.NewEngine(drv, &miniaudio.EngineOptions{SampleRate: 1000, Channels: 1})
	require.NoError(t, err)
	defer func() { assert.NoError(t, engine.Close()) }()

	clip := writeClip(t, 40, 0.5)
	done := make(chan error, 1)
	go func() {
		done <- Play(context.Background(), engine, clip, Options{
			Volume:       1,
			FadeOut:      10 * time.Millisecond,
			PollInterval: time.Millisecond,
		}, quiet())
	}()

	err = testutil.DriveUntil(t, done, 10*time.Second, func() { mb.Playback().Pull(8) })
	require.NoError(t, err)
}

func TestPlayInterrupted(t *testing.T) {
	drv := softengine.New(softengine.WithBackendFactory(softengine.NewManualBackend(nil, nil).Factory()), softengine.WithLogger(quiet()))
	engine, err := miniaudio.NewEngine(drv, &miniaudio.EngineOptions{SampleRate: 1000, Channels: 1})
	require.NoError(t, err)
	defer func() { assert.NoError(t, engine.Close()) }()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.NoError(t, Play(ctx, engine, writeClip(t, 40, 0.5), Options{Volume: 1, PollInterval: time.Millisecond}, quiet()))
}
