package scheduling

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestFramesFromDuration(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		d    time.Duration
		rate uint32
		want uint64
	}{
		{"one second", time.Second, 48000, 48000},
		{"half second", 500 * time.Millisecond, 44100, 22050},
		{"negative clamps", -2 * time.Second, 48000, 0},
		{"zero", 0, 48000, 0},
		{"zero rate", time.Second, 0, 0},
		{"rounds half away from zero", 250 * time.Millisecond, 2, 1},
		{"rounds down below half", 200 * time.Millisecond, 2, 0},
		{"fade length", 1500 * time.Millisecond, 48000, 72000},
		{"exact tie", 1500 * time.Microsecond, 1000, 2},
		{"tie at 44.1k", 500 * time.Microsecond, 44100, 22},
		{"just below tie", 1499999 * time.Nanosecond, 1000, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, FramesFromDuration(tt.d, tt.rate))
		})
	}
}

func TestAbsoluteFrame(t *testing.T) {
	t.Parallel()

	assert.Equal(t, uint64(1000+48000), AbsoluteFrame(1000, time.Second, 48000))
	assert.Equal(t, uint64(1000), AbsoluteFrame(1000, -time.Second, 48000), "negative offset resolves to now")
	assert.Equal(t, uint64(math.MaxUint64), AbsoluteFrame(math.MaxUint64-1, time.Second, 48000))
}

func TestFramesToSecondsAndDuration(t *testing.T) {
	t.Parallel()

	assert.InDelta(t, 1.5, FramesToSeconds(72000, 48000), 1e-12)
	assert.Zero(t, FramesToSeconds(72000, 0))
	assert.Equal(t, 1500*time.Millisecond, FramesToDuration(72000, 48000))
	assert.Zero(t, FramesToDuration(10, 0))
	assert.Equal(t, time.Duration(math.MaxInt64), FramesToDuration(math.MaxUint64, 1))
}

func TestProgress(t *testing.T) {
	t.Parallel()

	assert.Zero(t, Progress(10, 0))
	assert.InDelta(t, 0.25, Progress(25, 100), 1e-12)
	assert.InDelta(t, 1.0, Progress(100, 100), 1e-12)
}

func TestFadeStartFrame(t *testing.T) {
	t.Parallel()

	assert.Equal(t, uint64(96000-72000), FadeStartFrame(96000, 72000))
	assert.Equal(t, uint64(0), FadeStartFrame(1000, 5000), "saturates at zero")
	assert.Equal(t, uint64(1000), FadeStartFrame(1000, 0))
}

func TestMillisecondConversions(t *testing.T) {
	t.Parallel()

	assert.Equal(t, uint64(48000), MillisecondsToFrames(1000, 48000))
	assert.Equal(t, uint64(441), MillisecondsToFrames(10, 44100))
	assert.Equal(t, uint64(1000), FramesToMilliseconds(48000, 48000))
	assert.Equal(t, uint64(0), FramesToMilliseconds(48000, 0))
	assert.Equal(t, uint64(22), FramesToMilliseconds(1000, 44100))
}
