// Package scheduling converts between wall-clock durations and positions on the engine
// PCM frame clock.
package scheduling

import (
	"math"
	"math/bits"
	"time"
)

// FramesFromDuration converts d to a frame count at sampleRate. Negative durations
// clamp to zero; the result is rounded half away from zero.
func FramesFromDuration(d time.Duration, sampleRate uint32) uint64 {
	if d <= 0 || sampleRate == 0 {
		return 0
	}
	// Exact in nanoseconds: frames = round(ns * rate / 1e9).
	hi, lo := bits.Mul64(uint64(d), uint64(sampleRate))
	lo, carry := bits.Add64(lo, uint64(time.Second/2), 0)
	hi += carry
	if hi >= uint64(time.Second) {
		return math.MaxUint64
	}
	frames, _ := bits.Div64(hi, lo, uint64(time.Second))
	return frames
}

// AbsoluteFrame returns now advanced by d. Negative d resolves to now.
func AbsoluteFrame(now uint64, d time.Duration, sampleRate uint32) uint64 {
	return saturatingAdd(now, FramesFromDuration(d, sampleRate))
}

// FramesToSeconds converts frames to seconds. A zero sample rate reports 0.
func FramesToSeconds(frames uint64, sampleRate uint32) float64 {
	if sampleRate == 0 {
		return 0
	}
	return float64(frames) / float64(sampleRate)
}

// FramesToDuration converts frames to a duration. A zero sample rate reports 0.
func FramesToDuration(frames uint64, sampleRate uint32) time.Duration {
	secs := FramesToSeconds(frames, sampleRate)
	if secs >= float64(math.MaxInt64)/float64(time.Second) {
		return time.Duration(math.MaxInt64)
	}
	return time.Duration(math.Round(secs * float64(time.Second)))
}

// Progress returns cursor/length, or 0 for a zero length.
func Progress(cursor, length uint64) float64 {
	if length == 0 {
		return 0
	}
	return float64(cursor) / float64(length)
}

// FadeStartFrame returns the frame a fade of fadeFrames must begin to end at stop.
func FadeStartFrame(stop, fadeFrames uint64) uint64 {
	if fadeFrames >= stop {
		return 0
	}
	return stop - fadeFrames
}

// MillisecondsToFrames converts a millisecond count at sampleRate, rounding half up.
func MillisecondsToFrames(ms uint64, sampleRate uint32) uint64 {
	return uint64(math.Round(float64(ms) * float64(sampleRate) / 1000))
}

// FramesToMilliseconds converts frames at sampleRate to whole milliseconds, truncating.
func FramesToMilliseconds(frames uint64, sampleRate uint32) uint64 {
	if sampleRate == 0 {
		return 0
	}
	return frames * 1000 / uint64(sampleRate)
}

func saturatingAdd(a, b uint64) uint64 {
	if a > math.MaxUint64-b {
		return math.MaxUint64
	}
	return a + b
}
