// Package testutil provides shared helpers for tests that drive audio devices by hand.
package testutil

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// Common test timeout constants.
const (
	// DefaultTestTimeout is the standard timeout for async test operations.
	DefaultTestTimeout = 5 * time.Second

	// ShortTestTimeout is for operations expected to complete quickly.
	ShortTestTimeout = 1 * time.Second
)

// WaitForChannel waits for a signal on the channel or fails after timeout.
func WaitForChannel(t *testing.T, ch <-chan struct{}, timeout time.Duration, msg string) {
	t.Helper()
	select {
	case <-ch:
	case <-time.After(timeout):
		require.Fail(t, msg)
	}
}

// ReceiveWithTimeout returns the next value from ch or fails after timeout.
func ReceiveWithTimeout[T any](t *testing.T, ch <-chan T, timeout time.Duration, msg string) T {
	t.Helper()
	select {
	case v := <-ch:
		return v
	case <-time.After(timeout):
		require.Fail(t, msg)
		var zero T
		return zero
	}
}

// DriveUntil calls step about once a millisecond until done yields a value, and
// returns it. step stands in for a device clock, e.g. pulling a manual playback
// device. It fails after timeout.
func DriveUntil[T any](t *testing.T, done <-chan T, timeout time.Duration, step func()) T {
	t.Helper()
	deadline := time.After(timeout)
	for {
		select {
		case v := <-done:
			return v
		case <-deadline:
			require.Fail(t, "timed out driving the device")
			var zero T
			return zero
		default:
		}
		step()
		time.Sleep(time.Millisecond)
	}
}
