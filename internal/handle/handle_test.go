package handle

import (
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/tphakala/go-miniaudio/internal/native"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type countingObserver struct {
	acquired atomic.Int32
	released atomic.Int32
}

func (o *countingObserver) HandleAcquired(string) { o.acquired.Add(1) }
func (o *countingObserver) HandleReleased(string) { o.released.Add(1) }

func TestAcquireRejectsInvalidPointers(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		ptr  native.Ptr
	}{
		{"zero", 0},
		{"all ones", native.InvalidPtr},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			called := false
			h, err := Acquire("engine", tt.ptr, func(native.Ptr) { called = true })
			require.ErrorIs(t, err, ErrInvalidHandle)
			assert.Nil(t, h)
			assert.False(t, called)
		})
	}
}

func TestAcquireRequiresDestroy(t *testing.T) {
	t.Parallel()

	_, err := Acquire("engine", 0x10, nil)
	require.ErrorIs(t, err, ErrInvalidHandle)
}

func TestReleaseDestroysExactlyOnce(t *testing.T) {
	t.Parallel()

	var destroyed atomic.Int32
	var got native.Ptr
	obs := &countingObserver{}
	h, err := Acquire("sound", 0x1234, func(p native.Ptr) {
		got = p
		destroyed.Add(1)
	}, WithObserver(obs))
	require.NoError(t, err)
	assert.Equal(t, int32(1), obs.acquired.Load())

	const callers = 16
	var wins atomic.Int32
	var wg sync.WaitGroup
	for range callers {
		wg.Go(func() {
			if h.Release() {
				wins.Add(1)
			}
		})
	}
	wg.Wait()

	assert.Equal(t, int32(1), destroyed.Load())
	assert.Equal(t, int32(1), wins.Load(), "exactly one caller observes the destroy")
	assert.Equal(t, native.Ptr(0x1234), got)
	assert.True(t, h.Released())
	assert.Equal(t, int32(1), obs.released.Load())
	assert.False(t, h.Release())
}

func TestPinAfterReleaseFails(t *testing.T) {
	t.Parallel()

	h, err := Acquire("context", 0x1, func(native.Ptr) {})
	require.NoError(t, err)
	h.Release()

	_, _, err = h.Pin()
	require.ErrorIs(t, err, ErrReleased)

	called := false
	err = h.With(func(native.Ptr) error {
		called = true
		return nil
	})
	require.ErrorIs(t, err, ErrReleased)
	assert.False(t, called)
	assert.Equal(t, "context(released)", h.String())
}

func TestReleaseWaitsForPins(t *testing.T) {
	t.Parallel()

	var destroyed atomic.Bool
	h, err := Acquire("engine", 0x42, func(native.Ptr) { destroyed.Store(true) })
	require.NoError(t, err)

	ptr, unpin, err := h.Pin()
	require.NoError(t, err)
	assert.Equal(t, native.Ptr(0x42), ptr)

	done := make(chan struct{})
	go func() {
		h.Release()
		close(done)
	}()

	select {
	case <-done:
		t.Fatal("Release returned while the handle was pinned")
	case <-time.After(50 * time.Millisecond):
	}
	assert.False(t, destroyed.Load())

	unpin()
	unpin() // idempotent
	<-done
	assert.True(t, destroyed.Load())
}

func TestWithUnpinsOnErrorAndPanic(t *testing.T) {
	t.Parallel()

	h, err := Acquire("sound", 0x7, func(native.Ptr) {})
	require.NoError(t, err)

	sentinel := errors.New("native failure")
	err = h.With(func(native.Ptr) error { return sentinel })
	require.ErrorIs(t, err, sentinel)

	assert.Panics(t, func() {
		_ = h.With(func(native.Ptr) error { panic("boom") })
	})

	// Both exits must have unpinned, otherwise Release would block forever.
	assert.True(t, h.Release())
}

func TestDestroyPanicStillMarksReleased(t *testing.T) {
	t.Parallel()

	h, err := Acquire("sound", 0x9, func(native.Ptr) { panic("native crash") })
	require.NoError(t, err)

	assert.Panics(t, func() { h.Release() })
	assert.True(t, h.Released())
	assert.False(t, h.Release())
}

func TestStringAndKind(t *testing.T) {
	t.Parallel()

	h, err := Acquire("engine", 0xff, func(native.Ptr) {})
	require.NoError(t, err)
	assert.Equal(t, "engine", h.Kind())
	assert.Equal(t, "engine(0xff)", h.String())
}
