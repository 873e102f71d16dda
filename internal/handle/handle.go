// Package handle owns opaque native pointers. A Handle is created once from a valid
// pointer, can be pinned for the duration of a native call, and is destroyed exactly
// once. Release waits for in-flight pins, so a pinned pointer is never destroyed under
// a running call.
package handle

import (
	"errors"
	"fmt"
	"sync"

	"github.com/tphakala/go-miniaudio/internal/native"
)

var (
	// ErrInvalidHandle is returned by Acquire for a zero or sentinel pointer.
	ErrInvalidHandle = errors.New("native handle is invalid")
	// ErrReleased is returned when pinning a handle that has already been released.
	ErrReleased = errors.New("native handle has been released")
)

// Observer is notified when a handle is acquired and when its destroy call runs.
type Observer interface {
	HandleAcquired(kind string)
	HandleReleased(kind string)
}

// Option configures a Handle.
type Option func(*Handle)

// WithObserver attaches o to the handle.
func WithObserver(o Observer) Option {
	return func(h *Handle) {
		h.observer = o
	}
}

// Handle is the exclusive owner of one native object.
//
// Pins take the read side of mu and Release takes the write side, so destroy is
// serialised after every pin that started before it. A goroutine must not pin the same
// handle twice in a nested fashion while another goroutine may call Release.
type Handle struct {
	kind     string
	destroy  func(native.Ptr)
	observer Observer

	mu       sync.RWMutex
	ptr      native.Ptr
	released bool
}

// Acquire wraps ptr. destroy is called exactly once, on the first Release.
func Acquire(kind string, ptr native.Ptr, destroy func(native.Ptr), opts ...Option) (*Handle, error) {
	if !ptr.Valid() {
		return nil, fmt.Errorf("%w: %s pointer %#x", ErrInvalidHandle, kind, uintptr(ptr))
	}
	if destroy == nil {
		return nil, fmt.Errorf("%w: %s has no destroy function", ErrInvalidHandle, kind)
	}

	h := &Handle{kind: kind, ptr: ptr, destroy: destroy}
	for _, opt := range opts {
		opt(h)
	}
	if h.observer != nil {
		h.observer.HandleAcquired(kind)
	}
	return h, nil
}

// Kind returns the object kind given to Acquire.
func (h *Handle) Kind() string {
	return h.kind
}

// Released reports whether Release has run.
func (h *Handle) Released() bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.released
}

// Release destroys the native object. Only the first call destroys and returns true;
// later calls are no-ops returning false.
func (h *Handle) Release() bool {
	h.mu.Lock()
	if h.released {
		h.mu.Unlock()
		return false
	}
	h.released = true
	ptr := h.ptr
	h.ptr = 0

	defer func() {
		h.mu.Unlock()
		if h.observer != nil {
			h.observer.HandleReleased(h.kind)
		}
	}()
	h.destroy(ptr)
	return true
}

// Pin returns the raw pointer and an unpin function. The handle cannot be released
// until unpin is called; unpin is safe to call more than once.
func (h *Handle) Pin() (native.Ptr, func(), error) {
	h.mu.RLock()
	if h.released {
		h.mu.RUnlock()
		return 0, nil, fmt.Errorf("%w: %s", ErrReleased, h.kind)
	}

	var once sync.Once
	return h.ptr, func() { once.Do(h.mu.RUnlock) }, nil
}

// With pins the handle for the duration of fn.
func (h *Handle) With(fn func(native.Ptr) error) error {
	ptr, unpin, err := h.Pin()
	if err != nil {
		return err
	}
	defer unpin()
	return fn(ptr)
}

func (h *Handle) String() string {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if h.released {
		return h.kind + "(released)"
	}
	return fmt.Sprintf("%s(%#x)", h.kind, uintptr(h.ptr))
}
