// Package callback bridges native callbacks back to Go objects. Native code only ever
// sees an integer Token; the Registry maps it to the owning object for as long as the
// owner can still receive callbacks.
package callback

import (
	"sync"
	"sync/atomic"
)

// Token is the user-data value handed to native code. Zero is never issued.
type Token uintptr

// TokenObserver is notified when tokens are registered and released.
type TokenObserver interface {
	BridgeTokenRegistered(kind string)
	BridgeTokenReleased(kind string)
}

// Registry maps tokens to owners of type T. Lookup is safe from any goroutine,
// including native callback threads.
type Registry[T any] struct {
	kind     string
	observer TokenObserver

	next    atomic.Uint64
	mu      sync.RWMutex
	entries map[Token]T
}

// NewRegistry returns an empty registry. kind labels the owners for metrics.
func NewRegistry[T any](kind string, observer TokenObserver) *Registry[T] {
	return &Registry[T]{
		kind:     kind,
		observer: observer,
		entries:  make(map[Token]T),
	}
}

// Register stores owner and returns its token. Tokens are never reused.
func (r *Registry[T]) Register(owner T) Token {
	tok := Token(r.next.Add(1))

	r.mu.Lock()
	r.entries[tok] = owner
	r.mu.Unlock()

	if r.observer != nil {
		r.observer.BridgeTokenRegistered(r.kind)
	}
	return tok
}

// Lookup resolves tok. A stale or unknown token reports false.
func (r *Registry[T]) Lookup(tok Token) (T, bool) {
	r.mu.RLock()
	owner, ok := r.entries[tok]
	r.mu.RUnlock()
	return owner, ok
}

// Unregister removes tok and reports whether it was present.
func (r *Registry[T]) Unregister(tok Token) bool {
	r.mu.Lock()
	_, ok := r.entries[tok]
	delete(r.entries, tok)
	r.mu.Unlock()

	if ok && r.observer != nil {
		r.observer.BridgeTokenReleased(r.kind)
	}
	return ok
}

// Len returns the number of registered tokens.
func (r *Registry[T]) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entries)
}
