package callback

import (
	"bytes"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tphakala/go-miniaudio/internal/errors"
	"github.com/tphakala/go-miniaudio/internal/logger"
)

type fakeObserver struct {
	mu         sync.Mutex
	registered int
	released   int
	panics     map[string]int
}

func (f *fakeObserver) BridgeTokenRegistered(string) {
	f.mu.Lock()
	f.registered++
	f.mu.Unlock()
}

func (f *fakeObserver) BridgeTokenReleased(string) {
	f.mu.Lock()
	f.released++
	f.mu.Unlock()
}

func (f *fakeObserver) CallbackPanic(name string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.panics == nil {
		f.panics = make(map[string]int)
	}
	f.panics[name]++
}

func TestRegistryLifecycle(t *testing.T) {
	t.Parallel()

	obs := &fakeObserver{}
	r := NewRegistry[string]("sound", obs)

	a := r.Register("a")
	b := r.Register("b")
	assert.NotZero(t, a)
	assert.NotEqual(t, a, b)
	assert.Equal(t, 2, r.Len())

	got, ok := r.Lookup(a)
	require.True(t, ok)
	assert.Equal(t, "a", got)

	assert.True(t, r.Unregister(a))
	assert.False(t, r.Unregister(a), "second unregister is a no-op")
	_, ok = r.Lookup(a)
	assert.False(t, ok, "stale token resolves to nothing")

	c := r.Register("c")
	assert.NotEqual(t, a, c, "tokens are never reused")
	assert.Equal(t, 2, obs.registered-obs.released)
}

func TestRegistryConcurrentUse(t *testing.T) {
	t.Parallel()

	r := NewRegistry[int]("capture", nil)
	var wg sync.WaitGroup
	seen := sync.Map{}
	for i := range 64 {
		wg.Go(func() {
			tok := r.Register(i)
			_, dup := seen.LoadOrStore(tok, true)
			assert.False(t, dup)
			v, ok := r.Lookup(tok)
			assert.True(t, ok)
			assert.Equal(t, i, v)
			if i%2 == 0 {
				r.Unregister(tok)
			}
		})
	}
	wg.Wait()
	assert.Equal(t, 32, r.Len())
}

func TestLookupUnknownToken(t *testing.T) {
	t.Parallel()

	r := NewRegistry[*int]("sound", nil)
	v, ok := r.Lookup(0)
	assert.False(t, ok)
	assert.Nil(t, v)
}

func TestInvokeRecoversPanics(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	log := logger.NewSlogLogger(&buf, logger.LogLevelDebug, time.UTC)
	obs := &fakeObserver{}

	ran := 0
	handlers := []func(){
		func() { ran++ },
		func() { panic("subscriber exploded") },
		func() { ran++ },
	}
	recovered := 0
	for _, h := range handlers {
		if InvokeCounted(log, obs, "sound_ended", h) {
			recovered++
		}
	}

	assert.Equal(t, 2, ran, "later subscribers still run")
	assert.Equal(t, 1, recovered)
	assert.Equal(t, 1, obs.panics["sound_ended"])
	assert.Contains(t, buf.String(), "subscriber exploded")
	assert.Contains(t, buf.String(), "callback=sound_ended")
}

func TestInvokeWithoutLogger(t *testing.T) {
	t.Parallel()

	assert.NotPanics(t, func() {
		assert.True(t, Invoke(nil, "capture_data", func() { panic(42) }))
		assert.False(t, Invoke(nil, "capture_data", func() {}))
	})
}

func TestPanicErrorIsHighPriorityCallbackError(t *testing.T) {
	t.Parallel()

	err := panicError("capture_data", "bad frame")
	assert.Equal(t, "callback capture_data panicked: bad frame", err.Error())
	assert.True(t, errors.IsCategory(err, errors.CategoryCallback))
	assert.Equal(t, errors.PriorityHigh, err.GetPriority())
	assert.Equal(t, "callback", err.GetComponent())
	assert.Equal(t, "capture_data", err.GetContext()["callback"])
}
