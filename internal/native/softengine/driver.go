// Package softengine is a pure-Go implementation of native.Driver. It keeps the engine
// frame clock, mixes memory, decoded and streamed sounds, applies fades and schedules,
// and fires end callbacks. Audio I/O is delegated to a DeviceBackend; without one the
// engine still renders offline through EngineReadPCMFrames.
//
// The engine does no resampling, no spatial attenuation and no pitch shifting. Pitch,
// position and direction are stored and reported back only.
package softengine

import (
	"sync"

	"github.com/tphakala/go-miniaudio/internal/logger"
	"github.com/tphakala/go-miniaudio/internal/native"
)

const (
	firstPtr native.Ptr = 0x10000
	ptrStep  native.Ptr = 0x10
)

// Option configures a Driver.
type Option func(*Driver)

// WithBackendFactory sets the factory used to open device backends for contexts and
// for device engines created without a context.
func WithBackendFactory(f BackendFactory) Option {
	return func(d *Driver) {
		d.factory = f
	}
}

// WithLogger sets the logger used for device errors.
func WithLogger(l logger.Logger) Option {
	return func(d *Driver) {
		d.log = l
	}
}

// Driver implements native.Driver. All engine and sound state is guarded by mu; end
// callbacks and device start/stop/close always run with mu released.
type Driver struct {
	factory BackendFactory
	log     logger.Logger

	mu      sync.Mutex
	objects map[native.Ptr]any
	next    native.Ptr
}

var _ native.Driver = (*Driver)(nil)

// New returns a Driver.
func New(opts ...Option) *Driver {
	d := &Driver{
		objects: make(map[native.Ptr]any),
		next:    firstPtr,
	}
	for _, opt := range opts {
		opt(d)
	}
	if d.log == nil {
		d.log = logger.Global().Module("softengine")
	}
	return d
}

// DescribeResult implements native.Driver.
func (d *Driver) DescribeResult(r native.Result) string {
	return native.Describe(r)
}

// Live returns the number of objects that have been created and not destroyed.
func (d *Driver) Live() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.objects)
}

// registerLocked stores obj and returns its new pointer. d.mu must be held.
func (d *Driver) registerLocked(obj any) native.Ptr {
	p := d.next
	d.next += ptrStep
	d.objects[p] = obj
	return p
}

func lookupLocked[T any](d *Driver, p native.Ptr) (T, bool) {
	obj, ok := d.objects[p].(T)
	return obj, ok
}

func lookup[T any](d *Driver, p native.Ptr) (T, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return lookupLocked[T](d, p)
}
