package miniaudio

import (
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/tphakala/go-miniaudio/internal/callback"
	"github.com/tphakala/go-miniaudio/internal/handle"
	"github.com/tphakala/go-miniaudio/internal/logger"
	"github.com/tphakala/go-miniaudio/internal/native"
)

// Capture defaults used when NewCaptureDevice gets nil options.
const (
	DefaultCaptureSampleRate uint32 = 48000
	DefaultCaptureChannels   uint32 = 1
)

// CaptureDeviceOptions configures a capture device.
type CaptureDeviceOptions struct {
	// Context is borrowed and must outlive the device. nil lets the native layer pick a
	// backend.
	Context *Context
	// DeviceID selects a device by id. Blank selects the default device.
	DeviceID   string
	SampleRate uint32
	Channels   uint32
}

// DefaultCaptureDeviceOptions returns the options used for nil.
func DefaultCaptureDeviceOptions() CaptureDeviceOptions {
	return CaptureDeviceOptions{SampleRate: DefaultCaptureSampleRate, Channels: DefaultCaptureChannels}
}

// CaptureData is one block of captured audio. Samples is a copy that stays valid after
// the handler returns; handlers of the same block share it.
type CaptureData struct {
	// Samples holds interleaved float32 samples.
	Samples   []float32
	Channels  uint32
	Timestamp time.Time
}

// FrameCount returns the number of frames in Samples.
func (d CaptureData) FrameCount() uint32 {
	if d.Channels == 0 {
		return 0
	}
	return uint32(len(d.Samples)) / d.Channels
}

// CaptureHandler receives captured audio on the device thread. It must return quickly.
type CaptureHandler func(data CaptureData)

var captureRegistry = callback.NewRegistry[*CaptureDevice]("capture", hooks)

func onCaptureData(samples []float32, frameCount, channelCount uint32, userData uintptr) {
	d, ok := captureRegistry.Lookup(callback.Token(userData))
	if !ok {
		return
	}
	d.deliver(samples, frameCount, channelCount)
}

type captureEntry struct {
	id uint64
	fn CaptureHandler
}

// CaptureDevice records from an input device and fans the data out to OnData handlers.
type CaptureDevice struct {
	driver native.Driver
	h      *handle.Handle
	token  callback.Token
	opts   CaptureDeviceOptions
	log    logger.Logger

	closeOnce sync.Once

	mu       sync.RWMutex
	handlers []captureEntry
	nextID   uint64
}

// NewCaptureDevice opens a capture device. The device is created stopped.
func NewCaptureDevice(driver native.Driver, opts *CaptureDeviceOptions) (*CaptureDevice, error) {
	const op = "ma_capture_device_init"
	if driver == nil {
		return nil, argumentError(op, "driver is nil")
	}

	o := DefaultCaptureDeviceOptions()
	if opts != nil {
		o = *opts
		if o.SampleRate == 0 || o.Channels == 0 {
			return nil, argumentError(op, "sample rate and channels must be greater than zero")
		}
	}
	o.DeviceID = strings.TrimSpace(o.DeviceID)

	d := &CaptureDevice{driver: driver, opts: o, log: GetLogger().Module("capture")}
	d.token = captureRegistry.Register(d)
	// The token is dropped on every exit that does not hand out the device.
	created := false
	defer func() {
		if !created {
			captureRegistry.Unregister(d.token)
		}
	}()

	cfg := native.CaptureConfig{DeviceID: o.DeviceID, SampleRate: o.SampleRate, Channels: o.Channels}
	var (
		ptr native.Ptr
		r   native.Result
	)
	create := func() {
		ptr, r = driver.CaptureDeviceCreate(cfg, onCaptureData, uintptr(d.token))
	}
	if o.Context != nil {
		// The borrowed context stays pinned only across the create call.
		if err := pinned(o.Context.h, op, func(p native.Ptr) error {
			cfg.Context = p
			create()
			return nil
		}); err != nil {
			return nil, err
		}
	} else {
		create()
	}

	h, err := acquire(driver, "capture_device", op, ptr, r, driver.CaptureDeviceDestroy)
	if err != nil {
		return nil, err
	}
	created = true
	d.h = h
	d.log.Debug("capture device created",
		logger.String("device_id", o.DeviceID),
		logger.Uint64("sample_rate", uint64(o.SampleRate)),
		logger.Uint64("channels", uint64(o.Channels)))
	return d, nil
}

// Options returns the options the device was created with, defaults applied.
func (d *CaptureDevice) Options() CaptureDeviceOptions { return d.opts }

// Start starts capturing.
func (d *CaptureDevice) Start() error {
	return call(d.driver, d.h, "ma_device_start", d.driver.CaptureDeviceStart)
}

// Stop stops capturing.
func (d *CaptureDevice) Stop() error {
	return call(d.driver, d.h, "ma_device_stop", d.driver.CaptureDeviceStop)
}

// OnData subscribes fn to captured audio.
func (d *CaptureDevice) OnData(fn CaptureHandler) (Subscription, error) {
	const op = "capture_on_data"
	if d.h.Released() {
		return nil, disposedError("capture_device", op)
	}
	if fn == nil {
		return nil, argumentError(op, "handler is nil")
	}

	d.mu.Lock()
	d.nextID++
	id := d.nextID
	d.handlers = append(d.handlers, captureEntry{id: id, fn: fn})
	d.mu.Unlock()

	return &subscription{cancel: func() error {
		d.mu.Lock()
		defer d.mu.Unlock()
		d.handlers = slices.DeleteFunc(d.handlers, func(e captureEntry) bool { return e.id == id })
		return nil
	}}, nil
}

func (d *CaptureDevice) deliver(samples []float32, frameCount, channels uint32) {
	if samples == nil || channels == 0 {
		return
	}
	d.mu.RLock()
	handlers := slices.Clone(d.handlers)
	d.mu.RUnlock()
	if len(handlers) == 0 {
		return
	}

	n := min(int(frameCount)*int(channels), len(samples))
	n -= n % int(channels)
	data := CaptureData{
		Samples:   slices.Clone(samples[:n]),
		Channels:  channels,
		Timestamp: time.Now(),
	}
	for _, e := range handlers {
		callback.InvokeCounted(d.log, hooks, "capture.data", func() { e.fn(data) })
	}
	getMetrics().CaptureFrames(uint64(data.FrameCount()))
}

// Close stops and destroys the device, then frees its callback token. No handler runs
// after Close returns. It is safe to call more than once.
func (d *CaptureDevice) Close() error {
	d.closeOnce.Do(func() {
		d.h.Release()
		captureRegistry.Unregister(d.token)

		d.mu.Lock()
		d.handlers = nil
		d.mu.Unlock()
	})
	return nil
}
