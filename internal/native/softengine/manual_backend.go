package softengine

import (
	"fmt"
	"slices"
	"sync"

	"github.com/tphakala/go-miniaudio/internal/errors"
	"github.com/tphakala/go-miniaudio/internal/native"
)

// ErrDeviceClosed is returned when starting a ManualDevice after Close.
var ErrDeviceClosed = errors.NewStd("device is closed")

// ManualBackend is a DeviceBackend whose devices have no clock of their own. Playback
// devices render when Pull is called and capture devices deliver when Push is called,
// which makes device engines and capture devices deterministic in tests and headless
// runs.
type ManualBackend struct {
	mu        sync.Mutex
	playback  []DeviceInfo
	capture   []DeviceInfo
	devices   []*ManualDevice
	requested [][]int32
	closes    int
}

// NewManualBackend returns a backend exposing the given devices. A nil list adds a
// single default device of that kind.
func NewManualBackend(playback, capture []DeviceInfo) *ManualBackend {
	if playback == nil {
		playback = []DeviceInfo{{Name: "Manual Playback", ID: "manual-out", IsDefault: true}}
	}
	if capture == nil {
		capture = []DeviceInfo{{Name: "Manual Capture", ID: "manual-in", IsDefault: true}}
	}
	return &ManualBackend{playback: playback, capture: capture}
}

// Factory returns a BackendFactory that always yields b and records the requested
// backend order.
func (b *ManualBackend) Factory() BackendFactory {
	return func(backends []int32) (DeviceBackend, error) {
		b.mu.Lock()
		defer b.mu.Unlock()
		b.requested = append(b.requested, slices.Clone(backends))
		return b, nil
	}
}

// Requested returns the backend lists passed to the factory, in call order.
func (b *ManualBackend) Requested() [][]int32 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return slices.Clone(b.requested)
}

// Devices implements DeviceBackend.
func (b *ManualBackend) Devices(kind native.DeviceKind) ([]DeviceInfo, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if kind == native.DeviceKindCapture {
		return slices.Clone(b.capture), nil
	}
	return slices.Clone(b.playback), nil
}

// OpenPlayback implements DeviceBackend.
func (b *ManualBackend) OpenPlayback(cfg DeviceConfig, render RenderFunc) (Device, error) {
	dev, err := b.open(native.DeviceKindPlayback, cfg, render, nil)
	if err != nil {
		return nil, err
	}
	return dev, nil
}

// OpenCapture implements DeviceBackend.
func (b *ManualBackend) OpenCapture(cfg DeviceConfig, deliver CaptureFunc) (Device, error) {
	dev, err := b.open(native.DeviceKindCapture, cfg, nil, deliver)
	if err != nil {
		return nil, err
	}
	return dev, nil
}

func (b *ManualBackend) open(kind native.DeviceKind, cfg DeviceConfig, render RenderFunc, deliver CaptureFunc) (*ManualDevice, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	infos := b.playback
	if kind == native.DeviceKindCapture {
		infos = b.capture
	}
	if cfg.DeviceID != "" && !slices.ContainsFunc(infos, func(i DeviceInfo) bool { return i.ID == cfg.DeviceID }) {
		return nil, fmt.Errorf("%w: %q", ErrDeviceNotFound, cfg.DeviceID)
	}

	dev := &ManualDevice{kind: kind, cfg: cfg, render: render, deliver: deliver}
	b.devices = append(b.devices, dev)
	return dev, nil
}

// Close implements DeviceBackend. The backend stays usable; Closes counts the calls.
func (b *ManualBackend) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.closes++
	return nil
}

// Closes returns how many times Close has been called.
func (b *ManualBackend) Closes() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.closes
}

// Playback returns the most recently opened playback device, or nil.
func (b *ManualBackend) Playback() *ManualDevice {
	return b.last(native.DeviceKindPlayback)
}

// Capture returns the most recently opened capture device, or nil.
func (b *ManualBackend) Capture() *ManualDevice {
	return b.last(native.DeviceKindCapture)
}

func (b *ManualBackend) last(kind native.DeviceKind) *ManualDevice {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, dev := range slices.Backward(b.devices) {
		if dev.kind == kind {
			return dev
		}
	}
	return nil
}

// ManualDevice is a device opened on a ManualBackend.
//
// mu is held while a callback runs, so Stop and Close wait for an in-flight Pull or
// Push. Calling Stop or Close from inside a callback deadlocks.
type ManualDevice struct {
	kind    native.DeviceKind
	cfg     DeviceConfig
	render  RenderFunc
	deliver CaptureFunc

	mu      sync.Mutex
	started bool
	closed  bool
}

// Config returns the configuration the device was opened with.
func (m *ManualDevice) Config() DeviceConfig {
	return m.cfg
}

// Running reports whether the device is started and not closed.
func (m *ManualDevice) Running() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.started && !m.closed
}

// Closed reports whether Close has been called.
func (m *ManualDevice) Closed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed
}

// Pull renders frames frames from a started playback device. It returns nil when the
// device is not running.
func (m *ManualDevice) Pull(frames uint32) []float32 {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.started || m.closed || m.render == nil {
		return nil
	}
	out := make([]float32, int(frames)*int(m.Channels()))
	m.render(out, frames)
	return out
}

// Push delivers interleaved samples to a started capture device and reports whether
// the callback ran.
func (m *ManualDevice) Push(samples []float32) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.started || m.closed || m.deliver == nil || m.Channels() == 0 {
		return false
	}
	m.deliver(samples, uint32(len(samples))/m.Channels())
	return true
}

// Start implements Device.
func (m *ManualDevice) Start() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return ErrDeviceClosed
	}
	m.started = true
	return nil
}

// Stop implements Device.
func (m *ManualDevice) Stop() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.started = false
	return nil
}

// Close implements Device.
func (m *ManualDevice) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.started = false
	m.closed = true
	return nil
}

// SampleRate implements Device.
func (m *ManualDevice) SampleRate() uint32 {
	return m.cfg.SampleRate
}

// Channels implements Device.
func (m *ManualDevice) Channels() uint32 {
	return m.cfg.Channels
}
