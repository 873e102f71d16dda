package miniaudio

import (
	"bytes"
	"slices"
	"strings"

	"github.com/tphakala/go-miniaudio/internal/handle"
	"github.com/tphakala/go-miniaudio/internal/logger"
	"github.com/tphakala/go-miniaudio/internal/native"
)

// DeviceInfo describes one enumerated device.
type DeviceInfo struct {
	Name      string
	Kind      DeviceKind
	IsDefault bool
	// ID is the backend specific device id accepted by EngineOptions.PlaybackDeviceID
	// and CaptureDeviceOptions.DeviceID.
	ID string
}

// IsCapture reports whether the device records audio.
func (d DeviceInfo) IsCapture() bool { return d.Kind == DeviceKindCapture }

// IsPlayback reports whether the device plays audio.
func (d DeviceInfo) IsPlayback() bool { return d.Kind == DeviceKindPlayback }

func (d DeviceInfo) String() string {
	if d.IsDefault {
		return d.Name + " [default]"
	}
	return d.Name
}

// Context owns a native audio context: the backend selection and device enumeration.
//
// A Context must outlive every Engine and CaptureDevice created from it.
type Context struct {
	driver   native.Driver
	h        *handle.Handle
	backends []Backend
}

// NewContext creates a context. Backends are tried in order; duplicates are dropped and
// an empty list lets the native layer choose.
func NewContext(driver native.Driver, backends ...Backend) (*Context, error) {
	if driver == nil {
		return nil, argumentError("context_create", "driver is nil")
	}

	var unique []Backend
	for _, b := range backends {
		if !slices.Contains(unique, b) {
			unique = append(unique, b)
		}
	}

	var (
		ptr native.Ptr
		r   native.Result
		op  string
	)
	if len(unique) == 0 {
		op = "ma_context_init"
		ptr, r = driver.ContextCreateDefault()
	} else {
		op = "ma_context_init_with_backends"
		ids := make([]int32, len(unique))
		for i, b := range unique {
			ids[i] = int32(b)
		}
		ptr, r = driver.ContextCreateWithBackends(ids)
	}

	h, err := acquire(driver, "context", op, ptr, r, driver.ContextDestroy)
	if err != nil {
		return nil, err
	}
	GetLogger().Module("context").Debug("context created", logger.Int("backends", len(unique)))
	return &Context{driver: driver, h: h, backends: unique}, nil
}

// PreferredBackends returns the de-duplicated backend order the context was created
// with. It does not report which backend the native layer selected.
func (c *Context) PreferredBackends() []Backend {
	return slices.Clone(c.backends)
}

// EnumerateDevices lists the devices of kind.
func (c *Context) EnumerateDevices(kind DeviceKind) ([]DeviceInfo, error) {
	const op = "ma_context_get_devices"
	if kind != DeviceKindPlayback && kind != DeviceKindCapture {
		return nil, argumentError(op, "unknown device kind %d", int32(kind))
	}

	var out []DeviceInfo
	err := pinned(c.h, op, func(p native.Ptr) error {
		count, r := c.driver.ContextGetDevices(p, native.DeviceKind(kind), nil)
		if err := checkResult(c.driver, op, r); err != nil {
			return err
		}
		if count == 0 {
			return nil
		}

		buf := make([]native.DeviceDescriptor, count)
		filled, r := c.driver.ContextGetDevices(p, native.DeviceKind(kind), buf)
		if err := checkResult(c.driver, op, r); err != nil {
			return err
		}
		out = make([]DeviceInfo, 0, min(filled, count))
		for i := range buf[:min(filled, count)] {
			out = append(out, deviceInfoFromDescriptor(&buf[i], kind))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func deviceInfoFromDescriptor(d *native.DeviceDescriptor, kind DeviceKind) DeviceInfo {
	return DeviceInfo{
		Name:      strings.ToValidUTF8(string(untilNUL(d.Name[:])), "�"),
		Kind:      kind,
		IsDefault: d.IsDefault != 0,
		ID:        string(untilNUL(d.ID[:])),
	}
}

func untilNUL(b []byte) []byte {
	if i := bytes.IndexByte(b, 0); i >= 0 {
		return b[:i]
	}
	return b
}

// Close destroys the native context. It is safe to call more than once.
func (c *Context) Close() error {
	c.h.Release()
	return nil
}

// Closed reports whether Close has run.
func (c *Context) Closed() bool {
	return c.h.Released()
}
