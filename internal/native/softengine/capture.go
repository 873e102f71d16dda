package softengine

import (
	"github.com/tphakala/go-miniaudio/internal/errors"
	"github.com/tphakala/go-miniaudio/internal/logger"
	"github.com/tphakala/go-miniaudio/internal/native"
)

type captureObj struct {
	device       Device
	ownedBackend DeviceBackend
	channels     uint32
	scratch      []float32
}

// deliver copies the backend buffer into the reused scratch slice and hands it to cb.
func (c *captureObj) deliver(cb native.CaptureDataCallback, userData uintptr) CaptureFunc {
	return func(in []float32, frames uint32) {
		ch := c.channels
		n := min(int(frames), len(in)/int(ch)) * int(ch)
		if n == 0 {
			return
		}
		if cap(c.scratch) < n {
			c.scratch = make([]float32, n)
		}
		buf := c.scratch[:n]
		copy(buf, in)
		cb(buf, uint32(n)/ch, ch, userData)
	}
}

// CaptureDeviceCreate implements native.Driver.
func (d *Driver) CaptureDeviceCreate(cfg native.CaptureConfig, cb native.CaptureDataCallback, userData uintptr) (native.Ptr, native.Result) {
	if cb == nil || cfg.SampleRate == 0 || cfg.Channels == 0 {
		return 0, native.ResultInvalidArgs
	}

	obj := &captureObj{channels: cfg.Channels}
	var backend DeviceBackend
	switch {
	case cfg.Context != 0:
		ctx, ok := lookup[*contextObj](d, cfg.Context)
		if !ok {
			return 0, native.ResultInvalidArgs
		}
		backend = ctx.backend
	case d.factory != nil:
		b, err := d.factory(nil)
		if err != nil {
			d.log.Warn("device backend unavailable", logger.Error(err))
			return 0, native.ResultNoBackend
		}
		backend = b
		obj.ownedBackend = b
	}
	if backend == nil {
		return 0, native.ResultNoBackend
	}

	dev, err := backend.OpenCapture(DeviceConfig{
		DeviceID:   cfg.DeviceID,
		SampleRate: cfg.SampleRate,
		Channels:   cfg.Channels,
	}, obj.deliver(cb, userData))
	if err != nil {
		obj.closeBackend(d.log)
		d.log.Warn("capture device open failed",
			logger.String("device_id", cfg.DeviceID),
			logger.Error(err))
		if errors.Is(err, ErrDeviceNotFound) {
			return 0, native.ResultNoDevice
		}
		return 0, native.ResultFailedToOpenBackendDevice
	}
	if c := dev.Channels(); c != 0 {
		obj.channels = c
	}
	obj.device = dev

	d.mu.Lock()
	defer d.mu.Unlock()
	return d.registerLocked(obj), native.ResultSuccess
}

func (c *captureObj) closeBackend(log logger.Logger) {
	if c.ownedBackend == nil {
		return
	}
	if err := c.ownedBackend.Close(); err != nil {
		log.Warn("closing device backend failed", logger.Error(err))
	}
	c.ownedBackend = nil
}

// CaptureDeviceStart implements native.Driver.
func (d *Driver) CaptureDeviceStart(ptr native.Ptr) native.Result {
	obj, ok := lookup[*captureObj](d, ptr)
	if !ok {
		return native.ResultInvalidArgs
	}
	if err := obj.device.Start(); err != nil {
		d.log.Warn("capture device start failed", logger.Error(err))
		return native.ResultFailedToStartBackendDevice
	}
	return native.ResultSuccess
}

// CaptureDeviceStop implements native.Driver.
func (d *Driver) CaptureDeviceStop(ptr native.Ptr) native.Result {
	obj, ok := lookup[*captureObj](d, ptr)
	if !ok {
		return native.ResultInvalidArgs
	}
	if err := obj.device.Stop(); err != nil {
		d.log.Warn("capture device stop failed", logger.Error(err))
		return native.ResultFailedToStopBackendDevice
	}
	return native.ResultSuccess
}

// CaptureDeviceDestroy implements native.Driver. It returns after the device is closed,
// so no data callback runs afterwards.
func (d *Driver) CaptureDeviceDestroy(ptr native.Ptr) {
	d.mu.Lock()
	obj, ok := lookupLocked[*captureObj](d, ptr)
	if ok {
		delete(d.objects, ptr)
	}
	d.mu.Unlock()
	if !ok {
		return
	}

	if err := obj.device.Close(); err != nil {
		d.log.Warn("closing capture device failed", logger.Error(err))
	}
	obj.closeBackend(d.log)
}
