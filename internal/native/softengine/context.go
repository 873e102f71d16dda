package softengine

import (
	"slices"

	"github.com/tphakala/go-miniaudio/internal/logger"
	"github.com/tphakala/go-miniaudio/internal/native"
)

type contextObj struct {
	backends []int32
	// backend is nil for a null context.
	backend DeviceBackend
}

type resourceManagerObj struct {
	cfg native.ResourceManagerConfig
}

// ContextCreateDefault implements native.Driver.
func (d *Driver) ContextCreateDefault() (native.Ptr, native.Result) {
	return d.createContext(nil)
}

// ContextCreateWithBackends implements native.Driver.
func (d *Driver) ContextCreateWithBackends(backends []int32) (native.Ptr, native.Result) {
	if len(backends) == 0 {
		return 0, native.ResultInvalidArgs
	}
	for _, b := range backends {
		if b < native.BackendWasapi || b > native.BackendNull {
			return 0, native.ResultInvalidArgs
		}
	}
	return d.createContext(slices.Clone(backends))
}

func (d *Driver) createContext(backends []int32) (native.Ptr, native.Result) {
	obj := &contextObj{backends: backends}
	if d.factory != nil {
		b, err := d.factory(backends)
		if err != nil {
			d.log.Warn("device backend unavailable", logger.Error(err))
			return 0, native.ResultNoBackend
		}
		obj.backend = b
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	return d.registerLocked(obj), native.ResultSuccess
}

// ContextDestroy implements native.Driver.
func (d *Driver) ContextDestroy(ctx native.Ptr) {
	d.mu.Lock()
	obj, ok := lookupLocked[*contextObj](d, ctx)
	if ok {
		delete(d.objects, ctx)
	}
	d.mu.Unlock()

	if ok && obj.backend != nil {
		if err := obj.backend.Close(); err != nil {
			d.log.Warn("closing device backend failed", logger.Error(err))
		}
	}
}

// ContextGetDevices implements native.Driver.
func (d *Driver) ContextGetDevices(ctx native.Ptr, kind native.DeviceKind, out []native.DeviceDescriptor) (uint32, native.Result) {
	obj, ok := lookup[*contextObj](d, ctx)
	if !ok {
		return 0, native.ResultInvalidArgs
	}
	if kind != native.DeviceKindPlayback && kind != native.DeviceKindCapture {
		return 0, native.ResultInvalidArgs
	}

	infos := nullDevices(kind)
	if obj.backend != nil {
		var err error
		if infos, err = obj.backend.Devices(kind); err != nil {
			d.log.Warn("device enumeration failed", logger.Error(err))
			return 0, native.ResultError
		}
	}

	for i := range min(len(out), len(infos)) {
		out[i] = descriptor(infos[i], kind)
	}
	return uint32(len(infos)), native.ResultSuccess
}

// descriptor encodes info into fixed buffers, truncating so a NUL always remains.
func descriptor(info DeviceInfo, kind native.DeviceKind) native.DeviceDescriptor {
	var desc native.DeviceDescriptor
	copy(desc.Name[:native.DeviceNameBufferSize-1], info.Name)
	copy(desc.ID[:native.DeviceIDBufferSize-1], info.ID)
	desc.Kind = kind
	if info.IsDefault {
		desc.IsDefault = 1
	}
	return desc
}

// ResourceManagerCreateDefault implements native.Driver.
func (d *Driver) ResourceManagerCreateDefault() (native.Ptr, native.Result) {
	return d.ResourceManagerCreate(native.ResourceManagerConfig{})
}

// ResourceManagerCreate implements native.Driver. Decoded format settings are recorded
// but not applied; sounds keep their source format.
func (d *Driver) ResourceManagerCreate(cfg native.ResourceManagerConfig) (native.Ptr, native.Result) {
	if cfg.DecodedFormat > 5 {
		return 0, native.ResultInvalidArgs
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.registerLocked(&resourceManagerObj{cfg: cfg}), native.ResultSuccess
}

// ResourceManagerDestroy implements native.Driver.
func (d *Driver) ResourceManagerDestroy(rm native.Ptr) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, ok := lookupLocked[*resourceManagerObj](d, rm); ok {
		delete(d.objects, rm)
	}
}
