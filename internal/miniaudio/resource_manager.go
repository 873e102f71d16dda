package miniaudio

import (
	"github.com/tphakala/go-miniaudio/internal/handle"
	"github.com/tphakala/go-miniaudio/internal/native"
)

// ResourceManagerOptions configures a resource manager. Nil fields keep the native
// default.
type ResourceManagerOptions struct {
	DecodedFormat     *SampleFormat
	DecodedChannels   *uint32
	DecodedSampleRate *uint32
	JobThreadCount    *uint32
	Flags             ResourceManagerFlags
}

// HasOverrides reports whether any option differs from the native default.
func (o *ResourceManagerOptions) HasOverrides() bool {
	if o == nil {
		return false
	}
	return (o.DecodedFormat != nil && *o.DecodedFormat != SampleFormatUnknown) || o.DecodedChannels != nil || o.DecodedSampleRate != nil ||
		o.JobThreadCount != nil || o.Flags != 0
}

func (o *ResourceManagerOptions) clone() *ResourceManagerOptions {
	if o == nil {
		return nil
	}
	c := *o
	c.DecodedFormat = clonePtr(o.DecodedFormat)
	c.DecodedChannels = clonePtr(o.DecodedChannels)
	c.DecodedSampleRate = clonePtr(o.DecodedSampleRate)
	c.JobThreadCount = clonePtr(o.JobThreadCount)
	return &c
}

func clonePtr[T any](p *T) *T {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

func (o *ResourceManagerOptions) validate(op string) error {
	if o.DecodedChannels != nil && *o.DecodedChannels == 0 {
		return argumentError(op, "decoded channels must be greater than zero")
	}
	if o.DecodedSampleRate != nil && *o.DecodedSampleRate == 0 {
		return argumentError(op, "decoded sample rate must be greater than zero")
	}
	if o.JobThreadCount != nil && *o.JobThreadCount == 0 {
		return argumentError(op, "job thread count must be greater than zero")
	}
	if o.DecodedFormat != nil && *o.DecodedFormat > SampleFormatF32 {
		return argumentError(op, "unknown sample format %d", uint32(*o.DecodedFormat))
	}
	return nil
}

func (o *ResourceManagerOptions) toNative() native.ResourceManagerConfig {
	cfg := native.ResourceManagerConfig{Flags: uint32(o.Flags)}
	if o.DecodedFormat != nil {
		cfg.DecodedFormat = uint32(*o.DecodedFormat)
	}
	if o.DecodedChannels != nil {
		cfg.DecodedChannels = *o.DecodedChannels
	}
	if o.DecodedSampleRate != nil {
		cfg.DecodedSampleRate = *o.DecodedSampleRate
	}
	if o.JobThreadCount != nil {
		cfg.JobThreadCount = *o.JobThreadCount
	}
	return cfg
}

// ResourceManager owns a native resource manager that engines can share for decoding
// and caching.
//
// A ResourceManager must outlive every Engine created from it.
type ResourceManager struct {
	driver native.Driver
	h      *handle.Handle
	opts   *ResourceManagerOptions
}

// NewResourceManager creates a resource manager. nil options, or options without
// overrides, use the native defaults.
func NewResourceManager(driver native.Driver, opts *ResourceManagerOptions) (*ResourceManager, error) {
	const op = "ma_resource_manager_init"
	if driver == nil {
		return nil, argumentError(op, "driver is nil")
	}

	var (
		ptr native.Ptr
		r   native.Result
	)
	if opts.HasOverrides() {
		if err := opts.validate(op); err != nil {
			return nil, err
		}
		ptr, r = driver.ResourceManagerCreate(opts.toNative())
	} else {
		ptr, r = driver.ResourceManagerCreateDefault()
	}

	h, err := acquire(driver, "resource_manager", op, ptr, r, driver.ResourceManagerDestroy)
	if err != nil {
		return nil, err
	}
	return &ResourceManager{driver: driver, h: h, opts: opts.clone()}, nil
}

// Options returns a copy of the options the resource manager was created with, or nil.
func (m *ResourceManager) Options() *ResourceManagerOptions {
	return m.opts.clone()
}

// Close destroys the native resource manager. It is safe to call more than once.
func (m *ResourceManager) Close() error {
	m.h.Release()
	return nil
}
