package miniaudio

import (
	"math"
	"strings"
	"time"

	"github.com/tphakala/go-miniaudio/internal/handle"
	"github.com/tphakala/go-miniaudio/internal/logger"
	"github.com/tphakala/go-miniaudio/internal/native"
	"github.com/tphakala/go-miniaudio/internal/scheduling"
)

// EngineOptions configures an engine. Zero values keep the native defaults.
type EngineOptions struct {
	// Context and ResourceManager are borrowed. They are not closed with the engine and
	// must outlive it.
	Context         *Context
	ResourceManager *ResourceManager
	// PlaybackDeviceID selects a device by id. nil uses the default device.
	PlaybackDeviceID         *string
	SampleRate               uint32
	Channels                 uint32
	PeriodSizeInFrames       uint32
	PeriodSizeInMilliseconds uint32
	NoAutoStart              bool
	// NoDevice creates an engine without a playback device; it is rendered with
	// Engine.ReadPCMFrames. SampleRate and Channels are required.
	NoDevice bool
}

func (o *EngineOptions) validate(op string) error {
	if o.NoDevice && (o.SampleRate == 0 || o.Channels == 0) {
		return argumentError(op, "an engine without a device needs a sample rate and channel count")
	}
	if o.PlaybackDeviceID != nil && strings.TrimSpace(*o.PlaybackDeviceID) == "" {
		return argumentError(op, "playback device id is blank")
	}
	return nil
}

// Engine is the playback engine: a device, a mixer and the PCM frame clock every
// schedule is expressed in.
type Engine struct {
	driver native.Driver
	h      *handle.Handle
	log    logger.Logger
}

// NewEngine creates an engine. nil options create a default engine on the default
// device.
func NewEngine(driver native.Driver, opts *EngineOptions) (*Engine, error) {
	const op = "ma_engine_init"
	if driver == nil {
		return nil, argumentError(op, "driver is nil")
	}

	var (
		ptr native.Ptr
		r   native.Result
	)
	if opts == nil {
		ptr, r = driver.EngineCreateDefault()
	} else {
		if err := opts.validate(op); err != nil {
			return nil, err
		}
		cfg := native.EngineConfig{
			SampleRate:               opts.SampleRate,
			Channels:                 opts.Channels,
			PeriodSizeInFrames:       opts.PeriodSizeInFrames,
			PeriodSizeInMilliseconds: opts.PeriodSizeInMilliseconds,
			NoAutoStart:              opts.NoAutoStart,
			NoDevice:                 opts.NoDevice,
		}
		if opts.PlaybackDeviceID != nil {
			cfg.PlaybackDeviceID = strings.TrimSpace(*opts.PlaybackDeviceID)
		}

		// The borrowed handles stay pinned only across the create call.
		if opts.Context != nil {
			p, unpin, err := opts.Context.h.Pin()
			if err != nil {
				return nil, disposedError("context", op)
			}
			defer unpin()
			cfg.Context = p
		}
		if opts.ResourceManager != nil {
			p, unpin, err := opts.ResourceManager.h.Pin()
			if err != nil {
				return nil, disposedError("resource_manager", op)
			}
			defer unpin()
			cfg.ResourceManager = p
		}
		ptr, r = driver.EngineCreate(cfg)
	}

	h, err := acquire(driver, "engine", op, ptr, r, driver.EngineDestroy)
	if err != nil {
		return nil, err
	}
	e := &Engine{driver: driver, h: h, log: GetLogger().Module("engine")}
	e.log.Debug("engine created",
		logger.Uint64("sample_rate", uint64(driver.EngineGetSampleRate(ptr))),
		logger.Uint64("channels", uint64(driver.EngineGetChannels(ptr))))
	return e, nil
}

// Close destroys the engine. Sounds created from it must be closed first. Borrowed
// contexts and resource managers are left alone. It is safe to call more than once.
func (e *Engine) Close() error {
	if e.h.Release() {
		e.log.Debug("engine closed")
	}
	return nil
}

// Start starts the playback device.
func (e *Engine) Start() error {
	return call(e.driver, e.h, "ma_engine_start", e.driver.EngineStart)
}

// Stop stops the playback device. The frame clock stops advancing.
func (e *Engine) Stop() error {
	return call(e.driver, e.h, "ma_engine_stop", e.driver.EngineStop)
}

// Volume returns the linear master volume.
func (e *Engine) Volume() (float32, error) {
	return query(e.h, "ma_engine_get_volume", e.driver.EngineGetVolume)
}

// SetVolume sets the linear master volume.
func (e *Engine) SetVolume(v float32) error {
	const op = "ma_engine_set_volume"
	if v < 0 || math.IsNaN(float64(v)) {
		return argumentError(op, "volume %v is negative", v)
	}
	return call(e.driver, e.h, op, func(p native.Ptr) native.Result {
		return e.driver.EngineSetVolume(p, v)
	})
}

// GainDb returns the master volume in decibels.
func (e *Engine) GainDb() (float32, error) {
	return query(e.h, "ma_engine_get_gain_db", e.driver.EngineGetGainDb)
}

// SetGainDb sets the master volume in decibels.
func (e *Engine) SetGainDb(db float32) error {
	const op = "ma_engine_set_gain_db"
	if math.IsNaN(float64(db)) {
		return argumentError(op, "gain is NaN")
	}
	return call(e.driver, e.h, op, func(p native.Ptr) native.Result {
		return e.driver.EngineSetGainDb(p, db)
	})
}

// SampleRate returns the engine sample rate in Hz.
func (e *Engine) SampleRate() (uint32, error) {
	return query(e.h, "ma_engine_get_sample_rate", e.driver.EngineGetSampleRate)
}

// Channels returns the engine output channel count.
func (e *Engine) Channels() (uint32, error) {
	return query(e.h, "ma_engine_get_channels", e.driver.EngineGetChannels)
}

// TimeInPCMFrames returns the current engine frame clock.
func (e *Engine) TimeInPCMFrames() (uint64, error) {
	return query(e.h, "ma_engine_get_time_in_pcm_frames", e.driver.EngineGetTimeInPCMFrames)
}

// SetTimeInPCMFrames moves the engine frame clock.
func (e *Engine) SetTimeInPCMFrames(frames uint64) error {
	return call(e.driver, e.h, "ma_engine_set_time_in_pcm_frames", func(p native.Ptr) native.Result {
		return e.driver.EngineSetTimeInPCMFrames(p, frames)
	})
}

// Time returns the engine clock with millisecond resolution.
func (e *Engine) Time() (time.Duration, error) {
	ms, err := query(e.h, "ma_engine_get_time_in_milliseconds", e.driver.EngineGetTimeInMilliseconds)
	return time.Duration(ms) * time.Millisecond, err
}

// SetTime moves the engine clock. Negative values clamp to zero.
func (e *Engine) SetTime(t time.Duration) error {
	ms := uint64(max(t, 0) / time.Millisecond)
	return call(e.driver, e.h, "ma_engine_set_time_in_milliseconds", func(p native.Ptr) native.Result {
		return e.driver.EngineSetTimeInMilliseconds(p, ms)
	})
}

// AbsoluteTimeInFrames returns the engine frame offset from now. Negative offsets
// resolve to the current frame. The clock keeps running while this is computed, so the
// result is a point in the near future, not a snapshot.
func (e *Engine) AbsoluteTimeInFrames(offset time.Duration) (uint64, error) {
	var abs uint64
	err := pinned(e.h, "absolute_time_in_frames", func(p native.Ptr) error {
		abs = scheduling.AbsoluteFrame(e.driver.EngineGetTimeInPCMFrames(p), offset, e.driver.EngineGetSampleRate(p))
		return nil
	})
	return abs, err
}

// ReadPCMFrames renders the next len(out)/Channels frames of an engine created with
// NoDevice into out and advances the clock. len(out) must be a multiple of the channel
// count.
func (e *Engine) ReadPCMFrames(out []float32) (uint64, error) {
	const op = "ma_engine_read_pcm_frames"
	var read uint64
	err := pinned(e.h, op, func(p native.Ptr) error {
		ch := e.driver.EngineGetChannels(p)
		if ch == 0 || len(out)%int(ch) != 0 {
			return argumentError(op, "buffer of %d samples is not a multiple of %d channels", len(out), ch)
		}
		if len(out) == 0 {
			return nil
		}
		n, r := e.driver.EngineReadPCMFrames(p, out, uint64(len(out))/uint64(ch))
		read = n
		return checkResult(e.driver, op, r)
	})
	return read, err
}

// Play starts a fire-and-forget sound. The engine owns it and frees it when it ends.
func (e *Engine) Play(path string) error {
	const op = "ma_engine_play_sound"
	if strings.TrimSpace(path) == "" {
		return argumentError(op, "path is empty")
	}
	return call(e.driver, e.h, op, func(p native.Ptr) native.Result {
		return e.driver.EnginePlaySound(p, path)
	})
}

// ListenerCount returns the number of listeners.
func (e *Engine) ListenerCount() (uint32, error) {
	return query(e.h, "ma_engine_get_listener_count", e.driver.EngineGetListenerCount)
}

// FindClosestListener returns the index of the enabled listener closest to position.
func (e *Engine) FindClosestListener(position Vec3) (uint32, error) {
	return query(e.h, "ma_engine_find_closest_listener", func(p native.Ptr) uint32 {
		return e.driver.EngineFindClosestListener(p, position.toNative())
	})
}

func (e *Engine) listenerOp(op string, index uint32, fn func(native.Ptr)) error {
	return pinned(e.h, op, func(p native.Ptr) error {
		if n := e.driver.EngineGetListenerCount(p); index >= n {
			return argumentError(op, "listener %d out of range [0, %d)", index, n)
		}
		fn(p)
		return nil
	})
}

func (e *Engine) setListenerVec(op string, index uint32, v Vec3, set func(native.Ptr, uint32, native.Vec3)) error {
	return e.listenerOp(op, index, func(p native.Ptr) { set(p, index, v.toNative()) })
}

func (e *Engine) listenerVec(op string, index uint32, get func(native.Ptr, uint32) native.Vec3) (Vec3, error) {
	var v Vec3
	err := e.listenerOp(op, index, func(p native.Ptr) { v = vec3FromNative(get(p, index)) })
	return v, err
}

// SetListenerPosition sets the position of listener index.
func (e *Engine) SetListenerPosition(index uint32, v Vec3) error {
	return e.setListenerVec("ma_engine_listener_set_position", index, v, e.driver.EngineListenerSetPosition)
}

// ListenerPosition returns the position of listener index.
func (e *Engine) ListenerPosition(index uint32) (Vec3, error) {
	return e.listenerVec("ma_engine_listener_get_position", index, e.driver.EngineListenerGetPosition)
}

// SetListenerDirection sets the forward direction of listener index.
func (e *Engine) SetListenerDirection(index uint32, v Vec3) error {
	return e.setListenerVec("ma_engine_listener_set_direction", index, v, e.driver.EngineListenerSetDirection)
}

// ListenerDirection returns the forward direction of listener index.
func (e *Engine) ListenerDirection(index uint32) (Vec3, error) {
	return e.listenerVec("ma_engine_listener_get_direction", index, e.driver.EngineListenerGetDirection)
}

// SetListenerWorldUp sets the up vector of listener index.
func (e *Engine) SetListenerWorldUp(index uint32, v Vec3) error {
	return e.setListenerVec("ma_engine_listener_set_world_up", index, v, e.driver.EngineListenerSetWorldUp)
}

// ListenerWorldUp returns the up vector of listener index.
func (e *Engine) ListenerWorldUp(index uint32) (Vec3, error) {
	return e.listenerVec("ma_engine_listener_get_world_up", index, e.driver.EngineListenerGetWorldUp)
}

// SetListenerVelocity sets the velocity of listener index.
func (e *Engine) SetListenerVelocity(index uint32, v Vec3) error {
	return e.setListenerVec("ma_engine_listener_set_velocity", index, v, e.driver.EngineListenerSetVelocity)
}

// ListenerVelocity returns the velocity of listener index.
func (e *Engine) ListenerVelocity(index uint32) (Vec3, error) {
	return e.listenerVec("ma_engine_listener_get_velocity", index, e.driver.EngineListenerGetVelocity)
}

// SetListenerCone sets the cone of listener index.
func (e *Engine) SetListenerCone(index uint32, cone ListenerCone) error {
	return e.listenerOp("ma_engine_listener_set_cone", index, func(p native.Ptr) {
		e.driver.EngineListenerSetCone(p, index, native.Cone{
			InnerAngleRadians: cone.Inner,
			OuterAngleRadians: cone.Outer,
			OuterGain:         cone.OuterGain,
		})
	})
}

// ListenerCone returns the cone of listener index.
func (e *Engine) ListenerCone(index uint32) (ListenerCone, error) {
	var cone ListenerCone
	err := e.listenerOp("ma_engine_listener_get_cone", index, func(p native.Ptr) {
		c := e.driver.EngineListenerGetCone(p, index)
		cone = ListenerCone{Inner: c.InnerAngleRadians, Outer: c.OuterAngleRadians, OuterGain: c.OuterGain}
	})
	return cone, err
}

// SetListenerEnabled enables or disables listener index.
func (e *Engine) SetListenerEnabled(index uint32, enabled bool) error {
	return e.listenerOp("ma_engine_listener_set_enabled", index, func(p native.Ptr) {
		e.driver.EngineListenerSetEnabled(p, index, enabled)
	})
}

// IsListenerEnabled reports whether listener index is enabled.
func (e *Engine) IsListenerEnabled(index uint32) (bool, error) {
	var enabled bool
	err := e.listenerOp("ma_engine_listener_is_enabled", index, func(p native.Ptr) {
		enabled = e.driver.EngineListenerIsEnabled(p, index)
	})
	return enabled, err
}

// NewSound loads path into a new sound attached to the engine.
func (e *Engine) NewSound(path string, flags SoundInitFlags) (*Sound, error) {
	const op = "ma_sound_init_from_file"
	if strings.TrimSpace(path) == "" {
		return nil, argumentError(op, "path is empty")
	}
	return e.newSound(op, path, func(p native.Ptr) (native.Ptr, native.Result) {
		return e.driver.SoundCreateFromFile(p, path, uint32(flags))
	})
}

// NewSoundFromPCMFrames creates a sound playing a copy of the interleaved frames.
func (e *Engine) NewSoundFromPCMFrames(frames []float32, channels, sampleRate uint32, flags SoundInitFlags) (*Sound, error) {
	const op = "ma_sound_init_from_pcm_frames"
	if channels == 0 || sampleRate == 0 {
		return nil, argumentError(op, "channels and sample rate must be greater than zero")
	}
	if len(frames) == 0 || len(frames)%int(channels) != 0 {
		return nil, argumentError(op, "%d samples is not a whole number of %d channel frames", len(frames), channels)
	}
	frameCount := uint64(len(frames)) / uint64(channels)
	return e.newSound(op, sourcePCMMemory, func(p native.Ptr) (native.Ptr, native.Result) {
		return e.driver.SoundCreateFromPCMFrames(p, frames, frameCount, channels, sampleRate, uint32(flags))
	})
}

// NewStreamingSound creates a sound fed through a ring buffer of capacityInFrames
// frames. See StreamingSound.AppendPCMFrames.
func (e *Engine) NewStreamingSound(channels, sampleRate uint32, capacityInFrames uint64, flags SoundInitFlags) (*StreamingSound, error) {
	const op = "ma_sound_init_stream"
	if channels == 0 || sampleRate == 0 || capacityInFrames == 0 {
		return nil, argumentError(op, "channels, sample rate and capacity must be greater than zero")
	}
	s, err := e.newSound(op, sourcePCMStream, func(p native.Ptr) (native.Ptr, native.Result) {
		return e.driver.SoundCreateStream(p, channels, sampleRate, capacityInFrames, uint32(flags))
	})
	if err != nil {
		return nil, err
	}
	return &StreamingSound{Sound: s, channels: channels, capacity: capacityInFrames}, nil
}

func (e *Engine) newSound(op, source string, create func(native.Ptr) (native.Ptr, native.Result)) (*Sound, error) {
	var (
		ptr native.Ptr
		r   native.Result
	)
	if err := pinned(e.h, op, func(p native.Ptr) error {
		ptr, r = create(p)
		return nil
	}); err != nil {
		return nil, err
	}
	h, err := acquire(e.driver, "sound", op, ptr, r, e.driver.SoundDestroy)
	if err != nil {
		return nil, err
	}
	return newSound(e, h, source), nil
}
