package softengine

import (
	"math"
	"slices"

	"github.com/tphakala/go-miniaudio/internal/errors"
	"github.com/tphakala/go-miniaudio/internal/logger"
	"github.com/tphakala/go-miniaudio/internal/native"
	"github.com/tphakala/go-miniaudio/internal/scheduling"
)

// Defaults applied to device engines that do not request a format.
const (
	DefaultSampleRate uint32 = 48000
	DefaultChannels   uint32 = 2
)

// ErrDeviceNotFound is wrapped by backends when a requested device id does not exist.
var ErrDeviceNotFound = errors.NewStd("device not found")

type listener struct {
	position  native.Vec3
	direction native.Vec3
	worldUp   native.Vec3
	velocity  native.Vec3
	cone      native.Cone
	enabled   bool
}

func defaultListener() listener {
	return listener{
		direction: native.Vec3{Z: -1},
		worldUp:   native.Vec3{Y: 1},
		cone:      native.Cone{InnerAngleRadians: 2 * math.Pi, OuterAngleRadians: 2 * math.Pi, OuterGain: 1},
		enabled:   true,
	}
}

type engineObj struct {
	sampleRate uint32
	channels   uint32
	noDevice   bool
	volume     float32
	clock      uint64
	listeners  []listener
	sounds     []*soundObj
	destroyed  bool

	device       Device
	ownedBackend DeviceBackend
}

// EngineCreateDefault implements native.Driver.
func (d *Driver) EngineCreateDefault() (native.Ptr, native.Result) {
	return d.EngineCreate(native.EngineConfig{})
}

// EngineCreate implements native.Driver.
func (d *Driver) EngineCreate(cfg native.EngineConfig) (native.Ptr, native.Result) {
	if cfg.NoDevice && (cfg.SampleRate == 0 || cfg.Channels == 0) {
		return 0, native.ResultInvalidArgs
	}
	if cfg.ResourceManager != 0 {
		if _, ok := lookup[*resourceManagerObj](d, cfg.ResourceManager); !ok {
			return 0, native.ResultInvalidArgs
		}
	}

	e := &engineObj{
		sampleRate: cfg.SampleRate,
		channels:   cfg.Channels,
		noDevice:   cfg.NoDevice,
		volume:     1,
		listeners:  []listener{defaultListener()},
	}
	if !cfg.NoDevice {
		if res := d.openPlayback(e, cfg); !res.OK() {
			return 0, res
		}
	}

	d.mu.Lock()
	ptr := d.registerLocked(e)
	d.mu.Unlock()

	if e.device != nil && !cfg.NoAutoStart {
		if err := e.device.Start(); err != nil {
			d.log.Warn("playback device start failed", logger.Error(err))
			d.EngineDestroy(ptr)
			return 0, native.ResultFailedToStartBackendDevice
		}
	}
	return ptr, native.ResultSuccess
}

func (d *Driver) openPlayback(e *engineObj, cfg native.EngineConfig) native.Result {
	var backend DeviceBackend
	switch {
	case cfg.Context != 0:
		ctx, ok := lookup[*contextObj](d, cfg.Context)
		if !ok {
			return native.ResultInvalidArgs
		}
		backend = ctx.backend
	case d.factory != nil:
		b, err := d.factory(nil)
		if err != nil {
			d.log.Warn("device backend unavailable", logger.Error(err))
			return native.ResultNoBackend
		}
		backend = b
		e.ownedBackend = b
	}
	if backend == nil {
		return native.ResultNoBackend
	}

	if e.sampleRate == 0 {
		e.sampleRate = DefaultSampleRate
	}
	if e.channels == 0 {
		e.channels = DefaultChannels
	}
	period := cfg.PeriodSizeInFrames
	if period == 0 && cfg.PeriodSizeInMilliseconds != 0 {
		period = uint32(scheduling.MillisecondsToFrames(uint64(cfg.PeriodSizeInMilliseconds), e.sampleRate))
	}

	dev, err := backend.OpenPlayback(DeviceConfig{
		DeviceID:     cfg.PlaybackDeviceID,
		SampleRate:   e.sampleRate,
		Channels:     e.channels,
		PeriodFrames: period,
	}, d.renderFunc(e))
	if err != nil {
		d.closeOwnedBackend(e)
		d.log.Warn("playback device open failed",
			logger.String("device_id", cfg.PlaybackDeviceID),
			logger.Error(err))
		if errors.Is(err, ErrDeviceNotFound) {
			return native.ResultNoDevice
		}
		return native.ResultFailedToOpenBackendDevice
	}
	if r := dev.SampleRate(); r != 0 {
		e.sampleRate = r
	}
	if c := dev.Channels(); c != 0 {
		e.channels = c
	}
	e.device = dev
	return native.ResultSuccess
}

func (d *Driver) closeOwnedBackend(e *engineObj) {
	if e.ownedBackend == nil {
		return
	}
	if err := e.ownedBackend.Close(); err != nil {
		d.log.Warn("closing device backend failed", logger.Error(err))
	}
	e.ownedBackend = nil
}

// renderFunc is the playback callback of a device engine.
func (d *Driver) renderFunc(e *engineObj) RenderFunc {
	return func(out []float32, frames uint32) {
		d.mu.Lock()
		if e.destroyed || e.channels == 0 {
			d.mu.Unlock()
			clear(out)
			return
		}
		n := min(uint64(frames), uint64(len(out))/uint64(e.channels))
		ended := d.renderLocked(e, out, n)
		d.mu.Unlock()

		fireEnded(ended)
	}
}

// renderLocked mixes frames frames of every attached sound into out and advances the
// clock. It returns the sounds that reached the end of their data.
func (d *Driver) renderLocked(e *engineObj, out []float32, frames uint64) []*soundObj {
	clear(out[:frames*uint64(e.channels)])

	var ended []*soundObj
	inlineEnded := false
	for _, s := range e.sounds {
		if s.mixLocked(e, out, frames) {
			if s.inline {
				inlineEnded = true
				continue
			}
			ended = append(ended, s)
		}
	}

	if e.volume != 1 {
		for i := range out[:frames*uint64(e.channels)] {
			out[i] *= e.volume
		}
	}
	e.clock += frames

	if inlineEnded {
		e.sounds = slices.DeleteFunc(e.sounds, func(s *soundObj) bool {
			return s.inline && !s.playing
		})
	}
	return ended
}

// EngineDestroy implements native.Driver. Sounds still attached are detached and
// stopped; their own destroy calls remain valid.
func (d *Driver) EngineDestroy(ptr native.Ptr) {
	d.mu.Lock()
	e, ok := lookupLocked[*engineObj](d, ptr)
	if !ok {
		d.mu.Unlock()
		return
	}
	delete(d.objects, ptr)
	e.destroyed = true
	for _, s := range e.sounds {
		s.haltLocked()
	}
	e.sounds = nil
	dev := e.device
	e.device = nil
	d.mu.Unlock()

	if dev != nil {
		if err := dev.Close(); err != nil {
			d.log.Warn("closing playback device failed", logger.Error(err))
		}
	}
	d.closeOwnedBackend(e)
}

// EngineStart implements native.Driver.
func (d *Driver) EngineStart(ptr native.Ptr) native.Result {
	dev, res := d.engineDevice(ptr)
	if !res.OK() {
		return res
	}
	if err := dev.Start(); err != nil {
		d.log.Warn("playback device start failed", logger.Error(err))
		return native.ResultFailedToStartBackendDevice
	}
	return native.ResultSuccess
}

// EngineStop implements native.Driver.
func (d *Driver) EngineStop(ptr native.Ptr) native.Result {
	dev, res := d.engineDevice(ptr)
	if !res.OK() {
		return res
	}
	if err := dev.Stop(); err != nil {
		d.log.Warn("playback device stop failed", logger.Error(err))
		return native.ResultFailedToStopBackendDevice
	}
	return native.ResultSuccess
}

func (d *Driver) engineDevice(ptr native.Ptr) (Device, native.Result) {
	d.mu.Lock()
	defer d.mu.Unlock()
	e, ok := lookupLocked[*engineObj](d, ptr)
	if !ok {
		return nil, native.ResultInvalidArgs
	}
	if e.device == nil {
		return nil, native.ResultInvalidOperation
	}
	return e.device, native.ResultSuccess
}

// withEngine runs fn on the engine at ptr with d.mu held.
func withEngine[T any](d *Driver, ptr native.Ptr, fallback T, fn func(*engineObj) T) T {
	d.mu.Lock()
	defer d.mu.Unlock()
	e, ok := lookupLocked[*engineObj](d, ptr)
	if !ok {
		return fallback
	}
	return fn(e)
}

// EngineSetVolume implements native.Driver.
func (d *Driver) EngineSetVolume(ptr native.Ptr, volume float32) native.Result {
	if volume < 0 || math.IsNaN(float64(volume)) {
		return native.ResultInvalidArgs
	}
	return withEngine(d, ptr, native.ResultInvalidArgs, func(e *engineObj) native.Result {
		e.volume = volume
		return native.ResultSuccess
	})
}

// EngineGetVolume implements native.Driver.
func (d *Driver) EngineGetVolume(ptr native.Ptr) float32 {
	return withEngine(d, ptr, 0, func(e *engineObj) float32 { return e.volume })
}

// EngineSetGainDb implements native.Driver.
func (d *Driver) EngineSetGainDb(ptr native.Ptr, gainDb float32) native.Result {
	if math.IsNaN(float64(gainDb)) {
		return native.ResultInvalidArgs
	}
	return d.EngineSetVolume(ptr, float32(math.Pow(10, float64(gainDb)/20)))
}

// EngineGetGainDb implements native.Driver. Silence reports negative infinity.
func (d *Driver) EngineGetGainDb(ptr native.Ptr) float32 {
	return float32(20 * math.Log10(float64(d.EngineGetVolume(ptr))))
}

// EngineGetSampleRate implements native.Driver.
func (d *Driver) EngineGetSampleRate(ptr native.Ptr) uint32 {
	return withEngine(d, ptr, 0, func(e *engineObj) uint32 { return e.sampleRate })
}

// EngineGetChannels implements native.Driver.
func (d *Driver) EngineGetChannels(ptr native.Ptr) uint32 {
	return withEngine(d, ptr, 0, func(e *engineObj) uint32 { return e.channels })
}

// EngineGetTimeInPCMFrames implements native.Driver.
func (d *Driver) EngineGetTimeInPCMFrames(ptr native.Ptr) uint64 {
	return withEngine(d, ptr, 0, func(e *engineObj) uint64 { return e.clock })
}

// EngineSetTimeInPCMFrames implements native.Driver.
func (d *Driver) EngineSetTimeInPCMFrames(ptr native.Ptr, frames uint64) native.Result {
	return withEngine(d, ptr, native.ResultInvalidArgs, func(e *engineObj) native.Result {
		e.clock = frames
		return native.ResultSuccess
	})
}

// EngineGetTimeInMilliseconds implements native.Driver.
func (d *Driver) EngineGetTimeInMilliseconds(ptr native.Ptr) uint64 {
	return withEngine(d, ptr, 0, func(e *engineObj) uint64 {
		return scheduling.FramesToMilliseconds(e.clock, e.sampleRate)
	})
}

// EngineSetTimeInMilliseconds implements native.Driver.
func (d *Driver) EngineSetTimeInMilliseconds(ptr native.Ptr, ms uint64) native.Result {
	return withEngine(d, ptr, native.ResultInvalidArgs, func(e *engineObj) native.Result {
		e.clock = scheduling.MillisecondsToFrames(ms, e.sampleRate)
		return native.ResultSuccess
	})
}

// EngineReadPCMFrames implements native.Driver. Only engines created without a device
// can be read; device engines are driven by their playback callback.
func (d *Driver) EngineReadPCMFrames(ptr native.Ptr, out []float32, frameCount uint64) (uint64, native.Result) {
	d.mu.Lock()
	e, ok := lookupLocked[*engineObj](d, ptr)
	switch {
	case !ok:
		d.mu.Unlock()
		return 0, native.ResultInvalidArgs
	case !e.noDevice:
		d.mu.Unlock()
		return 0, native.ResultInvalidOperation
	case uint64(len(out)) < frameCount*uint64(e.channels):
		d.mu.Unlock()
		return 0, native.ResultInvalidArgs
	}
	ended := d.renderLocked(e, out, frameCount)
	d.mu.Unlock()

	fireEnded(ended)
	return frameCount, native.ResultSuccess
}

// EngineGetListenerCount implements native.Driver.
func (d *Driver) EngineGetListenerCount(ptr native.Ptr) uint32 {
	return withEngine(d, ptr, 0, func(e *engineObj) uint32 { return uint32(len(e.listeners)) })
}

// EngineFindClosestListener implements native.Driver. Disabled listeners are skipped.
func (d *Driver) EngineFindClosestListener(ptr native.Ptr, position native.Vec3) uint32 {
	return withEngine(d, ptr, 0, func(e *engineObj) uint32 {
		best, bestDist := uint32(0), math.Inf(1)
		for i, l := range e.listeners {
			if !l.enabled {
				continue
			}
			dx := float64(l.position.X - position.X)
			dy := float64(l.position.Y - position.Y)
			dz := float64(l.position.Z - position.Z)
			if dist := dx*dx + dy*dy + dz*dz; dist < bestDist {
				best, bestDist = uint32(i), dist
			}
		}
		return best
	})
}

// updateListener applies fn to listener index; out of range indices are ignored.
func (d *Driver) updateListener(ptr native.Ptr, index uint32, fn func(*listener)) {
	withEngine(d, ptr, struct{}{}, func(e *engineObj) struct{} {
		if int(index) < len(e.listeners) {
			fn(&e.listeners[index])
		}
		return struct{}{}
	})
}

func listenerValue[T any](d *Driver, ptr native.Ptr, index uint32, get func(*listener) T) T {
	var zero T
	return withEngine(d, ptr, zero, func(e *engineObj) T {
		if int(index) >= len(e.listeners) {
			return zero
		}
		return get(&e.listeners[index])
	})
}

// EngineListenerSetPosition implements native.Driver.
func (d *Driver) EngineListenerSetPosition(ptr native.Ptr, index uint32, v native.Vec3) {
	d.updateListener(ptr, index, func(l *listener) { l.position = v })
}

// EngineListenerGetPosition implements native.Driver.
func (d *Driver) EngineListenerGetPosition(ptr native.Ptr, index uint32) native.Vec3 {
	return listenerValue(d, ptr, index, func(l *listener) native.Vec3 { return l.position })
}

// EngineListenerSetDirection implements native.Driver.
func (d *Driver) EngineListenerSetDirection(ptr native.Ptr, index uint32, v native.Vec3) {
	d.updateListener(ptr, index, func(l *listener) { l.direction = v })
}

// EngineListenerGetDirection implements native.Driver.
func (d *Driver) EngineListenerGetDirection(ptr native.Ptr, index uint32) native.Vec3 {
	return listenerValue(d, ptr, index, func(l *listener) native.Vec3 { return l.direction })
}

// EngineListenerSetWorldUp implements native.Driver.
func (d *Driver) EngineListenerSetWorldUp(ptr native.Ptr, index uint32, v native.Vec3) {
	d.updateListener(ptr, index, func(l *listener) { l.worldUp = v })
}

// EngineListenerGetWorldUp implements native.Driver.
func (d *Driver) EngineListenerGetWorldUp(ptr native.Ptr, index uint32) native.Vec3 {
	return listenerValue(d, ptr, index, func(l *listener) native.Vec3 { return l.worldUp })
}

// EngineListenerSetVelocity implements native.Driver.
func (d *Driver) EngineListenerSetVelocity(ptr native.Ptr, index uint32, v native.Vec3) {
	d.updateListener(ptr, index, func(l *listener) { l.velocity = v })
}

// EngineListenerGetVelocity implements native.Driver.
func (d *Driver) EngineListenerGetVelocity(ptr native.Ptr, index uint32) native.Vec3 {
	return listenerValue(d, ptr, index, func(l *listener) native.Vec3 { return l.velocity })
}

// EngineListenerSetCone implements native.Driver.
func (d *Driver) EngineListenerSetCone(ptr native.Ptr, index uint32, cone native.Cone) {
	d.updateListener(ptr, index, func(l *listener) { l.cone = cone })
}

// EngineListenerGetCone implements native.Driver.
func (d *Driver) EngineListenerGetCone(ptr native.Ptr, index uint32) native.Cone {
	return listenerValue(d, ptr, index, func(l *listener) native.Cone { return l.cone })
}

// EngineListenerSetEnabled implements native.Driver.
func (d *Driver) EngineListenerSetEnabled(ptr native.Ptr, index uint32, enabled bool) {
	d.updateListener(ptr, index, func(l *listener) { l.enabled = enabled })
}

// EngineListenerIsEnabled implements native.Driver.
func (d *Driver) EngineListenerIsEnabled(ptr native.Ptr, index uint32) bool {
	return listenerValue(d, ptr, index, func(l *listener) bool { return l.enabled })
}

// EnginePlaySound implements native.Driver. The sound is owned by the engine and
// freed when it finishes.
func (d *Driver) EnginePlaySound(ptr native.Ptr, path string) native.Result {
	s, res := d.decodeSound(path, 0)
	if !res.OK() {
		return res
	}
	s.inline = true

	d.mu.Lock()
	defer d.mu.Unlock()
	e, ok := lookupLocked[*engineObj](d, ptr)
	if !ok {
		return native.ResultInvalidArgs
	}
	s.engine = e
	s.playing = true
	e.sounds = append(e.sounds, s)
	return native.ResultSuccess
}
