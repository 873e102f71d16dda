package softengine

import (
	"math"
	"path/filepath"
	"sync"

	"github.com/tphakala/go-miniaudio/internal/errors"
	"github.com/tphakala/go-miniaudio/internal/logger"
	"github.com/tphakala/go-miniaudio/internal/native"
	"github.com/tphakala/go-miniaudio/internal/native/softengine/decoders"
	"github.com/tphakala/go-miniaudio/internal/scheduling"
)

type soundObj struct {
	ptr        native.Ptr
	engine     *engineObj
	src        source
	channels   uint32
	sampleRate uint32
	inline     bool

	playing  bool
	hasStart bool
	startAt  uint64
	hasStop  bool
	stopAt   uint64
	stopFade uint64

	volume      float32
	pitch       float32
	pan         float32
	position    native.Vec3
	direction   native.Vec3
	positioning native.Positioning
	looping     bool
	fader       fader
	frame       []float32

	// cbMu guards the end callback. It is never taken with Driver.mu held.
	cbMu    sync.RWMutex
	endCB   native.EndCallback
	endUser uintptr
}

func newSoundObj(src source, channels, sampleRate, flags uint32) *soundObj {
	return &soundObj{
		src:        src,
		channels:   channels,
		sampleRate: sampleRate,
		volume:     1,
		pitch:      1,
		direction:  native.Vec3{Z: -1},
		looping:    flags&native.SoundFlagLooping != 0,
		fader:      newFader(),
		frame:      make([]float32, channels),
	}
}

// mixLocked adds frames frames of s to out starting at the engine clock and reports
// whether the sound reached the end of its data.
func (s *soundObj) mixLocked(e *engineObj, out []float32, frames uint64) bool {
	if !s.playing {
		return false
	}

	ch := uint64(e.channels)
	left, right := panGains(s.pan)
	fadeFrom := scheduling.FadeStartFrame(s.stopAt, s.stopFade)
	for i := range frames {
		t := e.clock + i
		if s.hasStart && t < s.startAt {
			continue
		}
		if s.hasStop && t >= s.stopAt {
			s.haltLocked()
			return false
		}
		if !s.src.next(s.frame, s.looping) {
			if st, ok := s.src.(*streamSource); ok && !st.end {
				continue
			}
			s.haltLocked()
			return true
		}

		gain := s.volume * s.fader.gainAt(t)
		if s.hasStop && s.stopFade > 0 && t >= fadeFrom {
			gain *= float32(s.stopAt-t) / float32(s.stopFade)
		}
		base := i * ch
		for c := range ch {
			v := s.frame[c%uint64(s.channels)] * gain
			if ch == 2 {
				if c == 0 {
					v *= left
				} else {
					v *= right
				}
			}
			out[base+c] += v
		}
	}
	return false
}

// haltLocked stops the sound and drops any pending schedule.
func (s *soundObj) haltLocked() {
	s.playing = false
	s.hasStart = false
	s.hasStop = false
	s.stopFade = 0
}

func (s *soundObj) stateLocked() native.SoundState {
	now := s.engine.clock
	switch {
	case !s.playing:
		return native.SoundStateStopped
	case s.hasStart && now < s.startAt:
		return native.SoundStateStarting
	case s.hasStop && now < s.stopAt:
		return native.SoundStateStopping
	default:
		return native.SoundStatePlaying
	}
}

// panGains returns linear balance gains for pan in [-1, 1].
func panGains(pan float32) (left, right float32) {
	pan = max(-1, min(1, pan))
	return 1 - max(pan, 0), 1 + min(pan, 0)
}

// fireEnded runs end callbacks with Driver.mu released.
func fireEnded(sounds []*soundObj) {
	for _, s := range sounds {
		s.fireEnd()
	}
}

func (s *soundObj) fireEnd() {
	s.cbMu.RLock()
	defer s.cbMu.RUnlock()
	if s.endCB != nil {
		s.endCB(s.endUser, s.ptr)
	}
}

// decodeSound decodes path into a memory sound that is not yet attached.
func (d *Driver) decodeSound(path string, flags uint32) (*soundObj, native.Result) {
	pcm, err := decoders.DecodeFile(path)
	if err != nil {
		d.log.Debug("sound decode failed",
			logger.String("file", filepath.Base(path)),
			logger.Error(err))
		switch {
		case errors.IsCategory(err, errors.CategoryFileIO):
			return nil, native.ResultDoesNotExist
		case errors.Is(err, decoders.ErrUnsupportedFormat):
			return nil, native.ResultFormatNotSupported
		default:
			return nil, native.ResultInvalidFile
		}
	}
	if pcm.Channels == 0 || pcm.SampleRate == 0 {
		return nil, native.ResultInvalidFile
	}
	return newSoundObj(newMemorySource(pcm.Samples, pcm.Channels), pcm.Channels, pcm.SampleRate, flags), native.ResultSuccess
}

// attach registers s with the engine at e and returns its pointer.
func (d *Driver) attach(e native.Ptr, s *soundObj) (native.Ptr, native.Result) {
	d.mu.Lock()
	defer d.mu.Unlock()
	eng, ok := lookupLocked[*engineObj](d, e)
	if !ok {
		return 0, native.ResultInvalidArgs
	}
	s.engine = eng
	s.ptr = d.registerLocked(s)
	eng.sounds = append(eng.sounds, s)
	return s.ptr, native.ResultSuccess
}

// SoundCreateFromFile implements native.Driver. Files are always decoded up front, so
// the stream, decode and async flags have no effect.
func (d *Driver) SoundCreateFromFile(e native.Ptr, path string, flags uint32) (native.Ptr, native.Result) {
	if path == "" {
		return 0, native.ResultInvalidArgs
	}
	if _, ok := lookup[*engineObj](d, e); !ok {
		return 0, native.ResultInvalidArgs
	}
	s, res := d.decodeSound(path, flags)
	if !res.OK() {
		return 0, res
	}
	return d.attach(e, s)
}

// SoundCreateFromPCMFrames implements native.Driver. The frames are copied.
func (d *Driver) SoundCreateFromPCMFrames(e native.Ptr, frames []float32, frameCount uint64, channels, sampleRate, flags uint32) (native.Ptr, native.Result) {
	if channels == 0 || sampleRate == 0 || uint64(len(frames)) < frameCount*uint64(channels) {
		return 0, native.ResultInvalidArgs
	}
	samples := make([]float32, frameCount*uint64(channels))
	copy(samples, frames)
	return d.attach(e, newSoundObj(newMemorySource(samples, channels), channels, sampleRate, flags))
}

// SoundCreateStream implements native.Driver.
func (d *Driver) SoundCreateStream(e native.Ptr, channels, sampleRate uint32, capacityInFrames uint64, flags uint32) (native.Ptr, native.Result) {
	if channels == 0 || sampleRate == 0 || capacityInFrames == 0 {
		return 0, native.ResultInvalidArgs
	}
	if capacityInFrames > math.MaxInt32/uint64(channels*bytesPerSample) {
		return 0, native.ResultOutOfMemory
	}
	return d.attach(e, newSoundObj(newStreamSource(channels, capacityInFrames), channels, sampleRate, flags&^native.SoundFlagLooping))
}

// SoundDestroy implements native.Driver.
func (d *Driver) SoundDestroy(ptr native.Ptr) {
	d.mu.Lock()
	defer d.mu.Unlock()
	s, ok := lookupLocked[*soundObj](d, ptr)
	if !ok {
		return
	}
	delete(d.objects, ptr)
	s.haltLocked()
	if !s.engine.destroyed {
		s.engine.sounds = removeSound(s.engine.sounds, s)
	}
}

func removeSound(sounds []*soundObj, s *soundObj) []*soundObj {
	for i, cur := range sounds {
		if cur == s {
			return append(sounds[:i:i], sounds[i+1:]...)
		}
	}
	return sounds
}

// withSound runs fn on the sound at ptr with d.mu held.
func withSound[T any](d *Driver, ptr native.Ptr, fallback T, fn func(*soundObj) T) T {
	d.mu.Lock()
	defer d.mu.Unlock()
	s, ok := lookupLocked[*soundObj](d, ptr)
	if !ok {
		return fallback
	}
	return fn(s)
}

func updateSound(d *Driver, ptr native.Ptr, fn func(*soundObj)) {
	withSound(d, ptr, struct{}{}, func(s *soundObj) struct{} {
		fn(s)
		return struct{}{}
	})
}

// SoundStart implements native.Driver. A memory sound at its end restarts from the
// beginning. A pending start time is kept.
func (d *Driver) SoundStart(ptr native.Ptr) native.Result {
	return withSound(d, ptr, native.ResultInvalidArgs, func(s *soundObj) native.Result {
		if s.engine.destroyed {
			return native.ResultInvalidOperation
		}
		if !s.playing {
			s.src.rewindIfAtEnd()
		}
		s.playing = true
		return native.ResultSuccess
	})
}

// SoundStop implements native.Driver.
func (d *Driver) SoundStop(ptr native.Ptr) native.Result {
	return withSound(d, ptr, native.ResultInvalidArgs, func(s *soundObj) native.Result {
		s.haltLocked()
		return native.ResultSuccess
	})
}

// SoundGetState implements native.Driver.
func (d *Driver) SoundGetState(ptr native.Ptr) native.SoundState {
	return withSound(d, ptr, native.SoundStateStopped, (*soundObj).stateLocked)
}

// SoundSetVolume implements native.Driver.
func (d *Driver) SoundSetVolume(ptr native.Ptr, volume float32) {
	updateSound(d, ptr, func(s *soundObj) { s.volume = volume })
}

// SoundGetVolume implements native.Driver.
func (d *Driver) SoundGetVolume(ptr native.Ptr) float32 {
	return withSound(d, ptr, 0, func(s *soundObj) float32 { return s.volume })
}

// SoundSetPitch implements native.Driver. The value is stored only.
func (d *Driver) SoundSetPitch(ptr native.Ptr, pitch float32) {
	updateSound(d, ptr, func(s *soundObj) {
		if pitch > 0 {
			s.pitch = pitch
		}
	})
}

// SoundGetPitch implements native.Driver.
func (d *Driver) SoundGetPitch(ptr native.Ptr) float32 {
	return withSound(d, ptr, 0, func(s *soundObj) float32 { return s.pitch })
}

// SoundSetPan implements native.Driver.
func (d *Driver) SoundSetPan(ptr native.Ptr, pan float32) {
	updateSound(d, ptr, func(s *soundObj) { s.pan = pan })
}

// SoundGetPan implements native.Driver.
func (d *Driver) SoundGetPan(ptr native.Ptr) float32 {
	return withSound(d, ptr, 0, func(s *soundObj) float32 { return s.pan })
}

// SoundSetPosition implements native.Driver.
func (d *Driver) SoundSetPosition(ptr native.Ptr, v native.Vec3) {
	updateSound(d, ptr, func(s *soundObj) { s.position = v })
}

// SoundGetPosition implements native.Driver.
func (d *Driver) SoundGetPosition(ptr native.Ptr) native.Vec3 {
	return withSound(d, ptr, native.Vec3{}, func(s *soundObj) native.Vec3 { return s.position })
}

// SoundSetDirection implements native.Driver.
func (d *Driver) SoundSetDirection(ptr native.Ptr, v native.Vec3) {
	updateSound(d, ptr, func(s *soundObj) { s.direction = v })
}

// SoundGetDirection implements native.Driver.
func (d *Driver) SoundGetDirection(ptr native.Ptr) native.Vec3 {
	return withSound(d, ptr, native.Vec3{}, func(s *soundObj) native.Vec3 { return s.direction })
}

// SoundSetPositioning implements native.Driver.
func (d *Driver) SoundSetPositioning(ptr native.Ptr, p native.Positioning) {
	updateSound(d, ptr, func(s *soundObj) { s.positioning = p })
}

// SoundGetPositioning implements native.Driver.
func (d *Driver) SoundGetPositioning(ptr native.Ptr) native.Positioning {
	return withSound(d, ptr, native.PositioningAbsolute, func(s *soundObj) native.Positioning { return s.positioning })
}

// SoundSetLooping implements native.Driver. Streams never loop.
func (d *Driver) SoundSetLooping(ptr native.Ptr, looping bool) {
	updateSound(d, ptr, func(s *soundObj) {
		if _, stream := s.src.(*streamSource); !stream {
			s.looping = looping
		}
	})
}

// SoundIsLooping implements native.Driver.
func (d *Driver) SoundIsLooping(ptr native.Ptr) bool {
	return withSound(d, ptr, false, func(s *soundObj) bool { return s.looping })
}

// SoundGetSampleRate implements native.Driver.
func (d *Driver) SoundGetSampleRate(ptr native.Ptr) uint32 {
	return withSound(d, ptr, 0, func(s *soundObj) uint32 { return s.sampleRate })
}

// SoundSeekToPCMFrame implements native.Driver.
func (d *Driver) SoundSeekToPCMFrame(ptr native.Ptr, frame uint64) native.Result {
	return withSound(d, ptr, native.ResultInvalidArgs, func(s *soundObj) native.Result {
		return s.src.seek(frame)
	})
}

// SoundGetLengthInPCMFrames implements native.Driver. Streams report zero.
func (d *Driver) SoundGetLengthInPCMFrames(ptr native.Ptr) (uint64, native.Result) {
	return frameQuery(d, ptr, source.length)
}

// SoundGetCursorInPCMFrames implements native.Driver.
func (d *Driver) SoundGetCursorInPCMFrames(ptr native.Ptr) (uint64, native.Result) {
	return frameQuery(d, ptr, source.cursor)
}

func frameQuery(d *Driver, ptr native.Ptr, get func(source) uint64) (uint64, native.Result) {
	d.mu.Lock()
	defer d.mu.Unlock()
	s, ok := lookupLocked[*soundObj](d, ptr)
	if !ok {
		return 0, native.ResultInvalidArgs
	}
	return get(s.src), native.ResultSuccess
}

// SoundSetFadeInPCMFrames implements native.Driver. A negative from fades from the
// current fade volume.
func (d *Driver) SoundSetFadeInPCMFrames(ptr native.Ptr, from, to float32, length uint64) {
	updateSound(d, ptr, func(s *soundObj) {
		now := s.engine.clock
		s.fader.set(now, from, to, length, now)
	})
}

// SoundSetFadeStartInPCMFrames implements native.Driver.
func (d *Driver) SoundSetFadeStartInPCMFrames(ptr native.Ptr, from, to float32, length, absoluteStart uint64) {
	updateSound(d, ptr, func(s *soundObj) {
		s.fader.set(s.engine.clock, from, to, length, absoluteStart)
	})
}

// SoundGetCurrentFadeVolume implements native.Driver.
func (d *Driver) SoundGetCurrentFadeVolume(ptr native.Ptr) float32 {
	return withSound(d, ptr, 0, func(s *soundObj) float32 {
		return s.fader.gainAt(s.engine.clock)
	})
}

// SoundSetStartTimeInPCMFrames implements native.Driver.
func (d *Driver) SoundSetStartTimeInPCMFrames(ptr native.Ptr, absolute uint64) {
	updateSound(d, ptr, func(s *soundObj) {
		s.hasStart = true
		s.startAt = absolute
	})
}

// SoundSetStopTimeInPCMFrames implements native.Driver.
func (d *Driver) SoundSetStopTimeInPCMFrames(ptr native.Ptr, absolute uint64) {
	d.SoundSetStopTimeWithFadeInPCMFrames(ptr, absolute, 0)
}

// SoundSetStopTimeWithFadeInPCMFrames implements native.Driver. The fade begins at
// absoluteStop-fadeLength and the sound is silent from absoluteStop.
func (d *Driver) SoundSetStopTimeWithFadeInPCMFrames(ptr native.Ptr, absoluteStop, fadeLength uint64) {
	updateSound(d, ptr, func(s *soundObj) {
		s.hasStop = true
		s.stopAt = absoluteStop
		s.stopFade = fadeLength
	})
}

// SoundSetEndCallback implements native.Driver.
func (d *Driver) SoundSetEndCallback(ptr native.Ptr, cb native.EndCallback, userData uintptr) native.Result {
	s, ok := lookup[*soundObj](d, ptr)
	if !ok {
		return native.ResultInvalidArgs
	}
	s.cbMu.Lock()
	defer s.cbMu.Unlock()
	s.endCB = cb
	s.endUser = userData
	if cb == nil {
		s.endUser = 0
	}
	return native.ResultSuccess
}
