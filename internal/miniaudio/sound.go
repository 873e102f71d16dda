package miniaudio

import (
	"math"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/tphakala/go-miniaudio/internal/callback"
	"github.com/tphakala/go-miniaudio/internal/handle"
	"github.com/tphakala/go-miniaudio/internal/logger"
	"github.com/tphakala/go-miniaudio/internal/native"
	"github.com/tphakala/go-miniaudio/internal/scheduling"
)

// Source paths reported for sounds that were not loaded from a file.
const (
	sourcePCMMemory = "pcm:memory"
	sourcePCMStream = "pcm:stream"
)

// EndedHandler is called on the engine's audio thread when a sound reaches the end of
// its data. It must return quickly and must not Close the sound it is called for.
type EndedHandler func(s *Sound)

// Subscription is returned by OnEnded and CaptureDevice.OnData.
type Subscription interface {
	// Unsubscribe removes the handler. Calling it again is a no-op.
	Unsubscribe() error
}

type subscription struct {
	once   sync.Once
	cancel func() error
	err    error
}

func (s *subscription) Unsubscribe() error {
	s.once.Do(func() { s.err = s.cancel() })
	return s.err
}

var soundRegistry = callback.NewRegistry[*Sound]("sound", hooks)

// onSoundEnded is the native end callback shared by every sound.
func onSoundEnded(userData uintptr, _ native.Ptr) {
	s, ok := soundRegistry.Lookup(callback.Token(userData))
	if !ok {
		return
	}
	s.dispatchEnded()
}

type endedEntry struct {
	id uint64
	fn EndedHandler
}

// Sound is a playable sound attached to an engine.
type Sound struct {
	engine *Engine
	driver native.Driver
	h      *handle.Handle
	source string
	log    logger.Logger

	// installMu serialises installing and removing the native end callback. It is
	// never held while a handler may need it.
	installMu sync.Mutex
	installed atomic.Bool
	closing   atomic.Bool
	closeOnce sync.Once
	token     callback.Token

	subMu      sync.RWMutex
	handlers   []endedEntry
	nextID     uint64
	inDispatch atomic.Int32
}

func newSound(e *Engine, h *handle.Handle, source string) *Sound {
	return &Sound{
		engine: e,
		driver: e.driver,
		h:      h,
		source: source,
		log:    GetLogger().Module("sound"),
	}
}

// Engine returns the engine the sound plays on.
func (s *Sound) Engine() *Engine { return s.engine }

// SourcePath returns the file the sound was loaded from, or pcm:memory and pcm:stream
// for sounds created from frames.
func (s *Sound) SourcePath() string { return s.source }

// Close removes the end callback, destroys the sound and frees its callback token.
// Close waits for an end callback that is already running, so it must not be called
// from an EndedHandler of the same sound. Handlers that subscribe while Close runs get
// ErrDisposed. It is safe to call more than once.
func (s *Sound) Close() error {
	s.closeOnce.Do(s.close)
	return nil
}

func (s *Sound) close() {
	s.installMu.Lock()
	s.closing.Store(true)
	installed := s.installed.Load()
	token := s.token
	s.installMu.Unlock()

	keepToken := false
	if installed {
		// Blocks until an in-flight end callback has returned.
		if err := s.setEndCallback(nil, 0); err != nil {
			// The native side may still hold the token; leave it resolvable.
			keepToken = true
			s.log.Warn("failed to remove end callback", logger.Error(err))
		}
		s.installed.Store(false)
	}

	s.subMu.Lock()
	s.handlers = nil
	s.subMu.Unlock()

	s.h.Release()

	if token != 0 && !keepToken {
		soundRegistry.Unregister(token)
	}
}

func (s *Sound) setEndCallback(cb native.EndCallback, tok callback.Token) error {
	return call(s.driver, s.h, "ma_sound_set_end_callback", func(p native.Ptr) native.Result {
		return s.driver.SoundSetEndCallback(p, cb, uintptr(tok))
	})
}

// OnEnded subscribes fn to the end of playback. The native callback is installed with
// the first subscription and removed with the last.
func (s *Sound) OnEnded(fn EndedHandler) (Subscription, error) {
	const op = "sound_on_ended"
	if s.closing.Load() || s.h.Released() {
		return nil, disposedError("sound", op)
	}
	if fn == nil {
		return nil, argumentError(op, "handler is nil")
	}

	// Handlers re-arming from inside a dispatch must not wait on installMu: a
	// concurrent removal holds it while waiting for that dispatch to return.
	var (
		id uint64
		ok bool
	)
	if s.inDispatch.Load() > 0 && s.installed.Load() {
		if id, ok = s.addHandler(fn); !ok {
			return nil, disposedError("sound", op)
		}
		if s.installed.Load() {
			return s.subscription(id), nil
		}
	}

	s.installMu.Lock()
	defer s.installMu.Unlock()
	if id == 0 {
		id, ok = s.addHandler(fn)
	}
	if !ok || s.h.Released() {
		s.removeHandler(id)
		return nil, disposedError("sound", op)
	}

	if !s.installed.Load() {
		if s.token == 0 {
			s.token = soundRegistry.Register(s)
		}
		if err := s.setEndCallback(onSoundEnded, s.token); err != nil {
			s.removeHandler(id)
			return nil, err
		}
		s.installed.Store(true)
	}
	return s.subscription(id), nil
}

// addHandler appends fn unless the sound is closing. Close clears the handlers after
// setting closing, so a handler added here is never left behind.
func (s *Sound) addHandler(fn EndedHandler) (uint64, bool) {
	s.subMu.Lock()
	defer s.subMu.Unlock()
	if s.closing.Load() {
		return 0, false
	}
	s.nextID++
	s.handlers = append(s.handlers, endedEntry{id: s.nextID, fn: fn})
	return s.nextID, true
}

func (s *Sound) subscription(id uint64) Subscription {
	return &subscription{cancel: func() error { return s.unsubscribe(id) }}
}

func (s *Sound) removeHandler(id uint64) int {
	s.subMu.Lock()
	defer s.subMu.Unlock()
	s.handlers = slices.DeleteFunc(s.handlers, func(e endedEntry) bool { return e.id == id })
	return len(s.handlers)
}

func (s *Sound) handlerCount() int {
	s.subMu.RLock()
	defer s.subMu.RUnlock()
	return len(s.handlers)
}

func (s *Sound) unsubscribe(id uint64) error {
	// Removing the callback from inside one of its own handlers would wait on itself,
	// so while a dispatch runs it stays installed with no handlers until the next
	// subscription or Close.
	if s.removeHandler(id) > 0 || s.inDispatch.Load() > 0 {
		return nil
	}

	s.installMu.Lock()
	defer s.installMu.Unlock()

	if s.handlerCount() > 0 || !s.installed.Load() || s.closing.Load() || s.h.Released() {
		return nil
	}
	if err := s.setEndCallback(nil, 0); err != nil {
		return err
	}
	s.installed.Store(false)
	// A handler of the dispatch the removal waited for may have subscribed again.
	if s.handlerCount() > 0 {
		if err := s.setEndCallback(onSoundEnded, s.token); err != nil {
			return err
		}
		s.installed.Store(true)
	}
	return nil
}

func (s *Sound) dispatchEnded() {
	s.inDispatch.Add(1)
	defer s.inDispatch.Add(-1)

	s.subMu.RLock()
	handlers := slices.Clone(s.handlers)
	s.subMu.RUnlock()

	for _, e := range handlers {
		callback.InvokeCounted(s.log, hooks, "sound.ended", func() { e.fn(s) })
	}
}

// State returns the playback state.
func (s *Sound) State() (SoundState, error) {
	st, err := query(s.h, "ma_sound_get_state", s.driver.SoundGetState)
	return SoundState(st), err
}

// IsPlaying reports whether the sound is playing or scheduled to start.
func (s *Sound) IsPlaying() (bool, error) {
	st, err := s.State()
	return st != SoundStateStopped, err
}

// Start starts playback. A sound that played to its end restarts from the beginning.
func (s *Sound) Start() error {
	return call(s.driver, s.h, "ma_sound_start", s.driver.SoundStart)
}

// Stop stops playback immediately, keeping the cursor.
func (s *Sound) Stop() error {
	return call(s.driver, s.h, "ma_sound_stop", s.driver.SoundStop)
}

func (s *Sound) engineSampleRate() (uint32, error) {
	return s.engine.SampleRate()
}

// ScheduleStartAt starts the sound when the engine clock reaches frame. Later schedules
// replace earlier ones.
func (s *Sound) ScheduleStartAt(frame uint64) error {
	return pinned(s.h, "ma_sound_set_start_time_in_pcm_frames", func(p native.Ptr) error {
		s.driver.SoundSetStartTimeInPCMFrames(p, frame)
		return nil
	})
}

// ScheduleStartIn starts the sound delay from now on the engine clock.
func (s *Sound) ScheduleStartIn(delay time.Duration) error {
	frame, err := s.engine.AbsoluteTimeInFrames(delay)
	if err != nil {
		return err
	}
	return s.ScheduleStartAt(frame)
}

// ScheduleStopAt stops the sound when the engine clock reaches frame. A positive fade
// ramps the volume to silence over the fade, ending exactly at frame.
func (s *Sound) ScheduleStopAt(frame uint64, fade time.Duration) error {
	rate, err := s.engineSampleRate()
	if err != nil {
		return err
	}
	fadeFrames := scheduling.FramesFromDuration(fade, rate)
	return pinned(s.h, "ma_sound_set_stop_time_with_fade_in_pcm_frames", func(p native.Ptr) error {
		if fadeFrames == 0 {
			s.driver.SoundSetStopTimeInPCMFrames(p, frame)
		} else {
			s.driver.SoundSetStopTimeWithFadeInPCMFrames(p, frame, fadeFrames)
		}
		return nil
	})
}

// ScheduleStopIn stops the sound delay from now, fading out over fade.
func (s *Sound) ScheduleStopIn(delay, fade time.Duration) error {
	frame, err := s.engine.AbsoluteTimeInFrames(delay)
	if err != nil {
		return err
	}
	return s.ScheduleStopAt(frame, fade)
}

// ApplyFade fades the volume from from to to over length, starting now. A negative from
// starts at the current fade volume.
func (s *Sound) ApplyFade(from, to float32, length time.Duration) error {
	rate, err := s.engineSampleRate()
	if err != nil {
		return err
	}
	return s.ApplyFadeFrames(from, to, scheduling.FramesFromDuration(length, rate))
}

// ApplyFadeFrames fades the volume over lengthFrames engine frames, starting now.
func (s *Sound) ApplyFadeFrames(from, to float32, lengthFrames uint64) error {
	return pinned(s.h, "ma_sound_set_fade_in_pcm_frames", func(p native.Ptr) error {
		s.driver.SoundSetFadeInPCMFrames(p, from, to, lengthFrames)
		return nil
	})
}

// ApplyFadeIn schedules a fade that starts delay from now on the engine clock.
func (s *Sound) ApplyFadeIn(from, to float32, delay, length time.Duration) error {
	rate, err := s.engineSampleRate()
	if err != nil {
		return err
	}
	start, err := s.engine.AbsoluteTimeInFrames(delay)
	if err != nil {
		return err
	}
	lengthFrames := scheduling.FramesFromDuration(length, rate)
	return pinned(s.h, "ma_sound_set_fade_start_in_pcm_frames", func(p native.Ptr) error {
		s.driver.SoundSetFadeStartInPCMFrames(p, from, to, lengthFrames, start)
		return nil
	})
}

// CurrentFadeVolume returns the fade gain at the current engine time.
func (s *Sound) CurrentFadeVolume() (float32, error) {
	return query(s.h, "ma_sound_get_current_fade_volume", s.driver.SoundGetCurrentFadeVolume)
}

// SeekToFrame moves the read cursor to frame.
func (s *Sound) SeekToFrame(frame uint64) error {
	return call(s.driver, s.h, "ma_sound_seek_to_pcm_frame", func(p native.Ptr) native.Result {
		return s.driver.SoundSeekToPCMFrame(p, frame)
	})
}

// SeekToStart rewinds the sound.
func (s *Sound) SeekToStart() error {
	return s.SeekToFrame(0)
}

func (s *Sound) frameQuery(op string, fn func(native.Ptr) (uint64, native.Result)) (uint64, error) {
	var v uint64
	err := pinned(s.h, op, func(p native.Ptr) error {
		n, r := fn(p)
		v = n
		return checkResult(s.driver, op, r)
	})
	return v, err
}

// LengthInFrames returns the length in the sound's own sample rate.
func (s *Sound) LengthInFrames() (uint64, error) {
	return s.frameQuery("ma_sound_get_length_in_pcm_frames", s.driver.SoundGetLengthInPCMFrames)
}

// CursorInFrames returns the read cursor in the sound's own sample rate.
func (s *Sound) CursorInFrames() (uint64, error) {
	return s.frameQuery("ma_sound_get_cursor_in_pcm_frames", s.driver.SoundGetCursorInPCMFrames)
}

// LengthInSeconds returns the length in seconds. A zero sample rate reports 0.
func (s *Sound) LengthInSeconds() (float64, error) {
	frames, err := s.LengthInFrames()
	if err != nil {
		return 0, err
	}
	rate, err := s.SampleRate()
	return scheduling.FramesToSeconds(frames, rate), err
}

// CursorInSeconds returns the read cursor in seconds.
func (s *Sound) CursorInSeconds() (float64, error) {
	frames, err := s.CursorInFrames()
	if err != nil {
		return 0, err
	}
	rate, err := s.SampleRate()
	return scheduling.FramesToSeconds(frames, rate), err
}

// Progress returns cursor/length in [0, 1], or 0 when the length is unknown.
func (s *Sound) Progress() (float64, error) {
	cursor, err := s.CursorInFrames()
	if err != nil {
		return 0, err
	}
	length, err := s.LengthInFrames()
	if err != nil {
		return 0, err
	}
	return scheduling.Progress(cursor, length), nil
}

// SampleRate returns the sample rate of the sound's data.
func (s *Sound) SampleRate() (uint32, error) {
	return query(s.h, "ma_sound_get_sample_rate", s.driver.SoundGetSampleRate)
}

func (s *Sound) set(op string, fn func(native.Ptr)) error {
	return pinned(s.h, op, func(p native.Ptr) error {
		fn(p)
		return nil
	})
}

// Volume returns the linear volume.
func (s *Sound) Volume() (float32, error) {
	return query(s.h, "ma_sound_get_volume", s.driver.SoundGetVolume)
}

// SetVolume sets the linear volume.
func (s *Sound) SetVolume(v float32) error {
	return s.set("ma_sound_set_volume", func(p native.Ptr) { s.driver.SoundSetVolume(p, v) })
}

// Pitch returns the pitch multiplier.
func (s *Sound) Pitch() (float32, error) {
	return query(s.h, "ma_sound_get_pitch", s.driver.SoundGetPitch)
}

// SetPitch sets the pitch multiplier, which must be greater than zero.
func (s *Sound) SetPitch(pitch float32) error {
	const op = "ma_sound_set_pitch"
	if pitch <= 0 || math.IsNaN(float64(pitch)) {
		return argumentError(op, "pitch %v must be greater than zero", pitch)
	}
	return s.set(op, func(p native.Ptr) { s.driver.SoundSetPitch(p, pitch) })
}

// Pan returns the stereo pan in [-1, 1].
func (s *Sound) Pan() (float32, error) {
	return query(s.h, "ma_sound_get_pan", s.driver.SoundGetPan)
}

// SetPan sets the stereo pan; -1 is hard left and 1 hard right.
func (s *Sound) SetPan(pan float32) error {
	return s.set("ma_sound_set_pan", func(p native.Ptr) { s.driver.SoundSetPan(p, pan) })
}

// Position returns the sound position.
func (s *Sound) Position() (Vec3, error) {
	v, err := query(s.h, "ma_sound_get_position", s.driver.SoundGetPosition)
	return vec3FromNative(v), err
}

// SetPosition sets the sound position.
func (s *Sound) SetPosition(v Vec3) error {
	return s.set("ma_sound_set_position", func(p native.Ptr) { s.driver.SoundSetPosition(p, v.toNative()) })
}

// Direction returns the sound direction.
func (s *Sound) Direction() (Vec3, error) {
	v, err := query(s.h, "ma_sound_get_direction", s.driver.SoundGetDirection)
	return vec3FromNative(v), err
}

// SetDirection sets the sound direction.
func (s *Sound) SetDirection(v Vec3) error {
	return s.set("ma_sound_set_direction", func(p native.Ptr) { s.driver.SoundSetDirection(p, v.toNative()) })
}

// Positioning returns the positioning mode.
func (s *Sound) Positioning() (Positioning, error) {
	pos, err := query(s.h, "ma_sound_get_positioning", s.driver.SoundGetPositioning)
	return Positioning(pos), err
}

// SetPositioning sets the positioning mode.
func (s *Sound) SetPositioning(pos Positioning) error {
	return s.set("ma_sound_set_positioning", func(p native.Ptr) {
		s.driver.SoundSetPositioning(p, native.Positioning(pos))
	})
}

// Looping reports whether the sound loops.
func (s *Sound) Looping() (bool, error) {
	return query(s.h, "ma_sound_is_looping", s.driver.SoundIsLooping)
}

// SetLooping enables or disables looping.
func (s *Sound) SetLooping(looping bool) error {
	return s.set("ma_sound_set_looping", func(p native.Ptr) { s.driver.SoundSetLooping(p, looping) })
}
