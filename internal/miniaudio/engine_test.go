package miniaudio

import (
	"math"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tphakala/go-miniaudio/internal/native"
	"github.com/tphakala/go-miniaudio/internal/native/softengine"
	"github.com/tphakala/go-miniaudio/internal/native/softengine/decoders"
)

func TestEngineOptionsValidateBeforeNativeCalls(t *testing.T) {
	t.Parallel()

	blank := "  "
	tests := []struct {
		name string
		opts EngineOptions
	}{
		{"no device without rate", EngineOptions{NoDevice: true, Channels: 2}},
		{"no device without channels", EngineOptions{NoDevice: true, SampleRate: 48000}},
		{"blank device id", EngineOptions{PlaybackDeviceID: &blank}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			// Any native call would panic on the empty mock.
			e, err := NewEngine(&mockDriver{}, &tt.opts)
			assert.Nil(t, e)
			assert.ErrorIs(t, err, ErrInvalidArgument)
		})
	}

	_, err := NewEngine(nil, nil)
	assert.ErrorIs(t, err, ErrInvalidArgument)
}

func TestEngineDefaultWithoutBackendFails(t *testing.T) {
	t.Parallel()

	_, err := NewEngine(newDriver(), nil)
	require.ErrorIs(t, err, ErrConstruction)

	var re *ResultError
	require.ErrorAs(t, err, &re)
	assert.Equal(t, native.ResultNoBackend, re.Code)
	assert.Equal(t, "ma_engine_init", re.Op)
}

func TestEngineDefaultCreateAndClose(t *testing.T) {
	t.Parallel()

	d := &mockDriver{}
	const ptr = native.Ptr(0x300)
	d.On("EngineCreateDefault").Return(ptr, native.ResultSuccess).Once()
	d.On("EngineDestroy", ptr).Once()

	e, err := NewEngine(d, nil)
	require.NoError(t, err)
	require.NoError(t, e.Close())
	require.NoError(t, e.Close())
	d.AssertExpectations(t)
}

func TestEngineVolumeGainAndTime(t *testing.T) {
	t.Parallel()

	e := newOfflineEngine(t, 48000, 2)

	rate, err := e.SampleRate()
	require.NoError(t, err)
	assert.Equal(t, uint32(48000), rate)
	ch, err := e.Channels()
	require.NoError(t, err)
	assert.Equal(t, uint32(2), ch)

	require.NoError(t, e.SetVolume(0.5))
	v, err := e.Volume()
	require.NoError(t, err)
	assert.InDelta(t, 0.5, v, 1e-6)
	assert.ErrorIs(t, e.SetVolume(-1), ErrInvalidArgument)
	assert.ErrorIs(t, e.SetVolume(float32(math.NaN())), ErrInvalidArgument)

	require.NoError(t, e.SetGainDb(-6.0206))
	v, err = e.Volume()
	require.NoError(t, err)
	assert.InDelta(t, 0.5, v, 1e-4)
	db, err := e.GainDb()
	require.NoError(t, err)
	assert.InDelta(t, -6.02, db, 0.01)

	require.NoError(t, e.SetTime(1500*time.Millisecond))
	frames, err := e.TimeInPCMFrames()
	require.NoError(t, err)
	assert.Equal(t, uint64(72000), frames)

	require.NoError(t, e.SetTimeInPCMFrames(96000))
	now, err := e.Time()
	require.NoError(t, err)
	assert.Equal(t, 2*time.Second, now)

	require.NoError(t, e.SetTime(-time.Second))
	frames, err = e.TimeInPCMFrames()
	require.NoError(t, err)
	assert.Zero(t, frames)
}

func TestAbsoluteTimeInFrames(t *testing.T) {
	t.Parallel()

	e := newOfflineEngine(t, 1000, 1)
	require.NoError(t, e.SetTimeInPCMFrames(500))

	tests := []struct {
		offset time.Duration
		want   uint64
	}{
		{time.Second, 1500},
		{0, 500},
		{-time.Second, 500},
		{1600 * time.Microsecond, 502},
		{1400 * time.Microsecond, 501},
		{1500 * time.Microsecond, 502},
	}
	for _, tt := range tests {
		got, err := e.AbsoluteTimeInFrames(tt.offset)
		require.NoError(t, err)
		assert.Equal(t, tt.want, got, "offset %v", tt.offset)
	}
}

func TestReadPCMFrames(t *testing.T) {
	t.Parallel()

	e := newOfflineEngine(t, 1000, 2)
	_, err := e.ReadPCMFrames(make([]float32, 3))
	assert.ErrorIs(t, err, ErrInvalidArgument)

	n, err := e.ReadPCMFrames(nil)
	require.NoError(t, err)
	assert.Zero(t, n)

	out := renderFrames(t, e, 4)
	assert.Equal(t, make([]float32, 8), out, "an empty engine renders silence")
	now, err := e.TimeInPCMFrames()
	require.NoError(t, err)
	assert.Equal(t, uint64(4), now)
}

func TestEngineListeners(t *testing.T) {
	t.Parallel()

	e := newOfflineEngine(t, 48000, 2)

	count, err := e.ListenerCount()
	require.NoError(t, err)
	require.Equal(t, uint32(1), count)

	dir, err := e.ListenerDirection(0)
	require.NoError(t, err)
	assert.Equal(t, Vec3{Z: -1}, dir)
	up, err := e.ListenerWorldUp(0)
	require.NoError(t, err)
	assert.Equal(t, Vec3{Y: 1}, up)

	require.NoError(t, e.SetListenerPosition(0, Vec3{X: 1, Y: 2, Z: 3}))
	pos, err := e.ListenerPosition(0)
	require.NoError(t, err)
	assert.Equal(t, Vec3{X: 1, Y: 2, Z: 3}, pos)

	require.NoError(t, e.SetListenerVelocity(0, Vec3{X: 4}))
	vel, err := e.ListenerVelocity(0)
	require.NoError(t, err)
	assert.Equal(t, Vec3{X: 4}, vel)

	require.NoError(t, e.SetListenerDirection(0, Vec3{X: 1}))
	require.NoError(t, e.SetListenerWorldUp(0, Vec3{Z: 1}))
	dir, err = e.ListenerDirection(0)
	require.NoError(t, err)
	assert.Equal(t, Vec3{X: 1}, dir)

	cone := ListenerCone{Inner: 1, Outer: 2, OuterGain: 0.5}
	require.NoError(t, e.SetListenerCone(0, cone))
	got, err := e.ListenerCone(0)
	require.NoError(t, err)
	assert.Equal(t, cone, got)

	require.NoError(t, e.SetListenerEnabled(0, false))
	enabled, err := e.IsListenerEnabled(0)
	require.NoError(t, err)
	assert.False(t, enabled)
	require.NoError(t, e.SetListenerEnabled(0, true))

	closest, err := e.FindClosestListener(Vec3{X: 100})
	require.NoError(t, err)
	assert.Zero(t, closest)

	assert.ErrorIs(t, e.SetListenerPosition(1, Vec3{}), ErrInvalidArgument)
	_, err = e.ListenerCone(4)
	assert.ErrorIs(t, err, ErrInvalidArgument)
}

func TestEngineClosedRejectsCalls(t *testing.T) {
	t.Parallel()

	d := newDriver()
	e, err := NewEngine(d, &EngineOptions{NoDevice: true, SampleRate: 1000, Channels: 1})
	require.NoError(t, err)
	require.NoError(t, e.Close())
	require.NoError(t, e.Close())
	assert.Zero(t, d.Live())

	_, err = e.Volume()
	assert.ErrorIs(t, err, ErrDisposed)
	assert.ErrorIs(t, e.Start(), ErrDisposed)
	_, err = e.NewSoundFromPCMFrames([]float32{1}, 1, 1000, 0)
	assert.ErrorIs(t, err, ErrDisposed)
	_, err = e.AbsoluteTimeInFrames(time.Second)
	assert.ErrorIs(t, err, ErrDisposed)
}

func TestEngineOnDeviceWithBorrowedContext(t *testing.T) {
	t.Parallel()

	b := softengine.NewManualBackend([]softengine.DeviceInfo{{Name: "Speaker", ID: "spk", IsDefault: true}}, nil)
	d := softengine.New(softengine.WithLogger(quietLogger()), softengine.WithBackendFactory(b.Factory()))

	ctx, err := NewContext(d, BackendALSA)
	require.NoError(t, err)
	rm, err := NewResourceManager(d, nil)
	require.NoError(t, err)

	id := " spk "
	e, err := NewEngine(d, &EngineOptions{
		Context:          ctx,
		ResourceManager:  rm,
		PlaybackDeviceID: &id,
		SampleRate:       1000,
		Channels:         1,
		NoAutoStart:      true,
	})
	require.NoError(t, err)

	dev := b.Playback()
	require.NotNil(t, dev)
	assert.Equal(t, "spk", dev.Config().DeviceID, "the device id is trimmed")
	assert.False(t, dev.Running())

	_, err = e.ReadPCMFrames(make([]float32, 4))
	assert.ErrorIs(t, err, ErrNative, "device engines cannot be read offline")

	s, err := e.NewSoundFromPCMFrames([]float32{1, 1}, 1, 1000, 0)
	require.NoError(t, err)
	require.NoError(t, s.Start())
	require.NoError(t, e.Start())
	assert.Equal(t, []float32{1, 1, 0}, dev.Pull(3))

	require.NoError(t, e.Stop())
	assert.Nil(t, dev.Pull(1))

	require.NoError(t, s.Close())
	require.NoError(t, e.Close())
	assert.True(t, dev.Closed())
	assert.False(t, ctx.Closed(), "borrowed objects survive the engine")
	require.NoError(t, rm.Close())
	require.NoError(t, ctx.Close())
	assert.Zero(t, d.Live())
}

func TestEngineRejectsClosedContext(t *testing.T) {
	t.Parallel()

	d := newDriver()
	ctx, err := NewContext(d)
	require.NoError(t, err)
	require.NoError(t, ctx.Close())

	_, err = NewEngine(d, &EngineOptions{Context: ctx, NoDevice: true, SampleRate: 1000, Channels: 1})
	assert.ErrorIs(t, err, ErrDisposed)
}

func TestEnginePlaysFileFireAndForget(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "ping.wav")
	f, err := os.Create(path)
	require.NoError(t, err)
	require.NoError(t, decoders.EncodeWAV(f, []float32{0.25, 0.25}, 1, 1000))
	require.NoError(t, f.Close())

	e := newOfflineEngine(t, 1000, 1)
	require.NoError(t, e.Play(path))
	out := renderFrames(t, e, 3)
	assert.InDelta(t, 0.25, out[0], 1e-3)
	assert.Zero(t, out[2])

	assert.ErrorIs(t, e.Play(" "), ErrInvalidArgument)
	assert.ErrorIs(t, e.Play(filepath.Join(t.TempDir(), "missing.wav")), ErrNative)
}
