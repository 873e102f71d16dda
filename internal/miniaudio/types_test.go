package miniaudio

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseBackend(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		want Backend
	}{
		{"alsa", BackendALSA},
		{" PulseAudio ", BackendPulseAudio},
		{"pulse", BackendPulseAudio},
		{"wasapi", BackendWasapi},
		{"null", BackendNull},
		{"opensles", BackendOpenSLES},
	}
	for _, tt := range tests {
		got, err := ParseBackend(tt.in)
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}

	_, err := ParseBackend("beeper")
	assert.ErrorIs(t, err, ErrInvalidArgument)
}

func TestBackendStringRoundTrips(t *testing.T) {
	t.Parallel()

	for b := BackendWasapi; b <= BackendNull; b++ {
		got, err := ParseBackend(b.String())
		require.NoError(t, err)
		assert.Equal(t, b, got)
	}
	assert.Equal(t, "backend(99)", Backend(99).String())
	assert.Equal(t, Backend(14), BackendNull)
}

func TestSoundInitFlags(t *testing.T) {
	t.Parallel()

	f := SoundFlagDecode | SoundFlagLooping
	assert.True(t, f.Has(SoundFlagDecode))
	assert.True(t, f.Has(SoundFlagDecode|SoundFlagLooping))
	assert.False(t, f.Has(SoundFlagStream))
	assert.Equal(t, "decode|looping", f.String())
	assert.Equal(t, "none", SoundInitFlags(0).String())
	assert.Equal(t, "no-pitch|0x80000000", (SoundFlagNoPitch | 0x8000_0000).String())
	assert.Equal(t, uint32(0x4000), uint32(SoundFlagNoSpatialization))
}

func TestEnumStrings(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "stopping", SoundStateStopping.String())
	assert.Equal(t, "capture", DeviceKindCapture.String())
	assert.Equal(t, "f32", SampleFormatF32.String())
	assert.Equal(t, SampleFormat(5), SampleFormatF32)
}
