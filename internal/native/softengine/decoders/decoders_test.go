package decoders

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tphakala/go-miniaudio/internal/errors"
)

func writeWAV(t *testing.T, name string, samples []float32, channels, rate uint32) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	f, err := os.Create(path)
	require.NoError(t, err)
	require.NoError(t, EncodeWAV(f, samples, channels, rate))
	require.NoError(t, f.Close())
	return path
}

func TestWAVRoundTrip(t *testing.T) {
	t.Parallel()

	in := []float32{0, 0.5, -0.5, 1, 0.25, -1}
	path := writeWAV(t, "clip.wav", in, 2, 22050)

	pcm, err := DecodeFile(path)
	require.NoError(t, err)
	assert.Equal(t, uint32(2), pcm.Channels)
	assert.Equal(t, uint32(22050), pcm.SampleRate)
	assert.Equal(t, uint64(3), pcm.Frames())
	require.Len(t, pcm.Samples, len(in))
	for i := range in {
		assert.InDelta(t, in[i], pcm.Samples[i], 1e-3, "sample %d", i)
	}
}

func TestEncodeWAVClipsOutOfRange(t *testing.T) {
	t.Parallel()

	path := writeWAV(t, "loud.wav", []float32{3, -3}, 1, 8000)
	pcm, err := DecodeFile(path)
	require.NoError(t, err)
	assert.InDelta(t, 1, pcm.Samples[0], 1e-3)
	assert.InDelta(t, -1, pcm.Samples[1], 1e-3)
}

func TestEncodeWAVRejectsBadFormat(t *testing.T) {
	t.Parallel()

	f, err := os.Create(filepath.Join(t.TempDir(), "x.wav"))
	require.NoError(t, err)
	defer f.Close()
	assert.Error(t, EncodeWAV(f, nil, 0, 48000))
	assert.Error(t, EncodeWAV(f, nil, 2, 0))
}

func TestSniff(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		data []byte
		want Format
	}{
		{"wav", []byte("RIFF....WAVE"), FormatWAV},
		{"flac", []byte("fLaC\x00"), FormatFLAC},
		{"ogg", []byte("OggS\x00"), FormatVorbis},
		{"mp3 id3", []byte("ID3\x04"), FormatMP3},
		{"mp3 sync", []byte{0xFF, 0xFB, 0x90, 0x00}, FormatMP3},
		{"short", []byte("RI"), FormatUnknown},
		{"text", []byte("hello"), FormatUnknown},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			r := bytes.NewReader(tt.data)
			got, err := Sniff(r)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			pos, _ := r.Seek(0, 1)
			assert.Zero(t, pos, "Sniff must rewind")
		})
	}
}

func TestDecodeFileErrors(t *testing.T) {
	t.Parallel()

	_, err := DecodeFile(filepath.Join(t.TempDir(), "missing.wav"))
	require.Error(t, err)
	assert.True(t, errors.IsCategory(err, errors.CategoryFileIO))

	junk := filepath.Join(t.TempDir(), "notes.txt")
	require.NoError(t, os.WriteFile(junk, []byte("not audio"), 0o600))
	_, err = DecodeFile(junk)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnsupportedFormat)
	assert.True(t, errors.IsCategory(err, errors.CategoryFileParsing))
}

func TestFormatFromExtension(t *testing.T) {
	t.Parallel()

	assert.Equal(t, FormatWAV, formatFromExtension("a.WAV"))
	assert.Equal(t, FormatFLAC, formatFromExtension("/x/y.flac"))
	assert.Equal(t, FormatMP3, formatFromExtension("song.mp3"))
	assert.Equal(t, FormatVorbis, formatFromExtension("song.oga"))
	assert.Equal(t, FormatUnknown, formatFromExtension("song"))
}

func TestPCMFrames(t *testing.T) {
	t.Parallel()

	var nilPCM *PCM
	assert.Zero(t, nilPCM.Frames())
	assert.Zero(t, (&PCM{Samples: []float32{1, 2}}).Frames())
	assert.Equal(t, uint64(2), (&PCM{Samples: []float32{1, 2, 3, 4, 5}, Channels: 2}).Frames())
}
