package devices

import (
	"bytes"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tphakala/go-miniaudio/internal/logger"
	"github.com/tphakala/go-miniaudio/internal/miniaudio"
	"github.com/tphakala/go-miniaudio/internal/native/softengine"
)

func TestParseKinds(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in      string
		want    []miniaudio.DeviceKind
		wantErr bool
	}{
		{in: "all", want: []miniaudio.DeviceKind{miniaudio.DeviceKindPlayback, miniaudio.DeviceKindCapture}},
		{in: "", want: []miniaudio.DeviceKind{miniaudio.DeviceKindPlayback, miniaudio.DeviceKindCapture}},
		{in: " Playback ", want: []miniaudio.DeviceKind{miniaudio.DeviceKindPlayback}},
		{in: "capture", want: []miniaudio.DeviceKind{miniaudio.DeviceKindCapture}},
		{in: "both", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			t.Parallel()
			got, err := ParseKinds(tt.in)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func quiet() logger.Logger {
	return logger.NewSlogLogger(io.Discard, logger.LogLevelError, time.UTC)
}

func TestListNullDevices(t *testing.T) {
	t.Parallel()

	ctx, err := miniaudio.NewContext(softengine.New(softengine.WithLogger(quiet())))
	require.NoError(t, err)
	defer func() { assert.NoError(t, ctx.Close()) }()

	kinds, err := ParseKinds("all")
	require.NoError(t, err)

	var out bytes.Buffer
	require.NoError(t, List(&out, ctx, kinds))
	assert.Equal(t,
		"playback devices:\n"+
			"  1. Null Playback Device [default]\n"+
			"     id: null\n"+
			"\n"+
			"capture devices:\n"+
			"  1. Null Capture Device [default]\n"+
			"     id: null\n",
		out.String())
}

func TestListEmptyKind(t *testing.T) {
	t.Parallel()

	mb := softengine.NewManualBackend([]softengine.DeviceInfo{{Name: "Speakers", ID: "spk"}}, []softengine.DeviceInfo{})
	ctx, err := miniaudio.NewContext(softengine.New(softengine.WithBackendFactory(mb.Factory()), softengine.WithLogger(quiet())))
	require.NoError(t, err)
	defer func() { assert.NoError(t, ctx.Close()) }()

	var out bytes.Buffer
	require.NoError(t, List(&out, ctx, []miniaudio.DeviceKind{miniaudio.DeviceKindCapture, miniaudio.DeviceKindPlayback}))
	assert.Equal(t,
		"capture devices:\n  (none)\n\nplayback devices:\n  1. Speakers\n     id: spk\n",
		out.String())
}

func TestListClosedContext(t *testing.T) {
	t.Parallel()

	ctx, err := miniaudio.NewContext(softengine.New(softengine.WithLogger(quiet())))
	require.NoError(t, err)
	require.NoError(t, ctx.Close())

	err = List(io.Discard, ctx, []miniaudio.DeviceKind{miniaudio.DeviceKindPlayback})
	assert.ErrorIs(t, err, miniaudio.ErrDisposed)
}
