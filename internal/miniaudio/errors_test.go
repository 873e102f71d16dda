package miniaudio

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tphakala/go-miniaudio/internal/errors"
	"github.com/tphakala/go-miniaudio/internal/native"
)

func TestResultErrorMessage(t *testing.T) {
	t.Parallel()

	err := checkResult(newDriver(), "ma_engine_start", native.ResultDeviceNotStarted)
	require.Error(t, err)
	assert.Equal(t, "miniaudio API 'ma_engine_start' failed with code -302: Device not started.", err.Error())

	var re *ResultError
	require.ErrorAs(t, err, &re)
	assert.Equal(t, native.ResultDeviceNotStarted, re.Code)
	assert.ErrorIs(t, err, ErrNative)
	assert.NotErrorIs(t, err, ErrConstruction)
	assert.True(t, errors.IsCategory(err, errors.CategoryAudio))

	assert.NoError(t, checkResult(newDriver(), "ma_engine_start", native.ResultSuccess))
}

func TestErrorKindsAreDistinct(t *testing.T) {
	t.Parallel()

	d := newDriver()
	tests := []struct {
		name     string
		err      error
		kind     error
		category errors.ErrorCategory
	}{
		{"construction", constructionError(d, "ma_engine_init", native.ResultNoBackend), ErrConstruction, errors.CategoryAudio},
		{"invalid pointer", constructionError(d, "ma_engine_init", native.ResultSuccess), ErrConstruction, errors.CategoryAudio},
		{"disposed", disposedError("engine", "ma_engine_start"), ErrDisposed, errors.CategoryState},
		{"argument", argumentError("ma_sound_set_pitch", "bad %d", 1), ErrInvalidArgument, errors.CategoryValidation},
	}
	kinds := []error{ErrConstruction, ErrDisposed, ErrNative, ErrInvalidArgument}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			for _, k := range kinds {
				assert.Equal(t, k == tt.kind, errors.Is(tt.err, k), "kind %v", k)
			}
			assert.True(t, errors.IsCategory(tt.err, tt.category))

			var ee *errors.EnhancedError
			require.ErrorAs(t, tt.err, &ee)
			assert.Equal(t, component, ee.GetComponent())
			assert.Contains(t, ee.GetContext(), "operation")
		})
	}
}

func TestConstructionErrorCarriesResult(t *testing.T) {
	t.Parallel()

	err := constructionError(newDriver(), "ma_context_init", native.ResultNoBackend)
	var re *ResultError
	require.ErrorAs(t, err, &re)
	assert.Equal(t, native.ResultNoBackend, re.Code)
	assert.Equal(t, "No backend", re.Description)
}
