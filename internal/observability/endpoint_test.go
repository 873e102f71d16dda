package observability

import (
	"context"
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/tphakala/go-miniaudio/internal/logger"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func TestHandlerExposesAudioMetrics(t *testing.T) {
	e, err := NewEndpoint("127.0.0.1:0", logger.NewSlogLogger(io.Discard, logger.LogLevelError, time.UTC))
	require.NoError(t, err)

	e.Audio().HandleAcquired("engine")
	e.Audio().StreamAppend(10, 4)

	rec := httptest.NewRecorder()
	e.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	body := rec.Body.String()
	assert.Equal(t, 200, rec.Code)
	assert.Contains(t, body, `maudio_handles_live{kind="engine"} 1`)
	assert.Contains(t, body, "maudio_stream_frames_appended_total 4")
	assert.Contains(t, body, "maudio_stream_backpressure_total 1")
	assert.Contains(t, body, "go_goroutines")
}

func TestRunStopsOnCancel(t *testing.T) {
	e, err := NewEndpoint("127.0.0.1:0", logger.NewSlogLogger(io.Discard, logger.LogLevelError, time.UTC))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- e.Run(ctx) }()

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(ShutdownTimeout + time.Second):
		t.Fatal("Run did not return after cancel")
	}
}
