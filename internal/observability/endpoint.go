// Package observability exposes the Prometheus registry over HTTP.
package observability

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/tphakala/go-miniaudio/internal/logger"
	"github.com/tphakala/go-miniaudio/internal/observability/metrics"
)

// ShutdownTimeout bounds the graceful shutdown of the metrics server.
const ShutdownTimeout = 5 * time.Second

// Endpoint serves /metrics for a dedicated registry.
type Endpoint struct {
	registry *prometheus.Registry
	audio    *metrics.AudioMetrics
	listen   string
	log      logger.Logger
}

// NewEndpoint creates a registry with Go runtime collectors and the audio metrics.
func NewEndpoint(listen string, log logger.Logger) (*Endpoint, error) {
	reg := prometheus.NewRegistry()
	if err := reg.Register(collectors.NewGoCollector()); err != nil {
		return nil, err
	}
	audio, err := metrics.NewAudioMetrics(reg)
	if err != nil {
		return nil, err
	}
	return &Endpoint{registry: reg, audio: audio, listen: listen, log: log}, nil
}

// Audio returns the audio metrics registered on this endpoint.
func (e *Endpoint) Audio() *metrics.AudioMetrics {
	return e.audio
}

// Handler returns the /metrics handler.
func (e *Endpoint) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(e.registry, promhttp.HandlerOpts{
		ErrorHandling: promhttp.HTTPErrorOnError,
	}))
	return mux
}

// Run serves until ctx is cancelled, then shuts the server down gracefully.
func (e *Endpoint) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", e.listen)
	if err != nil {
		return err
	}

	srv := &http.Server{
		Handler:           e.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		e.log.Info("metrics endpoint listening", logger.String("address", ln.Addr().String()))
		errCh <- srv.Serve(ln)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		e.log.Error("metrics server shutdown error", logger.Error(err))
		return err
	}
	<-errCh
	return nil
}
