// Package metrics provides Prometheus collectors for the audio control layer
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "maudio"

// AudioMetrics contains Prometheus metrics for native handle lifetime, the callback
// bridge, streaming sounds and capture devices. All methods accept a nil receiver so a
// component can run without metrics.
type AudioMetrics struct {
	// Handle metrics
	handlesLive   *prometheus.GaugeVec
	handleDestroy *prometheus.CounterVec

	// Callback bridge metrics
	bridgeTokensLive *prometheus.GaugeVec
	callbackPanics   *prometheus.CounterVec

	// Streaming metrics
	streamFramesAppended prometheus.Counter
	streamBackpressure   prometheus.Counter

	// Capture metrics
	captureFrames prometheus.Counter

	collectors []prometheus.Collector
}

// NewAudioMetrics creates and registers the audio metrics on registry.
func NewAudioMetrics(registry prometheus.Registerer) (*AudioMetrics, error) {
	m := &AudioMetrics{}
	m.initMetrics()
	if err := registry.Register(m); err != nil {
		return nil, err
	}
	return m, nil
}

func (m *AudioMetrics) initMetrics() {
	m.handlesLive = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "handles_live",
			Help:      "Number of live native handles",
		},
		[]string{"kind"},
	)

	m.handleDestroy = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "handle_destroy_total",
			Help:      "Total number of native destroy calls",
		},
		[]string{"kind"},
	)

	m.bridgeTokensLive = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "bridge_tokens_live",
			Help:      "Number of callback bridge tokens currently registered",
		},
		[]string{"kind"},
	)

	m.callbackPanics = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "callback_panics_total",
			Help:      "Total number of recovered panics in user callbacks",
		},
		[]string{"callback"},
	)

	m.streamFramesAppended = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "stream_frames_appended_total",
			Help:      "Total number of PCM frames accepted by streaming sounds",
		},
	)

	m.streamBackpressure = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "stream_backpressure_total",
			Help:      "Total number of appends that accepted fewer frames than offered",
		},
	)

	m.captureFrames = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "capture_frames_total",
			Help:      "Total number of frames delivered by capture devices",
		},
	)

	m.collectors = []prometheus.Collector{
		m.handlesLive,
		m.handleDestroy,
		m.bridgeTokensLive,
		m.callbackPanics,
		m.streamFramesAppended,
		m.streamBackpressure,
		m.captureFrames,
	}
}

// Describe implements the Collector interface
func (m *AudioMetrics) Describe(ch chan<- *prometheus.Desc) {
	for _, collector := range m.collectors {
		collector.Describe(ch)
	}
}

// Collect implements the Collector interface
func (m *AudioMetrics) Collect(ch chan<- prometheus.Metric) {
	for _, collector := range m.collectors {
		collector.Collect(ch)
	}
}

// HandleAcquired records a newly wrapped native object.
func (m *AudioMetrics) HandleAcquired(kind string) {
	if m == nil {
		return
	}
	m.handlesLive.WithLabelValues(kind).Inc()
}

// HandleReleased records the destroy call of a native object.
func (m *AudioMetrics) HandleReleased(kind string) {
	if m == nil {
		return
	}
	m.handlesLive.WithLabelValues(kind).Dec()
	m.handleDestroy.WithLabelValues(kind).Inc()
}

// BridgeTokenRegistered records a new callback bridge token.
func (m *AudioMetrics) BridgeTokenRegistered(kind string) {
	if m == nil {
		return
	}
	m.bridgeTokensLive.WithLabelValues(kind).Inc()
}

// BridgeTokenReleased records a released callback bridge token.
func (m *AudioMetrics) BridgeTokenReleased(kind string) {
	if m == nil {
		return
	}
	m.bridgeTokensLive.WithLabelValues(kind).Dec()
}

// CallbackPanic records a recovered panic raised by a user callback.
func (m *AudioMetrics) CallbackPanic(callback string) {
	if m == nil {
		return
	}
	m.callbackPanics.WithLabelValues(callback).Inc()
}

// StreamAppend records one append call: accepted frames and whether it hit backpressure.
func (m *AudioMetrics) StreamAppend(requested, accepted uint64) {
	if m == nil {
		return
	}
	m.streamFramesAppended.Add(float64(accepted))
	if accepted < requested {
		m.streamBackpressure.Inc()
	}
}

// CaptureFrames records frames delivered to capture subscribers.
func (m *AudioMetrics) CaptureFrames(frames uint64) {
	if m == nil {
		return
	}
	m.captureFrames.Add(float64(frames))
}
