// Package metrics exposes Prometheus instrumentation for the transport
// and audio pipelines.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics contains all Prometheus metrics for the client.
type Metrics struct {
	// Connection metrics
	EventsDispatched  *prometheus.CounterVec
	EventsEmitted     *prometheus.CounterVec
	ProtocolErrors    prometheus.Counter
	ReconnectAttempts prometheus.Counter
	Reconnects        prometheus.Counter

	// Audio metrics
	CaptureFrames       prometheus.Counter
	CaptureBytes        prometheus.Counter
	PlaybackStarts      prometheus.Counter
	PlaybackCompletions prometheus.Counter
	PlaybackFailures    prometheus.Counter

	// Search metrics
	SearchPages      prometheus.Counter
	PaginationMisses prometheus.Counter
}

// New creates and registers all metrics with the given registerer.
// A nil registerer uses the default Prometheus registry.
func New(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)

	return &Metrics{
		EventsDispatched: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "talentwire_events_dispatched_total",
			Help: "Total number of inbound events dispatched to subscribers",
		}, []string{"event"}),
		EventsEmitted: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "talentwire_events_emitted_total",
			Help: "Total number of outbound events written to the connection",
		}, []string{"event"}),
		ProtocolErrors: factory.NewCounter(prometheus.CounterOpts{
			Name: "talentwire_protocol_errors_total",
			Help: "Total number of malformed inbound frames dropped",
		}),
		ReconnectAttempts: factory.NewCounter(prometheus.CounterOpts{
			Name: "talentwire_reconnect_attempts_total",
			Help: "Total number of reconnection attempts",
		}),
		Reconnects: factory.NewCounter(prometheus.CounterOpts{
			Name: "talentwire_reconnects_total",
			Help: "Total number of successful reconnections",
		}),
		CaptureFrames: factory.NewCounter(prometheus.CounterOpts{
			Name: "talentwire_capture_frames_total",
			Help: "Total number of microphone frames emitted",
		}),
		CaptureBytes: factory.NewCounter(prometheus.CounterOpts{
			Name: "talentwire_capture_bytes_total",
			Help: "Total PCM bytes captured from the microphone",
		}),
		PlaybackStarts: factory.NewCounter(prometheus.CounterOpts{
			Name: "talentwire_playback_starts_total",
			Help: "Total number of playback sessions started",
		}),
		PlaybackCompletions: factory.NewCounter(prometheus.CounterOpts{
			Name: "talentwire_playback_completions_total",
			Help: "Total number of playback sessions completed",
		}),
		PlaybackFailures: factory.NewCounter(prometheus.CounterOpts{
			Name: "talentwire_playback_failures_total",
			Help: "Total number of playback decode or device failures",
		}),
		SearchPages: factory.NewCounter(prometheus.CounterOpts{
			Name: "talentwire_search_pages_total",
			Help: "Total number of search result pages applied",
		}),
		PaginationMisses: factory.NewCounter(prometheus.CounterOpts{
			Name: "talentwire_pagination_misses_total",
			Help: "Total number of page requests rejected for a missing correlation hash",
		}),
	}
}
