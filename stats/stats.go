// Package stats
// Author: momentics <momentics@gmail.com>
//
// Prometheus instrumentation for sockio. Counters are registered on the
// default registry; Serve exposes them over /metrics when enabled.
package stats

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/momentics/sockio/api"
)

var (
	// AcceptedConnections counts connections taken from listening sockets.
	AcceptedConnections = promauto.NewCounter(prometheus.CounterOpts{
		Name: "sockio_accepted_connections_total",
		Help: "Connections accepted from listening sockets",
	})

	// ReactorEvents counts readiness events dispatched to callbacks.
	ReactorEvents = promauto.NewCounter(prometheus.CounterOpts{
		Name: "sockio_reactor_events_total",
		Help: "Readiness events dispatched by the epoll engine",
	})

	// ReactorRegistrations tracks descriptors currently registered with the
	// epoll engine.
	ReactorRegistrations = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "sockio_reactor_registrations",
		Help: "Descriptors currently registered with the epoll engine",
	})

	// RetryClassifications counts failures classified as retryable, by
	// operation.
	RetryClassifications = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "sockio_retry_classifications_total",
		Help: "Failures classified as transient resource exhaustion",
	}, []string{"op"})

	// BytesMoved counts payload bytes by transfer direction.
	BytesMoved = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "sockio_bytes_total",
		Help: "Payload bytes moved through transfer loops",
	}, []string{"direction"})
)

// RecordAccepted notes one accepted connection.
func RecordAccepted() { AcceptedConnections.Inc() }

// RecordReactorEvents notes n dispatched readiness events.
func RecordReactorEvents(n int) {
	if n > 0 {
		ReactorEvents.Add(float64(n))
	}
}

// RecordRegistration tracks engine registrations; delta is +1 on add and -1
// on delete.
func RecordRegistration(delta int) { ReactorRegistrations.Add(float64(delta)) }

// RecordRetry notes one retry-classified failure for op.
func RecordRetry(op string) { RetryClassifications.WithLabelValues(op).Inc() }

// RecordBytes notes n payload bytes for direction "send" or "recv".
func RecordBytes(direction string, n int) {
	if n > 0 {
		BytesMoved.WithLabelValues(direction).Add(float64(n))
	}
}

// Config selects whether and where /metrics is served.
type Config struct {
	Enabled bool   `yaml:"enabled"`
	Addr    string `yaml:"addr"`
}

// Serve exposes the default registry on cfg.Addr when enabled. The listener
// runs on its own goroutine; failures are reported through log.
func Serve(cfg Config, log api.Logger) {
	if !cfg.Enabled {
		return
	}
	if log == nil {
		log = api.NopLogger
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	go func() {
		if err := http.ListenAndServe(cfg.Addr, mux); err != nil {
			log.Errorf("metrics endpoint %s failed: %v", cfg.Addr, err)
		}
	}()
	log.Infof("metrics exposed on %s/metrics", cfg.Addr)
}
