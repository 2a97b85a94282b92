package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type WorkerMetrics struct {
	registry *prometheus.Registry

	reclassifyTotal    *prometheus.CounterVec
	reclassifyDuration *prometheus.HistogramVec
	reclassifyInFlight prometheus.Gauge
	autoAppliedTotal   *prometheus.CounterVec
	sweepEnqueuedTotal *prometheus.CounterVec
}

func NewWorkerMetrics(service string) *WorkerMetrics {
	registry := prometheus.NewRegistry()

	reclassifyTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "kdocs",
			Subsystem: "worker",
			Name:      "reclassify_total",
			Help:      "Total reclassified documents by status.",
		},
		[]string{"service", "status"},
	)
	reclassifyDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "kdocs",
			Subsystem: "worker",
			Name:      "reclassify_duration_seconds",
			Help:      "Reclassification duration in seconds by status.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"service", "status"},
	)
	reclassifyInFlight := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "kdocs",
			Subsystem: "worker",
			Name:      "reclassify_in_flight",
			Help:      "Number of in-flight reclassification tasks.",
			ConstLabels: prometheus.Labels{
				"service": service,
			},
		},
	)
	autoAppliedTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "kdocs",
			Subsystem: "worker",
			Name:      "auto_applied_total",
			Help:      "Total auto-applied attributes by field.",
		},
		[]string{"service", "field"},
	)
	sweepEnqueuedTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "kdocs",
			Subsystem: "worker",
			Name:      "sweep_enqueued_total",
			Help:      "Total documents enqueued by the periodic sweep.",
		},
		[]string{"service"},
	)

	registry.MustRegister(reclassifyTotal, reclassifyDuration, reclassifyInFlight, autoAppliedTotal, sweepEnqueuedTotal)

	return &WorkerMetrics{
		registry:           registry,
		reclassifyTotal:    reclassifyTotal,
		reclassifyDuration: reclassifyDuration,
		reclassifyInFlight: reclassifyInFlight,
		autoAppliedTotal:   autoAppliedTotal,
		sweepEnqueuedTotal: sweepEnqueuedTotal,
	}
}

func (m *WorkerMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *WorkerMetrics) StartReclassify() {
	m.reclassifyInFlight.Inc()
}

func (m *WorkerMetrics) FinishReclassify(service string, duration time.Duration, err error) {
	m.reclassifyInFlight.Dec()

	status := "success"
	if err != nil {
		status = "error"
	}

	m.reclassifyTotal.WithLabelValues(service, status).Inc()
	m.reclassifyDuration.WithLabelValues(service, status).Observe(duration.Seconds())
}

func (m *WorkerMetrics) RecordAutoApplied(service, field string) {
	if field == "" {
		field = "unknown"
	}
	m.autoAppliedTotal.WithLabelValues(service, field).Inc()
}

func (m *WorkerMetrics) RecordSweepEnqueued(service string, count int) {
	if count <= 0 {
		return
	}
	m.sweepEnqueuedTotal.WithLabelValues(service).Add(float64(count))
}
