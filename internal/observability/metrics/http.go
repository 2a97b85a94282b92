package metrics

import (
	"bufio"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type HTTPServerMetrics struct {
	registry *prometheus.Registry

	requestTotal    *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	requestInFlight prometheus.Gauge

	suggestRequestsTotal *prometheus.CounterVec
	suggestionsTotal     *prometheus.CounterVec
	suggestionConfidence *prometheus.HistogramVec
	suggestDuration      *prometheus.HistogramVec
	ruleMatchesTotal     *prometheus.CounterVec
	correctionsTotal     *prometheus.CounterVec
}

func NewHTTPServerMetrics(service string) *HTTPServerMetrics {
	registry := prometheus.NewRegistry()

	requestTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "kdocs",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total HTTP requests processed.",
		},
		[]string{"service", "method", "path", "status"},
	)
	requestDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "kdocs",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"service", "method", "path"},
	)
	requestInFlight := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "kdocs",
			Subsystem: "http",
			Name:      "in_flight_requests",
			Help:      "Number of in-flight HTTP requests.",
			ConstLabels: prometheus.Labels{
				"service": service,
			},
		},
	)
	suggestRequestsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "kdocs",
			Subsystem: "attribution",
			Name:      "suggest_requests_total",
			Help:      "Total successful suggestion computations.",
		},
		[]string{"service", "endpoint"},
	)
	suggestionsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "kdocs",
			Subsystem: "attribution",
			Name:      "suggestions_total",
			Help:      "Total served suggestions by predicted field.",
		},
		[]string{"service", "endpoint", "field"},
	)
	suggestionConfidence := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "kdocs",
			Subsystem: "attribution",
			Name:      "suggestion_confidence",
			Help:      "Distribution of served suggestion confidence.",
			Buckets:   []float64{0.5, 0.6, 0.7, 0.8, 0.85, 0.9, 0.95, 1},
		},
		[]string{"service", "endpoint"},
	)
	suggestDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "kdocs",
			Subsystem: "attribution",
			Name:      "suggest_duration_seconds",
			Help:      "Suggestion computation duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"service", "endpoint"},
	)
	ruleMatchesTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "kdocs",
			Subsystem: "attribution",
			Name:      "rule_dry_runs_total",
			Help:      "Total rule dry-runs by outcome.",
		},
		[]string{"service", "outcome"},
	)
	correctionsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "kdocs",
			Subsystem: "attribution",
			Name:      "corrections_total",
			Help:      "Total recorded corrections by source.",
		},
		[]string{"service", "source"},
	)

	registry.MustRegister(
		requestTotal,
		requestDuration,
		requestInFlight,
		suggestRequestsTotal,
		suggestionsTotal,
		suggestionConfidence,
		suggestDuration,
		ruleMatchesTotal,
		correctionsTotal,
	)

	return &HTTPServerMetrics{
		registry:             registry,
		requestTotal:         requestTotal,
		requestDuration:      requestDuration,
		requestInFlight:      requestInFlight,
		suggestRequestsTotal: suggestRequestsTotal,
		suggestionsTotal:     suggestionsTotal,
		suggestionConfidence: suggestionConfidence,
		suggestDuration:      suggestDuration,
		ruleMatchesTotal:     ruleMatchesTotal,
		correctionsTotal:     correctionsTotal,
	}
}

func (m *HTTPServerMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *HTTPServerMetrics) Middleware(service string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		path := normalizePath(r.URL.Path)
		recorder := &statusRecorder{
			ResponseWriter: w,
			statusCode:     http.StatusOK,
		}

		m.requestInFlight.Inc()
		defer m.requestInFlight.Dec()

		next.ServeHTTP(recorder, r)

		m.requestTotal.WithLabelValues(
			service,
			r.Method,
			path,
			strconv.Itoa(recorder.statusCode),
		).Inc()
		m.requestDuration.WithLabelValues(service, r.Method, path).Observe(time.Since(start).Seconds())
	})
}

// normalizePath collapses resource ids so the metric cardinality stays
// bounded.
func normalizePath(path string) string {
	switch {
	case strings.HasPrefix(path, "/v1/documents/"):
		return "/v1/documents/{document_id}"
	case strings.HasPrefix(path, "/v1/rules/"):
		return "/v1/rules/{rule_id}"
	default:
		return path
	}
}

func (m *HTTPServerMetrics) RecordSuggestions(service, endpoint string, fields []string, confidences []float64, duration time.Duration) {
	m.suggestRequestsTotal.WithLabelValues(service, endpoint).Inc()
	m.suggestDuration.WithLabelValues(service, endpoint).Observe(duration.Seconds())
	for _, field := range fields {
		m.suggestionsTotal.WithLabelValues(service, endpoint, field).Inc()
	}
	for _, confidence := range confidences {
		m.suggestionConfidence.WithLabelValues(service, endpoint).Observe(confidence)
	}
}

func (m *HTTPServerMetrics) RecordRuleDryRun(service string, matched bool) {
	outcome := "no_match"
	if matched {
		outcome = "match"
	}
	m.ruleMatchesTotal.WithLabelValues(service, outcome).Inc()
}

func (m *HTTPServerMetrics) RecordCorrection(service, source string) {
	if source == "" {
		source = "unknown"
	}
	m.correctionsTotal.WithLabelValues(service, source).Inc()
}

type statusRecorder struct {
	http.ResponseWriter
	statusCode int
}

func (w *statusRecorder) WriteHeader(statusCode int) {
	w.statusCode = statusCode
	w.ResponseWriter.WriteHeader(statusCode)
}

func (w *statusRecorder) Flush() {
	flusher, ok := w.ResponseWriter.(http.Flusher)
	if ok {
		flusher.Flush()
	}
}

func (w *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	hijacker, ok := w.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, fmt.Errorf("response writer does not implement http.Hijacker")
	}
	return hijacker.Hijack()
}

func (w *statusRecorder) Push(target string, opts *http.PushOptions) error {
	pusher, ok := w.ResponseWriter.(http.Pusher)
	if !ok {
		return http.ErrNotSupported
	}
	return pusher.Push(target, opts)
}
