package httpadapter

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/kdocs/attribution-engine/internal/core/domain"
	"github.com/kdocs/attribution-engine/internal/core/ports"
	"github.com/kdocs/attribution-engine/internal/observability/metrics"
)

const serviceName = "attribution-api"

type RouterOptions struct {
	RateLimitRPS   float64
	RateLimitBurst int
	MaxInFlight    int
	MaxSlotWait    time.Duration
	Metrics        *metrics.HTTPServerMetrics
}

type Router struct {
	suggester  ports.SuggestionService
	ruleTester ports.RuleTester
	recorder   ports.CorrectionRecorder
	reclassify ports.Reclassifier
	repo       ports.DocumentRepository

	metrics *metrics.HTTPServerMetrics
	opts    RouterOptions
}

func NewRouter(
	suggester ports.SuggestionService,
	ruleTester ports.RuleTester,
	recorder ports.CorrectionRecorder,
	reclassify ports.Reclassifier,
	repo ports.DocumentRepository,
	opts RouterOptions,
) *Router {
	return &Router{
		suggester:  suggester,
		ruleTester: ruleTester,
		recorder:   recorder,
		reclassify: reclassify,
		repo:       repo,
		metrics:    opts.Metrics,
		opts:       opts,
	}
}

func (rt *Router) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", rt.healthz)
	mux.HandleFunc("/v1/documents/", rt.documentSubresource)
	mux.HandleFunc("/v1/suggestions/preview", rt.previewSuggestions)
	mux.HandleFunc("/v1/rules/", rt.testRule)
	mux.HandleFunc("/v1/corrections", rt.recordCorrection)
	if rt.metrics != nil {
		mux.Handle("/metrics", rt.metrics.Handler())
	}

	var handler http.Handler = mux
	if rt.opts.MaxInFlight > 0 {
		maxWait := rt.opts.MaxSlotWait
		if maxWait <= 0 {
			maxWait = 2 * time.Second
		}
		handler = backpressureMiddleware(handler, rt.opts.MaxInFlight, maxWait)
	}
	if rt.opts.RateLimitRPS > 0 && rt.opts.RateLimitBurst > 0 {
		handler = rateLimitMiddleware(handler, rt.opts.RateLimitRPS, rt.opts.RateLimitBurst)
	}
	if rt.metrics != nil {
		handler = rt.metrics.Middleware(serviceName, handler)
	}
	handler = accessLogMiddleware(handler)
	return requestIDMiddleware(handler)
}

func (rt *Router) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// documentSubresource dispatches /v1/documents/{id} and its
// suggestions / reclassify subresources.
func (rt *Router) documentSubresource(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/v1/documents/")
	id, sub, _ := strings.Cut(rest, "/")
	if id == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "document id is required"})
		return
	}

	switch sub {
	case "":
		rt.getDocumentByID(w, r, id)
	case "suggestions":
		rt.suggestForDocument(w, r, id)
	case "reclassify":
		rt.reclassifyDocument(w, r, id)
	default:
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "unknown resource"})
	}
}

func (rt *Router) getDocumentByID(w http.ResponseWriter, r *http.Request, id string) {
	if r.Method != http.MethodGet {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	doc, err := rt.repo.GetByID(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, doc)
}

func (rt *Router) suggestForDocument(w http.ResponseWriter, r *http.Request, id string) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	start := time.Now()
	suggestions, err := rt.suggester.SuggestByID(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	rt.recordSuggestionMetrics("suggest", suggestions, time.Since(start))

	writeJSON(w, http.StatusOK, map[string]any{
		"document_id": id,
		"suggestions": suggestionsPayload(suggestions),
	})
}

func (rt *Router) reclassifyDocument(w http.ResponseWriter, r *http.Request, id string) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	if err := rt.reclassify.Enqueue(r.Context(), id); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]string{"document_id": id, "status": "queued"})
}

func (rt *Router) previewSuggestions(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	var doc domain.Document
	if err := json.NewDecoder(r.Body).Decode(&doc); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}

	start := time.Now()
	suggestions, err := rt.suggester.Preview(r.Context(), &doc)
	if err != nil {
		writeError(w, err)
		return
	}
	rt.recordSuggestionMetrics("preview", suggestions, time.Since(start))

	writeJSON(w, http.StatusOK, map[string]any{
		"suggestions": suggestionsPayload(suggestions),
	})
}

func (rt *Router) testRule(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/v1/rules/")
	id, sub, _ := strings.Cut(rest, "/")
	if id == "" || sub != "test" {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "unknown resource"})
		return
	}
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	var doc domain.Document
	if err := json.NewDecoder(r.Body).Decode(&doc); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}

	eval, err := rt.ruleTester.TestRule(r.Context(), id, &doc)
	if err != nil {
		writeError(w, err)
		return
	}
	if rt.metrics != nil {
		rt.metrics.RecordRuleDryRun(serviceName, eval.Matched)
	}
	writeJSON(w, http.StatusOK, eval)
}

func (rt *Router) recordCorrection(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	var req domain.CorrectionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}

	correction, err := rt.recorder.Record(r.Context(), req)
	if err != nil {
		writeError(w, err)
		return
	}
	if rt.metrics != nil {
		rt.metrics.RecordCorrection(serviceName, string(correction.Source))
	}
	writeJSON(w, http.StatusCreated, correction)
}

func (rt *Router) recordSuggestionMetrics(endpoint string, suggestions []domain.Suggestion, duration time.Duration) {
	if rt.metrics == nil {
		return
	}
	fields := make([]string, 0, len(suggestions))
	confidences := make([]float64, 0, len(suggestions))
	for _, s := range suggestions {
		fields = append(fields, string(s.Field))
		confidences = append(confidences, s.Confidence)
	}
	rt.metrics.RecordSuggestions(serviceName, endpoint, fields, confidences, duration)
}

// suggestionsPayload keeps the response shape stable when nothing is
// suggested: an empty array, never null.
func suggestionsPayload(suggestions []domain.Suggestion) []domain.Suggestion {
	if suggestions == nil {
		return []domain.Suggestion{}
	}
	return suggestions
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, err error) {
	writeJSON(w, mapErrorToHTTPStatus(err), map[string]string{"error": err.Error()})
}
