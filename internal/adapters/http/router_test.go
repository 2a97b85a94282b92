package httpadapter

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/kdocs/attribution-engine/internal/core/domain"
	"github.com/kdocs/attribution-engine/internal/core/engine"
)

type suggesterFake struct {
	byID       map[string][]domain.Suggestion
	previewed  []domain.Suggestion
	previewErr error
}

func (f *suggesterFake) SuggestByID(_ context.Context, documentID string) ([]domain.Suggestion, error) {
	suggestions, ok := f.byID[documentID]
	if !ok {
		return nil, domain.WrapError(domain.ErrDocumentNotFound, "fetch document", errors.New(documentID))
	}
	return suggestions, nil
}

func (f *suggesterFake) Preview(context.Context, *domain.Document) ([]domain.Suggestion, error) {
	if f.previewErr != nil {
		return nil, f.previewErr
	}
	return f.previewed, nil
}

type ruleTesterFake struct {
	eval *engine.RuleEvaluation
	err  error
}

func (f *ruleTesterFake) TestRule(context.Context, string, *domain.Document) (*engine.RuleEvaluation, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.eval, nil
}

type recorderFake struct {
	recorded []domain.CorrectionRequest
	err      error
}

func (f *recorderFake) Record(_ context.Context, req domain.CorrectionRequest) (*domain.Correction, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.recorded = append(f.recorded, req)
	return &domain.Correction{
		ID:         "c-1",
		DocumentID: req.DocumentID,
		Field:      req.Field,
		NewValue:   req.NewValue,
		Source:     domain.SourceManual,
	}, nil
}

type reclassifierFake struct {
	enqueued []string
	err      error
}

func (f *reclassifierFake) Enqueue(_ context.Context, documentID string) error {
	if f.err != nil {
		return f.err
	}
	f.enqueued = append(f.enqueued, documentID)
	return nil
}

func (f *reclassifierFake) ProcessByID(context.Context, string) error {
	return errors.New("not implemented")
}

type docReaderFake struct {
	docs map[string]*domain.Document
}

func (f *docReaderFake) GetByID(_ context.Context, id string) (*domain.Document, error) {
	doc, ok := f.docs[id]
	if !ok {
		return nil, domain.WrapError(domain.ErrDocumentNotFound, "fetch document", errors.New(id))
	}
	return doc, nil
}

func (f *docReaderFake) ListRecentIDs(context.Context, int) ([]string, error) {
	return nil, errors.New("not implemented")
}

func (f *docReaderFake) ApplyAttribute(context.Context, string, domain.FieldType, string, string) error {
	return errors.New("not implemented")
}

type testRouterFakes struct {
	suggester  *suggesterFake
	ruleTester *ruleTesterFake
	recorder   *recorderFake
	reclassify *reclassifierFake
	repo       *docReaderFake
}

func newTestHandler(fakes testRouterFakes, opts RouterOptions) http.Handler {
	if fakes.suggester == nil {
		fakes.suggester = &suggesterFake{}
	}
	if fakes.ruleTester == nil {
		fakes.ruleTester = &ruleTesterFake{}
	}
	if fakes.recorder == nil {
		fakes.recorder = &recorderFake{}
	}
	if fakes.reclassify == nil {
		fakes.reclassify = &reclassifierFake{}
	}
	if fakes.repo == nil {
		fakes.repo = &docReaderFake{}
	}
	rt := NewRouter(fakes.suggester, fakes.ruleTester, fakes.recorder, fakes.reclassify, fakes.repo, opts)
	return rt.Handler()
}

func TestHealthz(t *testing.T) {
	handler := newTestHandler(testRouterFakes{}, RouterOptions{})

	res := httptest.NewRecorder()
	handler.ServeHTTP(res, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if res.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", res.Code)
	}
	if res.Header().Get(requestIDHeader) == "" {
		t.Fatal("expected generated request id header")
	}
}

func TestSuggestForDocument(t *testing.T) {
	suggester := &suggesterFake{byID: map[string][]domain.Suggestion{
		"doc-1": {{Field: domain.FieldCorrespondent, Value: "5", Confidence: 0.9}},
	}}
	handler := newTestHandler(testRouterFakes{suggester: suggester}, RouterOptions{})

	res := httptest.NewRecorder()
	handler.ServeHTTP(res, httptest.NewRequest(http.MethodPost, "/v1/documents/doc-1/suggestions", nil))
	if res.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", res.Code, res.Body.String())
	}

	var payload struct {
		DocumentID  string              `json:"document_id"`
		Suggestions []domain.Suggestion `json:"suggestions"`
	}
	if err := json.NewDecoder(res.Body).Decode(&payload); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if payload.DocumentID != "doc-1" || len(payload.Suggestions) != 1 {
		t.Fatalf("payload = %+v, want doc-1 with one suggestion", payload)
	}
}

func TestSuggestForUnknownDocumentReturns404(t *testing.T) {
	handler := newTestHandler(testRouterFakes{suggester: &suggesterFake{}}, RouterOptions{})

	res := httptest.NewRecorder()
	handler.ServeHTTP(res, httptest.NewRequest(http.MethodPost, "/v1/documents/missing/suggestions", nil))
	if res.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", res.Code)
	}
}

func TestSuggestRequiresPost(t *testing.T) {
	handler := newTestHandler(testRouterFakes{}, RouterOptions{})

	res := httptest.NewRecorder()
	handler.ServeHTTP(res, httptest.NewRequest(http.MethodGet, "/v1/documents/doc-1/suggestions", nil))
	if res.Code != http.StatusMethodNotAllowed {
		t.Fatalf("expected 405, got %d", res.Code)
	}
}

func TestSuggestionsArrayNeverNull(t *testing.T) {
	suggester := &suggesterFake{byID: map[string][]domain.Suggestion{"doc-1": nil}}
	handler := newTestHandler(testRouterFakes{suggester: suggester}, RouterOptions{})

	res := httptest.NewRecorder()
	handler.ServeHTTP(res, httptest.NewRequest(http.MethodPost, "/v1/documents/doc-1/suggestions", nil))
	if res.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", res.Code)
	}
	if !strings.Contains(res.Body.String(), `"suggestions":[]`) {
		t.Fatalf("expected empty array, got %s", res.Body.String())
	}
}

func TestPreviewSuggestions(t *testing.T) {
	suggester := &suggesterFake{previewed: []domain.Suggestion{
		{Field: domain.FieldDocumentType, Value: "2", Confidence: 0.7},
	}}
	handler := newTestHandler(testRouterFakes{suggester: suggester}, RouterOptions{})

	body := strings.NewReader(`{"title":"Facture","content":"facture pour consulting"}`)
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, httptest.NewRequest(http.MethodPost, "/v1/suggestions/preview", body))
	if res.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", res.Code, res.Body.String())
	}
}

func TestPreviewRejectsInvalidJSON(t *testing.T) {
	handler := newTestHandler(testRouterFakes{}, RouterOptions{})

	res := httptest.NewRecorder()
	handler.ServeHTTP(res, httptest.NewRequest(http.MethodPost, "/v1/suggestions/preview", strings.NewReader("{not json")))
	if res.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", res.Code)
	}
}

func TestRuleDryRun(t *testing.T) {
	tester := &ruleTesterFake{eval: &engine.RuleEvaluation{
		RuleID:   "rule-1",
		RuleName: "consulting invoices",
		Matched:  true,
		Conditions: [][]domain.ConditionResult{{
			{Matched: true, Detail: "match: content contains \"facture\""},
		}},
	}}
	handler := newTestHandler(testRouterFakes{ruleTester: tester}, RouterOptions{})

	body := strings.NewReader(`{"content":"facture"}`)
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, httptest.NewRequest(http.MethodPost, "/v1/rules/rule-1/test", body))
	if res.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", res.Code, res.Body.String())
	}

	var eval engine.RuleEvaluation
	if err := json.NewDecoder(res.Body).Decode(&eval); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if !eval.Matched || eval.RuleID != "rule-1" {
		t.Fatalf("eval = %+v, want matched rule-1", eval)
	}
}

func TestRuleDryRunUnknownRuleReturns404(t *testing.T) {
	tester := &ruleTesterFake{err: domain.WrapError(domain.ErrRuleNotFound, "fetch rule", errors.New("missing"))}
	handler := newTestHandler(testRouterFakes{ruleTester: tester}, RouterOptions{})

	res := httptest.NewRecorder()
	handler.ServeHTTP(res, httptest.NewRequest(http.MethodPost, "/v1/rules/missing/test", strings.NewReader(`{}`)))
	if res.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", res.Code)
	}
}

func TestRecordCorrection(t *testing.T) {
	recorder := &recorderFake{}
	handler := newTestHandler(testRouterFakes{recorder: recorder}, RouterOptions{})

	body := strings.NewReader(`{"document_id":"doc-1","field":"correspondent","new_value":"5"}`)
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, httptest.NewRequest(http.MethodPost, "/v1/corrections", body))
	if res.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", res.Code, res.Body.String())
	}
	if len(recorder.recorded) != 1 || recorder.recorded[0].NewValue != "5" {
		t.Fatalf("recorded = %+v, want one correspondent/5 request", recorder.recorded)
	}
}

func TestRecordCorrectionInvalidInputReturns400(t *testing.T) {
	recorder := &recorderFake{err: domain.WrapError(domain.ErrInvalidInput, "record correction", errors.New("missing new_value"))}
	handler := newTestHandler(testRouterFakes{recorder: recorder}, RouterOptions{})

	body := strings.NewReader(`{"document_id":"doc-1","field":"correspondent"}`)
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, httptest.NewRequest(http.MethodPost, "/v1/corrections", body))
	if res.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", res.Code)
	}
}

func TestReclassifyQueuesDocument(t *testing.T) {
	reclassify := &reclassifierFake{}
	handler := newTestHandler(testRouterFakes{reclassify: reclassify}, RouterOptions{})

	res := httptest.NewRecorder()
	handler.ServeHTTP(res, httptest.NewRequest(http.MethodPost, "/v1/documents/doc-1/reclassify", nil))
	if res.Code != http.StatusAccepted {
		t.Fatalf("expected 202, got %d: %s", res.Code, res.Body.String())
	}
	if len(reclassify.enqueued) != 1 || reclassify.enqueued[0] != "doc-1" {
		t.Fatalf("enqueued = %v, want [doc-1]", reclassify.enqueued)
	}
}

func TestReclassifyTemporaryFailureReturns503(t *testing.T) {
	reclassify := &reclassifierFake{err: domain.WrapError(domain.ErrTemporary, "nats publish", errors.New("no servers"))}
	handler := newTestHandler(testRouterFakes{reclassify: reclassify}, RouterOptions{})

	res := httptest.NewRecorder()
	handler.ServeHTTP(res, httptest.NewRequest(http.MethodPost, "/v1/documents/doc-1/reclassify", nil))
	if res.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", res.Code)
	}
}

func TestGetDocumentByID(t *testing.T) {
	repo := &docReaderFake{docs: map[string]*domain.Document{
		"doc-1": {ID: "doc-1", Title: "Facture consulting"},
	}}
	handler := newTestHandler(testRouterFakes{repo: repo}, RouterOptions{})

	res := httptest.NewRecorder()
	handler.ServeHTTP(res, httptest.NewRequest(http.MethodGet, "/v1/documents/doc-1", nil))
	if res.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", res.Code)
	}

	var doc domain.Document
	if err := json.NewDecoder(res.Body).Decode(&doc); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if doc.ID != "doc-1" {
		t.Fatalf("doc = %+v, want doc-1", doc)
	}
}
