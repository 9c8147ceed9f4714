package httpadapter

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/dx-junkyard/interest-category-matching/internal/core/domain"
)

type resolverFake struct {
	matches []domain.Match
	err     error
	gotText string
}

func (f *resolverFake) Resolve(_ context.Context, text string) ([]domain.Match, error) {
	f.gotText = text
	if f.err != nil {
		return nil, f.err
	}
	return f.matches, nil
}

type storeStub struct {
	index []domain.TaxonomyNode
	err   error
}

func (s *storeStub) LoadSubCategoryIndex(context.Context) ([]domain.TaxonomyNode, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.index, nil
}

func (s *storeStub) LoadDescendants(context.Context, int64) ([]domain.TaxonomyNode, error) {
	return nil, domain.ErrBranchNotFound
}

type queueFake struct {
	published []domain.ResolveRequest
	err       error
}

func (q *queueFake) PublishResolveRequest(_ context.Context, req domain.ResolveRequest) error {
	if q.err != nil {
		return q.err
	}
	q.published = append(q.published, req)
	return nil
}

func (q *queueFake) PublishResolveResult(context.Context, domain.ResolveResult) error {
	return nil
}

func (q *queueFake) SubscribeResolveRequests(context.Context, func(context.Context, domain.ResolveRequest) error) error {
	return nil
}

func doRequest(t *testing.T, handler http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var reader *strings.Reader
	if body == "" {
		reader = strings.NewReader("")
	} else {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder, out any) {
	t.Helper()
	if err := json.Unmarshal(rec.Body.Bytes(), out); err != nil {
		t.Fatalf("decode response body %q: %v", rec.Body.String(), err)
	}
}

func TestResolveReturnsRoundedMatches(t *testing.T) {
	resolver := &resolverFake{matches: []domain.Match{
		{ID: 11, Name: "銀河", Description: "galaxies", Similarity: 0.87654321},
		{ID: 12, Name: "惑星", Description: "planets", Similarity: 0.5},
	}}
	handler := NewRouter(resolver, &storeStub{}, nil, nil).Handler()

	rec := doRequest(t, handler, http.MethodPost, "/v1/resolve", `{"text":"星が好き"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}

	var resp struct {
		Matches []struct {
			ID          int64   `json:"id"`
			Name        string  `json:"categoryname"`
			Description string  `json:"description"`
			Similarity  float64 `json:"similarity"`
		} `json:"matches"`
	}
	decodeBody(t, rec, &resp)

	if len(resp.Matches) != 2 {
		t.Fatalf("expected 2 matches, got %d", len(resp.Matches))
	}
	if resp.Matches[0].Similarity != 0.8765 {
		t.Fatalf("expected similarity rounded to 4 decimals, got %v", resp.Matches[0].Similarity)
	}
	if resp.Matches[0].Name != "銀河" {
		t.Fatalf("unexpected first match: %+v", resp.Matches[0])
	}
	if resolver.gotText != "星が好き" {
		t.Fatalf("resolver received %q", resolver.gotText)
	}
}

func TestResolveEmptyMatchesIsStillOK(t *testing.T) {
	handler := NewRouter(&resolverFake{}, &storeStub{}, nil, nil).Handler()

	rec := doRequest(t, handler, http.MethodPost, "/v1/resolve", `{"text":"何か"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var resp struct {
		Matches []any `json:"matches"`
	}
	decodeBody(t, rec, &resp)
	if len(resp.Matches) != 0 {
		t.Fatalf("expected empty matches array, got %v", resp.Matches)
	}
}

func TestResolveRejectsBadRequests(t *testing.T) {
	handler := NewRouter(&resolverFake{}, &storeStub{}, nil, nil).Handler()

	tests := []struct {
		name   string
		method string
		body   string
		want   int
	}{
		{"wrong method", http.MethodGet, "", http.StatusMethodNotAllowed},
		{"invalid json", http.MethodPost, "{not json", http.StatusBadRequest},
		{"blank text", http.MethodPost, `{"text":"   "}`, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := doRequest(t, handler, tt.method, "/v1/resolve", tt.body)
			if rec.Code != tt.want {
				t.Fatalf("status = %d, want %d", rec.Code, tt.want)
			}
		})
	}
}

func TestResolveErrorMapping(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"classifier failure", domain.WrapError(domain.ErrClassifier, "op", errors.New("down")), http.StatusBadGateway},
		{"embedder failure", domain.WrapError(domain.ErrEmbedder, "op", errors.New("down")), http.StatusBadGateway},
		{"empty guess", domain.WrapError(domain.ErrEmptyGuess, "op", errors.New("nothing")), http.StatusUnprocessableEntity},
		{"store down", domain.WrapError(domain.ErrStoreUnavailable, "op", errors.New("io")), http.StatusServiceUnavailable},
		{"unknown", errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler := NewRouter(&resolverFake{err: tt.err}, &storeStub{}, nil, nil).Handler()
			rec := doRequest(t, handler, http.MethodPost, "/v1/resolve", `{"text":"x"}`)
			if rec.Code != tt.want {
				t.Fatalf("status = %d, want %d", rec.Code, tt.want)
			}
		})
	}
}

func TestResolveAsyncWithoutQueue(t *testing.T) {
	handler := NewRouter(&resolverFake{}, &storeStub{}, nil, nil).Handler()

	rec := doRequest(t, handler, http.MethodPost, "/v1/resolve/async", `{"text":"x"}`)
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want 503", rec.Code)
	}
}

func TestResolveAsyncPublishesJob(t *testing.T) {
	queue := &queueFake{}
	handler := NewRouter(&resolverFake{}, &storeStub{}, queue, nil).Handler()

	rec := doRequest(t, handler, http.MethodPost, "/v1/resolve/async", `{"text":"宇宙"}`)
	if rec.Code != http.StatusAccepted {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}

	var resp struct {
		RequestID string `json:"request_id"`
	}
	decodeBody(t, rec, &resp)
	if resp.RequestID == "" {
		t.Fatal("expected a request id")
	}
	if len(queue.published) != 1 {
		t.Fatalf("expected 1 published job, got %d", len(queue.published))
	}
	if queue.published[0].Text != "宇宙" || queue.published[0].RequestID != resp.RequestID {
		t.Fatalf("unexpected job: %+v", queue.published[0])
	}
}

func TestResolveAsyncPublishFailure(t *testing.T) {
	queue := &queueFake{err: domain.WrapError(domain.ErrTemporary, "publish", errors.New("no servers"))}
	handler := NewRouter(&resolverFake{}, &storeStub{}, queue, nil).Handler()

	rec := doRequest(t, handler, http.MethodPost, "/v1/resolve/async", `{"text":"x"}`)
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want 503", rec.Code)
	}
}

func TestListSubCategories(t *testing.T) {
	store := &storeStub{index: []domain.TaxonomyNode{
		{ID: 1, Name: "宇宙", Embedding: []float32{1, 0}},
		{ID: 2, Name: "料理", Embedding: []float32{0, 1}},
	}}
	handler := NewRouter(&resolverFake{}, store, nil, nil).Handler()

	rec := doRequest(t, handler, http.MethodGet, "/v1/taxonomy/sub-categories", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}

	var resp struct {
		SubCategories []struct {
			ID   int64  `json:"id"`
			Name string `json:"categoryname"`
		} `json:"sub_categories"`
	}
	decodeBody(t, rec, &resp)
	if len(resp.SubCategories) != 2 || resp.SubCategories[0].Name != "宇宙" {
		t.Fatalf("unexpected listing: %+v", resp.SubCategories)
	}
	// Embeddings never leave the service.
	if strings.Contains(rec.Body.String(), "embedding") {
		t.Fatalf("embedding leaked into response: %s", rec.Body.String())
	}
}

func TestListSubCategoriesStoreError(t *testing.T) {
	store := &storeStub{err: domain.WrapError(domain.ErrStoreUnavailable, "op", errors.New("io"))}
	handler := NewRouter(&resolverFake{}, store, nil, nil).Handler()

	rec := doRequest(t, handler, http.MethodGet, "/v1/taxonomy/sub-categories", "")
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want 503", rec.Code)
	}
}

func TestHealthz(t *testing.T) {
	handler := NewRouter(&resolverFake{}, &storeStub{}, nil, nil).Handler()

	rec := doRequest(t, handler, http.MethodGet, "/healthz", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
}

func TestRequestIDHeaderIsSet(t *testing.T) {
	handler := NewRouter(&resolverFake{}, &storeStub{}, nil, nil).Handler()

	rec := doRequest(t, handler, http.MethodGet, "/healthz", "")
	if rec.Header().Get("X-Request-Id") == "" {
		t.Fatal("expected X-Request-Id response header")
	}
}

func TestMapErrorToHTTPStatus(t *testing.T) {
	if got := mapErrorToHTTPStatus(domain.WrapError(domain.ErrInvalidInput, "op", errors.New("bad"))); got != http.StatusBadRequest {
		t.Fatalf("invalid input mapped to %d", got)
	}
	if got := mapErrorToHTTPStatus(domain.WrapError(domain.ErrBranchNotFound, "op", errors.New("missing"))); got != http.StatusNotFound {
		t.Fatalf("branch not found mapped to %d", got)
	}
}
