package httpadapter

import (
	"encoding/json"
	"math"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/dx-junkyard/interest-category-matching/internal/core/domain"
	"github.com/dx-junkyard/interest-category-matching/internal/core/ports"
	"github.com/dx-junkyard/interest-category-matching/internal/observability/metrics"
)

const serviceName = "api"

type Router struct {
	resolver ports.InterestResolver
	store    ports.TaxonomyStore
	queue    ports.ResolveQueue
	metrics  *metrics.HTTPServerMetrics
}

// NewRouter wires the resolution endpoints. queue may be nil when async
// resolution is not configured.
func NewRouter(
	resolver ports.InterestResolver,
	store ports.TaxonomyStore,
	queue ports.ResolveQueue,
	m *metrics.HTTPServerMetrics,
) *Router {
	return &Router{
		resolver: resolver,
		store:    store,
		queue:    queue,
		metrics:  m,
	}
}

func (rt *Router) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", rt.healthz)
	mux.HandleFunc("/v1/resolve", rt.resolve)
	mux.HandleFunc("/v1/resolve/async", rt.resolveAsync)
	mux.HandleFunc("/v1/taxonomy/sub-categories", rt.listSubCategories)
	if rt.metrics != nil {
		mux.Handle("/metrics", rt.metrics.Handler())
		return requestIDMiddleware(accessLogMiddleware(rt.metrics.Middleware(serviceName, mux)))
	}
	return requestIDMiddleware(accessLogMiddleware(mux))
}

func (rt *Router) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type resolveRequest struct {
	Text string `json:"text"`
}

type matchResponse struct {
	ID          int64   `json:"id"`
	Name        string  `json:"categoryname"`
	Description string  `json:"description"`
	Similarity  float64 `json:"similarity"`
}

func (rt *Router) resolve(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	var req resolveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}
	if strings.TrimSpace(req.Text) == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "text is required"})
		return
	}

	start := time.Now()
	matches, err := rt.resolver.Resolve(r.Context(), req.Text)
	if rt.metrics != nil {
		rt.metrics.RecordResolution(serviceName, "/v1/resolve", len(matches), time.Since(start), err)
	}
	if err != nil {
		writeJSON(w, mapErrorToHTTPStatus(err), map[string]string{"error": err.Error()})
		return
	}

	out := make([]matchResponse, 0, len(matches))
	for _, match := range matches {
		out = append(out, matchResponse{
			ID:          match.ID,
			Name:        match.Name,
			Description: match.Description,
			Similarity:  roundSimilarity(match.Similarity),
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{"matches": out})
}

func (rt *Router) resolveAsync(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}
	if rt.queue == nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "async resolution is not configured"})
		return
	}

	var req resolveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}
	if strings.TrimSpace(req.Text) == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "text is required"})
		return
	}

	job := domain.ResolveRequest{
		RequestID: uuid.NewString(),
		Text:      req.Text,
	}
	if err := rt.queue.PublishResolveRequest(r.Context(), job); err != nil {
		writeJSON(w, mapErrorToHTTPStatus(err), map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]string{"request_id": job.RequestID})
}

func (rt *Router) listSubCategories(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	nodes, err := rt.store.LoadSubCategoryIndex(r.Context())
	if err != nil {
		writeJSON(w, mapErrorToHTTPStatus(err), map[string]string{"error": err.Error()})
		return
	}

	type subCategory struct {
		ID   int64  `json:"id"`
		Name string `json:"categoryname"`
	}
	out := make([]subCategory, 0, len(nodes))
	for _, node := range nodes {
		out = append(out, subCategory{ID: node.ID, Name: node.Name})
	}
	writeJSON(w, http.StatusOK, map[string]any{"sub_categories": out})
}

// roundSimilarity fixes display precision; full precision stays internal.
func roundSimilarity(s float64) float64 {
	return math.Round(s*10000) / 10000
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
