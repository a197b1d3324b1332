// Package chi exposes the contractor search API over HTTP.
package chi

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/tradefind/tradefind/internal/domain"
	"github.com/tradefind/tradefind/internal/repository/cache"
	healthuc "github.com/tradefind/tradefind/internal/usecase/health"
	searchuc "github.com/tradefind/tradefind/internal/usecase/search"
	syncuc "github.com/tradefind/tradefind/internal/usecase/sync"
)

// errorHandler tries to handle a domain error. Returns true if handled.
type errorHandler func(w http.ResponseWriter, err error, msg string) bool

// Server holds the HTTP handlers for search, embedding sync, cache
// administration, and health.
type Server struct {
	search        *searchuc.Service
	sync          *syncuc.Service
	health        *healthuc.Service
	cache         *cache.Cache
	logger        *zap.Logger
	errorHandlers []errorHandler
}

// NewServer creates an HTTP API server.
func NewServer(
	search *searchuc.Service,
	sync *syncuc.Service,
	health *healthuc.Service,
	cache *cache.Cache,
	logger *zap.Logger,
) *Server {
	s := &Server{
		search: search,
		sync:   sync,
		health: health,
		cache:  cache,
		logger: logger,
	}
	s.errorHandlers = []errorHandler{
		sentinelHandler(domain.ErrNotFound, http.StatusNotFound, "not_found"),
		sentinelHandler(domain.ErrVectorDimMismatch, http.StatusBadRequest, "vector_dim_mismatch"),
		sentinelHandler(domain.ErrEmbeddingProviderError, http.StatusBadGateway, "embedding_provider_error"),
		sentinelHandler(domain.ErrGenerationProviderError, http.StatusBadGateway, "generation_provider_error"),
		sentinelHandler(domain.ErrMalformedAnswer, http.StatusBadGateway, "malformed_answer"),
	}
	return s
}

// Routes mounts every handler on the given router.
func (s *Server) Routes(r chi.Router) {
	r.Get("/health", s.HealthCheck)
	r.Get("/search", s.RAGSearch)
	r.Get("/search/plain", s.PlainSearch)
	r.Get("/search/semantic", s.SemanticSearch)
	r.Post("/embeddings/update/{id}", s.UpdateEmbedding)
	r.Post("/embeddings/update-all", s.UpdateAllEmbeddings)
	r.Get("/cache/stats", s.CacheStats)
	r.Post("/cache/clear", s.ClearCache)
	r.Post("/cache/clear-contractor/{id}", s.ClearContractorCache)
	r.Get("/metrics", s.Metrics)
}

// RAGSearch handles GET /search.
func (s *Server) RAGSearch(w http.ResponseWriter, r *http.Request) {
	result, err := s.search.RAGSearch(r.Context(), query(r))
	if err != nil {
		s.handleDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// PlainSearch handles GET /search/plain.
func (s *Server) PlainSearch(w http.ResponseWriter, r *http.Request) {
	result, err := s.search.PlainSearch(r.Context(), query(r))
	if err != nil {
		s.handleDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// Semantic endpoint query param defaults.
const (
	defaultSemanticLimit     = 10
	defaultSemanticThreshold = 0.3
)

// SemanticSearch handles GET /search/semantic. Optional limit and threshold
// query params override the defaults.
func (s *Server) SemanticSearch(w http.ResponseWriter, r *http.Request) {
	limit := defaultSemanticLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			writeError(w, http.StatusBadRequest, "bad_request", "limit must be a positive integer")
			return
		}
		limit = n
	}

	threshold := defaultSemanticThreshold
	if raw := r.URL.Query().Get("threshold"); raw != "" {
		f, err := strconv.ParseFloat(raw, 64)
		if err != nil || f < -1 || f > 1 {
			writeError(w, http.StatusBadRequest, "bad_request", "threshold must be within [-1, 1]")
			return
		}
		threshold = f
	}

	result, err := s.search.SemanticSearch(r.Context(), query(r), limit, threshold)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, struct {
		domain.SearchResult
		SearchType string `json:"search_type"`
	}{result, "semantic"})
}

// UpdateEmbedding handles POST /embeddings/update/{id}.
func (s *Server) UpdateEmbedding(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := s.sync.SyncOne(r.Context(), id); err != nil {
		s.handleDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"status":        "ok",
		"contractor_id": id,
	})
}

// UpdateAllEmbeddings handles POST /embeddings/update-all.
func (s *Server) UpdateAllEmbeddings(w http.ResponseWriter, r *http.Request) {
	processed, err := s.sync.SyncAll(r.Context())
	if err != nil {
		s.handleDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"processed": processed})
}

// CacheStats handles GET /cache/stats.
func (s *Server) CacheStats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.cache.StatsReport(r.Context()))
}

// ClearCache handles POST /cache/clear.
func (s *Server) ClearCache(w http.ResponseWriter, r *http.Request) {
	n := s.cache.Clear(r.Context())
	writeJSON(w, http.StatusOK, map[string]int{"cleared": n})
}

// ClearContractorCache handles POST /cache/clear-contractor/{id}.
func (s *Server) ClearContractorCache(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	s.search.InvalidateRecordCache(r.Context(), id)
	writeJSON(w, http.StatusOK, map[string]string{
		"status":        "ok",
		"contractor_id": id,
	})
}

// HealthCheck handles GET /health.
func (s *Server) HealthCheck(w http.ResponseWriter, r *http.Request) {
	report := s.health.Check(r.Context())

	httpStatus := http.StatusOK
	if report.Status == healthuc.Unhealthy {
		httpStatus = http.StatusServiceUnavailable
	}

	writeJSON(w, httpStatus, struct {
		Status          healthuc.Status                 `json:"status"`
		Checks          map[string]healthuc.CheckResult `json:"checks"`
		ContractorCount int                             `json:"contractor_count"`
	}{report.Status, report.Checks, report.ContractorCount})
}

// Metrics handles GET /metrics.
func (s *Server) Metrics(w http.ResponseWriter, r *http.Request) {
	promhttp.Handler().ServeHTTP(w, r)
}

func query(r *http.Request) string {
	return r.URL.Query().Get("q")
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, errorResponse{Code: code, Message: message})
}

// safeDomainMessage returns a sentinel error message for the client without
// exposing internals.
func safeDomainMessage(err error) string {
	sentinels := []error{
		domain.ErrNotFound,
		domain.ErrVectorDimMismatch,
		domain.ErrEmbeddingProviderError,
		domain.ErrGenerationProviderError,
		domain.ErrMalformedAnswer,
	}
	for _, s := range sentinels {
		if errors.Is(err, s) {
			return s.Error()
		}
	}
	return "internal error"
}

// sentinelHandler returns an errorHandler that matches a single sentinel error.
func sentinelHandler(sentinel error, status int, code string) errorHandler {
	return func(w http.ResponseWriter, err error, msg string) bool {
		if !errors.Is(err, sentinel) {
			return false
		}
		writeError(w, status, code, msg)
		return true
	}
}

func (s *Server) handleDomainError(w http.ResponseWriter, err error) {
	s.logger.Warn("domain error", zap.Error(err))
	msg := safeDomainMessage(err)
	for _, h := range s.errorHandlers {
		if h(w, err, msg) {
			return
		}
	}
	s.logger.Error("internal error", zap.Error(err))
	writeError(w, http.StatusInternalServerError, "internal_error", "internal error")
}
