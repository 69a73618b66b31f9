// Package chi serves the search HTTP API on a chi router.
package chi

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/kailas-cloud/coursefind/internal/domain"
	"github.com/kailas-cloud/coursefind/internal/domain/search/request"
	"github.com/kailas-cloud/coursefind/internal/metrics"
	"github.com/kailas-cloud/coursefind/internal/version"
	healthuc "github.com/kailas-cloud/coursefind/internal/usecase/health"
	indexuc "github.com/kailas-cloud/coursefind/internal/usecase/index"
	searchuc "github.com/kailas-cloud/coursefind/internal/usecase/search"
)

// errorHandler tries to handle a domain error. Returns true if handled.
type errorHandler func(w http.ResponseWriter, err error, msg string) bool

// Server exposes search, index refresh and health over HTTP.
type Server struct {
	search        *searchuc.Service
	indexes       *indexuc.Provider
	health        *healthuc.Service
	logger        *zap.Logger
	defaultTopK   int
	errorHandlers []errorHandler
}

// NewServer creates an HTTP API server.
func NewServer(
	search *searchuc.Service,
	indexes *indexuc.Provider,
	health *healthuc.Service,
	logger *zap.Logger,
) *Server {
	s := &Server{
		search:      search,
		indexes:     indexes,
		health:      health,
		logger:      logger,
		defaultTopK: request.DefaultTopK,
	}
	s.errorHandlers = []errorHandler{
		sentinelHandler(domain.ErrInvalidRequest, http.StatusBadRequest, ErrorCodeValidationFailed),
		sentinelHandler(domain.ErrEmptyCorpus, http.StatusConflict, ErrorCodeEmptyCorpus),
		sentinelHandler(domain.ErrTimeout, http.StatusGatewayTimeout, ErrorCodeEncoderTimeout),
		sentinelHandler(domain.ErrEncoding, http.StatusBadGateway, ErrorCodeEncoderError),
		sentinelHandler(domain.ErrInvalidCourse, http.StatusUnprocessableEntity, ErrorCodeInvalidCourse),
		sentinelHandler(domain.ErrDimensionMismatch, http.StatusInternalServerError, ErrorCodeDimensionMismatch),
	}
	return s
}

// WithDefaultTopK sets the result count used when a request omits it.
func (s *Server) WithDefaultTopK(k int) *Server {
	if k > 0 {
		s.defaultTopK = k
	}
	return s
}

// Router builds the chi router with middleware and routes.
func (s *Server) Router(adminKeys []string) http.Handler {
	r := chi.NewRouter()
	r.Use(jsonRecoverer(s.logger))
	r.Use(chiMiddleware.RequestID)
	r.Use(wideEventMiddleware(s.logger))
	r.Use(metrics.Middleware())

	r.Get("/search", s.SearchGet)
	r.Post("/search", s.SearchPost)
	r.With(AdminAuthMiddleware(adminKeys)).Post("/index/refresh", s.RefreshIndex)
	r.Get("/health", s.HealthCheck)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusNotFound, ErrorCodeBadRequest, "route not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, ErrorCodeBadRequest, "method not allowed")
	})
	return r
}

// SearchGet handles GET /search?q=&k=&min_score=.
func (s *Server) SearchGet(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	req := SearchRequest{Query: q.Get("q")}

	if raw := q.Get("k"); raw != "" {
		k, err := strconv.Atoi(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, ErrorCodeBadRequest, "k must be an integer")
			return
		}
		req.TopK = &k
	}
	if raw := q.Get("min_score"); raw != "" {
		m, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			writeError(w, http.StatusBadRequest, ErrorCodeBadRequest, "min_score must be a number")
			return
		}
		req.MinScore = &m
	}

	s.runSearch(w, r, req)
}

// SearchPost handles POST /search.
func (s *Server) SearchPost(w http.ResponseWriter, r *http.Request) {
	var req SearchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, ErrorCodeBadRequest, "Invalid request body: "+err.Error())
		return
	}
	s.runSearch(w, r, req)
}

func (s *Server) runSearch(w http.ResponseWriter, r *http.Request, in SearchRequest) {
	searchReq, err := s.searchRequestFromDTO(in)
	if err != nil {
		writeError(w, http.StatusBadRequest, ErrorCodeValidationFailed, err.Error())
		return
	}

	ctx, usage := domain.NewContextWithUsage(r.Context())
	results, err := s.search.SearchRequest(ctx, &searchReq)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}
	setEmbeddingHeaders(w, usage)

	items := make([]SearchResultItem, len(results))
	for i := range results {
		items[i] = searchResultToDTO(&results[i])
	}
	writeJSON(w, http.StatusOK, SearchResponse{
		Query: searchReq.Query(),
		TopK:  searchReq.TopK(),
		Items: items,
		Total: len(items),
	})
}

func (s *Server) searchRequestFromDTO(in SearchRequest) (request.Request, error) {
	topK := s.defaultTopK
	if in.TopK != nil {
		if *in.TopK <= 0 {
			return request.Request{}, fmt.Errorf("top_k must be positive")
		}
		topK = *in.TopK
	}
	minScore := request.NoMinScore
	if in.MinScore != nil {
		minScore = *in.MinScore
	}
	req, err := request.New(in.Query, topK, minScore)
	if err != nil {
		return request.Request{}, err
	}
	return req, nil
}

// RefreshIndex handles POST /index/refresh.
func (s *Server) RefreshIndex(w http.ResponseWriter, r *http.Request) {
	idx, err := s.indexes.Refresh(r.Context())
	if err != nil {
		s.handleDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, RefreshResponse{
		Courses:     idx.Len(),
		Encoder:     idx.Encoder(),
		Dimension:   idx.Dimension(),
		Fingerprint: idx.Fingerprint(),
	})
}

// HealthCheck handles GET /health.
func (s *Server) HealthCheck(w http.ResponseWriter, r *http.Request) {
	report := s.health.Check(r.Context())

	httpStatus := http.StatusOK
	if report.Status == healthuc.Unhealthy {
		httpStatus = http.StatusServiceUnavailable
	}

	writeJSON(w, httpStatus, HealthResponse{
		Status:  report.Status,
		Checks:  report.Checks,
		Courses: report.Courses,
		Version: version.Version,
	})
}

func setEmbeddingHeaders(w http.ResponseWriter, usage *domain.EmbeddingUsage) {
	if usage != nil && usage.Used {
		w.Header().Set("X-Embedding-Tokens", strconv.Itoa(usage.TotalTokens))
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code ErrorCode, message string) {
	writeJSON(w, status, ErrorResponse{
		Code:    code,
		Message: message,
	})
}

// safeDomainMessage returns a sentinel error message for the client without exposing internals.
func safeDomainMessage(err error) string {
	sentinels := []error{
		domain.ErrInvalidRequest,
		domain.ErrEmptyCorpus,
		domain.ErrTimeout,
		domain.ErrEncoding,
		domain.ErrInvalidCourse,
		domain.ErrDimensionMismatch,
	}
	for _, s := range sentinels {
		if errors.Is(err, s) {
			return s.Error()
		}
	}
	return "internal error"
}

// sentinelHandler returns an errorHandler that matches a single sentinel error.
func sentinelHandler(sentinel error, status int, code ErrorCode) errorHandler {
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
	writeError(w, http.StatusInternalServerError, ErrorCodeInternalError, "internal error")
}
