// Package chi exposes the corpusd API over HTTP.
package chi

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/url"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/corpusd/corpusd/internal/domain"
	"github.com/corpusd/corpusd/internal/usecase/health"
	"github.com/corpusd/corpusd/internal/usecase/ingest"
	"github.com/corpusd/corpusd/internal/usecase/paragraph"
	"github.com/corpusd/corpusd/internal/usecase/search"
	"github.com/corpusd/corpusd/internal/version"
)

// Error codes returned to clients.
const (
	codeBadRequest        = "bad_request"
	codeValidationFailed  = "validation_failed"
	codeNotFound          = "not_found"
	codeEmbeddingProvider = "embedding_provider_error"
	codeSummarization     = "summarization_error"
	codeStoreError        = "store_error"
	codeInternalError     = "internal_error"
)

// errorResponse is the JSON error body.
type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// errorHandler tries to handle a domain error. Returns true if handled.
type errorHandler func(w http.ResponseWriter, err error, msg string) bool

// page is the inbound ingestion payload produced by an external crawler.
// Only url and text are consumed; the remaining fields are accepted and
// dropped.
type page struct {
	URL           string          `json:"url"`
	Crawl         json.RawMessage `json:"crawl,omitempty"`
	Metadata      json.RawMessage `json:"metadata,omitempty"`
	ScreenshotURL *string         `json:"screenshotUrl,omitempty"`
	Text          string          `json:"text"`
}

// Server wires the usecase services to HTTP handlers.
type Server struct {
	ingest        *ingest.Service
	search        *search.Service
	paragraphs    *paragraph.Service
	health        *health.Service
	logger        *zap.Logger
	errorHandlers []errorHandler
}

// NewServer creates an HTTP API server.
func NewServer(
	ingestSvc *ingest.Service,
	searchSvc *search.Service,
	paragraphSvc *paragraph.Service,
	healthSvc *health.Service,
	logger *zap.Logger,
) *Server {
	s := &Server{
		ingest:     ingestSvc,
		search:     searchSvc,
		paragraphs: paragraphSvc,
		health:     healthSvc,
		logger:     logger,
	}
	s.errorHandlers = []errorHandler{
		sentinelHandler(domain.ErrNotFound, http.StatusNotFound, codeNotFound),
		sentinelHandler(domain.ErrEmbeddingProvider, http.StatusBadGateway, codeEmbeddingProvider),
		sentinelHandler(domain.ErrSummarization, http.StatusBadGateway, codeSummarization),
		sentinelHandler(domain.ErrStoreRead, http.StatusInternalServerError, codeStoreError),
		sentinelHandler(domain.ErrStoreWrite, http.StatusInternalServerError, codeStoreError),
		sentinelHandler(domain.ErrVectorDimMismatch, http.StatusInternalServerError, codeInternalError),
	}
	return s
}

// Register mounts all routes on r.
func (s *Server) Register(r chi.Router) {
	r.Get("/embeddings", s.GetEmbeddings)
	r.Post("/embeddings", s.CreateEmbeddings)
	r.Delete("/embeddings/{reference}", s.DeleteEmbedding)
	r.Get("/health", s.Health)
	r.Get("/version", s.Version)
	r.Handle("/metrics", promhttp.Handler())
}

// GetEmbeddings handles GET /embeddings. With a sentence query parameter it
// runs a similarity search; without one it lists all stored paragraphs.
func (s *Server) GetEmbeddings(w http.ResponseWriter, r *http.Request) {
	if sentence := r.URL.Query().Get("sentence"); sentence != "" {
		rs, err := s.search.Search(r.Context(), sentence)
		if err != nil {
			s.handleDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, rs)
		return
	}

	paragraphs, err := s.paragraphs.List(r.Context())
	if err != nil {
		s.handleDomainError(w, err)
		return
	}
	if paragraphs == nil {
		paragraphs = []domain.Paragraph{}
	}
	writeJSON(w, http.StatusOK, paragraphs)
}

// CreateEmbeddings handles POST /embeddings: an ordered batch of crawler
// pages, projected to passages and ingested.
func (s *Server) CreateEmbeddings(w http.ResponseWriter, r *http.Request) {
	var pages []page
	if err := json.NewDecoder(r.Body).Decode(&pages); err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, "Invalid request body: "+err.Error())
		return
	}

	passages := make([]domain.Paragraph, len(pages))
	for i, p := range pages {
		if p.URL == "" {
			writeError(w, http.StatusBadRequest, codeValidationFailed, "every page requires a url")
			return
		}
		passages[i] = domain.Paragraph{Reference: p.URL, Text: p.Text}
	}

	stored, err := s.ingest.Ingest(r.Context(), passages)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]int{"stored": stored})
}

// DeleteEmbedding handles DELETE /embeddings/{reference}. The reference is
// URL-escaped in the path (references are usually URLs themselves).
func (s *Server) DeleteEmbedding(w http.ResponseWriter, r *http.Request) {
	reference, err := url.PathUnescape(chi.URLParam(r, "reference"))
	if err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, "invalid reference encoding")
		return
	}

	removed, err := s.paragraphs.Delete(r.Context(), reference)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}
	if !removed {
		writeError(w, http.StatusNotFound, codeNotFound, "unknown reference")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// Health handles GET /health.
func (s *Server) Health(w http.ResponseWriter, r *http.Request) {
	report := s.health.Check(r.Context())
	status := http.StatusOK
	if report.Status != health.Healthy {
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, report)
}

// Version handles GET /version.
func (s *Server) Version(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"version": version.Version,
		"commit":  version.Commit,
		"date":    version.Date,
	})
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
		domain.ErrEmbeddingProvider,
		domain.ErrSummarization,
		domain.ErrStoreRead,
		domain.ErrStoreWrite,
		domain.ErrVectorDimMismatch,
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
	writeError(w, http.StatusInternalServerError, codeInternalError, "internal error")
}
