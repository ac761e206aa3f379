// Package handler exposes the screening service over HTTP.
package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"sdnscreen/internal/platform/middleware"
	"sdnscreen/internal/screening"
	dErrors "sdnscreen/pkg/domain-errors"
	"sdnscreen/pkg/platform/httputil"
)

// Service defines the interface for screening operations.
type Service interface {
	Search(ctx context.Context, term string) (*screening.SearchResult, error)
	Status(ctx context.Context) (*screening.Status, error)
}

// Handler handles the public lookup endpoints.
type Handler struct {
	logger    *slog.Logger
	screening Service
	limiter   func(http.Handler) http.Handler
}

// Option customizes a Handler.
type Option func(*Handler)

// WithRateLimiter applies a rate-limiting middleware to the search
// endpoint only; health checks are never throttled.
func WithRateLimiter(limiter func(http.Handler) http.Handler) Option {
	return func(h *Handler) {
		h.limiter = limiter
	}
}

// New creates a new screening Handler.
func New(screening Service, logger *slog.Logger, opts ...Option) *Handler {
	h := &Handler{logger: logger, screening: screening}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Register registers the screening routes with the chi router.
func (h *Handler) Register(r chi.Router) {
	router := chi.NewRouter()
	router.Use(middleware.Recovery(h.logger))
	router.Use(middleware.RequestID)
	router.Use(middleware.Logger(h.logger))
	router.Use(middleware.Timeout(60 * time.Second))
	router.Use(middleware.CORS)

	if h.limiter != nil {
		router.With(h.limiter).Get("/getsdn", h.handleSearch)
	} else {
		router.Get("/getsdn", h.handleSearch)
	}

	router.Get("/healthz", h.handleHealthz)

	r.Mount("/", router)
}

// handleSearch serves GET /getsdn?name=<term>.
func (h *Handler) handleSearch(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	result, err := h.screening.Search(ctx, r.URL.Query().Get("name"))
	if err != nil {
		if dErrors.Is(err, dErrors.CodeValidation) {
			httputil.WriteError(w, err)
			return
		}
		h.logger.ErrorContext(ctx, "search failed",
			"request_id", middleware.GetRequestID(ctx),
			"error", err.Error(),
		)
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, result)
}

// handleHealthz serves GET /healthz. The report reflects the snapshot
// being served; a failing upstream degrades freshness, not health.
func (h *Handler) handleHealthz(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	status, err := h.screening.Status(ctx)
	if err != nil {
		h.logger.ErrorContext(ctx, "health status unavailable",
			"request_id", middleware.GetRequestID(ctx),
			"error", err.Error(),
		)
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, status)
}
