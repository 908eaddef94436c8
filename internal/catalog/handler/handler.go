package handler

//go:generate mockgen -source=handler.go -destination=mocks/mocks.go -package=mocks Resolver,Recorder,HealthChecker

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"chanfilter/internal/catalog/models"
	"chanfilter/internal/catalog/recorder"
	"chanfilter/internal/catalog/service"
	"chanfilter/internal/platform/metrics"
	"chanfilter/internal/platform/middleware"
	dErrors "chanfilter/pkg/domain-errors"
	"chanfilter/pkg/platform/httputil"
	"chanfilter/pkg/platform/middleware/metadata"
	"chanfilter/pkg/platform/middleware/requesttime"
	"chanfilter/pkg/requestcontext"
)

const defaultMaxBodyBytes = 1 << 20

type Resolver interface {
	Resolve(ctx context.Context, keys []models.IdentityKey) ([]service.Resolution, error)
}

type Recorder interface {
	Record(ctx context.Context, keys []models.IdentityKey) (*recorder.Result, error)
}

type HealthChecker interface {
	Ping(ctx context.Context) error
}

// Handler serves the catalog lookup and recording endpoints.
type Handler struct {
	resolver     Resolver
	recorder     Recorder
	health       HealthChecker
	logger       *slog.Logger
	metrics      *metrics.Metrics
	maxBodyBytes int64
	timeout      time.Duration
}

type Option func(h *Handler)

func WithMaxBodyBytes(n int64) Option {
	return func(h *Handler) {
		if n > 0 {
			h.maxBodyBytes = n
		}
	}
}

func WithTimeout(d time.Duration) Option {
	return func(h *Handler) {
		if d > 0 {
			h.timeout = d
		}
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(h *Handler) {
		h.metrics = m
	}
}

// New creates a catalog Handler.
func New(resolver Resolver, rec Recorder, health HealthChecker, logger *slog.Logger, opts ...Option) *Handler {
	h := &Handler{
		resolver:     resolver,
		recorder:     rec,
		health:       health,
		logger:       logger,
		maxBodyBytes: defaultMaxBodyBytes,
		timeout:      30 * time.Second,
	}
	for _, opt := range opts {
		opt(h)
	}
	if h.logger == nil {
		h.logger = slog.Default()
	}
	return h
}

// Register registers the catalog routes with the chi router.
func (h *Handler) Register(r chi.Router) {
	router := chi.NewRouter()
	router.Use(middleware.Recovery(h.logger))
	router.Use(middleware.RequestID)
	router.Use(metadata.ClientMetadata)
	router.Use(requesttime.Middleware)
	router.Use(middleware.Logger(h.logger))
	router.Use(middleware.Timeout(h.timeout))
	router.Use(middleware.MaxBodyBytes(h.maxBodyBytes))
	router.Use(middleware.LatencyMiddleware(h.metrics))

	router.Get("/", h.handleRoot)
	router.Get("/health", h.handleHealth)
	router.Post("/api/get/category", h.handleGetCategory)
	router.Post("/api/post/channels", h.handlePostChannels)

	r.Mount("/", router)
}

// handleGetCategory resolves a batch of channel identities. Every well-formed
// input appears in the result, in input order, with its category set added.
func (h *Handler) handleGetCategory(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := middleware.GetRequestID(ctx)

	items, err := decodeItems(r.Body)
	if err != nil {
		h.logger.WarnContext(ctx, "invalid category request",
			"request_id", requestID,
			"error", err.Error(),
		)
		httputil.WriteError(w, err)
		return
	}

	resolutions, err := h.resolver.Resolve(ctx, keysOf(items))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	result := make([]map[string]any, 0, len(resolutions))
	for _, res := range resolutions {
		result = append(result, items[res.Index].withCategories(res.Categories))
	}
	h.logger.DebugContext(ctx, "resolved channel categories",
		"request_id", requestID,
		"received", len(items),
		"resolved", len(result),
	)
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"result": result})
}

// handlePostChannels records every well-formed identity synchronously.
func (h *Handler) handlePostChannels(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := middleware.GetRequestID(ctx)

	items, err := decodeItems(r.Body)
	if err != nil {
		h.logger.WarnContext(ctx, "invalid record request",
			"request_id", requestID,
			"error", err.Error(),
		)
		httputil.WriteError(w, err)
		return
	}

	res, err := h.recorder.Record(ctx, keysOf(items))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	h.logger.InfoContext(ctx, "recorded channels",
		"request_id", requestID,
		"inserted", res.Inserted,
		"duplicates", res.Duplicates,
		"conflicts", res.Conflicts,
		"failed", res.Failed,
	)
	httputil.WriteJSON(w, http.StatusOK, map[string]bool{"success": true})
}

func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	now := requestcontext.Now(ctx).UTC()
	if h.health != nil {
		if err := h.health.Ping(ctx); err != nil {
			h.logger.ErrorContext(ctx, "health check failed",
				"request_id", middleware.GetRequestID(ctx),
				"error", err,
			)
			httputil.WriteJSON(w, http.StatusServiceUnavailable, map[string]any{
				"status":    "UNAVAILABLE",
				"timestamp": now,
			})
			return
		}
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{
		"status":    "OK",
		"timestamp": now,
	})
}

func (h *Handler) handleRoot(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("chanfilter catalog is running\n"))
}

var errNotArray = dErrors.New(dErrors.CodeBadRequest, "request body must be an array")
