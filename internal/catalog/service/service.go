package service

//go:generate mockgen -source=service.go -destination=mocks/mocks.go -package=mocks CatalogStore,UnknownDispatcher

import (
	"context"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"chanfilter/internal/catalog/metrics"
	"chanfilter/internal/catalog/models"
	dErrors "chanfilter/pkg/domain-errors"
	"chanfilter/pkg/requestcontext"
)

type CatalogStore interface {
	FindByIdentities(ctx context.Context, keys []models.IdentityKey) ([]*models.Record, error)
}

// UnknownDispatcher accepts identities that were absent from the catalog.
// Submit must not block the caller.
type UnknownDispatcher interface {
	Submit(ctx context.Context, keys []models.IdentityKey) bool
}

// Resolution is the outcome for one well-formed input. Index is the position
// of the identity in the request.
type Resolution struct {
	Index      int
	Identity   models.IdentityKey
	Categories models.CategorySet
}

// Service answers bulk category lookups and hands unknown identities to the
// recorder.
type Service struct {
	store      CatalogStore
	dispatcher UnknownDispatcher
	logger     *slog.Logger
	metrics    *metrics.Metrics
	tracer     trace.Tracer
}

type Option func(s *Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

func WithTracer(t trace.Tracer) Option {
	return func(s *Service) {
		s.tracer = t
	}
}

// New constructs a Service. A nil dispatcher disables unknown recording.
func New(store CatalogStore, dispatcher UnknownDispatcher, opts ...Option) *Service {
	s := &Service{store: store, dispatcher: dispatcher}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	if s.tracer == nil {
		s.tracer = otel.Tracer("chanfilter/catalog")
	}
	return s
}

// Resolve maps each well-formed identity to its stored category set, or to
// the unclassified set when the catalog has no record. Results keep input
// order and duplicates. Inputs missing either field are skipped.
func (s *Service) Resolve(ctx context.Context, keys []models.IdentityKey) ([]Resolution, error) {
	ctx, span := s.tracer.Start(ctx, "catalog.Resolve",
		trace.WithAttributes(attribute.Int("input_count", len(keys))))
	defer span.End()
	start := time.Now()

	valid := make([]models.IdentityKey, 0, len(keys))
	malformed := 0
	for _, k := range keys {
		if !k.Valid() {
			malformed++
			continue
		}
		valid = append(valid, k)
	}
	query, _ := models.DedupeIdentities(valid)

	known := make(map[models.IdentityKey]models.CategorySet, len(query))
	if len(query) > 0 {
		records, err := s.store.FindByIdentities(ctx, query)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "catalog lookup failed")
			s.logger.ErrorContext(ctx, "catalog lookup failed",
				"error", err,
				"request_id", requestcontext.RequestID(ctx),
				"identities", len(query),
			)
			return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to resolve categories")
		}
		for _, rec := range records {
			known[rec.Key] = rec.Categories
		}
	}

	results := make([]Resolution, 0, len(valid))
	var unknown []models.IdentityKey
	found := 0
	for i, k := range keys {
		if !k.Valid() {
			continue
		}
		cats, ok := known[k]
		if ok {
			found++
		} else {
			cats = models.DefaultCategories()
			unknown = append(unknown, k)
		}
		results = append(results, Resolution{Index: i, Identity: k, Categories: cats.Clone()})
	}

	unknown, _ = models.DedupeIdentities(unknown)
	if len(unknown) > 0 && s.dispatcher != nil {
		if !s.dispatcher.Submit(ctx, unknown) {
			s.logger.WarnContext(ctx, "unknown identities not queued for recording",
				"request_id", requestcontext.RequestID(ctx),
				"identities", len(unknown),
			)
		}
	}

	span.SetAttributes(
		attribute.Int("found", found),
		attribute.Int("unknown", len(unknown)),
		attribute.Int("malformed", malformed),
	)
	s.metrics.ObserveResolve(time.Since(start), found, len(unknown), malformed)
	return results, nil
}
