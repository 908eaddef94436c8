package recorder

//go:generate mockgen -source=recorder.go -destination=mocks/mocks.go -package=mocks Store,DiscoveryPublisher

import (
	"context"
	"log/slog"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"chanfilter/internal/catalog/metrics"
	"chanfilter/internal/catalog/models"
	dErrors "chanfilter/pkg/domain-errors"
	"chanfilter/pkg/requestcontext"
)

// Store is the write side of the catalog. InsertUnclassified must treat each
// identity independently and never overwrite existing records.
type Store interface {
	InsertUnclassified(ctx context.Context, keys []models.IdentityKey) (*models.InsertReport, error)
}

// DiscoveryPublisher announces identities that were recorded for the first time.
type DiscoveryPublisher interface {
	PublishDiscovered(ctx context.Context, keys []models.IdentityKey) error
}

// Result summarizes one recording pass.
type Result struct {
	Inserted   int
	Duplicates int
	Conflicts  int
	Failed     int
}

// Recorder persists identities absent from the catalog as unclassified
// records. It is the only path that creates catalog records.
type Recorder struct {
	store     Store
	publisher DiscoveryPublisher
	logger    *slog.Logger
	metrics   *metrics.Metrics
	tracer    trace.Tracer
}

type Option func(r *Recorder)

func WithLogger(logger *slog.Logger) Option {
	return func(r *Recorder) {
		r.logger = logger
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(r *Recorder) {
		r.metrics = m
	}
}

func WithPublisher(p DiscoveryPublisher) Option {
	return func(r *Recorder) {
		r.publisher = p
	}
}

func WithTracer(t trace.Tracer) Option {
	return func(r *Recorder) {
		r.tracer = t
	}
}

func New(store Store, opts ...Option) *Recorder {
	r := &Recorder{store: store}
	for _, opt := range opts {
		opt(r)
	}
	if r.logger == nil {
		r.logger = slog.Default()
	}
	if r.tracer == nil {
		r.tracer = otel.Tracer("chanfilter/recorder")
	}
	return r
}

// Record inserts every well-formed, previously unseen identity. Identities
// that already exist are counted as conflicts. A failure on one identity does
// not prevent the others from being written.
func (r *Recorder) Record(ctx context.Context, keys []models.IdentityKey) (*Result, error) {
	ctx, span := r.tracer.Start(ctx, "catalog.Record",
		trace.WithAttributes(attribute.Int("input_count", len(keys))))
	defer span.End()

	valid := make([]models.IdentityKey, 0, len(keys))
	for _, k := range keys {
		if k.Valid() {
			valid = append(valid, k)
		}
	}
	unique, duplicates := models.DedupeIdentities(valid)
	result := &Result{Duplicates: duplicates}
	r.metrics.AddRecorded("duplicate", duplicates)
	if len(unique) == 0 {
		return result, nil
	}

	report, err := r.store.InsertUnclassified(ctx, unique)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "insert failed")
		r.metrics.IncRecordErrors()
		r.logger.ErrorContext(ctx, "failed to record unknown identities",
			"error", err,
			"request_id", requestcontext.RequestID(ctx),
			"identities", len(unique),
		)
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to record identities")
	}

	result.Inserted = len(report.Inserted)
	result.Conflicts = report.Conflicts
	result.Failed = len(report.Failures)

	if report.Conflicts > 0 {
		r.logger.DebugContext(ctx, "identities already recorded",
			"request_id", requestcontext.RequestID(ctx),
			"conflicts", report.Conflicts,
		)
	}
	for _, f := range report.Failures {
		r.logger.ErrorContext(ctx, "failed to record identity",
			"error", f.Err,
			"request_id", requestcontext.RequestID(ctx),
			"handle", f.Key.Handle,
			"display_name", f.Key.DisplayName,
		)
	}

	r.metrics.AddRecorded("inserted", result.Inserted)
	r.metrics.AddRecorded("conflict", result.Conflicts)
	r.metrics.AddRecorded("failed", result.Failed)
	span.SetAttributes(
		attribute.Int("inserted", result.Inserted),
		attribute.Int("conflicts", result.Conflicts),
		attribute.Int("failed", result.Failed),
	)

	if r.publisher != nil && len(report.Inserted) > 0 {
		if err := r.publisher.PublishDiscovered(ctx, report.Inserted); err != nil {
			r.metrics.IncPublishFailures()
			r.logger.WarnContext(ctx, "failed to publish discovered identities",
				"error", err,
				"request_id", requestcontext.RequestID(ctx),
				"identities", len(report.Inserted),
			)
		}
	}
	return result, nil
}
