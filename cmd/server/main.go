package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	catalogmetrics "chanfilter/internal/catalog/metrics"
	"chanfilter/internal/catalog/handler"
	"chanfilter/internal/catalog/publisher"
	"chanfilter/internal/catalog/recorder"
	"chanfilter/internal/catalog/service"
	"chanfilter/internal/catalog/store"
	"chanfilter/internal/platform/config"
	"chanfilter/internal/platform/httpserver"
	"chanfilter/internal/platform/logger"
	"chanfilter/internal/platform/metrics"
	"chanfilter/internal/platform/postgres"
)

// main wires high-level dependencies, exposes the HTTP router, and keeps the
// server lifecycle small. Business logic lives in internal packages.
func main() {
	cfg, err := config.FromEnv()
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid configuration: %v\n", err)
		os.Exit(2)
	}
	log := logger.New(cfg.Log.Level, cfg.Log.Format)
	slog.SetDefault(log)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.Error("server exited with error", "error", err)
		os.Exit(1)
	}
}

type catalogStore interface {
	service.CatalogStore
	recorder.Store
	handler.HealthChecker
}

func run(ctx context.Context, cfg config.Server, log *slog.Logger) error {
	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	catalogMetrics := catalogmetrics.New(registry)
	httpMetrics := metrics.New(registry)

	st, closeStore, err := openStore(ctx, cfg.Database, log)
	if err != nil {
		return err
	}
	defer closeStore()

	recorderOpts := []recorder.Option{
		recorder.WithLogger(log),
		recorder.WithMetrics(catalogMetrics),
	}
	var kafka *publisher.Kafka
	if len(cfg.Kafka.Brokers) > 0 {
		kafka, err = publisher.NewKafka(cfg.Kafka.Brokers,
			publisher.WithLogger(log),
			publisher.WithTopic(cfg.Kafka.DiscoveryTopic),
		)
		if err != nil {
			return fmt.Errorf("kafka publisher: %w", err)
		}
		defer kafka.Close(context.Background())
		if err := kafka.EnsureTopic(ctx, cfg.Kafka.Partitions, cfg.Kafka.ReplicationFactor); err != nil {
			return fmt.Errorf("ensure discovery topic: %w", err)
		}
		recorderOpts = append(recorderOpts, recorder.WithPublisher(kafka))
		log.Info("publishing discoveries", "topic", kafka.Topic(), "brokers", cfg.Kafka.Brokers)
	}
	rec := recorder.New(st, recorderOpts...)

	dispatcher := recorder.NewDispatcher(rec,
		recorder.WithWorkers(cfg.Recorder.Workers),
		recorder.WithQueueSize(cfg.Recorder.QueueSize),
		recorder.WithJobTimeout(cfg.Recorder.Timeout),
		recorder.WithDispatcherLogger(log),
		recorder.WithDispatcherMetrics(catalogMetrics),
	)
	svc := service.New(st, dispatcher,
		service.WithLogger(log),
		service.WithMetrics(catalogMetrics),
	)

	router := chi.NewRouter()
	router.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{Registry: registry}))
	handler.New(svc, rec, st, log,
		handler.WithMaxBodyBytes(cfg.MaxRequestBytes),
		handler.WithTimeout(cfg.RequestTimeout),
		handler.WithMetrics(httpMetrics),
	).Register(router)

	srv := httpserver.New(cfg.Addr, router)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return httpserver.Run(gctx, srv, cfg.ShutdownTimeout, log)
	})
	g.Go(func() error {
		<-gctx.Done()
		drainCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		if err := dispatcher.Close(drainCtx); err != nil {
			log.Warn("recorder queue not drained", "error", err, "pending", dispatcher.Pending())
		}
		return nil
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	log.Info("server stopped")
	return nil
}

// openStore connects to Postgres when a URL is configured and falls back to
// the in-memory catalog otherwise.
func openStore(ctx context.Context, cfg config.DatabaseConfig, log *slog.Logger) (catalogStore, func(), error) {
	if cfg.URL == "" {
		log.Warn("DATABASE_URL not set, using in-memory catalog")
		return store.NewInMemoryStore(), func() {}, nil
	}
	db, err := postgres.Open(ctx, cfg)
	if err != nil {
		return nil, nil, err
	}
	if err := store.Migrate(ctx, db); err != nil {
		_ = db.Close()
		return nil, nil, fmt.Errorf("migrate catalog: %w", err)
	}
	log.Info("catalog connected", "driver", cfg.Driver)
	return store.NewPostgres(db), func() { _ = db.Close() }, nil
}
