package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	_ "golang.org/x/crypto/x509roots/fallback" // Embed CA certs for scratch container

	metricsadapter "github.com/ericfisherdev/reviewq/internal/adapter/driven/metrics"
	sqliteadapter "github.com/ericfisherdev/reviewq/internal/adapter/driven/sqlite"
	httphandler "github.com/ericfisherdev/reviewq/internal/adapter/driving/http"
	webhandler "github.com/ericfisherdev/reviewq/internal/adapter/driving/web"
	"github.com/ericfisherdev/reviewq/internal/application"
	"github.com/ericfisherdev/reviewq/internal/config"
	"github.com/ericfisherdev/reviewq/internal/wiring"
)

func main() {
	if err := run(); err != nil {
		slog.Error("fatal error", "error", err)
		os.Exit(1)
	}
}

func run() error {
	// 1. Load configuration (fail fast on malformed values).
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: cfg.LogLevel})))
	slog.Info("config loaded",
		"listen_addr", cfg.ListenAddr,
		"db_path", cfg.DBPath,
		"poll_interval", cfg.PollInterval,
		"adaptive_polling", cfg.AdaptivePolling,
		"sources", cfg.EnabledSources,
	)

	// 2. Setup signal-based context (SIGINT, SIGTERM).
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 3. Open database and apply migrations.
	db, err := sqliteadapter.NewDB(ctx, cfg.DBPath)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := db.Close(); closeErr != nil {
			slog.Error("error closing database", "error", closeErr)
		}
	}()
	if err := sqliteadapter.RunMigrations(db.Writer); err != nil {
		return err
	}
	slog.Info("database ready", "path", cfg.DBPath)

	// 4. Metrics registry.
	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics, err := metricsadapter.New(registry)
	if err != nil {
		return err
	}

	// 5. Source plugins and services.
	store := sqliteadapter.NewStore(db)
	plugins, err := wiring.Plugins(cfg, store, metrics)
	if err != nil {
		return err
	}
	ingestSvc := application.NewIngestService(plugins, store.Reviews(), metrics, cfg.PollInterval, cfg.AdaptivePolling)
	reviewSvc := application.NewReviewService(store)
	healthSvc := application.NewHealthService(db, ingestSvc)

	// 6. HTTP routes.
	mux := http.NewServeMux()
	apiHandler := httphandler.NewHandler(reviewSvc, ingestSvc, healthSvc, slog.Default())
	httphandler.RegisterAPIRoutes(mux, apiHandler, promhttp.HandlerFor(registry, promhttp.HandlerOpts{Registry: registry}))
	webhandler.RegisterRoutes(mux, webhandler.NewHandler(reviewSvc, cfg.QueueNotice, slog.Default()))

	srv := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           httphandler.ApplyMiddleware(mux, slog.Default(), metrics),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      5 * time.Minute, // manual ingest blocks until the run finishes
		IdleTimeout:       120 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		ingestSvc.Start(gctx)
		return nil
	})
	g.Go(func() error {
		slog.Info("http server starting", "addr", cfg.ListenAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		slog.Info("shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			slog.Error("http server shutdown error", "error", err)
		}
		return nil
	})

	slog.Info("reviewq started", "sources", ingestSvc.Sources())

	err = g.Wait()
	slog.Info("shutdown complete")
	return err
}
