package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel/attribute"

	"github.com/dejobratic/ticketboard/internal/config"
	"github.com/dejobratic/ticketboard/internal/dashboard/adapters"
	"github.com/dejobratic/ticketboard/internal/dashboard/adapters/backend"
	httpadapter "github.com/dejobratic/ticketboard/internal/dashboard/adapters/http"
	"github.com/dejobratic/ticketboard/internal/dashboard/app"
	"github.com/dejobratic/ticketboard/internal/dashboard/metrics"
	"github.com/dejobratic/ticketboard/internal/dashboard/view"
	"github.com/dejobratic/ticketboard/internal/query"
	"github.com/dejobratic/ticketboard/internal/telemetry"
)

func main() {
	if err := run(); err != nil {
		slog.Error("dashboard exited", "error", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	level, err := telemetry.ParseLevel(cfg.Telemetry.LogLevel)
	if err != nil {
		return err
	}
	logger := telemetry.NewLogger(os.Stdout, level,
		slog.String("service", cfg.Service.Name),
		slog.String("version", cfg.Service.Version),
		slog.String("environment", cfg.Service.Environment),
	)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	tel, err := telemetry.Initialize(ctx, telemetry.Config{
		ServiceName:    cfg.Service.Name,
		ServiceVersion: cfg.Service.Version,
		Environment:    cfg.Service.Environment,
		OTLPEndpoint:   cfg.Telemetry.OTelEndpoint,
		EnableTracing:  cfg.Telemetry.EnableTracing,
		EnableMetrics:  cfg.Telemetry.EnableMetrics,
		SampleRate:     cfg.Telemetry.SampleRate,
		ResourceAttributes: []attribute.KeyValue{
			attribute.String("ticketboard.backend.base_url", cfg.Backend.BaseURL),
			attribute.String("ticketboard.query.stale_time", cfg.Cache.StaleTime.String()),
			attribute.String("ticketboard.query.gc_time", cfg.Cache.GCTime.String()),
		},
	})
	if err != nil {
		return fmt.Errorf("initialize telemetry: %w", err)
	}
	meter := tel.Meter(telemetry.InstrumentationName)

	queryMetrics, err := query.NewMetrics(meter)
	if err != nil {
		return fmt.Errorf("create query metrics: %w", err)
	}
	backendMetrics, err := backend.NewMetrics(meter)
	if err != nil {
		return fmt.Errorf("create backend metrics: %w", err)
	}
	httpMetrics, err := httpadapter.NewMetrics(meter)
	if err != nil {
		return fmt.Errorf("create http metrics: %w", err)
	}

	client, err := backend.NewClient(cfg.Backend.BaseURL)
	if err != nil {
		return fmt.Errorf("create backend client: %w", err)
	}
	api := adapters.NewObservableClient(client, backendMetrics)

	cache := query.New(
		query.WithStaleTime(cfg.Cache.StaleTime),
		query.WithGCTime(cfg.Cache.GCTime),
		query.WithLogger(logger),
		query.WithMetrics(queryMetrics),
	)
	service := app.NewService(api, cache)

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	pageMetrics := metrics.NewMetrics(registry)

	renderer, err := view.NewRenderer(logger,
		view.WithShowErrors(cfg.Dashboard.ShowErrors),
		view.WithRefreshInterval(cfg.Dashboard.RefreshInterval),
		view.WithMetrics(pageMetrics),
	)
	if err != nil {
		return fmt.Errorf("create renderer: %w", err)
	}

	handler := httpadapter.NewHandler(service, renderer, logger,
		httpadapter.WithRenderWait(cfg.Dashboard.RenderWait),
		httpadapter.WithRenderMetrics(pageMetrics),
	)

	var limiter *httpadapter.RateLimiter
	if cfg.RateLimit.RPS > 0 {
		limiter = httpadapter.NewRateLimiter(cfg.RateLimit.RPS, cfg.RateLimit.Burst)
		go limiter.Run(ctx)
	}

	router := httpadapter.NewRouter(handler, httpadapter.RouterConfig{
		MetricsPath:       cfg.HTTP.MetricsPath,
		MetricsHandler:    promhttp.HandlerFor(registry, promhttp.HandlerOpts{Registry: registry}),
		RateLimiter:       limiter,
		TrustProxyHeaders: cfg.HTTP.TrustProxy,
		Metrics:           httpMetrics,
		Logger:            logger,
	})

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTP.Port),
		Handler:           otelhttp.NewHandler(router, "ticketboard"),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      cfg.Dashboard.RenderWait + 15*time.Second,
		IdleTimeout:       60 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		logger.Info("http server starting",
			"port", cfg.HTTP.Port,
			"backend", cfg.Backend.BaseURL,
			"show_errors", cfg.Dashboard.ShowErrors,
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	var runErr error
	select {
	case <-ctx.Done():
	case err := <-serveErr:
		if err != nil {
			runErr = fmt.Errorf("serve http: %w", err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.HTTP.ShutdownGrace)*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", "error", err)
	} else {
		logger.Info("http server stopped")
	}

	cache.Close()

	if err := tel.Shutdown(shutdownCtx); err != nil {
		logger.Error("telemetry shutdown failed", "error", err)
	}
	return runErr
}
