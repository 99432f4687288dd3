package commands

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/miradorstack/incident-analyzer/internal/api"
	"github.com/miradorstack/incident-analyzer/internal/cache"
	"github.com/miradorstack/incident-analyzer/internal/classifier"
	"github.com/miradorstack/incident-analyzer/internal/config"
	"github.com/miradorstack/incident-analyzer/internal/metrics"
	"github.com/miradorstack/incident-analyzer/internal/services"
)

func newServeCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve the HTTP facade, the gRPC service and Prometheus metrics",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, logger, err := opts.load(cmd.OutOrStdout())
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return serve(ctx, cfg, logger)
		},
	}
}

func newCacheProvider(cfg config.CacheConfig) (cache.Provider, error) {
	if !cfg.Enabled {
		return cache.NoopProvider{}, nil
	}
	return cache.NewLRUProvider(cfg.Size)
}

func closeCache(provider cache.Provider, logger *slog.Logger) {
	if lru, ok := provider.(*cache.LRUProvider); ok {
		hits, misses := lru.Stats()
		logger.Info("analysis cache stats",
			slog.Uint64("hits", hits),
			slog.Uint64("misses", misses),
			slog.Int("entries", lru.Len()))
	}
	if err := provider.Close(); err != nil {
		logger.Warn("close analysis cache", slog.Any("error", err))
	}
}

func serve(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	ctx, stop := context.WithCancel(ctx)
	defer stop()

	logger.Info("starting incident-analyzer",
		slog.String("http_address", cfg.Server.HTTPAddress),
		slog.String("grpc_address", cfg.Server.GRPCAddress),
		slog.Bool("refit_per_request", cfg.Assistant.RefitPerRequest))

	if err := metrics.Register(prometheus.DefaultRegisterer); err != nil {
		return fmt.Errorf("register metrics: %w", err)
	}

	if !cfg.Assistant.RefitPerRequest {
		if _, err := classifier.Shared(); err != nil {
			return fmt.Errorf("fit assistant: %w", err)
		}
	}

	cacheProvider, err := newCacheProvider(cfg.Cache)
	if err != nil {
		return fmt.Errorf("create cache: %w", err)
	}
	defer closeCache(cacheProvider, logger)

	service := services.NewAnalyzerService(logger, services.Options{
		Predictors: predictorSource(cfg.Assistant),
		Cache:      cacheProvider,
	})

	failures := make(chan error, 3)
	fail := func(component string, err error) {
		logger.Error(component+" exited", slog.Any("error", err))
		failures <- fmt.Errorf("%s: %w", component, err)
		stop()
	}

	var grpcServer *api.Server
	if cfg.Server.GRPCAddress != "" {
		grpcServer, err = api.NewServer(cfg.Server.GRPCAddress, api.NewGRPCService(logger, service))
		if err != nil {
			return fmt.Errorf("create gRPC server: %w", err)
		}
	}

	gin.SetMode(cfg.Server.Mode)
	httpServer := api.NewHTTPServer(cfg.Server, api.NewHTTPHandler(logger, service, cfg.CORS))
	go func() {
		logger.Info("http server listening", slog.String("address", cfg.Server.HTTPAddress))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			fail("http server", err)
		}
	}()

	if grpcServer != nil {
		go func() {
			logger.Info("gRPC server listening", slog.String("address", grpcServer.Address()))
			if err := grpcServer.Start(); err != nil {
				fail("gRPC server", err)
			}
		}()
	}

	var metricsServer *http.Server
	if cfg.Server.MetricsAddress != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())
		metricsServer = &http.Server{
			Addr:         cfg.Server.MetricsAddress,
			Handler:      mux,
			ReadTimeout:  5 * time.Second,
			WriteTimeout: 15 * time.Second,
		}
		go func() {
			logger.Info("metrics server listening", slog.String("address", cfg.Server.MetricsAddress))
			if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				fail("metrics server", err)
			}
		}()
	}

	<-ctx.Done()
	logger.Info("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.GracefulTimeout)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Warn("http server shutdown", slog.Any("error", err))
	}
	if grpcServer != nil {
		grpcServer.Shutdown(shutdownCtx)
	}
	if metricsServer != nil {
		if err := metricsServer.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Warn("metrics server shutdown", slog.Any("error", err))
		}
	}

	logger.Info("incident-analyzer stopped", slog.Duration("analysis_p95", service.LatencyP95()))

	select {
	case err := <-failures:
		return err
	default:
		return nil
	}
}
