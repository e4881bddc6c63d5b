package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/XBanTs/ai-sentiment-analysis/internal/adapter/http/handler"
	"github.com/XBanTs/ai-sentiment-analysis/internal/adapter/http/router"
	"github.com/XBanTs/ai-sentiment-analysis/internal/infrastructure/cache"
	"github.com/XBanTs/ai-sentiment-analysis/internal/infrastructure/classifier"
	"github.com/XBanTs/ai-sentiment-analysis/internal/infrastructure/config"
	"github.com/XBanTs/ai-sentiment-analysis/internal/infrastructure/logger"
	"github.com/XBanTs/ai-sentiment-analysis/internal/infrastructure/metrics"
	"github.com/XBanTs/ai-sentiment-analysis/internal/usecase"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	// Initialize logger
	log, err := logger.NewLogger(&cfg.Log)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer func() { _ = log.Sync() }()

	// Set Gin mode
	gin.SetMode(cfg.Server.Mode)

	// Metrics registry
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	// Initialize Redis (optional, continue without it)
	var redisClient *redis.Client
	if cfg.Redis.Enabled {
		redisClient, err = cache.NewRedisClient(&cfg.Redis)
		if err != nil {
			log.Warn("Failed to connect to Redis, continuing without cache", zap.Error(err))
			redisClient = nil
		} else {
			log.Info("Connected to Redis", zap.String("address", cfg.Redis.Address()))
			defer func() { _ = redisClient.Close() }()
		}
	}

	// Load the classifier before accepting any request
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	log.Info("Loading classifier",
		zap.String("backend", cfg.Model.Backend),
		zap.String("model", cfg.Model.ID),
		zap.String("revision", cfg.Model.Revision),
	)
	resource, err := classifier.Load(ctx, &cfg.Model,
		classifier.WithLogger(log),
		classifier.WithMetrics(m),
		classifier.WithCache(redisClient, cfg.Redis.TTL),
	)
	if err != nil {
		log.Error("Failed to load classifier", zap.Error(err))
		return err
	}
	defer func() {
		if err := resource.Close(); err != nil {
			log.Warn("Failed to release classifier", zap.Error(err))
		}
	}()

	analyzeUC := usecase.NewAnalyzeUsecase(resource, usecase.AnalyzeOptions{
		MaxTextLength: cfg.Analyze.MaxTextLength,
		Timeout:       cfg.Analyze.Timeout,
	})

	// Setup router
	model := resource.Info()
	r := router.Setup(router.Options{
		AnalyzeUC: analyzeUC,
		ErrorPolicy: handler.ErrorPolicy{
			ExposeErrors:  cfg.Analyze.ExposeErrors,
			MaxTextLength: cfg.Analyze.MaxTextLength,
		},
		CORS:     cfg.CORS,
		Model:    &model,
		Redis:    redisClient,
		Metrics:  m,
		Gatherer: reg,
		Logger:   log,
	})

	// Create HTTP server
	addr := cfg.Server.Address()
	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	// Start server in goroutine
	serveErr := make(chan error, 1)
	go func() {
		log.Info("Starting server", zap.String("address", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	// Wait for interrupt signal or a listener failure
	select {
	case <-ctx.Done():
	case err := <-serveErr:
		if err != nil {
			log.Error("Server failed", zap.Error(err))
			return fmt.Errorf("server failed: %w", err)
		}
	}

	log.Info("Shutting down server...")

	// Graceful shutdown with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown", zap.Error(err))
	}

	log.Info("Server exited")
	return nil
}
