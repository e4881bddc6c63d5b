// Package classifier builds the process-wide Classifier Resource from
// configuration. Load is called once during startup; any error it returns
// is fatal.
package classifier

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"

	"github.com/XBanTs/ai-sentiment-analysis/internal/adapter/cache"
	"github.com/XBanTs/ai-sentiment-analysis/internal/adapter/client"
	"github.com/XBanTs/ai-sentiment-analysis/internal/adapter/hub"
	"github.com/XBanTs/ai-sentiment-analysis/internal/adapter/onnx"
	"github.com/XBanTs/ai-sentiment-analysis/internal/domain/service"
	"github.com/XBanTs/ai-sentiment-analysis/internal/infrastructure/config"
	"github.com/XBanTs/ai-sentiment-analysis/internal/infrastructure/metrics"
)

// warmupText is classified once at startup to prove the model works
const warmupText = "warm-up"

// InitError reports that the classifier could not be brought up
type InitError struct {
	Info service.ModelInfo
	Err  error
}

func (e *InitError) Error() string {
	return fmt.Sprintf("failed to initialize %s classifier %s@%s: %v", e.Info.Backend, e.Info.Model, e.Info.Revision, e.Err)
}

func (e *InitError) Unwrap() error {
	return e.Err
}

// Resource is the loaded classifier shared by all requests
type Resource struct {
	service.Classifier
	info   service.ModelInfo
	closer io.Closer
}

// Info returns the backend, model and revision the resource is bound to
func (r *Resource) Info() service.ModelInfo {
	return r.info
}

// Close releases backend resources
func (r *Resource) Close() error {
	if r.closer == nil {
		return nil
	}
	return r.closer.Close()
}

type options struct {
	logger   *zap.Logger
	metrics  *metrics.Metrics
	redis    *redis.Client
	cacheTTL time.Duration
}

// Option configures Load
type Option func(*options)

// WithLogger sets the logger
func WithLogger(l *zap.Logger) Option {
	return func(o *options) { o.logger = l }
}

// WithMetrics records inference and cache metrics
func WithMetrics(m *metrics.Metrics) Option {
	return func(o *options) { o.metrics = m }
}

// WithCache serves repeated texts from Redis; a nil client disables caching
func WithCache(rdb *redis.Client, ttl time.Duration) Option {
	return func(o *options) {
		o.redis = rdb
		o.cacheTTL = ttl
	}
}

// Load creates the configured backend, verifies it with a warm-up
// classification and wraps it with the configured decorators.
func Load(ctx context.Context, cfg *config.ModelConfig, opts ...Option) (*Resource, error) {
	o := options{logger: zap.NewNop()}
	for _, opt := range opts {
		opt(&o)
	}

	info := service.ModelInfo{
		Backend:  cfg.Backend,
		Model:    cfg.ID,
		Revision: cfg.Revision,
	}

	var (
		base   service.Classifier
		closer io.Closer
		err    error
	)
	switch cfg.Backend {
	case config.BackendONNX:
		var c *onnx.Classifier
		c, err = loadONNX(ctx, cfg)
		if err == nil {
			base, closer = c, c
			info.Labels = c.Labels()
		}
	case config.BackendRemote:
		base, err = loadRemote(ctx, cfg, o.logger)
	default:
		err = fmt.Errorf("unknown backend %q", cfg.Backend)
	}
	if err != nil {
		return nil, &InitError{Info: info, Err: err}
	}

	if _, err := base.Classify(ctx, warmupText, "warmup"); err != nil {
		if closer != nil {
			_ = closer.Close()
		}
		return nil, &InitError{Info: info, Err: fmt.Errorf("warm-up classification failed: %w", err)}
	}

	chain := base
	chain = &instrumentedClassifier{next: chain, backend: cfg.Backend, metrics: o.metrics, logger: o.logger}
	if cfg.MaxConcurrency > 0 {
		chain = &limitedClassifier{next: chain, sem: semaphore.NewWeighted(cfg.MaxConcurrency)}
	}
	if o.redis != nil {
		chain = cache.NewCachedClassifier(chain, o.redis, info, o.cacheTTL, o.logger, o.metrics)
	}

	o.logger.Info("Classifier loaded",
		zap.String("backend", info.Backend),
		zap.String("model", info.Model),
		zap.String("revision", info.Revision),
		zap.Strings("labels", info.Labels),
		zap.Int64("max_concurrency", cfg.MaxConcurrency),
		zap.Bool("cache", o.redis != nil),
	)

	return &Resource{Classifier: chain, info: info, closer: closer}, nil
}

func loadONNX(ctx context.Context, cfg *config.ModelConfig) (*onnx.Classifier, error) {
	fetcher := hub.NewFetcher(cfg.HubURL, cfg.CacheDir, cfg.APIToken, 0)

	dir, err := fetcher.Fetch(ctx, cfg.ID, cfg.Revision, onnx.ConfigFile, onnx.VocabFile, cfg.ONNXFile)
	if err != nil {
		return nil, err
	}

	return onnx.New(dir, onnx.Options{
		ModelFile:      cfg.ONNXFile,
		RuntimeLibrary: cfg.RuntimeLibrary,
		IntraOpThreads: cfg.IntraOpThreads,
	})
}

func loadRemote(ctx context.Context, cfg *config.ModelConfig, logger *zap.Logger) (*client.InferenceClassifier, error) {
	c := client.NewInferenceClassifier(client.NewInferenceClient(cfg.Endpoint, cfg.APIToken, cfg.RequestTimeout))

	verified, err := c.VerifyModel(ctx, cfg.ID, cfg.Revision)
	if err != nil {
		return nil, err
	}
	if !verified {
		logger.Warn("Inference server does not report its model revision; pinning cannot be verified",
			zap.String("endpoint", cfg.Endpoint),
			zap.String("revision", cfg.Revision),
		)
	}

	return c, nil
}
