package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/XBanTs/ai-sentiment-analysis/internal/domain/entity"
	"github.com/XBanTs/ai-sentiment-analysis/internal/domain/service"
	"github.com/XBanTs/ai-sentiment-analysis/internal/infrastructure/metrics"
)

// CachedClassifier serves repeated texts from Redis. Results depend only on
// the text for a pinned model, so the key is scoped by model and revision.
// Redis failures are logged and bypassed.
type CachedClassifier struct {
	next    service.Classifier
	rdb     *redis.Client
	prefix  string
	ttl     time.Duration
	logger  *zap.Logger
	metrics *metrics.Metrics
}

// NewCachedClassifier wraps next with a Redis result cache
func NewCachedClassifier(next service.Classifier, rdb *redis.Client, info service.ModelInfo, ttl time.Duration, logger *zap.Logger, m *metrics.Metrics) *CachedClassifier {
	return &CachedClassifier{
		next:    next,
		rdb:     rdb,
		prefix:  "sentiment:" + info.Model + "@" + info.Revision + ":",
		ttl:     ttl,
		logger:  logger,
		metrics: m,
	}
}

// Key returns the cache key of text
func (c *CachedClassifier) Key(text string) string {
	sum := sha256.Sum256([]byte(text))
	return c.prefix + hex.EncodeToString(sum[:])
}

// Classify returns the cached result for text or classifies and stores it
func (c *CachedClassifier) Classify(ctx context.Context, text, requestID string) (*entity.SentimentResult, error) {
	key := c.Key(text)

	if result, ok := c.lookup(ctx, key, requestID); ok {
		return result, nil
	}

	result, err := c.next.Classify(ctx, text, requestID)
	if err != nil {
		return nil, err
	}

	c.store(ctx, key, result, requestID)
	return result, nil
}

func (c *CachedClassifier) lookup(ctx context.Context, key, requestID string) (*entity.SentimentResult, bool) {
	data, err := c.rdb.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		c.metrics.ObserveCacheLookup(metrics.CacheMiss)
		return nil, false
	}
	if err != nil {
		c.metrics.ObserveCacheLookup(metrics.CacheError)
		c.logger.Warn("Cache lookup failed", zap.String("request_id", requestID), zap.Error(err))
		return nil, false
	}

	var result entity.SentimentResult
	if err := json.Unmarshal(data, &result); err != nil {
		c.metrics.ObserveCacheLookup(metrics.CacheError)
		c.logger.Warn("Discarding corrupt cache entry", zap.String("key", key), zap.Error(err))
		return nil, false
	}

	c.metrics.ObserveCacheLookup(metrics.CacheHit)
	return &result, true
}

func (c *CachedClassifier) store(ctx context.Context, key string, result *entity.SentimentResult, requestID string) {
	data, err := json.Marshal(result)
	if err != nil {
		return
	}
	if err := c.rdb.Set(ctx, key, data, c.ttl).Err(); err != nil {
		c.logger.Warn("Cache store failed", zap.String("request_id", requestID), zap.Error(err))
	}
}
