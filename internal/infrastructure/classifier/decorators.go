package classifier

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"

	"github.com/XBanTs/ai-sentiment-analysis/internal/domain/entity"
	"github.com/XBanTs/ai-sentiment-analysis/internal/domain/service"
	"github.com/XBanTs/ai-sentiment-analysis/internal/infrastructure/metrics"
)

// limitedClassifier bounds the number of in-flight inferences
type limitedClassifier struct {
	next service.Classifier
	sem  *semaphore.Weighted
}

func (l *limitedClassifier) Classify(ctx context.Context, text, requestID string) (*entity.SentimentResult, error) {
	if err := l.sem.Acquire(ctx, 1); err != nil {
		return nil, fmt.Errorf("waiting for inference slot: %w", err)
	}
	defer l.sem.Release(1)

	return l.next.Classify(ctx, text, requestID)
}

// instrumentedClassifier records latency and outcome of every inference
type instrumentedClassifier struct {
	next    service.Classifier
	backend string
	metrics *metrics.Metrics
	logger  *zap.Logger
}

func (i *instrumentedClassifier) Classify(ctx context.Context, text, requestID string) (*entity.SentimentResult, error) {
	start := time.Now()
	result, err := i.next.Classify(ctx, text, requestID)
	elapsed := time.Since(start)

	if err != nil || result == nil {
		i.metrics.ObserveClassification(i.backend, metrics.OutcomeError, "", elapsed)
		return result, err
	}

	i.metrics.ObserveClassification(i.backend, metrics.OutcomeSuccess, result.Label, elapsed)
	i.logger.Debug("Text classified",
		zap.String("request_id", requestID),
		zap.String("label", result.Label),
		zap.Float64("score", result.Score),
		zap.Int("text_length", len(text)),
		zap.Duration("latency", elapsed),
	)
	return result, nil
}
