package client

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/XBanTs/ai-sentiment-analysis/internal/domain/entity"
	"github.com/XBanTs/ai-sentiment-analysis/internal/domain/service"
)

// ErrEmptyPrediction is returned when the server answers without any label
var ErrEmptyPrediction = errors.New("inference server returned no predictions")

// InferenceClassifier adapts InferenceClient to the Classifier interface
type InferenceClassifier struct {
	client *InferenceClient
}

// NewInferenceClassifier creates a new InferenceClassifier
func NewInferenceClassifier(client *InferenceClient) *InferenceClassifier {
	return &InferenceClassifier{client: client}
}

var _ service.Classifier = (*InferenceClassifier)(nil)

// Classify classifies a single text and returns the top-scoring label
func (c *InferenceClassifier) Classify(ctx context.Context, text, requestID string) (*entity.SentimentResult, error) {
	predictions, err := c.client.Predict(ctx, text, requestID)
	if err != nil {
		return nil, err
	}
	if len(predictions) == 0 {
		return nil, ErrEmptyPrediction
	}

	best := predictions[0]
	for _, p := range predictions[1:] {
		if p.Score > best.Score {
			best = p
		}
	}

	return &entity.SentimentResult{
		Label: best.Label,
		Score: best.Score,
	}, nil
}

// VerifyModel checks that the server serves the given model at the pinned
// revision. A server that does not report its revision is accepted; the
// returned flag tells the caller whether the revision could be checked.
func (c *InferenceClassifier) VerifyModel(ctx context.Context, model, revision string) (bool, error) {
	info, err := c.client.Info(ctx)
	if err != nil {
		return false, err
	}

	if info.ModelID != model {
		return false, fmt.Errorf("inference server serves model %q, expected %q", info.ModelID, model)
	}
	if info.ModelSHA == "" {
		return false, nil
	}
	if !strings.HasPrefix(info.ModelSHA, revision) {
		return false, fmt.Errorf("inference server serves revision %q, expected %q", info.ModelSHA, revision)
	}

	return true, nil
}
