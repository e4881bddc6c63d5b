package service

import (
	"context"

	"github.com/XBanTs/ai-sentiment-analysis/internal/domain/entity"
)

// Classifier defines the interface for sentiment classification
type Classifier interface {
	// Classify classifies a single text. requestID is used for tracing only.
	Classify(ctx context.Context, text, requestID string) (*entity.SentimentResult, error)
}

// ClassificationError wraps any failure raised while invoking a classifier
type ClassificationError struct {
	Err error
}

func (e *ClassificationError) Error() string {
	if e.Err == nil {
		return "classification failed"
	}
	return e.Err.Error()
}

func (e *ClassificationError) Unwrap() error {
	return e.Err
}

// ModelInfo describes the model a classifier is bound to
type ModelInfo struct {
	Backend  string   `json:"backend"`
	Model    string   `json:"model"`
	Revision string   `json:"revision"`
	Labels   []string `json:"labels,omitempty"`
}
