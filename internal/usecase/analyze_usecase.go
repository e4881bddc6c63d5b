package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/XBanTs/ai-sentiment-analysis/internal/domain/entity"
	"github.com/XBanTs/ai-sentiment-analysis/internal/domain/service"
)

// ErrEmptyResult is reported when a classifier returns neither a result nor an error
var ErrEmptyResult = errors.New("classifier returned no result")

// AnalyzeInput represents the body of POST /analyze
type AnalyzeInput = entity.AnalysisRequest

// AnalyzeOutput represents the success body of POST /analyze
type AnalyzeOutput struct {
	Sentiment *entity.SentimentResult `json:"sentiment"`
}

// AnalyzeUsecase defines the interface for sentiment analysis
type AnalyzeUsecase interface {
	Analyze(ctx context.Context, input *AnalyzeInput, requestID string) (*AnalyzeOutput, error)
}

// AnalyzeOptions holds request-level limits
type AnalyzeOptions struct {
	MaxTextLength int
	Timeout       time.Duration
}

type analyzeUsecase struct {
	classifier service.Classifier
	opts       AnalyzeOptions
}

// NewAnalyzeUsecase creates a new analyze usecase
func NewAnalyzeUsecase(classifier service.Classifier, opts AnalyzeOptions) AnalyzeUsecase {
	return &analyzeUsecase{
		classifier: classifier,
		opts:       opts,
	}
}

// Analyze validates the input and classifies its text. Validation failures
// are returned as entity errors; everything else is a *service.ClassificationError.
func (u *analyzeUsecase) Analyze(ctx context.Context, input *AnalyzeInput, requestID string) (*AnalyzeOutput, error) {
	if err := input.Validate(u.opts.MaxTextLength); err != nil {
		return nil, err
	}

	if u.opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, u.opts.Timeout)
		defer cancel()
	}

	result, err := u.classify(ctx, input.Text, requestID)
	if err != nil {
		var classErr *service.ClassificationError
		if errors.As(err, &classErr) {
			return nil, err
		}
		return nil, &service.ClassificationError{Err: err}
	}
	if result == nil {
		return nil, &service.ClassificationError{Err: ErrEmptyResult}
	}

	return &AnalyzeOutput{Sentiment: result}, nil
}

type classifyResult struct {
	result *entity.SentimentResult
	err    error
}

// classify returns once ctx expires, whether or not the classifier observes ctx.
func (u *analyzeUsecase) classify(ctx context.Context, text, requestID string) (*entity.SentimentResult, error) {
	done := make(chan classifyResult, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- classifyResult{err: fmt.Errorf("classifier panic: %v", r)}
			}
		}()

		result, err := u.classifier.Classify(ctx, text, requestID)
		done <- classifyResult{result: result, err: err}
	}()

	select {
	case res := <-done:
		return res.result, res.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}
