// Package onnx runs a Hugging Face sequence classification model exported
// to ONNX in-process with ONNX Runtime.
package onnx

import (
	"context"
	"fmt"
	"math"
	"path/filepath"

	"github.com/XBanTs/ai-sentiment-analysis/internal/domain/entity"
	"github.com/XBanTs/ai-sentiment-analysis/internal/domain/service"
)

// Artifact file names inside a model directory
const (
	ConfigFile = "config.json"
	VocabFile  = "vocab.txt"
)

// Options configures a Classifier
type Options struct {
	// ModelFile is the ONNX graph path relative to the model directory
	ModelFile string
	// RuntimeLibrary is the onnxruntime shared library; empty uses the default lookup
	RuntimeLibrary string
	IntraOpThreads int
}

// Classifier classifies text with a local ONNX model
type Classifier struct {
	runner       runner
	tok          *tokenizer
	labels       []string
	maxPositions int
}

var _ service.Classifier = (*Classifier)(nil)

// New loads the model found in dir
func New(dir string, opts Options) (*Classifier, error) {
	labels, maxPositions, err := loadModelConfig(filepath.Join(dir, ConfigFile))
	if err != nil {
		return nil, err
	}

	tok, err := newTokenizer(filepath.Join(dir, VocabFile))
	if err != nil {
		return nil, err
	}

	sess, err := newSession(filepath.Join(dir, filepath.FromSlash(opts.ModelFile)), opts.RuntimeLibrary, len(labels), opts.IntraOpThreads)
	if err != nil {
		return nil, err
	}

	return &Classifier{
		runner:       sess,
		tok:          tok,
		labels:       labels,
		maxPositions: maxPositions,
	}, nil
}

// Labels returns the model's labels ordered by class index
func (c *Classifier) Labels() []string {
	return append([]string(nil), c.labels...)
}

// Classify returns the most probable label of text and its softmax probability.
// Inputs longer than the model's maximum sequence length fail.
func (c *Classifier) Classify(ctx context.Context, text, _ string) (*entity.SentimentResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	ids := c.tok.encode(text)
	if len(ids) > c.maxPositions {
		return nil, fmt.Errorf("token indices sequence length is longer than the specified maximum sequence length for this model (%d > %d)", len(ids), c.maxPositions)
	}

	mask := make([]int64, len(ids))
	for i := range mask {
		mask[i] = 1
	}

	logits, err := c.runner.run(ids, mask)
	if err != nil {
		return nil, err
	}
	if len(logits) != len(c.labels) {
		return nil, fmt.Errorf("onnx: got %d logits for %d labels", len(logits), len(c.labels))
	}

	probs := softmax(logits)
	best := 0
	for i := range probs {
		if probs[i] > probs[best] {
			best = i
		}
	}

	return &entity.SentimentResult{
		Label: c.labels[best],
		Score: probs[best],
	}, nil
}

// Close releases the ONNX Runtime session
func (c *Classifier) Close() error {
	return c.runner.close()
}

func softmax(logits []float32) []float64 {
	peak := math.Inf(-1)
	for _, l := range logits {
		peak = math.Max(peak, float64(l))
	}

	out := make([]float64, len(logits))
	var sum float64
	for i, l := range logits {
		out[i] = math.Exp(float64(l) - peak)
		sum += out[i]
	}
	for i := range out {
		out[i] /= sum
	}
	return out
}
