package onnx

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
)

// defaultMaxPositions applies when config.json does not state the limit
const defaultMaxPositions = 512

// modelConfig is the subset of a transformers config.json the classifier needs
type modelConfig struct {
	ID2Label              map[string]string `json:"id2label"`
	MaxPositionEmbeddings int               `json:"max_position_embeddings"`
}

// loadModelConfig reads config.json and returns the labels ordered by
// class index along with the maximum sequence length.
func loadModelConfig(path string) ([]string, int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, 0, fmt.Errorf("model config: %w", err)
	}

	var cfg modelConfig
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, 0, fmt.Errorf("model config: parse %s: %w", path, err)
	}
	if len(cfg.ID2Label) == 0 {
		return nil, 0, fmt.Errorf("model config: %s has no id2label mapping", path)
	}

	labels := make([]string, len(cfg.ID2Label))
	for key, label := range cfg.ID2Label {
		idx, err := strconv.Atoi(key)
		if err != nil || idx < 0 || idx >= len(labels) {
			return nil, 0, fmt.Errorf("model config: invalid class index %q", key)
		}
		labels[idx] = label
	}

	maxPositions := cfg.MaxPositionEmbeddings
	if maxPositions <= 0 {
		maxPositions = defaultMaxPositions
	}

	return labels, maxPositions, nil
}
