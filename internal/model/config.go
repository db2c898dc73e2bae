// Package model loads encoder configuration files.
package model

import (
	"encoding/json"
	"fmt"
	"os"
)

// ActGELUApprox is the approximate-GELU activation forced onto every loaded
// config. The exported graphs were built with it and it is faster at inference
// time, so the value in config.json is ignored.
const ActGELUApprox = "gelu_new"

// Config is the subset of a transformer config.json the engine cares about.
type Config struct {
	ModelType             string `json:"model_type"`
	HiddenSize            int    `json:"hidden_size"`
	NumHiddenLayers       int    `json:"num_hidden_layers"`
	NumAttentionHeads     int    `json:"num_attention_heads"`
	MaxPositionEmbeddings int    `json:"max_position_embeddings"`
	VocabSize             int    `json:"vocab_size"`
	HiddenAct             string `json:"hidden_act"`
}

// LoadConfig reads and parses config.json at path. The activation function is
// always overridden to ActGELUApprox, regardless of the file contents.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read model config: %w", err)
	}

	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse model config: %w", err)
	}
	if cfg.HiddenSize <= 0 {
		return nil, fmt.Errorf("model config has invalid hidden_size %d", cfg.HiddenSize)
	}

	cfg.HiddenAct = ActGELUApprox
	return &cfg, nil
}
