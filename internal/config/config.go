package config

import (
	"fmt"
	"os"

	"github.com/pelletier/go-toml/v2"
)

type LLMConfig struct {
	Provider       string `toml:"provider"`
	Model          string `toml:"model"`
	EmbeddingModel string `toml:"embedding_model"`
	EmbeddingDim   int    `toml:"embedding_dim"`
	APIKey         string `toml:"api_key"`
	BaseURL        string `toml:"base_url"`
}

type PostgresConfig struct {
	DSN string `toml:"dsn"`
}

// SimilarityConfig carries the match tier boundaries and merge gates.
// Tier boundaries are inclusive on the lower bound of each tier.
type SimilarityConfig struct {
	ExactThreshold      float64 `toml:"exact_threshold"`
	HighThreshold       float64 `toml:"high_threshold"`
	RelatedThreshold    float64 `toml:"related_threshold"`
	MinMergeConfidence  float64 `toml:"min_merge_confidence"`
	MaxClusterSize      int     `toml:"max_cluster_size"`
	MinRelationStrength float64 `toml:"min_relation_strength"`
}

type ExtractionConfig struct {
	Prompt string `toml:"prompt"`
}

type Config struct {
	LLM        LLMConfig        `toml:"llm"`
	Postgres   PostgresConfig   `toml:"postgres"`
	Similarity SimilarityConfig `toml:"similarity"`
	Extraction ExtractionConfig `toml:"extraction"`
}

// Default returns the compiled-in configuration. Callers override via TOML
// or environment variables.
func Default() *Config {
	return &Config{
		LLM: LLMConfig{
			Provider:     "openai",
			EmbeddingDim: 1536,
		},
		Similarity: SimilarityConfig{
			ExactThreshold:      0.95,
			HighThreshold:       0.85,
			RelatedThreshold:    0.70,
			MinMergeConfidence:  0.80,
			MaxClusterSize:      5,
			MinRelationStrength: 0.5,
		},
	}
}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file '%s': %w", path, err)
	}

	cfg := Default()
	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse TOML: %w", err)
	}

	return cfg, nil
}
