package config

import "fmt"

// ContradictionConfig configures the contradiction detector.
type ContradictionConfig struct {
	// SimilarityThreshold is the minimum similarity for topical overlap
	// before a candidate is even considered (default: 0.75)
	SimilarityThreshold float64 `yaml:"similarity_threshold"`

	// MaxResults caps reported contradictions, similarity descending
	// (default: 5)
	MaxResults int `yaml:"max_results"`
}

// DefaultContradictionConfig returns sensible defaults.
func DefaultContradictionConfig() ContradictionConfig {
	return ContradictionConfig{
		SimilarityThreshold: 0.75,
		MaxResults:          5,
	}
}

// Validate checks the contradiction detector configuration.
func (c ContradictionConfig) Validate() error {
	if c.SimilarityThreshold < 0 || c.SimilarityThreshold > 1 {
		return fmt.Errorf("contradiction similarity_threshold must be in [0,1], got %f", c.SimilarityThreshold)
	}
	if c.MaxResults <= 0 {
		return fmt.Errorf("contradiction max_results must be > 0, got %d", c.MaxResults)
	}
	return nil
}
