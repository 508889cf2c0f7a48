package config

import (
	"fmt"
	"time"
)

// AssemblerConfig configures context bundle assembly.
//
// Budget architecture: the bundle is truncated to CharBudget characters,
// dropping lowest-priority items first. Priority order is fixed:
// standing facts > most recent session > highest-similarity memories.
type AssemblerConfig struct {
	// HistoryWindow is how many prior sessions to include (default: 7)
	HistoryWindow int `yaml:"history_window"`

	// RetrievalLimit caps ranked memory-search results (default: 20)
	RetrievalLimit int `yaml:"retrieval_limit"`

	// CharBudget caps the total textual volume of a bundle (default: 24000)
	CharBudget int `yaml:"char_budget"`

	// CollaboratorTimeout bounds the concurrent memory-search and
	// standing-facts fetch; past it the assembler proceeds degraded
	// (default: 5s)
	CollaboratorTimeout string `yaml:"collaborator_timeout"`

	// CacheTTL is how long an assembled bundle stays cached per
	// (date, query) before it must be rebuilt (default: 30s)
	CacheTTL string `yaml:"cache_ttl"`
}

// DefaultAssemblerConfig returns sensible defaults.
func DefaultAssemblerConfig() AssemblerConfig {
	return AssemblerConfig{
		HistoryWindow:       7,
		RetrievalLimit:      20,
		CharBudget:          24000,
		CollaboratorTimeout: "5s",
		CacheTTL:            "30s",
	}
}

// GetCollaboratorTimeout returns the collaborator timeout as a duration.
func (c AssemblerConfig) GetCollaboratorTimeout() time.Duration {
	d, err := time.ParseDuration(c.CollaboratorTimeout)
	if err != nil {
		return 5 * time.Second
	}
	return d
}

// GetCacheTTL returns the bundle cache TTL as a duration.
func (c AssemblerConfig) GetCacheTTL() time.Duration {
	d, err := time.ParseDuration(c.CacheTTL)
	if err != nil {
		return 30 * time.Second
	}
	return d
}

// Validate checks the assembler configuration.
func (c AssemblerConfig) Validate() error {
	if c.HistoryWindow < 0 {
		return fmt.Errorf("assembler history_window must be >= 0, got %d", c.HistoryWindow)
	}
	if c.RetrievalLimit <= 0 {
		return fmt.Errorf("assembler retrieval_limit must be > 0, got %d", c.RetrievalLimit)
	}
	if c.CharBudget <= 0 {
		return fmt.Errorf("assembler char_budget must be > 0, got %d", c.CharBudget)
	}
	return nil
}
