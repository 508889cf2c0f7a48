package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all daybook configuration.
type Config struct {
	// Core settings
	Name    string `yaml:"name"`
	Version string `yaml:"version"`

	// DataDir is where the database, logs, and config live.
	DataDir string `yaml:"data_dir"`

	// Memory and embedding configuration
	Memory MemoryConfig `yaml:"memory"`

	// Context assembler configuration
	Assembler AssemblerConfig `yaml:"assembler"`

	// Pattern detector configuration
	Patterns PatternsConfig `yaml:"patterns"`

	// Contradiction detector configuration
	Contradiction ContradictionConfig `yaml:"contradiction"`

	// Reasoning-service configuration
	Reasoning ReasoningConfig `yaml:"reasoning"`

	// Task-manager integration
	Tasks TasksConfig `yaml:"tasks"`

	// Logging
	Logging LoggingConfig `yaml:"logging"`
}

// LoggingConfig configures the category file logger.
type LoggingConfig struct {
	DebugMode  bool            `yaml:"debug_mode"`
	Level      string          `yaml:"level"` // debug, info, warn, error
	Categories map[string]bool `yaml:"categories,omitempty"`
}

// TasksConfig configures the read-only task-manager collaborator.
type TasksConfig struct {
	Enabled bool   `yaml:"enabled"`
	BaseURL string `yaml:"base_url"`
	Timeout string `yaml:"timeout"`
}

// ReasoningConfig configures the external reasoning service.
type ReasoningConfig struct {
	APIKey  string `yaml:"api_key"`
	Model   string `yaml:"model"`
	Timeout string `yaml:"timeout"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Name:    "daybook",
		Version: "0.3.0",
		DataDir: ".daybook",

		Memory:        DefaultMemoryConfig(),
		Assembler:     DefaultAssemblerConfig(),
		Patterns:      DefaultPatternsConfig(),
		Contradiction: DefaultContradictionConfig(),

		Reasoning: ReasoningConfig{
			Model:   "gemini-2.5-flash",
			Timeout: "120s",
		},

		Tasks: TasksConfig{
			Enabled: false,
			BaseURL: "http://localhost:8090",
			Timeout: "10s",
		},

		Logging: LoggingConfig{
			DebugMode: false,
			Level:     "info",
		},
	}
}

// Load loads configuration from a YAML file.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			// Return defaults if config file doesn't exist
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.applyEnvOverrides()

	return cfg, nil
}

// Save saves configuration to a YAML file.
func (c *Config) Save(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	return nil
}

// applyEnvOverrides applies environment variable overrides.
func (c *Config) applyEnvOverrides() {
	if key := os.Getenv("GEMINI_API_KEY"); key != "" {
		c.Reasoning.APIKey = key
		if c.Memory.Embedding.Provider == "genai" {
			c.Memory.Embedding.GenAIAPIKey = key
		}
	}
	if dir := os.Getenv("DAYBOOK_DATA_DIR"); dir != "" {
		c.DataDir = dir
	}
	if path := os.Getenv("DAYBOOK_DB"); path != "" {
		c.Memory.DatabasePath = path
	}
	if url := os.Getenv("DAYBOOK_TASKS_URL"); url != "" {
		c.Tasks.BaseURL = url
		c.Tasks.Enabled = true
	}
	if ep := os.Getenv("OLLAMA_ENDPOINT"); ep != "" {
		c.Memory.Embedding.OllamaEndpoint = ep
	}
}

// DatabasePath returns the resolved SQLite database path.
func (c *Config) DatabasePath() string {
	if c.Memory.DatabasePath != "" {
		return c.Memory.DatabasePath
	}
	return filepath.Join(c.DataDir, "daybook.db")
}

// ConfigPath returns the path of the YAML config inside the data dir.
func (c *Config) ConfigPath() string {
	return filepath.Join(c.DataDir, "config.yaml")
}

// GetReasoningTimeout returns the reasoning-service timeout as a duration.
func (c *Config) GetReasoningTimeout() time.Duration {
	d, err := time.ParseDuration(c.Reasoning.Timeout)
	if err != nil {
		return 120 * time.Second
	}
	return d
}

// GetTasksTimeout returns the task-manager timeout as a duration.
func (c *Config) GetTasksTimeout() time.Duration {
	d, err := time.ParseDuration(c.Tasks.Timeout)
	if err != nil {
		return 10 * time.Second
	}
	return d
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.DataDir == "" {
		return fmt.Errorf("data_dir not configured")
	}
	if err := c.Assembler.Validate(); err != nil {
		return err
	}
	if err := c.Patterns.Validate(); err != nil {
		return err
	}
	return c.Contradiction.Validate()
}
