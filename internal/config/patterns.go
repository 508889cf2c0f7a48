package config

import "fmt"

// PatternsConfig configures the pattern detector thresholds.
// All minimum-sample settings exist to avoid false positives from
// single outliers or sparse data; below them the detector emits nothing.
type PatternsConfig struct {
	// Window is the trailing number of sessions analyzed (default: 30)
	Window int `yaml:"window"`

	// Energy trend analysis
	EnergyDeviation  float64 `yaml:"energy_deviation"`   // bucket mean vs overall mean, 1-5 scale (default: 1.0)
	EnergyMinSamples int     `yaml:"energy_min_samples"` // supporting samples per bucket (default: 3)

	// Blocker recurrence analysis
	BlockerMinOccurrences int `yaml:"blocker_min_occurrences"` // default: 3

	// Decision-quality correlation analysis
	LowEnergyThreshold int `yaml:"low_energy_threshold"` // decisions at or below count as low energy (default: 2)
	DecisionMinSamples int `yaml:"decision_min_samples"` // per energy bucket (default: 5)

	// Background worker
	ScanInterval string `yaml:"scan_interval"` // default: 1h
}

// DefaultPatternsConfig returns sensible defaults.
func DefaultPatternsConfig() PatternsConfig {
	return PatternsConfig{
		Window:                30,
		EnergyDeviation:       1.0,
		EnergyMinSamples:      3,
		BlockerMinOccurrences: 3,
		LowEnergyThreshold:    2,
		DecisionMinSamples:    5,
		ScanInterval:          "1h",
	}
}

// Validate checks the pattern detector configuration.
func (c PatternsConfig) Validate() error {
	if c.Window <= 0 {
		return fmt.Errorf("patterns window must be > 0, got %d", c.Window)
	}
	if c.EnergyMinSamples < 1 {
		return fmt.Errorf("patterns energy_min_samples must be >= 1, got %d", c.EnergyMinSamples)
	}
	if c.BlockerMinOccurrences < 1 {
		return fmt.Errorf("patterns blocker_min_occurrences must be >= 1, got %d", c.BlockerMinOccurrences)
	}
	if c.DecisionMinSamples < 1 {
		return fmt.Errorf("patterns decision_min_samples must be >= 1, got %d", c.DecisionMinSamples)
	}
	return nil
}
