package patterns

import (
	"fmt"

	"daybook/internal/config"
	"daybook/internal/types"
)

// DecisionQuality partitions decisions by the check-in energy of their
// session (at or below the low threshold vs above it) and compares the share
// of negative outcomes between the partitions. Both partitions need the
// minimum sample count before anything is reported; negatives is the set of
// decision IDs whose outcome was marked negative.
func DecisionQuality(sessions []types.Session, negatives map[string]bool, cfg config.PatternsConfig) []types.Pattern {
	type partition struct {
		decisions int
		negative  int
		dates     map[string]bool
	}
	low := partition{dates: make(map[string]bool)}
	high := partition{dates: make(map[string]bool)}

	for _, s := range sessions {
		if s.Morning == nil || len(s.Decisions) == 0 {
			continue
		}
		p := &high
		if s.Morning.EnergyLevel <= cfg.LowEnergyThreshold {
			p = &low
		}
		for _, d := range s.Decisions {
			p.decisions++
			if negatives[d.ID] {
				p.negative++
				p.dates[s.Date] = true
			}
		}
	}

	if low.decisions < cfg.DecisionMinSamples || high.decisions < cfg.DecisionMinSamples {
		return nil
	}

	lowShare := float64(low.negative) / float64(low.decisions)
	highShare := float64(high.negative) / float64(high.decisions)
	if lowShare <= highShare {
		return nil
	}

	evidence := make(map[string]bool, len(low.dates)+len(high.dates))
	for d := range low.dates {
		evidence[d] = true
	}
	for d := range high.dates {
		evidence[d] = true
	}

	return []types.Pattern{{
		Kind: types.PatternDecisionQuality,
		Description: fmt.Sprintf(
			"Decisions made at energy <= %d went badly %.0f%% of the time vs %.0f%% otherwise (%d low-energy, %d high-energy decisions)",
			cfg.LowEnergyThreshold, lowShare*100, highShare*100, low.decisions, high.decisions),
		Evidence: sortedDates(evidence),
		Strength: lowShare - highShare,
	}}
}
