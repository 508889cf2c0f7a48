package patterns

import (
	"fmt"
	"sort"

	"daybook/internal/config"
	"daybook/internal/types"
)

// BlockerRecurrences counts normalized blocker phrases from morning
// check-ins across the window. A phrase reported on at least the configured
// number of days becomes a finding whose evidence lists those days.
// Normalization is lowercase with collapsed whitespace, so "Waiting on
// others" and "waiting  on others" count as one phrase.
func BlockerRecurrences(sessions []types.Session, cfg config.PatternsConfig) []types.Pattern {
	type recurrence struct {
		phrase string
		dates  map[string]bool
	}
	byPhrase := make(map[string]*recurrence)

	for _, s := range sessions {
		if s.Morning == nil {
			continue
		}
		for _, blocker := range s.Morning.Blockers {
			phrase := types.NormalizePhrase(blocker)
			if phrase == "" {
				continue
			}
			r, ok := byPhrase[phrase]
			if !ok {
				r = &recurrence{phrase: phrase, dates: make(map[string]bool)}
				byPhrase[phrase] = r
			}
			r.dates[s.Date] = true
		}
	}

	phrases := make([]string, 0, len(byPhrase))
	for phrase := range byPhrase {
		phrases = append(phrases, phrase)
	}
	sort.Strings(phrases)

	var found []types.Pattern
	for _, phrase := range phrases {
		r := byPhrase[phrase]
		if len(r.dates) < cfg.BlockerMinOccurrences {
			continue
		}
		found = append(found, types.Pattern{
			Kind: types.PatternBlockerRecurrence,
			Description: fmt.Sprintf("Blocker %q reported on %d of the last %d days",
				r.phrase, len(r.dates), len(sessions)),
			Evidence: sortedDates(r.dates),
			Strength: float64(len(r.dates)),
		})
	}
	return found
}
