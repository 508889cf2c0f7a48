package patterns

import (
	"fmt"
	"math"
	"sort"

	"daybook/internal/config"
	"daybook/internal/types"
)

type energyBucket struct {
	label  string
	levels []int
	dates  map[string]bool
}

// EnergyTrends buckets every energy sample by weekday and by time of day,
// then reports buckets whose mean deviates from the overall mean by more than
// the configured threshold. Buckets below the minimum sample count stay
// silent regardless of deviation.
func EnergyTrends(sessions []types.Session, cfg config.PatternsConfig) []types.Pattern {
	buckets := make(map[string]*energyBucket)
	add := func(label, date string, level int) {
		b, ok := buckets[label]
		if !ok {
			b = &energyBucket{label: label, dates: make(map[string]bool)}
			buckets[label] = b
		}
		b.levels = append(b.levels, level)
		b.dates[date] = true
	}

	var total, count float64
	for _, s := range sessions {
		weekday := s.Weekday().String()
		for _, sample := range s.Energy {
			add(weekday+"s", s.Date, sample.Level)
			add(dayPart(sample.At.Hour()), s.Date, sample.Level)
			total += float64(sample.Level)
			count++
		}
	}
	if count == 0 {
		return nil
	}
	overall := total / count

	labels := make([]string, 0, len(buckets))
	for label := range buckets {
		labels = append(labels, label)
	}
	sort.Strings(labels)

	var found []types.Pattern
	for _, label := range labels {
		b := buckets[label]
		if len(b.levels) < cfg.EnergyMinSamples {
			continue
		}
		var sum float64
		for _, l := range b.levels {
			sum += float64(l)
		}
		mean := sum / float64(len(b.levels))
		deviation := mean - overall
		// Strictly more than the threshold; an exact match stays silent.
		if math.Abs(deviation) <= cfg.EnergyDeviation {
			continue
		}

		direction := "below"
		if deviation > 0 {
			direction = "above"
		}
		found = append(found, types.Pattern{
			Kind: types.PatternEnergyTrend,
			Description: fmt.Sprintf("Energy on %s averages %.1f, %.1f %s your overall %.1f",
				b.label, mean, math.Abs(deviation), direction, overall),
			Evidence: sortedDates(b.dates),
			Strength: math.Abs(deviation),
		})
	}
	return found
}

func dayPart(hour int) string {
	switch {
	case hour < 12:
		return "mornings"
	case hour < 17:
		return "afternoons"
	default:
		return "evenings"
	}
}

func sortedDates(dates map[string]bool) []string {
	out := make([]string, 0, len(dates))
	for d := range dates {
		out = append(out, d)
	}
	sort.Strings(out)
	return out
}
