package patterns

import (
	"strings"
	"testing"
	"time"

	"daybook/internal/config"
	"daybook/internal/types"
)

func session(date string, energy int, blockers ...string) types.Session {
	day, _ := time.Parse(types.DateLayout, date)
	return types.Session{
		Date: date,
		Morning: &types.MorningContext{
			EnergyLevel:   energy,
			IntendedFocus: "work",
			Blockers:      blockers,
		},
		Energy: []types.EnergySample{{At: day.Add(8 * time.Hour), Level: energy}},
	}
}

func TestEnergyTrendLowMondays(t *testing.T) {
	// Three Mondays at energy 2 against higher-energy weekdays.
	sessions := []types.Session{
		session("2026-03-02", 2), // Monday
		session("2026-03-03", 4),
		session("2026-03-04", 4),
		session("2026-03-09", 2), // Monday
		session("2026-03-10", 4),
		session("2026-03-16", 2), // Monday
		session("2026-03-17", 4),
	}

	found := EnergyTrends(sessions, config.DefaultPatternsConfig())

	var monday *types.Pattern
	for i := range found {
		if strings.Contains(found[i].Description, "Mondays") {
			monday = &found[i]
		}
	}
	if monday == nil {
		t.Fatalf("no Monday trend in %v", found)
	}
	if monday.Kind != types.PatternEnergyTrend {
		t.Errorf("kind = %s", monday.Kind)
	}
	if len(monday.Evidence) != 3 {
		t.Errorf("evidence = %v, want the three Mondays", monday.Evidence)
	}
	if monday.Strength < 1.0 {
		t.Errorf("strength = %.2f, want >= deviation threshold", monday.Strength)
	}
}

func TestEnergyTrendNeedsMinimumSamples(t *testing.T) {
	// A single depleted Monday must stay silent.
	sessions := []types.Session{
		session("2026-03-02", 1), // Monday
		session("2026-03-03", 4),
		session("2026-03-04", 4),
		session("2026-03-05", 4),
	}

	found := EnergyTrends(sessions, config.DefaultPatternsConfig())
	for _, p := range found {
		if strings.Contains(p.Description, "Mondays") {
			t.Errorf("single outlier reported: %s", p.Description)
		}
	}
}

func TestEnergyTrendExactThresholdSilent(t *testing.T) {
	// Mondays at 2 against Tuesdays at 4: overall mean 3, so both weekday
	// buckets sit exactly on the default 1.0 threshold. "More than" means
	// neither fires.
	sessions := []types.Session{
		session("2026-03-02", 2), // Monday
		session("2026-03-03", 4), // Tuesday
		session("2026-03-09", 2),
		session("2026-03-10", 4),
		session("2026-03-16", 2),
		session("2026-03-17", 4),
	}

	if found := EnergyTrends(sessions, config.DefaultPatternsConfig()); len(found) != 0 {
		t.Errorf("exact-threshold deviation reported: %v", found)
	}
}

func TestBlockerRecurrenceThreeDays(t *testing.T) {
	sessions := []types.Session{
		session("2026-03-02", 3, "Waiting on others"),
		session("2026-03-03", 3, "waiting  on others"),
		session("2026-03-04", 3, "waiting on others", "flaky ci"),
		session("2026-03-05", 3, "flaky ci"),
	}

	found := BlockerRecurrences(sessions, config.DefaultPatternsConfig())
	if len(found) != 1 {
		t.Fatalf("findings = %d, want 1 (only the recurring phrase)", len(found))
	}
	p := found[0]
	if !strings.Contains(p.Description, "waiting on others") {
		t.Errorf("description = %q", p.Description)
	}
	want := []string{"2026-03-02", "2026-03-03", "2026-03-04"}
	if len(p.Evidence) != len(want) {
		t.Fatalf("evidence = %v, want %v", p.Evidence, want)
	}
	for i := range want {
		if p.Evidence[i] != want[i] {
			t.Errorf("evidence = %v, want %v", p.Evidence, want)
		}
	}
	if p.Strength != 3 {
		t.Errorf("strength = %.0f, want occurrence count 3", p.Strength)
	}
}

func TestBlockerBelowThresholdSilent(t *testing.T) {
	sessions := []types.Session{
		session("2026-03-02", 3, "waiting on others"),
		session("2026-03-03", 3, "waiting on others"),
	}
	if found := BlockerRecurrences(sessions, config.DefaultPatternsConfig()); len(found) != 0 {
		t.Errorf("two occurrences reported: %v", found)
	}
}

func decisionSession(date string, energy int, ids ...string) types.Session {
	s := session(date, energy)
	for _, id := range ids {
		s.Decisions = append(s.Decisions, types.Decision{
			ID:                id,
			Question:          "q",
			OptionsConsidered: []string{"a", "b"},
			ChosenOption:      "a",
		})
	}
	return s
}

func TestDecisionQualityCorrelation(t *testing.T) {
	sessions := []types.Session{
		decisionSession("2026-03-02", 2, "l1", "l2", "l3"),
		decisionSession("2026-03-03", 1, "l4", "l5"),
		decisionSession("2026-03-04", 4, "h1", "h2", "h3"),
		decisionSession("2026-03-05", 5, "h4", "h5"),
	}
	negatives := map[string]bool{"l1": true, "l2": true, "l3": true, "h1": true}

	found := DecisionQuality(sessions, negatives, config.DefaultPatternsConfig())
	if len(found) != 1 {
		t.Fatalf("findings = %d, want 1", len(found))
	}
	p := found[0]
	if p.Kind != types.PatternDecisionQuality {
		t.Errorf("kind = %s", p.Kind)
	}
	// 3/5 negative at low energy vs 1/5 at high.
	if p.Strength < 0.39 || p.Strength > 0.41 {
		t.Errorf("strength = %.2f, want 0.40 share delta", p.Strength)
	}
}

func TestDecisionQualityNeedsBothPartitions(t *testing.T) {
	// Plenty of low-energy decisions but too few high-energy ones.
	sessions := []types.Session{
		decisionSession("2026-03-02", 2, "l1", "l2", "l3", "l4", "l5"),
		decisionSession("2026-03-03", 4, "h1"),
	}
	negatives := map[string]bool{"l1": true, "l2": true}

	if found := DecisionQuality(sessions, negatives, config.DefaultPatternsConfig()); len(found) != 0 {
		t.Errorf("reported without enough high-energy samples: %v", found)
	}
}
