// Package patterns runs statistical analyses over a trailing window of
// sessions: energy trends by time bucket, recurring blockers, and the
// correlation between decision energy and negative outcomes. Every finding
// is thresholded and carries evidence (session dates), so the detector never
// reports from a single outlier.
package patterns

import (
	"sort"

	"daybook/internal/config"
	"daybook/internal/logging"
	"daybook/internal/projector"
	"daybook/internal/store"
	"daybook/internal/types"
)

// Detector analyzes session history for patterns.
type Detector struct {
	store *store.Store
	cfg   config.PatternsConfig
}

// NewDetector builds a detector over a store.
func NewDetector(s *store.Store, cfg config.PatternsConfig) *Detector {
	return &Detector{store: s, cfg: cfg}
}

// Detect runs all analyses over the trailing window of sessions up to and
// including asOf. Findings are returned in a stable order: energy trends,
// blocker recurrences, decision quality.
func (d *Detector) Detect(asOf string) ([]types.Pattern, error) {
	timer := logging.StartTimer(logging.CategoryPatterns, "Detect")
	defer timer.Stop()

	sessions, negatives, err := d.window(asOf)
	if err != nil {
		return nil, err
	}
	if len(sessions) == 0 {
		return nil, nil
	}

	var found []types.Pattern
	found = append(found, EnergyTrends(sessions, d.cfg)...)
	found = append(found, BlockerRecurrences(sessions, d.cfg)...)
	found = append(found, DecisionQuality(sessions, negatives, d.cfg)...)

	logging.Patterns("Detected %d patterns over %d sessions as of %s", len(found), len(sessions), asOf)
	return found, nil
}

// window folds the trailing Window sessions up to asOf, oldest first, and
// collects which decision outcomes were marked negative.
func (d *Detector) window(asOf string) ([]types.Session, map[string]bool, error) {
	events, err := d.store.Events(store.ScanFilter{})
	if err != nil {
		return nil, nil, err
	}

	negatives := make(map[string]bool)
	var inWindow []types.Event
	for _, ev := range events {
		if ev.SessionID > asOf {
			continue
		}
		inWindow = append(inWindow, ev)
		if p, ok := ev.Payload.(types.DecisionOutcomePayload); ok && p.Negative {
			negatives[p.DecisionID] = true
		}
	}

	byDate, err := projector.ProjectAll(inWindow)
	if err != nil {
		return nil, nil, err
	}

	dates := make([]string, 0, len(byDate))
	for date := range byDate {
		dates = append(dates, date)
	}
	sort.Strings(dates)
	if len(dates) > d.cfg.Window {
		dates = dates[len(dates)-d.cfg.Window:]
	}

	sessions := make([]types.Session, 0, len(dates))
	for _, date := range dates {
		sessions = append(sessions, *byDate[date])
	}
	return sessions, negatives, nil
}
