// Package types provides shared type definitions used across daybook packages.
// This package exists to break import cycles between the store, projector, and
// assembler. Types in this package should be foundational data structures with
// no complex dependencies.
package types

import (
	"strings"
	"time"
)

// DateLayout is the canonical layout for session dates and session IDs.
// A session ID is the calendar date of the session.
const DateLayout = "2006-01-02"

// Energy scale bounds (1 = depleted, 5 = peak).
const (
	EnergyMin = 1
	EnergyMax = 5
)

// EnergySample is a time-stamped energy reading on the 1-5 scale.
type EnergySample struct {
	At    time.Time `json:"at"`
	Level int       `json:"level"`
}

// MorningContext captures the morning check-in for a session.
type MorningContext struct {
	EnergyLevel   int      `json:"energy_level"`
	TopOfMind     []string `json:"top_of_mind,omitempty"`
	IntendedFocus string   `json:"intended_focus"`
	Blockers      []string `json:"blockers,omitempty"`
}

// EveningReflection captures the evening reflection that closes a session.
type EveningReflection struct {
	ActualFocus    string         `json:"actual_focus"`
	Wins           []string       `json:"wins,omitempty"`
	Challenges     []string       `json:"challenges,omitempty"`
	TomorrowIntent string         `json:"tomorrow_intent"`
	EnergyPattern  []EnergySample `json:"energy_pattern,omitempty"`
}

// Decision records a choice made during a session.
// ChosenOption must be one of OptionsConsidered; Outcome is backfilled later
// and immutable once set.
type Decision struct {
	ID                string    `json:"id"`
	SessionID         string    `json:"session_id"`
	Question          string    `json:"question"`
	Context           string    `json:"context,omitempty"`
	OptionsConsidered []string  `json:"options_considered"`
	ChosenOption      string    `json:"chosen_option"`
	Reasoning         string    `json:"reasoning,omitempty"`
	Outcome           string    `json:"outcome,omitempty"`
	Timestamp         time.Time `json:"timestamp"`
}

// HasOption reports whether opt is one of the options considered.
func (d *Decision) HasOption(opt string) bool {
	for _, o := range d.OptionsConsidered {
		if o == opt {
			return true
		}
	}
	return false
}

// Session is the per-day aggregate of check-in, reflection, and decisions.
// It is derived by folding events; nothing mutates a Session directly.
type Session struct {
	Date      string             `json:"date"` // DateLayout, doubles as session ID
	Morning   *MorningContext    `json:"morning_context,omitempty"`
	Evening   *EveningReflection `json:"evening_reflection,omitempty"`
	Decisions []Decision         `json:"decisions,omitempty"`
	Energy    []EnergySample     `json:"energy_pattern,omitempty"`
}

// Open reports whether the session is still open (no evening reflection yet).
func (s *Session) Open() bool {
	return s.Evening == nil
}

// Weekday returns the weekday of the session date.
// Falls back to Sunday if the date does not parse; callers validate dates
// before a session ever exists, so this is a formality.
func (s *Session) Weekday() time.Weekday {
	t, err := time.Parse(DateLayout, s.Date)
	if err != nil {
		return time.Sunday
	}
	return t.Weekday()
}

// NormalizePhrase canonicalizes a free-text phrase for frequency counting:
// lowercased, whitespace-trimmed, inner runs of whitespace collapsed.
func NormalizePhrase(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}
