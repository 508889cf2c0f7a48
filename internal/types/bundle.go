package types

import "time"

// MemoryHit is one ranked result from the memory-search collaborator.
type MemoryHit struct {
	Text     string            `json:"text"`
	Score    float64           `json:"score"`
	Metadata map[string]string `json:"metadata,omitempty"`
}

// ContextBundle is the ephemeral merged view of history and retrieved memory
// produced for a single request. It is never persisted; the assembler may
// cache one briefly keyed by (date, query).
type ContextBundle struct {
	TargetDate string `json:"target_date"`
	Query      string `json:"query,omitempty"`

	// StandingFacts are user-level facts keyed by fact name, highest priority
	// when the bundle is truncated to budget.
	StandingFacts map[string]string `json:"standing_facts,omitempty"`

	// Sessions holds the current session first, then prior sessions newest
	// first.
	Sessions []Session `json:"sessions,omitempty"`

	// Goals are the active goals, daily horizon first. Small enough that
	// truncation never drops them.
	Goals []*Goal `json:"goals,omitempty"`

	// Memories are semantic-search hits, ranked by score descending.
	Memories []MemoryHit `json:"memories,omitempty"`

	// MemoryDegraded is set when the memory collaborator was unreachable and
	// the bundle was assembled from local session history only.
	MemoryDegraded bool `json:"memory_degraded"`

	// Truncated is set when the character budget forced items to be dropped.
	Truncated bool `json:"truncated,omitempty"`

	AssembledAt time.Time `json:"assembled_at"`
}

// PatternKind tags the analysis that produced a pattern.
type PatternKind string

const (
	PatternEnergyTrend       PatternKind = "energy_trend"
	PatternBlockerRecurrence PatternKind = "blocker_recurrence"
	PatternDecisionQuality   PatternKind = "decision_quality"
)

// Pattern is an evidenced, thresholded statistical finding over a window of
// sessions. Evidence references session dates or event identifiers so a
// finding is always auditable.
type Pattern struct {
	Kind        PatternKind `json:"kind"`
	Description string      `json:"description"`
	Evidence    []string    `json:"evidence"`
	// Strength is analysis-specific: mean deviation for energy trends,
	// occurrence count for blockers, share delta for decision quality.
	Strength float64 `json:"strength"`
}

// Stance is the polarity a statement takes toward its subject.
type Stance string

const (
	StanceFavors  Stance = "favors"
	StanceRejects Stance = "rejects"
	StanceNeutral Stance = "neutral"
)

// Contradiction pairs a new statement with a retrieved historical item whose
// recorded stance conflicts with the statement's implied stance.
type Contradiction struct {
	Statement  string    `json:"statement"`
	Candidate  MemoryHit `json:"candidate"`
	Similarity float64   `json:"similarity"`
	Current    Stance    `json:"current_stance"`
	Historical Stance    `json:"historical_stance"`
}

// Task is a read-only view of an item from the task-manager collaborator.
type Task struct {
	ID     string `json:"id"`
	Title  string `json:"title"`
	Status string `json:"status"`
}
