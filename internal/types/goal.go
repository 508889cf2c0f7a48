package types

import "time"

// GoalStatus is the lifecycle state of a goal.
type GoalStatus string

const (
	GoalActive    GoalStatus = "active"
	GoalCompleted GoalStatus = "completed"
	GoalPaused    GoalStatus = "paused"
	GoalAbandoned GoalStatus = "abandoned"
)

// TimeHorizon is the planning horizon of a goal.
type TimeHorizon string

const (
	HorizonDaily     TimeHorizon = "daily"
	HorizonWeekly    TimeHorizon = "weekly"
	HorizonMonthly   TimeHorizon = "monthly"
	HorizonQuarterly TimeHorizon = "quarterly"
	HorizonYearly    TimeHorizon = "yearly"
)

// Goal is an optionally hierarchical objective with a time horizon.
// Cycles through ParentID are forbidden.
type Goal struct {
	ID          string      `json:"id"`
	Title       string      `json:"title"`
	Description string      `json:"description,omitempty"`
	Horizon     TimeHorizon `json:"time_horizon"`
	Status      GoalStatus  `json:"status"`
	ParentID    string      `json:"parent_goal_id,omitempty"`
	CreatedAt   time.Time   `json:"created_at"`
	CompletedAt *time.Time  `json:"completed_at,omitempty"`

	// TasksDone counts completed tasks linked to this goal. Derived, never
	// set at creation.
	TasksDone int `json:"tasks_done,omitempty"`
}

// ValidGoalStatus reports whether s is a known goal status.
func ValidGoalStatus(s GoalStatus) bool {
	switch s {
	case GoalActive, GoalCompleted, GoalPaused, GoalAbandoned:
		return true
	}
	return false
}

// ValidHorizon reports whether h is a known time horizon.
func ValidHorizon(h TimeHorizon) bool {
	switch h {
	case HorizonDaily, HorizonWeekly, HorizonMonthly, HorizonQuarterly, HorizonYearly:
		return true
	}
	return false
}

// CanTransition reports whether a goal may move from one status to another.
// Transitions are monotonic except active<->paused; completed and abandoned
// are terminal.
func CanTransition(from, to GoalStatus) bool {
	if from == to {
		return false
	}
	switch from {
	case GoalActive:
		return to == GoalPaused || to == GoalCompleted || to == GoalAbandoned
	case GoalPaused:
		return to == GoalActive || to == GoalCompleted || to == GoalAbandoned
	default:
		return false
	}
}
