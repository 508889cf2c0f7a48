package projector

import (
	"sort"

	"daybook/internal/types"
)

// ProjectGoals folds the full event stream into the current goal set.
// Goal events and goal-linked task completions contribute; everything else is
// skipped. Events must be in log order.
//
// Fold rules:
//   - creating a goal with an ID already in use is a ConflictError
//   - a parent reference to an unknown goal, or one that would close a
//     cycle, is a PreconditionError
//   - status changes must follow CanTransition; completed and abandoned are
//     terminal, so transitions out of them are PreconditionErrors
func ProjectGoals(events []types.Event) (map[string]*types.Goal, error) {
	goals := make(map[string]*types.Goal)

	for _, ev := range events {
		switch p := ev.Payload.(type) {
		case types.GoalCreatedPayload:
			g := p.Goal
			if _, exists := goals[g.ID]; exists {
				return nil, types.NewConflictError("goal %s already exists", g.ID)
			}
			if g.Status == "" {
				g.Status = types.GoalActive
			}
			if g.CreatedAt.IsZero() {
				g.CreatedAt = ev.Timestamp
			}
			if g.ParentID != "" {
				if _, ok := goals[g.ParentID]; !ok {
					return nil, types.NewPreconditionError(
						"goal %s references unknown parent %s", g.ID, g.ParentID)
				}
				if closesCycle(goals, g.ID, g.ParentID) {
					return nil, types.NewPreconditionError(
						"goal %s parent chain forms a cycle", g.ID)
				}
			}
			goals[g.ID] = &g

		case types.GoalStatusPayload:
			g, ok := goals[p.GoalID]
			if !ok {
				return nil, types.NewPreconditionError(
					"status change references unknown goal %s", p.GoalID)
			}
			if !types.CanTransition(g.Status, p.Status) {
				return nil, types.NewPreconditionError(
					"goal %s cannot move from %s to %s", g.ID, g.Status, p.Status)
			}
			g.Status = p.Status
			if p.Status == types.GoalCompleted {
				ts := ev.Timestamp
				g.CompletedAt = &ts
			}

		case types.TaskCompletedPayload:
			// Tasks need not reference a goal, and the goal may have been
			// recorded elsewhere. Count only what resolves.
			if p.GoalID == "" {
				continue
			}
			if g, ok := goals[p.GoalID]; ok {
				g.TasksDone++
			}
		}
	}

	return goals, nil
}

// ActiveGoals filters a goal set down to active goals, sorted by horizon
// (daily first) then creation time. This is the view the assembler includes
// in a context bundle.
func ActiveGoals(goals map[string]*types.Goal) []*types.Goal {
	var active []*types.Goal
	for _, g := range goals {
		if g.Status == types.GoalActive {
			active = append(active, g)
		}
	}
	sort.Slice(active, func(i, j int) bool {
		hi, hj := horizonRank(active[i].Horizon), horizonRank(active[j].Horizon)
		if hi != hj {
			return hi < hj
		}
		return active[i].CreatedAt.Before(active[j].CreatedAt)
	})
	return active
}

func horizonRank(h types.TimeHorizon) int {
	switch h {
	case types.HorizonDaily:
		return 0
	case types.HorizonWeekly:
		return 1
	case types.HorizonMonthly:
		return 2
	case types.HorizonQuarterly:
		return 3
	case types.HorizonYearly:
		return 4
	default:
		return 5
	}
}

// closesCycle reports whether making parentID the parent of goalID would
// create a cycle in the existing goal set.
func closesCycle(goals map[string]*types.Goal, goalID, parentID string) bool {
	seen := make(map[string]bool)
	for cur := parentID; cur != ""; {
		if cur == goalID {
			return true
		}
		if seen[cur] {
			return true
		}
		seen[cur] = true
		g, ok := goals[cur]
		if !ok {
			return false
		}
		cur = g.ParentID
	}
	return false
}
