package planner

import (
	"daybook/internal/logging"
	"daybook/internal/projector"
	"daybook/internal/store"
	"daybook/internal/types"

	"github.com/google/uuid"
)

// Goals folds the full log into the current goal set.
func (p *Planner) Goals() (map[string]*types.Goal, error) {
	events, err := p.goalEvents()
	if err != nil {
		return nil, err
	}
	return projector.ProjectGoals(events)
}

// CreateGoal records a new goal under the given session date. The fold
// invariants are pre-checked so a duplicate ID or bad parent reference never
// reaches the log.
func (p *Planner) CreateGoal(date string, g types.Goal) (*types.Goal, error) {
	timer := logging.StartTimer(logging.CategoryPlanner, "CreateGoal")
	defer timer.Stop()

	if g.ID == "" {
		g.ID = uuid.NewString()
	}
	if g.Status == "" {
		g.Status = types.GoalActive
	}
	if g.CreatedAt.IsZero() {
		g.CreatedAt = p.now()
	}

	goals, err := p.Goals()
	if err != nil {
		return nil, err
	}
	if _, exists := goals[g.ID]; exists {
		return nil, types.NewConflictError("goal %s already exists", g.ID)
	}
	if g.ParentID != "" {
		if _, ok := goals[g.ParentID]; !ok {
			return nil, types.NewPreconditionError("parent goal %s does not exist", g.ParentID)
		}
	}

	ev := types.Event{
		ID:        uuid.NewString(),
		SessionID: date,
		Kind:      types.KindGoalCreated,
		Timestamp: p.now(),
		Payload:   types.GoalCreatedPayload{Goal: g},
	}
	if err := p.append(ev); err != nil {
		return nil, err
	}

	logging.Planner("Goal %s created (%s, %s)", g.ID, g.Title, g.Horizon)
	return &g, nil
}

// ChangeGoalStatus transitions a goal, enforcing the lifecycle rules
// (completed and abandoned are terminal, active and paused interchange).
func (p *Planner) ChangeGoalStatus(date, goalID string, status types.GoalStatus) error {
	timer := logging.StartTimer(logging.CategoryPlanner, "ChangeGoalStatus")
	defer timer.Stop()

	goals, err := p.Goals()
	if err != nil {
		return err
	}
	g, ok := goals[goalID]
	if !ok {
		return types.NewPreconditionError("unknown goal %s", goalID)
	}
	if !types.CanTransition(g.Status, status) {
		return types.NewPreconditionError("goal %s cannot move from %s to %s", goalID, g.Status, status)
	}

	ev := types.Event{
		ID:        uuid.NewString(),
		SessionID: date,
		Kind:      types.KindGoalStatusChanged,
		Timestamp: p.now(),
		Payload:   types.GoalStatusPayload{GoalID: goalID, Status: status},
	}
	if err := p.append(ev); err != nil {
		return err
	}

	logging.Planner("Goal %s moved to %s", goalID, status)
	return nil
}

// goalEvents pulls the goal-related events in log order.
func (p *Planner) goalEvents() ([]types.Event, error) {
	created, err := p.store.Events(store.ScanFilter{Kind: types.KindGoalCreated})
	if err != nil {
		return nil, err
	}
	changed, err := p.store.Events(store.ScanFilter{Kind: types.KindGoalStatusChanged})
	if err != nil {
		return nil, err
	}
	done, err := p.store.Events(store.ScanFilter{Kind: types.KindTaskCompleted})
	if err != nil {
		return nil, err
	}
	return mergeByTime(mergeByTime(created, changed), done), nil
}

// mergeByTime merges two log-ordered slices preserving overall log order.
func mergeByTime(a, b []types.Event) []types.Event {
	out := make([]types.Event, 0, len(a)+len(b))
	i, j := 0, 0
	for i < len(a) && j < len(b) {
		if !b[j].Timestamp.Before(a[i].Timestamp) {
			out = append(out, a[i])
			i++
		} else {
			out = append(out, b[j])
			j++
		}
	}
	out = append(out, a[i:]...)
	out = append(out, b[j:]...)
	return out
}
