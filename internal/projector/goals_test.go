package projector

import (
	"errors"
	"testing"
	"time"

	"daybook/internal/types"
)

func goalEvent(id string, offset time.Duration, payload types.Payload) types.Event {
	return types.Event{
		ID:        id,
		SessionID: testDay.Format(types.DateLayout),
		Kind:      payload.Kind(),
		Timestamp: testDay.Add(offset),
		Payload:   payload,
	}
}

func created(id, title string, horizon types.TimeHorizon, parent string) types.GoalCreatedPayload {
	return types.GoalCreatedPayload{Goal: types.Goal{
		ID:       id,
		Title:    title,
		Horizon:  horizon,
		ParentID: parent,
	}}
}

func TestProjectGoalsLifecycle(t *testing.T) {
	events := []types.Event{
		goalEvent("e1", 0, created("g1", "ship v1", types.HorizonQuarterly, "")),
		goalEvent("e2", time.Minute, created("g2", "write launch post", types.HorizonWeekly, "g1")),
		goalEvent("e3", 2*time.Minute, types.GoalStatusPayload{GoalID: "g2", Status: types.GoalPaused}),
		goalEvent("e4", 3*time.Minute, types.GoalStatusPayload{GoalID: "g2", Status: types.GoalActive}),
		goalEvent("e5", 4*time.Minute, types.GoalStatusPayload{GoalID: "g2", Status: types.GoalCompleted}),
	}

	goals, err := ProjectGoals(events)
	if err != nil {
		t.Fatalf("ProjectGoals failed: %v", err)
	}
	if goals["g1"].Status != types.GoalActive {
		t.Errorf("g1 status = %s, want active default", goals["g1"].Status)
	}
	g2 := goals["g2"]
	if g2.Status != types.GoalCompleted {
		t.Errorf("g2 status = %s, want completed", g2.Status)
	}
	if g2.CompletedAt == nil {
		t.Error("completion timestamp not recorded")
	}
}

func TestProjectGoalsRejectsDuplicateID(t *testing.T) {
	events := []types.Event{
		goalEvent("e1", 0, created("g1", "a", types.HorizonDaily, "")),
		goalEvent("e2", time.Minute, created("g1", "b", types.HorizonDaily, "")),
	}
	_, err := ProjectGoals(events)
	var cerr *types.ConflictError
	if !errors.As(err, &cerr) {
		t.Errorf("error = %v, want ConflictError", err)
	}
}

func TestProjectGoalsRejectsTerminalTransition(t *testing.T) {
	events := []types.Event{
		goalEvent("e1", 0, created("g1", "a", types.HorizonDaily, "")),
		goalEvent("e2", time.Minute, types.GoalStatusPayload{GoalID: "g1", Status: types.GoalAbandoned}),
		goalEvent("e3", 2*time.Minute, types.GoalStatusPayload{GoalID: "g1", Status: types.GoalActive}),
	}
	_, err := ProjectGoals(events)
	var perr *types.PreconditionError
	if !errors.As(err, &perr) {
		t.Errorf("error = %v, want PreconditionError", err)
	}
}

func TestProjectGoalsRejectsUnknownParent(t *testing.T) {
	events := []types.Event{
		goalEvent("e1", 0, created("g1", "a", types.HorizonDaily, "missing")),
	}
	_, err := ProjectGoals(events)
	var perr *types.PreconditionError
	if !errors.As(err, &perr) {
		t.Errorf("error = %v, want PreconditionError", err)
	}
}

func TestProjectGoalsCountsLinkedTasks(t *testing.T) {
	events := []types.Event{
		goalEvent("e1", 0, created("g1", "ship v1", types.HorizonQuarterly, "")),
		goalEvent("e2", time.Minute, types.TaskCompletedPayload{TaskID: "t-1", GoalID: "g1"}),
		goalEvent("e3", 2*time.Minute, types.TaskCompletedPayload{TaskID: "t-2", GoalID: "g1"}),
		goalEvent("e4", 3*time.Minute, types.TaskCompletedPayload{TaskID: "t-3"}),
		goalEvent("e5", 4*time.Minute, types.TaskCompletedPayload{TaskID: "t-4", GoalID: "gone"}),
	}
	goals, err := ProjectGoals(events)
	if err != nil {
		t.Fatalf("ProjectGoals failed: %v", err)
	}
	if got := goals["g1"].TasksDone; got != 2 {
		t.Errorf("tasks done = %d, want 2", got)
	}
}

func TestActiveGoalsSortedByHorizon(t *testing.T) {
	events := []types.Event{
		goalEvent("e1", 0, created("g1", "year plan", types.HorizonYearly, "")),
		goalEvent("e2", time.Minute, created("g2", "today", types.HorizonDaily, "")),
		goalEvent("e3", 2*time.Minute, created("g3", "this week", types.HorizonWeekly, "")),
		goalEvent("e4", 3*time.Minute, types.GoalStatusPayload{GoalID: "g3", Status: types.GoalCompleted}),
	}
	goals, err := ProjectGoals(events)
	if err != nil {
		t.Fatalf("ProjectGoals failed: %v", err)
	}

	active := ActiveGoals(goals)
	if len(active) != 2 {
		t.Fatalf("active count = %d, want 2", len(active))
	}
	if active[0].ID != "g2" || active[1].ID != "g1" {
		t.Errorf("order = [%s %s], want daily before yearly", active[0].ID, active[1].ID)
	}
}
