package projector

import (
	"errors"
	"testing"
	"time"

	"daybook/internal/types"

	"github.com/google/go-cmp/cmp"
)

var testDay = time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)

func ev(id string, offset time.Duration, payload types.Payload) types.Event {
	return types.Event{
		ID:        id,
		SessionID: testDay.Format(types.DateLayout),
		Kind:      payload.Kind(),
		Timestamp: testDay.Add(8*time.Hour + offset),
		Payload:   payload,
	}
}

func checkIn(energy int) types.CheckInPayload {
	return types.CheckInPayload{MorningContext: types.MorningContext{
		EnergyLevel:   energy,
		TopOfMind:     []string{"board deck"},
		IntendedFocus: "deep work",
		Blockers:      []string{"waiting on legal"},
	}}
}

func reflection() types.ReflectionPayload {
	return types.ReflectionPayload{EveningReflection: types.EveningReflection{
		ActualFocus:    "mostly deep work",
		Wins:           []string{"finished deck outline"},
		TomorrowIntent: "rehearse",
		EnergyPattern: []types.EnergySample{
			{At: testDay.Add(14 * time.Hour), Level: 2},
		},
	}}
}

func TestProjectFullDay(t *testing.T) {
	events := []types.Event{
		ev("e1", 0, checkIn(4)),
		ev("e2", time.Hour, types.DecisionPayload{Decision: types.Decision{
			ID:                "d1",
			Question:          "which CRM?",
			OptionsConsidered: []string{"hubspot", "salesforce"},
			ChosenOption:      "hubspot",
			Reasoning:         "cheaper for our size",
		}}),
		ev("e3", 2*time.Hour, types.DecisionOutcomePayload{
			DecisionID: "d1",
			Outcome:    "went smoothly",
		}),
		ev("e4", 10*time.Hour, reflection()),
	}

	session, err := Project(events)
	if err != nil {
		t.Fatalf("Project failed: %v", err)
	}

	if session.Morning == nil || session.Morning.EnergyLevel != 4 {
		t.Error("morning context not folded")
	}
	if session.Evening == nil || session.Evening.ActualFocus != "mostly deep work" {
		t.Error("evening reflection not folded")
	}
	if session.Open() {
		t.Error("session with a reflection should be closed")
	}
	if len(session.Decisions) != 1 {
		t.Fatalf("decision count = %d, want 1", len(session.Decisions))
	}
	if session.Decisions[0].Outcome != "went smoothly" {
		t.Errorf("outcome = %q, not amended", session.Decisions[0].Outcome)
	}
	// Morning reading plus one reflection sample.
	if len(session.Energy) != 2 {
		t.Errorf("energy samples = %d, want 2", len(session.Energy))
	}
}

func TestProjectIsDeterministic(t *testing.T) {
	events := []types.Event{
		ev("e1", 0, checkIn(3)),
		ev("e2", time.Hour, types.DecisionPayload{Decision: types.Decision{
			ID:                "d1",
			Question:          "hire now or next quarter?",
			OptionsConsidered: []string{"now", "next quarter"},
			ChosenOption:      "next quarter",
		}}),
		ev("e3", 10*time.Hour, reflection()),
	}

	first, err := Project(events)
	if err != nil {
		t.Fatalf("Project failed: %v", err)
	}
	second, err := Project(events)
	if err != nil {
		t.Fatalf("replayed Project failed: %v", err)
	}
	if diff := cmp.Diff(first, second); diff != "" {
		t.Errorf("replay mismatch (-first +second):\n%s", diff)
	}
}

func TestProjectDuplicateCheckIn(t *testing.T) {
	events := []types.Event{
		ev("e1", 0, checkIn(3)),
		ev("e2", time.Hour, checkIn(5)),
	}
	_, err := Project(events)
	var cerr *types.ConflictError
	if !errors.As(err, &cerr) {
		t.Errorf("error = %v, want ConflictError", err)
	}
}

func TestProjectReflectionWithoutCheckIn(t *testing.T) {
	events := []types.Event{ev("e1", 0, reflection())}
	_, err := Project(events)
	var perr *types.PreconditionError
	if !errors.As(err, &perr) {
		t.Errorf("error = %v, want PreconditionError", err)
	}
}

func TestProjectOutcomeAmendOnce(t *testing.T) {
	decision := types.DecisionPayload{Decision: types.Decision{
		ID:                "d1",
		Question:          "renew the lease?",
		OptionsConsidered: []string{"renew", "move"},
		ChosenOption:      "renew",
	}}

	events := []types.Event{
		ev("e1", 0, checkIn(3)),
		ev("e2", time.Hour, decision),
		ev("e3", 2*time.Hour, types.DecisionOutcomePayload{DecisionID: "d1", Outcome: "fine"}),
		ev("e4", 3*time.Hour, types.DecisionOutcomePayload{DecisionID: "d1", Outcome: "changed my mind"}),
	}
	_, err := Project(events)
	var cerr *types.ConflictError
	if !errors.As(err, &cerr) {
		t.Errorf("error = %v, want ConflictError for second outcome", err)
	}

	// Outcomes for decisions never recorded are precondition failures.
	events = []types.Event{
		ev("e1", 0, checkIn(3)),
		ev("e2", time.Hour, types.DecisionOutcomePayload{DecisionID: "ghost", Outcome: "?"}),
	}
	_, err = Project(events)
	var perr *types.PreconditionError
	if !errors.As(err, &perr) {
		t.Errorf("error = %v, want PreconditionError for unknown decision", err)
	}
}

func TestProjectContradictorySameSessionDecisions(t *testing.T) {
	// Two decisions answering the same question differently both survive as
	// separate entries; the fold does not reconcile them.
	events := []types.Event{
		ev("e1", 0, checkIn(3)),
		ev("e2", time.Hour, types.DecisionPayload{Decision: types.Decision{
			ID:                "d1",
			Question:          "deploy friday?",
			OptionsConsidered: []string{"yes", "no"},
			ChosenOption:      "yes",
		}}),
		ev("e3", 2*time.Hour, types.DecisionPayload{Decision: types.Decision{
			ID:                "d2",
			Question:          "deploy friday?",
			OptionsConsidered: []string{"yes", "no"},
			ChosenOption:      "no",
		}}),
	}
	session, err := Project(events)
	if err != nil {
		t.Fatalf("Project failed: %v", err)
	}
	if len(session.Decisions) != 2 {
		t.Errorf("decision count = %d, want both entries kept", len(session.Decisions))
	}
}

func TestProjectAllGroupsByDate(t *testing.T) {
	day2 := testDay.AddDate(0, 0, 1)
	events := []types.Event{
		ev("e1", 0, checkIn(3)),
		{
			ID:        "e2",
			SessionID: day2.Format(types.DateLayout),
			Kind:      types.KindCheckInRecorded,
			Timestamp: day2.Add(8 * time.Hour),
			Payload:   checkIn(5),
		},
	}

	sessions, err := ProjectAll(events)
	if err != nil {
		t.Fatalf("ProjectAll failed: %v", err)
	}
	if len(sessions) != 2 {
		t.Fatalf("session count = %d, want 2", len(sessions))
	}
	if sessions["2026-03-03"].Morning.EnergyLevel != 5 {
		t.Error("sessions grouped under wrong date")
	}
}
