// Package projector folds event streams into session and goal read models.
// Every function here is a pure fold over its input slice: same events in,
// same model out, no I/O and no clock reads. Callers scan the store and hand
// the events over in log order.
package projector

import (
	"daybook/internal/types"
)

// Project folds a single session's events into a Session aggregate.
// Events must be in log order (timestamp asc, insertion order tiebreak) and
// belong to one session date; mixing dates is a programming error and fails
// with a ValidationError.
//
// Fold rules:
//   - a second check-in for the date is a ConflictError
//   - a reflection before any check-in is a PreconditionError
//   - decisions append in order; a decision outcome amends the matching
//     decision exactly once, and a second outcome is a ConflictError
func Project(events []types.Event) (*types.Session, error) {
	if len(events) == 0 {
		return nil, types.NewPreconditionError("no events to project")
	}

	session := &types.Session{Date: events[0].SessionID}

	for _, ev := range events {
		if ev.SessionID != session.Date {
			return nil, types.NewValidationError(
				"event %s belongs to session %s, projecting %s", ev.ID, ev.SessionID, session.Date)
		}

		switch p := ev.Payload.(type) {
		case types.CheckInPayload:
			if session.Morning != nil {
				return nil, types.NewConflictError("check-in already recorded for %s", session.Date)
			}
			mc := p.MorningContext
			session.Morning = &mc
			session.Energy = append(session.Energy, types.EnergySample{
				At:    ev.Timestamp,
				Level: mc.EnergyLevel,
			})

		case types.ReflectionPayload:
			if session.Morning == nil {
				return nil, types.NewPreconditionError(
					"reflection for %s arrived before any check-in", session.Date)
			}
			if session.Evening != nil {
				return nil, types.NewConflictError("reflection already recorded for %s", session.Date)
			}
			er := p.EveningReflection
			session.Evening = &er
			session.Energy = append(session.Energy, er.EnergyPattern...)

		case types.DecisionPayload:
			d := p.Decision
			d.SessionID = session.Date
			if d.Timestamp.IsZero() {
				d.Timestamp = ev.Timestamp
			}
			session.Decisions = append(session.Decisions, d)

		case types.DecisionOutcomePayload:
			if err := amendOutcome(session, p); err != nil {
				return nil, err
			}

		case types.TaskCompletedPayload, types.AssumptionChallengedPayload,
			types.PatternIdentifiedPayload, types.GoalCreatedPayload, types.GoalStatusPayload:
			// Not part of the session aggregate. Goal events fold in
			// ProjectGoals; the rest only matter to detectors.

		default:
			return nil, types.NewValidationError("unhandled payload type %T", ev.Payload)
		}
	}

	return session, nil
}

// amendOutcome backfills the outcome of a decision recorded earlier in the
// same session. Outcomes are immutable once set.
func amendOutcome(session *types.Session, p types.DecisionOutcomePayload) error {
	for i := range session.Decisions {
		if session.Decisions[i].ID != p.DecisionID {
			continue
		}
		if session.Decisions[i].Outcome != "" {
			return types.NewConflictError("decision %s already has an outcome", p.DecisionID)
		}
		session.Decisions[i].Outcome = p.Outcome
		return nil
	}
	return types.NewPreconditionError("outcome references unknown decision %s", p.DecisionID)
}

// ProjectAll groups a multi-session event stream by session date and folds
// each group. Input must be in log order; the per-session order is preserved.
func ProjectAll(events []types.Event) (map[string]*types.Session, error) {
	grouped := make(map[string][]types.Event)
	for _, ev := range events {
		grouped[ev.SessionID] = append(grouped[ev.SessionID], ev)
	}

	sessions := make(map[string]*types.Session, len(grouped))
	for date, evs := range grouped {
		session, err := Project(evs)
		if err != nil {
			return nil, err
		}
		sessions[date] = session
	}
	return sessions, nil
}
