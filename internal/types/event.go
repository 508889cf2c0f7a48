package types

import (
	"encoding/json"
	"fmt"
	"time"
)

// EventKind discriminates the closed set of domain event payloads.
// The projector handles every kind exhaustively; adding a kind means
// touching the projector fold as well.
type EventKind string

const (
	KindGoalCreated             EventKind = "goal_created"
	KindGoalStatusChanged       EventKind = "goal_status_changed"
	KindTaskCompleted           EventKind = "task_completed"
	KindAssumptionChallenged    EventKind = "assumption_challenged"
	KindPatternIdentified       EventKind = "pattern_identified"
	KindCheckInRecorded         EventKind = "check_in_recorded"
	KindReflectionRecorded      EventKind = "reflection_recorded"
	KindDecisionRecorded        EventKind = "decision_recorded"
	KindDecisionOutcomeRecorded EventKind = "decision_outcome_recorded"
)

// ValidKind reports whether k is a known event kind.
func ValidKind(k EventKind) bool {
	switch k {
	case KindGoalCreated, KindGoalStatusChanged, KindTaskCompleted,
		KindAssumptionChallenged, KindPatternIdentified, KindCheckInRecorded,
		KindReflectionRecorded, KindDecisionRecorded, KindDecisionOutcomeRecorded:
		return true
	}
	return false
}

// Payload is the kind-specific body of an event.
// Implementations are plain structs; Validate enforces the shape invariants
// before an event ever reaches the log.
type Payload interface {
	Kind() EventKind
	Validate() error
}

// Event is an immutable fact in the append-only log.
// SessionID is the calendar date of the session the event belongs to.
type Event struct {
	ID        string    `json:"id"`
	SessionID string    `json:"session_id"`
	Kind      EventKind `json:"kind"`
	Timestamp time.Time `json:"timestamp"`
	Payload   Payload   `json:"payload"`
}

// Validate checks the envelope and the kind-specific payload shape.
func (e *Event) Validate() error {
	if e.SessionID == "" {
		return NewValidationError("event missing session_id")
	}
	if _, err := time.Parse(DateLayout, e.SessionID); err != nil {
		return NewValidationError("session_id %q is not a date (%s)", e.SessionID, DateLayout)
	}
	if e.Timestamp.IsZero() {
		return NewValidationError("event missing timestamp")
	}
	if !ValidKind(e.Kind) {
		return NewValidationError("unknown event kind %q", e.Kind)
	}
	if e.Payload == nil {
		return NewValidationError("event %s missing payload", e.Kind)
	}
	if e.Payload.Kind() != e.Kind {
		return NewValidationError("payload kind %q does not match event kind %q", e.Payload.Kind(), e.Kind)
	}
	return e.Payload.Validate()
}

// =============================================================================
// PAYLOADS
// =============================================================================

// CheckInPayload carries a morning check-in.
type CheckInPayload struct {
	MorningContext
}

func (CheckInPayload) Kind() EventKind { return KindCheckInRecorded }

func (p CheckInPayload) Validate() error {
	if p.EnergyLevel < EnergyMin || p.EnergyLevel > EnergyMax {
		return NewValidationError("energy level %d outside %d-%d", p.EnergyLevel, EnergyMin, EnergyMax)
	}
	if p.IntendedFocus == "" {
		return NewValidationError("check-in missing intended focus")
	}
	return nil
}

// ReflectionPayload carries an evening reflection.
type ReflectionPayload struct {
	EveningReflection
}

func (ReflectionPayload) Kind() EventKind { return KindReflectionRecorded }

func (p ReflectionPayload) Validate() error {
	if p.ActualFocus == "" {
		return NewValidationError("reflection missing actual focus")
	}
	for _, s := range p.EnergyPattern {
		if s.Level < EnergyMin || s.Level > EnergyMax {
			return NewValidationError("energy sample %d outside %d-%d", s.Level, EnergyMin, EnergyMax)
		}
	}
	return nil
}

// DecisionPayload carries a recorded decision.
type DecisionPayload struct {
	Decision
}

func (DecisionPayload) Kind() EventKind { return KindDecisionRecorded }

func (p DecisionPayload) Validate() error {
	if p.ID == "" {
		return NewValidationError("decision missing id")
	}
	if p.Question == "" {
		return NewValidationError("decision missing question")
	}
	if len(p.OptionsConsidered) == 0 {
		return NewValidationError("decision %q has no options considered", p.Question)
	}
	if p.ChosenOption == "" {
		return NewValidationError("decision %q has no chosen option", p.Question)
	}
	if !p.HasOption(p.ChosenOption) {
		return NewValidationError("chosen option %q not among options considered %v", p.ChosenOption, p.OptionsConsidered)
	}
	// Outcome arrives later via DecisionOutcomeRecorded, never on the initial event.
	if p.Outcome != "" {
		return NewValidationError("decision %q carries an outcome at creation", p.Question)
	}
	return nil
}

// DecisionOutcomePayload backfills the outcome of an earlier decision.
type DecisionOutcomePayload struct {
	DecisionID string `json:"decision_id"`
	Outcome    string `json:"outcome"`
	// Negative marks the outcome as a negative annotation for the
	// decision-quality analysis.
	Negative bool `json:"negative,omitempty"`
}

func (DecisionOutcomePayload) Kind() EventKind { return KindDecisionOutcomeRecorded }

func (p DecisionOutcomePayload) Validate() error {
	if p.DecisionID == "" {
		return NewValidationError("outcome missing decision id")
	}
	if p.Outcome == "" {
		return NewValidationError("outcome for decision %s is empty", p.DecisionID)
	}
	return nil
}

// GoalCreatedPayload carries a new goal.
type GoalCreatedPayload struct {
	Goal
}

func (GoalCreatedPayload) Kind() EventKind { return KindGoalCreated }

func (p GoalCreatedPayload) Validate() error {
	if p.ID == "" {
		return NewValidationError("goal missing id")
	}
	if p.Title == "" {
		return NewValidationError("goal %s missing title", p.ID)
	}
	if !ValidHorizon(p.Horizon) {
		return NewValidationError("goal %s has unknown horizon %q", p.ID, p.Horizon)
	}
	if p.Status != "" && !ValidGoalStatus(p.Status) {
		return NewValidationError("goal %s has unknown status %q", p.ID, p.Status)
	}
	if p.ParentID == p.ID {
		return NewValidationError("goal %s references itself as parent", p.ID)
	}
	return nil
}

// GoalStatusPayload carries a goal status transition.
type GoalStatusPayload struct {
	GoalID string     `json:"goal_id"`
	Status GoalStatus `json:"status"`
}

func (GoalStatusPayload) Kind() EventKind { return KindGoalStatusChanged }

func (p GoalStatusPayload) Validate() error {
	if p.GoalID == "" {
		return NewValidationError("goal status change missing goal id")
	}
	if !ValidGoalStatus(p.Status) {
		return NewValidationError("unknown goal status %q", p.Status)
	}
	return nil
}

// TaskCompletedPayload records completion of an external task.
type TaskCompletedPayload struct {
	TaskID string `json:"task_id"`
	Title  string `json:"title,omitempty"`
	GoalID string `json:"goal_id,omitempty"`
}

func (TaskCompletedPayload) Kind() EventKind { return KindTaskCompleted }

func (p TaskCompletedPayload) Validate() error {
	if p.TaskID == "" {
		return NewValidationError("task completion missing task id")
	}
	return nil
}

// AssumptionChallengedPayload records a challenged assumption from chat.
type AssumptionChallengedPayload struct {
	Assumption string `json:"assumption"`
	Challenge  string `json:"challenge"`
}

func (AssumptionChallengedPayload) Kind() EventKind { return KindAssumptionChallenged }

func (p AssumptionChallengedPayload) Validate() error {
	if p.Assumption == "" {
		return NewValidationError("challenged assumption is empty")
	}
	return nil
}

// PatternIdentifiedPayload records a detector finding that was surfaced to
// the user, so the log keeps an auditable trail of what was claimed.
type PatternIdentifiedPayload struct {
	PatternKind string   `json:"pattern_kind"`
	Description string   `json:"description"`
	Evidence    []string `json:"evidence,omitempty"`
}

func (PatternIdentifiedPayload) Kind() EventKind { return KindPatternIdentified }

func (p PatternIdentifiedPayload) Validate() error {
	if p.Description == "" {
		return NewValidationError("identified pattern missing description")
	}
	return nil
}

// =============================================================================
// PAYLOAD CODEC
// =============================================================================

// eventEnvelope is the wire form of an Event; the payload is decoded
// per-kind by DecodePayload.
type eventEnvelope struct {
	ID        string          `json:"id"`
	SessionID string          `json:"session_id"`
	Kind      EventKind       `json:"kind"`
	Timestamp time.Time       `json:"timestamp"`
	Payload   json.RawMessage `json:"payload"`
}

// MarshalJSON implements json.Marshaler for Event.
func (e Event) MarshalJSON() ([]byte, error) {
	raw, err := json.Marshal(e.Payload)
	if err != nil {
		return nil, fmt.Errorf("marshal %s payload: %w", e.Kind, err)
	}
	return json.Marshal(eventEnvelope{
		ID:        e.ID,
		SessionID: e.SessionID,
		Kind:      e.Kind,
		Timestamp: e.Timestamp,
		Payload:   raw,
	})
}

// UnmarshalJSON implements json.Unmarshaler for Event.
func (e *Event) UnmarshalJSON(data []byte) error {
	var env eventEnvelope
	if err := json.Unmarshal(data, &env); err != nil {
		return err
	}
	payload, err := DecodePayload(env.Kind, env.Payload)
	if err != nil {
		return err
	}
	e.ID = env.ID
	e.SessionID = env.SessionID
	e.Kind = env.Kind
	e.Timestamp = env.Timestamp
	e.Payload = payload
	return nil
}

// DecodePayload decodes a raw payload into its concrete type for kind.
func DecodePayload(kind EventKind, raw []byte) (Payload, error) {
	decode := func(p Payload) (Payload, error) {
		if len(raw) == 0 {
			return nil, NewValidationError("event %s missing payload", kind)
		}
		if err := json.Unmarshal(raw, p); err != nil {
			return nil, fmt.Errorf("decode %s payload: %w", kind, err)
		}
		return p, nil
	}

	switch kind {
	case KindCheckInRecorded:
		p, err := decode(&CheckInPayload{})
		if err != nil {
			return nil, err
		}
		return *p.(*CheckInPayload), nil
	case KindReflectionRecorded:
		p, err := decode(&ReflectionPayload{})
		if err != nil {
			return nil, err
		}
		return *p.(*ReflectionPayload), nil
	case KindDecisionRecorded:
		p, err := decode(&DecisionPayload{})
		if err != nil {
			return nil, err
		}
		return *p.(*DecisionPayload), nil
	case KindDecisionOutcomeRecorded:
		p, err := decode(&DecisionOutcomePayload{})
		if err != nil {
			return nil, err
		}
		return *p.(*DecisionOutcomePayload), nil
	case KindGoalCreated:
		p, err := decode(&GoalCreatedPayload{})
		if err != nil {
			return nil, err
		}
		return *p.(*GoalCreatedPayload), nil
	case KindGoalStatusChanged:
		p, err := decode(&GoalStatusPayload{})
		if err != nil {
			return nil, err
		}
		return *p.(*GoalStatusPayload), nil
	case KindTaskCompleted:
		p, err := decode(&TaskCompletedPayload{})
		if err != nil {
			return nil, err
		}
		return *p.(*TaskCompletedPayload), nil
	case KindAssumptionChallenged:
		p, err := decode(&AssumptionChallengedPayload{})
		if err != nil {
			return nil, err
		}
		return *p.(*AssumptionChallengedPayload), nil
	case KindPatternIdentified:
		p, err := decode(&PatternIdentifiedPayload{})
		if err != nil {
			return nil, err
		}
		return *p.(*PatternIdentifiedPayload), nil
	default:
		return nil, NewValidationError("unknown event kind %q", kind)
	}
}
