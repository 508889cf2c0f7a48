// Package planner orchestrates the daily workflows: check-ins, reflections,
// decisions, goals, chat, and pattern review. It is the only writer to the
// event log; everything it records goes through validation and the fold
// pre-checks, so the log never holds a sequence the projector would reject.
package planner

import (
	"context"
	"fmt"
	"time"

	"daybook/internal/assembler"
	"daybook/internal/config"
	"daybook/internal/contradiction"
	"daybook/internal/logging"
	"daybook/internal/memory"
	"daybook/internal/patterns"
	"daybook/internal/projector"
	"daybook/internal/reasoning"
	"daybook/internal/store"
	"daybook/internal/tasks"
	"daybook/internal/types"

	"github.com/google/uuid"
)

// Planner wires the store, assembler, detectors, and collaborators together.
// reasoner and taskList are optional; workflows that need them fail with a
// PreconditionError when they are absent.
type Planner struct {
	store     *store.Store
	assembler *assembler.Assembler
	mem       memory.Searcher
	detector  *patterns.Detector
	contra    *contradiction.Detector
	reasoner  reasoning.Reasoner
	taskList  tasks.Lister

	now func() time.Time
}

// Options carries the optional collaborators.
type Options struct {
	Reasoner reasoning.Reasoner
	Tasks    tasks.Lister
}

// New assembles a planner over an opened store.
func New(s *store.Store, mem memory.Searcher, cfg *config.Config, opts Options) *Planner {
	asm := assembler.New(s, mem, cfg.Assembler)
	return &Planner{
		store:     s,
		assembler: asm,
		mem:       mem,
		detector:  patterns.NewDetector(s, cfg.Patterns),
		contra:    contradiction.NewDetector(mem, nil, cfg.Contradiction),
		reasoner:  opts.Reasoner,
		taskList:  opts.Tasks,
		now:       time.Now,
	}
}

// Assembler exposes the bundle assembler for read paths (chat, CLI show).
func (p *Planner) Assembler() *assembler.Assembler {
	return p.assembler
}

// Session folds and returns the session for a date, or nil when the date has
// no events yet.
func (p *Planner) Session(date string) (*types.Session, error) {
	events, err := p.store.Events(store.ScanFilter{SessionID: date})
	if err != nil {
		return nil, err
	}
	if len(events) == 0 {
		return nil, nil
	}
	return projector.Project(events)
}

// append validates against the current fold, writes the event, and drops any
// cached bundle for the date.
func (p *Planner) append(ev types.Event) error {
	if err := p.store.Append(ev); err != nil {
		return err
	}
	p.assembler.Invalidate(ev.SessionID)
	return nil
}

// MorningCheckIn records the morning check-in that opens a session.
// A second check-in for the same date is a ConflictError.
func (p *Planner) MorningCheckIn(ctx context.Context, date string, mc types.MorningContext) (*types.Session, error) {
	timer := logging.StartTimer(logging.CategoryPlanner, "MorningCheckIn")
	defer timer.Stop()

	existing, err := p.Session(date)
	if err != nil {
		return nil, err
	}
	if existing != nil && existing.Morning != nil {
		return nil, types.NewConflictError("check-in already recorded for %s", date)
	}

	ev := types.Event{
		ID:        uuid.NewString(),
		SessionID: date,
		Kind:      types.KindCheckInRecorded,
		Timestamp: p.now(),
		Payload:   types.CheckInPayload{MorningContext: mc},
	}
	if err := p.append(ev); err != nil {
		return nil, err
	}

	p.remember(ctx, fmt.Sprintf("Morning check-in %s: energy %d, focus %q, blockers %v",
		date, mc.EnergyLevel, mc.IntendedFocus, mc.Blockers),
		map[string]string{"kind": "checkin", "date": date})

	logging.Planner("Check-in recorded for %s (energy=%d)", date, mc.EnergyLevel)
	return p.Session(date)
}

// EveningReflection closes a session. It requires a prior check-in for the
// date (PreconditionError) and rejects a second reflection (ConflictError).
// The date may be in the past relative to today: reflecting on Tuesday from
// Wednesday still closes Tuesday's session.
func (p *Planner) EveningReflection(ctx context.Context, date string, er types.EveningReflection) (*types.Session, error) {
	timer := logging.StartTimer(logging.CategoryPlanner, "EveningReflection")
	defer timer.Stop()

	existing, err := p.Session(date)
	if err != nil {
		return nil, err
	}
	if existing == nil || existing.Morning == nil {
		return nil, types.NewPreconditionError("no check-in recorded for %s yet", date)
	}
	if existing.Evening != nil {
		return nil, types.NewConflictError("reflection already recorded for %s", date)
	}

	ev := types.Event{
		ID:        uuid.NewString(),
		SessionID: date,
		Kind:      types.KindReflectionRecorded,
		Timestamp: p.now(),
		Payload:   types.ReflectionPayload{EveningReflection: er},
	}
	if err := p.append(ev); err != nil {
		return nil, err
	}

	p.remember(ctx, fmt.Sprintf("Evening reflection %s: focus was %q, wins %v, challenges %v, tomorrow %q",
		date, er.ActualFocus, er.Wins, er.Challenges, er.TomorrowIntent),
		map[string]string{"kind": "reflection", "date": date})

	logging.Planner("Reflection recorded, session %s closed", date)
	return p.Session(date)
}

// RecordDecision appends a decision to a session and checks the reasoning
// against history. Returned contradictions are advisory: the decision is
// recorded regardless, the caller chooses whether to surface them.
func (p *Planner) RecordDecision(ctx context.Context, date string, d types.Decision) (*types.Decision, []types.Contradiction, error) {
	timer := logging.StartTimer(logging.CategoryPlanner, "RecordDecision")
	defer timer.Stop()

	if d.ID == "" {
		d.ID = uuid.NewString()
	}
	d.SessionID = date
	d.Outcome = ""
	if d.Timestamp.IsZero() {
		d.Timestamp = p.now()
	}

	ev := types.Event{
		ID:        uuid.NewString(),
		SessionID: date,
		Kind:      types.KindDecisionRecorded,
		Timestamp: p.now(),
		Payload:   types.DecisionPayload{Decision: d},
	}
	if err := p.append(ev); err != nil {
		return nil, nil, err
	}

	statement := fmt.Sprintf("Decided %q for %q: %s", d.ChosenOption, d.Question, d.Reasoning)
	found, err := p.contra.Find(ctx, statement)
	if err != nil {
		logging.PlannerDebug("Contradiction check failed for decision %s: %v", d.ID, err)
	}

	p.remember(ctx, statement, map[string]string{
		"kind":        "decision",
		"date":        date,
		"decision_id": d.ID,
	})

	logging.Planner("Decision %s recorded for %s (%d contradictions)", d.ID, date, len(found))
	return &d, found, nil
}

// RecordOutcome backfills the outcome of a past decision. The outcome event
// lands under the decision's own session date, so the session fold amends the
// decision in place. An unknown decision is a PreconditionError and a second
// outcome a ConflictError.
func (p *Planner) RecordOutcome(ctx context.Context, decisionID, outcome string, negative bool) error {
	timer := logging.StartTimer(logging.CategoryPlanner, "RecordOutcome")
	defer timer.Stop()

	date, err := p.decisionDate(decisionID)
	if err != nil {
		return err
	}

	session, err := p.Session(date)
	if err != nil {
		return err
	}
	for _, d := range session.Decisions {
		if d.ID == decisionID && d.Outcome != "" {
			return types.NewConflictError("decision %s already has an outcome", decisionID)
		}
	}

	ev := types.Event{
		ID:        uuid.NewString(),
		SessionID: date,
		Kind:      types.KindDecisionOutcomeRecorded,
		Timestamp: p.now(),
		Payload:   types.DecisionOutcomePayload{DecisionID: decisionID, Outcome: outcome, Negative: negative},
	}
	if err := p.append(ev); err != nil {
		return err
	}

	p.remember(ctx, fmt.Sprintf("Outcome of decision %s: %s", decisionID, outcome),
		map[string]string{"kind": "outcome", "decision_id": decisionID})

	logging.Planner("Outcome recorded for decision %s (negative=%v)", decisionID, negative)
	return nil
}

// decisionDate locates the session a decision was recorded in.
func (p *Planner) decisionDate(decisionID string) (string, error) {
	events, err := p.store.Events(store.ScanFilter{Kind: types.KindDecisionRecorded})
	if err != nil {
		return "", err
	}
	for _, ev := range events {
		if d, ok := ev.Payload.(types.DecisionPayload); ok && d.ID == decisionID {
			return ev.SessionID, nil
		}
	}
	return "", types.NewPreconditionError("unknown decision %s", decisionID)
}

// CompleteTask records that an external task was finished.
func (p *Planner) CompleteTask(ctx context.Context, date, taskID, title, goalID string) error {
	ev := types.Event{
		ID:        uuid.NewString(),
		SessionID: date,
		Kind:      types.KindTaskCompleted,
		Timestamp: p.now(),
		Payload:   types.TaskCompletedPayload{TaskID: taskID, Title: title, GoalID: goalID},
	}
	return p.append(ev)
}

// DayTasks lists the task manager's items for a date. Without a configured
// task manager it returns nothing rather than failing.
func (p *Planner) DayTasks(ctx context.Context, date string) ([]types.Task, error) {
	if p.taskList == nil {
		return nil, nil
	}
	return p.taskList.ListTasks(ctx, date)
}

// RememberFact stores a standing fact.
func (p *Planner) RememberFact(topic, key, value, source string) error {
	return p.store.PutFact(topic, key, value, source)
}

func (p *Planner) remember(ctx context.Context, text string, metadata map[string]string) {
	if p.mem == nil {
		return
	}
	if err := p.mem.Remember(ctx, text, metadata); err != nil {
		logging.MemoryWarn("Failed to store memory: %v", err)
	}
}
