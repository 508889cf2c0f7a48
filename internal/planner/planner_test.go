package planner

import (
	"context"
	"path/filepath"
	"testing"

	"daybook/internal/config"
	"daybook/internal/store"
	"daybook/internal/types"

	"github.com/stretchr/testify/suite"
)

type fakeReasoner struct {
	lastPrompt string
	response   string
}

func (f *fakeReasoner) Generate(ctx context.Context, bundle *types.ContextBundle, prompt string) (string, error) {
	f.lastPrompt = prompt
	if f.response == "" {
		return "ok", nil
	}
	return f.response, nil
}

type fakeMemory struct {
	hits       []types.MemoryHit
	remembered []string
}

func (f *fakeMemory) Search(ctx context.Context, query string, limit int) ([]types.MemoryHit, error) {
	return f.hits, nil
}

func (f *fakeMemory) StandingFacts(ctx context.Context) (map[string]string, error) {
	return nil, nil
}

func (f *fakeMemory) Remember(ctx context.Context, text string, metadata map[string]string) error {
	f.remembered = append(f.remembered, text)
	return nil
}

type PlannerSuite struct {
	suite.Suite
	store    *store.Store
	planner  *Planner
	mem      *fakeMemory
	reasoner *fakeReasoner
	ctx      context.Context
}

func (s *PlannerSuite) SetupTest() {
	st, err := store.New(filepath.Join(s.T().TempDir(), "daybook.db"))
	s.Require().NoError(err)
	s.store = st

	s.mem = &fakeMemory{}
	s.reasoner = &fakeReasoner{}
	s.ctx = context.Background()

	cfg := config.DefaultConfig()
	cfg.Assembler.CollaboratorTimeout = "200ms"
	s.planner = New(st, s.mem, cfg, Options{Reasoner: s.reasoner})
}

func (s *PlannerSuite) TearDownTest() {
	s.store.Close()
}

func (s *PlannerSuite) checkIn(date string) *types.Session {
	session, err := s.planner.MorningCheckIn(s.ctx, date, types.MorningContext{
		EnergyLevel:   3,
		IntendedFocus: "deep work",
		Blockers:      []string{"waiting on others"},
	})
	s.Require().NoError(err)
	return session
}

func (s *PlannerSuite) TestCheckInOpensSession() {
	session := s.checkIn("2026-03-02")
	s.Require().NotNil(session.Morning)
	s.True(session.Open())
	s.NotEmpty(s.mem.remembered, "check-in should be written to memory")
}

func (s *PlannerSuite) TestDuplicateCheckInConflicts() {
	s.checkIn("2026-03-02")
	_, err := s.planner.MorningCheckIn(s.ctx, "2026-03-02", types.MorningContext{
		EnergyLevel:   5,
		IntendedFocus: "again",
	})
	var cerr *types.ConflictError
	s.Require().ErrorAs(err, &cerr)
}

func (s *PlannerSuite) TestReflectionNeedsCheckIn() {
	_, err := s.planner.EveningReflection(s.ctx, "2026-03-02", types.EveningReflection{
		ActualFocus: "nothing",
	})
	var perr *types.PreconditionError
	s.Require().ErrorAs(err, &perr)
}

func (s *PlannerSuite) TestReflectionClosesOriginalDate() {
	s.checkIn("2026-03-02")

	// Reflecting a day later still closes the 2026-03-02 session.
	session, err := s.planner.EveningReflection(s.ctx, "2026-03-02", types.EveningReflection{
		ActualFocus:    "mostly deep work",
		TomorrowIntent: "review",
	})
	s.Require().NoError(err)
	s.False(session.Open())
	s.Equal("2026-03-02", session.Date)

	_, err = s.planner.EveningReflection(s.ctx, "2026-03-02", types.EveningReflection{ActualFocus: "again"})
	var cerr *types.ConflictError
	s.Require().ErrorAs(err, &cerr)
}

func (s *PlannerSuite) TestDecisionAndOutcome() {
	s.checkIn("2026-03-02")

	d, found, err := s.planner.RecordDecision(s.ctx, "2026-03-02", types.Decision{
		Question:          "which vendor?",
		OptionsConsidered: []string{"acme", "globex"},
		ChosenOption:      "acme",
		Reasoning:         "cheaper",
	})
	s.Require().NoError(err)
	s.NotEmpty(d.ID)
	s.Empty(found)

	s.Require().NoError(s.planner.RecordOutcome(s.ctx, d.ID, "went fine", false))

	session, err := s.planner.Session("2026-03-02")
	s.Require().NoError(err)
	s.Require().Len(session.Decisions, 1)
	s.Equal("went fine", session.Decisions[0].Outcome)

	// Outcomes are immutable once set.
	err = s.planner.RecordOutcome(s.ctx, d.ID, "actually bad", true)
	var cerr *types.ConflictError
	s.Require().ErrorAs(err, &cerr)

	err = s.planner.RecordOutcome(s.ctx, "no-such-decision", "x", false)
	var perr *types.PreconditionError
	s.Require().ErrorAs(err, &perr)
}

func (s *PlannerSuite) TestChatChallengesContradictions() {
	s.checkIn("2026-03-02")
	s.mem.hits = []types.MemoryHit{{
		Text:     "decided to avoid morning meetings to protect deep work",
		Score:    0.9,
		Metadata: map[string]string{"stance": "rejects"},
	}}
	s.reasoner.response = "You previously decided against this."

	result, err := s.planner.Chat(s.ctx, "2026-03-02", "I will take more morning meetings")
	s.Require().NoError(err)
	s.Require().Len(result.Contradictions, 1)
	s.Contains(s.reasoner.lastPrompt, "conflicts with their own history")

	// The pushback must leave an auditable event.
	events, err := s.store.Events(store.ScanFilter{Kind: types.KindAssumptionChallenged})
	s.Require().NoError(err)
	s.Require().Len(events, 1)
	payload := events[0].Payload.(types.AssumptionChallengedPayload)
	s.Equal("I will take more morning meetings", payload.Assumption)
}

func (s *PlannerSuite) TestChatWithoutReasoner() {
	cfg := config.DefaultConfig()
	p := New(s.store, s.mem, cfg, Options{})
	_, err := p.Chat(s.ctx, "2026-03-02", "hello")
	var perr *types.PreconditionError
	s.Require().ErrorAs(err, &perr)
}

func (s *PlannerSuite) TestWeeklyPatternsRecordsFindings() {
	for _, date := range []string{"2026-03-02", "2026-03-03", "2026-03-04"} {
		s.checkIn(date)
	}

	found, err := s.planner.WeeklyPatterns(s.ctx, "2026-03-04")
	s.Require().NoError(err)
	s.Require().NotEmpty(found, "shared blocker across three days should be detected")

	events, err := s.store.Events(store.ScanFilter{Kind: types.KindPatternIdentified})
	s.Require().NoError(err)
	s.Len(events, len(found))
}

func (s *PlannerSuite) TestGoalLifecycle() {
	g, err := s.planner.CreateGoal("2026-03-02", types.Goal{
		Title:   "ship v1",
		Horizon: types.HorizonQuarterly,
	})
	s.Require().NoError(err)

	child, err := s.planner.CreateGoal("2026-03-02", types.Goal{
		Title:    "write launch post",
		Horizon:  types.HorizonWeekly,
		ParentID: g.ID,
	})
	s.Require().NoError(err)

	s.Require().NoError(s.planner.ChangeGoalStatus("2026-03-03", child.ID, types.GoalCompleted))

	// Terminal states stay terminal.
	err = s.planner.ChangeGoalStatus("2026-03-03", child.ID, types.GoalActive)
	var perr *types.PreconditionError
	s.Require().ErrorAs(err, &perr)

	goals, err := s.planner.Goals()
	s.Require().NoError(err)
	s.Equal(types.GoalCompleted, goals[child.ID].Status)
	s.NotNil(goals[child.ID].CompletedAt)

	_, err = s.planner.CreateGoal("2026-03-03", types.Goal{
		Title:    "orphan",
		Horizon:  types.HorizonDaily,
		ParentID: "missing",
	})
	s.Require().ErrorAs(err, &perr)
}

func TestPlannerSuite(t *testing.T) {
	suite.Run(t, new(PlannerSuite))
}
