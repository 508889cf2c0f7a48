package planner

import (
	"context"
	"fmt"
	"strings"
	"time"

	"daybook/internal/logging"
	"daybook/internal/types"

	"github.com/google/uuid"
)

// ChatResult is one turn of context-grounded conversation.
type ChatResult struct {
	Response       string                `json:"response"`
	Contradictions []types.Contradiction `json:"contradictions,omitempty"`
	Degraded       bool                  `json:"degraded"`
}

// Chat answers a message against the assembled context for a date. The
// message is first checked for contradictions with recorded history; any
// hit is logged as a challenged assumption and handed to the reasoning
// collaborator so the response pushes back instead of agreeing.
//
// Requires a reasoning collaborator (PreconditionError without one).
func (p *Planner) Chat(ctx context.Context, date, message string) (*ChatResult, error) {
	timer := logging.StartTimer(logging.CategoryPlanner, "Chat")
	defer timer.Stop()

	if p.reasoner == nil {
		return nil, types.NewPreconditionError("no reasoning service configured")
	}
	if strings.TrimSpace(message) == "" {
		return nil, types.NewValidationError("empty chat message")
	}

	bundle, err := p.assembler.Assemble(ctx, date, message)
	if err != nil {
		return nil, err
	}

	found, err := p.contra.Find(ctx, message)
	if err != nil {
		logging.PlannerDebug("Contradiction check failed: %v", err)
	}
	if err := p.recordChallenges(date, message, found); err != nil {
		return nil, err
	}

	prompt := message
	if len(found) > 0 {
		var b strings.Builder
		b.WriteString(message)
		b.WriteString("\n\nThe user's statement conflicts with their own history:\n")
		for _, c := range found {
			fmt.Fprintf(&b, "- previously (%s): %q (similarity %.2f)\n",
				c.Historical, c.Candidate.Text, c.Similarity)
		}
		b.WriteString("Challenge the assumption explicitly before answering.")
		prompt = b.String()
	}

	response, err := p.reasoner.Generate(ctx, bundle, prompt)
	if err != nil {
		return nil, err
	}

	p.remember(ctx, fmt.Sprintf("Chat on %s: user said %q; assistant replied %q",
		date, message, truncateForMemory(response)),
		map[string]string{"kind": "chat", "date": date})

	return &ChatResult{
		Response:       response,
		Contradictions: found,
		Degraded:       bundle.MemoryDegraded,
	}, nil
}

// recordChallenges writes an assumption_challenged event per contradiction so
// the log keeps an auditable trail of every pushback.
func (p *Planner) recordChallenges(date, message string, found []types.Contradiction) error {
	for _, c := range found {
		ev := types.Event{
			ID:        uuid.NewString(),
			SessionID: date,
			Kind:      types.KindAssumptionChallenged,
			Timestamp: p.now(),
			Payload: types.AssumptionChallengedPayload{
				Assumption: message,
				Challenge:  c.Candidate.Text,
			},
		}
		if err := p.append(ev); err != nil {
			return err
		}
	}
	return nil
}

// WeeklyPatterns runs the detector as of a date and records each surfaced
// finding to the log.
func (p *Planner) WeeklyPatterns(ctx context.Context, asOf string) ([]types.Pattern, error) {
	timer := logging.StartTimer(logging.CategoryPlanner, "WeeklyPatterns")
	defer timer.Stop()

	if _, err := time.Parse(types.DateLayout, asOf); err != nil {
		return nil, types.NewValidationError("as-of date %q is not a date (%s)", asOf, types.DateLayout)
	}

	found, err := p.detector.Detect(asOf)
	if err != nil {
		return nil, err
	}

	for _, pattern := range found {
		ev := types.Event{
			ID:        uuid.NewString(),
			SessionID: asOf,
			Kind:      types.KindPatternIdentified,
			Timestamp: p.now(),
			Payload: types.PatternIdentifiedPayload{
				PatternKind: string(pattern.Kind),
				Description: pattern.Description,
				Evidence:    pattern.Evidence,
			},
		}
		if err := p.append(ev); err != nil {
			return nil, err
		}
	}
	return found, nil
}

func truncateForMemory(s string) string {
	const max = 400
	if len(s) <= max {
		return s
	}
	return s[:max] + "..."
}
