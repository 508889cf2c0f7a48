package contradiction

import (
	"context"
	"strings"

	"daybook/internal/types"
)

// LexicalClassifier infers stance from polarity cues in the text itself.
// It is deliberately conservative: when cues conflict or are absent it
// returns neutral, and neutral statements are never flagged.
type LexicalClassifier struct{}

var rejectCues = []string{
	"not ", "n't ", "never ", "avoid ", "stop ", "quit ", "against ",
	"reject", "won't ", "shouldn't ", "no more ", "done with ", "dislike ",
	"hate ",
}

var favorCues = []string{
	"should ", "will ", "want ", "prefer ", "always ", "like ", "love ",
	"commit", "plan to ", "going to ", "keep ", "favor",
}

// Classify implements StanceClassifier.
func (LexicalClassifier) Classify(_ context.Context, statement string) (types.Stance, error) {
	text := " " + strings.ToLower(strings.TrimSpace(statement)) + " "

	rejects := countCues(text, rejectCues)
	favors := countCues(text, favorCues)

	switch {
	case rejects > favors:
		return types.StanceRejects, nil
	case favors > rejects:
		return types.StanceFavors, nil
	default:
		return types.StanceNeutral, nil
	}
}

func countCues(text string, cues []string) int {
	n := 0
	for _, cue := range cues {
		n += strings.Count(text, cue)
	}
	return n
}
