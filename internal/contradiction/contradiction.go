// Package contradiction surfaces historical statements that conflict with
// something the user just said. It retrieves similar memories and compares
// stances; only genuinely opposed stances (favors vs rejects) count, so
// neutral matches never produce noise.
package contradiction

import (
	"context"
	"sort"

	"daybook/internal/config"
	"daybook/internal/logging"
	"daybook/internal/memory"
	"daybook/internal/types"
)

// StanceClassifier decides what polarity a statement takes toward its
// subject. The default is lexical; a reasoning-backed classifier can be
// plugged in where available.
type StanceClassifier interface {
	Classify(ctx context.Context, statement string) (types.Stance, error)
}

// Detector finds past statements at odds with a new one.
type Detector struct {
	mem        memory.Searcher
	classifier StanceClassifier
	cfg        config.ContradictionConfig
}

// NewDetector builds a detector. If classifier is nil the lexical default
// is used.
func NewDetector(mem memory.Searcher, classifier StanceClassifier, cfg config.ContradictionConfig) *Detector {
	if classifier == nil {
		classifier = LexicalClassifier{}
	}
	return &Detector{mem: mem, classifier: classifier, cfg: cfg}
}

// Find returns contradictions between the statement and retrieved history,
// strongest similarity first, capped at the configured maximum. Retrieval
// failures degrade to an empty result, never an error: a missing memory
// collaborator must not block recording anything.
func (d *Detector) Find(ctx context.Context, statement string) ([]types.Contradiction, error) {
	timer := logging.StartTimer(logging.CategoryContradiction, "Find")
	defer timer.Stop()

	if statement == "" || d.mem == nil {
		return nil, nil
	}

	current, err := d.classifier.Classify(ctx, statement)
	if err != nil {
		return nil, err
	}
	if current == types.StanceNeutral {
		return nil, nil
	}

	hits, err := d.mem.Search(ctx, statement, d.cfg.MaxResults*4)
	if err != nil {
		logging.Get(logging.CategoryContradiction).Warn("Retrieval failed, skipping check: %v", err)
		return nil, nil
	}

	var found []types.Contradiction
	for _, hit := range hits {
		if hit.Score < d.cfg.SimilarityThreshold {
			continue
		}
		historical, err := d.candidateStance(ctx, hit)
		if err != nil {
			continue
		}
		if !opposed(current, historical) {
			continue
		}
		found = append(found, types.Contradiction{
			Statement:  statement,
			Candidate:  hit,
			Similarity: hit.Score,
			Current:    current,
			Historical: historical,
		})
	}

	sort.Slice(found, func(i, j int) bool { return found[i].Similarity > found[j].Similarity })
	if d.cfg.MaxResults > 0 && len(found) > d.cfg.MaxResults {
		found = found[:d.cfg.MaxResults]
	}
	return found, nil
}

// candidateStance prefers the stance recorded in the hit's metadata at write
// time; without one it classifies the stored text.
func (d *Detector) candidateStance(ctx context.Context, hit types.MemoryHit) (types.Stance, error) {
	if s, ok := hit.Metadata["stance"]; ok {
		stance := types.Stance(s)
		switch stance {
		case types.StanceFavors, types.StanceRejects, types.StanceNeutral:
			return stance, nil
		}
	}
	return d.classifier.Classify(ctx, hit.Text)
}

func opposed(a, b types.Stance) bool {
	return (a == types.StanceFavors && b == types.StanceRejects) ||
		(a == types.StanceRejects && b == types.StanceFavors)
}
