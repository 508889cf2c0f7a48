// Package reasoning is the thin boundary to the reasoning collaborator.
// The engine owns no conversation state: every call ships the full context
// bundle, so the collaborator can be swapped or restarted freely.
package reasoning

import (
	"context"
	"encoding/json"
	"fmt"

	"daybook/internal/logging"
	"daybook/internal/types"
)

// Reasoner turns a context bundle and a user prompt into a response.
type Reasoner interface {
	Generate(ctx context.Context, bundle *types.ContextBundle, prompt string) (string, error)
}

// renderBundle flattens a bundle into the textual context block sent to the
// collaborator. JSON keeps it unambiguous; the models handle it fine.
func renderBundle(bundle *types.ContextBundle) (string, error) {
	if bundle == nil {
		return "", nil
	}
	b, err := json.MarshalIndent(bundle, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to render bundle: %w", err)
	}
	if bundle.MemoryDegraded {
		logging.Get(logging.CategoryReasoning).Warn("Sending degraded bundle for %s", bundle.TargetDate)
	}
	return string(b), nil
}
