// Package memory is the retrieval collaborator: semantic recall over stored
// interaction text plus the standing-facts view. The assembler only sees the
// Searcher interface, so a remote memory service could sit behind it; the
// default implementation is local SQLite.
package memory

import (
	"context"

	"daybook/internal/logging"
	"daybook/internal/store"
	"daybook/internal/types"
)

// Searcher is what the assembler needs from a memory backend. Implementations
// may fail or time out; callers treat that as degraded retrieval, never as a
// fatal error.
type Searcher interface {
	// Search returns up to limit hits ranked by relevance to the query.
	Search(ctx context.Context, query string, limit int) ([]types.MemoryHit, error)

	// StandingFacts returns the latest value per fact, keyed by topic/key.
	StandingFacts(ctx context.Context) (map[string]string, error)

	// Remember stores a piece of interaction text for later recall.
	Remember(ctx context.Context, text string, metadata map[string]string) error
}

// LocalMemory backs Searcher with the local store.
type LocalMemory struct {
	store *store.Store
}

// NewLocal wraps a store as the memory collaborator.
func NewLocal(s *store.Store) *LocalMemory {
	return &LocalMemory{store: s}
}

// Search implements Searcher via the store's vector/keyword recall.
func (m *LocalMemory) Search(ctx context.Context, query string, limit int) ([]types.MemoryHit, error) {
	timer := logging.StartTimer(logging.CategoryMemory, "Search")
	defer timer.Stop()

	return m.store.SearchMemories(ctx, query, limit)
}

// StandingFacts implements Searcher. Keys are "topic/key" so facts from
// different topics never collide in the flat map.
func (m *LocalMemory) StandingFacts(ctx context.Context) (map[string]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	facts, err := m.store.AllFacts()
	if err != nil {
		return nil, err
	}

	out := make(map[string]string, len(facts))
	for _, f := range facts {
		out[f.Topic+"/"+f.Key] = f.Value
	}
	return out, nil
}

// Remember implements Searcher.
func (m *LocalMemory) Remember(ctx context.Context, text string, metadata map[string]string) error {
	return m.store.StoreMemory(ctx, text, metadata)
}
