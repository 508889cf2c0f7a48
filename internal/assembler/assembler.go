// Package assembler builds the ephemeral context bundle: merged session
// history, standing facts, and retrieved memories for a target date and
// optional query. Bundles are derived, never persisted; a short-TTL cache
// keyed by (date, query) absorbs repeated requests and is invalidated on
// every append touching the date.
package assembler

import (
	"context"
	"encoding/json"
	"sort"
	"sync"
	"time"

	"daybook/internal/config"
	"daybook/internal/logging"
	"daybook/internal/memory"
	"daybook/internal/projector"
	"daybook/internal/store"
	"daybook/internal/types"

	"golang.org/x/sync/errgroup"
)

// Assembler merges local session history with collaborator retrieval.
type Assembler struct {
	store *store.Store
	mem   memory.Searcher
	cfg   config.AssemblerConfig

	cacheMu sync.Mutex
	cache   map[cacheKey]cacheEntry

	// now is stubbed in tests.
	now func() time.Time
}

type cacheKey struct {
	date  string
	query string
}

type cacheEntry struct {
	bundle  *types.ContextBundle
	expires time.Time
}

// New builds an assembler. mem may be nil, in which case every bundle is
// assembled degraded from local history only.
func New(s *store.Store, mem memory.Searcher, cfg config.AssemblerConfig) *Assembler {
	return &Assembler{
		store: s,
		mem:   mem,
		cfg:   cfg,
		cache: make(map[cacheKey]cacheEntry),
		now:   time.Now,
	}
}

// Assemble produces the context bundle for a date and optional query.
//
// Session history always comes from the local log. The memory search and
// standing-facts fetch run concurrently under the collaborator timeout; if
// either fails or times out the bundle is assembled from local history with
// MemoryDegraded set, never an error. The finished bundle is truncated to
// the character budget, dropping memories first, then the oldest sessions.
func (a *Assembler) Assemble(ctx context.Context, date, query string) (*types.ContextBundle, error) {
	timer := logging.StartTimer(logging.CategoryAssembler, "Assemble")
	defer timer.Stop()

	if _, err := time.Parse(types.DateLayout, date); err != nil {
		return nil, types.NewValidationError("target date %q is not a date (%s)", date, types.DateLayout)
	}

	key := cacheKey{date: date, query: query}
	if b := a.cached(key); b != nil {
		logging.AssemblerDebug("Bundle cache hit for %s %q", date, query)
		return b, nil
	}

	bundle := &types.ContextBundle{
		TargetDate:  date,
		Query:       query,
		AssembledAt: a.now(),
	}

	sessions, err := a.sessionHistory(date)
	if err != nil {
		return nil, err
	}
	bundle.Sessions = sessions
	bundle.Goals = a.activeGoals()

	a.retrieve(ctx, bundle)
	a.truncate(bundle)

	a.cacheMu.Lock()
	a.cache[key] = cacheEntry{bundle: bundle, expires: a.now().Add(a.cfg.GetCacheTTL())}
	a.cacheMu.Unlock()

	return bundle, nil
}

// Invalidate drops every cached bundle for a date. Called after any append
// for that session so readers never see a stale bundle past one write.
func (a *Assembler) Invalidate(date string) {
	a.cacheMu.Lock()
	defer a.cacheMu.Unlock()
	for key := range a.cache {
		if key.date == date {
			delete(a.cache, key)
		}
	}
}

func (a *Assembler) cached(key cacheKey) *types.ContextBundle {
	a.cacheMu.Lock()
	defer a.cacheMu.Unlock()
	entry, ok := a.cache[key]
	if !ok {
		return nil
	}
	if a.now().After(entry.expires) {
		delete(a.cache, key)
		return nil
	}
	return entry.bundle
}

// sessionHistory folds the target date's session plus the trailing window of
// prior sessions, current first then newest first. A session whose events
// fail to fold is logged and skipped rather than sinking the whole bundle.
func (a *Assembler) sessionHistory(date string) ([]types.Session, error) {
	var sessions []types.Session

	appendDate := func(d string) {
		events, err := a.store.Events(store.ScanFilter{SessionID: d})
		if err != nil {
			logging.AssemblerWarn("Failed to scan session %s: %v", d, err)
			return
		}
		if len(events) == 0 {
			return
		}
		session, err := projector.Project(events)
		if err != nil {
			logging.AssemblerWarn("Failed to fold session %s: %v", d, err)
			return
		}
		sessions = append(sessions, *session)
	}

	appendDate(date)

	prior, err := a.store.SessionDates(date, a.cfg.HistoryWindow)
	if err != nil {
		return nil, err
	}
	for _, d := range prior {
		appendDate(d)
	}
	return sessions, nil
}

// activeGoals folds the goal events into the active-goal view. Goal fold
// failures degrade to no goals; the bundle is still useful without them.
func (a *Assembler) activeGoals() []*types.Goal {
	kinds := []types.EventKind{
		types.KindGoalCreated, types.KindGoalStatusChanged, types.KindTaskCompleted,
	}
	var events []types.Event
	for _, k := range kinds {
		evs, err := a.store.Events(store.ScanFilter{Kind: k})
		if err != nil {
			logging.AssemblerWarn("Failed to scan %s events: %v", k, err)
			return nil
		}
		events = append(events, evs...)
	}
	sort.SliceStable(events, func(i, j int) bool {
		return events[i].Timestamp.Before(events[j].Timestamp)
	})

	goals, err := projector.ProjectGoals(events)
	if err != nil {
		logging.AssemblerWarn("Goal fold failed, omitting goals: %v", err)
		return nil
	}
	return projector.ActiveGoals(goals)
}

// retrieve runs the concurrent collaborator fetches under the timeout.
func (a *Assembler) retrieve(ctx context.Context, bundle *types.ContextBundle) {
	if a.mem == nil {
		bundle.MemoryDegraded = true
		return
	}

	ctx, cancel := context.WithTimeout(ctx, a.cfg.GetCollaboratorTimeout())
	defer cancel()

	var (
		hits  []types.MemoryHit
		facts map[string]string
	)

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		facts, err = a.mem.StandingFacts(ctx)
		return err
	})
	if bundle.Query != "" {
		g.Go(func() error {
			var err error
			hits, err = a.mem.Search(ctx, bundle.Query, a.cfg.RetrievalLimit)
			return err
		})
	}

	if err := g.Wait(); err != nil {
		logging.AssemblerWarn("Memory collaborator unavailable, assembling degraded: %v", err)
		bundle.MemoryDegraded = true
		return
	}

	bundle.StandingFacts = facts
	bundle.Memories = hits
}

// truncate enforces the character budget. Priority is fixed: standing facts,
// then the current session, then prior sessions newest first, then memories
// by score. Whole items are dropped from the bottom until the bundle fits.
func (a *Assembler) truncate(bundle *types.ContextBundle) {
	budget := a.cfg.CharBudget
	if budget <= 0 || bundleSize(bundle) <= budget {
		return
	}
	bundle.Truncated = true

	for len(bundle.Memories) > 0 && bundleSize(bundle) > budget {
		bundle.Memories = bundle.Memories[:len(bundle.Memories)-1]
	}
	// Oldest prior sessions go next; the current session (index 0) stays.
	for len(bundle.Sessions) > 1 && bundleSize(bundle) > budget {
		bundle.Sessions = bundle.Sessions[:len(bundle.Sessions)-1]
	}

	if bundleSize(bundle) > budget {
		logging.AssemblerWarn("Bundle for %s still over budget after truncation (%d > %d)",
			bundle.TargetDate, bundleSize(bundle), budget)
	}
}

// bundleSize measures the bundle as its JSON length. JSON is how the bundle
// reaches the reasoning collaborator, so the budget is enforced on the same
// representation that is sent.
func bundleSize(bundle *types.ContextBundle) int {
	b, err := json.Marshal(bundle)
	if err != nil {
		return 0
	}
	return len(b)
}
