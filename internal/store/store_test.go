package store

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"daybook/internal/types"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := New(filepath.Join(t.TempDir(), "daybook.db"))
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func checkInEvent(id, date string, ts time.Time, energy int) types.Event {
	return types.Event{
		ID:        id,
		SessionID: date,
		Kind:      types.KindCheckInRecorded,
		Timestamp: ts,
		Payload: types.CheckInPayload{
			MorningContext: types.MorningContext{
				EnergyLevel:   energy,
				TopOfMind:     []string{"quarterly report"},
				IntendedFocus: "writing",
			},
		},
	}
}

func TestAppendAndScan(t *testing.T) {
	s := newTestStore(t)
	base := time.Date(2026, 3, 2, 8, 0, 0, 0, time.UTC)

	ev := checkInEvent("ev-1", "2026-03-02", base, 4)
	if err := s.Append(ev); err != nil {
		t.Fatalf("Append failed: %v", err)
	}

	it, err := s.Scan(ScanFilter{SessionID: "2026-03-02"})
	if err != nil {
		t.Fatalf("Scan failed: %v", err)
	}
	defer it.Close()

	if !it.Next() {
		t.Fatalf("expected one event, got none (err=%v)", it.Err())
	}
	got := it.Event()
	if got.ID != "ev-1" || got.Kind != types.KindCheckInRecorded {
		t.Errorf("unexpected event: id=%s kind=%s", got.ID, got.Kind)
	}
	payload, ok := got.Payload.(types.CheckInPayload)
	if !ok {
		t.Fatalf("payload type = %T, want CheckInPayload", got.Payload)
	}
	if payload.EnergyLevel != 4 {
		t.Errorf("EnergyLevel = %d, want 4", payload.EnergyLevel)
	}
	if it.Next() {
		t.Error("expected exactly one event")
	}
}

func TestAppendRejectsBackdating(t *testing.T) {
	s := newTestStore(t)
	base := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)

	if err := s.Append(checkInEvent("ev-1", "2026-03-02", base, 3)); err != nil {
		t.Fatalf("first Append failed: %v", err)
	}

	earlier := types.Event{
		ID:        "ev-2",
		SessionID: "2026-03-02",
		Kind:      types.KindTaskCompleted,
		Timestamp: base.Add(-time.Hour),
		Payload:   types.TaskCompletedPayload{TaskID: "t-1", Title: "draft outline"},
	}
	err := s.Append(earlier)
	if err == nil {
		t.Fatal("expected backdated append to fail")
	}
	var verr *types.ValidationError
	if !errors.As(err, &verr) {
		t.Errorf("error type = %T, want *types.ValidationError", err)
	}

	// Backdating is per session: an earlier timestamp on a different
	// session date is fine.
	other := checkInEvent("ev-3", "2026-03-01", base.Add(-24*time.Hour), 3)
	if err := s.Append(other); err != nil {
		t.Errorf("append to other session failed: %v", err)
	}
}

func TestAppendIdempotentByID(t *testing.T) {
	s := newTestStore(t)
	base := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)

	ev := checkInEvent("ev-1", "2026-03-02", base, 3)
	if err := s.Append(ev); err != nil {
		t.Fatalf("Append failed: %v", err)
	}
	if err := s.Append(ev); err != nil {
		t.Fatalf("replayed Append failed: %v", err)
	}

	events, err := s.Events(ScanFilter{SessionID: "2026-03-02"})
	if err != nil {
		t.Fatalf("Events failed: %v", err)
	}
	if len(events) != 1 {
		t.Errorf("event count = %d, want 1 (replay must not duplicate)", len(events))
	}
}

func TestAppendRedeliveryAfterLaterEvent(t *testing.T) {
	s := newTestStore(t)
	base := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)

	first := checkInEvent("ev-1", "2026-03-02", base, 3)
	if err := s.Append(first); err != nil {
		t.Fatalf("Append failed: %v", err)
	}
	later := types.Event{
		ID:        "ev-2",
		SessionID: "2026-03-02",
		Kind:      types.KindTaskCompleted,
		Timestamp: base.Add(time.Hour),
		Payload:   types.TaskCompletedPayload{TaskID: "t-1"},
	}
	if err := s.Append(later); err != nil {
		t.Fatalf("Append failed: %v", err)
	}

	// Redelivering ev-1 now carries a timestamp older than the session max;
	// it must still be a no-op, not a backdating failure.
	if err := s.Append(first); err != nil {
		t.Fatalf("redelivered Append failed: %v", err)
	}

	events, err := s.Events(ScanFilter{SessionID: "2026-03-02"})
	if err != nil {
		t.Fatalf("Events failed: %v", err)
	}
	if len(events) != 2 {
		t.Errorf("event count = %d, want 2", len(events))
	}
}

func TestScanOrderAndTiebreak(t *testing.T) {
	s := newTestStore(t)
	base := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)

	// Two events share a timestamp; insertion order must break the tie.
	for i, id := range []string{"ev-a", "ev-b", "ev-c"} {
		ts := base
		if i == 2 {
			ts = base.Add(time.Minute)
		}
		ev := types.Event{
			ID:        id,
			SessionID: "2026-03-02",
			Kind:      types.KindTaskCompleted,
			Timestamp: ts,
			Payload:   types.TaskCompletedPayload{TaskID: id, Title: "task " + id},
		}
		if err := s.Append(ev); err != nil {
			t.Fatalf("Append %s failed: %v", id, err)
		}
	}

	events, err := s.Events(ScanFilter{SessionID: "2026-03-02"})
	if err != nil {
		t.Fatalf("Events failed: %v", err)
	}
	var ids []string
	for _, ev := range events {
		ids = append(ids, ev.ID)
	}
	want := []string{"ev-a", "ev-b", "ev-c"}
	for i := range want {
		if i >= len(ids) || ids[i] != want[i] {
			t.Fatalf("order = %v, want %v", ids, want)
		}
	}
}

func TestScanRestart(t *testing.T) {
	s := newTestStore(t)
	base := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	if err := s.Append(checkInEvent("ev-1", "2026-03-02", base, 2)); err != nil {
		t.Fatalf("Append failed: %v", err)
	}

	it, err := s.Scan(ScanFilter{})
	if err != nil {
		t.Fatalf("Scan failed: %v", err)
	}
	defer it.Close()

	count := 0
	for it.Next() {
		count++
	}
	if count != 1 {
		t.Fatalf("first pass count = %d, want 1", count)
	}

	// An append after the first pass should be visible after Restart.
	if err := s.Append(checkInEvent("ev-2", "2026-03-03", base.Add(24*time.Hour), 4)); err != nil {
		t.Fatalf("second Append failed: %v", err)
	}
	if err := it.Restart(); err != nil {
		t.Fatalf("Restart failed: %v", err)
	}
	count = 0
	for it.Next() {
		count++
	}
	if count != 2 {
		t.Errorf("restarted pass count = %d, want 2", count)
	}
}

func TestScanKindAndTimeFilter(t *testing.T) {
	s := newTestStore(t)
	base := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)

	if err := s.Append(checkInEvent("ev-1", "2026-03-02", base, 3)); err != nil {
		t.Fatalf("Append failed: %v", err)
	}
	task := types.Event{
		ID:        "ev-2",
		SessionID: "2026-03-02",
		Kind:      types.KindTaskCompleted,
		Timestamp: base.Add(2 * time.Hour),
		Payload:   types.TaskCompletedPayload{TaskID: "t-1", Title: "send invoices"},
	}
	if err := s.Append(task); err != nil {
		t.Fatalf("Append failed: %v", err)
	}

	events, err := s.Events(ScanFilter{Kind: types.KindTaskCompleted})
	if err != nil {
		t.Fatalf("Events failed: %v", err)
	}
	if len(events) != 1 || events[0].ID != "ev-2" {
		t.Errorf("kind filter returned %d events", len(events))
	}

	events, err = s.Events(ScanFilter{From: base.Add(time.Hour)})
	if err != nil {
		t.Fatalf("Events failed: %v", err)
	}
	if len(events) != 1 || events[0].ID != "ev-2" {
		t.Errorf("time filter returned %d events", len(events))
	}
}

func TestAppendRejectsInvalidPayload(t *testing.T) {
	s := newTestStore(t)

	ev := types.Event{
		ID:        "ev-bad",
		SessionID: "2026-03-02",
		Kind:      types.KindDecisionRecorded,
		Timestamp: time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC),
		Payload: types.DecisionPayload{Decision: types.Decision{
			ID:                "d-1",
			Question:          "which vendor?",
			OptionsConsidered: []string{"acme", "globex"},
			ChosenOption:      "initech", // not among the options
		}},
	}
	if err := s.Append(ev); err == nil {
		t.Fatal("expected invalid decision payload to be rejected")
	}

	events, err := s.Events(ScanFilter{})
	if err != nil {
		t.Fatalf("Events failed: %v", err)
	}
	if len(events) != 0 {
		t.Errorf("rejected event reached the log")
	}
}

func TestFactsLatestPerKey(t *testing.T) {
	s := newTestStore(t)

	if err := s.PutFact("work", "standup_time", "9:30", "checkin"); err != nil {
		t.Fatalf("PutFact failed: %v", err)
	}
	if err := s.PutFact("work", "standup_time", "10:00", "checkin"); err != nil {
		t.Fatalf("PutFact failed: %v", err)
	}
	if err := s.PutFact("work", "team_size", "6", "reflection"); err != nil {
		t.Fatalf("PutFact failed: %v", err)
	}

	facts, err := s.GetFacts("work")
	if err != nil {
		t.Fatalf("GetFacts failed: %v", err)
	}
	if len(facts) != 2 {
		t.Fatalf("fact count = %d, want 2", len(facts))
	}
	byKey := make(map[string]string)
	for _, f := range facts {
		byKey[f.Key] = f.Value
	}
	if byKey["standup_time"] != "10:00" {
		t.Errorf("standup_time = %q, want latest value 10:00", byKey["standup_time"])
	}
}

func TestFactsTableMigratesFromRowidID(t *testing.T) {
	path := filepath.Join(t.TempDir(), "daybook.db")

	// A database created before standing_facts carried UUID ids.
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		t.Fatalf("sql.Open failed: %v", err)
	}
	legacy := `
	CREATE TABLE standing_facts (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		topic TEXT NOT NULL,
		key TEXT NOT NULL,
		value TEXT NOT NULL,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);
	INSERT INTO standing_facts (topic, key, value) VALUES ('work', 'team_size', '6');
	`
	if _, err := db.Exec(legacy); err != nil {
		t.Fatalf("failed to seed legacy schema: %v", err)
	}
	db.Close()

	s, err := New(path)
	if err != nil {
		t.Fatalf("New failed on legacy database: %v", err)
	}
	defer s.Close()

	if err := s.PutFact("work", "standup_time", "9:30", "cli"); err != nil {
		t.Fatalf("PutFact failed after migration: %v", err)
	}

	facts, err := s.GetFacts("work")
	if err != nil {
		t.Fatalf("GetFacts failed: %v", err)
	}
	byKey := make(map[string]string)
	for _, f := range facts {
		byKey[f.Key] = f.Value
	}
	if byKey["team_size"] != "6" {
		t.Error("legacy fact row lost in migration")
	}
	if byKey["standup_time"] != "9:30" {
		t.Error("new fact row missing after migration")
	}
}

func TestKeywordMemorySearch(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	texts := []string{
		"Discussed the migration plan for the billing service",
		"Reviewed quarterly budget with finance",
		"Lunch with an old colleague",
	}
	for _, txt := range texts {
		if err := s.StoreMemory(ctx, txt, map[string]string{"kind": "note"}); err != nil {
			t.Fatalf("StoreMemory failed: %v", err)
		}
	}

	hits, err := s.SearchMemories(ctx, "billing migration status", 5)
	if err != nil {
		t.Fatalf("SearchMemories failed: %v", err)
	}
	if len(hits) == 0 {
		t.Fatal("expected keyword hits")
	}
	if hits[0].Text != texts[0] {
		t.Errorf("top hit = %q, want billing memory", hits[0].Text)
	}
	if hits[0].Metadata["kind"] != "note" {
		t.Errorf("metadata lost in round trip: %v", hits[0].Metadata)
	}
}

func TestSessionDates(t *testing.T) {
	s := newTestStore(t)
	base := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

	for i := 0; i < 5; i++ {
		day := base.AddDate(0, 0, i)
		ev := checkInEvent("", day.Format(types.DateLayout), day, 3)
		if err := s.Append(ev); err != nil {
			t.Fatalf("Append failed: %v", err)
		}
	}

	dates, err := s.SessionDates("2026-03-05", 3)
	if err != nil {
		t.Fatalf("SessionDates failed: %v", err)
	}
	want := []string{"2026-03-04", "2026-03-03", "2026-03-02"}
	if len(dates) != len(want) {
		t.Fatalf("dates = %v, want %v", dates, want)
	}
	for i := range want {
		if dates[i] != want[i] {
			t.Fatalf("dates = %v, want %v", dates, want)
		}
	}
}
