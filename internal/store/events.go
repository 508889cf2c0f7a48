// Package store - the append-only event log.
package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"daybook/internal/logging"
	"daybook/internal/types"

	"github.com/google/uuid"
)

// Append validates and durably appends an event to the log. It is the only
// mutation the log supports. Appends for the same session are serialized so
// the no-backdating check and the insert are atomic; an event whose timestamp
// precedes the last appended event for its session fails with a
// types.ValidationError.
//
// Appending the same event ID twice is a no-op (idempotent replay).
func (s *Store) Append(event types.Event) error {
	timer := logging.StartTimer(logging.CategoryStore, "Append")
	defer timer.Stop()

	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if err := event.Validate(); err != nil {
		return err
	}

	lock := s.sessionLock(event.SessionID)
	lock.Lock()
	defer lock.Unlock()

	// Redelivery of a stored event is a no-op even when later appends have
	// moved the session's timestamp past it.
	var dup int
	if err := s.db.QueryRow(
		"SELECT COUNT(*) FROM events WHERE id = ?", event.ID,
	).Scan(&dup); err != nil {
		return fmt.Errorf("failed to check event id %s: %w", event.ID, err)
	}
	if dup > 0 {
		logging.StoreDebug("Ignoring redelivered event: id=%s", event.ID)
		return nil
	}

	var last int64
	err := s.db.QueryRow(
		"SELECT COALESCE(MAX(ts_unix_ns), 0) FROM events WHERE session_id = ?",
		event.SessionID,
	).Scan(&last)
	if err != nil {
		return fmt.Errorf("failed to read last timestamp for %s: %w", event.SessionID, err)
	}

	ts := event.Timestamp.UnixNano()
	if last != 0 && ts < last {
		return types.NewValidationError(
			"event %s at %s predates last event for session %s (no backdating)",
			event.Kind, event.Timestamp.Format(time.RFC3339Nano), event.SessionID)
	}

	payload, err := json.Marshal(event.Payload)
	if err != nil {
		return fmt.Errorf("failed to marshal %s payload: %w", event.Kind, err)
	}

	_, err = s.db.Exec(
		`INSERT OR IGNORE INTO events (id, session_id, kind, ts_unix_ns, payload)
		 VALUES (?, ?, ?, ?, ?)`,
		event.ID, event.SessionID, string(event.Kind), ts, string(payload),
	)
	if err != nil {
		logging.Get(logging.CategoryStore).Error("Failed to append %s for %s: %v", event.Kind, event.SessionID, err)
		return fmt.Errorf("failed to append event: %w", err)
	}

	logging.StoreDebug("Appended event: kind=%s session=%s id=%s", event.Kind, event.SessionID, event.ID)
	return nil
}

// ScanFilter narrows a log scan. Zero values mean "no constraint".
type ScanFilter struct {
	SessionID string
	Kind      types.EventKind
	From      time.Time
	To        time.Time
}

// Iterator is a lazy, restartable cursor over the event log, ordered by
// timestamp with insertion order breaking ties. Each query runs against a
// consistent snapshot, so an append mid-scan never corrupts iteration;
// Restart picks up a fresh snapshot.
type Iterator struct {
	s      *Store
	filter ScanFilter
	rows   *sql.Rows
	cur    types.Event
	err    error
}

// Scan opens an iterator over events matching the filter.
func (s *Store) Scan(filter ScanFilter) (*Iterator, error) {
	it := &Iterator{s: s, filter: filter}
	if err := it.Restart(); err != nil {
		return nil, err
	}
	return it, nil
}

// Restart re-issues the query from the beginning on a fresh snapshot.
func (it *Iterator) Restart() error {
	if it.rows != nil {
		it.rows.Close()
		it.rows = nil
	}
	it.err = nil

	query := "SELECT id, session_id, kind, ts_unix_ns, payload FROM events WHERE 1=1"
	var args []interface{}
	if it.filter.SessionID != "" {
		query += " AND session_id = ?"
		args = append(args, it.filter.SessionID)
	}
	if it.filter.Kind != "" {
		query += " AND kind = ?"
		args = append(args, string(it.filter.Kind))
	}
	if !it.filter.From.IsZero() {
		query += " AND ts_unix_ns >= ?"
		args = append(args, it.filter.From.UnixNano())
	}
	if !it.filter.To.IsZero() {
		query += " AND ts_unix_ns < ?"
		args = append(args, it.filter.To.UnixNano())
	}
	query += " ORDER BY ts_unix_ns ASC, seq ASC"

	rows, err := it.s.db.Query(query, args...)
	if err != nil {
		return fmt.Errorf("failed to scan events: %w", err)
	}
	it.rows = rows
	return nil
}

// Next advances to the next event. It returns false at the end of the scan
// or on error; check Err afterwards.
func (it *Iterator) Next() bool {
	if it.rows == nil || it.err != nil {
		return false
	}
	if !it.rows.Next() {
		it.err = it.rows.Err()
		return false
	}

	var id, sessionID, kind, payload string
	var tsNano int64
	if err := it.rows.Scan(&id, &sessionID, &kind, &tsNano, &payload); err != nil {
		it.err = err
		return false
	}

	p, err := types.DecodePayload(types.EventKind(kind), []byte(payload))
	if err != nil {
		it.err = fmt.Errorf("event %s: %w", id, err)
		return false
	}

	it.cur = types.Event{
		ID:        id,
		SessionID: sessionID,
		Kind:      types.EventKind(kind),
		Timestamp: time.Unix(0, tsNano).UTC(),
		Payload:   p,
	}
	return true
}

// Event returns the event at the current position.
func (it *Iterator) Event() types.Event {
	return it.cur
}

// Err returns the first error encountered during iteration.
func (it *Iterator) Err() error {
	return it.err
}

// Close releases the iterator's resources.
func (it *Iterator) Close() error {
	if it.rows == nil {
		return nil
	}
	return it.rows.Close()
}

// Events collects all events matching the filter. Convenience wrapper over
// Scan for callers that want the whole slice.
func (s *Store) Events(filter ScanFilter) ([]types.Event, error) {
	it, err := s.Scan(filter)
	if err != nil {
		return nil, err
	}
	defer it.Close()

	var events []types.Event
	for it.Next() {
		events = append(events, it.Event())
	}
	return events, it.Err()
}

// SessionDates returns up to limit distinct session dates strictly before
// the given date, newest first. Used to pull the trailing history window.
func (s *Store) SessionDates(before string, limit int) ([]string, error) {
	if limit <= 0 {
		limit = 7
	}

	rows, err := s.db.Query(
		`SELECT DISTINCT session_id FROM events
		 WHERE session_id < ?
		 ORDER BY session_id DESC
		 LIMIT ?`,
		before, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list session dates: %w", err)
	}
	defer rows.Close()

	var dates []string
	for rows.Next() {
		var d string
		if err := rows.Scan(&d); err != nil {
			continue
		}
		dates = append(dates, d)
	}
	return dates, rows.Err()
}
