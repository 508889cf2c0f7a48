package store

import (
	"fmt"
	"sort"
	"time"

	"daybook/internal/logging"

	"github.com/google/uuid"
)

// Fact is a durable key/value statement scoped to a topic. Facts are
// append-only rows; reads surface the latest value per (topic, key).
type Fact struct {
	ID        string
	Topic     string
	Key       string
	Value     string
	Source    string
	CreatedAt time.Time
}

// PutFact records a new value for a key within a topic. Earlier values stay
// in the table for history; GetFacts only returns the newest.
func (s *Store) PutFact(topic, key, value, source string) error {
	if topic == "" || key == "" {
		return fmt.Errorf("fact topic and key must be non-empty")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.Exec(
		`INSERT INTO standing_facts (id, topic, key, value, source)
		 VALUES (?, ?, ?, ?, ?)`,
		uuid.NewString(), topic, key, value, source,
	)
	if err != nil {
		return fmt.Errorf("failed to store fact %s/%s: %w", topic, key, err)
	}

	logging.StoreDebug("Stored fact: topic=%s key=%s", topic, key)
	return nil
}

// GetFacts returns the latest value per key within a topic, sorted by key.
func (s *Store) GetFacts(topic string) ([]Fact, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.Query(
		`SELECT id, topic, key, value, source, created_at FROM standing_facts
		 WHERE topic = ?
		 ORDER BY created_at ASC, rowid ASC`,
		topic,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load facts for %s: %w", topic, err)
	}
	defer rows.Close()

	latest := make(map[string]Fact)
	for rows.Next() {
		var f Fact
		if err := rows.Scan(&f.ID, &f.Topic, &f.Key, &f.Value, &f.Source, &f.CreatedAt); err != nil {
			continue
		}
		latest[f.Key] = f
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	facts := make([]Fact, 0, len(latest))
	for _, f := range latest {
		facts = append(facts, f)
	}
	sort.Slice(facts, func(i, j int) bool { return facts[i].Key < facts[j].Key })
	return facts, nil
}

// AllFacts returns the latest value per key across every topic, grouped by
// topic then key. Used by the assembler for the standing-facts section.
func (s *Store) AllFacts() ([]Fact, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.Query(
		`SELECT id, topic, key, value, source, created_at FROM standing_facts
		 ORDER BY created_at ASC, rowid ASC`,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load facts: %w", err)
	}
	defer rows.Close()

	type factKey struct{ topic, key string }
	latest := make(map[factKey]Fact)
	for rows.Next() {
		var f Fact
		if err := rows.Scan(&f.ID, &f.Topic, &f.Key, &f.Value, &f.Source, &f.CreatedAt); err != nil {
			continue
		}
		latest[factKey{f.Topic, f.Key}] = f
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	facts := make([]Fact, 0, len(latest))
	for _, f := range latest {
		facts = append(facts, f)
	}
	sort.Slice(facts, func(i, j int) bool {
		if facts[i].Topic != facts[j].Topic {
			return facts[i].Topic < facts[j].Topic
		}
		return facts[i].Key < facts[j].Key
	})
	return facts, nil
}
