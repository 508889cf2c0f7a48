// Package store owns daybook's durable state: the append-only event log,
// the standing-facts table, and the interaction memory vectors.
// The event log is canonical; everything else can be recomputed from it
// or rebuilt by re-storing interactions.
package store

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"daybook/internal/embedding"
	"daybook/internal/logging"

	_ "github.com/mattn/go-sqlite3"
)

// Store wraps the SQLite database holding the event log, standing facts,
// and interaction memories.
//
// Concurrency: reads run concurrently under WAL; event appends are
// serialized per session_id by sessionLock so the no-backdating check and
// the insert are atomic. No lock is ever held across an external call.
type Store struct {
	db     *sql.DB
	mu     sync.RWMutex
	dbPath string

	// Per-session append locks (keyed by session date).
	appendMu    sync.Mutex
	appendLocks map[string]*sync.Mutex

	embedEngine embedding.Engine // optional, enables semantic recall
	vectorExt   bool             // sqlite-vec available
}

// New initializes the SQLite database at the given path.
func New(path string) (*Store, error) {
	timer := logging.StartTimer(logging.CategoryStore, "store.New")
	defer timer.Stop()

	logging.Store("Initializing store at path: %s", path)

	if path != ":memory:" {
		dir := filepath.Dir(path)
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		logging.StoreDebug("Failed to set sqlite busy_timeout: %v", err)
	}
	if _, err := db.Exec("PRAGMA journal_mode = WAL"); err != nil {
		logging.StoreDebug("Failed to set sqlite journal_mode=WAL: %v", err)
	}
	// synchronous=NORMAL is safe under WAL and much faster than FULL.
	if _, err := db.Exec("PRAGMA synchronous = NORMAL"); err != nil {
		logging.StoreDebug("Failed to set sqlite synchronous=NORMAL: %v", err)
	}

	s := &Store{
		db:          db,
		dbPath:      path,
		appendLocks: make(map[string]*sync.Mutex),
	}
	if err := s.initialize(); err != nil {
		db.Close()
		return nil, err
	}

	s.detectVecExtension()
	if s.vectorExt {
		logging.Store("sqlite-vec extension detected and enabled")
	} else {
		logging.StoreDebug("sqlite-vec extension not available; using in-process similarity")
	}

	logging.Store("Store initialization complete")
	return s, nil
}

// initialize creates the required tables.
func (s *Store) initialize() error {
	// Append-only event log. ts_unix_ns carries ordering; seq breaks ties
	// by insertion order. INSERT OR IGNORE on id makes replay idempotent
	// per event identity.
	eventsTable := `
	CREATE TABLE IF NOT EXISTS events (
		seq INTEGER PRIMARY KEY AUTOINCREMENT,
		id TEXT NOT NULL UNIQUE,
		session_id TEXT NOT NULL,
		kind TEXT NOT NULL,
		ts_unix_ns INTEGER NOT NULL,
		payload TEXT NOT NULL,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);
	CREATE INDEX IF NOT EXISTS idx_events_session ON events(session_id, ts_unix_ns);
	CREATE INDEX IF NOT EXISTS idx_events_kind ON events(kind);
	`

	// Standing user facts, append-only; the newest row per (topic, key) wins.
	// id is a UUID, not a rowid alias.
	factsTable := `
	CREATE TABLE IF NOT EXISTS standing_facts (
		id TEXT PRIMARY KEY,
		topic TEXT NOT NULL,
		key TEXT NOT NULL,
		value TEXT NOT NULL,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);
	CREATE INDEX IF NOT EXISTS idx_facts_topic ON standing_facts(topic);
	`

	// Interaction memory for semantic recall.
	memoriesTable := `
	CREATE TABLE IF NOT EXISTS memories (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		content TEXT NOT NULL,
		embedding TEXT,
		metadata TEXT,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);
	CREATE INDEX IF NOT EXISTS idx_memories_content ON memories(content);
	`

	for _, table := range []string{eventsTable, factsTable, memoriesTable} {
		if _, err := s.db.Exec(table); err != nil {
			return fmt.Errorf("failed to create table: %w", err)
		}
	}

	if err := RunMigrations(s.db); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	return nil
}

// SetEmbeddingEngine configures the embedding engine for semantic recall.
// Must be called before StoreMemory for embeddings to be generated.
func (s *Store) SetEmbeddingEngine(engine embedding.Engine) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.embedEngine = engine
}

// Close closes the database connection.
func (s *Store) Close() error {
	logging.Store("Closing store database connection")
	return s.db.Close()
}

// DB returns the underlying SQL database connection.
func (s *Store) DB() *sql.DB {
	return s.db
}

// detectVecExtension attempts to create a vec0 virtual table to see if
// sqlite-vec is available.
func (s *Store) detectVecExtension() {
	if s.db == nil {
		return
	}
	if _, err := s.db.Exec("CREATE VIRTUAL TABLE IF NOT EXISTS vec_probe USING vec0(embedding float[4])"); err == nil {
		s.vectorExt = true
		_, _ = s.db.Exec("DROP TABLE IF EXISTS vec_probe")
		return
	}
	s.vectorExt = false
}

// sessionLock returns the append lock for a session date, creating it on
// first use.
func (s *Store) sessionLock(sessionID string) *sync.Mutex {
	s.appendMu.Lock()
	defer s.appendMu.Unlock()

	l, ok := s.appendLocks[sessionID]
	if !ok {
		l = &sync.Mutex{}
		s.appendLocks[sessionID] = l
	}
	return l
}

// Stats returns row counts per table.
func (s *Store) Stats() (map[string]int64, error) {
	timer := logging.StartTimer(logging.CategoryStore, "Stats")
	defer timer.Stop()

	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := make(map[string]int64)
	for _, table := range []string{"events", "standing_facts", "memories"} {
		var count int64
		if err := s.db.QueryRow(fmt.Sprintf("SELECT COUNT(*) FROM %s", table)).Scan(&count); err != nil {
			logging.StoreDebug("Table %s count failed: %v", table, err)
			continue
		}
		stats[table] = count
	}
	return stats, nil
}
