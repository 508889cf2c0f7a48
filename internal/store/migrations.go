// Package store - versioned schema migrations.
// These handle cases where tables exist but are missing newer columns.
package store

import (
	"database/sql"
	"fmt"

	"daybook/internal/logging"
)

// Schema versions:
// v1: events, standing_facts, memories tables
// v2: memories gained an embedding column
// v3: standing_facts gained a source column for provenance
// v4: standing_facts.id became TEXT so rows carry UUID identities
const CurrentSchemaVersion = 4

// Migration defines a database schema migration.
type Migration struct {
	Table  string
	Column string
	Def    string
}

// pendingMigrations lists all schema migrations to apply.
var pendingMigrations = []Migration{
	{"memories", "embedding", "TEXT"},
	{"standing_facts", "source", "TEXT DEFAULT ''"},
}

// RunMigrations applies schema migrations for existing databases.
func RunMigrations(db *sql.DB) error {
	timer := logging.StartTimer(logging.CategoryStore, "RunMigrations")
	defer timer.Stop()

	appliedCount := 0
	skippedCount := 0

	for _, m := range pendingMigrations {
		if !tableExists(db, m.Table) {
			skippedCount++
			continue
		}

		if !columnExists(db, m.Table, m.Column) {
			query := fmt.Sprintf("ALTER TABLE %s ADD COLUMN %s %s", m.Table, m.Column, m.Def)
			if _, err := db.Exec(query); err != nil {
				logging.Get(logging.CategoryStore).Warn("Migration failed (may already exist): %s.%s: %v", m.Table, m.Column, err)
				skippedCount++
			} else {
				logging.Store("Migration applied: added %s.%s", m.Table, m.Column)
				appliedCount++
			}
		} else {
			skippedCount++
		}
	}

	if err := migrateFactsID(db); err != nil {
		return err
	}

	logging.StoreDebug("Schema migrations complete: applied=%d, skipped=%d", appliedCount, skippedCount)
	return nil
}

// migrateFactsID rebuilds standing_facts when id is still the old rowid
// alias. SQLite cannot change a primary key in place, so the table is
// renamed, recreated with id TEXT, and the rows copied across.
func migrateFactsID(db *sql.DB) error {
	if !tableExists(db, "standing_facts") {
		return nil
	}
	if columnType(db, "standing_facts", "id") != "INTEGER" {
		return nil
	}

	rebuild := `
	ALTER TABLE standing_facts RENAME TO standing_facts_old;
	CREATE TABLE standing_facts (
		id TEXT PRIMARY KEY,
		topic TEXT NOT NULL,
		key TEXT NOT NULL,
		value TEXT NOT NULL,
		source TEXT DEFAULT '',
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);
	INSERT INTO standing_facts (id, topic, key, value, source, created_at)
		SELECT CAST(id AS TEXT), topic, key, value, COALESCE(source, ''), created_at
		FROM standing_facts_old;
	DROP TABLE standing_facts_old;
	CREATE INDEX IF NOT EXISTS idx_facts_topic ON standing_facts(topic);
	`
	if _, err := db.Exec(rebuild); err != nil {
		return fmt.Errorf("failed to rebuild standing_facts: %w", err)
	}
	logging.Store("Migration applied: standing_facts.id rebuilt as TEXT")
	return nil
}

// columnType returns the declared type of a column, or "" if the column does
// not exist.
func columnType(db *sql.DB, table, column string) string {
	rows, err := db.Query(fmt.Sprintf("PRAGMA table_info(%s)", table))
	if err != nil {
		return ""
	}
	defer rows.Close()

	for rows.Next() {
		var cid int
		var name, ctype string
		var notnull, pk int
		var dfltValue interface{}
		if err := rows.Scan(&cid, &name, &ctype, &notnull, &dfltValue, &pk); err != nil {
			continue
		}
		if name == column {
			return ctype
		}
	}
	return ""
}

// columnExists checks if a column exists in a table using PRAGMA table_info.
func columnExists(db *sql.DB, table, column string) bool {
	rows, err := db.Query(fmt.Sprintf("PRAGMA table_info(%s)", table))
	if err != nil {
		return false
	}
	defer rows.Close()

	for rows.Next() {
		var cid int
		var name, ctype string
		var notnull, pk int
		var dfltValue interface{}
		if err := rows.Scan(&cid, &name, &ctype, &notnull, &dfltValue, &pk); err != nil {
			continue
		}
		if name == column {
			return true
		}
	}
	return false
}

// tableExists checks if a table exists.
func tableExists(db *sql.DB, table string) bool {
	var name string
	err := db.QueryRow(
		"SELECT name FROM sqlite_master WHERE type='table' AND name=?", table,
	).Scan(&name)
	return err == nil
}
