package db

import (
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"
)

const sqliteDriverName = "sqlite"

// InitDB opens/creates the SQLite state store file and ensures tables exist.
func InitDB(path string) (*sql.DB, error) {
	db, err := sql.Open(sqliteDriverName, path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite at %q: %w", path, err)
	}

	// Single writer: the scheduler loops and the override controller share
	// one connection so SQLite never sees competing write transactions.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	for _, pragma := range []string{
		"PRAGMA journal_mode = WAL;",
		"PRAGMA foreign_keys = ON;",
		"PRAGMA busy_timeout = 5000;",
	} {
		if _, err := db.Exec(pragma); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("set %s: %w", pragma, err)
		}
	}

	if err := ensureSchema(db); err != nil {
		_ = db.Close()
		return nil, err
	}

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}

	return db, nil
}

const schemaJunctions = `
CREATE TABLE IF NOT EXISTS junctions (
    team_id TEXT NOT NULL,
    id TEXT NOT NULL,
    name TEXT NOT NULL,
    mode TEXT NOT NULL DEFAULT 'auto',
    current_active TEXT NOT NULL DEFAULT '',
    updated_at TIMESTAMP NOT NULL,
    PRIMARY KEY (team_id, id)
);
`

const schemaJunctionLights = `
CREATE TABLE IF NOT EXISTS junction_lights (
    team_id TEXT NOT NULL,
    junction_id TEXT NOT NULL,
    direction TEXT NOT NULL,
    position INTEGER NOT NULL,
    color TEXT NOT NULL DEFAULT 'red',
    remaining_s INTEGER NOT NULL DEFAULT 0,
    green_s INTEGER NOT NULL DEFAULT 0,
    yellow_s INTEGER NOT NULL DEFAULT 0,
    duration_s INTEGER NOT NULL DEFAULT 0,
    traffic_light_id TEXT NOT NULL DEFAULT '',
    PRIMARY KEY (team_id, junction_id, direction)
);
`

const schemaTrafficLights = `
CREATE TABLE IF NOT EXISTS traffic_lights (
    id TEXT PRIMARY KEY,
    team_id TEXT NOT NULL,
    interid TEXT NOT NULL DEFAULT '',
    roadid TEXT NOT NULL DEFAULT '',
    lat REAL NOT NULL DEFAULT 0,
    lng REAL NOT NULL DEFAULT 0,
    auto_on BOOLEAN NOT NULL DEFAULT 1,
    color INTEGER NOT NULL DEFAULT 1,
    remaintime INTEGER NOT NULL DEFAULT 0,
    timestamp TEXT NOT NULL DEFAULT ''
);
`

const schemaControlEvents = `
CREATE TABLE IF NOT EXISTS control_events (
    id TEXT PRIMARY KEY,
    occurred_at TIMESTAMP NOT NULL,
    type TEXT NOT NULL,
    junction_id TEXT NOT NULL DEFAULT '',
    message TEXT NOT NULL,
    meta TEXT
);
`

const schemaUsers = `
CREATE TABLE IF NOT EXISTS users (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    username TEXT UNIQUE NOT NULL,
    password_hash TEXT NOT NULL
);
`

func ensureSchema(db *sql.DB) error {
	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("begin schema transaction: %w", err)
	}
	defer func() {
		// rollback is a no-op after a successful commit
		_ = tx.Rollback()
	}()

	for i, stmt := range []string{
		schemaJunctions,
		schemaJunctionLights,
		schemaTrafficLights,
		schemaControlEvents,
		schemaUsers,
	} {
		if _, err := tx.Exec(stmt); err != nil {
			return fmt.Errorf("apply schema statement %d: %w", i+1, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit schema transaction: %w", err)
	}
	return nil
}
