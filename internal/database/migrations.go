package database

import "database/sql"

// Migration represents a single schema migration step.
type Migration struct {
	Version     int
	Description string
	Up          func(tx *sql.Tx) error
}

// migrations is the ordered list of all schema migrations.
// Append new migrations to the end with incrementing Version numbers.
var migrations = []Migration{
	{
		Version:     1,
		Description: "initial schema",
		Up: func(tx *sql.Tx) error {
			_, err := tx.Exec(`
CREATE TABLE IF NOT EXISTS storytellers (
    id TEXT PRIMARY KEY,
    name TEXT,
    bio TEXT,
    location TEXT,
    project TEXT,
    story_title TEXT,
    story_content TEXT,
    themes TEXT,
    tags TEXT,
    media_urls TEXT,
    date_recorded TEXT,
    organization TEXT,
    role TEXT,
    data TEXT,
    created_at TEXT DEFAULT (datetime('now')),
    updated_at TEXT DEFAULT (datetime('now'))
);

CREATE VIEW IF NOT EXISTS stories AS
SELECT
    id || '_story' AS story_id,
    id AS storyteller_id,
    name AS storyteller_name,
    story_title AS title,
    story_content AS content,
    themes,
    tags,
    location,
    project,
    date_recorded,
    media_urls,
    created_at,
    updated_at
FROM storytellers
WHERE story_content IS NOT NULL AND story_content != '';

CREATE TABLE IF NOT EXISTS themes_summary (
    theme TEXT PRIMARY KEY,
    story_count INTEGER DEFAULT 0,
    last_updated TEXT DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS derived_collections (
    name TEXT PRIMARY KEY,
    items TEXT NOT NULL,
    updated_at TEXT DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS stats_snapshot (
    id INTEGER PRIMARY KEY CHECK (id = 1),
    total_storytellers INTEGER DEFAULT 0,
    total_stories INTEGER DEFAULT 0,
    total_projects INTEGER DEFAULT 0,
    total_locations INTEGER DEFAULT 0,
    total_themes INTEGER DEFAULT 0,
    generated_at TEXT,
    version TEXT
);

CREATE TABLE IF NOT EXISTS sync_runs (
    id TEXT PRIMARY KEY,
    started_at TEXT NOT NULL,
    finished_at TEXT,
    record_count INTEGER DEFAULT 0,
    warning_count INTEGER DEFAULT 0
);

CREATE TABLE IF NOT EXISTS sync_lease (
    id INTEGER PRIMARY KEY CHECK (id = 1),
    owner TEXT NOT NULL,
    acquired_at TEXT NOT NULL,
    expires_at TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_storytellers_name ON storytellers(name);
CREATE INDEX IF NOT EXISTS idx_storytellers_location ON storytellers(location);
CREATE INDEX IF NOT EXISTS idx_storytellers_project ON storytellers(project);
CREATE INDEX IF NOT EXISTS idx_storytellers_themes ON storytellers(themes);
`)
			return err
		},
	},
}

// latestVersion returns the highest migration version number.
func latestVersion() int {
	if len(migrations) == 0 {
		return 0
	}
	return migrations[len(migrations)-1].Version
}
