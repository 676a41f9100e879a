package database

import (
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/mwhitford/storyloom/internal/derive"
	"github.com/mwhitford/storyloom/internal/normalize"
)

// CommitSync applies one full sync run atomically: every storyteller is
// upserted, the derived collections and stats snapshot are rebuilt from
// scratch, and the run is recorded. Either everything lands or, on any
// failure, the prior state is left untouched for the scheduler to retry.
func (db *DB) CommitSync(run SyncRun, storytellers []normalize.Storyteller, cols derive.Collections) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("begin sync transaction: %w", err)
	}
	defer tx.Rollback()

	for _, s := range storytellers {
		if err := upsertStoryteller(tx, s); err != nil {
			return fmt.Errorf("upserting storyteller %s: %w", s.ID, err)
		}
	}

	// Derived state is replaced wholesale, never patched.
	if _, err := tx.Exec("DELETE FROM themes_summary"); err != nil {
		return fmt.Errorf("clearing themes summary: %w", err)
	}
	for _, tc := range cols.Summary {
		if _, err := tx.Exec(
			"INSERT INTO themes_summary (theme, story_count, last_updated) VALUES (?, ?, datetime('now'))",
			tc.Theme, tc.StoryCount,
		); err != nil {
			return fmt.Errorf("writing theme %q: %w", tc.Theme, err)
		}
	}

	for name, items := range map[string][]string{
		"projects":  cols.Projects,
		"locations": cols.Locations,
		"themes":    cols.Themes,
	} {
		encoded, err := json.Marshal(emptyIfNil(items))
		if err != nil {
			return fmt.Errorf("encoding %s: %w", name, err)
		}
		if _, err := tx.Exec(`
INSERT INTO derived_collections (name, items, updated_at)
VALUES (?, ?, datetime('now'))
ON CONFLICT(name) DO UPDATE SET items = excluded.items, updated_at = datetime('now')`,
			name, string(encoded),
		); err != nil {
			return fmt.Errorf("writing collection %s: %w", name, err)
		}
	}

	if _, err := tx.Exec(`
INSERT INTO stats_snapshot
    (id, total_storytellers, total_stories, total_projects, total_locations, total_themes, generated_at, version)
VALUES (1, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(id) DO UPDATE SET
    total_storytellers = excluded.total_storytellers,
    total_stories = excluded.total_stories,
    total_projects = excluded.total_projects,
    total_locations = excluded.total_locations,
    total_themes = excluded.total_themes,
    generated_at = excluded.generated_at,
    version = excluded.version`,
		cols.Stats.TotalStorytellers, cols.Stats.TotalStories, cols.Stats.TotalProjects,
		cols.Stats.TotalLocations, cols.Stats.TotalThemes, cols.Stats.GeneratedAt, cols.Stats.Version,
	); err != nil {
		return fmt.Errorf("writing stats snapshot: %w", err)
	}

	if _, err := tx.Exec(
		"INSERT INTO sync_runs (id, started_at, finished_at, record_count, warning_count) VALUES (?, ?, datetime('now'), ?, ?)",
		run.ID, run.StartedAt, run.RecordCount, run.WarningCount,
	); err != nil {
		return fmt.Errorf("recording sync run: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing sync: %w", err)
	}
	return nil
}

// ThemesSummary returns the theme counts, most common first.
func (db *DB) ThemesSummary() ([]ThemeSummary, error) {
	rows, err := db.conn.Query(
		"SELECT theme, story_count, last_updated FROM themes_summary ORDER BY story_count DESC, theme",
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []ThemeSummary
	for rows.Next() {
		var ts ThemeSummary
		if err := rows.Scan(&ts.Theme, &ts.StoryCount, &ts.LastUpdated); err != nil {
			return nil, err
		}
		out = append(out, ts)
	}
	return out, rows.Err()
}

// GetCollection returns a named derived collection (projects, locations,
// themes). Unknown or not-yet-synced names yield an empty list.
func (db *DB) GetCollection(name string) ([]string, error) {
	var items string
	err := db.conn.QueryRow(
		"SELECT items FROM derived_collections WHERE name = ?", name,
	).Scan(&items)
	if err == sql.ErrNoRows {
		return []string{}, nil
	}
	if err != nil {
		return nil, err
	}
	return decodeStringList(items), nil
}

// GetStats returns the precomputed stats snapshot, or zero stats when no
// sync has run yet.
func (db *DB) GetStats() (derive.Stats, error) {
	var s derive.Stats
	var generatedAt, version sql.NullString
	err := db.conn.QueryRow(`
SELECT total_storytellers, total_stories, total_projects, total_locations,
       total_themes, generated_at, version
FROM stats_snapshot WHERE id = 1`,
	).Scan(&s.TotalStorytellers, &s.TotalStories, &s.TotalProjects,
		&s.TotalLocations, &s.TotalThemes, &generatedAt, &version)
	if err == sql.ErrNoRows {
		return derive.Stats{}, nil
	}
	if err != nil {
		return derive.Stats{}, err
	}
	s.GeneratedAt = generatedAt.String
	s.Version = version.String
	return s, nil
}

// GetLastRun returns the most recent sync run, or nil when none has run.
func (db *DB) GetLastRun() (*SyncRun, error) {
	var r SyncRun
	var finished sql.NullString
	err := db.conn.QueryRow(
		"SELECT id, started_at, finished_at, record_count, warning_count FROM sync_runs ORDER BY started_at DESC LIMIT 1",
	).Scan(&r.ID, &r.StartedAt, &finished, &r.RecordCount, &r.WarningCount)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	r.FinishedAt = finished.String
	return &r, nil
}
