package database

import (
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/mwhitford/storyloom/internal/normalize"
)

// upsertStoryteller writes one storyteller inside the given transaction.
// An existing row with the same id is fully replaced: every modeled column
// takes the incoming value, so no stale field survives a re-sync.
func upsertStoryteller(tx *sql.Tx, s normalize.Storyteller) error {
	tags, err := json.Marshal(emptyIfNil(s.Tags))
	if err != nil {
		return fmt.Errorf("encoding tags for %s: %w", s.ID, err)
	}
	mediaURLs, err := json.Marshal(emptyIfNil(s.MediaURLs))
	if err != nil {
		return fmt.Errorf("encoding media urls for %s: %w", s.ID, err)
	}
	data, err := json.Marshal(s.Metadata)
	if err != nil {
		return fmt.Errorf("encoding metadata for %s: %w", s.ID, err)
	}

	_, err = tx.Exec(`
INSERT INTO storytellers
    (id, name, bio, location, project, story_title, story_content, themes,
     tags, media_urls, date_recorded, organization, role, data)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(id) DO UPDATE SET
    name = excluded.name,
    bio = excluded.bio,
    location = excluded.location,
    project = excluded.project,
    story_title = excluded.story_title,
    story_content = excluded.story_content,
    themes = excluded.themes,
    tags = excluded.tags,
    media_urls = excluded.media_urls,
    date_recorded = excluded.date_recorded,
    organization = excluded.organization,
    role = excluded.role,
    data = excluded.data,
    updated_at = datetime('now')`,
		s.ID, s.Name, s.Bio, s.Location, s.Project, s.StoryTitle, s.StoryContent,
		s.Themes, string(tags), string(mediaURLs), s.DateRecorded,
		s.Organization, s.Role, string(data),
	)
	return err
}

func emptyIfNil(list []string) []string {
	if list == nil {
		return []string{}
	}
	return list
}

const storytellerColumns = `id, name, bio, location, project, story_title,
story_content, themes, tags, media_urls, date_recorded, organization, role, data`

// buildWhere assembles the conjunctive WHERE clause for listings. Filters
// are ANDed; the free-text search ORs across name, bio, story content, and
// themes. SQLite LIKE is case-insensitive for ASCII, matching the source
// API's behavior.
func buildWhere(f ListFilter) (string, []any) {
	var clauses []string
	var args []any

	if f.Project != "" {
		clauses = append(clauses, "project = ?")
		args = append(args, f.Project)
	}
	if f.Location != "" {
		clauses = append(clauses, "location = ?")
		args = append(args, f.Location)
	}
	if f.Theme != "" {
		clauses = append(clauses, "themes LIKE ?")
		args = append(args, "%"+f.Theme+"%")
	}
	if f.Search != "" {
		clauses = append(clauses, "(name LIKE ? OR bio LIKE ? OR story_content LIKE ? OR themes LIKE ?)")
		pat := "%" + f.Search + "%"
		args = append(args, pat, pat, pat, pat)
	}

	if len(clauses) == 0 {
		return "", nil
	}
	where := "WHERE " + clauses[0]
	for _, c := range clauses[1:] {
		where += " AND " + c
	}
	return where, args
}

// ListStorytellers returns storytellers matching the filter, most recently
// updated first. Offsets past the end return an empty slice.
func (db *DB) ListStorytellers(f ListFilter) ([]normalize.Storyteller, error) {
	where, args := buildWhere(f)
	limit, offset := f.effective()

	query := fmt.Sprintf(
		"SELECT %s FROM storytellers %s ORDER BY updated_at DESC, id LIMIT ? OFFSET ?",
		storytellerColumns, where,
	)
	args = append(args, limit, offset)

	rows, err := db.conn.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []normalize.Storyteller
	for rows.Next() {
		s, err := scanStoryteller(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// AllStorytellers returns every stored storyteller, uncapped, for the static
// export. Ordered by id for stable output.
func (db *DB) AllStorytellers() ([]normalize.Storyteller, error) {
	query := fmt.Sprintf("SELECT %s FROM storytellers ORDER BY id", storytellerColumns)
	rows, err := db.conn.Query(query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []normalize.Storyteller
	for rows.Next() {
		s, err := scanStoryteller(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// GetStoryteller returns a single storyteller by id, or nil when unknown.
func (db *DB) GetStoryteller(id string) (*normalize.Storyteller, error) {
	row := db.conn.QueryRow(
		fmt.Sprintf("SELECT %s FROM storytellers WHERE id = ?", storytellerColumns), id,
	)
	s, err := scanStoryteller(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// CountStorytellers returns the number of stored storytellers.
func (db *DB) CountStorytellers() (int, error) {
	var count int
	err := db.conn.QueryRow("SELECT COUNT(*) FROM storytellers").Scan(&count)
	return count, err
}

type scannable interface {
	Scan(dest ...any) error
}

func scanStoryteller(row scannable) (normalize.Storyteller, error) {
	var s normalize.Storyteller
	var name, bio, location, project, storyTitle, storyContent, themes sql.NullString
	var tags, mediaURLs, dateRecorded, organization, role, data sql.NullString

	if err := row.Scan(&s.ID, &name, &bio, &location, &project, &storyTitle,
		&storyContent, &themes, &tags, &mediaURLs, &dateRecorded,
		&organization, &role, &data); err != nil {
		return s, err
	}

	s.Name = name.String
	s.Bio = bio.String
	s.Location = location.String
	s.Project = project.String
	s.StoryTitle = storyTitle.String
	s.StoryContent = storyContent.String
	s.Themes = themes.String
	s.DateRecorded = dateRecorded.String
	s.Organization = organization.String
	s.Role = role.String
	s.Tags = decodeStringList(tags.String)
	s.MediaURLs = decodeStringList(mediaURLs.String)
	s.Metadata = decodeMetadata(data.String)
	return s, nil
}

// decodeStringList tolerates legacy rows with malformed JSON by returning an
// empty list rather than failing the whole read.
func decodeStringList(raw string) []string {
	if raw == "" {
		return []string{}
	}
	var out []string
	if err := json.Unmarshal([]byte(raw), &out); err != nil {
		return []string{}
	}
	if out == nil {
		return []string{}
	}
	return out
}

func decodeMetadata(raw string) map[string]any {
	if raw == "" {
		return map[string]any{}
	}
	var out map[string]any
	if err := json.Unmarshal([]byte(raw), &out); err != nil {
		return map[string]any{}
	}
	if out == nil {
		return map[string]any{}
	}
	return out
}
