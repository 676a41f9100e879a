package database

import (
	"database/sql"
	"fmt"
)

const storyColumns = `story_id, storyteller_id, storyteller_name, title, content,
themes, tags, location, project, date_recorded, media_urls`

// buildStoryWhere mirrors buildWhere against the stories view, whose
// text columns are named differently from the base table.
func buildStoryWhere(f ListFilter) (string, []any) {
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
		clauses = append(clauses, "(storyteller_name LIKE ? OR title LIKE ? OR content LIKE ? OR themes LIKE ?)")
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

// ListStories returns story projections matching the filter, most recently
// updated first.
func (db *DB) ListStories(f ListFilter) ([]Story, error) {
	where, args := buildStoryWhere(f)
	limit, offset := f.effective()

	query := fmt.Sprintf(
		"SELECT %s FROM stories %s ORDER BY updated_at DESC, story_id LIMIT ? OFFSET ?",
		storyColumns, where,
	)
	args = append(args, limit, offset)

	rows, err := db.conn.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Story
	for rows.Next() {
		s, err := scanStory(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// GetStory returns a single story by its story_id, or nil when unknown.
func (db *DB) GetStory(storyID string) (*Story, error) {
	row := db.conn.QueryRow(
		fmt.Sprintf("SELECT %s FROM stories WHERE story_id = ?", storyColumns), storyID,
	)
	s, err := scanStory(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// CountStories returns the number of storytellers with story content.
func (db *DB) CountStories() (int, error) {
	var count int
	err := db.conn.QueryRow("SELECT COUNT(*) FROM stories").Scan(&count)
	return count, err
}

func scanStory(row scannable) (Story, error) {
	var s Story
	var name, title, content, themes, tags, location, project, dateRecorded, mediaURLs sql.NullString

	if err := row.Scan(&s.ID, &s.StorytellerID, &name, &title, &content,
		&themes, &tags, &location, &project, &dateRecorded, &mediaURLs); err != nil {
		return s, err
	}

	s.StorytellerName = name.String
	s.Title = title.String
	s.Content = content.String
	s.Themes = themes.String
	s.Location = location.String
	s.Project = project.String
	s.DateRecorded = dateRecorded.String
	s.Tags = decodeStringList(tags.String)
	s.MediaURLs = decodeStringList(mediaURLs.String)
	return s, nil
}
