package database

import "database/sql"

// DefaultSearchLimit bounds the mixed-type search when no limit is given.
const DefaultSearchLimit = 20

// Search runs a free-text search across storytellers and stories, tagging
// each hit with its type. Story descriptions are truncated to 200 characters.
func (db *DB) Search(query string, limit int) ([]SearchHit, error) {
	if limit <= 0 || limit > MaxListLimit {
		limit = DefaultSearchLimit
	}
	pat := "%" + query + "%"

	rows, err := db.conn.Query(`
SELECT 'storyteller' AS type, id, name AS title, bio AS description, location, project
FROM storytellers
WHERE name LIKE ? OR bio LIKE ? OR location LIKE ? OR project LIKE ?

UNION ALL

SELECT 'story' AS type, story_id AS id, title,
       SUBSTR(content, 1, 200) || '...' AS description, location, project
FROM stories
WHERE title LIKE ? OR content LIKE ? OR themes LIKE ?

LIMIT ?`,
		pat, pat, pat, pat,
		pat, pat, pat,
		limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []SearchHit
	for rows.Next() {
		var h SearchHit
		var title, description, location, project sql.NullString
		if err := rows.Scan(&h.Type, &h.ID, &title, &description, &location, &project); err != nil {
			return nil, err
		}
		h.Title = title.String
		h.Description = description.String
		h.Location = location.String
		h.Project = project.String
		out = append(out, h)
	}
	return out, rows.Err()
}
