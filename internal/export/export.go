// Package export writes static JSON snapshots of the sink for the website
// build to consume directly, without hitting the API.
package export

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/mwhitford/storyloom/internal/database"
	"github.com/mwhitford/storyloom/internal/gallery"
	"github.com/mwhitford/storyloom/internal/normalize"
)

// Profile is a storyteller plus the resolved profile image, which only
// exists as a projection and is never stored.
type Profile struct {
	normalize.Storyteller
	ProfileImage string `json:"profileImage"`
}

// ThemeEntry is one themes.json row.
type ThemeEntry struct {
	Theme      string `json:"theme"`
	StoryCount int    `json:"storyCount"`
}

// Exporter writes the five static JSON files into a directory.
type Exporter struct {
	db       *database.DB
	assigner *gallery.Assigner
	dir      string
}

func New(db *database.DB, assigner *gallery.Assigner, dir string) *Exporter {
	return &Exporter{db: db, assigner: assigner, dir: dir}
}

// Export regenerates every static file from the current sink state. Each
// file is written to a temp file and renamed into place, so readers never
// observe a partial file.
func (e *Exporter) Export() error {
	if err := os.MkdirAll(e.dir, 0o755); err != nil {
		return fmt.Errorf("creating export dir: %w", err)
	}

	storytellers, err := e.db.AllStorytellers()
	if err != nil {
		return fmt.Errorf("loading storytellers: %w", err)
	}
	profiles := make([]Profile, 0, len(storytellers))
	for _, s := range storytellers {
		profiles = append(profiles, Profile{
			Storyteller:  s,
			ProfileImage: e.assigner.ProfileImage(s.ID, s.MediaURLs),
		})
	}
	if err := e.writeJSON("storytellers.json", profiles); err != nil {
		return err
	}

	for _, name := range []string{"projects", "locations"} {
		items, err := e.db.GetCollection(name)
		if err != nil {
			return fmt.Errorf("loading %s: %w", name, err)
		}
		if err := e.writeJSON(name+".json", items); err != nil {
			return err
		}
	}

	summary, err := e.db.ThemesSummary()
	if err != nil {
		return fmt.Errorf("loading themes summary: %w", err)
	}
	themes := make([]ThemeEntry, 0, len(summary))
	for _, ts := range summary {
		themes = append(themes, ThemeEntry{Theme: ts.Theme, StoryCount: ts.StoryCount})
	}
	if err := e.writeJSON("themes.json", themes); err != nil {
		return err
	}

	stats, err := e.db.GetStats()
	if err != nil {
		return fmt.Errorf("loading stats: %w", err)
	}
	if err := e.writeJSON("stats.json", stats); err != nil {
		return err
	}

	log.Printf("Exported %d storytellers to %s", len(profiles), e.dir)
	return nil
}

func (e *Exporter) writeJSON(name string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding %s: %w", name, err)
	}
	data = append(data, '\n')

	tmp, err := os.CreateTemp(e.dir, name+".tmp-")
	if err != nil {
		return fmt.Errorf("creating temp file for %s: %w", name, err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("writing %s: %w", name, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("closing %s: %w", name, err)
	}

	if err := os.Rename(tmp.Name(), filepath.Join(e.dir, name)); err != nil {
		return fmt.Errorf("renaming %s into place: %w", name, err)
	}
	return nil
}
