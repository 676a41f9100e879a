package database

// Story is the story-shaped projection of a storyteller with non-empty
// story content, read from the stories view.
type Story struct {
	ID              string   `json:"id"`
	StorytellerID   string   `json:"storytellerId"`
	StorytellerName string   `json:"storytellerName"`
	Title           string   `json:"title"`
	Content         string   `json:"content"`
	Themes          string   `json:"themes"`
	Tags            []string `json:"tags"`
	Location        string   `json:"location"`
	Project         string   `json:"project"`
	DateRecorded    string   `json:"dateRecorded"`
	MediaURLs       []string `json:"mediaUrls"`
}

// ThemeSummary is one row of the themes summary table.
type ThemeSummary struct {
	Theme       string `json:"theme"`
	StoryCount  int    `json:"storyCount"`
	LastUpdated string `json:"lastUpdated"`
}

// SearchHit is a single mixed-type search result.
type SearchHit struct {
	Type        string `json:"type"`
	ID          string `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Location    string `json:"location"`
	Project     string `json:"project"`
}

// SyncRun records one pipeline execution.
type SyncRun struct {
	ID           string
	StartedAt    string
	FinishedAt   string
	RecordCount  int
	WarningCount int
}

// ListFilter holds the conjunctive filters for storyteller and story listings.
// Project and Location are exact matches; Theme is a case-insensitive
// substring match on the themes column; Search ORs across name, bio, story
// content, and themes.
type ListFilter struct {
	Project  string
	Location string
	Theme    string
	Search   string
	Limit    int
	Offset   int
}

// DefaultListLimit bounds listings when no limit is given; MaxListLimit is
// the hard cap so a caller cannot request an unbounded scan.
const (
	DefaultListLimit = 100
	MaxListLimit     = 100
)

// effective returns limit and offset clamped to sane bounds.
func (f ListFilter) effective() (limit, offset int) {
	limit = f.Limit
	if limit <= 0 || limit > MaxListLimit {
		limit = DefaultListLimit
	}
	offset = f.Offset
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}
