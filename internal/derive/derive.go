package derive

import (
	"sort"
	"strings"
	"time"

	"github.com/mwhitford/storyloom/internal/normalize"
)

// Collections holds everything computed from the storyteller set. It is
// rebuilt in full on every sync; there is no incremental patch path.
type Collections struct {
	Projects  []string     `json:"projects"`
	Locations []string     `json:"locations"`
	Themes    []string     `json:"themes"`
	Summary   []ThemeCount `json:"themeSummary"`
	Stats     Stats        `json:"stats"`
}

// ThemeCount is one row of the themes summary: how many storytellers carry
// the theme token.
type ThemeCount struct {
	Theme      string `json:"theme"`
	StoryCount int    `json:"storyCount"`
}

// Stats is the cheap precomputed snapshot served by the stats endpoint.
type Stats struct {
	TotalStorytellers int    `json:"totalStorytellers"`
	TotalStories      int    `json:"totalStories"`
	TotalProjects     int    `json:"totalProjects"`
	TotalLocations    int    `json:"totalLocations"`
	TotalThemes       int    `json:"totalThemes"`
	GeneratedAt       string `json:"generatedAt"`
	Version           string `json:"version"`
}

// Build computes the derived collections from the storyteller set. Pure and
// total: an empty input yields empty collections. Distinctness is
// case-sensitive exact match on trimmed strings; near-duplicate labels are
// deliberately not merged.
func Build(storytellers []normalize.Storyteller, now time.Time) Collections {
	projects := map[string]struct{}{}
	locations := map[string]struct{}{}
	themeCounts := map[string]int{}
	themeOrder := []string{}
	stories := 0

	for _, s := range storytellers {
		if p := strings.TrimSpace(s.Project); p != "" {
			projects[p] = struct{}{}
		}
		if l := strings.TrimSpace(s.Location); l != "" {
			locations[l] = struct{}{}
		}
		if s.StoryContent != "" {
			stories++
		}

		seen := map[string]struct{}{}
		for _, raw := range strings.Split(s.Themes, ",") {
			token := strings.TrimSpace(raw)
			if token == "" {
				continue
			}
			// Count each storyteller at most once per theme.
			if _, dup := seen[token]; dup {
				continue
			}
			seen[token] = struct{}{}
			if _, known := themeCounts[token]; !known {
				themeOrder = append(themeOrder, token)
			}
			themeCounts[token]++
		}
	}

	themes := make([]string, len(themeOrder))
	copy(themes, themeOrder)
	sort.Strings(themes)

	summary := make([]ThemeCount, 0, len(themeCounts))
	for _, theme := range themeOrder {
		summary = append(summary, ThemeCount{Theme: theme, StoryCount: themeCounts[theme]})
	}
	sort.Slice(summary, func(i, j int) bool {
		if summary[i].StoryCount != summary[j].StoryCount {
			return summary[i].StoryCount > summary[j].StoryCount
		}
		return summary[i].Theme < summary[j].Theme
	})

	return Collections{
		Projects:  sortedKeys(projects),
		Locations: sortedKeys(locations),
		Themes:    themes,
		Summary:   summary,
		Stats: Stats{
			TotalStorytellers: len(storytellers),
			TotalStories:      stories,
			TotalProjects:     len(projects),
			TotalLocations:    len(locations),
			TotalThemes:       len(themeCounts),
			GeneratedAt:       now.UTC().Format(time.RFC3339),
			Version:           "1.0.0",
		},
	}
}

func sortedKeys(set map[string]struct{}) []string {
	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
