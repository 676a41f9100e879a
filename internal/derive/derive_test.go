package derive

import (
	"reflect"
	"testing"
	"time"

	"github.com/mwhitford/storyloom/internal/normalize"
)

var fixedNow = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

func TestBuildEmptySet(t *testing.T) {
	c := Build(nil, fixedNow)
	if len(c.Projects) != 0 || len(c.Locations) != 0 || len(c.Themes) != 0 {
		t.Error("expected empty collections for empty input")
	}
	if c.Stats.TotalStorytellers != 0 {
		t.Errorf("expected 0 storytellers, got %d", c.Stats.TotalStorytellers)
	}
	if c.Stats.GeneratedAt != "2024-03-01T12:00:00Z" {
		t.Errorf("unexpected generatedAt %q", c.Stats.GeneratedAt)
	}
}

func TestBuildTwoRecordScenario(t *testing.T) {
	c := Build([]normalize.Storyteller{
		{ID: "rec1", Name: "Jo", Project: "Goods"},
		{ID: "rec2", Name: "Amelia", Project: "Goods", Location: "Palm Island"},
	}, fixedNow)

	if !reflect.DeepEqual(c.Projects, []string{"Goods"}) {
		t.Errorf("projects = %v, want [Goods]", c.Projects)
	}
	if !reflect.DeepEqual(c.Locations, []string{"Palm Island"}) {
		t.Errorf("locations = %v, want [Palm Island]", c.Locations)
	}
	if c.Stats.TotalStorytellers != 2 {
		t.Errorf("totalStorytellers = %d, want 2", c.Stats.TotalStorytellers)
	}
	if c.Stats.TotalProjects != 1 || c.Stats.TotalLocations != 1 {
		t.Errorf("expected 1 project and 1 location, got %d/%d", c.Stats.TotalProjects, c.Stats.TotalLocations)
	}
}

func TestBuildThemeTokens(t *testing.T) {
	c := Build([]normalize.Storyteller{
		{ID: "rec1", Themes: "Community, Healing"},
		{ID: "rec2", Themes: "Healing,Culture"},
		{ID: "rec3", Themes: "Healing, Healing"},
	}, fixedNow)

	if !reflect.DeepEqual(c.Themes, []string{"Community", "Culture", "Healing"}) {
		t.Errorf("themes = %v", c.Themes)
	}
	if c.Stats.TotalThemes != 3 {
		t.Errorf("totalThemes = %d, want 3", c.Stats.TotalThemes)
	}

	counts := map[string]int{}
	for _, tc := range c.Summary {
		counts[tc.Theme] = tc.StoryCount
	}
	// rec3's duplicate token counts once.
	if counts["Healing"] != 3 {
		t.Errorf("Healing count = %d, want 3", counts["Healing"])
	}
	if counts["Community"] != 1 || counts["Culture"] != 1 {
		t.Errorf("unexpected counts %v", counts)
	}

	// Summary ordered by count descending.
	if c.Summary[0].Theme != "Healing" {
		t.Errorf("expected Healing first in summary, got %q", c.Summary[0].Theme)
	}
}

func TestBuildNoFuzzyDedup(t *testing.T) {
	c := Build([]normalize.Storyteller{
		{ID: "rec1", Project: "Goods"},
		{ID: "rec2", Project: "Goods."},
		{ID: "rec3", Project: "goods"},
	}, fixedNow)

	if len(c.Projects) != 3 {
		t.Errorf("expected 3 distinct projects (no fuzzy dedup), got %v", c.Projects)
	}
}

func TestBuildStoryCount(t *testing.T) {
	c := Build([]normalize.Storyteller{
		{ID: "rec1", StoryContent: "A story."},
		{ID: "rec2"},
	}, fixedNow)
	if c.Stats.TotalStories != 1 {
		t.Errorf("totalStories = %d, want 1", c.Stats.TotalStories)
	}
}

func TestBuildIsPure(t *testing.T) {
	in := []normalize.Storyteller{
		{ID: "rec1", Project: "Goods", Themes: "Healing"},
	}
	a := Build(in, fixedNow)
	b := Build(in, fixedNow)
	if !reflect.DeepEqual(a, b) {
		t.Error("expected identical output for identical input")
	}
}
