package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/mwhitford/storyloom/internal/database"
	"github.com/mwhitford/storyloom/internal/derive"
	"github.com/mwhitford/storyloom/internal/gallery"
	"github.com/mwhitford/storyloom/internal/normalize"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func setup(t *testing.T, storytellers ...normalize.Storyteller) (*database.DB, *gin.Engine) {
	t.Helper()
	db, err := database.Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("failed to open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	if len(storytellers) > 0 {
		cols := derive.Build(storytellers, time.Now())
		run := database.SyncRun{ID: "run-1", StartedAt: "2024-03-01 12:00:00", RecordCount: len(storytellers)}
		if err := db.CommitSync(run, storytellers, cols); err != nil {
			t.Fatalf("commit failed: %v", err)
		}
	}

	srv := New(db, gallery.NewAssigner("/gallery", 54, nil))
	return db, srv.Router()
}

func get(t *testing.T, router *gin.Engine, path string) *httptest.ResponseRecorder {
	t.Helper()
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	router.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder, v any) {
	t.Helper()
	if err := json.Unmarshal(w.Body.Bytes(), v); err != nil {
		t.Fatalf("decoding response: %v\nbody: %s", err, w.Body.String())
	}
}

func TestHealth(t *testing.T) {
	_, router := setup(t)
	w := get(t, router, "/health")
	if w.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", w.Code)
	}
}

func TestHealthUnavailable(t *testing.T) {
	db, router := setup(t)
	db.Close()

	w := get(t, router, "/health")
	if w.Code != http.StatusServiceUnavailable {
		t.Errorf("expected 503 on closed database, got %d", w.Code)
	}
}

func TestListStorytellers(t *testing.T) {
	_, router := setup(t,
		normalize.Storyteller{ID: "rec1", Name: "Jo", Project: "Goods"},
		normalize.Storyteller{ID: "rec2", Name: "Amelia", Project: "Other"},
	)

	w := get(t, router, "/storytellers")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}

	var got []storytellerView
	decode(t, w, &got)
	if len(got) != 2 {
		t.Fatalf("expected 2 storytellers, got %d", len(got))
	}
	if got[0].ProfileImage == "" {
		t.Error("expected profileImage set")
	}
}

func TestListStorytellersFiltered(t *testing.T) {
	_, router := setup(t,
		normalize.Storyteller{ID: "rec1", Name: "Jo", Project: "Goods"},
		normalize.Storyteller{ID: "rec2", Name: "Amelia", Project: "Other"},
	)

	w := get(t, router, "/storytellers?project=Goods")
	var got []storytellerView
	decode(t, w, &got)
	if len(got) != 1 || got[0].ID != "rec1" {
		t.Errorf("expected only rec1, got %+v", got)
	}

	// Offset past the end yields an empty array, not null.
	w = get(t, router, "/storytellers?offset=50")
	if body := w.Body.String(); body != "[]" {
		t.Errorf("expected [], got %s", body)
	}
}

func TestGetStoryteller(t *testing.T) {
	_, router := setup(t, normalize.Storyteller{ID: "rec1", Name: "Jo"})

	w := get(t, router, "/storytellers/rec1")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	var got storytellerView
	decode(t, w, &got)
	if got.Name != "Jo" {
		t.Errorf("unexpected storyteller %+v", got)
	}
}

func TestGetStorytellerNotFound(t *testing.T) {
	_, router := setup(t)

	w := get(t, router, "/storytellers/recMissing")
	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", w.Code)
	}
	var body map[string]string
	decode(t, w, &body)
	if body["error"] == "" || body["timestamp"] == "" {
		t.Errorf("expected error shape with timestamp, got %v", body)
	}
}

func TestStories(t *testing.T) {
	_, router := setup(t,
		normalize.Storyteller{ID: "rec1", Name: "Jo", StoryTitle: "The Reef", StoryContent: "Out on the water."},
		normalize.Storyteller{ID: "rec2", Name: "Amelia"},
	)

	w := get(t, router, "/stories")
	var stories []database.Story
	decode(t, w, &stories)
	if len(stories) != 1 || stories[0].ID != "rec1_story" {
		t.Errorf("expected one derived story, got %+v", stories)
	}

	w = get(t, router, "/stories/rec1_story")
	if w.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", w.Code)
	}

	w = get(t, router, "/stories/rec2_story")
	if w.Code != http.StatusNotFound {
		t.Errorf("expected 404 for storyteller without content, got %d", w.Code)
	}
}

func TestThemesAndStats(t *testing.T) {
	_, router := setup(t,
		normalize.Storyteller{ID: "rec1", Themes: "Healing, Country", StoryContent: "x"},
		normalize.Storyteller{ID: "rec2", Themes: "Healing"},
	)

	w := get(t, router, "/themes")
	var themes []database.ThemeSummary
	decode(t, w, &themes)
	if len(themes) != 2 || themes[0].Theme != "Healing" || themes[0].StoryCount != 2 {
		t.Errorf("unexpected themes %+v", themes)
	}

	w = get(t, router, "/stats")
	var stats derive.Stats
	decode(t, w, &stats)
	if stats.TotalStorytellers != 2 || stats.TotalStories != 1 {
		t.Errorf("unexpected stats %+v", stats)
	}
}

func TestCollections(t *testing.T) {
	_, router := setup(t,
		normalize.Storyteller{ID: "rec1", Project: "Goods", Location: "Palm Island"},
	)

	w := get(t, router, "/projects")
	var projects []string
	decode(t, w, &projects)
	if len(projects) != 1 || projects[0] != "Goods" {
		t.Errorf("expected [Goods], got %v", projects)
	}

	w = get(t, router, "/locations")
	var locations []string
	decode(t, w, &locations)
	if len(locations) != 1 || locations[0] != "Palm Island" {
		t.Errorf("expected [Palm Island], got %v", locations)
	}
}

func TestSearch(t *testing.T) {
	_, router := setup(t,
		normalize.Storyteller{ID: "rec1", Name: "Jo", Bio: "fisher"},
		normalize.Storyteller{ID: "rec2", Name: "Amelia", StoryTitle: "Fishing", StoryContent: "We fish."},
	)

	w := get(t, router, "/search?q=fish")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	var hits []database.SearchHit
	decode(t, w, &hits)
	if len(hits) == 0 {
		t.Fatal("expected hits")
	}
	for _, h := range hits {
		if h.Type != "storyteller" && h.Type != "story" {
			t.Errorf("unexpected hit type %q", h.Type)
		}
	}
}

func TestSearchMissingQuery(t *testing.T) {
	_, router := setup(t)

	w := get(t, router, "/search")
	if w.Code != http.StatusBadRequest {
		t.Errorf("expected 400 without q, got %d", w.Code)
	}

	w = get(t, router, "/search?q=%20")
	if w.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for blank q, got %d", w.Code)
	}
}
