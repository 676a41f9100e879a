package airtable

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/mwhitford/storyloom/internal/config"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	cfg := &config.Config{}
	cfg.Airtable.BaseURL = srv.URL
	cfg.Airtable.BaseID = "appTEST"
	return &Client{
		baseURL: cfg.Airtable.BaseURL,
		baseID:  cfg.Airtable.BaseID,
		apiKey:  "key123",
		client:  srv.Client(),
	}
}

func TestListAllSinglePage(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer key123" {
			t.Errorf("expected bearer auth, got %q", got)
		}
		if got := r.URL.Query().Get("view"); got != "Palm Island" {
			t.Errorf("expected view 'Palm Island', got %q", got)
		}
		json.NewEncoder(w).Encode(listResponse{
			Records: []Record{
				{ID: "rec1", Fields: map[string]any{"Name": "Jo"}},
				{ID: "rec2", Fields: map[string]any{"Name": "Amelia"}},
			},
		})
	})

	records, err := c.ListAll(context.Background(), "Storytellers", "Palm Island")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("expected 2 records, got %d", len(records))
	}
	if records[0].ID != "rec1" {
		t.Errorf("expected rec1 first, got %q", records[0].ID)
	}
}

func TestListAllFollowsCursor(t *testing.T) {
	calls := 0
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls++
		switch r.URL.Query().Get("offset") {
		case "":
			json.NewEncoder(w).Encode(listResponse{
				Records: []Record{{ID: "rec1", Fields: map[string]any{}}},
				Offset:  "itrCursor1",
			})
		case "itrCursor1":
			json.NewEncoder(w).Encode(listResponse{
				Records: []Record{{ID: "rec2", Fields: map[string]any{}}},
			})
		default:
			t.Errorf("unexpected offset %q", r.URL.Query().Get("offset"))
		}
	})

	records, err := c.ListAll(context.Background(), "Storytellers", "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if calls != 2 {
		t.Errorf("expected 2 page fetches, got %d", calls)
	}
	if len(records) != 2 {
		t.Errorf("expected 2 records accumulated, got %d", len(records))
	}
}

func TestListAllAbortsOnHTTPError(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		json.NewEncoder(w).Encode(map[string]any{
			"error": map[string]string{"type": "AUTHENTICATION_REQUIRED", "message": "Invalid API key"},
		})
	})

	records, err := c.ListAll(context.Background(), "Storytellers", "")
	if err == nil {
		t.Fatal("expected error on HTTP 401")
	}
	if records != nil {
		t.Errorf("expected no partial results, got %d records", len(records))
	}
}

func TestListAllAbortsMidPagination(t *testing.T) {
	calls := 0
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls == 1 {
			json.NewEncoder(w).Encode(listResponse{
				Records: []Record{{ID: "rec1", Fields: map[string]any{}}},
				Offset:  "itrCursor1",
			})
			return
		}
		w.WriteHeader(http.StatusInternalServerError)
	})

	records, err := c.ListAll(context.Background(), "Storytellers", "")
	if err == nil {
		t.Fatal("expected error when a later page fails")
	}
	if records != nil {
		t.Error("expected first page to be discarded on later failure")
	}
}

func TestListAllUnconfigured(t *testing.T) {
	c := &Client{client: http.DefaultClient}
	if c.IsConfigured() {
		t.Error("expected unconfigured client")
	}
	if _, err := c.ListAll(context.Background(), "Storytellers", ""); err == nil {
		t.Error("expected error from unconfigured client")
	}
}
