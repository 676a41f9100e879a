// Package server exposes the read-only JSON API over the local sink.
package server

import (
	"context"
	"errors"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/mwhitford/storyloom/internal/database"
	"github.com/mwhitford/storyloom/internal/gallery"
)

// Server wires the query façade onto gin. All routes are read-only.
type Server struct {
	db       *database.DB
	assigner *gallery.Assigner
}

func New(db *database.DB, assigner *gallery.Assigner) *Server {
	return &Server{db: db, assigner: assigner}
}

// Router builds the gin engine with all routes registered.
func (s *Server) Router() *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	_ = router.SetTrustedProxies(nil)

	router.GET("/health", s.health)
	router.GET("/storytellers", s.listStorytellers)
	router.GET("/storytellers/:id", s.getStoryteller)
	router.GET("/stories", s.listStories)
	router.GET("/stories/:id", s.getStory)
	router.GET("/themes", s.listThemes)
	router.GET("/projects", s.listCollection("projects"))
	router.GET("/locations", s.listCollection("locations"))
	router.GET("/stats", s.getStats)
	router.GET("/search", s.search)

	return router
}

// Run serves the API until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context, port int) error {
	srv := &http.Server{
		Addr:              ":" + strconv.Itoa(port),
		Handler:           s.Router(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Printf("API server listening on %s", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

// storytellerView is a storyteller plus the resolved profile image. The
// image is a read-time projection, never stored.
type storytellerView struct {
	ID           string         `json:"id"`
	Name         string         `json:"name"`
	Bio          string         `json:"bio"`
	Location     string         `json:"location"`
	Project      string         `json:"project"`
	Organization string         `json:"organization"`
	Role         string         `json:"role"`
	StoryTitle   string         `json:"storyTitle"`
	StoryContent string         `json:"storyContent"`
	Themes       string         `json:"themes"`
	Tags         []string       `json:"tags"`
	MediaURLs    []string       `json:"mediaUrls"`
	DateRecorded string         `json:"dateRecorded"`
	ProfileImage string         `json:"profileImage"`
	Metadata     map[string]any `json:"metadata"`
}

func (s *Server) health(c *gin.Context) {
	if err := s.db.Ping(); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status":    "unavailable",
			"timestamp": now(),
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok", "timestamp": now()})
}

func (s *Server) listStorytellers(c *gin.Context) {
	f := filterFromQuery(c)
	storytellers, err := s.db.ListStorytellers(f)
	if err != nil {
		fail(c, http.StatusInternalServerError, "failed to list storytellers")
		return
	}

	views := make([]storytellerView, 0, len(storytellers))
	for _, st := range storytellers {
		views = append(views, storytellerView{
			ID:           st.ID,
			Name:         st.Name,
			Bio:          st.Bio,
			Location:     st.Location,
			Project:      st.Project,
			Organization: st.Organization,
			Role:         st.Role,
			StoryTitle:   st.StoryTitle,
			StoryContent: st.StoryContent,
			Themes:       st.Themes,
			Tags:         st.Tags,
			MediaURLs:    st.MediaURLs,
			DateRecorded: st.DateRecorded,
			ProfileImage: s.assigner.ProfileImage(st.ID, st.MediaURLs),
			Metadata:     st.Metadata,
		})
	}
	c.JSON(http.StatusOK, views)
}

func (s *Server) getStoryteller(c *gin.Context) {
	st, err := s.db.GetStoryteller(c.Param("id"))
	if err != nil {
		fail(c, http.StatusInternalServerError, "failed to load storyteller")
		return
	}
	if st == nil {
		fail(c, http.StatusNotFound, "storyteller not found")
		return
	}
	c.JSON(http.StatusOK, storytellerView{
		ID:           st.ID,
		Name:         st.Name,
		Bio:          st.Bio,
		Location:     st.Location,
		Project:      st.Project,
		Organization: st.Organization,
		Role:         st.Role,
		StoryTitle:   st.StoryTitle,
		StoryContent: st.StoryContent,
		Themes:       st.Themes,
		Tags:         st.Tags,
		MediaURLs:    st.MediaURLs,
		DateRecorded: st.DateRecorded,
		ProfileImage: s.assigner.ProfileImage(st.ID, st.MediaURLs),
		Metadata:     st.Metadata,
	})
}

func (s *Server) listStories(c *gin.Context) {
	stories, err := s.db.ListStories(filterFromQuery(c))
	if err != nil {
		fail(c, http.StatusInternalServerError, "failed to list stories")
		return
	}
	if stories == nil {
		stories = []database.Story{}
	}
	c.JSON(http.StatusOK, stories)
}

func (s *Server) getStory(c *gin.Context) {
	story, err := s.db.GetStory(c.Param("id"))
	if err != nil {
		fail(c, http.StatusInternalServerError, "failed to load story")
		return
	}
	if story == nil {
		fail(c, http.StatusNotFound, "story not found")
		return
	}
	c.JSON(http.StatusOK, story)
}

func (s *Server) listThemes(c *gin.Context) {
	themes, err := s.db.ThemesSummary()
	if err != nil {
		fail(c, http.StatusInternalServerError, "failed to list themes")
		return
	}
	if themes == nil {
		themes = []database.ThemeSummary{}
	}
	c.JSON(http.StatusOK, themes)
}

func (s *Server) listCollection(name string) gin.HandlerFunc {
	return func(c *gin.Context) {
		items, err := s.db.GetCollection(name)
		if err != nil {
			fail(c, http.StatusInternalServerError, "failed to list "+name)
			return
		}
		c.JSON(http.StatusOK, items)
	}
}

func (s *Server) getStats(c *gin.Context) {
	stats, err := s.db.GetStats()
	if err != nil {
		fail(c, http.StatusInternalServerError, "failed to load stats")
		return
	}
	c.JSON(http.StatusOK, stats)
}

func (s *Server) search(c *gin.Context) {
	q := strings.TrimSpace(c.Query("q"))
	if q == "" {
		fail(c, http.StatusBadRequest, "query parameter q is required")
		return
	}

	hits, err := s.db.Search(q, parseInt(c.Query("limit"), database.DefaultSearchLimit))
	if err != nil {
		fail(c, http.StatusInternalServerError, "search failed")
		return
	}
	if hits == nil {
		hits = []database.SearchHit{}
	}
	c.JSON(http.StatusOK, hits)
}

func filterFromQuery(c *gin.Context) database.ListFilter {
	return database.ListFilter{
		Project:  c.Query("project"),
		Location: c.Query("location"),
		Theme:    c.Query("theme"),
		Search:   c.Query("search"),
		Limit:    parseInt(c.Query("limit"), database.DefaultListLimit),
		Offset:   parseInt(c.Query("offset"), 0),
	}
}

func fail(c *gin.Context, status int, msg string) {
	c.JSON(status, gin.H{"error": msg, "timestamp": now()})
}

func now() string {
	return time.Now().UTC().Format(time.RFC3339)
}

func parseInt(s string, def int) int {
	if strings.TrimSpace(s) == "" {
		return def
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return n
}
