package normalize

import (
	"fmt"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/mwhitford/storyloom/internal/airtable"
)

// expiringHost is the source's temporary-asset domain. URLs under it stop
// resolving after a few hours, so they are rewritten to local gallery paths
// whenever the file is available on disk.
const expiringHost = "airtableusercontent.com"

// idPrefix marks opaque record identifiers in lookup fields.
const idPrefix = "rec"

// Storyteller is the canonical record every downstream consumer works with.
// Metadata retains the full raw field map so nothing is lost when the source
// grows fields this schema does not model yet.
type Storyteller struct {
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
	Metadata     map[string]any `json:"metadata"`
}

// ThemeSource identifies which raw field the themes value was taken from.
type ThemeSource int

const (
	ThemeSourceNone ThemeSource = iota
	// ThemeSourceDescriptions: resolved theme labels from the media lookup.
	ThemeSourceDescriptions
	// ThemeSourceWebsite: the curated website themes field, holding labels.
	ThemeSourceWebsite
	// ThemeSourceMediaIDs: raw theme identifiers from the media lookup.
	// This is the documented degradation: the value holds rec… ids, not labels.
	ThemeSourceMediaIDs
	// ThemeSourceWebsiteIDs: the website themes field, but holding raw ids.
	ThemeSourceWebsiteIDs
)

func (s ThemeSource) String() string {
	switch s {
	case ThemeSourceDescriptions:
		return "theme descriptions"
	case ThemeSourceWebsite:
		return "website themes"
	case ThemeSourceMediaIDs:
		return "media theme ids"
	case ThemeSourceWebsiteIDs:
		return "website theme ids"
	default:
		return "none"
	}
}

// Degraded reports whether the source holds raw identifiers instead of labels.
func (s ThemeSource) Degraded() bool {
	return s == ThemeSourceMediaIDs || s == ThemeSourceWebsiteIDs
}

// Normalizer maps raw records into Storytellers. galleryDir is checked for
// local copies of expiring media assets; empty disables rewriting.
type Normalizer struct {
	galleryDir string
	pathPrefix string
}

func New(galleryDir, pathPrefix string) *Normalizer {
	if pathPrefix == "" {
		pathPrefix = "/gallery"
	}
	return &Normalizer{galleryDir: galleryDir, pathPrefix: pathPrefix}
}

// Normalize maps one raw record into a Storyteller. It is total: absent,
// null, or oddly-typed values default rather than fail, and any sub-field
// that could not be interpreted is reported in warnings while the record is
// still produced.
func (n *Normalizer) Normalize(rec airtable.Record) (Storyteller, []string) {
	fields := rec.Fields
	if fields == nil {
		fields = map[string]any{}
	}

	var warnings []string
	warn := func(ws []string) { warnings = append(warnings, ws...) }

	// Preferred Name wins over Name when both are non-empty.
	name := stringField(fields, "Preferred Name", "Name")

	storyContent, ws := firstList(fields, "Story copy (from Stories)", "Story Transcript (from Stories)")
	warn(ws)

	storyTitle, ws := firstList(fields, "Title (from Stories)")
	warn(ws)

	themes, source := ResolveThemes(fields)
	if source.Degraded() {
		warnings = append(warnings, fmt.Sprintf("themes degraded to raw identifiers (source: %s)", source))
	}

	tags, ws := firstList(fields, "Theme (from Quotes) (from Media)")
	warn(ws)

	rawMedia, ws := firstList(fields, "File Path/URL (from Media)", "Media")
	warn(ws)
	mediaURLs := make([]string, 0, len(rawMedia))
	for _, u := range rawMedia {
		mediaURLs = append(mediaURLs, n.rewriteMediaURL(u))
	}

	return Storyteller{
		ID:           rec.ID,
		Name:         name,
		Bio:          stringField(fields, "Bio", "Empathy Ledger Reflection"),
		Location:     stringField(fields, "Location"),
		Project:      stringField(fields, "Project"),
		Organization: stringField(fields, "Organisation"),
		Role:         stringField(fields, "Role"),
		StoryTitle:   strings.Join(storyTitle, ", "),
		StoryContent: strings.Join(storyContent, "\n"),
		Themes:       themes,
		Tags:         tags,
		MediaURLs:    mediaURLs,
		DateRecorded: stringField(fields, "Created", "Created At"),
		Metadata:     fields,
	}, warnings
}

// ResolveThemes picks the themes value from the raw fields using an ordered
// fallback. Exactly one source is chosen; sources are never merged:
//
//  1. theme descriptions from the media lookup, when non-empty;
//  2. the website themes field, unless its first element is an opaque id;
//  3. theme identifiers from the media lookup, verbatim;
//  4. the website themes field even when it holds ids, so the raw
//     identifiers survive when nothing else is populated.
//
// 3 and 4 surface raw identifiers as the themes value: an observable
// degradation, not an error.
func ResolveThemes(fields map[string]any) (string, ThemeSource) {
	if descs, _ := firstList(fields, "Description (from Themes) (from Media)"); len(descs) > 0 {
		return strings.Join(descs, ", "), ThemeSourceDescriptions
	}

	website, _ := firstList(fields, "Website themes")
	if len(website) > 0 && !strings.HasPrefix(website[0], idPrefix) {
		return strings.Join(website, ", "), ThemeSourceWebsite
	}

	if ids, _ := firstList(fields, "Themes (from Media)"); len(ids) > 0 {
		return strings.Join(ids, ", "), ThemeSourceMediaIDs
	}

	if len(website) > 0 {
		return strings.Join(website, ", "), ThemeSourceWebsiteIDs
	}

	return "", ThemeSourceNone
}

// rewriteMediaURL substitutes a local gallery path for an expiring source URL
// when the file exists locally. Otherwise the original URL is kept and
// dereferencing it is best-effort only.
func (n *Normalizer) rewriteMediaURL(raw string) string {
	if n.galleryDir == "" || !strings.Contains(raw, expiringHost) {
		return raw
	}

	filename := path.Base(raw)
	if u, err := url.Parse(raw); err == nil {
		filename = path.Base(u.Path)
	}
	if filename == "" || filename == "." || filename == "/" {
		return raw
	}

	if _, err := os.Stat(filepath.Join(n.galleryDir, filename)); err == nil {
		return n.pathPrefix + "/" + filename
	}
	return raw
}
