// Package gallery assigns stable placeholder images to storytellers whose
// media assets have expired or were never set.
package gallery

import (
	"fmt"
	"strings"
)

// Assign returns a stable index in [0, poolSize) for the given id. The hash
// is the signed 32-bit polynomial h = h*31 + byte used by every consumer of
// this data, so the same (id, poolSize) pair maps to the same image across
// processes, languages, and runs. Returns 0 when poolSize is not positive.
func Assign(id string, poolSize int) int {
	if poolSize <= 0 {
		return 0
	}

	var h int32
	for i := 0; i < len(id); i++ {
		h = (h << 5) - h + int32(id[i])
	}

	v := int64(h)
	if v < 0 {
		v = -v
	}
	return int(v % int64(poolSize))
}

// Assigner resolves a profile image for a storyteller: curated overrides
// first, then the computed pool assignment.
type Assigner struct {
	pathPrefix string
	poolSize   int
	overrides  map[string]string
}

func NewAssigner(pathPrefix string, poolSize int, overrides map[string]string) *Assigner {
	if pathPrefix == "" {
		pathPrefix = "/gallery"
	}
	if poolSize <= 0 {
		poolSize = 54
	}
	return &Assigner{pathPrefix: pathPrefix, poolSize: poolSize, overrides: overrides}
}

// ProfileImage picks the image shown for a storyteller. A local (already
// rewritten) media URL wins; expiring source URLs are treated as absent.
// Otherwise the curated override applies, then the computed fallback.
func (a *Assigner) ProfileImage(id string, mediaURLs []string) string {
	for _, u := range mediaURLs {
		if strings.HasPrefix(u, a.pathPrefix+"/") {
			return u
		}
	}
	if img, ok := a.overrides[id]; ok {
		return img
	}
	return a.Fallback(id)
}

// Fallback returns the computed pool image for an id, ignoring overrides.
func (a *Assigner) Fallback(id string) string {
	return fmt.Sprintf("%s/Photo%d.jpg", a.pathPrefix, Assign(id, a.poolSize)+1)
}
