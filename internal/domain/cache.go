package domain

import (
	"errors"
	"strings"
	"time"
)

// CacheEntry maps a derived per-output cache key to the artifact that
// satisfies it. At most one artifact per key; upserts are
// last-writer-wins because content is presumed reproducible.
type CacheEntry struct {
	CacheKey   string
	ArtifactID string
	UpdatedAt  time.Time
}

func (e CacheEntry) Validate() error {
	if strings.TrimSpace(e.CacheKey) == "" {
		return errors.New("cache key is required")
	}
	if strings.TrimSpace(e.ArtifactID) == "" {
		return errors.New("artifact id is required")
	}
	return nil
}
