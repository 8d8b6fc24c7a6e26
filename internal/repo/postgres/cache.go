package postgres

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/pixelflow-labs/pixelflow-go/internal/domain"
)

type CacheStore struct {
	db DB
}

func NewCacheStore(db DB) *CacheStore {
	if db == nil {
		return nil
	}
	return &CacheStore{db: db}
}

func (s *CacheStore) GetCacheEntry(ctx context.Context, cacheKey string) (domain.CacheEntry, error) {
	if s == nil || s.db == nil {
		return domain.CacheEntry{}, fmt.Errorf("cache store not initialized")
	}
	row := s.db.QueryRowContext(
		ctx,
		`SELECT cache_key, artifact_id, updated_at FROM cache_entries WHERE cache_key = $1`,
		strings.TrimSpace(cacheKey),
	)
	var entry domain.CacheEntry
	if err := row.Scan(&entry.CacheKey, &entry.ArtifactID, &entry.UpdatedAt); err != nil {
		return domain.CacheEntry{}, handleNotFound(err)
	}
	return entry, nil
}

// UpsertCacheEntry is last-writer-wins: concurrent writers computing
// the same key converge on an equivalent artifact because executors
// are deterministic.
func (s *CacheStore) UpsertCacheEntry(ctx context.Context, cacheKey, artifactID string) error {
	if s == nil || s.db == nil {
		return fmt.Errorf("cache store not initialized")
	}
	entry := domain.CacheEntry{CacheKey: strings.TrimSpace(cacheKey), ArtifactID: strings.TrimSpace(artifactID)}
	if err := entry.Validate(); err != nil {
		return err
	}
	_, err := s.db.ExecContext(
		ctx,
		`INSERT INTO cache_entries (cache_key, artifact_id, updated_at)
		 VALUES ($1, $2, $3)
		 ON CONFLICT (cache_key) DO UPDATE SET artifact_id = EXCLUDED.artifact_id, updated_at = EXCLUDED.updated_at`,
		entry.CacheKey,
		entry.ArtifactID,
		time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("upsert cache entry: %w", err)
	}
	return nil
}
