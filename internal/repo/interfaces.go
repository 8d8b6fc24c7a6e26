// Package repo declares the persistence contracts the engine depends
// on. The orchestrator exclusively owns Run and CacheEntry mutation
// during a run; artifacts are written once and read by any later run.
package repo

import (
	"context"
	"errors"
	"time"

	"github.com/pixelflow-labs/pixelflow-go/internal/domain"
)

// ErrNotFound is returned when a requested row does not exist.
var ErrNotFound = errors.New("not found")

type ArtifactFilter struct {
	ProjectID string
	RunID     string
	NodeID    string
	Kind      domain.ArtifactKind
	Limit     int
}

// RunRepository manages run rows.
type RunRepository interface {
	CreateRun(ctx context.Context, run domain.Run) error
	GetRun(ctx context.Context, projectID, id string) (domain.Run, error)
	UpdateRunStatus(ctx context.Context, projectID, id string, status domain.RunStatus, startedAt, finishedAt *time.Time) error
	UpdateRunProgress(ctx context.Context, projectID, id string, progress int) error
	AppendRunLog(ctx context.Context, projectID, id, line string) error
}

// ArtifactRepository manages immutable artifact rows.
type ArtifactRepository interface {
	CreateArtifact(ctx context.Context, artifact domain.Artifact) error
	GetArtifact(ctx context.Context, projectID, id string) (domain.Artifact, error)
	ListArtifacts(ctx context.Context, filter ArtifactFilter) ([]domain.Artifact, error)
	// LatestArtifactByNodeOutput returns the most recently created
	// artifact for one node's one output port across all runs.
	LatestArtifactByNodeOutput(ctx context.Context, projectID, nodeID, outputKey string) (domain.Artifact, error)
}

// CacheRepository maps derived cache keys to artifact ids.
type CacheRepository interface {
	GetCacheEntry(ctx context.Context, cacheKey string) (domain.CacheEntry, error)
	UpsertCacheEntry(ctx context.Context, cacheKey, artifactID string) error
}

// GraphRepository fetches stored graph documents.
type GraphRepository interface {
	GetGraphDocument(ctx context.Context, projectID, graphID string) ([]byte, error)
}
