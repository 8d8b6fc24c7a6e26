package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/pixelflow-labs/pixelflow-go/internal/domain"
	"github.com/pixelflow-labs/pixelflow-go/internal/repo"
)

type ArtifactStore struct {
	db DB
}

func NewArtifactStore(db DB) *ArtifactStore {
	if db == nil {
		return nil
	}
	return &ArtifactStore{db: db}
}

func (s *ArtifactStore) CreateArtifact(ctx context.Context, artifact domain.Artifact) error {
	if s == nil || s.db == nil {
		return fmt.Errorf("artifact store not initialized")
	}
	if err := artifact.Validate(); err != nil {
		return err
	}
	metaJSON, err := encodeMetadata(artifact.Meta)
	if err != nil {
		return fmt.Errorf("encode meta: %w", err)
	}
	_, err = s.db.ExecContext(
		ctx,
		`INSERT INTO artifacts (
			artifact_id,
			run_id,
			project_id,
			node_id,
			kind,
			mime_type,
			size_bytes,
			sha256,
			storage_key,
			preview_key,
			meta,
			created_at
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)`,
		strings.TrimSpace(artifact.ID),
		strings.TrimSpace(artifact.RunID),
		strings.TrimSpace(artifact.ProjectID),
		strings.TrimSpace(artifact.NodeID),
		string(artifact.Kind),
		artifact.MimeType,
		artifact.SizeBytes,
		strings.TrimSpace(artifact.SHA256),
		strings.TrimSpace(artifact.StorageKey),
		nullIfEmpty(artifact.PreviewKey),
		metaJSON,
		normalizeTime(artifact.CreatedAt),
	)
	if err != nil {
		return fmt.Errorf("insert artifact: %w", err)
	}
	return nil
}

const artifactColumns = `artifact_id, run_id, project_id, node_id, kind, mime_type,
	size_bytes, sha256, storage_key, preview_key, meta, created_at`

func (s *ArtifactStore) GetArtifact(ctx context.Context, projectID, id string) (domain.Artifact, error) {
	if s == nil || s.db == nil {
		return domain.Artifact{}, fmt.Errorf("artifact store not initialized")
	}
	row := s.db.QueryRowContext(
		ctx,
		`SELECT `+artifactColumns+` FROM artifacts WHERE project_id = $1 AND artifact_id = $2`,
		strings.TrimSpace(projectID),
		strings.TrimSpace(id),
	)
	return scanArtifact(row)
}

func (s *ArtifactStore) ListArtifacts(ctx context.Context, filter repo.ArtifactFilter) ([]domain.Artifact, error) {
	if s == nil || s.db == nil {
		return nil, fmt.Errorf("artifact store not initialized")
	}
	query := `SELECT ` + artifactColumns + ` FROM artifacts WHERE project_id = $1`
	args := []any{strings.TrimSpace(filter.ProjectID)}
	if filter.RunID != "" {
		args = append(args, filter.RunID)
		query += fmt.Sprintf(" AND run_id = $%d", len(args))
	}
	if filter.NodeID != "" {
		args = append(args, filter.NodeID)
		query += fmt.Sprintf(" AND node_id = $%d", len(args))
	}
	if filter.Kind != "" {
		args = append(args, string(filter.Kind))
		query += fmt.Sprintf(" AND kind = $%d", len(args))
	}
	query += " ORDER BY created_at DESC"
	if filter.Limit > 0 {
		args = append(args, filter.Limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list artifacts: %w", err)
	}
	defer rows.Close()

	var out []domain.Artifact
	for rows.Next() {
		artifact, err := scanArtifact(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, artifact)
	}
	return out, rows.Err()
}

// LatestArtifactByNodeOutput keys on the outputKey recorded in the
// artifact meta; cross-run reuse depends on this lookup being ordered
// by creation time, newest first.
func (s *ArtifactStore) LatestArtifactByNodeOutput(ctx context.Context, projectID, nodeID, outputKey string) (domain.Artifact, error) {
	if s == nil || s.db == nil {
		return domain.Artifact{}, fmt.Errorf("artifact store not initialized")
	}
	row := s.db.QueryRowContext(
		ctx,
		`SELECT `+artifactColumns+` FROM artifacts
		 WHERE project_id = $1 AND node_id = $2 AND meta->>'outputKey' = $3
		 ORDER BY created_at DESC
		 LIMIT 1`,
		strings.TrimSpace(projectID),
		strings.TrimSpace(nodeID),
		strings.TrimSpace(outputKey),
	)
	return scanArtifact(row)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanArtifact(row rowScanner) (domain.Artifact, error) {
	var artifact domain.Artifact
	var kind string
	var previewKey sql.NullString
	var metaRaw []byte
	if err := row.Scan(
		&artifact.ID,
		&artifact.RunID,
		&artifact.ProjectID,
		&artifact.NodeID,
		&kind,
		&artifact.MimeType,
		&artifact.SizeBytes,
		&artifact.SHA256,
		&artifact.StorageKey,
		&previewKey,
		&metaRaw,
		&artifact.CreatedAt,
	); err != nil {
		return domain.Artifact{}, handleNotFound(err)
	}
	artifact.Kind = domain.ArtifactKind(kind)
	if previewKey.Valid {
		artifact.PreviewKey = previewKey.String
	}
	meta, err := decodeMetadata(metaRaw)
	if err != nil {
		return domain.Artifact{}, fmt.Errorf("decode meta: %w", err)
	}
	artifact.Meta = meta
	return artifact, nil
}
