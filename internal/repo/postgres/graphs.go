package postgres

import (
	"context"
	"fmt"
	"strings"
)

type GraphStore struct {
	db DB
}

func NewGraphStore(db DB) *GraphStore {
	if db == nil {
		return nil
	}
	return &GraphStore{db: db}
}

// GetGraphDocument returns the stored document JSON; decoding and
// validation belong to the graph package.
func (s *GraphStore) GetGraphDocument(ctx context.Context, projectID, graphID string) ([]byte, error) {
	if s == nil || s.db == nil {
		return nil, fmt.Errorf("graph store not initialized")
	}
	row := s.db.QueryRowContext(
		ctx,
		`SELECT document FROM graphs WHERE project_id = $1 AND graph_id = $2`,
		strings.TrimSpace(projectID),
		strings.TrimSpace(graphID),
	)
	var document []byte
	if err := row.Scan(&document); err != nil {
		return nil, handleNotFound(err)
	}
	return document, nil
}
