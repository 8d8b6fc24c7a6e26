package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/pixelflow-labs/pixelflow-go/internal/domain"
)

type RunStore struct {
	db DB
}

func NewRunStore(db DB) *RunStore {
	if db == nil {
		return nil
	}
	return &RunStore{db: db}
}

func (s *RunStore) CreateRun(ctx context.Context, run domain.Run) error {
	if s == nil || s.db == nil {
		return fmt.Errorf("run store not initialized")
	}
	if err := run.Validate(); err != nil {
		return err
	}
	_, err := s.db.ExecContext(
		ctx,
		`INSERT INTO runs (
			run_id,
			project_id,
			graph_id,
			status,
			progress,
			logs,
			started_at,
			finished_at,
			created_at
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)`,
		strings.TrimSpace(run.ID),
		strings.TrimSpace(run.ProjectID),
		strings.TrimSpace(run.GraphID),
		string(run.Status),
		run.Progress,
		run.Logs,
		nullTime(run.StartedAt),
		nullTime(run.FinishedAt),
		normalizeTime(run.CreatedAt),
	)
	if err != nil {
		return fmt.Errorf("insert run: %w", err)
	}
	return nil
}

func (s *RunStore) GetRun(ctx context.Context, projectID, id string) (domain.Run, error) {
	if s == nil || s.db == nil {
		return domain.Run{}, fmt.Errorf("run store not initialized")
	}
	row := s.db.QueryRowContext(
		ctx,
		`SELECT run_id, project_id, graph_id, status, progress, logs, started_at, finished_at, created_at
		 FROM runs WHERE project_id = $1 AND run_id = $2`,
		strings.TrimSpace(projectID),
		strings.TrimSpace(id),
	)
	var run domain.Run
	var status string
	var startedAt, finishedAt sql.NullTime
	if err := row.Scan(
		&run.ID,
		&run.ProjectID,
		&run.GraphID,
		&status,
		&run.Progress,
		&run.Logs,
		&startedAt,
		&finishedAt,
		&run.CreatedAt,
	); err != nil {
		return domain.Run{}, handleNotFound(err)
	}
	run.Status = domain.NormalizeRunStatus(status)
	run.StartedAt = timePtr(startedAt)
	run.FinishedAt = timePtr(finishedAt)
	return run, nil
}

func (s *RunStore) UpdateRunStatus(ctx context.Context, projectID, id string, status domain.RunStatus, startedAt, finishedAt *time.Time) error {
	if s == nil || s.db == nil {
		return fmt.Errorf("run store not initialized")
	}
	if domain.NormalizeRunStatus(string(status)) == "" {
		return fmt.Errorf("invalid run status %q", status)
	}
	result, err := s.db.ExecContext(
		ctx,
		`UPDATE runs SET
			status = $3,
			started_at = COALESCE($4, started_at),
			finished_at = COALESCE($5, finished_at)
		 WHERE project_id = $1 AND run_id = $2`,
		strings.TrimSpace(projectID),
		strings.TrimSpace(id),
		string(status),
		nullTime(startedAt),
		nullTime(finishedAt),
	)
	if err != nil {
		return fmt.Errorf("update run status: %w", err)
	}
	return requireRowAffected(result, "run")
}

func (s *RunStore) UpdateRunProgress(ctx context.Context, projectID, id string, progress int) error {
	if s == nil || s.db == nil {
		return fmt.Errorf("run store not initialized")
	}
	if progress < 0 || progress > 100 {
		return fmt.Errorf("progress %d out of range", progress)
	}
	result, err := s.db.ExecContext(
		ctx,
		`UPDATE runs SET progress = $3 WHERE project_id = $1 AND run_id = $2`,
		strings.TrimSpace(projectID),
		strings.TrimSpace(id),
		progress,
	)
	if err != nil {
		return fmt.Errorf("update run progress: %w", err)
	}
	return requireRowAffected(result, "run")
}

// AppendRunLog appends one line to the run's log as a single atomic
// update; no read-modify-write on the caller's side.
func (s *RunStore) AppendRunLog(ctx context.Context, projectID, id, line string) error {
	if s == nil || s.db == nil {
		return fmt.Errorf("run store not initialized")
	}
	result, err := s.db.ExecContext(
		ctx,
		`UPDATE runs SET logs = CASE WHEN logs = '' THEN $3 ELSE logs || E'\n' || $3 END
		 WHERE project_id = $1 AND run_id = $2`,
		strings.TrimSpace(projectID),
		strings.TrimSpace(id),
		line,
	)
	if err != nil {
		return fmt.Errorf("append run log: %w", err)
	}
	return requireRowAffected(result, "run")
}

func requireRowAffected(result sql.Result, entity string) error {
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return fmt.Errorf("%s not found", entity)
	}
	return nil
}
