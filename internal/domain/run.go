package domain

import (
	"errors"
	"strings"
	"time"
)

// RunStatus is the lifecycle state of a run.
type RunStatus string

const (
	RunQueued   RunStatus = "queued"
	RunRunning  RunStatus = "running"
	RunSuccess  RunStatus = "success"
	RunError    RunStatus = "error"
	RunCanceled RunStatus = "canceled"
)

// IsTerminal reports whether the status admits no further transitions.
func (s RunStatus) IsTerminal() bool {
	switch s {
	case RunSuccess, RunError, RunCanceled:
		return true
	default:
		return false
	}
}

// NormalizeRunStatus maps free-form status values to canonical ones.
func NormalizeRunStatus(value string) RunStatus {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case string(RunQueued), "pending":
		return RunQueued
	case string(RunRunning):
		return RunRunning
	case string(RunSuccess):
		return RunSuccess
	case string(RunError), "failed":
		return RunError
	case string(RunCanceled), "cancelled":
		return RunCanceled
	default:
		return ""
	}
}

// Run is a single execution of a graph. Mutated only by the
// orchestrator; terminal once status is success, error or canceled.
type Run struct {
	ID         string
	ProjectID  string
	GraphID    string
	Status     RunStatus
	Progress   int
	Logs       string
	StartedAt  *time.Time
	FinishedAt *time.Time
	CreatedAt  time.Time
}

func (r Run) Validate() error {
	if strings.TrimSpace(r.ID) == "" {
		return errors.New("run id is required")
	}
	if strings.TrimSpace(r.ProjectID) == "" {
		return errors.New("project id is required")
	}
	if strings.TrimSpace(r.GraphID) == "" {
		return errors.New("graph id is required")
	}
	if NormalizeRunStatus(string(r.Status)) == "" {
		return errors.New("status is required")
	}
	if r.Progress < 0 || r.Progress > 100 {
		return errors.New("progress must be within 0..100")
	}
	return nil
}
