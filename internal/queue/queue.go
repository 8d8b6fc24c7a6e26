// Package queue defines the job delivery contract between the API
// layer and the execution worker. Delivery is at-least-once: a
// redelivered run is safe because completed nodes resolve as cache hits.
package queue

import (
	"context"
	"errors"
	"strings"
)

// RunJob asks the worker to execute one run.
type RunJob struct {
	ProjectID    string   `json:"projectId"`
	GraphID      string   `json:"graphId"`
	RunID        string   `json:"runId"`
	StartNodeID  string   `json:"startNodeId,omitempty"`
	ForceNodeIDs []string `json:"forceNodeIds,omitempty"`
}

func (j RunJob) Validate() error {
	if strings.TrimSpace(j.ProjectID) == "" {
		return errors.New("project id is required")
	}
	if strings.TrimSpace(j.GraphID) == "" {
		return errors.New("graph id is required")
	}
	if strings.TrimSpace(j.RunID) == "" {
		return errors.New("run id is required")
	}
	return nil
}

// Handler processes one delivered job. Returning an error signals the
// transport that delivery failed and the job may be redelivered.
type Handler func(ctx context.Context, job RunJob) error

// Consumer delivers jobs to a handler until ctx is canceled.
type Consumer interface {
	Consume(ctx context.Context, handler Handler) error
}

// Publisher enqueues jobs.
type Publisher interface {
	Publish(ctx context.Context, job RunJob) error
}
