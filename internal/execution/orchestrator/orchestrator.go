// Package orchestrator drives a run through its state machine:
// queued -> running -> success | error | canceled.
//
// Tasks within a run execute sequentially in topological order. A
// node's outputs become visible to downstream tasks only after every
// output is persisted and its cache entry written, so partial artifacts
// never leak. Cancellation is polled at task boundaries, never
// mid-executor-call.
package orchestrator

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/pixelflow-labs/pixelflow-go/internal/domain"
	"github.com/pixelflow-labs/pixelflow-go/internal/execution/cachekey"
	"github.com/pixelflow-labs/pixelflow-go/internal/execution/executor"
	"github.com/pixelflow-labs/pixelflow-go/internal/execution/plan"
	"github.com/pixelflow-labs/pixelflow-go/internal/graph"
	"github.com/pixelflow-labs/pixelflow-go/internal/queue"
	"github.com/pixelflow-labs/pixelflow-go/internal/registry"
	"github.com/pixelflow-labs/pixelflow-go/internal/repo"
	"github.com/pixelflow-labs/pixelflow-go/internal/storage/objectstore"
)

// ErrRunCanceled marks the cooperative cancellation path. It maps the
// run to canceled instead of error.
var ErrRunCanceled = errors.New("run canceled")

// MissingInputError reports a required input port left unbound.
type MissingInputError struct {
	NodeID string
	Port   string
}

func (e *MissingInputError) Error() string {
	return fmt.Sprintf("missing required input %q on node %q", e.Port, e.NodeID)
}

type Orchestrator struct {
	runs      repo.RunRepository
	graphs    repo.GraphRepository
	artifacts repo.ArtifactRepository
	cache     repo.CacheRepository
	store     objectstore.Store
	executors *executor.Registry
	logger    *slog.Logger
	now       func() time.Time
	newID     func() string
}

func New(
	runs repo.RunRepository,
	graphs repo.GraphRepository,
	artifacts repo.ArtifactRepository,
	cache repo.CacheRepository,
	store objectstore.Store,
	executors *executor.Registry,
	logger *slog.Logger,
) *Orchestrator {
	if runs == nil || graphs == nil || artifacts == nil || cache == nil || store == nil || executors == nil {
		return nil
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Orchestrator{
		runs:      runs,
		graphs:    graphs,
		artifacts: artifacts,
		cache:     cache,
		store:     store,
		executors: executors,
		logger:    logger,
		now:       time.Now,
		newID:     uuid.NewString,
	}
}

// Execute processes one delivered run job end to end. Run-level
// failures are absorbed into the run's terminal status and log; only
// infrastructure errors before the run row is touched propagate, so
// the queue redelivers exactly the jobs where redelivery can help.
func (o *Orchestrator) Execute(ctx context.Context, job queue.RunJob) error {
	if err := job.Validate(); err != nil {
		return err
	}
	run, err := o.runs.GetRun(ctx, job.ProjectID, job.RunID)
	if err != nil {
		return fmt.Errorf("fetch run: %w", err)
	}
	if run.Status.IsTerminal() {
		o.logger.Info("run already terminal, skipping", "run_id", job.RunID, "status", run.Status)
		return nil
	}

	started := o.now().UTC()
	if err := o.runs.UpdateRunStatus(ctx, job.ProjectID, job.RunID, domain.RunRunning, &started, nil); err != nil {
		return fmt.Errorf("mark running: %w", err)
	}
	o.appendLog(ctx, job, "Run started")
	o.logger.Info("run started", "run_id", job.RunID, "project_id", job.ProjectID, "graph_id", job.GraphID)

	runErr := o.executeRun(ctx, job)

	finished := o.now().UTC()
	switch {
	case runErr == nil:
		if err := o.runs.UpdateRunProgress(ctx, job.ProjectID, job.RunID, 100); err != nil {
			return err
		}
		if err := o.runs.UpdateRunStatus(ctx, job.ProjectID, job.RunID, domain.RunSuccess, nil, &finished); err != nil {
			return err
		}
		o.logger.Info("run succeeded", "run_id", job.RunID)
		return nil
	case errors.Is(runErr, ErrRunCanceled):
		o.appendLog(ctx, job, "ERROR: "+runErr.Error())
		if err := o.runs.UpdateRunStatus(ctx, job.ProjectID, job.RunID, domain.RunCanceled, nil, &finished); err != nil {
			return err
		}
		o.logger.Info("run canceled", "run_id", job.RunID)
		return nil
	default:
		o.appendLog(ctx, job, "ERROR: "+runErr.Error())
		if err := o.runs.UpdateRunStatus(ctx, job.ProjectID, job.RunID, domain.RunError, nil, &finished); err != nil {
			return err
		}
		o.logger.Error("run failed", "run_id", job.RunID, "error", runErr)
		return nil
	}
}

func (o *Orchestrator) executeRun(ctx context.Context, job queue.RunJob) error {
	raw, err := o.graphs.GetGraphDocument(ctx, job.ProjectID, job.GraphID)
	if err != nil {
		return fmt.Errorf("fetch graph %s: %w", job.GraphID, err)
	}
	doc, err := graph.Decode(raw)
	if err != nil {
		return err
	}
	if err := graph.Validate(doc); err != nil {
		return err
	}
	tasks, err := plan.Build(doc, job.StartNodeID)
	if err != nil {
		return err
	}

	force := make(map[string]bool, len(job.ForceNodeIDs))
	for _, id := range job.ForceNodeIDs {
		force[id] = true
	}

	produced := make(map[string]map[string]domain.Artifact, len(tasks))
	total := len(tasks)
	for i, task := range tasks {
		// Cancellation checkpoint: an external cancel takes effect at
		// the next task boundary.
		current, err := o.runs.GetRun(ctx, job.ProjectID, job.RunID)
		if err != nil {
			return fmt.Errorf("re-read run: %w", err)
		}
		if current.Status == domain.RunCanceled {
			return ErrRunCanceled
		}

		if err := o.runTask(ctx, job, task, produced, force[task.NodeID]); err != nil {
			return err
		}

		progress := int(math.Round(100 * float64(i+1) / float64(total)))
		if err := o.runs.UpdateRunProgress(ctx, job.ProjectID, job.RunID, progress); err != nil {
			return fmt.Errorf("update progress: %w", err)
		}
	}
	return nil
}

func (o *Orchestrator) runTask(ctx context.Context, job queue.RunJob, task domain.ExecutionTask, produced map[string]map[string]domain.Artifact, forced bool) error {
	spec, ok := registry.Spec(task.NodeType)
	if !ok {
		return graph.Structuralf("node %q has unknown type %q", task.NodeID, task.NodeType)
	}
	ex, ok := o.executors.Lookup(task.NodeType)
	if !ok {
		return fmt.Errorf("no executor registered for node type %q", task.NodeType)
	}

	inputs, err := o.resolveInputs(ctx, job, task, produced)
	if err != nil {
		return err
	}

	ec := &executor.Context{
		ProjectID: job.ProjectID,
		RunID:     job.RunID,
		NodeID:    task.NodeID,
		NodeType:  task.NodeType,
		Params:    task.Params,
		Inputs:    inputs,
		Load:      o.store.Get,
	}
	if resolver, ok := ex.(executor.ModeResolver); ok {
		resolver.ResolveMode(ec)
	}

	for _, port := range spec.Inputs {
		if port.Required && len(ec.Inputs[port.ID]) == 0 {
			return &MissingInputError{NodeID: task.NodeID, Port: port.ID}
		}
	}

	groups := make(map[string][]cachekey.HashGroup, len(ec.Inputs))
	for portID, refs := range ec.Inputs {
		for _, ref := range refs {
			groups[portID] = append(groups[portID], cachekey.HashGroup{ArtifactID: ref.ArtifactID, SHA256: ref.SHA256})
		}
	}
	hashes := cachekey.SortHashGroups(spec.InputIDs(), groups)
	baseKey, err := cachekey.BaseKey(task.NodeType, task.Params, hashes, ec.Mode)
	if err != nil {
		return fmt.Errorf("node %s: cache key: %w", task.NodeID, err)
	}
	outKeys := make(map[string]string, len(spec.Outputs))
	for _, outputID := range spec.OutputIDs() {
		outKeys[outputID] = cachekey.OutputKey(baseKey, outputID)
	}

	mode := ec.Mode
	if mode == "" {
		mode = cachekey.ModeDefault
	}

	if !forced {
		cached, allHit, err := o.lookupCached(ctx, job.ProjectID, spec, outKeys)
		if err != nil {
			return err
		}
		if allHit {
			produced[task.NodeID] = cached
			o.appendLog(ctx, job, fmt.Sprintf("%s cache-hit mode=%s outputs=%s",
				task.NodeID, mode, strings.Join(spec.OutputIDs(), ",")))
			return nil
		}
	}

	result, err := ex.Execute(ctx, ec)
	if err != nil {
		return err
	}
	warnings := mergeWarnings(ec.Warnings, result.Warnings)
	if result.Mode != "" {
		mode = result.Mode
	}

	outputs := make(map[string]domain.Artifact, len(result.Outputs))
	producedIDs := make([]string, 0, len(result.Outputs))
	createdAt := o.now().UTC()
	for _, out := range result.Outputs {
		if !spec.HasOutput(out.OutputID) {
			return fmt.Errorf("node %s produced undeclared output %q", task.NodeID, out.OutputID)
		}
		artifact, err := o.persistOutput(ctx, job, task, out, createdAt)
		if err != nil {
			return err
		}
		if err := o.cache.UpsertCacheEntry(ctx, outKeys[out.OutputID], artifact.ID); err != nil {
			return fmt.Errorf("node %s: cache upsert: %w", task.NodeID, err)
		}
		outputs[out.OutputID] = artifact
		producedIDs = append(producedIDs, out.OutputID)
	}
	produced[task.NodeID] = outputs

	line := fmt.Sprintf("%s executed mode=%s outputs=%s", task.NodeID, mode, strings.Join(producedIDs, ","))
	if len(warnings) > 0 {
		line += " warnings=" + strings.Join(warnings, " | ")
	}
	o.appendLog(ctx, job, line)
	return nil
}

// resolveInputs binds each task input from this run's already-produced
// outputs, falling back to the most recent historical artifact for the
// (node, output) pair so partial reruns reuse upstream work.
func (o *Orchestrator) resolveInputs(ctx context.Context, job queue.RunJob, task domain.ExecutionTask, produced map[string]map[string]domain.Artifact) (map[string][]executor.InputRef, error) {
	inputs := make(map[string][]executor.InputRef, len(task.InputBindings))
	for _, binding := range task.InputBindings {
		var artifact domain.Artifact
		if outputs, ok := produced[binding.SourceNodeID]; ok {
			if a, ok := outputs[binding.SourceOutputID]; ok {
				artifact = a
			}
		}
		if artifact.ID == "" {
			latest, err := o.artifacts.LatestArtifactByNodeOutput(ctx, job.ProjectID, binding.SourceNodeID, binding.SourceOutputID)
			if errors.Is(err, repo.ErrNotFound) {
				continue // leave the port unbound; the required check decides
			}
			if err != nil {
				return nil, fmt.Errorf("resolve input %s/%s: %w", binding.SourceNodeID, binding.SourceOutputID, err)
			}
			artifact = latest
		}
		inputs[binding.InputID] = append(inputs[binding.InputID], executor.InputRef{
			ArtifactID: artifact.ID,
			NodeID:     binding.SourceNodeID,
			OutputID:   binding.SourceOutputID,
			Kind:       artifact.Kind,
			SHA256:     artifact.SHA256,
			MimeType:   artifact.MimeType,
			StorageKey: artifact.StorageKey,
			SizeBytes:  artifact.SizeBytes,
			Meta:       artifact.Meta,
		})
	}
	for portID := range inputs {
		refs := inputs[portID]
		sort.Slice(refs, func(i, j int) bool { return refs[i].ArtifactID < refs[j].ArtifactID })
	}
	return inputs, nil
}

// lookupCached reports a hit only when every declared output port has a
// valid cache entry pointing at an existing artifact; a dangling entry
// for one output forces recomputation of the whole node.
func (o *Orchestrator) lookupCached(ctx context.Context, projectID string, spec registry.NodeSpec, outKeys map[string]string) (map[string]domain.Artifact, bool, error) {
	cached := make(map[string]domain.Artifact, len(outKeys))
	for _, outputID := range spec.OutputIDs() {
		entry, err := o.cache.GetCacheEntry(ctx, outKeys[outputID])
		if errors.Is(err, repo.ErrNotFound) {
			return nil, false, nil
		}
		if err != nil {
			return nil, false, fmt.Errorf("cache lookup: %w", err)
		}
		artifact, err := o.artifacts.GetArtifact(ctx, projectID, entry.ArtifactID)
		if errors.Is(err, repo.ErrNotFound) {
			return nil, false, nil
		}
		if err != nil {
			return nil, false, fmt.Errorf("cached artifact %s: %w", entry.ArtifactID, err)
		}
		cached[outputID] = artifact
	}
	return cached, true, nil
}

func (o *Orchestrator) persistOutput(ctx context.Context, job queue.RunJob, task domain.ExecutionTask, out executor.Output, createdAt time.Time) (domain.Artifact, error) {
	spec, _ := registry.Spec(task.NodeType)
	artifactID := o.newID()
	ext := objectstore.ExtForMime(out.MimeType)
	storageKey := objectstore.ArtifactKey(job.ProjectID, job.RunID, task.NodeID, artifactID, ext)
	if err := o.store.Put(ctx, storageKey, out.Data, out.MimeType); err != nil {
		return domain.Artifact{}, fmt.Errorf("node %s: store output %s: %w", task.NodeID, out.OutputID, err)
	}
	previewKey := ""
	if len(out.Preview) > 0 {
		previewKey = objectstore.PreviewKey(job.ProjectID, job.RunID, task.NodeID, artifactID, ext)
		if err := o.store.Put(ctx, previewKey, out.Preview, out.MimeType); err != nil {
			return domain.Artifact{}, fmt.Errorf("node %s: store preview %s: %w", task.NodeID, out.OutputID, err)
		}
	}

	sum := sha256.Sum256(out.Data)
	meta := out.Meta.Clone()
	meta[domain.MetaOutputKey] = out.OutputID
	meta[domain.MetaHidden] = out.Hidden || spec.OutputHidden(out.OutputID)

	artifact := domain.Artifact{
		ID:         artifactID,
		RunID:      job.RunID,
		ProjectID:  job.ProjectID,
		NodeID:     task.NodeID,
		Kind:       out.Kind,
		MimeType:   out.MimeType,
		SizeBytes:  int64(len(out.Data)),
		SHA256:     hex.EncodeToString(sum[:]),
		StorageKey: storageKey,
		PreviewKey: previewKey,
		Meta:       meta,
		CreatedAt:  createdAt,
	}
	if err := o.artifacts.CreateArtifact(ctx, artifact); err != nil {
		return domain.Artifact{}, fmt.Errorf("node %s: persist artifact: %w", task.NodeID, err)
	}
	return artifact, nil
}

func (o *Orchestrator) appendLog(ctx context.Context, job queue.RunJob, text string) {
	line := fmt.Sprintf("[%s] %s", o.now().UTC().Format(time.RFC3339), text)
	if err := o.runs.AppendRunLog(ctx, job.ProjectID, job.RunID, line); err != nil {
		o.logger.Error("append run log failed", "run_id", job.RunID, "error", err)
	}
}

func mergeWarnings(groups ...[]string) []string {
	seen := make(map[string]struct{})
	var out []string
	for _, group := range groups {
		for _, w := range group {
			if _, dup := seen[w]; dup {
				continue
			}
			seen[w] = struct{}{}
			out = append(out, w)
		}
	}
	return out
}
