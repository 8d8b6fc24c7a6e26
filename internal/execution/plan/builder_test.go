package plan

import (
	"errors"
	"reflect"
	"testing"

	"github.com/pixelflow-labs/pixelflow-go/internal/domain"
	"github.com/pixelflow-labs/pixelflow-go/internal/graph"
)

// pipelineDoc builds the canonical test graph:
//
//	in -> dino -> sam        (detection feeding guided segmentation)
//	in -> sam                (direct image edge)
//	in -> depth -> cloud     (independent geometry branch)
//	in -> cloud
func pipelineDoc() domain.GraphDocument {
	return domain.GraphDocument{
		Nodes: []domain.Node{
			{ID: "in", Type: domain.NodeInputImage},
			{ID: "dino", Type: domain.NodeGroundingDINO},
			{ID: "sam", Type: domain.NodeSAM2},
			{ID: "depth", Type: domain.NodeDepth},
			{ID: "cloud", Type: domain.NodePointCloud},
		},
		Edges: []domain.Edge{
			{ID: "e1", Source: "in", Target: "dino"},
			{ID: "e2", Source: "dino", Target: "sam", SourceHandle: "boxes", TargetHandle: "boxes"},
			{ID: "e3", Source: "in", Target: "sam", TargetHandle: "image"},
			{ID: "e4", Source: "in", Target: "depth"},
			{ID: "e5", Source: "in", Target: "cloud", TargetHandle: "image"},
			{ID: "e6", Source: "depth", Target: "cloud", TargetHandle: "depth"},
		},
	}
}

func taskIDs(tasks []domain.ExecutionTask) []string {
	out := make([]string, 0, len(tasks))
	for _, task := range tasks {
		out = append(out, task.NodeID)
	}
	return out
}

func indexOf(ids []string, id string) int {
	for i, v := range ids {
		if v == id {
			return i
		}
	}
	return -1
}

func TestBuildFullGraphTopologicalOrder(t *testing.T) {
	tasks, err := Build(pipelineDoc(), "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(tasks) != 5 {
		t.Fatalf("expected 5 tasks, got %d", len(tasks))
	}
	ids := taskIDs(tasks)
	deps := map[string][]string{
		"dino":  {"in"},
		"sam":   {"in", "dino"},
		"depth": {"in"},
		"cloud": {"in", "depth"},
	}
	for node, ancestors := range deps {
		for _, ancestor := range ancestors {
			if indexOf(ids, ancestor) > indexOf(ids, node) {
				t.Fatalf("%s scheduled before its dependency %s: %v", node, ancestor, ids)
			}
		}
	}
}

func TestBuildIsDeterministic(t *testing.T) {
	first, err := Build(pipelineDoc(), "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	second, err := Build(pipelineDoc(), "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !reflect.DeepEqual(taskIDs(first), taskIDs(second)) {
		t.Fatalf("expected deterministic order, got %v vs %v", taskIDs(first), taskIDs(second))
	}
}

func TestBuildAncestorClosure(t *testing.T) {
	tasks, err := Build(pipelineDoc(), "sam")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	got := taskIDs(tasks)
	want := map[string]struct{}{"in": {}, "dino": {}, "sam": {}}
	if len(got) != len(want) {
		t.Fatalf("expected ancestor closure %v, got %v", want, got)
	}
	for _, id := range got {
		if _, ok := want[id]; !ok {
			t.Fatalf("node %s is not an ancestor of sam", id)
		}
	}
	if got[len(got)-1] != "sam" {
		t.Fatalf("start node must come last, got %v", got)
	}
}

func TestBuildUnknownStartNode(t *testing.T) {
	_, err := Build(pipelineDoc(), "nope")
	var structural *graph.StructuralError
	if !errors.As(err, &structural) {
		t.Fatalf("expected structural error, got %v", err)
	}
}

func TestBuildCycleFails(t *testing.T) {
	doc := pipelineDoc()
	doc.Edges = append(doc.Edges, domain.Edge{ID: "back", Source: "sam", Target: "dino", TargetHandle: "image"})
	_, err := Build(doc, "")
	var structural *graph.StructuralError
	if !errors.As(err, &structural) {
		t.Fatalf("expected structural error for cycle, got %v", err)
	}
}

func TestBuildCycleNeverTruncates(t *testing.T) {
	doc := pipelineDoc()
	doc.Edges = append(doc.Edges, domain.Edge{ID: "back", Source: "cloud", Target: "depth", TargetHandle: "image"})
	tasks, err := Build(doc, "")
	if err == nil {
		t.Fatalf("expected error, got %d tasks", len(tasks))
	}
	if tasks != nil {
		t.Fatalf("expected no partial plan, got %v", taskIDs(tasks))
	}
}

func TestBuildHandleDefaulting(t *testing.T) {
	tasks, err := Build(pipelineDoc(), "dino")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var dino domain.ExecutionTask
	for _, task := range tasks {
		if task.NodeID == "dino" {
			dino = task
		}
	}
	if len(dino.InputBindings) != 1 {
		t.Fatalf("expected one binding, got %v", dino.InputBindings)
	}
	binding := dino.InputBindings[0]
	// e1 declares no handles: source defaults to input.image's first
	// output, target to groundingdino's first input.
	if binding.SourceOutputID != "image" || binding.InputID != "image" {
		t.Fatalf("handle defaulting failed: %+v", binding)
	}
}

func TestBuildParamsOverlayDefaults(t *testing.T) {
	doc := pipelineDoc()
	doc.Nodes[1].Data.Params = map[string]any{"prompt": "cat"}
	tasks, err := Build(doc, "dino")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for _, task := range tasks {
		if task.NodeID != "dino" {
			continue
		}
		if task.Params["prompt"] != "cat" {
			t.Fatalf("expected prompt override, got %v", task.Params)
		}
		if task.Params["boxThreshold"] != 0.3 {
			t.Fatalf("expected default boxThreshold, got %v", task.Params)
		}
	}
}

func TestBuildSubgraphExcludesUnrelatedBranch(t *testing.T) {
	tasks, err := Build(pipelineDoc(), "depth")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for _, task := range tasks {
		if task.NodeID == "dino" || task.NodeID == "sam" || task.NodeID == "cloud" {
			t.Fatalf("unrelated node %s planned: %v", task.NodeID, taskIDs(tasks))
		}
	}
}
