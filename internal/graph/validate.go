package graph

import (
	"strings"

	"github.com/pixelflow-labs/pixelflow-go/internal/domain"
	"github.com/pixelflow-labs/pixelflow-go/internal/registry"
)

// Validate rejects structurally invalid documents: duplicate ids,
// dangling edges, unknown node types or handles, and parameters that
// fail the node type's schema. Parameter validation happens here, at
// plan time, so executor calls never see malformed params.
func Validate(doc domain.GraphDocument) error {
	if len(doc.Nodes) == 0 {
		return Structuralf("graph has no nodes")
	}

	nodesByID := make(map[string]domain.Node, len(doc.Nodes))
	for _, node := range doc.Nodes {
		id := strings.TrimSpace(node.ID)
		if id == "" {
			return Structuralf("node with empty id")
		}
		if _, dup := nodesByID[id]; dup {
			return Structuralf("duplicate node id %q", id)
		}
		spec, ok := registry.Spec(node.Type)
		if !ok {
			return Structuralf("node %q has unknown type %q", id, node.Type)
		}
		if err := registry.ValidateParams(spec.Type, registry.MergedParams(spec.Type, node.Data.Params)); err != nil {
			return Structuralf("node %q: %v", id, err)
		}
		nodesByID[id] = node
	}

	edgeIDs := make(map[string]struct{}, len(doc.Edges))
	for _, edge := range doc.Edges {
		id := strings.TrimSpace(edge.ID)
		if id == "" {
			return Structuralf("edge with empty id")
		}
		if _, dup := edgeIDs[id]; dup {
			return Structuralf("duplicate edge id %q", id)
		}
		edgeIDs[id] = struct{}{}

		source, ok := nodesByID[edge.Source]
		if !ok {
			return Structuralf("edge %q references missing source node %q", id, edge.Source)
		}
		target, ok := nodesByID[edge.Target]
		if !ok {
			return Structuralf("edge %q references missing target node %q", id, edge.Target)
		}

		sourceSpec, _ := registry.Spec(source.Type)
		if edge.SourceHandle != "" && !sourceSpec.HasOutput(edge.SourceHandle) {
			return Structuralf("edge %q: node %q has no output port %q", id, edge.Source, edge.SourceHandle)
		}
		if edge.SourceHandle == "" && len(sourceSpec.Outputs) == 0 {
			return Structuralf("edge %q: node %q declares no outputs", id, edge.Source)
		}
		targetSpec, _ := registry.Spec(target.Type)
		if edge.TargetHandle != "" && !targetSpec.HasInput(edge.TargetHandle) {
			return Structuralf("edge %q: node %q has no input port %q", id, edge.Target, edge.TargetHandle)
		}
		if edge.TargetHandle == "" && len(targetSpec.Inputs) == 0 {
			return Structuralf("edge %q: node %q declares no inputs", id, edge.Target)
		}
	}
	return nil
}
