// Package plan compiles a graph document into an ordered task list.
package plan

import (
	"strings"

	"github.com/pixelflow-labs/pixelflow-go/internal/domain"
	"github.com/pixelflow-labs/pixelflow-go/internal/graph"
	"github.com/pixelflow-labs/pixelflow-go/internal/registry"
)

// Build computes the execution plan for a validated graph document.
//
// With an empty startNodeID every node is planned. Otherwise the target
// set is the transitive ancestor closure of the start node (inclusive):
// the node plus everything it depends on, leaving unrelated branches
// untouched. Tasks come out in a topologically valid order; ties among
// ready nodes break by document order, which is stable but carries no
// correctness weight since independent nodes never consume each other's
// outputs.
func Build(doc domain.GraphDocument, startNodeID string) ([]domain.ExecutionTask, error) {
	nodesByID := make(map[string]domain.Node, len(doc.Nodes))
	docIndex := make(map[string]int, len(doc.Nodes))
	for i, node := range doc.Nodes {
		nodesByID[node.ID] = node
		docIndex[node.ID] = i
	}

	target, err := targetSet(doc, nodesByID, strings.TrimSpace(startNodeID))
	if err != nil {
		return nil, err
	}

	// Only edges with both endpoints inside the target set participate.
	edges := make([]domain.Edge, 0, len(doc.Edges))
	for _, e := range doc.Edges {
		if _, ok := target[e.Source]; !ok {
			continue
		}
		if _, ok := target[e.Target]; !ok {
			continue
		}
		edges = append(edges, e)
	}

	ordered, err := topoOrder(doc, target, edges, docIndex)
	if err != nil {
		return nil, err
	}

	inEdges := make(map[string][]domain.Edge, len(target))
	for _, e := range edges {
		inEdges[e.Target] = append(inEdges[e.Target], e)
	}

	tasks := make([]domain.ExecutionTask, 0, len(ordered))
	for _, nodeID := range ordered {
		node := nodesByID[nodeID]
		bindings := make([]domain.InputBinding, 0, len(inEdges[nodeID]))
		dependsOn := make([]string, 0, len(inEdges[nodeID]))
		seen := make(map[string]struct{})
		for _, e := range inEdges[nodeID] {
			sourceHandle := e.SourceHandle
			if sourceHandle == "" {
				sourceHandle = registry.DefaultOutput(nodesByID[e.Source].Type)
			}
			targetHandle := e.TargetHandle
			if targetHandle == "" {
				targetHandle = registry.DefaultInput(node.Type)
			}
			bindings = append(bindings, domain.InputBinding{
				InputID:        targetHandle,
				SourceNodeID:   e.Source,
				SourceOutputID: sourceHandle,
			})
			if _, dup := seen[e.Source]; !dup {
				seen[e.Source] = struct{}{}
				dependsOn = append(dependsOn, e.Source)
			}
		}
		tasks = append(tasks, domain.ExecutionTask{
			NodeID:        nodeID,
			NodeType:      node.Type,
			Params:        registry.MergedParams(node.Type, node.Data.Params),
			InputBindings: bindings,
			DependsOn:     dependsOn,
		})
	}
	return tasks, nil
}

// targetSet returns all nodes, or the ancestor closure of startNodeID.
func targetSet(doc domain.GraphDocument, nodesByID map[string]domain.Node, startNodeID string) (map[string]struct{}, error) {
	target := make(map[string]struct{}, len(doc.Nodes))
	if startNodeID == "" {
		for id := range nodesByID {
			target[id] = struct{}{}
		}
		return target, nil
	}
	if _, ok := nodesByID[startNodeID]; !ok {
		return nil, graph.Structuralf("start node %q not found in graph", startNodeID)
	}

	parents := make(map[string][]string)
	for _, e := range doc.Edges {
		parents[e.Target] = append(parents[e.Target], e.Source)
	}

	queue := []string{startNodeID}
	target[startNodeID] = struct{}{}
	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]
		for _, parent := range parents[current] {
			if _, ok := target[parent]; ok {
				continue
			}
			target[parent] = struct{}{}
			queue = append(queue, parent)
		}
	}
	return target, nil
}

// topoOrder runs Kahn's algorithm over the restricted edge set. A count
// mismatch means a cycle (or an unresolvable inbound edge) and fails
// loudly rather than silently truncating the plan.
func topoOrder(doc domain.GraphDocument, target map[string]struct{}, edges []domain.Edge, docIndex map[string]int) ([]string, error) {
	inDegree := make(map[string]int, len(target))
	adj := make(map[string][]string, len(target))
	for id := range target {
		inDegree[id] = 0
	}
	for _, e := range edges {
		adj[e.Source] = append(adj[e.Source], e.Target)
		inDegree[e.Target]++
	}

	ready := make([]string, 0, len(target))
	for _, node := range doc.Nodes {
		if _, ok := target[node.ID]; !ok {
			continue
		}
		if inDegree[node.ID] == 0 {
			ready = append(ready, node.ID)
		}
	}

	ordered := make([]string, 0, len(target))
	for len(ready) > 0 {
		id := ready[0]
		ready = ready[1:]
		ordered = append(ordered, id)
		for _, next := range adj[id] {
			inDegree[next]--
			if inDegree[next] == 0 {
				ready = insertByDocOrder(ready, next, docIndex)
			}
		}
	}

	if len(ordered) != len(target) {
		return nil, graph.Structuralf("cyclic or inconsistent graph: ordered %d of %d nodes", len(ordered), len(target))
	}
	return ordered, nil
}

func insertByDocOrder(ready []string, id string, docIndex map[string]int) []string {
	pos := len(ready)
	for i, existing := range ready {
		if docIndex[id] < docIndex[existing] {
			pos = i
			break
		}
	}
	ready = append(ready, "")
	copy(ready[pos+1:], ready[pos:])
	ready[pos] = id
	return ready
}
