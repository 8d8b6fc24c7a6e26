package domain

// NodeType identifies one kind of processing node. The set is closed:
// adding a type means registering a spec entry and an executor branch.
type NodeType string

const (
	NodeInputImage    NodeType = "input.image"
	NodeGroundingDINO NodeType = "model.groundingdino"
	NodeSAM2          NodeType = "model.sam2"
	NodeDepth         NodeType = "model.depth"
	NodePointCloud    NodeType = "geometry.pointcloud"
	NodeMesh          NodeType = "geometry.mesh"
	NodeExportGLTF    NodeType = "export.gltf"
)

// GraphDocument is the serialized node graph produced by the canvas.
// Viewport is UI state and is ignored by the engine.
type GraphDocument struct {
	Nodes    []Node   `json:"nodes" yaml:"nodes"`
	Edges    []Edge   `json:"edges" yaml:"edges"`
	Viewport Viewport `json:"viewport" yaml:"viewport"`
}

type Node struct {
	ID       string   `json:"id" yaml:"id"`
	Type     NodeType `json:"type" yaml:"type"`
	Position Position `json:"position" yaml:"position"`
	Data     NodeData `json:"data" yaml:"data"`
}

type NodeData struct {
	Params map[string]any `json:"params" yaml:"params"`
	// Status is the canvas's cache of the last-known runtime state.
	// The engine never reads it.
	Status string `json:"status,omitempty" yaml:"status,omitempty"`
}

// Edge binds the target node's input port to the source node's output
// port. Empty handles default to the first declared port of the
// respective node type.
type Edge struct {
	ID           string `json:"id" yaml:"id"`
	Source       string `json:"source" yaml:"source"`
	Target       string `json:"target" yaml:"target"`
	SourceHandle string `json:"sourceHandle,omitempty" yaml:"sourceHandle,omitempty"`
	TargetHandle string `json:"targetHandle,omitempty" yaml:"targetHandle,omitempty"`
}

type Position struct {
	X float64 `json:"x" yaml:"x"`
	Y float64 `json:"y" yaml:"y"`
}

type Viewport struct {
	X    float64 `json:"x" yaml:"x"`
	Y    float64 `json:"y" yaml:"y"`
	Zoom float64 `json:"zoom" yaml:"zoom"`
}

// ExecutionTask is one planned node execution. Produced fresh per
// planning call and never mutated afterwards.
type ExecutionTask struct {
	NodeID        string
	NodeType      NodeType
	Params        map[string]any
	InputBindings []InputBinding
	DependsOn     []string
}

// InputBinding routes one upstream output into one input port.
type InputBinding struct {
	InputID        string
	SourceNodeID   string
	SourceOutputID string
}
