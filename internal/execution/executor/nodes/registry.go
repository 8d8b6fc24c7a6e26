package nodes

import (
	"github.com/pixelflow-labs/pixelflow-go/internal/domain"
	"github.com/pixelflow-labs/pixelflow-go/internal/execution/executor"
)

// Default returns the dispatch table with every built-in executor
// registered. One entry per node type in the capability registry.
func Default() *executor.Registry {
	r := executor.NewRegistry()
	r.Register(domain.NodeInputImage, InputImage{})
	r.Register(domain.NodeGroundingDINO, GroundingDINO{})
	r.Register(domain.NodeSAM2, SAM2{})
	r.Register(domain.NodeDepth, Depth{})
	r.Register(domain.NodePointCloud, PointCloud{})
	r.Register(domain.NodeMesh, Mesh{})
	r.Register(domain.NodeExportGLTF, ExportGLTF{})
	return r
}
