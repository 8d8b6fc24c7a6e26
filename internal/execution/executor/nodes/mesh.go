package nodes

import (
	"context"
	"fmt"
	"strings"

	"github.com/pixelflow-labs/pixelflow-go/internal/domain"
	"github.com/pixelflow-labs/pixelflow-go/internal/execution/executor"
	"github.com/pixelflow-labs/pixelflow-go/internal/registry"
)

// Mesh reconstructs a triangle mesh (Wavefront OBJ) from a point cloud.
type Mesh struct{}

func (Mesh) Execute(ctx context.Context, ec *executor.Context) (executor.Result, error) {
	points, ok := ec.Input(registry.PortPoints)
	if !ok {
		return executor.Result{}, fmt.Errorf("node %s: points input is required", ec.NodeID)
	}
	method := paramString(ec.Params, "method")
	octreeDepth := paramInt(ec.Params, "depth", 8)

	s := seed(string(domain.NodeMesh), points.SHA256, paramsFingerprint(ec.Params))

	vertexCount := 4 + int(s[2])%8
	var sb strings.Builder
	fmt.Fprintf(&sb, "# reconstructed mesh method=%s depth=%d\n", method, octreeDepth)
	for i := 0; i < vertexCount; i++ {
		fmt.Fprintf(&sb, "v %.6f %.6f %.6f\n",
			seedFloat(s, i*3), seedFloat(s, i*3+1), seedFloat(s, i*3+2))
	}
	faceCount := vertexCount - 2
	for i := 0; i < faceCount; i++ {
		fmt.Fprintf(&sb, "f %d %d %d\n", 1, i+2, i+3)
	}

	return executor.Result{
		Outputs: []executor.Output{{
			OutputID: registry.PortMesh,
			Kind:     domain.KindMesh,
			MimeType: "model/obj",
			Data:     []byte(sb.String()),
			Meta: domain.Metadata{
				"method":      method,
				"vertexCount": vertexCount,
				"faceCount":   faceCount,
			},
		}},
	}, nil
}
