package nodes

import (
	"context"
	"fmt"
	"strings"

	"github.com/pixelflow-labs/pixelflow-go/internal/domain"
	"github.com/pixelflow-labs/pixelflow-go/internal/execution/executor"
	"github.com/pixelflow-labs/pixelflow-go/internal/registry"
)

// PointCloud back-projects an image plus its depth map into a point
// cloud (ASCII PLY). An optional mask restricts the projected region.
type PointCloud struct{}

func (PointCloud) Execute(ctx context.Context, ec *executor.Context) (executor.Result, error) {
	img, ok := ec.Input(registry.PortImage)
	if !ok {
		return executor.Result{}, fmt.Errorf("node %s: image input is required", ec.NodeID)
	}
	depth, ok := ec.Input(registry.PortDepth)
	if !ok {
		return executor.Result{}, fmt.Errorf("node %s: depth input is required", ec.NodeID)
	}

	stride := paramInt(ec.Params, "stride", 2)
	maxPoints := paramInt(ec.Params, "maxPoints", 500000)

	seedParts := []string{string(domain.NodePointCloud), img.SHA256, depth.SHA256, paramsFingerprint(ec.Params)}
	masked := false
	if mask, ok := ec.Input(registry.PortMask); ok {
		seedParts = append(seedParts, mask.SHA256)
		masked = true
	}
	s := seed(seedParts...)

	count := 8 + int(s[1])%8
	if count > maxPoints {
		count = maxPoints
	}
	var sb strings.Builder
	sb.WriteString("ply\nformat ascii 1.0\n")
	fmt.Fprintf(&sb, "element vertex %d\n", count)
	sb.WriteString("property float x\nproperty float y\nproperty float z\nend_header\n")
	for i := 0; i < count; i++ {
		fmt.Fprintf(&sb, "%.6f %.6f %.6f\n",
			seedFloat(s, i*3), seedFloat(s, i*3+1), seedFloat(s, i*3+2))
	}

	return executor.Result{
		Outputs: []executor.Output{{
			OutputID: registry.PortPoints,
			Kind:     domain.KindPointCloud,
			MimeType: "application/octet-stream",
			Data:     []byte(sb.String()),
			Meta: domain.Metadata{
				"pointCount": count,
				"stride":     stride,
				"masked":     masked,
			},
		}},
	}, nil
}
