package nodes

import (
	"context"
	"fmt"

	"github.com/pixelflow-labs/pixelflow-go/internal/domain"
	"github.com/pixelflow-labs/pixelflow-go/internal/execution/executor"
	"github.com/pixelflow-labs/pixelflow-go/internal/registry"
)

// Depth is the monocular depth estimation step. One grayscale depth map
// per input image.
type Depth struct{}

func (Depth) Execute(ctx context.Context, ec *executor.Context) (executor.Result, error) {
	img, ok := ec.Input(registry.PortImage)
	if !ok {
		return executor.Result{}, fmt.Errorf("node %s: image input is required", ec.NodeID)
	}
	model := paramString(ec.Params, "model")

	s := seed(string(domain.NodeDepth), img.SHA256, model, paramsFingerprint(ec.Params))
	data, err := synthGrayPNG(s, 16, 16)
	if err != nil {
		return executor.Result{}, err
	}

	return executor.Result{
		Outputs: []executor.Output{{
			OutputID: registry.PortDepth,
			Kind:     domain.KindDepth,
			MimeType: "image/png",
			Data:     data,
			Meta: domain.Metadata{
				"model":             model,
				"sourceImageSha256": img.SHA256,
			},
		}},
	}, nil
}
