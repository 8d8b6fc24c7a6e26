package nodes

import (
	"context"
	"fmt"

	"github.com/pixelflow-labs/pixelflow-go/internal/domain"
	"github.com/pixelflow-labs/pixelflow-go/internal/execution/executor"
	"github.com/pixelflow-labs/pixelflow-go/internal/registry"
)

// InputImage materializes the graph's source image. When the canvas has
// uploaded a blob it is fetched by its storage key; otherwise a
// deterministic placeholder is synthesized from the params so repeated
// runs of the same node hash identically.
type InputImage struct{}

func (InputImage) Execute(ctx context.Context, ec *executor.Context) (executor.Result, error) {
	uploadKey := paramString(ec.Params, "uploadKey")
	fileName := paramString(ec.Params, "fileName")

	var data []byte
	var err error
	if uploadKey != "" {
		if ec.Load == nil {
			return executor.Result{}, fmt.Errorf("node %s: no loader for uploaded image", ec.NodeID)
		}
		data, err = ec.Load(ctx, uploadKey)
		if err != nil {
			return executor.Result{}, fmt.Errorf("node %s: load uploaded image: %w", ec.NodeID, err)
		}
	} else {
		data, err = synthPNG(seed(string(domain.NodeInputImage), fileName, paramsFingerprint(ec.Params)), 16, 16)
		if err != nil {
			return executor.Result{}, err
		}
	}

	return executor.Result{
		Outputs: []executor.Output{{
			OutputID: registry.PortImage,
			Kind:     domain.KindImage,
			MimeType: "image/png",
			Data:     data,
			Meta:     domain.Metadata{"fileName": fileName},
		}},
	}, nil
}
