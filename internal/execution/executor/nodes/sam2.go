package nodes

import (
	"context"
	"fmt"

	"github.com/pixelflow-labs/pixelflow-go/internal/domain"
	"github.com/pixelflow-labs/pixelflow-go/internal/execution/executor"
	"github.com/pixelflow-labs/pixelflow-go/internal/registry"
)

// Segmentation modes. Guided runs against detection boxes; full
// segments the whole frame.
const (
	ModeFull   = "full"
	ModeGuided = "guided"
)

// SAM2 is the segmentation step. It is mode-sensitive: with a boxes
// input it segments inside the detected regions (guided), without one
// it segments the full frame. Mode resolution runs before cache key
// computation so the mode and the effective image both shape the key.
type SAM2 struct{}

// ResolveMode implements executor.ModeResolver.
//
// When both a direct image input and a boxes input are bound but the
// image's content hash disagrees with the hash the detection step
// recorded, the detection's source image wins: the guided result must
// stay consistent with the boxes it follows. The disagreement surfaces
// as a warning, never a failure.
func (SAM2) ResolveMode(ec *executor.Context) {
	boxes, ok := ec.Input(registry.PortBoxes)
	if !ok {
		ec.Mode = ModeFull
		return
	}
	ec.Mode = ModeGuided

	srcHash := boxes.Meta.String("sourceImageSha256")
	if srcHash == "" {
		return
	}
	img, hasImage := ec.Input(registry.PortImage)
	if hasImage && img.SHA256 == srcHash {
		return
	}
	if hasImage {
		ec.Warnings = append(ec.Warnings, fmt.Sprintf(
			"node %s: image input %s does not match detection source image; using detection provenance",
			ec.NodeID, img.ArtifactID))
	}
	ec.Inputs[registry.PortImage] = []executor.InputRef{{
		ArtifactID: boxes.Meta.String("sourceImageArtifactId"),
		NodeID:     boxes.NodeID,
		OutputID:   registry.PortImage,
		Kind:       domain.KindImage,
		SHA256:     srcHash,
		MimeType:   "image/png",
		StorageKey: boxes.Meta.String("sourceImageStorageKey"),
	}}
}

func (SAM2) Execute(ctx context.Context, ec *executor.Context) (executor.Result, error) {
	img, ok := ec.Input(registry.PortImage)
	if !ok {
		return executor.Result{}, fmt.Errorf("node %s: image input is required", ec.NodeID)
	}
	mode := ec.Mode
	if mode == "" {
		mode = ModeFull
	}

	seedParts := []string{string(domain.NodeSAM2), mode, img.SHA256, paramsFingerprint(ec.Params)}
	if boxes, ok := ec.Input(registry.PortBoxes); ok {
		seedParts = append(seedParts, boxes.SHA256)
	}
	s := seed(seedParts...)

	mask, err := synthGrayPNG(s, 16, 16)
	if err != nil {
		return executor.Result{}, err
	}
	overlay, err := synthPNG(s, 16, 16)
	if err != nil {
		return executor.Result{}, err
	}
	preview, err := synthPNG(seed("preview", fmt.Sprintf("%x", s[:8])), 8, 8)
	if err != nil {
		return executor.Result{}, err
	}

	meta := domain.Metadata{
		"mode":              mode,
		"sourceImageSha256": img.SHA256,
	}
	return executor.Result{
		Mode:     mode,
		Warnings: ec.Warnings,
		Outputs: []executor.Output{
			{
				OutputID: registry.PortMask,
				Kind:     domain.KindMask,
				MimeType: "image/png",
				Data:     mask,
				Meta:     meta.Clone(),
			},
			{
				OutputID: registry.PortOverlay,
				Kind:     domain.KindImage,
				MimeType: "image/png",
				Data:     overlay,
				Preview:  preview,
				Meta:     meta.Clone(),
			},
		},
	}, nil
}
