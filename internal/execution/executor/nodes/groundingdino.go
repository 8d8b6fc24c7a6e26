package nodes

import (
	"context"
	"fmt"
	"strings"

	"github.com/pixelflow-labs/pixelflow-go/internal/domain"
	"github.com/pixelflow-labs/pixelflow-go/internal/execution/executor"
	"github.com/pixelflow-labs/pixelflow-go/internal/registry"
)

// defaultDetectionClasses mirrors the detector's fallback class list
// used when the prompt is empty.
var defaultDetectionClasses = []string{"person", "car", "dog", "cat", "chair"}

// GroundingDINO is the detection step: one overlay image for preview
// and a hidden boxes payload for downstream guided segmentation. The
// boxes meta records which image the detection ran against so
// consumers can verify provenance.
type GroundingDINO struct{}

type detectionBox struct {
	Phrase string     `json:"phrase"`
	Score  float64    `json:"score"`
	Box    [4]float64 `json:"box"`
}

type detectionPayload struct {
	Prompt        string         `json:"prompt"`
	BoxThreshold  float64        `json:"boxThreshold"`
	TextThreshold float64        `json:"textThreshold"`
	Boxes         []detectionBox `json:"boxes"`
}

func (GroundingDINO) Execute(ctx context.Context, ec *executor.Context) (executor.Result, error) {
	img, ok := ec.Input(registry.PortImage)
	if !ok {
		return executor.Result{}, fmt.Errorf("node %s: image input is required", ec.NodeID)
	}

	prompt := strings.TrimSpace(paramString(ec.Params, "prompt"))
	if prompt == "" {
		prompt = strings.Join(defaultDetectionClasses, ", ")
	}
	boxThreshold := paramFloat(ec.Params, "boxThreshold", 0.3)
	textThreshold := paramFloat(ec.Params, "textThreshold", 0.25)

	s := seed(string(domain.NodeGroundingDINO), img.SHA256, prompt, paramsFingerprint(ec.Params))

	phrases := strings.Split(prompt, ",")
	count := 1 + int(s[0])%3
	if count > len(phrases) {
		count = len(phrases)
	}
	boxes := make([]detectionBox, 0, count)
	for i := 0; i < count; i++ {
		x := seedFloat(s, i*4)
		y := seedFloat(s, i*4+1)
		w := seedFloat(s, i*4+2) * (1 - x)
		h := seedFloat(s, i*4+3) * (1 - y)
		score := boxThreshold + (1-boxThreshold)*seedFloat(s, i*4+5)
		boxes = append(boxes, detectionBox{
			Phrase: strings.TrimSpace(phrases[i%len(phrases)]),
			Score:  score,
			Box:    [4]float64{x, y, x + w, y + h},
		})
	}

	boxesJSON, err := marshalJSON(detectionPayload{
		Prompt:        prompt,
		BoxThreshold:  boxThreshold,
		TextThreshold: textThreshold,
		Boxes:         boxes,
	})
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

	return executor.Result{
		Outputs: []executor.Output{
			{
				OutputID: registry.PortOverlay,
				Kind:     domain.KindImage,
				MimeType: "image/png",
				Data:     overlay,
				Preview:  preview,
				Meta:     domain.Metadata{"prompt": prompt},
			},
			{
				OutputID: registry.PortBoxes,
				Kind:     domain.KindJSON,
				MimeType: "application/json",
				Data:     boxesJSON,
				Hidden:   true,
				Meta: domain.Metadata{
					"prompt":                prompt,
					"sourceImageArtifactId": img.ArtifactID,
					"sourceImageSha256":     img.SHA256,
					"sourceImageStorageKey": img.StorageKey,
				},
			},
		},
	}, nil
}
