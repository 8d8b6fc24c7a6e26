package nodes

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"testing"

	"github.com/pixelflow-labs/pixelflow-go/internal/domain"
	"github.com/pixelflow-labs/pixelflow-go/internal/execution/executor"
	"github.com/pixelflow-labs/pixelflow-go/internal/registry"
)

func execCtx(t domain.NodeType, params map[string]any, inputs map[string][]executor.InputRef) *executor.Context {
	if params == nil {
		params = map[string]any{}
	}
	if inputs == nil {
		inputs = map[string][]executor.InputRef{}
	}
	return &executor.Context{
		ProjectID: "p1",
		RunID:     "r1",
		NodeID:    "n1",
		NodeType:  t,
		Params:    params,
		Inputs:    inputs,
	}
}

func imageRef(id, hash string) executor.InputRef {
	return executor.InputRef{
		ArtifactID: id,
		NodeID:     "in",
		OutputID:   registry.PortImage,
		Kind:       domain.KindImage,
		SHA256:     hash,
		MimeType:   "image/png",
		StorageKey: "projects/p1/runs/r0/nodes/in/artifact_" + id + ".png",
	}
}

func boxesRef(id, srcArtifactID, srcHash string) executor.InputRef {
	return executor.InputRef{
		ArtifactID: id,
		NodeID:     "dino",
		OutputID:   registry.PortBoxes,
		Kind:       domain.KindJSON,
		SHA256:     "boxes-" + id,
		MimeType:   "application/json",
		Meta: domain.Metadata{
			"sourceImageArtifactId": srcArtifactID,
			"sourceImageSha256":     srcHash,
			"sourceImageStorageKey": "projects/p1/runs/r0/nodes/in/artifact_" + srcArtifactID + ".png",
		},
	}
}

func mustExecute(t *testing.T, e executor.Executor, ec *executor.Context) executor.Result {
	t.Helper()
	res, err := e.Execute(context.Background(), ec)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return res
}

func TestDefaultRegistryCoversAllNodeTypes(t *testing.T) {
	reg := Default()
	for _, typ := range registry.Types() {
		if _, ok := reg.Lookup(typ); !ok {
			t.Fatalf("no executor registered for %s", typ)
		}
	}
	if len(reg.Types()) != len(registry.Types()) {
		t.Fatalf("executor registry and capability table disagree: %v vs %v", reg.Types(), registry.Types())
	}
}

func TestInputImageSynthesizesDeterministically(t *testing.T) {
	params := map[string]any{"fileName": "photo.png", "uploadKey": ""}
	first := mustExecute(t, InputImage{}, execCtx(domain.NodeInputImage, params, nil))
	second := mustExecute(t, InputImage{}, execCtx(domain.NodeInputImage, params, nil))
	if len(first.Outputs) != 1 {
		t.Fatalf("expected one output, got %d", len(first.Outputs))
	}
	if !bytes.Equal(first.Outputs[0].Data, second.Outputs[0].Data) {
		t.Fatalf("synthetic image bytes differ between runs")
	}
	if !bytes.HasPrefix(first.Outputs[0].Data, []byte("\x89PNG")) {
		t.Fatalf("output is not a PNG")
	}
}

func TestInputImageLoadsUploadedBlob(t *testing.T) {
	want := []byte("uploaded-bytes")
	ec := execCtx(domain.NodeInputImage, map[string]any{"uploadKey": "uploads/p1/img.png"}, nil)
	ec.Load = func(ctx context.Context, storageKey string) ([]byte, error) {
		if storageKey != "uploads/p1/img.png" {
			return nil, fmt.Errorf("unexpected key %q", storageKey)
		}
		return want, nil
	}
	res := mustExecute(t, InputImage{}, ec)
	if !bytes.Equal(res.Outputs[0].Data, want) {
		t.Fatalf("uploaded bytes not passed through")
	}

	ec = execCtx(domain.NodeInputImage, map[string]any{"uploadKey": "uploads/p1/img.png"}, nil)
	if _, err := (InputImage{}).Execute(context.Background(), ec); err == nil {
		t.Fatalf("expected error without loader")
	}
}

func TestGroundingDINOOutputs(t *testing.T) {
	inputs := map[string][]executor.InputRef{
		registry.PortImage: {imageRef("a1", "hash-1")},
	}
	params := map[string]any{"prompt": "cat . dog", "boxThreshold": 0.4}
	res := mustExecute(t, GroundingDINO{}, execCtx(domain.NodeGroundingDINO, params, inputs))

	if len(res.Outputs) != 2 {
		t.Fatalf("expected overlay and boxes, got %d outputs", len(res.Outputs))
	}
	var boxesOut executor.Output
	for _, out := range res.Outputs {
		if out.OutputID == registry.PortBoxes {
			boxesOut = out
		}
	}
	if !boxesOut.Hidden {
		t.Fatalf("boxes output must be hidden")
	}
	if boxesOut.Meta.String("sourceImageSha256") != "hash-1" {
		t.Fatalf("provenance hash missing: %v", boxesOut.Meta)
	}
	if boxesOut.Meta.String("sourceImageArtifactId") != "a1" {
		t.Fatalf("provenance artifact id missing: %v", boxesOut.Meta)
	}

	var payload detectionPayload
	if err := json.Unmarshal(boxesOut.Data, &payload); err != nil {
		t.Fatalf("boxes payload not json: %v", err)
	}
	if payload.Prompt != "cat . dog" || payload.BoxThreshold != 0.4 {
		t.Fatalf("payload params wrong: %+v", payload)
	}
	if len(payload.Boxes) == 0 {
		t.Fatalf("no boxes detected")
	}
	for _, box := range payload.Boxes {
		if box.Score < 0.4 || box.Score > 1 {
			t.Fatalf("score %v outside [boxThreshold,1]", box.Score)
		}
	}

	again := mustExecute(t, GroundingDINO{}, execCtx(domain.NodeGroundingDINO, params, inputs))
	for i := range res.Outputs {
		if !bytes.Equal(res.Outputs[i].Data, again.Outputs[i].Data) {
			t.Fatalf("output %s not deterministic", res.Outputs[i].OutputID)
		}
	}
}

func TestGroundingDINOEmptyPromptFallsBackToClassList(t *testing.T) {
	inputs := map[string][]executor.InputRef{
		registry.PortImage: {imageRef("a1", "hash-1")},
	}
	res := mustExecute(t, GroundingDINO{}, execCtx(domain.NodeGroundingDINO, nil, inputs))
	var payload detectionPayload
	for _, out := range res.Outputs {
		if out.OutputID == registry.PortBoxes {
			if err := json.Unmarshal(out.Data, &payload); err != nil {
				t.Fatalf("boxes payload not json: %v", err)
			}
		}
	}
	if payload.Prompt != strings.Join(defaultDetectionClasses, ", ") {
		t.Fatalf("got prompt %q", payload.Prompt)
	}
}

func TestGroundingDINORequiresImage(t *testing.T) {
	if _, err := (GroundingDINO{}).Execute(context.Background(), execCtx(domain.NodeGroundingDINO, nil, nil)); err == nil {
		t.Fatalf("expected error without image input")
	}
}

func TestSAM2ResolveModeFullWithoutBoxes(t *testing.T) {
	ec := execCtx(domain.NodeSAM2, nil, map[string][]executor.InputRef{
		registry.PortImage: {imageRef("a1", "hash-1")},
	})
	(SAM2{}).ResolveMode(ec)
	if ec.Mode != ModeFull {
		t.Fatalf("got mode %q", ec.Mode)
	}
	if len(ec.Warnings) != 0 {
		t.Fatalf("unexpected warnings %v", ec.Warnings)
	}
}

func TestSAM2ResolveModeGuidedMatchingImage(t *testing.T) {
	ec := execCtx(domain.NodeSAM2, nil, map[string][]executor.InputRef{
		registry.PortImage: {imageRef("a1", "hash-1")},
		registry.PortBoxes: {boxesRef("b1", "a1", "hash-1")},
	})
	(SAM2{}).ResolveMode(ec)
	if ec.Mode != ModeGuided {
		t.Fatalf("got mode %q", ec.Mode)
	}
	if len(ec.Warnings) != 0 {
		t.Fatalf("unexpected warnings %v", ec.Warnings)
	}
	img, _ := ec.Input(registry.PortImage)
	if img.ArtifactID != "a1" {
		t.Fatalf("matching image must not be replaced: %+v", img)
	}
}

func TestSAM2ResolveModeGuidedProvenanceWins(t *testing.T) {
	ec := execCtx(domain.NodeSAM2, nil, map[string][]executor.InputRef{
		registry.PortImage: {imageRef("a2", "hash-other")},
		registry.PortBoxes: {boxesRef("b1", "a1", "hash-1")},
	})
	(SAM2{}).ResolveMode(ec)
	if ec.Mode != ModeGuided {
		t.Fatalf("got mode %q", ec.Mode)
	}
	if len(ec.Warnings) != 1 {
		t.Fatalf("expected one warning, got %v", ec.Warnings)
	}
	if !strings.Contains(ec.Warnings[0], "does not match detection source image") {
		t.Fatalf("warning text: %q", ec.Warnings[0])
	}
	img, ok := ec.Input(registry.PortImage)
	if !ok {
		t.Fatalf("image input dropped")
	}
	if img.SHA256 != "hash-1" || img.ArtifactID != "a1" {
		t.Fatalf("detection provenance not substituted: %+v", img)
	}
}

func TestSAM2ModeChangesOutputs(t *testing.T) {
	imgOnly := map[string][]executor.InputRef{
		registry.PortImage: {imageRef("a1", "hash-1")},
	}
	full := execCtx(domain.NodeSAM2, nil, imgOnly)
	(SAM2{}).ResolveMode(full)
	fullRes := mustExecute(t, SAM2{}, full)

	guided := execCtx(domain.NodeSAM2, nil, map[string][]executor.InputRef{
		registry.PortImage: {imageRef("a1", "hash-1")},
		registry.PortBoxes: {boxesRef("b1", "a1", "hash-1")},
	})
	(SAM2{}).ResolveMode(guided)
	guidedRes := mustExecute(t, SAM2{}, guided)

	if fullRes.Mode != ModeFull || guidedRes.Mode != ModeGuided {
		t.Fatalf("modes %q/%q", fullRes.Mode, guidedRes.Mode)
	}
	if bytes.Equal(fullRes.Outputs[0].Data, guidedRes.Outputs[0].Data) {
		t.Fatalf("mask must differ between modes")
	}
	for _, out := range fullRes.Outputs {
		if out.Meta.String("mode") != ModeFull {
			t.Fatalf("output meta mode %v", out.Meta)
		}
	}
}

func TestDepthProducesGrayMap(t *testing.T) {
	inputs := map[string][]executor.InputRef{
		registry.PortImage: {imageRef("a1", "hash-1")},
	}
	res := mustExecute(t, Depth{}, execCtx(domain.NodeDepth, nil, inputs))
	if len(res.Outputs) != 1 || res.Outputs[0].OutputID != registry.PortDepth {
		t.Fatalf("unexpected outputs %+v", res.Outputs)
	}
	if res.Outputs[0].Kind != domain.KindDepth {
		t.Fatalf("got kind %q", res.Outputs[0].Kind)
	}
	again := mustExecute(t, Depth{}, execCtx(domain.NodeDepth, nil, inputs))
	if !bytes.Equal(res.Outputs[0].Data, again.Outputs[0].Data) {
		t.Fatalf("depth map not deterministic")
	}
}

func TestPointCloudEmitsPLY(t *testing.T) {
	inputs := map[string][]executor.InputRef{
		registry.PortImage: {imageRef("a1", "hash-1")},
		registry.PortDepth: {{ArtifactID: "d1", SHA256: "hash-d", Kind: domain.KindDepth, OutputID: registry.PortDepth}},
	}
	res := mustExecute(t, PointCloud{}, execCtx(domain.NodePointCloud, nil, inputs))
	data := string(res.Outputs[0].Data)
	if !strings.HasPrefix(data, "ply\nformat ascii 1.0\n") {
		t.Fatalf("not a PLY header: %q", data[:40])
	}
	count, _ := res.Outputs[0].Meta["pointCount"].(int)
	if count < 8 {
		t.Fatalf("point count %d", count)
	}
	if !strings.Contains(data, fmt.Sprintf("element vertex %d\n", count)) {
		t.Fatalf("vertex count mismatch")
	}
	if res.Outputs[0].Meta["masked"] != false {
		t.Fatalf("masked flag wrong: %v", res.Outputs[0].Meta)
	}

	inputs[registry.PortMask] = []executor.InputRef{{ArtifactID: "m1", SHA256: "hash-m", Kind: domain.KindMask}}
	maskedRes := mustExecute(t, PointCloud{}, execCtx(domain.NodePointCloud, nil, inputs))
	if maskedRes.Outputs[0].Meta["masked"] != true {
		t.Fatalf("mask input not reflected")
	}
	if bytes.Equal(res.Outputs[0].Data, maskedRes.Outputs[0].Data) {
		t.Fatalf("mask must change the projected cloud")
	}
}

func TestPointCloudRequiresDepth(t *testing.T) {
	ec := execCtx(domain.NodePointCloud, nil, map[string][]executor.InputRef{
		registry.PortImage: {imageRef("a1", "hash-1")},
	})
	if _, err := (PointCloud{}).Execute(context.Background(), ec); err == nil {
		t.Fatalf("expected error without depth input")
	}
}

func TestMeshEmitsOBJ(t *testing.T) {
	inputs := map[string][]executor.InputRef{
		registry.PortPoints: {{ArtifactID: "p1", SHA256: "hash-p", Kind: domain.KindPointCloud, OutputID: registry.PortPoints}},
	}
	res := mustExecute(t, Mesh{}, execCtx(domain.NodeMesh, nil, inputs))
	data := string(res.Outputs[0].Data)
	if !strings.Contains(data, "\nv ") && !strings.HasPrefix(data, "v ") {
		t.Fatalf("no vertices in OBJ output")
	}
	if !strings.Contains(data, "f ") {
		t.Fatalf("no faces in OBJ output")
	}
	if res.Outputs[0].Kind != domain.KindMesh {
		t.Fatalf("got kind %q", res.Outputs[0].Kind)
	}
}

func TestExportGLTFBinaryContainer(t *testing.T) {
	inputs := map[string][]executor.InputRef{
		registry.PortMesh: {{ArtifactID: "m1", SHA256: "hash-m", Kind: domain.KindMesh, OutputID: registry.PortMesh}},
	}
	res := mustExecute(t, ExportGLTF{}, execCtx(domain.NodeExportGLTF, map[string]any{"binary": true}, inputs))
	if len(res.Outputs) != 2 {
		t.Fatalf("expected gltf and report outputs, got %d", len(res.Outputs))
	}
	gltf := res.Outputs[0]
	if !bytes.HasPrefix(gltf.Data, []byte("glTF")) {
		t.Fatalf("GLB magic missing")
	}
	if gltf.MimeType != "model/gltf-binary" {
		t.Fatalf("got mime %q", gltf.MimeType)
	}

	report := res.Outputs[1]
	if report.OutputID != registry.PortReport || !report.Hidden {
		t.Fatalf("report output wrong: %+v", report)
	}
	var parsed map[string]any
	if err := json.Unmarshal(report.Data, &parsed); err != nil {
		t.Fatalf("report not json: %v", err)
	}
	if parsed["binary"] != true {
		t.Fatalf("report binary flag: %v", parsed)
	}

	jsonRes := mustExecute(t, ExportGLTF{}, execCtx(domain.NodeExportGLTF, map[string]any{"binary": false}, inputs))
	if jsonRes.Outputs[0].MimeType != "model/gltf+json" {
		t.Fatalf("got mime %q", jsonRes.Outputs[0].MimeType)
	}
	if !json.Valid(jsonRes.Outputs[0].Data) {
		t.Fatalf("non-binary export must be valid json")
	}
}
