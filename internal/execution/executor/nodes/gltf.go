package nodes

import (
	"bytes"
	"context"
	"encoding/binary"
	"fmt"

	"github.com/pixelflow-labs/pixelflow-go/internal/domain"
	"github.com/pixelflow-labs/pixelflow-go/internal/execution/executor"
	"github.com/pixelflow-labs/pixelflow-go/internal/registry"
)

// ExportGLTF packages a mesh for the viewer: the glTF payload plus a
// hidden machine-readable export report.
type ExportGLTF struct{}

func (ExportGLTF) Execute(ctx context.Context, ec *executor.Context) (executor.Result, error) {
	mesh, ok := ec.Input(registry.PortMesh)
	if !ok {
		return executor.Result{}, fmt.Errorf("node %s: mesh input is required", ec.NodeID)
	}
	binaryOut := paramBool(ec.Params, "binary", true)
	draco := paramBool(ec.Params, "draco", false)

	s := seed(string(domain.NodeExportGLTF), mesh.SHA256, paramsFingerprint(ec.Params))

	assetJSON, err := marshalJSON(map[string]any{
		"asset":  map[string]any{"version": "2.0", "generator": "pixelflow"},
		"scenes": []map[string]any{{"nodes": []int{0}}},
		"source": mesh.SHA256,
	})
	if err != nil {
		return executor.Result{}, err
	}

	var data []byte
	mimeType := "model/gltf+json"
	ext := "gltf"
	if binaryOut {
		// GLB container: 12-byte header + one JSON chunk.
		var buf bytes.Buffer
		buf.WriteString("glTF")
		_ = binary.Write(&buf, binary.LittleEndian, uint32(2))
		_ = binary.Write(&buf, binary.LittleEndian, uint32(12+8+len(assetJSON)))
		_ = binary.Write(&buf, binary.LittleEndian, uint32(len(assetJSON)))
		buf.WriteString("JSON")
		buf.Write(assetJSON)
		data = buf.Bytes()
		mimeType = "model/gltf-binary"
		ext = "glb"
	} else {
		data = assetJSON
	}

	report, err := marshalJSON(map[string]any{
		"binary":    binaryOut,
		"draco":     draco,
		"sizeBytes": len(data),
		"checksum":  fmt.Sprintf("%x", s[:8]),
	})
	if err != nil {
		return executor.Result{}, err
	}

	return executor.Result{
		Outputs: []executor.Output{
			{
				OutputID: registry.PortGLTF,
				Kind:     domain.KindMesh,
				MimeType: mimeType,
				Data:     data,
				Meta:     domain.Metadata{"binary": binaryOut, "ext": ext},
			},
			{
				OutputID: registry.PortReport,
				Kind:     domain.KindJSON,
				MimeType: "application/json",
				Data:     report,
				Hidden:   true,
				Meta:     domain.Metadata{},
			},
		},
	}, nil
}
