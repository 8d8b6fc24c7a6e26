package registry

import (
	"github.com/getkin/kin-openapi/openapi3"

	"github.com/pixelflow-labs/pixelflow-go/internal/domain"
)

// Port ids shared by several node types.
const (
	PortImage   = "image"
	PortBoxes   = "boxes"
	PortOverlay = "overlay"
	PortMask    = "mask"
	PortDepth   = "depth"
	PortPoints  = "points"
	PortMesh    = "mesh"
	PortGLTF    = "gltf"
	PortReport  = "report"
)

var specs = map[domain.NodeType]NodeSpec{
	domain.NodeInputImage: {
		Type:    domain.NodeInputImage,
		Outputs: []PortSpec{{ID: PortImage}},
		ParamSchema: objectSchema(map[string]*openapi3.Schema{
			"fileName":  openapi3.NewStringSchema(),
			"uploadKey": openapi3.NewStringSchema(),
		}),
		Defaults: map[string]any{
			"fileName":  "",
			"uploadKey": "",
		},
	},
	domain.NodeGroundingDINO: {
		Type:   domain.NodeGroundingDINO,
		Inputs: []PortSpec{{ID: PortImage, Required: true}},
		Outputs: []PortSpec{
			{ID: PortOverlay},
			{ID: PortBoxes, Hidden: true},
		},
		ParamSchema: objectSchema(map[string]*openapi3.Schema{
			"prompt":        openapi3.NewStringSchema(),
			"boxThreshold":  openapi3.NewFloat64Schema().WithMin(0).WithMax(1),
			"textThreshold": openapi3.NewFloat64Schema().WithMin(0).WithMax(1),
		}),
		Defaults: map[string]any{
			"prompt":        "",
			"boxThreshold":  0.3,
			"textThreshold": 0.25,
		},
	},
	domain.NodeSAM2: {
		Type: domain.NodeSAM2,
		Inputs: []PortSpec{
			{ID: PortImage, Required: true},
			{ID: PortBoxes},
		},
		Outputs: []PortSpec{
			{ID: PortMask},
			{ID: PortOverlay},
		},
		ParamSchema: objectSchema(map[string]*openapi3.Schema{
			"maskThreshold": openapi3.NewFloat64Schema().WithMin(-1).WithMax(1),
		}),
		Defaults: map[string]any{
			"maskThreshold": 0.0,
		},
	},
	domain.NodeDepth: {
		Type:    domain.NodeDepth,
		Inputs:  []PortSpec{{ID: PortImage, Required: true}},
		Outputs: []PortSpec{{ID: PortDepth}},
		ParamSchema: objectSchema(map[string]*openapi3.Schema{
			"model": openapi3.NewStringSchema(),
		}),
		Defaults: map[string]any{
			"model": "midas-small",
		},
	},
	domain.NodePointCloud: {
		Type: domain.NodePointCloud,
		Inputs: []PortSpec{
			{ID: PortImage, Required: true},
			{ID: PortDepth, Required: true},
			{ID: PortMask},
		},
		Outputs: []PortSpec{{ID: PortPoints}},
		ParamSchema: objectSchema(map[string]*openapi3.Schema{
			"stride":    openapi3.NewIntegerSchema().WithMin(1),
			"maxPoints": openapi3.NewIntegerSchema().WithMin(1),
		}),
		Defaults: map[string]any{
			"stride":    2.0,
			"maxPoints": 500000.0,
		},
	},
	domain.NodeMesh: {
		Type:    domain.NodeMesh,
		Inputs:  []PortSpec{{ID: PortPoints, Required: true}},
		Outputs: []PortSpec{{ID: PortMesh}},
		ParamSchema: objectSchema(map[string]*openapi3.Schema{
			"method": openapi3.NewStringSchema().WithEnum("poisson", "ballpivot"),
			"depth":  openapi3.NewIntegerSchema().WithMin(1).WithMax(12),
		}),
		Defaults: map[string]any{
			"method": "poisson",
			"depth":  8.0,
		},
	},
	domain.NodeExportGLTF: {
		Type:   domain.NodeExportGLTF,
		Inputs: []PortSpec{{ID: PortMesh, Required: true}},
		Outputs: []PortSpec{
			{ID: PortGLTF},
			{ID: PortReport, Hidden: true},
		},
		ParamSchema: objectSchema(map[string]*openapi3.Schema{
			"binary": openapi3.NewBoolSchema(),
			"draco":  openapi3.NewBoolSchema(),
		}),
		Defaults: map[string]any{
			"binary": true,
			"draco":  false,
		},
	},
}

func objectSchema(props map[string]*openapi3.Schema) *openapi3.Schema {
	s := openapi3.NewObjectSchema()
	for name, prop := range props {
		s = s.WithProperty(name, prop)
	}
	return s
}
