package registry

import (
	"reflect"
	"testing"

	"github.com/pixelflow-labs/pixelflow-go/internal/domain"
)

func TestSpecLookup(t *testing.T) {
	s, ok := Spec(domain.NodeGroundingDINO)
	if !ok {
		t.Fatalf("missing spec for %s", domain.NodeGroundingDINO)
	}
	if !reflect.DeepEqual(s.InputIDs(), []string{PortImage}) {
		t.Fatalf("got inputs %v", s.InputIDs())
	}
	if !reflect.DeepEqual(s.OutputIDs(), []string{PortOverlay, PortBoxes}) {
		t.Fatalf("got outputs %v", s.OutputIDs())
	}
	if !s.OutputHidden(PortBoxes) {
		t.Fatalf("boxes output must be hidden")
	}
	if s.OutputHidden(PortOverlay) {
		t.Fatalf("overlay output must be visible")
	}
	if _, ok := Spec("model.unknown"); ok {
		t.Fatalf("unknown type must not resolve")
	}
}

func TestEveryTypeHasSchemaAndDefaults(t *testing.T) {
	types := Types()
	if len(types) != 7 {
		t.Fatalf("expected 7 node types, got %v", types)
	}
	for _, typ := range types {
		s, _ := Spec(typ)
		if s.ParamSchema == nil {
			t.Fatalf("%s has no param schema", typ)
		}
		if err := ValidateParams(typ, s.Defaults); err != nil {
			t.Fatalf("%s defaults fail own schema: %v", typ, err)
		}
	}
}

func TestDefaultPorts(t *testing.T) {
	if got := DefaultOutput(domain.NodeInputImage); got != PortImage {
		t.Fatalf("got %q", got)
	}
	if got := DefaultInput(domain.NodeSAM2); got != PortImage {
		t.Fatalf("got %q", got)
	}
	if got := DefaultInput(domain.NodeInputImage); got != "" {
		t.Fatalf("source node must have no default input, got %q", got)
	}
}

func TestMergedParams(t *testing.T) {
	merged := MergedParams(domain.NodeGroundingDINO, map[string]any{"prompt": "cat"})
	if merged["prompt"] != "cat" {
		t.Fatalf("override lost: %v", merged)
	}
	if merged["boxThreshold"] != 0.3 || merged["textThreshold"] != 0.25 {
		t.Fatalf("defaults lost: %v", merged)
	}

	s, _ := Spec(domain.NodeGroundingDINO)
	if s.Defaults["prompt"] != "" {
		t.Fatalf("defaults mutated: %v", s.Defaults)
	}
}

func TestValidateParams(t *testing.T) {
	err := ValidateParams(domain.NodeGroundingDINO, map[string]any{
		"prompt":       "cat . dog",
		"boxThreshold": 0.5,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if err := ValidateParams(domain.NodeGroundingDINO, map[string]any{"boxThreshold": 1.5}); err == nil {
		t.Fatalf("out-of-range threshold accepted")
	}
	if err := ValidateParams(domain.NodeMesh, map[string]any{"method": "marching-cubes"}); err == nil {
		t.Fatalf("unknown mesh method accepted")
	}
	if err := ValidateParams("model.unknown", nil); err == nil {
		t.Fatalf("unknown type accepted")
	}
	// Extra keys are tolerated: the canvas stores UI state in params.
	if err := ValidateParams(domain.NodeSAM2, map[string]any{"collapsed": true}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}
