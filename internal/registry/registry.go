// Package registry holds the static node capability table: for every
// node type its input/output ports, parameter schema and default
// parameters. Pure data, loaded at process start.
package registry

import (
	"fmt"
	"sort"

	"github.com/getkin/kin-openapi/openapi3"

	"github.com/pixelflow-labs/pixelflow-go/internal/domain"
)

// PortSpec describes one named slot on a node type.
type PortSpec struct {
	ID       string
	Required bool
	Hidden   bool
}

// NodeSpec is one registry entry. Immutable after init.
type NodeSpec struct {
	Type        domain.NodeType
	Inputs      []PortSpec
	Outputs     []PortSpec
	ParamSchema *openapi3.Schema
	Defaults    map[string]any
}

// InputIDs returns the declared input port ids in declaration order.
func (s NodeSpec) InputIDs() []string {
	out := make([]string, 0, len(s.Inputs))
	for _, p := range s.Inputs {
		out = append(out, p.ID)
	}
	return out
}

// OutputIDs returns the declared output port ids in declaration order.
func (s NodeSpec) OutputIDs() []string {
	out := make([]string, 0, len(s.Outputs))
	for _, p := range s.Outputs {
		out = append(out, p.ID)
	}
	return out
}

// HasInput reports whether id is a declared input port.
func (s NodeSpec) HasInput(id string) bool {
	for _, p := range s.Inputs {
		if p.ID == id {
			return true
		}
	}
	return false
}

// HasOutput reports whether id is a declared output port.
func (s NodeSpec) HasOutput(id string) bool {
	for _, p := range s.Outputs {
		if p.ID == id {
			return true
		}
	}
	return false
}

// OutputHidden reports the hidden flag of a declared output port.
func (s NodeSpec) OutputHidden(id string) bool {
	for _, p := range s.Outputs {
		if p.ID == id {
			return p.Hidden
		}
	}
	return false
}

// Spec returns the registry entry for a node type.
func Spec(t domain.NodeType) (NodeSpec, bool) {
	s, ok := specs[t]
	return s, ok
}

// Types returns all registered node types, sorted.
func Types() []domain.NodeType {
	out := make([]domain.NodeType, 0, len(specs))
	for t := range specs {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// DefaultInput returns the first declared input port of a node type.
func DefaultInput(t domain.NodeType) string {
	s, ok := specs[t]
	if !ok || len(s.Inputs) == 0 {
		return ""
	}
	return s.Inputs[0].ID
}

// DefaultOutput returns the first declared output port of a node type.
func DefaultOutput(t domain.NodeType) string {
	s, ok := specs[t]
	if !ok || len(s.Outputs) == 0 {
		return ""
	}
	return s.Outputs[0].ID
}

// MergedParams overlays node params on the type defaults. Neither input
// map is mutated.
func MergedParams(t domain.NodeType, params map[string]any) map[string]any {
	s := specs[t]
	merged := make(map[string]any, len(s.Defaults)+len(params))
	for k, v := range s.Defaults {
		merged[k] = v
	}
	for k, v := range params {
		merged[k] = v
	}
	return merged
}

// ValidateParams checks a parameter map against the type's schema.
// Unknown types fail; unknown keys inside params are tolerated so the
// canvas may carry UI-only extras.
func ValidateParams(t domain.NodeType, params map[string]any) error {
	s, ok := specs[t]
	if !ok {
		return fmt.Errorf("unknown node type %q", t)
	}
	if s.ParamSchema == nil {
		return nil
	}
	if params == nil {
		params = map[string]any{}
	}
	if err := s.ParamSchema.VisitJSON(params); err != nil {
		return fmt.Errorf("params for %s: %w", t, err)
	}
	return nil
}
