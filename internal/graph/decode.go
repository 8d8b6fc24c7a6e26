// Package graph parses and validates serialized graph documents.
package graph

import (
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/pixelflow-labs/pixelflow-go/internal/domain"
)

// Decode parses a graph document. YAML is a superset of the canvas's
// JSON serialization, so a single decoder accepts both.
func Decode(raw []byte) (domain.GraphDocument, error) {
	if len(raw) == 0 {
		return domain.GraphDocument{}, fmt.Errorf("graph document is empty")
	}
	var doc domain.GraphDocument
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return domain.GraphDocument{}, fmt.Errorf("decode graph document: %w", err)
	}
	normalizeParams(&doc)
	return doc, nil
}

// yaml.v3 decodes nested mappings as map[string]any already, but nested
// sequences of mappings inside params can surface map keys as any when
// documents mix YAML merge syntax. Normalize so params are plain
// map[string]any all the way down.
func normalizeParams(doc *domain.GraphDocument) {
	for i := range doc.Nodes {
		if doc.Nodes[i].Data.Params == nil {
			doc.Nodes[i].Data.Params = map[string]any{}
			continue
		}
		doc.Nodes[i].Data.Params = normalizeMap(doc.Nodes[i].Data.Params)
	}
}

func normalizeMap(in map[string]any) map[string]any {
	out := make(map[string]any, len(in))
	for k, v := range in {
		out[k] = normalizeValue(v)
	}
	return out
}

func normalizeValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		return normalizeMap(t)
	case map[any]any:
		m := make(map[string]any, len(t))
		for k, val := range t {
			m[fmt.Sprint(k)] = normalizeValue(val)
		}
		return m
	case []any:
		out := make([]any, len(t))
		for i, val := range t {
			out[i] = normalizeValue(val)
		}
		return out
	case int:
		// YAML decodes whole numbers as int; JSON decodes them as
		// float64. Params must look the same either way.
		return float64(t)
	case int64:
		return float64(t)
	case uint64:
		return float64(t)
	case float32:
		return float64(t)
	default:
		return v
	}
}
