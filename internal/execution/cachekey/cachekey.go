// Package cachekey derives deterministic cache keys for node outputs.
//
// The base key covers (node type, stably-serialized params, ordered
// input content hashes, runtime mode). The actual lookup/store key is
// derived per output port so sibling outputs of one node hit or miss
// independently.
package cachekey

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/pixelflow-labs/pixelflow-go/internal/domain"
)

// ModeDefault is hashed in place of an empty runtime mode.
const ModeDefault = "default"

// StableJSON serializes v with all object keys sorted recursively.
// Array order is preserved. Semantically identical parameter maps
// always serialize identically regardless of construction order.
func StableJSON(v any) (string, error) {
	var sb strings.Builder
	if err := writeStable(&sb, v); err != nil {
		return "", err
	}
	return sb.String(), nil
}

func writeStable(sb *strings.Builder, v any) error {
	switch t := v.(type) {
	case nil:
		sb.WriteString("null")
	case map[string]any:
		keys := make([]string, 0, len(t))
		for k := range t {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		sb.WriteByte('{')
		for i, k := range keys {
			if i > 0 {
				sb.WriteByte(',')
			}
			keyJSON, err := json.Marshal(k)
			if err != nil {
				return err
			}
			sb.Write(keyJSON)
			sb.WriteByte(':')
			if err := writeStable(sb, t[k]); err != nil {
				return err
			}
		}
		sb.WriteByte('}')
	case []any:
		sb.WriteByte('[')
		for i, item := range t {
			if i > 0 {
				sb.WriteByte(',')
			}
			if err := writeStable(sb, item); err != nil {
				return err
			}
		}
		sb.WriteByte(']')
	default:
		raw, err := json.Marshal(t)
		if err != nil {
			return fmt.Errorf("stable json: %w", err)
		}
		sb.Write(raw)
	}
	return nil
}

// BaseKey computes the node-level key. inputHashes must already be in
// deterministic order (declared port order, artifact-id order within a
// port); SortHashGroups produces that ordering.
func BaseKey(nodeType domain.NodeType, params map[string]any, inputHashes []string, mode string) (string, error) {
	stable, err := StableJSON(params)
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(mode) == "" {
		mode = ModeDefault
	}
	h := sha256.New()
	h.Write([]byte(nodeType))
	h.Write([]byte(stable))
	h.Write([]byte(strings.Join(inputHashes, "|")))
	h.Write([]byte(mode))
	return hex.EncodeToString(h.Sum(nil)), nil
}

// OutputKey derives the per-output-port cache key from a base key.
func OutputKey(baseKey, outputID string) string {
	h := sha256.Sum256([]byte(baseKey + outputID))
	return hex.EncodeToString(h[:])
}

// HashGroup is the set of input content hashes bound to one port,
// carried with the artifact ids that produced them for ordering.
type HashGroup struct {
	ArtifactID string
	SHA256     string
}

// SortHashGroups flattens per-port hash groups into the deterministic
// hash list BaseKey expects: groups appear in the declared port order
// supplied by the caller, entries within a group sorted by artifact id
// so key computation never depends on database return order.
func SortHashGroups(portOrder []string, groups map[string][]HashGroup) []string {
	out := make([]string, 0)
	for _, port := range portOrder {
		entries := append([]HashGroup(nil), groups[port]...)
		sort.Slice(entries, func(i, j int) bool { return entries[i].ArtifactID < entries[j].ArtifactID })
		for _, e := range entries {
			out = append(out, e.SHA256)
		}
	}
	return out
}
