// Package objectstore abstracts the content blob store the engine
// persists artifacts into.
package objectstore

import (
	"context"
	"fmt"
)

// Store is the content store contract. Available is the health signal:
// callers decide and log how to degrade instead of the store silently
// swapping implementations underneath them.
type Store interface {
	Put(ctx context.Context, key string, data []byte, contentType string) error
	Get(ctx context.Context, key string) ([]byte, error)
	Exists(ctx context.Context, key string) (bool, error)
	DeleteAllUnder(ctx context.Context, prefix string) error
	Available(ctx context.Context) error
}

// ArtifactKey builds the canonical storage key for an artifact blob.
func ArtifactKey(projectID, runID, nodeID, artifactID, ext string) string {
	return fmt.Sprintf("projects/%s/runs/%s/nodes/%s/artifact_%s.%s", projectID, runID, nodeID, artifactID, ext)
}

// PreviewKey builds the sibling key for an artifact's preview blob.
func PreviewKey(projectID, runID, nodeID, artifactID, ext string) string {
	return fmt.Sprintf("projects/%s/runs/%s/nodes/%s/artifact_%s_preview.%s", projectID, runID, nodeID, artifactID, ext)
}

// ExtForMime maps the mime types the executors emit to file extensions.
func ExtForMime(mimeType string) string {
	switch mimeType {
	case "image/png":
		return "png"
	case "image/jpeg":
		return "jpg"
	case "application/json":
		return "json"
	case "model/obj":
		return "obj"
	case "model/gltf+json":
		return "gltf"
	case "model/gltf-binary":
		return "glb"
	default:
		return "bin"
	}
}
