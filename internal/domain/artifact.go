package domain

import (
	"errors"
	"strings"
	"time"
)

// ArtifactKind classifies the payload stored behind an artifact.
type ArtifactKind string

const (
	KindImage      ArtifactKind = "image"
	KindMask       ArtifactKind = "mask"
	KindJSON       ArtifactKind = "json"
	KindDepth      ArtifactKind = "depth"
	KindPointCloud ArtifactKind = "point-cloud"
	KindMesh       ArtifactKind = "mesh"
	KindSplat      ArtifactKind = "splat"
)

// Meta keys every artifact must carry.
const (
	MetaOutputKey = "outputKey"
	MetaHidden    = "hidden"
)

// Artifact is one immutable, content-hashed output blob produced by one
// node's one output port during one run. Cache hits reuse existing rows;
// they never create new ones.
type Artifact struct {
	ID         string
	RunID      string
	ProjectID  string
	NodeID     string
	Kind       ArtifactKind
	MimeType   string
	SizeBytes  int64
	SHA256     string
	StorageKey string
	PreviewKey string
	Meta       Metadata
	CreatedAt  time.Time
}

// OutputKey returns the output port id recorded in the artifact meta.
func (a Artifact) OutputKey() string {
	return a.Meta.String(MetaOutputKey)
}

// Hidden reports whether the artifact belongs to a non-preview port.
func (a Artifact) Hidden() bool {
	return a.Meta.Bool(MetaHidden)
}

func (a Artifact) Validate() error {
	if strings.TrimSpace(a.ID) == "" {
		return errors.New("artifact id is required")
	}
	if strings.TrimSpace(a.RunID) == "" {
		return errors.New("run id is required")
	}
	if strings.TrimSpace(a.ProjectID) == "" {
		return errors.New("project id is required")
	}
	if strings.TrimSpace(a.NodeID) == "" {
		return errors.New("node id is required")
	}
	if strings.TrimSpace(string(a.Kind)) == "" {
		return errors.New("artifact kind is required")
	}
	if strings.TrimSpace(a.StorageKey) == "" {
		return errors.New("storage key is required")
	}
	if strings.TrimSpace(a.SHA256) == "" {
		return errors.New("sha256 is required")
	}
	if a.OutputKey() == "" {
		return errors.New("meta outputKey is required")
	}
	return nil
}
