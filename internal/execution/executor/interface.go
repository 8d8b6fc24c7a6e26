// Package executor defines the node execution contract and the closed
// dispatch table of per-type implementations.
package executor

import (
	"context"
	"fmt"
	"sort"

	"github.com/pixelflow-labs/pixelflow-go/internal/domain"
)

// LoadFunc fetches blob content from the content store on demand.
// Executors receive references, not bytes; most never load anything.
type LoadFunc func(ctx context.Context, storageKey string) ([]byte, error)

// InputRef is a resolved input binding: a reference to an artifact that
// satisfies one input port. It carries everything an executor needs to
// reason about the input without holding its bytes.
type InputRef struct {
	ArtifactID string
	NodeID     string
	OutputID   string
	Kind       domain.ArtifactKind
	SHA256     string
	MimeType   string
	StorageKey string
	SizeBytes  int64
	Meta       domain.Metadata
}

// Context is the execution context handed to one node executor.
// Inputs are keyed by input port id; a port may carry several refs.
type Context struct {
	ProjectID string
	RunID     string
	NodeID    string
	NodeType  domain.NodeType
	Params    map[string]any
	Inputs    map[string][]InputRef
	Load      LoadFunc
	Mode      string
	Warnings  []string
}

// Input returns the first ref bound to a port, if any.
func (c *Context) Input(portID string) (InputRef, bool) {
	refs := c.Inputs[portID]
	if len(refs) == 0 {
		return InputRef{}, false
	}
	return refs[0], true
}

// Output is one produced artifact payload.
type Output struct {
	OutputID string
	Kind     domain.ArtifactKind
	MimeType string
	Data     []byte
	Meta     domain.Metadata
	Hidden   bool
	Preview  []byte
}

// Result is the outcome of one node execution. The contract is purity:
// identical inputs, params and mode must yield equivalent outputs, which
// is what makes results safe to cache.
type Result struct {
	Outputs  []Output
	Mode     string
	Warnings []string
}

// Executor runs one node type.
type Executor interface {
	Execute(ctx context.Context, ec *Context) (Result, error)
}

// ModeResolver is implemented by mode-sensitive executors. ResolveMode
// runs before cache key computation; it may rewrite ec.Inputs, set
// ec.Mode and append warnings, and must be deterministic.
type ModeResolver interface {
	ResolveMode(ec *Context)
}

// Registry is the closed dispatch table. New node types register a spec
// entry plus an executor here; there is no open-ended plugin loading.
type Registry struct {
	executors map[domain.NodeType]Executor
}

func NewRegistry() *Registry {
	return &Registry{executors: make(map[domain.NodeType]Executor)}
}

// Register binds an executor to a node type. Re-registering a type is a
// programming error and panics at init.
func (r *Registry) Register(t domain.NodeType, e Executor) {
	if e == nil {
		panic(fmt.Sprintf("executor for %s is nil", t))
	}
	if _, dup := r.executors[t]; dup {
		panic(fmt.Sprintf("executor for %s already registered", t))
	}
	r.executors[t] = e
}

// Lookup returns the executor for a node type.
func (r *Registry) Lookup(t domain.NodeType) (Executor, bool) {
	e, ok := r.executors[t]
	return e, ok
}

// Types returns registered node types, sorted.
func (r *Registry) Types() []domain.NodeType {
	out := make([]domain.NodeType, 0, len(r.executors))
	for t := range r.executors {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
