package objectstore

import (
	"bytes"
	"context"
	"testing"
)

func TestFSStoreRoundTrip(t *testing.T) {
	store, err := NewFSStore(t.TempDir())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	ctx := context.Background()

	key := ArtifactKey("p1", "r1", "n1", "a1", "png")
	payload := []byte("payload")
	if err := store.Put(ctx, key, payload, "image/png"); err != nil {
		t.Fatalf("put: %v", err)
	}

	ok, err := store.Exists(ctx, key)
	if err != nil || !ok {
		t.Fatalf("exists=%v err=%v", ok, err)
	}
	got, err := store.Get(ctx, key)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if !bytes.Equal(got, payload) {
		t.Fatalf("got %q", got)
	}
	if err := store.Available(ctx); err != nil {
		t.Fatalf("available: %v", err)
	}
}

func TestFSStoreGetMissing(t *testing.T) {
	store, err := NewFSStore(t.TempDir())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := store.Get(context.Background(), "projects/p1/nope.png"); err == nil {
		t.Fatalf("expected error for missing blob")
	}
	ok, err := store.Exists(context.Background(), "projects/p1/nope.png")
	if err != nil || ok {
		t.Fatalf("exists=%v err=%v", ok, err)
	}
}

func TestFSStoreDeleteAllUnder(t *testing.T) {
	store, err := NewFSStore(t.TempDir())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	ctx := context.Background()

	inside := ArtifactKey("p1", "r1", "n1", "a1", "png")
	outside := ArtifactKey("p1", "r2", "n1", "a2", "png")
	for _, key := range []string{inside, outside} {
		if err := store.Put(ctx, key, []byte("x"), "image/png"); err != nil {
			t.Fatalf("put %s: %v", key, err)
		}
	}

	if err := store.DeleteAllUnder(ctx, "projects/p1/runs/r1"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if ok, _ := store.Exists(ctx, inside); ok {
		t.Fatalf("blob under prefix survived")
	}
	if ok, _ := store.Exists(ctx, outside); !ok {
		t.Fatalf("blob outside prefix deleted")
	}
}

func TestFSStoreRejectsTraversal(t *testing.T) {
	store, err := NewFSStore(t.TempDir())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	ctx := context.Background()
	for _, key := range []string{"../escape", "/abs/path"} {
		if err := store.Put(ctx, key, []byte("x"), "text/plain"); err == nil {
			t.Fatalf("key %q accepted", key)
		}
	}
}

func TestNewFSStoreRequiresRoot(t *testing.T) {
	if _, err := NewFSStore("  "); err == nil {
		t.Fatalf("expected error for empty root")
	}
}

func TestStorageKeys(t *testing.T) {
	if got := ArtifactKey("p1", "r1", "n1", "a1", "png"); got != "projects/p1/runs/r1/nodes/n1/artifact_a1.png" {
		t.Fatalf("got %q", got)
	}
	if got := PreviewKey("p1", "r1", "n1", "a1", "png"); got != "projects/p1/runs/r1/nodes/n1/artifact_a1_preview.png" {
		t.Fatalf("got %q", got)
	}
}

func TestExtForMime(t *testing.T) {
	cases := map[string]string{
		"image/png":         "png",
		"image/jpeg":        "jpg",
		"application/json":  "json",
		"model/obj":         "obj",
		"model/gltf+json":   "gltf",
		"model/gltf-binary": "glb",
		"video/mp4":         "bin",
	}
	for mime, want := range cases {
		if got := ExtForMime(mime); got != want {
			t.Fatalf("ExtForMime(%q)=%q, want %q", mime, got, want)
		}
	}
}
