package storage

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func newTestFSStore(t *testing.T) *FSImageStore {
	t.Helper()
	store, err := NewFSImageStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewFSImageStore returned error: %v", err)
	}
	return store
}

func TestFSImageStore_SaveAndOpen(t *testing.T) {
	store := newTestFSStore(t)
	ctx := context.Background()

	key, err := store.Save(ctx, "recipe-1", ".png", strings.NewReader("png-bytes"))
	if err != nil {
		t.Fatalf("Save returned error: %v", err)
	}
	if !strings.HasPrefix(key, "recipes/recipe-1/") {
		t.Errorf("key = %q, want prefix %q", key, "recipes/recipe-1/")
	}

	body, contentType, err := store.Open(ctx, key)
	if err != nil {
		t.Fatalf("Open returned error: %v", err)
	}
	defer body.Close()

	if contentType != "image/png" {
		t.Errorf("content type = %q, want %q", contentType, "image/png")
	}
	data, err := io.ReadAll(body)
	if err != nil {
		t.Fatalf("failed to read image: %v", err)
	}
	if string(data) != "png-bytes" {
		t.Errorf("data = %q, want %q", data, "png-bytes")
	}
}

func TestFSImageStore_Delete(t *testing.T) {
	store := newTestFSStore(t)
	ctx := context.Background()

	key, err := store.Save(ctx, "recipe-1", ".jpg", strings.NewReader("jpg-bytes"))
	if err != nil {
		t.Fatalf("Save returned error: %v", err)
	}

	if err := store.Delete(ctx, key); err != nil {
		t.Fatalf("Delete returned error: %v", err)
	}

	if _, _, err := store.Open(ctx, key); err == nil {
		t.Error("Open should fail after Delete")
	}
}

func TestFSImageStore_Delete_MissingKey_NoError(t *testing.T) {
	store := newTestFSStore(t)

	if err := store.Delete(context.Background(), "recipes/recipe-1/missing.jpg"); err != nil {
		t.Errorf("Delete of missing key should not error, got %v", err)
	}
}

func TestFSImageStore_RejectsPathTraversal(t *testing.T) {
	store := newTestFSStore(t)
	ctx := context.Background()

	traversalKeys := []string{
		"../outside.jpg",
		"recipes/../../outside.jpg",
		"..",
	}

	for _, key := range traversalKeys {
		t.Run(key, func(t *testing.T) {
			if _, _, err := store.Open(ctx, key); err == nil {
				t.Errorf("Open(%q) should have returned error", key)
			}
			if err := store.Delete(ctx, key); err == nil {
				t.Errorf("Delete(%q) should have returned error", key)
			}
		})
	}
}

func TestNewFSImageStore_CreatesBaseDir(t *testing.T) {
	base := filepath.Join(t.TempDir(), "images", "nested")

	if _, err := NewFSImageStore(base); err != nil {
		t.Fatalf("NewFSImageStore returned error: %v", err)
	}

	info, err := os.Stat(base)
	if err != nil {
		t.Fatalf("base directory was not created: %v", err)
	}
	if !info.IsDir() {
		t.Error("base path is not a directory")
	}
}
