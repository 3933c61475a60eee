package localfs

import (
	"context"
	"io"
	"path/filepath"
	"strings"
	"testing"
)

func TestSaveOpenStatResolve(t *testing.T) {
	store, err := New(t.TempDir())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	ctx := context.Background()

	if err := store.Save(ctx, "doc-1_report.txt", strings.NewReader("hello")); err != nil {
		t.Fatalf("Save: %v", err)
	}

	size, err := store.Stat(ctx, "doc-1_report.txt")
	if err != nil {
		t.Fatalf("Stat: %v", err)
	}
	if size != 5 {
		t.Errorf("size = %d, want 5", size)
	}

	rc, err := store.Open(ctx, "doc-1_report.txt")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer rc.Close()
	data, err := io.ReadAll(rc)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "hello" {
		t.Errorf("data = %q", data)
	}

	if path := store.Resolve("doc-1_report.txt"); !filepath.IsAbs(path) {
		t.Errorf("Resolve returned relative path %q", path)
	}
}

func TestStatMissingFile(t *testing.T) {
	store, err := New(t.TempDir())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if _, err := store.Stat(context.Background(), "nope.pdf"); err == nil {
		t.Fatal("expected error for missing file")
	}
}
