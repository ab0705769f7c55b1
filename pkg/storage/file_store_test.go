package storage

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestFileStorePutAndURL(t *testing.T) {
	ctx := context.Background()
	fs, err := NewFileStore(t.TempDir(), "http://localhost:8080/uploads/")
	if err != nil {
		t.Fatalf("new file store: %v", err)
	}

	content := "hello world"
	if err := fs.Put(ctx, "a@b.c/doc.txt", strings.NewReader(content), int64(len(content)), "text/plain"); err != nil {
		t.Fatalf("put: %v", err)
	}

	url, err := fs.URL(ctx, "a@b.c/doc.txt")
	if err != nil {
		t.Fatalf("url: %v", err)
	}
	if url != "http://localhost:8080/uploads/a@b.c/doc.txt" {
		t.Fatalf("unexpected url %q", url)
	}

	data, err := os.ReadFile(filepath.Join(fs.basePath, "a@b.c", "doc.txt"))
	if err != nil {
		t.Fatalf("read stored file: %v", err)
	}
	if string(data) != content {
		t.Fatalf("stored content = %q", data)
	}
}

func TestSafeKeyStripsTraversal(t *testing.T) {
	got := safeKey("a@b.c/../../etc/passwd")
	if strings.Contains(got, "..") {
		t.Fatalf("traversal survived: %q", got)
	}
}

func TestFileStoreDeleteMissingIsNoop(t *testing.T) {
	fs, err := NewFileStore(t.TempDir(), "http://localhost")
	if err != nil {
		t.Fatalf("new file store: %v", err)
	}
	if err := fs.Delete(context.Background(), "a@b.c/none.txt"); err != nil {
		t.Fatalf("delete missing: %v", err)
	}
}
