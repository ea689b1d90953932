package fs

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"

	"go.uber.org/zap"

	"github.com/jaxxstorm/docuflow/internal/storage"
)

func TestPutGetRoundTrip(t *testing.T) {
	s := New(t.TempDir(), zap.NewNop())
	ctx := context.Background()

	n, err := s.Put(ctx, "executions/exec-1/report.json", bytes.NewReader([]byte(`{"ok":true}`)), "application/json")
	if err != nil {
		t.Fatalf("put: %v", err)
	}
	if n != 11 {
		t.Errorf("expected 11 bytes written, got %d", n)
	}

	r, err := s.Get(ctx, "executions/exec-1/report.json")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	defer r.Close()

	data, err := io.ReadAll(r)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if string(data) != `{"ok":true}` {
		t.Errorf("expected round-tripped content, got %q", data)
	}
}

func TestExistsAndDelete(t *testing.T) {
	s := New(t.TempDir(), zap.NewNop())
	ctx := context.Background()

	exists, err := s.Exists(ctx, "missing/path")
	if err != nil {
		t.Fatalf("exists: %v", err)
	}
	if exists {
		t.Fatal("expected missing path to not exist")
	}

	if _, err := s.Put(ctx, "a/b.txt", bytes.NewReader([]byte("hi")), "text/plain"); err != nil {
		t.Fatalf("put: %v", err)
	}

	exists, err = s.Exists(ctx, "a/b.txt")
	if err != nil || !exists {
		t.Fatalf("expected path to exist, got exists=%v err=%v", exists, err)
	}

	if err := s.Delete(ctx, "a/b.txt"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	exists, _ = s.Exists(ctx, "a/b.txt")
	if exists {
		t.Error("expected path to be gone after delete")
	}

	// deleting an already-absent path is not an error
	if err := s.Delete(ctx, "a/b.txt"); err != nil {
		t.Errorf("expected delete of missing path to succeed, got %v", err)
	}
}

func TestGetMissingReturnsErrNotExist(t *testing.T) {
	s := New(t.TempDir(), zap.NewNop())
	_, err := s.Get(context.Background(), "nope.txt")
	if !errors.Is(err, storage.ErrNotExist) {
		t.Errorf("expected storage.ErrNotExist, got %v", err)
	}
}

func TestPathTraversalIsNeutralizedWithinRoot(t *testing.T) {
	root := t.TempDir()
	s := New(root, zap.NewNop())

	if _, err := s.Put(context.Background(), "../../etc/passwd", bytes.NewReader([]byte("hi")), "text/plain"); err != nil {
		t.Fatalf("put: %v", err)
	}

	if _, err := os.Stat(filepath.Join(root, "etc", "passwd")); err != nil {
		t.Errorf("expected traversal to land inside root at etc/passwd, got %v", err)
	}
}

func TestURLReturnsFileScheme(t *testing.T) {
	root := t.TempDir()
	s := New(root, zap.NewNop())
	url, err := s.URL(context.Background(), "a/b.txt", 60)
	if err != nil {
		t.Fatalf("url: %v", err)
	}
	if len(url) < 7 || url[:7] != "file://" {
		t.Errorf("expected file:// scheme, got %q", url)
	}
}
