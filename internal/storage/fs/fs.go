// Package fs implements storage.ObjectStore against the local filesystem,
// the local/dev fallback for when no S3 bucket is configured — the same
// factory-switch posture as database.NewProvider's postgres/sqlite choice.
package fs

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/jaxxstorm/docuflow/internal/storage"
)

// Store implements storage.ObjectStore rooted at a local directory.
type Store struct {
	root   string
	logger *zap.Logger
}

// New creates an fs-backed store rooted at root. The directory is created
// on first use, not at construction, matching Put's lazy-mkdir idiom.
func New(root string, logger *zap.Logger) *Store {
	return &Store{root: root, logger: logger.With(zap.String("component", "storage-fs"), zap.String("root", root))}
}

// resolve joins path under root. Prefixing with "/" before Clean means a
// leading ".." in path can never survive to escape root: Clean resolves
// ".." against an absolute path by dropping it at the root boundary.
func (s *Store) resolve(path string) string {
	return filepath.Join(s.root, filepath.Clean("/"+path))
}

// Put writes data to root/path, creating parent directories as needed.
func (s *Store) Put(ctx context.Context, path string, data io.Reader, contentType string) (int64, error) {
	full := s.resolve(path)
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return 0, fmt.Errorf("mkdir: %w", err)
	}

	f, err := os.Create(full)
	if err != nil {
		return 0, fmt.Errorf("create: %w", err)
	}
	defer f.Close()

	n, err := io.Copy(f, data)
	if err != nil {
		s.logger.Error("fs put failed", zap.String("path", path), zap.Error(err))
		return 0, err
	}
	return n, nil
}

// Get opens root/path for reading.
func (s *Store) Get(ctx context.Context, path string) (io.ReadCloser, error) {
	full := s.resolve(path)
	f, err := os.Open(full)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, storage.ErrNotExist
		}
		return nil, err
	}
	return f, nil
}

// Exists reports whether root/path is present.
func (s *Store) Exists(ctx context.Context, path string) (bool, error) {
	full := s.resolve(path)
	_, err := os.Stat(full)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// Delete removes root/path. A nonexistent path is not an error.
func (s *Store) Delete(ctx context.Context, path string) error {
	full := s.resolve(path)
	if err := os.Remove(full); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}

// URL returns a file:// path. ttlSeconds is ignored — local files have no
// expiry.
func (s *Store) URL(ctx context.Context, path string, ttlSeconds int) (string, error) {
	return "file://" + s.resolve(path), nil
}
