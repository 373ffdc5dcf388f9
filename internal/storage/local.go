package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// LocalStore keeps blobs under a directory. Locations are slash separated
// keys relative to that directory.
type LocalStore struct {
	dir string
}

func NewLocal(dir string) (*LocalStore, error) {
	if dir == "" {
		return nil, errors.New("storage: local dir is required")
	}
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("storage: create %s: %w", dir, err)
	}
	return &LocalStore{dir: dir}, nil
}

func (s *LocalStore) path(location string) (string, error) {
	p := filepath.Join(s.dir, filepath.FromSlash(location))
	rel, err := filepath.Rel(s.dir, p)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("storage: location %q escapes %s", location, s.dir)
	}
	return p, nil
}

// Put writes r to a temporary file and renames it into place, so a failed
// copy leaves nothing behind.
func (s *LocalStore) Put(ctx context.Context, prefix, filename, contentType string, r io.Reader) (string, error) {
	key := objectKey(prefix, filename)
	dst, err := s.path(key)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(filepath.Dir(dst), 0o750); err != nil {
		return "", fmt.Errorf("storage: create dir: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(dst), ".upload-*")
	if err != nil {
		return "", fmt.Errorf("storage: create temp: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := io.Copy(tmp, r); err != nil {
		tmp.Close()
		return "", fmt.Errorf("storage: write %s: %w", key, err)
	}
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("storage: close %s: %w", key, err)
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if err := os.Rename(tmp.Name(), dst); err != nil {
		return "", fmt.Errorf("storage: commit %s: %w", key, err)
	}
	return key, nil
}

func (s *LocalStore) Delete(ctx context.Context, location string) error {
	p, err := s.path(location)
	if err != nil {
		return err
	}
	if err := os.Remove(p); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("storage: delete %s: %w", location, err)
	}
	return nil
}

func (s *LocalStore) Close() error { return nil }
