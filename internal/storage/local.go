package storage

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// LocalStore keeps artifacts in a directory tree mirroring the store
// keys. Used for development and tests.
type LocalStore struct {
	dir     string
	baseURL string
}

// NewLocalStore creates a store rooted at dir. baseURL prefixes the
// values returned by URL; when empty, file:// URLs are returned.
func NewLocalStore(dir, baseURL string) *LocalStore {
	return &LocalStore{dir: dir, baseURL: baseURL}
}

func (s *LocalStore) path(key string) string {
	return filepath.Join(s.dir, filepath.FromSlash(key))
}

// Put writes body to the file at key, creating parent directories.
func (s *LocalStore) Put(ctx context.Context, key string, body io.Reader, contentType string, length int64) error {
	p := s.path(key)
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		return fmt.Errorf("creating storage directory for %s: %w", key, err)
	}

	f, err := os.Create(p)
	if err != nil {
		return fmt.Errorf("creating %s: %w", key, err)
	}
	n, err := io.Copy(f, body)
	if err != nil {
		f.Close()
		return fmt.Errorf("writing %s: %w", key, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("closing %s: %w", key, err)
	}
	if length >= 0 && n != length {
		return fmt.Errorf("writing %s: wrote %d bytes, expected %d", key, n, length)
	}
	return nil
}

// Delete removes the file at key. Missing files are not an error.
func (s *LocalStore) Delete(ctx context.Context, key string) error {
	if err := os.Remove(s.path(key)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("deleting %s: %w", key, err)
	}
	return nil
}

// URL returns the download location for a key.
func (s *LocalStore) URL(key string) string {
	if s.baseURL != "" {
		return s.baseURL + key
	}
	return "file://" + s.path(key)
}
