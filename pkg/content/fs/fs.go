// Package fs provides a local-filesystem content store.
package fs

import (
	"context"
	"errors"
	"fmt"
	iofs "io/fs"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/corpusd/corpusd/pkg/content"
	"github.com/corpusd/corpusd/pkg/corpus"
)

// Ensure Store implements content.Store
var _ content.Store = (*Store)(nil)

// Store implements content.Store on a local directory. Each blob lives
// at <root>/<key>; keys may contain slashes to form subdirectories.
type Store struct {
	root   string
	logger *zap.Logger
}

// NewStore creates a filesystem content store rooted at dir, creating
// the directory if needed.
func NewStore(dir string, logger *zap.Logger) (*Store, error) {
	if dir == "" {
		return nil, fmt.Errorf("content directory is required")
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating content directory: %w", err)
	}

	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("resolving content directory: %w", err)
	}

	logger.Debug("filesystem content store initialized",
		zap.String("root", abs),
	)

	return &Store{root: abs, logger: logger}, nil
}

// path resolves a key inside the root, rejecting traversal outside it.
func (s *Store) path(key string) (string, error) {
	if key == "" {
		return "", fmt.Errorf("%w: empty content key", corpus.ErrValidation)
	}

	p := filepath.Join(s.root, filepath.FromSlash(key))
	if !strings.HasPrefix(p, s.root+string(filepath.Separator)) {
		return "", fmt.Errorf("%w: content key %q escapes store root", corpus.ErrValidation, key)
	}

	return p, nil
}

// Put stores data under key, creating parent directories as needed.
// The write goes through a temp file and rename so a crash never leaves
// a partially written blob under the final key.
func (s *Store) Put(ctx context.Context, key string, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	p, err := s.path(key)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		return fmt.Errorf("creating blob directory: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(p), ".put-*")
	if err != nil {
		return fmt.Errorf("creating temp blob: %w", err)
	}

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("writing blob: %w", err)
	}

	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("closing temp blob: %w", err)
	}

	if err := os.Rename(tmp.Name(), p); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("committing blob: %w", err)
	}

	s.logger.Debug("stored content blob",
		zap.String("key", key),
		zap.Int("bytes", len(data)),
	)

	return nil
}

// Get retrieves the bytes stored under key.
func (s *Store) Get(ctx context.Context, key string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	p, err := s.path(key)
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(p)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("content blob %s: %w", key, corpus.ErrNotFound)
		}
		return nil, fmt.Errorf("reading blob: %w", err)
	}

	return data, nil
}

// Delete removes the blob under key; missing blobs are a no-op.
func (s *Store) Delete(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	p, err := s.path(key)
	if err != nil {
		return err
	}

	if err := os.Remove(p); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("deleting blob: %w", err)
	}

	return nil
}

// List walks the store root and returns every blob key. In-flight temp
// files are skipped.
func (s *Store) List(ctx context.Context) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var keys []string
	err := filepath.WalkDir(s.root, func(p string, d iofs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || strings.HasPrefix(d.Name(), ".put-") {
			return nil
		}

		rel, err := filepath.Rel(s.root, p)
		if err != nil {
			return err
		}
		keys = append(keys, filepath.ToSlash(rel))
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("listing blobs: %w", err)
	}

	return keys, nil
}

// Close is a no-op for the filesystem store.
func (s *Store) Close() error {
	return nil
}
