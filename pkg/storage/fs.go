package storage

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"

	"github.com/spf13/afero"
)

const (
	dirPerm  = 0o755
	filePerm = 0o644
)

// FSStore is a BlobStore rooted at a directory of an afero filesystem.
type FSStore struct {
	fs afero.Fs
}

// NewFSStore roots a store at dir on fsys. A nil fsys means the OS filesystem.
func NewFSStore(fsys afero.Fs, dir string) *FSStore {
	if fsys == nil {
		fsys = afero.NewOsFs()
	}

	if dir != "" && dir != "." {
		fsys = afero.NewBasePathFs(fsys, dir)
	}

	return &FSStore{fs: fsys}
}

// List walks the tree below prefix and returns slash-separated file keys.
func (s *FSStore) List(ctx context.Context, prefix string) ([]string, error) {
	root := "."

	if prefix != "" {
		cleaned, err := cleanKey(prefix)
		if err != nil {
			return nil, err
		}

		root = filepath.FromSlash(cleaned)
	}

	var keys []string

	err := afero.Walk(s.fs, root, func(p string, info fs.FileInfo, walkErr error) error {
		if walkErr != nil {
			if errors.Is(walkErr, os.ErrNotExist) {
				return nil
			}

			return walkErr
		}

		if ctx.Err() != nil {
			return ctx.Err()
		}

		if info.Mode().IsRegular() {
			keys = append(keys, filepath.ToSlash(filepath.Clean(p)))
		}

		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("list %q: %w", prefix, err)
	}

	slices.Sort(keys)

	return keys, nil
}

// Get reads one file.
func (s *FSStore) Get(_ context.Context, key string) ([]byte, error) {
	cleaned, err := cleanKey(key)
	if err != nil {
		return nil, err
	}

	data, err := afero.ReadFile(s.fs, filepath.FromSlash(cleaned))
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, key)
	}

	if err != nil {
		return nil, fmt.Errorf("read %s: %w", key, err)
	}

	return data, nil
}

// Put writes one file, creating parent directories.
func (s *FSStore) Put(_ context.Context, key string, data []byte) error {
	cleaned, err := cleanKey(key)
	if err != nil {
		return err
	}

	name := filepath.FromSlash(cleaned)

	err = s.fs.MkdirAll(filepath.Dir(name), dirPerm)
	if err != nil {
		return fmt.Errorf("create parent of %s: %w", key, err)
	}

	err = afero.WriteFile(s.fs, name, data, filePerm)
	if err != nil {
		return fmt.Errorf("write %s: %w", key, err)
	}

	return nil
}
