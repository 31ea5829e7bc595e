package commands

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"
	"github.com/src-d/enry/v2"

	"github.com/Sumatoshi-tech/gitradar/pkg/engine"
	"github.com/Sumatoshi-tech/gitradar/pkg/textutil"
)

// ErrNoSourceFiles is returned when the given paths hold nothing to analyze.
var ErrNoSourceFiles = errors.New("no source files found")

// Skip reasons.
const (
	skipOversized = "oversized"
	skipBinary    = "binary"
	skipVendor    = "vendor"
	skipLanguage  = "not a programming language"
	skipDuplicate = "duplicate unit id"
)

type skippedFile struct {
	Path   string
	Reason string
}

// collector gathers analyzable files from local paths.
type collector struct {
	fs      afero.Fs
	maxSize int64

	units   []engine.UnitInput
	skipped []skippedFile
	seen    map[string]bool
}

func newCollector(fsys afero.Fs, maxSize int64) *collector {
	return &collector{fs: fsys, maxSize: maxSize, seen: make(map[string]bool)}
}

// collect walks every path. Files named explicitly are always analyzed unless
// they are binary or oversized; directory walks keep programming languages
// only and skip hidden and vendored trees. Unit IDs are slash-separated and
// relative to the walked directory.
func (c *collector) collect(ctx context.Context, paths []string) error {
	for _, root := range paths {
		info, err := c.fs.Stat(root)
		if err != nil {
			return fmt.Errorf("stat %s: %w", root, err)
		}

		if !info.IsDir() {
			err = c.addFile(root, filepath.ToSlash(filepath.Clean(root)), info.Size(), false)
			if err != nil {
				return err
			}

			continue
		}

		err = c.walk(ctx, root)
		if err != nil {
			return err
		}
	}

	if len(c.units) == 0 {
		return fmt.Errorf("%w in %s", ErrNoSourceFiles, strings.Join(paths, ", "))
	}

	return nil
}

func (c *collector) walk(ctx context.Context, root string) error {
	return afero.Walk(c.fs, root, func(path string, info fs.FileInfo, err error) error {
		if err != nil {
			return err
		}

		if ctx.Err() != nil {
			return ctx.Err()
		}

		rel, relErr := filepath.Rel(root, path)
		if relErr != nil {
			return fmt.Errorf("relative path %s: %w", path, relErr)
		}

		rel = filepath.ToSlash(rel)

		if info.IsDir() {
			if rel != "." && (strings.HasPrefix(info.Name(), ".") || enry.IsVendor(rel+"/")) {
				return filepath.SkipDir
			}

			return nil
		}

		if !info.Mode().IsRegular() {
			return nil
		}

		if enry.IsVendor(rel) {
			c.skip(rel, skipVendor)

			return nil
		}

		return c.addFile(path, rel, info.Size(), true)
	})
}

func (c *collector) addFile(path, unitID string, size int64, filterLanguage bool) error {
	if c.maxSize > 0 && size > c.maxSize {
		c.skip(unitID, skipOversized)

		return nil
	}

	data, err := afero.ReadFile(c.fs, path)
	if err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}

	if textutil.IsBinary(data) {
		c.skip(unitID, skipBinary)

		return nil
	}

	if filterLanguage {
		lang := enry.GetLanguage(filepath.Base(path), data)
		if lang == "" || enry.GetLanguageType(lang) != enry.Programming {
			c.skip(unitID, skipLanguage)

			return nil
		}
	}

	if c.seen[unitID] {
		c.skip(unitID, skipDuplicate)

		return nil
	}

	c.seen[unitID] = true
	c.units = append(c.units, engine.UnitInput{ID: unitID, Text: string(data)})

	return nil
}

func (c *collector) skip(path, reason string) {
	c.skipped = append(c.skipped, skippedFile{Path: path, Reason: reason})
}
