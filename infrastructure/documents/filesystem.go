package documents

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

// ErrDirRequired is returned when a filesystem lister has no directory.
var ErrDirRequired = errors.New("documents: directory is required")

type fsSource struct {
	dir string
}

// NewFilesystemLister creates a document lister over a local directory laid
// out like a bucket. It suits single-node deployments and development.
func NewFilesystemLister(dir, root string) (*Lister, error) {
	if dir == "" {
		return nil, ErrDirRequired
	}
	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to access documents directory: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("documents path %s is not a directory", dir)
	}
	return newLister(&fsSource{dir: dir}, "filesystem", root), nil
}

func (s *fsSource) listObjects(ctx context.Context, prefix string) ([]objectInfo, error) {
	base := filepath.Join(s.dir, filepath.FromSlash(prefix))

	var objects []objectInfo
	err := filepath.WalkDir(base, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return fs.SkipAll
			}
			return err
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if d.IsDir() {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(s.dir, path)
		if err != nil {
			return err
		}
		objects = append(objects, objectInfo{Key: filepath.ToSlash(rel), LastModified: info.ModTime().UTC()})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list documents: %w", err)
	}
	return objects, nil
}
