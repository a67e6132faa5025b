// Package localfs implements the upload destination on the local
// filesystem. It stands in for the bucket client, which lives behind the
// same Put/Exists contract.
package localfs

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"framelift/internal/port"
)

type Store struct {
	baseDir string
}

func NewStore(baseDir string) *Store {
	return &Store{baseDir: baseDir}
}

func (s *Store) destPath(destination string) string {
	return filepath.Join(s.baseDir, filepath.FromSlash(destination))
}

// Put copies localPath to the destination atomically (tmp write, then
// rename) so Exists never observes a partial artifact.
func (s *Store) Put(ctx context.Context, localPath, destination string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	dest := s.destPath(destination)
	if err := os.MkdirAll(filepath.Dir(dest), 0755); err != nil {
		return fmt.Errorf("create destination directory: %w", err)
	}

	in, err := os.Open(localPath)
	if err != nil {
		return fmt.Errorf("open artifact %s: %w", localPath, err)
	}
	defer func() { _ = in.Close() }()

	tmpPath := dest + ".tmp"
	out, err := os.Create(tmpPath)
	if err != nil {
		return fmt.Errorf("create %s: %w", tmpPath, err)
	}

	if _, err := io.Copy(out, in); err != nil {
		_ = out.Close()
		_ = os.Remove(tmpPath)
		return fmt.Errorf("copy to %s: %w", tmpPath, err)
	}
	if err := out.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("close %s: %w", tmpPath, err)
	}

	return os.Rename(tmpPath, dest)
}

func (s *Store) Exists(ctx context.Context, destination string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}

	info, err := os.Stat(s.destPath(destination))
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, err
	}
	return info.Mode().IsRegular(), nil
}

var _ port.Uploader = (*Store)(nil)
var _ port.Confirmer = (*Store)(nil)
