package archive

import (
	"context"
	"os"
	"path/filepath"

	"github.com/glarchive/glarchive/pkg/storage"
)

// Fetch stages the archive at source and materializes it at dest: a
// directory tree for directory archives, a single file for bundles and
// plain streams. The archive is not opened or validated beyond transfer.
func Fetch(ctx context.Context, source, dest string, opts ...Option) error {
	o := newSessionOptions(opts)
	b, err := newBackend(ctx, source, o.store, o.logger)
	if err != nil {
		return ErrConstruction.Wrap(err)
	}
	staged, isTmpFile, err := b.stageForRead(ctx)
	if err != nil {
		return err
	}
	if isTmpFile {
		defer func() {
			if err := os.Remove(staged); err != nil {
				deferDeletion(staged)
			}
		}()
	}

	fi, err := os.Stat(staged)
	if err != nil {
		return ErrConstruction.Wrap(err)
	}
	if !fi.IsDir() {
		return copyFile(staged, dest)
	}
	return filepath.Walk(staged, func(p string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(staged, p)
		if err != nil {
			return err
		}
		return copyFile(p, filepath.Join(dest, rel))
	})
}

func copyFile(src, dst string) error {
	if err := os.MkdirAll(filepath.Dir(dst), 0700); err != nil {
		return err
	}
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()
	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	if _, err := storage.PipeIO(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}
