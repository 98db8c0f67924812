package filesystem

import (
	"context"
	stderrors "errors"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"syscall"

	"github.com/arthur-debert/dopkg/pkg/errors"
	"github.com/arthur-debert/dopkg/pkg/logging"
)

// RenameFunc matches os.Rename. Tests substitute it to simulate EXDEV.
type RenameFunc func(oldpath, newpath string) error

// Mover relocates directory trees, falling back to copy and delete when a
// rename crosses filesystems.
type Mover struct {
	Rename RenameFunc
}

// NewMover returns a Mover backed by os.Rename
func NewMover() *Mover {
	return &Mover{Rename: os.Rename}
}

// IsCrossDevice reports whether err is the EXDEV rename failure.
func IsCrossDevice(err error) bool {
	var linkErr *os.LinkError
	if stderrors.As(err, &linkErr) {
		err = linkErr.Err
	}
	return stderrors.Is(err, syscall.EXDEV)
}

// MoveTree moves src to dst. dst must not exist. When a plain rename fails
// with EXDEV the tree is copied next to dst under a temporary name, renamed
// into place and the source removed. ctx is checked between files of a copy.
func (m *Mover) MoveTree(ctx context.Context, src, dst string) error {
	logger := logging.GetLogger("filesystem.move")

	err := m.Rename(src, dst)
	if err == nil {
		return nil
	}
	if !IsCrossDevice(err) {
		return errors.Wrapf(err, errors.ErrIO, "failed to move %s", src).
			WithDetail(errors.DetailPath, dst)
	}

	logger.Debug().Str("src", src).Str("dst", dst).Msg("cross-device move, copying tree")

	tmp := dst + ".copy"
	_ = os.RemoveAll(tmp)
	if err := CopyTree(ctx, src, tmp); err != nil {
		_ = os.RemoveAll(tmp)
		return err
	}
	if err := m.Rename(tmp, dst); err != nil {
		_ = os.RemoveAll(tmp)
		return errors.Wrapf(err, errors.ErrIO, "failed to move copied tree into %s", dst).
			WithDetail(errors.DetailPath, dst)
	}
	if err := os.RemoveAll(src); err != nil {
		logger.Warn().Err(err).Str("src", src).Msg("failed to remove source after copy")
	}
	return nil
}

// CopyTree copies the directory tree at src to dst, preserving file modes and
// symlinks. dst must not exist.
func CopyTree(ctx context.Context, src, dst string) error {
	return filepath.WalkDir(src, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return errors.Wrapf(walkErr, errors.ErrIO, "failed to walk %s", path)
		}
		if err := ctx.Err(); err != nil {
			return errors.Cancelled(err, "copy interrupted")
		}

		rel, err := filepath.Rel(src, path)
		if err != nil {
			return errors.Wrap(err, errors.ErrInternal, "failed to compute relative path")
		}
		target := filepath.Join(dst, rel)

		info, err := d.Info()
		if err != nil {
			return errors.Wrapf(err, errors.ErrIO, "failed to stat %s", path)
		}

		switch {
		case d.IsDir():
			if err := os.MkdirAll(target, info.Mode().Perm()|0o700); err != nil {
				return errors.Wrapf(err, errors.ErrIO, "failed to create %s", target)
			}
		case info.Mode()&fs.ModeSymlink != 0:
			link, err := os.Readlink(path)
			if err != nil {
				return errors.Wrapf(err, errors.ErrIO, "failed to read link %s", path)
			}
			if err := os.Symlink(link, target); err != nil {
				return errors.Wrapf(err, errors.ErrIO, "failed to create link %s", target)
			}
		case info.Mode().IsRegular():
			if err := copyFile(path, target, info.Mode().Perm()); err != nil {
				return err
			}
		default:
			// Device nodes, sockets and fifos have no place in a prefix
			logger := logging.GetLogger("filesystem.move")
			logger.Debug().Str("path", path).Msg("skipping special file")
		}
		return nil
	})
}

func copyFile(src, dst string, perm fs.FileMode) error {
	in, err := os.Open(src)
	if err != nil {
		return errors.Wrapf(err, errors.ErrIO, "failed to open %s", src)
	}
	defer func() { _ = in.Close() }()

	out, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_EXCL, perm)
	if err != nil {
		return errors.Wrapf(err, errors.ErrIO, "failed to create %s", dst)
	}
	if _, err := io.Copy(out, in); err != nil {
		_ = out.Close()
		return errors.Wrapf(err, errors.ErrIO, "failed to copy %s", src)
	}
	if err := out.Close(); err != nil {
		return errors.Wrapf(err, errors.ErrIO, "failed to close %s", dst)
	}
	return nil
}

// ListFiles returns the regular files and symlinks under root as slash
// separated paths relative to root, in lexical order.
func ListFiles(root string) ([]string, error) {
	var files []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		files = append(files, filepath.ToSlash(rel))
		return nil
	})
	if err != nil {
		return nil, errors.Wrapf(err, errors.ErrIO, "failed to list %s", root)
	}
	return files, nil
}
