// Package commit moves a finished build into the permanent store and
// records it.
//
// A commit runs under the package's lock and in this order: the built tree
// is moved next to its destination, any tree already at the destination is
// moved aside, the new tree is renamed into place, the opt link is
// repointed, and the installation record is written. Superseded trees are
// removed last. Readers therefore see either the old installation or the
// new one.
package commit

import (
	"context"
	"os"
	"path/filepath"
	"time"

	"github.com/arthur-debert/dopkg/pkg/errors"
	"github.com/arthur-debert/dopkg/pkg/filesystem"
	"github.com/arthur-debert/dopkg/pkg/lock"
	"github.com/arthur-debert/dopkg/pkg/logging"
	"github.com/arthur-debert/dopkg/pkg/paths"
	"github.com/arthur-debert/dopkg/pkg/store"
	"github.com/arthur-debert/dopkg/pkg/types"
	"github.com/google/renameio"
	"github.com/google/uuid"
)

const (
	incomingPrefix   = ".incoming-"
	supersededPrefix = ".superseded-"
)

// Committer installs build output into the cellar
type Committer struct {
	Paths  paths.Paths
	Store  store.Store
	Locker lock.Locker
	Mover  *filesystem.Mover

	// Now stamps records; tests replace it
	Now func() time.Time
}

// New returns a Committer with an os.Rename mover and the wall clock
func New(p paths.Paths, s store.Store, l lock.Locker) *Committer {
	return &Committer{
		Paths:  p,
		Store:  s,
		Locker: l,
		Mover:  filesystem.NewMover(),
		Now:    time.Now,
	}
}

// Commit installs the tree at outputRoot as f.Name at f.Version and returns
// the record it wrote. Cancellation is honoured until the tree starts to
// move. After that the commit runs to completion.
func (c *Committer) Commit(ctx context.Context, outputRoot string, f types.Formula) (types.InstallationRecord, error) {
	logger := logging.ForFormula("commit", f.Name, f.Version)
	done := logging.LogOperationStart(logger, "commit")
	defer done()

	unlock, err := c.Locker.Lock(ctx, f.Name)
	if err != nil {
		return types.InstallationRecord{}, err
	}
	defer unlock()

	previous, hadPrevious, err := c.Store.Lookup(f.Name)
	if err != nil {
		// A corrupt record is about to be replaced; its tree cannot be trusted
		// for cleanup.
		logger.Warn().Err(err).Msg("ignoring unreadable previous record")
		hadPrevious = false
	}

	if err := errors.FromContext(ctx, "commit cancelled"); err != nil {
		return types.InstallationRecord{}, err
	}
	ctx = context.WithoutCancel(ctx)

	pkgDir := c.Paths.PackageDir(f.Name)
	dest := c.Paths.PrefixDir(f.Name, f.Version)
	if err := os.MkdirAll(pkgDir, 0o755); err != nil {
		return types.InstallationRecord{}, ioError(err, "failed to create package directory", pkgDir)
	}

	incoming := filepath.Join(pkgDir, incomingPrefix+uuid.NewString())
	if err := c.Mover.MoveTree(ctx, outputRoot, incoming); err != nil {
		_ = os.RemoveAll(incoming)
		return types.InstallationRecord{}, err
	}

	files, err := filesystem.ListFiles(incoming)
	if err != nil {
		_ = os.RemoveAll(incoming)
		return types.InstallationRecord{}, err
	}

	superseded := ""
	if _, err := os.Lstat(dest); err == nil {
		superseded = filepath.Join(pkgDir, supersededPrefix+uuid.NewString())
		if err := os.Rename(dest, superseded); err != nil {
			_ = os.RemoveAll(incoming)
			return types.InstallationRecord{}, ioError(err, "failed to move existing installation aside", dest)
		}
		logger.Debug().Str("superseded", superseded).Msg("existing installation moved aside")
	}

	if err := os.Rename(incoming, dest); err != nil {
		if superseded != "" {
			if rerr := os.Rename(superseded, dest); rerr != nil {
				logger.Error().Err(rerr).Str("superseded", superseded).Msg("failed to restore previous installation")
			}
		}
		_ = os.RemoveAll(incoming)
		return types.InstallationRecord{}, ioError(err, "failed to move build into place", dest)
	}

	if err := c.link(f.Name, dest); err != nil {
		c.rollback(f.Name, dest, superseded, previous, hadPrevious)
		return types.InstallationRecord{}, err
	}

	rec := types.InstallationRecord{
		Name:          f.Name,
		Version:       f.Version,
		Prefix:        dest,
		Files:         files,
		SourceURL:     f.URL,
		SourceHash:    f.Hash,
		HashAlgorithm: f.Algorithm,
		Dependencies:  dependencyNames(f.Dependencies),
		InstalledAt:   c.now().UTC().Truncate(time.Second),
	}
	if err := c.Store.Put(rec); err != nil {
		c.rollback(f.Name, dest, superseded, previous, hadPrevious)
		return types.InstallationRecord{}, err
	}

	if superseded != "" {
		c.removeTree(superseded)
	}
	if hadPrevious && previous.Prefix != dest && paths.ContainsPath(pkgDir, previous.Prefix) && previous.Prefix != pkgDir {
		c.removeTree(previous.Prefix)
	}

	logger.Info().Str("prefix", dest).Int("files", len(files)).Msg("Installed")
	return rec, nil
}

// Remove uninstalls name: the opt link, the record and every installed
// version under the package directory. It returns NOT_FOUND when name has no
// record.
func (c *Committer) Remove(ctx context.Context, name string) error {
	logger := logging.GetLogger("commit").With().Str("formula", name).Logger()

	unlock, err := c.Locker.Lock(ctx, name)
	if err != nil {
		return err
	}
	defer unlock()

	rec, ok, err := c.Store.Lookup(name)
	if err != nil {
		return err
	}
	if !ok {
		return errors.Newf(errors.ErrNotFound, "%s is not installed", name)
	}
	if err := errors.FromContext(ctx, "uninstall cancelled"); err != nil {
		return err
	}

	link := c.Paths.OptLink(name)
	if err := os.Remove(link); err != nil && !os.IsNotExist(err) {
		return ioError(err, "failed to remove opt link", link)
	}
	if err := c.Store.Remove(name); err != nil {
		return err
	}
	pkgDir := c.Paths.PackageDir(name)
	if err := os.RemoveAll(pkgDir); err != nil {
		return ioError(err, "failed to remove installed files", pkgDir)
	}

	logger.Info().Str("version", rec.Version).Msg("Uninstalled")
	return nil
}

// link points opt/<name> at dest, replacing any previous link atomically
func (c *Committer) link(name, dest string) error {
	if err := os.MkdirAll(c.Paths.OptDir(), 0o755); err != nil {
		return ioError(err, "failed to create opt directory", c.Paths.OptDir())
	}
	link := c.Paths.OptLink(name)
	if err := renameio.Symlink(dest, link); err != nil {
		return ioError(err, "failed to link installation", link)
	}
	return nil
}

// rollback undoes a commit that failed after the new tree was renamed into
// place: the tree is discarded, the superseded one restored and the opt link
// pointed back at the previous installation. Whatever cannot be undone is
// logged with its path for manual recovery.
func (c *Committer) rollback(name, dest, superseded string, previous types.InstallationRecord, hadPrevious bool) {
	logger := logging.GetLogger("commit").With().Str("formula", name).Logger()

	if err := os.RemoveAll(dest); err != nil {
		logger.Error().Err(err).Str("path", dest).Msg("failed to discard uncommitted installation")
	}
	if superseded != "" {
		if err := os.Rename(superseded, dest); err != nil {
			logger.Error().Err(err).Str("superseded", superseded).Str("path", dest).
				Msg("failed to restore previous installation, move it back by hand")
		}
	}

	link := c.Paths.OptLink(name)
	if hadPrevious {
		if err := c.link(name, previous.Prefix); err != nil {
			logger.Error().Err(err).Str("link", link).Str("target", previous.Prefix).Msg("failed to restore opt link")
		}
		return
	}
	if target, err := os.Readlink(link); err == nil && target == dest {
		if err := os.Remove(link); err != nil {
			logger.Error().Err(err).Str("link", link).Msg("failed to remove dangling opt link")
		}
	}
}

func (c *Committer) removeTree(dir string) {
	if err := os.RemoveAll(dir); err != nil {
		logger := logging.GetLogger("commit")
		logger.Warn().Err(err).Str("path", dir).Msg("failed to remove superseded tree")
	}
}

func (c *Committer) now() time.Time {
	if c.Now == nil {
		return time.Now()
	}
	return c.Now()
}

func ioError(err error, message, path string) error {
	return errors.Wrap(err, errors.ErrIO, message).WithDetail(errors.DetailPath, path)
}

// dependencyNames renders dependencies the way recipes declare them
func dependencyNames(deps []types.Dependency) []string {
	if len(deps) == 0 {
		return nil
	}
	names := make([]string, 0, len(deps))
	for _, d := range deps {
		if d.Kind == types.DependencyBuild {
			names = append(names, d.Name+":build")
			continue
		}
		names = append(names, d.Name)
	}
	return names
}
