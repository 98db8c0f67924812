// Package stage allocates per-attempt staging directories and unpacks source
// archives into them.
package stage

import (
	"context"
	"os"
	"path/filepath"
	"sync"

	"github.com/arthur-debert/dopkg/pkg/archive"
	"github.com/arthur-debert/dopkg/pkg/errors"
	"github.com/arthur-debert/dopkg/pkg/logging"
	"github.com/google/uuid"
)

const (
	srcDir = "src"
	outDir = "out"
)

// Manager creates stages under a staging root
type Manager struct {
	root string
}

// NewManager returns a Manager rooted at root, which is created on demand
func NewManager(root string) *Manager {
	return &Manager{root: root}
}

// Root returns the staging root
func (m *Manager) Root() string {
	return m.root
}

// Stage is one attempt's exclusively owned scratch tree:
//
//	<root>/<name>-<uuid>/
//	  src/   unpacked sources
//	  out/   build prefix
type Stage struct {
	dir       string
	sourceDir string

	once sync.Once
	err  error
}

// Stage allocates a fresh directory and unpacks archivePath into it. On any
// failure the partially populated directory is removed before returning.
func (m *Manager) Stage(ctx context.Context, archivePath, name string) (*Stage, error) {
	logger := logging.GetLogger("stage").With().Str("formula", name).Logger()

	if err := errors.FromContext(ctx, "staging cancelled"); err != nil {
		return nil, err
	}
	if err := os.MkdirAll(m.root, 0o755); err != nil {
		return nil, errors.Wrapf(err, errors.ErrStaging, "failed to create staging root %s", m.root).
			WithDetail(errors.DetailPath, m.root)
	}

	dir := filepath.Join(m.root, name+"-"+uuid.NewString())
	s := &Stage{dir: dir}
	for _, sub := range []string{srcDir, outDir} {
		if err := os.MkdirAll(filepath.Join(dir, sub), 0o755); err != nil {
			_ = s.Release()
			return nil, errors.Wrapf(err, errors.ErrStaging, "failed to create %s", sub).
				WithDetail(errors.DetailPath, dir)
		}
	}

	stats, err := archive.Extract(ctx, archivePath, filepath.Join(dir, srcDir))
	if err != nil {
		if rerr := s.Release(); rerr != nil {
			logger.Warn().Err(rerr).Str("dir", dir).Msg("failed to release stage after unpack error")
		}
		return nil, err
	}

	s.sourceDir = sourceRoot(filepath.Join(dir, srcDir))
	logger.Debug().
		Str("dir", dir).
		Str("format", string(stats.Format)).
		Int("files", stats.Files).
		Msg("Staged sources")
	return s, nil
}

// sourceRoot descends into the sole top level directory when there is one,
// which is how release tarballs are usually laid out.
func sourceRoot(src string) string {
	entries, err := os.ReadDir(src)
	if err != nil || len(entries) != 1 {
		return src
	}
	if !entries[0].IsDir() {
		return src
	}
	return filepath.Join(src, entries[0].Name())
}

// Dir returns the stage root
func (s *Stage) Dir() string { return s.dir }

// SourceDir returns the directory install steps run in
func (s *Stage) SourceDir() string { return s.sourceDir }

// OutputDir returns the build prefix
func (s *Stage) OutputDir() string { return filepath.Join(s.dir, outDir) }

// Release removes the stage. It is safe to call more than once and from
// several goroutines; later calls return the first call's result.
func (s *Stage) Release() error {
	s.once.Do(func() {
		if err := os.RemoveAll(s.dir); err != nil {
			s.err = errors.Wrapf(err, errors.ErrStaging, "failed to remove stage %s", s.dir).
				WithDetail(errors.DetailPath, s.dir)
		}
	})
	return s.err
}
