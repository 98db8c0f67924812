package testutil

import (
	"path/filepath"
	"testing"

	"github.com/arthur-debert/dopkg/pkg/filesystem"
	"github.com/arthur-debert/dopkg/pkg/paths"
	"github.com/arthur-debert/dopkg/pkg/store"
)

// Environment is an isolated dopkg installation rooted in a temp directory
type Environment struct {
	Root  string
	Home  string
	Paths paths.Paths
	Store store.Store
}

// NewEnvironment redirects HOME, XDG and DOPKG_* variables into a fresh temp
// directory and returns the resulting layout. It uses t.Setenv, so tests
// using it cannot run in parallel.
func NewEnvironment(t *testing.T) *Environment {
	t.Helper()

	root := t.TempDir()
	env := &Environment{
		Root: root,
		Home: filepath.Join(root, "home"),
	}

	t.Setenv(paths.EnvHome, env.Home)
	t.Setenv("XDG_DATA_HOME", filepath.Join(root, "data"))
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(root, "config"))
	t.Setenv("XDG_CACHE_HOME", filepath.Join(root, "cache"))
	t.Setenv("XDG_STATE_HOME", filepath.Join(root, "state"))
	t.Setenv(paths.EnvDopkgHome, filepath.Join(root, "data", paths.DopkgDirName))
	t.Setenv(paths.EnvDopkgCacheDir, filepath.Join(root, "cache", paths.DopkgDirName))
	t.Setenv(paths.EnvDopkgConfigDir, filepath.Join(root, "config", paths.DopkgDirName))

	p, err := paths.New(paths.Overrides{})
	if err != nil {
		t.Fatalf("failed to create paths: %v", err)
	}
	env.Paths = p
	env.Store = store.New(filesystem.NewOS(), p.RecordsDir())
	return env
}

// NewMemoryStore returns a record store backed by an in-memory filesystem
func NewMemoryStore() store.Store {
	return store.New(filesystem.NewMemory(), "/records")
}
