package paths_test

import (
	"path/filepath"
	"testing"

	"github.com/arthur-debert/dopkg/pkg/paths"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewHonorsEnvironment(t *testing.T) {
	home := t.TempDir()
	t.Setenv(paths.EnvDopkgHome, filepath.Join(home, "data"))
	t.Setenv(paths.EnvDopkgCacheDir, filepath.Join(home, "cache"))
	t.Setenv("XDG_STATE_HOME", filepath.Join(home, "state"))

	p, err := paths.New(paths.Overrides{})
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(home, "data"), p.DataDir())
	assert.Equal(t, filepath.Join(home, "data", "records", "socks-proxy.toml"), p.RecordPath("socks-proxy"))
	assert.Equal(t, filepath.Join(home, "data", "cellar", "socks-proxy", "2015-01-14"), p.PrefixDir("socks-proxy", "2015-01-14"))
	assert.Equal(t, filepath.Join(home, "data", "opt", "socks-proxy"), p.OptLink("socks-proxy"))
	assert.Equal(t, filepath.Join(home, "data", "locks", "socks-proxy.lock"), p.LockPath("socks-proxy"))
	assert.Equal(t, filepath.Join(home, "cache", "downloads"), p.DownloadsDir())
	assert.Equal(t, filepath.Join(home, "cache", "staging"), p.StagingDir())
	assert.Equal(t, filepath.Join(home, "state", "dopkg", "dopkg.log"), p.LogFilePath())
}

func TestNewOverridesWin(t *testing.T) {
	root := t.TempDir()
	t.Setenv(paths.EnvDopkgHome, filepath.Join(root, "ignored"))

	p, err := paths.New(paths.Overrides{
		Store:   filepath.Join(root, "store"),
		Cellar:  filepath.Join(root, "cellar"),
		Staging: filepath.Join(root, "tmp"),
	})
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(root, "store"), p.DataDir())
	assert.Equal(t, filepath.Join(root, "cellar", "a"), p.PackageDir("a"))
	assert.Equal(t, filepath.Join(root, "tmp"), p.StagingDir())
	assert.Equal(t, filepath.Join(root, "store", "opt"), p.OptDir())
}

func TestExpandHome(t *testing.T) {
	t.Setenv("HOME", "/home/tester")
	assert.Equal(t, "/home/tester/x", paths.ExpandHome("~/x"))
	assert.Equal(t, "/home/tester", paths.ExpandHome("~"))
	assert.Equal(t, "~other/x", paths.ExpandHome("~other/x"))
	assert.Equal(t, "/abs", paths.ExpandHome("/abs"))
}

func TestValidatePackageName(t *testing.T) {
	for _, ok := range []string{"socks-proxy", "pkg-config", "python@3.12", "gtk+3", "a"} {
		assert.NoError(t, paths.ValidatePackageName(ok), ok)
	}
	for _, bad := range []string{"", ".", "..", "../x", "a/b", "Upper", "-lead", "with space"} {
		assert.Error(t, paths.ValidatePackageName(bad), bad)
	}
}

func TestValidateVersion(t *testing.T) {
	assert.NoError(t, paths.ValidateVersion("2015-01-14"))
	assert.NoError(t, paths.ValidateVersion("1.2.3_1"))
	for _, bad := range []string{"", "..", ".hidden", "1/2", " 1.0"} {
		assert.Error(t, paths.ValidateVersion(bad), bad)
	}
}

func TestContainsPath(t *testing.T) {
	assert.True(t, paths.ContainsPath("/stage", "/stage"))
	assert.True(t, paths.ContainsPath("/stage", "/stage/src/a"))
	assert.False(t, paths.ContainsPath("/stage", "/stage/../etc"))
	assert.False(t, paths.ContainsPath("/stage", "/etc/passwd"))
	assert.True(t, paths.ContainsPath("/stage", "/stage/..hidden"), "names starting with .. stay inside")
}
