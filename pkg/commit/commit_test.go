package commit_test

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"syscall"
	"testing"
	"time"

	"github.com/arthur-debert/dopkg/pkg/commit"
	"github.com/arthur-debert/dopkg/pkg/errors"
	"github.com/arthur-debert/dopkg/pkg/filesystem"
	"github.com/arthur-debert/dopkg/pkg/lock"
	"github.com/arthur-debert/dopkg/pkg/paths"
	"github.com/arthur-debert/dopkg/pkg/store"
	"github.com/arthur-debert/dopkg/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fixedNow = time.Date(2015, 1, 14, 12, 0, 0, 0, time.UTC)

type fixture struct {
	paths     paths.Paths
	store     store.Store
	committer *commit.Committer
}

func setup(t *testing.T) fixture {
	t.Helper()
	root := t.TempDir()
	p, err := paths.New(paths.Overrides{Store: filepath.Join(root, "store"), Cache: filepath.Join(root, "cache")})
	require.NoError(t, err)

	s := store.New(filesystem.NewOS(), p.RecordsDir())
	c := commit.New(p, s, lock.NewLocal(p.LocksDir()))
	c.Now = func() time.Time { return fixedNow }
	return fixture{paths: p, store: s, committer: c}
}

func socksProxy(version string) types.Formula {
	return types.Formula{
		Name:      "socks-proxy",
		Version:   version,
		URL:       "https://example.com/socks-proxy.tar.gz",
		Hash:      strings.Repeat("ab", 32),
		Algorithm: types.SHA256,
		Dependencies: []types.Dependency{
			{Name: "pkg-config", Kind: types.DependencyBuild},
			{Name: "ucspi-tcp", Kind: types.DependencyRuntime},
		},
	}
}

// buildOutput writes a fake build prefix containing bin/socks
func buildOutput(t *testing.T, content string) string {
	t.Helper()
	out := filepath.Join(t.TempDir(), "out")
	require.NoError(t, os.MkdirAll(filepath.Join(out, "bin"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(out, "bin", "socks"), []byte(content), 0o755))
	return out
}

func readSocks(t *testing.T, prefix string) string {
	t.Helper()
	data, err := os.ReadFile(filepath.Join(prefix, "bin", "socks"))
	require.NoError(t, err)
	return string(data)
}

func leftovers(t *testing.T, dir string) []string {
	t.Helper()
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	var names []string
	for _, e := range entries {
		if strings.HasPrefix(e.Name(), ".") {
			names = append(names, e.Name())
		}
	}
	return names
}

func TestCommitFreshInstall(t *testing.T) {
	fx := setup(t)
	out := buildOutput(t, "v1")

	rec, err := fx.committer.Commit(context.Background(), out, socksProxy("2015-01-14"))
	require.NoError(t, err)

	dest := fx.paths.PrefixDir("socks-proxy", "2015-01-14")
	assert.Equal(t, "socks-proxy", rec.Name)
	assert.Equal(t, "2015-01-14", rec.Version)
	assert.Equal(t, dest, rec.Prefix)
	assert.Equal(t, []string{"bin/socks"}, rec.Files)
	assert.Equal(t, []string{"pkg-config:build", "ucspi-tcp"}, rec.Dependencies)
	assert.Equal(t, types.SHA256, rec.HashAlgorithm)
	assert.True(t, rec.InstalledAt.Equal(fixedNow))

	assert.Equal(t, "v1", readSocks(t, dest))
	assert.NoDirExists(t, out, "build output is moved, not copied")

	target, err := os.Readlink(fx.paths.OptLink("socks-proxy"))
	require.NoError(t, err)
	assert.Equal(t, dest, target)

	stored, ok, err := fx.store.Lookup("socks-proxy")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, rec.Files, stored.Files)
}

func TestCommitSupersedesSameVersion(t *testing.T) {
	fx := setup(t)
	f := socksProxy("2015-01-14")

	_, err := fx.committer.Commit(context.Background(), buildOutput(t, "first"), f)
	require.NoError(t, err)
	_, err = fx.committer.Commit(context.Background(), buildOutput(t, "second"), f)
	require.NoError(t, err)

	assert.Equal(t, "second", readSocks(t, fx.paths.PrefixDir(f.Name, f.Version)))
	assert.Empty(t, leftovers(t, fx.paths.PackageDir(f.Name)))

	all, err := fx.store.List()
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestCommitUpgradeRemovesOldVersion(t *testing.T) {
	fx := setup(t)

	_, err := fx.committer.Commit(context.Background(), buildOutput(t, "old"), socksProxy("2014-01-01"))
	require.NoError(t, err)
	rec, err := fx.committer.Commit(context.Background(), buildOutput(t, "new"), socksProxy("2015-01-14"))
	require.NoError(t, err)

	assert.NoDirExists(t, fx.paths.PrefixDir("socks-proxy", "2014-01-01"))
	assert.Equal(t, "new", readSocks(t, rec.Prefix))

	target, err := os.Readlink(fx.paths.OptLink("socks-proxy"))
	require.NoError(t, err)
	assert.Equal(t, rec.Prefix, target)
}

// failingStore accepts reads but refuses every record write
type failingStore struct {
	store.Store
}

func (failingStore) Put(types.InstallationRecord) error {
	return errors.New(errors.ErrIO, "disk full")
}

func TestCommitRecordFailureRestoresPreviousInstall(t *testing.T) {
	t.Run("same_version", func(t *testing.T) {
		fx := setup(t)
		f := socksProxy("2015-01-14")
		_, err := fx.committer.Commit(context.Background(), buildOutput(t, "first"), f)
		require.NoError(t, err)

		fx.committer.Store = failingStore{fx.store}
		_, err = fx.committer.Commit(context.Background(), buildOutput(t, "second"), f)
		require.Error(t, err)
		assert.Equal(t, errors.ExitCommit, errors.ExitCode(err))

		dest := fx.paths.PrefixDir(f.Name, f.Version)
		assert.Equal(t, "first", readSocks(t, dest))
		assert.Empty(t, leftovers(t, fx.paths.PackageDir(f.Name)))
		target, err := os.Readlink(fx.paths.OptLink(f.Name))
		require.NoError(t, err)
		assert.Equal(t, dest, target)
	})

	t.Run("upgrade", func(t *testing.T) {
		fx := setup(t)
		old, err := fx.committer.Commit(context.Background(), buildOutput(t, "old"), socksProxy("2014-01-01"))
		require.NoError(t, err)

		fx.committer.Store = failingStore{fx.store}
		_, err = fx.committer.Commit(context.Background(), buildOutput(t, "new"), socksProxy("2015-01-14"))
		require.Error(t, err)

		assert.NoDirExists(t, fx.paths.PrefixDir("socks-proxy", "2015-01-14"))
		assert.Equal(t, "old", readSocks(t, old.Prefix))
		target, err := os.Readlink(fx.paths.OptLink("socks-proxy"))
		require.NoError(t, err)
		assert.Equal(t, old.Prefix, target)
	})

	t.Run("fresh", func(t *testing.T) {
		fx := setup(t)
		fx.committer.Store = failingStore{fx.store}
		f := socksProxy("2015-01-14")

		_, err := fx.committer.Commit(context.Background(), buildOutput(t, "v1"), f)
		require.Error(t, err)

		assert.NoDirExists(t, fx.paths.PrefixDir(f.Name, f.Version))
		_, err = os.Lstat(fx.paths.OptLink(f.Name))
		assert.True(t, os.IsNotExist(err), "no opt link left for a failed fresh install")
	})
}

func TestCommitCancelledBeforeMoveLeavesStoreUntouched(t *testing.T) {
	fx := setup(t)
	out := buildOutput(t, "v1")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := fx.committer.Commit(ctx, out, socksProxy("2015-01-14"))
	require.Error(t, err)
	assert.True(t, errors.IsCancellation(err))

	assert.DirExists(t, out)
	assert.NoDirExists(t, fx.paths.PackageDir("socks-proxy"))
	_, ok, err := fx.store.Lookup("socks-proxy")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestCommitCrossDevice(t *testing.T) {
	fx := setup(t)
	out := buildOutput(t, "copied")

	fx.committer.Mover = &filesystem.Mover{Rename: func(oldpath, newpath string) error {
		if oldpath == out {
			return &os.LinkError{Op: "rename", Old: oldpath, New: newpath, Err: syscall.EXDEV}
		}
		return os.Rename(oldpath, newpath)
	}}

	rec, err := fx.committer.Commit(context.Background(), out, socksProxy("2015-01-14"))
	require.NoError(t, err)
	assert.Equal(t, "copied", readSocks(t, rec.Prefix))
	assert.NoDirExists(t, out)
	assert.Empty(t, leftovers(t, fx.paths.PackageDir("socks-proxy")))
}

func TestCommitMissingOutputIsIOError(t *testing.T) {
	fx := setup(t)

	_, err := fx.committer.Commit(context.Background(), filepath.Join(t.TempDir(), "nothing"), socksProxy("1"))
	require.Error(t, err)
	assert.True(t, errors.IsErrorCode(err, errors.ErrIO))
	assert.Equal(t, errors.ExitCommit, errors.ExitCode(err))

	_, ok, err := fx.store.Lookup("socks-proxy")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRemove(t *testing.T) {
	fx := setup(t)
	_, err := fx.committer.Commit(context.Background(), buildOutput(t, "v1"), socksProxy("2015-01-14"))
	require.NoError(t, err)

	require.NoError(t, fx.committer.Remove(context.Background(), "socks-proxy"))

	assert.NoDirExists(t, fx.paths.PackageDir("socks-proxy"))
	_, err = os.Lstat(fx.paths.OptLink("socks-proxy"))
	assert.True(t, os.IsNotExist(err))
	_, ok, err := fx.store.Lookup("socks-proxy")
	require.NoError(t, err)
	assert.False(t, ok)

	err = fx.committer.Remove(context.Background(), "socks-proxy")
	assert.True(t, errors.IsErrorCode(err, errors.ErrNotFound))
}
