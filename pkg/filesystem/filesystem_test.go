package filesystem_test

import (
	"context"
	"os"
	"path/filepath"
	"syscall"
	"testing"

	"github.com/arthur-debert/dopkg/pkg/errors"
	"github.com/arthur-debert/dopkg/pkg/filesystem"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func makeTree(t *testing.T, root string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "bin"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "bin", "socks"), []byte("#!/bin/sh\n"), 0o755))
	require.NoError(t, os.MkdirAll(filepath.Join(root, "share", "doc"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "share", "doc", "README"), []byte("docs"), 0o644))
	require.NoError(t, os.Symlink("socks", filepath.Join(root, "bin", "socks-proxy")))
}

func TestMoveTreeRename(t *testing.T) {
	dir := t.TempDir()
	src, dst := filepath.Join(dir, "src"), filepath.Join(dir, "dst")
	makeTree(t, src)

	require.NoError(t, filesystem.NewMover().MoveTree(context.Background(), src, dst))

	assert.NoDirExists(t, src)
	assert.FileExists(t, filepath.Join(dst, "bin", "socks"))
}

func TestMoveTreeCrossDeviceFallback(t *testing.T) {
	dir := t.TempDir()
	src, dst := filepath.Join(dir, "src"), filepath.Join(dir, "dst")
	makeTree(t, src)

	calls := 0
	m := &filesystem.Mover{Rename: func(oldpath, newpath string) error {
		calls++
		if oldpath == src {
			return &os.LinkError{Op: "rename", Old: oldpath, New: newpath, Err: syscall.EXDEV}
		}
		return os.Rename(oldpath, newpath)
	}}

	require.NoError(t, m.MoveTree(context.Background(), src, dst))
	assert.Equal(t, 2, calls)
	assert.NoDirExists(t, src)

	info, err := os.Stat(filepath.Join(dst, "bin", "socks"))
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o755), info.Mode().Perm())

	link, err := os.Readlink(filepath.Join(dst, "bin", "socks-proxy"))
	require.NoError(t, err)
	assert.Equal(t, "socks", link)

	files, err := filesystem.ListFiles(dst)
	require.NoError(t, err)
	assert.Equal(t, []string{"bin/socks", "bin/socks-proxy", "share/doc/README"}, files)
}

func TestMoveTreeOtherErrors(t *testing.T) {
	m := &filesystem.Mover{Rename: func(_, _ string) error { return os.ErrPermission }}
	err := m.MoveTree(context.Background(), "/a", "/b")
	assert.True(t, errors.IsErrorCode(err, errors.ErrIO))
}

func TestCopyTreeHonorsCancellation(t *testing.T) {
	dir := t.TempDir()
	makeTree(t, filepath.Join(dir, "src"))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := filesystem.CopyTree(ctx, filepath.Join(dir, "src"), filepath.Join(dir, "dst"))
	assert.True(t, errors.IsCancellation(err))
}

func TestIsCrossDevice(t *testing.T) {
	assert.True(t, filesystem.IsCrossDevice(syscall.EXDEV))
	assert.True(t, filesystem.IsCrossDevice(&os.LinkError{Err: syscall.EXDEV}))
	assert.False(t, filesystem.IsCrossDevice(os.ErrNotExist))
}

func TestFSImplementations(t *testing.T) {
	dir := t.TempDir()
	impls := map[string]struct {
		fs   filesystem.FS
		root string
	}{
		"os":     {filesystem.NewOS(), dir},
		"memory": {filesystem.NewMemory(), "/store"},
	}

	for name, impl := range impls {
		t.Run(name, func(t *testing.T) {
			fsys, root := impl.fs, impl.root
			require.NoError(t, fsys.MkdirAll(filepath.Join(root, "records"), 0o755))

			path := filepath.Join(root, "records", "a.toml")
			require.NoError(t, fsys.WriteFileAtomic(path, []byte("v1"), 0o644))
			require.NoError(t, fsys.WriteFileAtomic(path, []byte("v2"), 0o644))

			data, err := fsys.ReadFile(path)
			require.NoError(t, err)
			assert.Equal(t, "v2", string(data))

			entries, err := fsys.ReadDir(filepath.Join(root, "records"))
			require.NoError(t, err)
			require.Len(t, entries, 1, "atomic writes leave no temp files behind")
			assert.Equal(t, "a.toml", entries[0].Name())

			_, err = fsys.ReadFile(filepath.Join(root, "records"))
			assert.Error(t, err)

			require.NoError(t, fsys.Remove(path))
			_, err = fsys.Stat(path)
			assert.True(t, os.IsNotExist(err))
		})
	}
}
