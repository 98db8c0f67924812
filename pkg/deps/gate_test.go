package deps_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/arthur-debert/dopkg/pkg/deps"
	"github.com/arthur-debert/dopkg/pkg/errors"
	"github.com/arthur-debert/dopkg/pkg/filesystem"
	"github.com/arthur-debert/dopkg/pkg/store"
	"github.com/arthur-debert/dopkg/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func socksProxy() types.Formula {
	return types.Formula{
		Name:    "socks-proxy",
		Version: "2015-01-14",
		Dependencies: []types.Dependency{
			{Name: "pkg-config", Kind: types.DependencyBuild},
			{Name: "ucspi-tcp", Kind: types.DependencyRuntime},
		},
	}
}

func newStore(t *testing.T, installed ...string) store.Store {
	t.Helper()
	s := store.New(filesystem.NewMemory(), "/records")
	for _, name := range installed {
		require.NoError(t, s.Put(types.InstallationRecord{Name: name, Version: "1.0"}))
	}
	return s
}

func TestCheckSatisfied(t *testing.T) {
	gate := deps.NewGate(newStore(t, "ucspi-tcp"), deps.NewStaticRegistry("pkg-config"))
	assert.NoError(t, gate.Check(context.Background(), socksProxy()))
}

func TestCheckBuildDependencyInstalled(t *testing.T) {
	gate := deps.NewGate(newStore(t, "ucspi-tcp", "pkg-config"), deps.NewStaticRegistry())
	assert.NoError(t, gate.Check(context.Background(), socksProxy()))
}

func TestCheckMissing(t *testing.T) {
	tests := []struct {
		name      string
		installed []string
		tools     []string
		missing   string
		kind      string
	}{
		{"build_tool_absent", []string{"ucspi-tcp"}, nil, "pkg-config", "build"},
		{"runtime_absent", nil, []string{"pkg-config"}, "ucspi-tcp", "runtime"},
		{"first_missing_wins", nil, nil, "pkg-config", "build"},
		{"toolchain_does_not_satisfy_runtime", nil, []string{"pkg-config", "ucspi-tcp"}, "ucspi-tcp", "runtime"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gate := deps.NewGate(newStore(t, tt.installed...), deps.NewStaticRegistry(tt.tools...))
			err := gate.Check(context.Background(), socksProxy())
			require.Error(t, err)
			assert.True(t, errors.IsErrorCode(err, errors.ErrMissingDependency))
			name, _ := errors.GetDetail(err, errors.DetailDependency)
			kind, _ := errors.GetDetail(err, errors.DetailKind)
			assert.Equal(t, tt.missing, name)
			assert.Equal(t, tt.kind, kind)
		})
	}
}

func TestCheckNoDependencies(t *testing.T) {
	gate := deps.NewGate(newStore(t), nil)
	assert.NoError(t, gate.Check(context.Background(), types.Formula{Name: "leaf"}))
}

func TestCheckCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	gate := deps.NewGate(newStore(t, "ucspi-tcp"), deps.NewStaticRegistry("pkg-config"))
	assert.True(t, errors.IsCancellation(gate.Check(ctx, socksProxy())))
}

func TestRegistryPathLookup(t *testing.T) {
	bin := t.TempDir()
	tool := filepath.Join(bin, "pkg-config")
	require.NoError(t, os.WriteFile(tool, []byte("#!/bin/sh\n"), 0o755))
	t.Setenv("PATH", bin)

	r := deps.NewRegistry([]string{"make"}, true)
	assert.True(t, r.Provides("make"), "configured tools are trusted")
	assert.True(t, r.Provides("pkg-config"), "found on PATH")
	assert.False(t, r.Provides("cmake"))
}

func TestRegistryIgnoresPathByDefault(t *testing.T) {
	bin := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(bin, "pkg-config"), []byte("#!/bin/sh\n"), 0o755))
	t.Setenv("PATH", bin)

	r := deps.NewRegistry([]string{"make"}, false)
	assert.True(t, r.Provides("make"))
	assert.False(t, r.Provides("pkg-config"), "PATH is consulted only when enabled")

	gate := deps.NewGate(newStore(t, "ucspi-tcp"), r)
	err := gate.Check(context.Background(), socksProxy())
	require.Error(t, err)
	assert.Equal(t, errors.ExitMissingDependency, errors.ExitCode(err))
}
