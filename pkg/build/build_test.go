package build_test

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/arthur-debert/dopkg/pkg/build"
	"github.com/arthur-debert/dopkg/pkg/errors"
	"github.com/arthur-debert/dopkg/pkg/runner"
	"github.com/arthur-debert/dopkg/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExpand(t *testing.T) {
	vars := build.Vars("socks-proxy", "2015-01-14", "/cellar/socks-proxy/2015-01-14")

	tests := []struct {
		in, want string
	}{
		{"make install prefix=$prefix", "make install prefix=/cellar/socks-proxy/2015-01-14"},
		{"cp x ${prefix}/bin", "cp x /cellar/socks-proxy/2015-01-14/bin"},
		{"$bin/socks 2>&1", "/cellar/socks-proxy/2015-01-14/bin/socks 2>&1"},
		{"echo $name-$version", "echo socks-proxy-2015-01-14"},
		{"echo $HOME ${PATH} $((1+1)) $", "echo $HOME ${PATH} $((1+1)) $"},
		{"echo $prefixes", "echo $prefixes"},
		{"echo ${prefix", "echo ${prefix"},
		{"no vars", "no vars"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, build.Expand(tt.in, vars), tt.in)
	}
}

func TestEnviron(t *testing.T) {
	env := build.Environ([]string{"PATH=/bin", "PREFIX=/usr"}, build.Vars("a", "1", "/p"))
	assert.Contains(t, env, "PATH=/bin")
	assert.Contains(t, env, "PREFIX=/p")
	assert.Contains(t, env, "prefix=/p")
	assert.NotContains(t, env, "PREFIX=/usr")
}

func formula(steps ...string) types.Formula {
	return types.Formula{Name: "socks-proxy", Version: "2015-01-14", Install: steps}
}

func TestRunInstall(t *testing.T) {
	src, prefix := t.TempDir(), t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(src, "socks"), []byte("#!/bin/sh\necho hi\n"), 0o755))

	e := build.NewExecutor(runner.New())
	err := e.RunInstall(context.Background(), formula(
		"mkdir -p $prefix/bin",
		`cp socks "$PREFIX/bin/socks"`,
		"echo $name@$version > ${prefix}/VERSION",
	), src, prefix)
	require.NoError(t, err)

	assert.FileExists(t, filepath.Join(prefix, "bin", "socks"))
	data, err := os.ReadFile(filepath.Join(prefix, "VERSION"))
	require.NoError(t, err)
	assert.Equal(t, "socks-proxy@2015-01-14\n", string(data))
}

func TestRunInstallStopsAtFirstFailure(t *testing.T) {
	src, prefix := t.TempDir(), t.TempDir()

	e := build.NewExecutor(runner.New())
	err := e.RunInstall(context.Background(), formula(
		"touch $prefix/one",
		"echo 'make: *** No rule to make target install' >&2; exit 2",
		"touch $prefix/three",
	), src, prefix)
	require.Error(t, err)
	assert.True(t, errors.IsErrorCode(err, errors.ErrBuild))

	step, _ := errors.GetDetail(err, errors.DetailStep)
	code, _ := errors.GetDetail(err, errors.DetailExitCode)
	output, _ := errors.GetDetail(err, errors.DetailOutput)
	assert.Equal(t, 2, step)
	assert.Equal(t, 2, code)
	assert.Contains(t, output, "No rule to make target")

	assert.FileExists(t, filepath.Join(prefix, "one"))
	assert.NoFileExists(t, filepath.Join(prefix, "three"), "later steps never run")
}

func TestRunInstallBoundsOutput(t *testing.T) {
	e := build.NewExecutor(runner.New())
	e.OutputLimit = 64

	err := e.RunInstall(context.Background(), formula(
		"yes noise | head -n 5000; echo the-real-error; exit 1",
	), t.TempDir(), t.TempDir())
	output, _ := errors.GetDetail(err, errors.DetailOutput)
	s := output.(string)
	assert.LessOrEqual(t, len(s), 64)
	assert.True(t, strings.HasSuffix(s, "the-real-error\n"))
}

func TestRunInstallCustomInterpreter(t *testing.T) {
	prefix := t.TempDir()
	e := build.NewExecutor(runner.New())
	e.Interpreter = []string{"/bin/sh", "-e", "-c"}

	err := e.RunInstall(context.Background(), formula("false; touch $prefix/after"), t.TempDir(), prefix)
	assert.True(t, errors.IsErrorCode(err, errors.ErrBuild))
	assert.NoFileExists(t, filepath.Join(prefix, "after"))
}

func TestRunInstallCancellation(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	e := build.NewExecutor(&runner.ExecRunner{GracePeriod: 50 * time.Millisecond})
	err := e.RunInstall(ctx, formula("sleep 5"), t.TempDir(), t.TempDir())
	assert.True(t, errors.IsErrorCode(err, errors.ErrCancelled))
}

func TestRunInstallTimeoutIsBuildFailure(t *testing.T) {
	e := build.NewExecutor(&runner.ExecRunner{GracePeriod: 50 * time.Millisecond})
	e.Timeout = 50 * time.Millisecond

	err := e.RunInstall(context.Background(), formula("sleep 5"), t.TempDir(), t.TempDir())
	assert.True(t, errors.IsErrorCode(err, errors.ErrBuild))
}
