package formula_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/arthur-debert/dopkg/pkg/errors"
	"github.com/arthur-debert/dopkg/pkg/formula"
	"github.com/arthur-debert/dopkg/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const socksTOML = `
name = "socks-proxy"
homepage = "https://github.com/younix/ucspi/blob/master/README.md"
url = "https://github.com/younix/ucspi/tarball/968f1e7231c69624402ae8bf6903880a7491d51a"
sha1 = "643d88d906a51b6c45d3fa52636187932fb68b2b"
version = "2015-01-14"
depends_on = ["pkg-config:build", "ucspi-tcp"]
install = ["make install prefix=$prefix"]

[test]
command = "$bin/socks 2>&1"
contains = "tcpclient PROXY-HOST PROXY-PORT socks HOST PORT PROGRAM [ARGS...]"
`

const socksYAML = `
name: socks-proxy
url: https://github.com/younix/ucspi/tarball/968f1e7231c69624402ae8bf6903880a7491d51a
hash: "SHA1:643D88D906A51B6C45D3FA52636187932FB68B2B"
version: "2015-01-14"
depends_on: ["ucspi-tcp"]
build_depends_on: ["pkg-config"]
install:
  - make install prefix=$prefix
test:
  command: $bin/socks
  matches: "socks HOST PORT"
  exit_code: 1
`

func TestParseTOML(t *testing.T) {
	f, err := formula.Parse([]byte(socksTOML), formula.FormatTOML)
	require.NoError(t, err)

	assert.Equal(t, "socks-proxy@2015-01-14", f.ID())
	assert.Equal(t, types.SHA1, f.Algorithm)
	assert.Equal(t, []types.Dependency{
		{Name: "pkg-config", Kind: types.DependencyBuild},
		{Name: "ucspi-tcp", Kind: types.DependencyRuntime},
	}, f.Dependencies)
	assert.Equal(t, []string{"make install prefix=$prefix"}, f.Install)
	require.NotNil(t, f.Test)
	assert.Equal(t, types.PredicateContains, f.Test.Predicate.Kind)
	assert.Nil(t, f.Test.ExitCode)
}

func TestParseYAML(t *testing.T) {
	f, err := formula.Parse([]byte(socksYAML), formula.FormatYAML)
	require.NoError(t, err)

	assert.Equal(t, "643d88d906a51b6c45d3fa52636187932fb68b2b", f.Hash)
	assert.Equal(t, types.SHA1, f.Algorithm)
	assert.Equal(t, []types.Dependency{
		{Name: "ucspi-tcp", Kind: types.DependencyRuntime},
		{Name: "pkg-config", Kind: types.DependencyBuild},
	}, f.Dependencies)
	require.NotNil(t, f.Test)
	assert.Equal(t, types.PredicateMatches, f.Test.Predicate.Kind)
	require.NotNil(t, f.Test.ExitCode)
	assert.Equal(t, 1, *f.Test.ExitCode)
}

func TestParseRejects(t *testing.T) {
	base := func(extra string) string {
		return `
name = "a"
version = "1.0"
url = "https://example.com/a.tgz"
install = ["true"]
` + extra
	}
	sha := `sha256 = "ba7816bf8f01cfea414140de5dae2223b00361a396177a9cb410ff61f20015ad"` + "\n"

	tests := []struct {
		name string
		doc  string
		code errors.ErrorCode
	}{
		{"no_hash", base(""), errors.ErrFormulaInvalid},
		{"two_hashes", base(sha + `sha1 = "643d88d906a51b6c45d3fa52636187932fb68b2b"`), errors.ErrFormulaInvalid},
		{"short_digest", base(`sha256 = "abc"`), errors.ErrFormulaInvalid},
		{"unknown_algo", base(`hash = "md5:900150983cd24fb0d6963f7d28e17f72"`), errors.ErrFormulaInvalid},
		{"unknown_kind", base(sha + `depends_on = ["x:optional"]`), errors.ErrFormulaInvalid},
		{"self_dependency", base(sha + `depends_on = ["a"]`), errors.ErrFormulaInvalid},
		{"duplicate_dependency", base(sha + `depends_on = ["b"]` + "\n" + `build_depends_on = ["b"]`), errors.ErrFormulaInvalid},
		{"unknown_key", base(sha + `sources = []`), errors.ErrFormulaParse},
		{"two_predicates", base(sha + "[test]\ncommand = \"x\"\ncontains = \"a\"\nequals = \"b\"\n"), errors.ErrFormulaInvalid},
		{"bad_regexp", base(sha + "[test]\ncommand = \"x\"\nmatches = \"(\"\n"), errors.ErrFormulaInvalid},
		{"test_without_command", base(sha + "[test]\ncontains = \"a\"\n"), errors.ErrFormulaInvalid},
		{"syntax", "name = ", errors.ErrFormulaParse},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := formula.Parse([]byte(tt.doc), formula.FormatTOML)
			require.Error(t, err)
			assert.Equal(t, tt.code, errors.GetErrorCode(err), err.Error())
		})
	}
}

func TestValidate(t *testing.T) {
	good := types.Formula{
		Name:      "a",
		Version:   "1.0",
		URL:       "file:///tmp/a.tgz",
		Algorithm: types.SHA1,
		Hash:      "643d88d906a51b6c45d3fa52636187932fb68b2b",
		Install:   []string{"true"},
	}
	require.NoError(t, formula.Validate(good))

	mutate := map[string]func(f *types.Formula){
		"bad_name":      func(f *types.Formula) { f.Name = "../a" },
		"no_version":    func(f *types.Formula) { f.Version = "" },
		"relative_url":  func(f *types.Formula) { f.URL = "a.tgz" },
		"no_steps":      func(f *types.Formula) { f.Install = nil },
		"blank_step":    func(f *types.Formula) { f.Install = []string{"  "} },
		"bad_dep_name":  func(f *types.Formula) { f.Dependencies = []types.Dependency{{Name: "B", Kind: types.DependencyBuild}} },
		"bad_algorithm": func(f *types.Formula) { f.Algorithm = "md5" },
	}
	for name, m := range mutate {
		t.Run(name, func(t *testing.T) {
			f := good.Clone()
			m(&f)
			assert.True(t, errors.IsErrorCode(formula.Validate(f), errors.ErrFormulaInvalid))
		})
	}
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	tomlPath := filepath.Join(dir, "socks-proxy.toml")
	yamlPath := filepath.Join(dir, "socks-proxy.yml")
	require.NoError(t, os.WriteFile(tomlPath, []byte(socksTOML), 0o644))
	require.NoError(t, os.WriteFile(yamlPath, []byte(socksYAML), 0o644))

	fromTOML, err := formula.Load(tomlPath)
	require.NoError(t, err)
	fromYAML, err := formula.Load(yamlPath)
	require.NoError(t, err)
	assert.Equal(t, fromTOML.Hash, fromYAML.Hash)

	_, err = formula.Load(filepath.Join(dir, "missing.toml"))
	assert.True(t, errors.IsErrorCode(err, errors.ErrNotFound))

	_, err = formula.Load(filepath.Join(dir, "recipe.json"))
	assert.True(t, errors.IsErrorCode(err, errors.ErrInvalidInput))
}
