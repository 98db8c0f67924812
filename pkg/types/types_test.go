package types_test

import (
	"testing"

	"github.com/arthur-debert/dopkg/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHashAlgorithmDigestLength(t *testing.T) {
	assert.Equal(t, 40, types.SHA1.DigestLength())
	assert.Equal(t, 64, types.SHA256.DigestLength())
	assert.Equal(t, 128, types.SHA512.DigestLength())
	assert.False(t, types.HashAlgorithm("md5").Valid())
}

func TestFormulaClone(t *testing.T) {
	code := 1
	f := types.Formula{
		Name:         "socks-proxy",
		Version:      "2015-01-14",
		Dependencies: []types.Dependency{{Name: "pkg-config", Kind: types.DependencyBuild}},
		Install:      []string{"make install prefix=$prefix"},
		Test:         &types.Test{Command: "$prefix/bin/socks 2>&1", Predicate: types.Contains("socks"), ExitCode: &code},
	}

	c := f.Clone()
	c.Dependencies[0].Name = "changed"
	c.Install[0] = "changed"
	c.Test.Command = "changed"
	*c.Test.ExitCode = 9

	assert.Equal(t, "pkg-config", f.Dependencies[0].Name)
	assert.Equal(t, "make install prefix=$prefix", f.Install[0])
	assert.Equal(t, "$prefix/bin/socks 2>&1", f.Test.Command)
	assert.Equal(t, 1, *f.Test.ExitCode)
	assert.Equal(t, "socks-proxy@2015-01-14", f.ID())
}

func TestDependenciesOf(t *testing.T) {
	f := types.Formula{Dependencies: []types.Dependency{
		{Name: "pkg-config", Kind: types.DependencyBuild},
		{Name: "ucspi-tcp", Kind: types.DependencyRuntime},
	}}
	require.Len(t, f.DependenciesOf(types.DependencyBuild), 1)
	assert.Equal(t, "ucspi-tcp", f.DependenciesOf(types.DependencyRuntime)[0].Name)
}

func TestPredicateMatch(t *testing.T) {
	tests := []struct {
		name   string
		pred   types.Predicate
		output string
		want   bool
	}{
		{"contains hit", types.Contains("PROXY-HOST"), "usage: tcpclient PROXY-HOST PROXY-PORT", true},
		{"contains miss", types.Contains("nope"), "usage", false},
		{"equals trims", types.Predicate{Kind: types.PredicateEquals, Value: "ok"}, "ok\n", true},
		{"equals miss", types.Predicate{Kind: types.PredicateEquals, Value: "ok"}, "okay", false},
		{"matches", types.Predicate{Kind: types.PredicateMatches, Value: `^v\d+\.\d+`}, "v1.2 build", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.pred.Match(tt.output)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	_, err := types.Predicate{Kind: types.PredicateMatches, Value: "("}.Match("x")
	assert.Error(t, err)
	assert.Error(t, types.Predicate{Kind: "startswith"}.Validate())
	assert.Contains(t, types.Contains("abc").Describe(), `"abc"`)
}
