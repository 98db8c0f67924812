package testutil

import (
	"net/url"
	"testing"

	"github.com/arthur-debert/dopkg/pkg/types"
)

// SocksUsage is the line bin/socks prints when run without arguments
const SocksUsage = "tcpclient PROXY-HOST PROXY-PORT socks HOST PORT PROGRAM [ARGS...]"

const socksScript = `#!/bin/sh
if [ $# -lt 5 ]; then
	echo "usage: ` + SocksUsage + `" >&2
	exit 1
fi
exec tcpclient "$1" "$2" socks "$@"
`

const installScript = `#!/bin/sh
set -e
mkdir -p "$1/bin"
cp socks "$1/bin/socks"
chmod 755 "$1/bin/socks"
`

// SocksProxyArchive returns a GitHub-style tarball of the socks-proxy
// sources. Its install step needs nothing but /bin/sh.
func SocksProxyArchive(t testing.TB) []byte {
	t.Helper()
	return TarGz(t,
		Dir("younix-ucspi-968f1e7/"),
		File("younix-ucspi-968f1e7/README.md", "ucspi tools\n"),
		Exec("younix-ucspi-968f1e7/install.sh", installScript),
		Exec("younix-ucspi-968f1e7/socks", socksScript),
	)
}

// SocksProxy writes the socks-proxy archive into dir and returns a formula
// pointing at it through a file:// URL.
func SocksProxy(t testing.TB, dir string) types.Formula {
	t.Helper()
	data := SocksProxyArchive(t)
	path := WriteArchive(t, dir, "968f1e7231c69624402ae8bf6903880a7491d51a.tar.gz", data)
	return types.Formula{
		Name:      "socks-proxy",
		Homepage:  "https://github.com/younix/ucspi/blob/master/README.md",
		URL:       FileURL(path),
		Hash:      SHA1(data),
		Algorithm: types.SHA1,
		Version:   "2015-01-14",
		Dependencies: []types.Dependency{
			{Name: "pkg-config", Kind: types.DependencyBuild},
			{Name: "ucspi-tcp", Kind: types.DependencyRuntime},
		},
		Install: []string{"sh install.sh $prefix"},
		Test: &types.Test{
			Command:   "$prefix/bin/socks 2>&1",
			Predicate: types.Contains(SocksUsage),
		},
	}
}

// Leaf writes a formula with no dependencies whose install creates
// share/<name>/VERSION.
func Leaf(t testing.TB, dir, name, version string) types.Formula {
	t.Helper()
	data := TarGz(t, File(name+"-"+version+"/VERSION", version+"\n"))
	path := WriteArchive(t, dir, name+"-"+version+".tar.gz", data)
	return types.Formula{
		Name:      name,
		URL:       FileURL(path),
		Hash:      SHA256(data),
		Algorithm: types.SHA256,
		Version:   version,
		Install:   []string{`mkdir -p "$prefix/share/$name" && cp VERSION "$prefix/share/$name/VERSION"`},
		Test: &types.Test{
			Command:   "cat $prefix/share/$name/VERSION",
			Predicate: types.Predicate{Kind: types.PredicateEquals, Value: version},
		},
	}
}

// FileURL turns an absolute path into a file:// URL
func FileURL(path string) string {
	return (&url.URL{Scheme: "file", Path: path}).String()
}
