// Package formula decodes recipe files into types.Formula values.
//
// A recipe is a TOML or YAML document:
//
//	name = "socks-proxy"
//	version = "2015-01-14"
//	url = "https://github.com/younix/ucspi/tarball/968f1e72"
//	sha1 = "643d88d906a51b6c45d3fa52636187932fb68b2b"
//	depends_on = ["pkg-config:build", "ucspi-tcp"]
//	install = ["make install prefix=$prefix"]
//
//	[test]
//	command = "$bin/socks 2>&1"
//	contains = "tcpclient PROXY-HOST PROXY-PORT socks HOST PORT PROGRAM [ARGS...]"
//
// Exactly one of sha1, sha256, sha512 or hash ("algo:digest") names the
// source digest. Dependencies default to runtime; a ":build" suffix marks a
// build-only dependency.
package formula
