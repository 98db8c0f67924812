// Package testutil provides utilities for testing dopkg components.
//
// Key components:
//   - Archive builders: tar, tar.gz, tar.xz, tar.zst and zip archives built
//     in memory from a declarative entry list
//   - Environment: an isolated store layout under t.TempDir with XDG and
//     DOPKG_* variables redirected
//   - Formula fixtures: a self-contained socks-proxy formula whose archive
//     builds with /bin/sh alone
//   - CountingFetcher and MemoryStore: fakes for the pipeline's fetch and
//     record lookup dependencies
//
// Usage guidelines:
//   - All test data should be defined inline, not in external files
//   - Each test should be completely isolated with no shared state
package testutil
