// Package filesystem provides filesystem implementations for dopkg.
//
// This package contains the FS interface used by the record store, the OS
// implementation and an afero-backed implementation used in tests. It also
// holds the tree moving helpers the committer relies on to relocate a built
// prefix into the cellar, including across filesystem boundaries.
package filesystem
