// Package paths provides centralized path handling for dopkg.
// It implements XDG Base Directory specification compliance and lays out
// the package store: installation records, the cellar of versioned
// prefixes, opt links, the download cache, staging and lock directories.
package paths
