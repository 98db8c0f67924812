// Package archive unpacks source archives into a staging directory.
//
// The format is detected from the leading bytes of the file rather than its
// name: tar, gzip, bzip2, xz and zstd compressed tar, and zip. Every entry is
// confined to the destination. Absolute names, names that climb out with
// "..", links whose targets leave the destination and entries that would be
// written through a previously extracted symlink are rejected with a
// PATH_TRAVERSAL error.
package archive
