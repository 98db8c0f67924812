// Package types defines the data model shared by the install pipeline:
// formulas, their dependencies and self tests, source descriptors and the
// installation records persisted once a package is committed.
package types
