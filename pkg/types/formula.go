package types

import (
	"fmt"
	"slices"
)

// HashAlgorithm names the digest used to verify a source archive.
type HashAlgorithm string

const (
	SHA1   HashAlgorithm = "sha1"
	SHA256 HashAlgorithm = "sha256"
	SHA512 HashAlgorithm = "sha512"
)

// HashAlgorithms lists the supported algorithms in order of preference.
var HashAlgorithms = []HashAlgorithm{SHA256, SHA512, SHA1}

// DigestLength returns the length in hex characters of a digest produced by
// the algorithm, or 0 when the algorithm is unknown.
func (a HashAlgorithm) DigestLength() int {
	switch a {
	case SHA1:
		return 40
	case SHA256:
		return 64
	case SHA512:
		return 128
	}
	return 0
}

// Valid reports whether the algorithm is supported.
func (a HashAlgorithm) Valid() bool {
	return a.DigestLength() > 0
}

// DependencyKind tags a dependency as needed only while building or also at run time.
type DependencyKind string

const (
	DependencyBuild   DependencyKind = "build"
	DependencyRuntime DependencyKind = "runtime"
)

// Valid reports whether the kind is one of the known kinds.
func (k DependencyKind) Valid() bool {
	return k == DependencyBuild || k == DependencyRuntime
}

// Dependency is a lookup key into the installed package set. It never points
// at a record directly; resolution always goes through the current store.
type Dependency struct {
	Name string
	Kind DependencyKind
}

func (d Dependency) String() string {
	return fmt.Sprintf("%s (%s)", d.Name, d.Kind)
}

// Source describes where a formula's archive comes from and how to verify it.
type Source struct {
	URL       string
	Hash      string
	Algorithm HashAlgorithm
}

// Formula describes one installable package. The pipeline treats it as
// immutable: it is passed by value and Clone is used wherever a copy escapes.
type Formula struct {
	Name         string
	Homepage     string
	Description  string
	URL          string
	Hash         string
	Algorithm    HashAlgorithm
	Version      string
	Dependencies []Dependency

	// Install holds command templates run in order; $prefix is substituted.
	Install []string

	// Test is optional; nil means the formula declares no self test.
	Test *Test
}

// Source returns the formula's source descriptor.
func (f Formula) Source() Source {
	return Source{URL: f.URL, Hash: f.Hash, Algorithm: f.Algorithm}
}

// ID returns "name@version".
func (f Formula) ID() string {
	return f.Name + "@" + f.Version
}

// DependenciesOf returns the dependencies of the given kind, in declaration order.
func (f Formula) DependenciesOf(kind DependencyKind) []Dependency {
	var out []Dependency
	for _, d := range f.Dependencies {
		if d.Kind == kind {
			out = append(out, d)
		}
	}
	return out
}

// Clone returns a deep copy so callers cannot mutate shared slices.
func (f Formula) Clone() Formula {
	c := f
	c.Dependencies = slices.Clone(f.Dependencies)
	c.Install = slices.Clone(f.Install)
	if f.Test != nil {
		t := *f.Test
		if f.Test.ExitCode != nil {
			code := *f.Test.ExitCode
			t.ExitCode = &code
		}
		c.Test = &t
	}
	return c
}
