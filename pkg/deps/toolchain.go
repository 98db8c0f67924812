package deps

import (
	"os/exec"
	"sync"
)

// Toolchain answers whether a build tool is available without being an
// installed package
type Toolchain interface {
	Provides(name string) bool
}

// Registry is a Toolchain backed by a configured list of tool names and,
// optionally, a PATH lookup.
type Registry struct {
	tools    map[string]bool
	lookPath func(string) (string, error)

	mu    sync.Mutex
	cache map[string]bool
}

// NewRegistry returns a Registry that trusts tools and, when searchPath is
// set, anything found on PATH
func NewRegistry(tools []string, searchPath bool) *Registry {
	if !searchPath {
		return NewStaticRegistry(tools...)
	}
	return newRegistry(tools, exec.LookPath)
}

// NewStaticRegistry returns a Registry that never consults PATH
func NewStaticRegistry(tools ...string) *Registry {
	return newRegistry(tools, func(string) (string, error) { return "", exec.ErrNotFound })
}

func newRegistry(tools []string, lookPath func(string) (string, error)) *Registry {
	r := &Registry{
		tools:    make(map[string]bool, len(tools)),
		lookPath: lookPath,
		cache:    make(map[string]bool),
	}
	for _, t := range tools {
		r.tools[t] = true
	}
	return r
}

// Provides implements Toolchain
func (r *Registry) Provides(name string) bool {
	if r.tools[name] {
		return true
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if found, ok := r.cache[name]; ok {
		return found
	}
	_, err := r.lookPath(name)
	r.cache[name] = err == nil
	return err == nil
}
