// Package deps checks a formula's declared dependencies before any network
// or filesystem work starts.
package deps

import (
	"context"

	"github.com/arthur-debert/dopkg/pkg/errors"
	"github.com/arthur-debert/dopkg/pkg/logging"
	"github.com/arthur-debert/dopkg/pkg/store"
	"github.com/arthur-debert/dopkg/pkg/types"
)

// Snapshotter produces a consistent view of the installed packages
type Snapshotter interface {
	Snapshot() (store.Snapshot, error)
}

// Gate verifies dependencies against the record store and the toolchain
type Gate struct {
	store     Snapshotter
	toolchain Toolchain
}

// NewGate returns a Gate. toolchain may be nil, in which case build
// dependencies must be installed packages like any other.
func NewGate(s Snapshotter, toolchain Toolchain) *Gate {
	return &Gate{store: s, toolchain: toolchain}
}

// Check returns nil when every dependency of f is satisfied, otherwise a
// MISSING_DEPENDENCY error naming the first one that is not, in declaration
// order. The store is read once, so a concurrent commit cannot make the
// answer inconsistent.
func (g *Gate) Check(ctx context.Context, f types.Formula) error {
	logger := logging.ForFormula("deps", f.Name, f.Version)

	if err := errors.FromContext(ctx, "dependency check cancelled"); err != nil {
		return err
	}
	if len(f.Dependencies) == 0 {
		return nil
	}

	snap, err := g.store.Snapshot()
	if err != nil {
		return err
	}

	for _, d := range f.Dependencies {
		if rec, ok, _ := snap.Lookup(d.Name); ok {
			logger.Debug().Str("dependency", d.Name).Str("installed", rec.Version).Msg("dependency installed")
			continue
		}
		if d.Kind == types.DependencyBuild && g.toolchain != nil && g.toolchain.Provides(d.Name) {
			logger.Debug().Str("dependency", d.Name).Msg("build dependency provided by toolchain")
			continue
		}
		logger.Warn().Str("dependency", d.Name).Str("kind", string(d.Kind)).Msg("missing dependency")
		return errors.MissingDependency(d.Name, string(d.Kind))
	}
	return nil
}
