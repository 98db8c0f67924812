package pipeline

import (
	"context"
	"sync"

	"github.com/arthur-debert/dopkg/pkg/types"
	"golang.org/x/sync/errgroup"
)

// Outcome pairs a formula with the result of its attempt
type Outcome struct {
	Formula types.Formula
	Result  *Result
	Err     error
}

// InstallAll installs formulas, which must be in dependency order, running up
// to Jobs attempts at once. A formula whose dependency appears earlier in the
// list waits for that attempt to finish first; if it failed, the waiting
// formula fails at its Dependency Gate. A failure never cancels unrelated
// attempts. Outcomes are returned in input order.
func (in *Installer) InstallAll(ctx context.Context, formulas []types.Formula) []Outcome {
	outcomes := make([]Outcome, len(formulas))
	finished := make(map[string]*signal, len(formulas))
	for _, f := range formulas {
		if _, ok := finished[f.Name]; !ok {
			finished[f.Name] = &signal{ch: make(chan struct{})}
		}
	}

	jobs := in.Jobs
	if jobs < 1 {
		jobs = 1
	}
	g := new(errgroup.Group)
	g.SetLimit(jobs)

	for i, f := range formulas {
		// Only dependencies that come earlier are waited on; later ones are
		// already started or running, so waiting cannot deadlock.
		var waits []<-chan struct{}
		for _, d := range f.Dependencies {
			if sig, ok := finished[d.Name]; ok && indexOf(formulas, d.Name) < i {
				waits = append(waits, sig.ch)
			}
		}
		done := finished[f.Name]

		g.Go(func() error {
			defer done.fire()
			outcomes[i].Formula = f
			for _, ch := range waits {
				select {
				case <-ch:
				case <-ctx.Done():
				}
			}
			outcomes[i].Result, outcomes[i].Err = in.Install(ctx, f)
			return nil
		})
	}
	_ = g.Wait()
	return outcomes
}

// Errors returns the failures among outcomes, in input order
func Errors(outcomes []Outcome) []error {
	var errs []error
	for _, o := range outcomes {
		if o.Err != nil {
			errs = append(errs, o.Err)
		}
	}
	return errs
}

func indexOf(formulas []types.Formula, name string) int {
	for i, f := range formulas {
		if f.Name == name {
			return i
		}
	}
	return -1
}

// signal is closed when the attempt for a name finishes. A name listed
// twice shares one signal.
type signal struct {
	ch   chan struct{}
	once sync.Once
}

func (s *signal) fire() {
	s.once.Do(func() { close(s.ch) })
}
