package pipeline

import (
	"context"
	"time"

	"github.com/arthur-debert/dopkg/pkg/build"
	"github.com/arthur-debert/dopkg/pkg/commit"
	"github.com/arthur-debert/dopkg/pkg/errors"
	"github.com/arthur-debert/dopkg/pkg/fetch"
	"github.com/arthur-debert/dopkg/pkg/logging"
	"github.com/arthur-debert/dopkg/pkg/paths"
	"github.com/arthur-debert/dopkg/pkg/stage"
	"github.com/arthur-debert/dopkg/pkg/store"
	"github.com/arthur-debert/dopkg/pkg/telemetry"
	"github.com/arthur-debert/dopkg/pkg/types"
	"github.com/arthur-debert/dopkg/pkg/verify"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// DependencyChecker is the Dependency Gate
type DependencyChecker interface {
	Check(ctx context.Context, f types.Formula) error
}

// Installer runs installation attempts
type Installer struct {
	Gate      DependencyChecker
	Fetcher   fetch.Fetcher
	Stager    *stage.Manager
	Builder   *build.Executor
	Committer *commit.Committer
	Verifier  *verify.Verifier
	Store     store.Store
	Paths     paths.Paths

	// Strict removes a fresh install whose self test fails
	Strict bool

	// Jobs bounds InstallAll parallelism; values below 1 mean 1
	Jobs int
}

// Result describes a finished attempt
type Result struct {
	Formula types.Formula
	Record  types.InstallationRecord

	// Archive is the verified source archive in the download cache
	Archive string

	// Verification is the self test failure, if any. The package stays
	// installed unless Removed is set.
	Verification error

	// Removed is set when strict verification uninstalled the package
	Removed bool

	Duration time.Duration
}

// Install runs one attempt for f. On success it returns the committed
// record. When only the self test fails the package stays installed and
// Install returns both the Result and the VERIFICATION error; in strict mode
// a package that had no previous record is removed again first.
func (in *Installer) Install(ctx context.Context, f types.Formula) (*Result, error) {
	f = f.Clone()
	logger := logging.ForFormula("pipeline", f.Name, f.Version)
	start := time.Now()

	ctx, span := telemetry.Tracer().Start(ctx, "install", trace.WithAttributes(
		attribute.String("formula.name", f.Name),
		attribute.String("formula.version", f.Version),
	))
	defer span.End()

	res, err := in.install(ctx, f)
	if res != nil {
		res.Duration = time.Since(start)
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, string(errors.GetErrorCode(err)))
		logger.Error().Err(err).Int("exit_code", errors.ExitCode(err)).Msg("Install failed")
		return res, err
	}
	logger.Info().Str("prefix", res.Record.Prefix).Dur("duration", res.Duration).Msg("Install succeeded")
	return res, nil
}

func (in *Installer) install(ctx context.Context, f types.Formula) (*Result, error) {
	logger := logging.ForFormula("pipeline", f.Name, f.Version)

	if err := runStage(ctx, "deps", func(ctx context.Context) error {
		return in.Gate.Check(ctx, f)
	}); err != nil {
		return nil, err
	}

	var archive string
	if err := runStage(ctx, "fetch", func(ctx context.Context) (err error) {
		archive, err = in.Fetcher.Fetch(ctx, f.Source())
		return err
	}); err != nil {
		return nil, err
	}

	var st *stage.Stage
	if err := runStage(ctx, "stage", func(ctx context.Context) (err error) {
		st, err = in.Stager.Stage(ctx, archive, f.Name)
		return err
	}); err != nil {
		return nil, err
	}
	defer func() {
		if err := st.Release(); err != nil {
			logger.Warn().Err(err).Msg("failed to release stage")
		}
	}()

	if err := runStage(ctx, "build", func(ctx context.Context) error {
		return in.Builder.RunInstall(ctx, f, st.SourceDir(), st.OutputDir())
	}); err != nil {
		return nil, err
	}

	// An unreadable record counts as a previous install so strict mode
	// never removes what may be an upgrade.
	_, hadPrevious, lerr := in.Store.Lookup(f.Name)
	if lerr != nil {
		logger.Warn().Err(lerr).Msg("failed to read previous record")
		hadPrevious = true
	}

	var rec types.InstallationRecord
	if err := runStage(ctx, "commit", func(ctx context.Context) (err error) {
		rec, err = in.Committer.Commit(ctx, st.OutputDir(), f)
		return err
	}); err != nil {
		return nil, err
	}

	res := &Result{Formula: f, Record: rec, Archive: archive}

	verr := runStage(ctx, "verify", func(ctx context.Context) error {
		return in.Verifier.Verify(ctx, f, rec.Prefix)
	})
	if verr == nil {
		return res, nil
	}
	res.Verification = verr

	if in.Strict && !hadPrevious && errors.IsErrorCode(verr, errors.ErrVerification) {
		if err := in.Committer.Remove(context.WithoutCancel(ctx), f.Name); err != nil {
			logger.Error().Err(err).Msg("failed to remove unverified install")
		} else {
			res.Removed = true
		}
	}
	return res, verr
}

// Test re-runs the self test of f against its installed prefix
func (in *Installer) Test(ctx context.Context, f types.Formula) error {
	rec, ok, err := in.Store.Lookup(f.Name)
	if err != nil {
		return err
	}
	if !ok {
		return errors.Newf(errors.ErrNotFound, "%s is not installed", f.Name)
	}
	if rec.Version != f.Version {
		logger := logging.ForFormula("pipeline", f.Name, f.Version)
		logger.Warn().
			Str("installed", rec.Version).
			Msg("testing a different installed version")
	}
	return runStage(ctx, "verify", func(ctx context.Context) error {
		return in.Verifier.Verify(ctx, f, rec.Prefix)
	})
}

// Uninstall removes an installed package
func (in *Installer) Uninstall(ctx context.Context, name string) error {
	return runStage(ctx, "uninstall", func(ctx context.Context) error {
		return in.Committer.Remove(ctx, name)
	})
}

// runStage runs fn inside a span named after the stage
func runStage(ctx context.Context, name string, fn func(context.Context) error) error {
	ctx, span := telemetry.Tracer().Start(ctx, name)
	defer span.End()

	err := fn(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, string(errors.GetErrorCode(err)))
	}
	return err
}
