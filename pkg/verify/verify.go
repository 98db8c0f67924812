// Package verify runs a formula's self test against its installed prefix.
package verify

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/arthur-debert/dopkg/pkg/build"
	"github.com/arthur-debert/dopkg/pkg/errors"
	"github.com/arthur-debert/dopkg/pkg/logging"
	"github.com/arthur-debert/dopkg/pkg/runner"
	"github.com/arthur-debert/dopkg/pkg/types"
)

// Verifier runs self tests. It reads the installed tree only.
type Verifier struct {
	Runner      runner.Runner
	Interpreter []string
	OutputLimit int

	// Timeout bounds one test run; zero means no limit
	Timeout time.Duration

	// Env is the base environment; nil means the current process environment
	Env []string
}

// New returns a Verifier with the default interpreter
func New(r runner.Runner) *Verifier {
	return &Verifier{Runner: r, Interpreter: build.DefaultInterpreter, OutputLimit: runner.DefaultOutputLimit}
}

// Verify runs f's test with prefix bound to the installed prefix, in a
// scratch working directory. A formula without a test passes. A failed
// predicate or exit code yields a VERIFICATION error carrying the expected
// condition and the captured output.
func (v *Verifier) Verify(ctx context.Context, f types.Formula, prefix string) error {
	if f.Test == nil {
		return nil
	}
	logger := logging.ForFormula("verify", f.Name, f.Version)
	done := logging.LogOperationStart(logger, "verify")
	defer done()

	scratch, err := os.MkdirTemp("", "dopkg-test-"+f.Name+"-")
	if err != nil {
		return errors.Wrap(err, errors.ErrVerification, "failed to create test directory")
	}
	defer os.RemoveAll(scratch)

	parent := ctx
	if v.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, v.Timeout)
		defer cancel()
	}

	interpreter := v.Interpreter
	if len(interpreter) == 0 {
		interpreter = build.DefaultInterpreter
	}
	base := v.Env
	if base == nil {
		base = os.Environ()
	}
	vars := build.Vars(f.Name, f.Version, prefix)
	script := build.Expand(f.Test.Command, vars)
	logger.Info().Str("command", script).Msg("Running self test")

	res, err := v.Runner.Run(ctx, runner.Command{
		Args:        build.Interpret(interpreter, script),
		Dir:         scratch,
		Env:         build.Environ(base, vars),
		OutputLimit: v.OutputLimit,
	})
	if err != nil {
		if errors.IsCancellation(err) && parent.Err() == nil {
			return errors.Verification(expectation(f.Test), res.Combined).
				WithDetail("timeout", v.Timeout.String())
		}
		if errors.IsCancellation(err) {
			return err
		}
		return errors.Wrap(err, errors.ErrVerification, "self test could not run").
			WithDetail(errors.DetailCommand, script)
	}

	if code := f.Test.ExitCode; code != nil && res.ExitCode != *code {
		logger.Warn().Int("exit_code", res.ExitCode).Int("expected", *code).Msg("self test exit code mismatch")
		return errors.Verification(expectation(f.Test), res.Combined).
			WithDetail(errors.DetailExitCode, res.ExitCode)
	}

	ok, err := f.Test.Predicate.Match(res.Combined)
	if err != nil {
		return errors.Wrap(err, errors.ErrVerification, "invalid test predicate")
	}
	if !ok {
		logger.Warn().Str("output", res.Combined).Msg("self test output did not match")
		return errors.Verification(expectation(f.Test), res.Combined).
			WithDetail(errors.DetailExitCode, res.ExitCode)
	}

	logger.Info().Msg("Self test passed")
	return nil
}

func expectation(t *types.Test) string {
	if t.ExitCode != nil {
		return fmt.Sprintf("%s and exit status %d", t.Predicate.Describe(), *t.ExitCode)
	}
	return t.Predicate.Describe()
}
