// Package build runs a formula's install steps inside its staging directory.
package build

import (
	"context"
	"os"
	"time"

	"github.com/arthur-debert/dopkg/pkg/errors"
	"github.com/arthur-debert/dopkg/pkg/logging"
	"github.com/arthur-debert/dopkg/pkg/runner"
	"github.com/arthur-debert/dopkg/pkg/types"
)

// DefaultInterpreter runs each step as a POSIX shell script
var DefaultInterpreter = []string{"/bin/sh", "-c"}

// Executor runs install steps
type Executor struct {
	Runner      runner.Runner
	Interpreter []string
	OutputLimit int

	// Timeout bounds the whole install; zero means no limit
	Timeout time.Duration

	// Env is the base environment; nil means the current process environment
	Env []string
}

// NewExecutor returns an Executor using r with the default interpreter
func NewExecutor(r runner.Runner) *Executor {
	return &Executor{Runner: r, Interpreter: DefaultInterpreter, OutputLimit: runner.DefaultOutputLimit}
}

// RunInstall runs the steps of f in order with sourceDir as the working
// directory and prefix as the install prefix. The first failing step stops
// the build and is reported as a BUILD error carrying the 1-based step
// number, its exit code and the tail of its output.
func (e *Executor) RunInstall(ctx context.Context, f types.Formula, sourceDir, prefix string) error {
	logger := logging.ForFormula("build", f.Name, f.Version)
	done := logging.LogOperationStart(logger, "install")
	defer done()

	parent := ctx
	if e.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.Timeout)
		defer cancel()
	}

	interpreter := e.Interpreter
	if len(interpreter) == 0 {
		interpreter = DefaultInterpreter
	}
	base := e.Env
	if base == nil {
		base = os.Environ()
	}
	vars := Vars(f.Name, f.Version, prefix)
	env := Environ(base, vars)

	for i, step := range f.Install {
		n := i + 1
		script := Expand(step, vars)
		logger.Info().Int("step", n).Str("command", script).Msg("Running install step")

		res, err := e.Runner.Run(ctx, runner.Command{
			Args:        Interpret(interpreter, script),
			Dir:         sourceDir,
			Env:         env,
			OutputLimit: e.OutputLimit,
		})
		if err != nil {
			if errors.IsCancellation(err) && parent.Err() == nil {
				return errors.Build(n, script, -1, res.Combined).
					WithDetail("timeout", e.Timeout.String())
			}
			if errors.IsCancellation(err) {
				return err
			}
			return errors.Wrapf(err, errors.ErrBuild, "install step %d could not run", n).
				WithDetail(errors.DetailStep, n).
				WithDetail(errors.DetailCommand, script)
		}

		if res.ExitCode != 0 {
			logger.Error().
				Int("step", n).
				Int("exit_code", res.ExitCode).
				Str("output", res.Combined).
				Msg("Install step failed")
			return errors.Build(n, script, res.ExitCode, res.Combined)
		}
		logger.Debug().Int("step", n).Str("output", res.Combined).Msg("Install step succeeded")
	}
	return nil
}
