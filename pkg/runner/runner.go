package runner

import (
	"context"
	stderrors "errors"
	"io"
	"os/exec"
	"syscall"
	"time"

	"github.com/arthur-debert/dopkg/pkg/errors"
	"github.com/arthur-debert/dopkg/pkg/logging"
)

// DefaultGracePeriod is how long a cancelled process group gets between
// SIGINT and SIGKILL
const DefaultGracePeriod = 2 * time.Second

// Command is one subprocess invocation
type Command struct {
	// Args is the program and its arguments; Args[0] is looked up in PATH
	Args []string

	// Dir is the working directory
	Dir string

	// Env is the complete environment; nil inherits the parent's
	Env []string

	// OutputLimit bounds each captured stream; zero means DefaultOutputLimit
	OutputLimit int
}

// Result is what a finished subprocess produced
type Result struct {
	ExitCode  int
	Signal    string
	Stdout    string
	Stderr    string
	Combined  string
	Truncated bool
	Duration  time.Duration
}

// Runner runs commands synchronously
type Runner interface {
	// Run returns a Result for any process that started and exited, whatever
	// its status. The error is reserved for failures to start and for
	// cancellation.
	Run(ctx context.Context, cmd Command) (Result, error)
}

// ExecRunner runs commands with os/exec
type ExecRunner struct {
	GracePeriod time.Duration
}

// New returns an ExecRunner with the default grace period
func New() *ExecRunner {
	return &ExecRunner{GracePeriod: DefaultGracePeriod}
}

// Run implements Runner.
func (r *ExecRunner) Run(ctx context.Context, c Command) (Result, error) {
	logger := logging.GetLogger("runner")
	if len(c.Args) == 0 {
		return Result{}, errors.New(errors.ErrInvalidInput, "empty command")
	}
	if err := errors.FromContext(ctx, "command not started"); err != nil {
		return Result{}, err
	}

	stdout := newTailBuffer(c.OutputLimit)
	stderr := newTailBuffer(c.OutputLimit)
	combined := newTailBuffer(c.OutputLimit)

	cmd := exec.Command(c.Args[0], c.Args[1:]...)
	cmd.Dir = c.Dir
	cmd.Env = c.Env
	cmd.Stdout = io.MultiWriter(stdout, combined)
	cmd.Stderr = io.MultiWriter(stderr, combined)
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}

	logging.LogCommand(logger, c.Args[0], c.Args[1:], c.Dir)

	start := time.Now()
	if err := cmd.Start(); err != nil {
		return Result{}, errors.Wrapf(err, errors.ErrInternal, "failed to start %s", c.Args[0]).
			WithDetail(errors.DetailCommand, c.Args[0])
	}
	pgid := cmd.Process.Pid

	waitDone := make(chan error, 1)
	go func() {
		waitDone <- cmd.Wait()
	}()

	var runErr error
	cancelled := false
	select {
	case runErr = <-waitDone:
	case <-ctx.Done():
		cancelled = true
		runErr = r.terminate(pgid, waitDone)
	}

	res := Result{
		Stdout:    stdout.String(),
		Stderr:    stderr.String(),
		Combined:  combined.String(),
		Truncated: combined.Truncated(),
		Duration:  time.Since(start),
	}

	if runErr != nil {
		var exitErr *exec.ExitError
		if !stderrors.As(runErr, &exitErr) {
			return res, errors.Wrapf(runErr, errors.ErrInternal, "failed waiting for %s", c.Args[0])
		}
		res.ExitCode = exitErr.ExitCode()
		if status, ok := exitErr.Sys().(syscall.WaitStatus); ok && status.Signaled() {
			res.Signal = status.Signal().String()
		}
	}

	logger.Debug().
		Int("exit_code", res.ExitCode).
		Str("signal", res.Signal).
		Dur("duration", res.Duration).
		Msg("Command finished")

	if cancelled {
		return res, errors.Cancelled(ctx.Err(), "command cancelled").
			WithDetail(errors.DetailCommand, c.Args[0]).
			WithDetail(errors.DetailOutput, res.Combined)
	}
	return res, nil
}

// terminate sends SIGINT to the process group and SIGKILL once the grace
// period elapses. A negative pid targets the whole group. The group is
// always killed at the end so stragglers do not outlive the leader.
func (r *ExecRunner) terminate(pgid int, waitDone <-chan error) error {
	_ = syscall.Kill(-pgid, syscall.SIGINT)

	grace := r.GracePeriod
	if grace <= 0 {
		grace = DefaultGracePeriod
	}
	timer := time.NewTimer(grace)
	defer timer.Stop()

	select {
	case err := <-waitDone:
		_ = syscall.Kill(-pgid, syscall.SIGKILL)
		return err
	case <-timer.C:
		_ = syscall.Kill(-pgid, syscall.SIGKILL)
		return <-waitDone
	}
}
