package errors

import (
	"context"
	"errors"
)

// MissingDependency reports a declared dependency that is neither installed
// nor (for build dependencies) provided by the toolchain.
func MissingDependency(name, kind string) *Error {
	return Newf(ErrMissingDependency, "missing %s dependency %q", kind, name).
		WithDetail(DetailDependency, name).
		WithDetail(DetailKind, kind)
}

// Network wraps a transport failure for url.
func Network(err error, url string) *Error {
	return Wrapf(err, ErrNetwork, "failed to fetch %s", url).
		WithDetail(DetailURL, url)
}

// HashMismatch reports downloaded bytes whose digest differs from the formula.
func HashMismatch(url, algorithm, expected, actual string) *Error {
	return Newf(ErrHashMismatch, "%s mismatch for %s: expected %s, got %s", algorithm, url, expected, actual).
		WithDetail(DetailURL, url).
		WithDetail(DetailAlgorithm, algorithm).
		WithDetail(DetailExpected, expected).
		WithDetail(DetailActual, actual)
}

// PathTraversal reports an archive entry that resolves outside the staging root.
// It is a specialisation of an unpack failure and maps to the same exit code.
func PathTraversal(entry string) *Error {
	return Newf(ErrPathTraversal, "archive entry %q escapes the staging directory", entry).
		WithDetail(DetailEntry, entry)
}

// Build reports a failed install step.
func Build(step int, command string, exitCode int, output string) *Error {
	return Newf(ErrBuild, "install step %d exited with status %d", step, exitCode).
		WithDetail(DetailStep, step).
		WithDetail(DetailCommand, command).
		WithDetail(DetailExitCode, exitCode).
		WithDetail(DetailOutput, output)
}

// Verification reports a self test whose output did not satisfy its predicate.
func Verification(expected, actual string) *Error {
	return Newf(ErrVerification, "self test failed: expected %s", expected).
		WithDetail(DetailExpected, expected).
		WithDetail(DetailActual, actual)
}

// Cancelled converts a context error into a CANCELLED error, keeping the cause.
func Cancelled(err error, message string) *Error {
	return Wrap(err, ErrCancelled, message)
}

// FromContext returns a CANCELLED error when ctx is done, nil otherwise.
func FromContext(ctx context.Context, message string) error {
	if err := ctx.Err(); err != nil {
		return Cancelled(err, message)
	}
	return nil
}

// IsCancellation reports whether err was caused by context cancellation.
func IsCancellation(err error) bool {
	return IsErrorCode(err, ErrCancelled) ||
		errors.Is(err, context.Canceled) ||
		errors.Is(err, context.DeadlineExceeded)
}
