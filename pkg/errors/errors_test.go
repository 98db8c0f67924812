// pkg/errors/errors_test.go
// TEST TYPE: Unit Test
// DEPENDENCIES: None
// PURPOSE: Test error creation, wrapping, pipeline constructors and exit codes

package errors_test

import (
	"context"
	stderrors "errors"
	"fmt"
	"testing"

	"github.com/arthur-debert/dopkg/pkg/errors"
)

func TestNew(t *testing.T) {
	tests := []struct {
		name    string
		code    errors.ErrorCode
		message string
		wantStr string
	}{
		{
			name:    "not_found_error",
			code:    errors.ErrNotFound,
			message: "formula not found",
			wantStr: "[NOT_FOUND] formula not found",
		},
		{
			name:    "invalid_input_error",
			code:    errors.ErrInvalidInput,
			message: "invalid configuration",
			wantStr: "[INVALID_INPUT] invalid configuration",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := errors.New(tt.code, tt.message)

			if err.Code != tt.code {
				t.Errorf("New() code = %v, want %v", err.Code, tt.code)
			}

			if err.Message != tt.message {
				t.Errorf("New() message = %q, want %q", err.Message, tt.message)
			}

			if err.Details == nil {
				t.Error("New() details should be initialized")
			}

			if got := err.Error(); got != tt.wantStr {
				t.Errorf("Error() = %q, want %q", got, tt.wantStr)
			}
		})
	}
}

func TestWrap(t *testing.T) {
	baseErr := stderrors.New("base error")

	t.Run("wrap_non_nil_error", func(t *testing.T) {
		err := errors.Wrap(baseErr, errors.ErrIO, "rename failed")

		if err.Code != errors.ErrIO {
			t.Errorf("Wrap() code = %v, want %v", err.Code, errors.ErrIO)
		}

		if err.Wrapped != baseErr {
			t.Error("Wrap() should preserve wrapped error")
		}

		wantStr := "[IO] rename failed: base error"
		if got := err.Error(); got != wantStr {
			t.Errorf("Error() = %q, want %q", got, wantStr)
		}
	})

	t.Run("wrap_nil_error_returns_nil", func(t *testing.T) {
		err := errors.Wrap(nil, errors.ErrInternal, "internal error")
		if err != nil {
			t.Error("Wrap(nil) should return nil")
		}
	})
}

func TestIs(t *testing.T) {
	err1 := errors.New(errors.ErrBuild, "error 1")
	err2 := errors.New(errors.ErrBuild, "error 2")
	err3 := errors.New(errors.ErrIO, "error 3")

	if !err1.Is(err2) {
		t.Error("Is() should return true for same code")
	}
	if err1.Is(err3) {
		t.Error("Is() should return false for different codes")
	}
	if !stderrors.Is(fmt.Errorf("outer: %w", err1), err2) {
		t.Error("errors.Is() should see through fmt wrapping")
	}
}

func TestGetErrorCode(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected errors.ErrorCode
	}{
		{"structured", errors.New(errors.ErrUnpack, "bad"), errors.ErrUnpack},
		{"wrapped_structured", fmt.Errorf("ctx: %w", errors.New(errors.ErrNetwork, "x")), errors.ErrNetwork},
		{"plain", stderrors.New("plain"), errors.ErrUnknown},
		{"context_canceled", context.Canceled, errors.ErrCancelled},
		{"deadline", fmt.Errorf("run: %w", context.DeadlineExceeded), errors.ErrCancelled},
		{"nil", nil, errors.ErrUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := errors.GetErrorCode(tt.err); got != tt.expected {
				t.Errorf("GetErrorCode() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestPipelineConstructors(t *testing.T) {
	t.Run("missing_dependency_names_the_dependency", func(t *testing.T) {
		err := errors.MissingDependency("pkg-config", "build")
		v, ok := errors.GetDetail(err, errors.DetailDependency)
		if !ok || v != "pkg-config" {
			t.Errorf("dependency detail = %v, want pkg-config", v)
		}
		if v, _ := errors.GetDetail(err, errors.DetailKind); v != "build" {
			t.Errorf("kind detail = %v, want build", v)
		}
	})

	t.Run("hash_mismatch_carries_both_hashes", func(t *testing.T) {
		err := errors.HashMismatch("https://example.com/a.tgz", "sha256", "aa", "bb")
		if v, _ := errors.GetDetail(err, errors.DetailExpected); v != "aa" {
			t.Errorf("expected detail = %v", v)
		}
		if v, _ := errors.GetDetail(err, errors.DetailActual); v != "bb" {
			t.Errorf("actual detail = %v", v)
		}
	})

	t.Run("build_carries_step_and_output", func(t *testing.T) {
		err := errors.Build(2, "make install", 2, "no rule")
		if v, _ := errors.GetDetail(err, errors.DetailStep); v != 2 {
			t.Errorf("step detail = %v", v)
		}
		if v, _ := errors.GetDetail(err, errors.DetailOutput); v != "no rule" {
			t.Errorf("output detail = %v", v)
		}
	})

	t.Run("from_context", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		if err := errors.FromContext(ctx, "fetch"); err != nil {
			t.Fatalf("FromContext() on live context = %v", err)
		}
		cancel()
		err := errors.FromContext(ctx, "fetch")
		if !errors.IsCancellation(err) {
			t.Errorf("FromContext() = %v, want cancellation", err)
		}
		if !stderrors.Is(err, context.Canceled) {
			t.Error("cancellation should keep context.Canceled in the chain")
		}
	})
}

func TestExitCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"success", nil, errors.ExitOK},
		{"missing_dependency", errors.MissingDependency("a", "runtime"), errors.ExitMissingDependency},
		{"network", errors.Network(stderrors.New("refused"), "http://x"), errors.ExitFetch},
		{"hash_mismatch", errors.HashMismatch("u", "sha1", "a", "b"), errors.ExitFetch},
		{"cache", errors.New(errors.ErrCache, "cache dir"), errors.ExitFetch},
		{"unpack", errors.New(errors.ErrUnpack, "corrupt"), errors.ExitStage},
		{"staging", errors.New(errors.ErrStaging, "staging dir"), errors.ExitStage},
		{"traversal", errors.PathTraversal("../etc/passwd"), errors.ExitStage},
		{"build", errors.Build(0, "make", 1, ""), errors.ExitBuild},
		{"commit", errors.New(errors.ErrIO, "rename"), errors.ExitCommit},
		{"verification", errors.Verification("contains x", "y"), errors.ExitVerification},
		{"cancelled", context.Canceled, errors.ExitCancelled},
		{"formula", errors.New(errors.ErrFormulaInvalid, "bad"), errors.ExitInvalidInput},
		{"plain", stderrors.New("boom"), errors.ExitUnknown},
	}

	seen := map[int]string{}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := errors.ExitCode(tt.err); got != tt.want {
				t.Errorf("ExitCode() = %d, want %d", got, tt.want)
			}
		})
		seen[tt.want] = tt.name
	}

	for _, code := range []int{
		errors.ExitMissingDependency, errors.ExitFetch, errors.ExitBuild,
		errors.ExitCommit, errors.ExitVerification,
	} {
		if _, ok := seen[code]; !ok {
			t.Errorf("exit code %d not covered", code)
		}
	}
}

func TestErrorChaining(t *testing.T) {
	rootCause := stderrors.New("root cause")
	ioErr := errors.Wrap(rootCause, errors.ErrIO, "cannot write record")
	outer := errors.Wrap(ioErr, errors.ErrConfigLoad, "failed to load config")

	if !errors.IsErrorCode(outer, errors.ErrConfigLoad) {
		t.Error("Top level should have ErrConfigLoad code")
	}

	var inner *errors.Error
	if stderrors.As(outer.Unwrap(), &inner) && !errors.IsErrorCode(inner, errors.ErrIO) {
		t.Error("Middle error should have ErrIO code")
	}

	if !stderrors.Is(outer, rootCause) {
		t.Error("Should find root cause with errors.Is")
	}
}
