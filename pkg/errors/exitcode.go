package errors

// Process exit codes reported by the CLI. Automation keys off these values,
// so they must stay stable.
const (
	ExitOK                = 0
	ExitUnknown           = 1
	ExitInvalidInput      = 2
	ExitMissingDependency = 10
	ExitFetch             = 11
	ExitStage             = 12
	ExitBuild             = 13
	ExitCommit            = 14
	ExitVerification      = 15
	ExitCancelled         = 130
)

var exitCodes = map[ErrorCode]int{
	ErrInvalidInput:      ExitInvalidInput,
	ErrNotFound:          ExitInvalidInput,
	ErrConfigLoad:        ExitInvalidInput,
	ErrConfigParse:       ExitInvalidInput,
	ErrConfigValid:       ExitInvalidInput,
	ErrFormulaParse:      ExitInvalidInput,
	ErrFormulaInvalid:    ExitInvalidInput,
	ErrMissingDependency: ExitMissingDependency,
	ErrNetwork:           ExitFetch,
	ErrHashMismatch:      ExitFetch,
	ErrCache:             ExitFetch,
	ErrStaging:           ExitStage,
	ErrUnpack:            ExitStage,
	ErrPathTraversal:     ExitStage,
	ErrBuild:             ExitBuild,
	ErrIO:                ExitCommit,
	ErrLock:              ExitCommit,
	ErrVerification:      ExitVerification,
	ErrCancelled:         ExitCancelled,
}

// ExitCode maps an error to the process exit code for it. A nil error is 0.
func ExitCode(err error) int {
	if err == nil {
		return ExitOK
	}
	if code, ok := exitCodes[GetErrorCode(err)]; ok {
		return code
	}
	return ExitUnknown
}
