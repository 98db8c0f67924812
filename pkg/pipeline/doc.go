// Package pipeline orchestrates one installation attempt per formula:
//
//	Dependency Gate -> Fetch -> Stage -> Build -> Commit -> Verify
//
// Each stage either produces the input of the next or aborts the attempt.
// Aborted attempts leave no record and no staging directory. The Installer
// holds no per-attempt state, so one Installer serves concurrent attempts.
package pipeline
