// Package runner executes subprocesses for install steps and self tests.
//
// Each command runs in its own process group with stdin bound to
// /dev/null. Output is captured into bounded tail buffers so a chatty build
// cannot exhaust memory. When the context is cancelled the whole group is
// sent SIGINT, then SIGKILL after a grace period, so helper processes
// spawned by make or a shell do not outlive the attempt.
package runner
