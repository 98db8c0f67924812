package pipeline

import (
	"github.com/arthur-debert/dopkg/pkg/build"
	"github.com/arthur-debert/dopkg/pkg/commit"
	"github.com/arthur-debert/dopkg/pkg/config"
	"github.com/arthur-debert/dopkg/pkg/deps"
	"github.com/arthur-debert/dopkg/pkg/fetch"
	"github.com/arthur-debert/dopkg/pkg/filesystem"
	"github.com/arthur-debert/dopkg/pkg/lock"
	"github.com/arthur-debert/dopkg/pkg/runner"
	"github.com/arthur-debert/dopkg/pkg/stage"
	"github.com/arthur-debert/dopkg/pkg/store"
	"github.com/arthur-debert/dopkg/pkg/verify"
)

// FromConfig wires an Installer for the store described by cfg
func FromConfig(cfg *config.Config) (*Installer, error) {
	layout, err := cfg.Layout()
	if err != nil {
		return nil, err
	}
	locker, err := lock.New(cfg.Lock, layout)
	if err != nil {
		return nil, err
	}

	records := store.New(filesystem.NewOS(), layout.RecordsDir())
	r := runner.New()

	builder := build.NewExecutor(r)
	if len(cfg.Build.Interpreter) > 0 {
		builder.Interpreter = cfg.Build.Interpreter
	}
	if cfg.Build.OutputLimit > 0 {
		builder.OutputLimit = cfg.Build.OutputLimit
	}
	builder.Timeout = cfg.Build.Timeout

	verifier := verify.New(r)
	verifier.Interpreter = builder.Interpreter
	verifier.OutputLimit = builder.OutputLimit
	verifier.Timeout = cfg.Verify.Timeout

	return &Installer{
		Gate: deps.NewGate(records, deps.NewRegistry(cfg.Toolchain.Tools, cfg.Toolchain.SearchPath)),
		Fetcher: fetch.New(fetch.Options{
			Dir:        layout.DownloadsDir(),
			Retries:    cfg.Fetch.Retries,
			Backoff:    cfg.Fetch.Backoff,
			Timeout:    cfg.Fetch.Timeout,
			Transports: fetch.DefaultTransports(cfg.Fetch),
		}),
		Stager:    stage.NewManager(layout.StagingDir()),
		Builder:   builder,
		Committer: commit.New(layout, records, locker),
		Verifier:  verifier,
		Store:     records,
		Paths:     layout,
		Strict:    cfg.Verify.Strict,
		Jobs:      cfg.Jobs,
	}, nil
}
