// Package cli implements the dopkg command line.
package cli

import (
	"context"
	stderrors "errors"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/arthur-debert/dopkg/internal/version"
	"github.com/arthur-debert/dopkg/pkg/config"
	"github.com/arthur-debert/dopkg/pkg/errors"
	"github.com/arthur-debert/dopkg/pkg/logging"
	"github.com/arthur-debert/dopkg/pkg/pipeline"
	"github.com/arthur-debert/dopkg/pkg/telemetry"
	"github.com/arthur-debert/dopkg/pkg/ui"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

// app holds what the root command's flags select; subcommands read it
type app struct {
	verbosity  int
	configFile string
	store      string
	output     string

	stdout io.Writer
	stderr io.Writer

	shutdown telemetry.ShutdownFunc
}

// reportedError marks an error the command already rendered
type reportedError struct {
	err error
}

func (r *reportedError) Error() string { return r.err.Error() }
func (r *reportedError) Unwrap() error { return r.err }

// IsReported reports whether err was already shown to the user
func IsReported(err error) bool {
	var r *reportedError
	return stderrors.As(err, &r)
}

// NewRootCmd creates and returns the root command
func NewRootCmd() *cobra.Command {
	return newRootCmd(&app{stdout: os.Stdout, stderr: os.Stderr})
}

func newRootCmd(a *app) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:     "dopkg",
		Short:   MsgRootShort,
		Long:    MsgRootLong,
		Version: version.Version,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			logging.SetupLogger(a.verbosity)
			log.Debug().Str("command", cmd.Name()).Msg("Command started")
			_, err := ui.ParseFormat(a.output)
			return err
		},
		SilenceUsage:      true,
		SilenceErrors:     true,
		DisableAutoGenTag: true,
	}
	rootCmd.SetOut(a.stdout)
	rootCmd.SetErr(a.stderr)

	rootCmd.PersistentFlags().CountVarP(&a.verbosity, "verbose", "v", MsgFlagVerbose)
	rootCmd.PersistentFlags().StringVar(&a.configFile, "config", "", MsgFlagConfig)
	rootCmd.PersistentFlags().StringVar(&a.store, "store", "", MsgFlagStore)
	rootCmd.PersistentFlags().StringVarP(&a.output, "output", "o", "auto", MsgFlagOutput)

	rootCmd.AddGroup(&cobra.Group{ID: "core", Title: "COMMANDS:"})
	rootCmd.AddGroup(&cobra.Group{ID: "misc", Title: "MISC:"})

	rootCmd.AddCommand(newInstallCmd(a))
	rootCmd.AddCommand(newUninstallCmd(a))
	rootCmd.AddCommand(newListCmd(a))
	rootCmd.AddCommand(newInfoCmd(a))
	rootCmd.AddCommand(newTestCmd(a))
	rootCmd.AddCommand(newFetchCmd(a))
	rootCmd.AddCommand(newVersionCmd(a))
	rootCmd.AddCommand(newCompletionCmd())

	return rootCmd
}

// Execute runs the command line and returns the process exit code
func Execute(args []string) int {
	a := &app{stdout: os.Stdout, stderr: os.Stderr}
	return execute(a, args)
}

func execute(a *app, args []string) int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rootCmd := newRootCmd(a)
	rootCmd.SetArgs(args)
	err := rootCmd.ExecuteContext(ctx)

	if a.shutdown != nil {
		if serr := a.shutdown(context.Background()); serr != nil {
			log.Warn().Err(serr).Msg("failed to flush traces")
		}
	}

	if err == nil {
		return errors.ExitOK
	}
	if !IsReported(err) {
		r, rerr := a.renderer(a.stderr)
		if rerr != nil {
			r, _ = ui.NewRenderer(ui.FormatText, a.stderr)
		}
		_ = r.RenderError(err)
	}
	return errors.ExitCode(err)
}

// renderer returns the renderer the --output flag selects for w
func (a *app) renderer(w io.Writer) (ui.Renderer, error) {
	format, err := ui.ParseFormat(a.output)
	if err != nil {
		return nil, err
	}
	return ui.NewRenderer(format, w)
}

// load reads configuration with the root flags and any command overrides
// applied, and starts tracing when enabled.
func (a *app) load(overrides map[string]interface{}) (*config.Config, error) {
	if overrides == nil {
		overrides = map[string]interface{}{}
	}
	if a.store != "" {
		overrides["paths.store"] = a.store
	}

	cfg, err := config.Load(config.Options{ConfigFile: a.configFile, Overrides: overrides})
	if err != nil {
		return nil, err
	}
	if cfg.Telemetry.Enabled && a.shutdown == nil {
		a.shutdown = telemetry.InitTracer(context.Background(), a.stderr, version.Version)
	}
	return cfg, nil
}

// installer wires the pipeline for the loaded configuration
func (a *app) installer(overrides map[string]interface{}) (*pipeline.Installer, error) {
	cfg, err := a.load(overrides)
	if err != nil {
		return nil, err
	}
	return pipeline.FromConfig(cfg)
}
