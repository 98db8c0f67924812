package cli

import (
	"fmt"

	"github.com/arthur-debert/dopkg/internal/version"
	"github.com/arthur-debert/dopkg/pkg/errors"
	"github.com/arthur-debert/dopkg/pkg/formula"
	"github.com/arthur-debert/dopkg/pkg/logging"
	"github.com/arthur-debert/dopkg/pkg/pipeline"
	"github.com/arthur-debert/dopkg/pkg/types"
	"github.com/arthur-debert/dopkg/pkg/ui"
	"github.com/spf13/cobra"
)

func loadFormulas(files []string) ([]types.Formula, error) {
	formulas := make([]types.Formula, 0, len(files))
	for _, file := range files {
		f, err := formula.Load(file)
		if err != nil {
			return nil, err
		}
		formulas = append(formulas, f)
	}
	return formulas, nil
}

func newInstallCmd(a *app) *cobra.Command {
	var (
		jobs   int
		strict bool
	)

	cmd := &cobra.Command{
		Use:     "install FORMULA...",
		Short:   MsgInstallShort,
		Long:    MsgInstallLong,
		GroupID: "core",
		Args:    cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := logging.GetLogger("cli.install")

			formulas, err := loadFormulas(args)
			if err != nil {
				return err
			}

			overrides := map[string]interface{}{}
			if cmd.Flags().Changed("jobs") {
				overrides["jobs"] = jobs
			}
			if cmd.Flags().Changed("strict") {
				overrides["verify.strict"] = strict
			}
			installer, err := a.installer(overrides)
			if err != nil {
				return err
			}

			logger.Info().Int("formulas", len(formulas)).Int("jobs", installer.Jobs).Msg("Starting install")
			outcomes := installer.InstallAll(cmd.Context(), formulas)

			r, err := a.renderer(a.stdout)
			if err != nil {
				return err
			}
			if err := r.RenderInstall(reports(outcomes)); err != nil {
				return err
			}

			if errs := pipeline.Errors(outcomes); len(errs) > 0 {
				return &reportedError{err: errs[0]}
			}
			return nil
		},
	}

	cmd.Flags().IntVarP(&jobs, "jobs", "j", 4, MsgFlagJobs)
	cmd.Flags().BoolVar(&strict, "strict", false, MsgFlagStrict)
	return cmd
}

// reports converts pipeline outcomes for display
func reports(outcomes []pipeline.Outcome) []ui.InstallReport {
	out := make([]ui.InstallReport, 0, len(outcomes))
	for _, o := range outcomes {
		rep := ui.InstallReport{
			Name:    o.Formula.Name,
			Version: o.Formula.Version,
			Err:     o.Err,
		}
		if o.Result != nil {
			rep.Prefix = o.Result.Record.Prefix
			rep.Warning = o.Result.Verification
			rep.Removed = o.Result.Removed
		}
		out = append(out, rep)
	}
	return out
}

func newUninstallCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:     "uninstall NAME...",
		Aliases: []string{"remove", "rm"},
		Short:   MsgUninstallShort,
		GroupID: "core",
		Args:    cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			installer, err := a.installer(nil)
			if err != nil {
				return err
			}
			r, err := a.renderer(a.stdout)
			if err != nil {
				return err
			}
			for _, name := range args {
				if err := installer.Uninstall(cmd.Context(), name); err != nil {
					return err
				}
				if err := r.RenderMessage(fmt.Sprintf(MsgUninstalled, name)); err != nil {
					return err
				}
			}
			return nil
		},
		ValidArgsFunction: func(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
			return a.installedNames(), cobra.ShellCompDirectiveNoFileComp
		},
	}
}

// installedNames completes package names from the record store
func (a *app) installedNames() []string {
	installer, err := a.installer(nil)
	if err != nil {
		return nil
	}
	records, err := installer.Store.List()
	if err != nil {
		return nil
	}
	names := make([]string, 0, len(records))
	for _, rec := range records {
		names = append(names, rec.Name)
	}
	return names
}

func newListCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   MsgListShort,
		GroupID: "core",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			installer, err := a.installer(nil)
			if err != nil {
				return err
			}
			records, err := installer.Store.List()
			if err != nil {
				return err
			}
			r, err := a.renderer(a.stdout)
			if err != nil {
				return err
			}
			return r.RenderRecords(records)
		},
	}
}

func newInfoCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:     "info FORMULA",
		Short:   MsgInfoShort,
		GroupID: "core",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := formula.Load(args[0])
			if err != nil {
				return err
			}
			installer, err := a.installer(nil)
			if err != nil {
				return err
			}
			info := ui.FormulaInfo{Formula: f}
			rec, ok, err := installer.Store.Lookup(f.Name)
			if err != nil {
				return err
			}
			if ok {
				info.Installed = &rec
			}
			r, err := a.renderer(a.stdout)
			if err != nil {
				return err
			}
			return r.RenderInfo(info)
		},
	}
}

func newTestCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:     "test FORMULA",
		Short:   MsgTestShort,
		GroupID: "core",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := formula.Load(args[0])
			if err != nil {
				return err
			}
			installer, err := a.installer(nil)
			if err != nil {
				return err
			}
			if err := installer.Test(cmd.Context(), f); err != nil {
				return err
			}
			r, err := a.renderer(a.stdout)
			if err != nil {
				return err
			}
			msg := MsgTestPassed
			if f.Test == nil {
				msg = MsgNoTest
			}
			return r.RenderMessage(fmt.Sprintf(msg, f.Name, f.Version))
		},
	}
}

func newFetchCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:     "fetch FORMULA...",
		Short:   MsgFetchShort,
		GroupID: "core",
		Args:    cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			formulas, err := loadFormulas(args)
			if err != nil {
				return err
			}
			installer, err := a.installer(nil)
			if err != nil {
				return err
			}
			r, err := a.renderer(a.stdout)
			if err != nil {
				return err
			}
			for _, f := range formulas {
				path, err := installer.Fetcher.Fetch(cmd.Context(), f.Source())
				if err != nil {
					return err
				}
				if err := r.RenderMessage(fmt.Sprintf(MsgFetched, path)); err != nil {
					return err
				}
			}
			return nil
		},
	}
}

func newVersionCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:     "version",
		Short:   MsgVersionShort,
		Long:    MsgVersionLong,
		GroupID: "misc",
		Args:    cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(a.stdout, MsgVersionFormat, version.Version)
			if version.Commit != "" {
				fmt.Fprintf(a.stdout, MsgCommitFormat, version.Commit)
			}
			if version.Date != "" {
				fmt.Fprintf(a.stdout, MsgBuiltFormat, version.Date)
			}
		},
	}
}

func newCompletionCmd() *cobra.Command {
	return &cobra.Command{
		Use:                   "completion [bash|zsh|fish|powershell]",
		Short:                 MsgCompletionShort,
		GroupID:               "misc",
		DisableFlagsInUseLine: true,
		ValidArgs:             []string{"bash", "zsh", "fish", "powershell"},
		Args:                  cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			switch args[0] {
			case "bash":
				return cmd.Root().GenBashCompletion(out)
			case "zsh":
				return cmd.Root().GenZshCompletion(out)
			case "fish":
				return cmd.Root().GenFishCompletion(out, true)
			case "powershell":
				return cmd.Root().GenPowerShellCompletionWithDesc(out)
			}
			return errors.Newf(errors.ErrInvalidInput, "unsupported shell %q", args[0])
		},
	}
}
