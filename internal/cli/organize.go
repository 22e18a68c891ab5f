package cli

import (
	"fmt"
	"path/filepath"

	"github.com/arthur-debert/dosort/pkg/catalog"
	"github.com/arthur-debert/dosort/pkg/display"
	"github.com/arthur-debert/dosort/pkg/errors"
	"github.com/arthur-debert/dosort/pkg/executor"
	"github.com/arthur-debert/dosort/pkg/filesystem"
	"github.com/arthur-debert/dosort/pkg/logging"
	"github.com/arthur-debert/dosort/pkg/organize"
	"github.com/arthur-debert/dosort/pkg/rules"
	"github.com/spf13/cobra"
)

func newOrganizeCmd(a *app) *cobra.Command {
	var (
		dryRun      bool
		noVerify    bool
		concurrency int
	)

	cmd := &cobra.Command{
		Use:   "organize [scope]",
		Short: MsgOrganizeShort,
		Long:  MsgOrganizeLong,
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := logging.GetLogger("cli.organize")
			ctx := cmd.Context()

			rs, err := rules.LoadRules(a.cfg.Rules.Path)
			if err != nil {
				return err
			}
			if a.cfg.Organize.BaseDir != "" {
				rs.BaseDir = a.cfg.Organize.BaseDir
			}

			opts := organize.Options{
				DryRun:      dryRun,
				Verify:      a.cfg.Organize.Verify && !noVerify,
				Concurrency: a.cfg.Organize.Concurrency,
				OnProgress: func(done, total int, outcome organize.FileOutcome) {
					logger.Debug().
						Int("done", done).
						Int("total", total).
						Str("file", outcome.Path).
						Str("status", string(outcome.Status)).
						Msg("File processed")
				},
			}
			if cmd.Flags().Changed("concurrency") {
				if concurrency < 1 {
					return errors.Newf(errors.ErrConfigValid, "--concurrency must be at least 1, got %d", concurrency)
				}
				opts.Concurrency = concurrency
			}

			scope := ""
			if len(args) == 1 {
				if scope, err = filepath.Abs(args[0]); err != nil {
					return errors.Wrap(err, errors.ErrInvalidInput, "invalid scope")
				}
			}

			store, err := a.openCatalog(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			fsys := filesystem.NewOS()
			files, problems, err := organize.Collect(ctx, store, catalog.NewProvider(store, fsys), scope)
			if err != nil {
				return err
			}

			exec := executor.New(executor.Config{Catalog: store, FS: fsys})
			summary := organize.New(rules.NewBuilder(), exec).Run(ctx, rs, files, opts)
			summary.AddUncollected(problems)

			out := cmd.OutOrStdout()
			fmt.Fprintln(out, display.ForWriter(out).RenderSummary(summary))

			logger.Info().
				Int("total", summary.Total).
				Int("succeeded", summary.Succeeded).
				Int("failed", summary.Failed).
				Bool("dryRun", summary.DryRun).
				Msg("Organize finished")
			return nil
		},
	}

	cmd.Flags().BoolVar(&dryRun, "dry-run", false, MsgFlagDryRun)
	cmd.Flags().BoolVar(&noVerify, "no-verify", false, MsgFlagNoVerify)
	cmd.Flags().IntVar(&concurrency, "concurrency", 1, MsgFlagConcurrency)

	return cmd
}
