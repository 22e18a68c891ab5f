package cli

import (
	"fmt"

	"github.com/arthur-debert/dosort/pkg/display"
	"github.com/arthur-debert/dosort/pkg/executor"
	"github.com/spf13/cobra"
)

func newTagCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tag",
		Short: MsgTagShort,
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "add FILE TAG...",
		Short: MsgTagAddShort,
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			store, err := a.openCatalog(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			rec, err := lookup(ctx, store, args[0])
			if err != nil {
				return err
			}
			exec := executor.New(executor.Config{Catalog: store})
			if errs := exec.ApplyTags(ctx, rec.ID, args[1:]); len(errs) > 0 {
				return errs[0]
			}
			for _, tag := range args[1:] {
				fmt.Fprintf(cmd.OutOrStdout(), MsgTagAdded, rec.Path, tag)
			}
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:     "remove FILE TAG",
		Aliases: []string{"rm"},
		Short:   MsgTagRmShort,
		Args:    cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			store, err := a.openCatalog(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			rec, err := lookup(ctx, store, args[0])
			if err != nil {
				return err
			}
			if err := store.UnlinkTag(ctx, rec.ID, args[1]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), MsgTagRemoved, args[1], rec.Path)
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:     "list FILE",
		Aliases: []string{"ls"},
		Short:   MsgTagListShort,
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			store, err := a.openCatalog(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			rec, err := lookup(ctx, store, args[0])
			if err != nil {
				return err
			}
			tags, err := store.FileTags(ctx, rec.ID)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintln(out, display.ForWriter(out).RenderTags(rec.Path, tags))
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "files TAG",
		Short: MsgTagFilesShort,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			store, err := a.openCatalog(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			files, err := store.FilesByTag(ctx, args[0])
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if len(files) == 0 {
				fmt.Fprintf(out, MsgNoFilesWithTag, args[0])
				return nil
			}
			for _, f := range files {
				fmt.Fprintln(out, f.Path)
			}
			return nil
		},
	})

	return cmd
}
