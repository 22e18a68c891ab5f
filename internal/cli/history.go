package cli

import (
	"fmt"

	"github.com/arthur-debert/dosort/pkg/display"
	"github.com/spf13/cobra"
)

func newHistoryCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "history FILE",
		Short: MsgHistoryShort,
		Args:  cobra.ExactArgs(1),
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
			entries, err := store.Actions(ctx, rec.ID)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintln(out, display.ForWriter(out).RenderHistory(rec.Path, entries))
			return nil
		},
	}
}
