package cli

import (
	"fmt"

	"github.com/arthur-debert/dosort/pkg/catalog"
	"github.com/arthur-debert/dosort/pkg/filesystem"
	"github.com/spf13/cobra"
)

func newAddCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "add FILE...",
		Short: MsgAddShort,
		Long:  MsgAddLong,
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			store, err := a.openCatalog(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			fsys := filesystem.NewOS()
			for _, path := range args {
				rec, err := catalog.Register(ctx, store, fsys, path)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), MsgFileAdded, rec.Path, rec.ID)
			}
			return nil
		},
	}
}
