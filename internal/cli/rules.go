package cli

import (
	"fmt"

	"github.com/arthur-debert/dosort/pkg/rules"
	"github.com/spf13/cobra"
)

func newRulesCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rules",
		Short: MsgRulesShort,
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "validate [file]",
		Short: MsgValidateShort,
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := a.cfg.Rules.Path
			if len(args) == 1 {
				path = args[0]
			}
			rs, err := rules.LoadRules(path)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, MsgRulesValid, rs.Source, len(rs.Rules))
			for i, r := range rs.Rules {
				fmt.Fprintf(out, MsgRuleItem, i+1, r.Name)
			}
			return nil
		},
	})

	return cmd
}
