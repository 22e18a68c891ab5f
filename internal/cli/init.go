package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/arthur-debert/dosort/pkg/errors"
	"github.com/arthur-debert/dosort/pkg/rules"
	"github.com/spf13/cobra"
)

func newInitCmd(a *app) *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "init",
		Short: MsgInitShort,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			path := a.cfg.Rules.Path
			if _, err := os.Stat(path); err == nil && !force {
				return errors.Newf(errors.ErrDestinationExists, MsgErrRulesExist, path).WithDetail("path", path)
			}
			if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
				return errors.Wrapf(err, errors.ErrInternal, "cannot create %s", filepath.Dir(path))
			}
			if err := os.WriteFile(path, []byte(rules.Template()), 0644); err != nil {
				return errors.Wrapf(err, errors.ErrInternal, "cannot write %s", path)
			}
			fmt.Fprintf(cmd.OutOrStdout(), MsgRulesWritten, path)
			return nil
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, MsgFlagForce)
	return cmd
}
