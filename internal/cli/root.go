// Package cli implements the dosort command line.
package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/arthur-debert/dosort/internal/version"
	"github.com/arthur-debert/dosort/pkg/config"
	"github.com/arthur-debert/dosort/pkg/errors"
	"github.com/arthur-debert/dosort/pkg/logging"
	"github.com/arthur-debert/dosort/pkg/paths"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

// app holds what every command shares once flags are parsed
type app struct {
	verbosity  int
	configFile string
	dbPath     string
	rulesPath  string
	cfg        *config.Config
}

// NewRootCmd creates and returns the root command
func NewRootCmd() *cobra.Command {
	initTemplateFormatting()

	a := &app{}

	rootCmd := &cobra.Command{
		Use:     "dosort",
		Short:   MsgRootShort,
		Long:    MsgRootLong,
		Version: version.Version,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			logging.SetupLogger(a.verbosity)
			log.Debug().Str("command", cmd.Name()).Msg("Command started")
			return a.loadConfig(cmd)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			// If we get here, no subcommand was provided
			_ = cmd.Help()
			return fmt.Errorf("no command specified")
		},
		SilenceUsage:  true,
		SilenceErrors: true,
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
		DisableAutoGenTag: true,
	}

	// Global flags
	rootCmd.PersistentFlags().CountVarP(&a.verbosity, "verbose", "v", MsgFlagVerbose)
	rootCmd.PersistentFlags().StringVar(&a.configFile, "config", "", MsgFlagConfig)
	rootCmd.PersistentFlags().StringVar(&a.dbPath, "db", "", MsgFlagDB)
	rootCmd.PersistentFlags().StringVar(&a.rulesPath, "rules", "", MsgFlagRules)

	rootCmd.SetUsageTemplate(MsgUsageTemplate)

	rootCmd.AddCommand(newVersionCmd())
	rootCmd.AddCommand(newOrganizeCmd(a))
	rootCmd.AddCommand(newInitCmd(a))
	rootCmd.AddCommand(newRulesCmd(a))
	rootCmd.AddCommand(newAddCmd(a))
	rootCmd.AddCommand(newTagCmd(a))
	rootCmd.AddCommand(newHistoryCmd(a))

	return rootCmd
}

// loadConfig resolves the configuration, letting explicit flags win
func (a *app) loadConfig(cmd *cobra.Command) error {
	overrides := map[string]interface{}{}
	if cmd.Flags().Changed("db") {
		overrides["catalog.path"] = a.dbPath
	}
	if cmd.Flags().Changed("rules") {
		overrides["rules.path"] = a.rulesPath
	}

	cfg, err := config.Load(config.LoadOptions{File: a.configFile, Overrides: overrides})
	if err != nil {
		return err
	}
	a.cfg = cfg

	if cfg.Logging.File != paths.New().LogFile() {
		logging.SetupLoggerWithFile(a.verbosity, cfg.Logging.File)
	}
	return nil
}

// Execute runs the root command and returns the process exit code.
// Interrupts cancel the running command.
func Execute() int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := NewRootCmd().ExecuteContext(ctx); err != nil {
		printError(os.Stderr, err)
		return 1
	}
	return 0
}

// printError writes err and, for rule validation failures, each problem
func printError(w io.Writer, err error) {
	fmt.Fprintf(w, "Error: %v\n", err)
	if problems, ok := errors.GetErrorDetails(err)["errors"].([]string); ok {
		for _, p := range problems {
			fmt.Fprintf(w, "  - %s\n", p)
		}
	}
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: MsgVersionShort,
		Long:  MsgVersionLong,
		// Version needs no config
		PersistentPreRun: func(cmd *cobra.Command, args []string) {},
		Run: func(cmd *cobra.Command, args []string) {
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "dosort version %s\n", version.Version)
			fmt.Fprintf(out, "  commit: %s\n", version.Commit)
			fmt.Fprintf(out, "  built:  %s\n", version.Date)
		},
	}
}
