package main

import (
	"github.com/spf13/cobra"

	"github.com/alexisbeaulieu97/gridctl/internal/config"
)

type rootFlags struct {
	verbose bool
	dryRun  bool
	source  *config.Source
}

func newRootCmd() *cobra.Command {
	flags := &rootFlags{source: config.NewSource()}

	cmd := &cobra.Command{
		Use:           "gridctl",
		Short:         "gridctl reconciles StorageGRID settings with a declarative document",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().BoolVarP(&flags.verbose, "verbose", "v", false, "Enable verbose logging")
	cmd.PersistentFlags().BoolVar(&flags.dryRun, "dry-run", false, "Preview changes without modifying the grid")
	cmd.PersistentFlags().AddFlagSet(flags.source.Flags())

	cmd.AddCommand(newApplyCmd(flags))
	cmd.AddCommand(newVerifyCmd(flags))
	cmd.AddCommand(newLoginCmd(flags))
	cmd.AddCommand(newMetricsCmd(flags))
	cmd.AddCommand(newVersionCmd())

	return cmd
}
