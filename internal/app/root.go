// Package app is the sevaflow command line: the long-running bot service
// plus one-shot commands for operators working against the same database.
package app

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"sevaflow/internal/format"
)

// version is set at build time via -ldflags.
var version = "dev"

var rootFlags struct {
	configPath string
	format     string
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "sevaflow",
		Short: "Citizen grievance intake, routing and tracking",
		Long: "sevaflow reads free-text civic grievances, assigns each one to a department\n" +
			"with a resolution deadline, and tracks it through its lifecycle.",
		SilenceUsage: true,
		CompletionOptions: cobra.CompletionOptions{
			HiddenDefaultCmd: true,
		},
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if rootFlags.configPath != "" {
				return os.Setenv("CONFIG_PATH", rootFlags.configPath)
			}
			return nil
		},
	}
	root.Version = version

	pf := root.PersistentFlags()
	pf.StringVar(&rootFlags.configPath, "config", "", "Path to config.yaml (default $CONFIG_PATH or ./config.yaml)")
	pf.StringVar(&rootFlags.format, "format", "ascii", "Table format: ascii or markdown")

	root.AddCommand(
		newServeCmd(),
		newRegisterCmd(),
		newStatusCmd(),
		newTransitionCmd(),
		newHistoryCmd(),
		newListCmd(),
		newDepartmentsCmd(),
		newStatsCmd(),
		newExplainCmd(),
		newImportCmd(),
	)
	return root
}

func tableMode() format.Mode {
	return format.ParseMode(rootFlags.format)
}

func Main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
