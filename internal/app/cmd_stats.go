package app

import (
	"fmt"

	"github.com/spf13/cobra"

	"sevaflow/internal/format"
)

func newStatsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show grievance dashboard counts",
		Args:  cobra.NoArgs,
		RunE:  runStats,
	}
}

func runStats(cmd *cobra.Command, _ []string) error {
	rt, err := openRuntime()
	if err != nil {
		return err
	}
	defer rt.Close()

	st, err := rt.svc.Stats(cmd.Context())
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), format.Stats(tableMode(), st))
	return nil
}
