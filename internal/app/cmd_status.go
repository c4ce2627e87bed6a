package app

import (
	"github.com/spf13/cobra"

	"sevaflow/internal/domain"
)

func newStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status <ref>",
		Short: "Show a grievance",
		Args:  cobra.ExactArgs(1),
		RunE:  runStatus,
	}
}

func runStatus(cmd *cobra.Command, args []string) error {
	rt, err := openRuntime()
	if err != nil {
		return err
	}
	defer rt.Close()

	g, err := rt.svc.Get(cmd.Context(), domain.NormalizeRefID(args[0]))
	if err != nil {
		return err
	}
	printGrievance(cmd.OutOrStdout(), g, rt)
	return nil
}
