package app

import (
	"fmt"

	"github.com/spf13/cobra"

	"sevaflow/internal/domain"
	"sevaflow/internal/format"
)

func newHistoryCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "history <ref>",
		Short: "Show the audit trail of a grievance, oldest first",
		Args:  cobra.ExactArgs(1),
		RunE:  runHistory,
	}
}

func runHistory(cmd *cobra.Command, args []string) error {
	rt, err := openRuntime()
	if err != nil {
		return err
	}
	defer rt.Close()

	refID := domain.NormalizeRefID(args[0])
	entries, err := rt.svc.History(cmd.Context(), refID)
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		return fmt.Errorf("%s: %w", refID, domain.ErrNotFound)
	}
	fmt.Fprintln(cmd.OutOrStdout(), format.History(tableMode(), entries, rt.cfg.Location))
	return nil
}
