package app

import (
	"fmt"

	"github.com/spf13/cobra"

	"sevaflow/internal/domain"
)

var transitionFlags struct {
	note  string
	actor string
}

func newTransitionCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "transition <ref> <status>",
		Short: "Move a grievance to a new status",
		Long:  "Statuses: submitted, assigned, in_progress, resolved, escalated, closed.",
		Args:  cobra.ExactArgs(2),
		RunE:  runTransition,
	}
	f := cmd.Flags()
	f.StringVar(&transitionFlags.note, "note", "", "Note recorded in the audit trail")
	f.StringVar(&transitionFlags.actor, "actor", "cli", "Who made the change")
	return cmd
}

func runTransition(cmd *cobra.Command, args []string) error {
	status, err := domain.ParseStatus(args[1])
	if err != nil {
		return err
	}

	rt, err := openRuntime()
	if err != nil {
		return err
	}
	defer rt.Close()

	g, err := rt.svc.Transition(cmd.Context(), args[0], status, transitionFlags.note, transitionFlags.actor)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s is now %s\n", g.RefID, g.Status.Label())
	return nil
}
