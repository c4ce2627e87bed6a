package app

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

func newExplainCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "explain <text...>",
		Short: "Show how a grievance would be classified and routed, without storing it",
		Args:  cobra.MinimumNArgs(1),
		RunE:  runExplain,
	}
}

func runExplain(cmd *cobra.Command, args []string) error {
	rt, err := openRuntime()
	if err != nil {
		return err
	}
	defer rt.Close()

	c, explanation, err := rt.svc.Explain(cmd.Context(), strings.Join(args, " "))
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	fmt.Fprintln(out, explanation)
	fmt.Fprintf(out, "\nSummary: %s\n", c.Summary)
	return nil
}
