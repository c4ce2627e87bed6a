package app

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"sevaflow/internal/domain"
)

var registerFlags struct {
	reporterID   string
	reporterName string
}

func newRegisterCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "register <text...>",
		Short: "Register a grievance from free text",
		Args:  cobra.MinimumNArgs(1),
		RunE:  runRegister,
	}
	f := cmd.Flags()
	f.StringVar(&registerFlags.reporterID, "reporter-id", "", "External reporter id")
	f.StringVar(&registerFlags.reporterName, "reporter-name", "", "Reporter display name")
	return cmd
}

func runRegister(cmd *cobra.Command, args []string) error {
	rt, err := openRuntime()
	if err != nil {
		return err
	}
	defer rt.Close()

	reporter := domain.Reporter{ID: registerFlags.reporterID, Name: registerFlags.reporterName}
	g, err := rt.svc.Register(cmd.Context(), strings.Join(args, " "), reporter)
	if err != nil {
		return err
	}
	printGrievance(cmd.OutOrStdout(), g, rt)
	return nil
}

func printGrievance(out io.Writer, g domain.Grievance, rt *runtime) {
	loc := rt.cfg.Location
	fmt.Fprintf(out, "Reference:   %s\n", g.RefID)
	fmt.Fprintf(out, "Status:      %s\n", g.Status.Label())
	fmt.Fprintf(out, "Issue:       %s\n", g.IssueType)
	fmt.Fprintf(out, "Location:    %s\n", g.Location)
	fmt.Fprintf(out, "Department:  %s\n", g.Unit)
	fmt.Fprintf(out, "Urgency:     %s\n", g.Urgency)
	fmt.Fprintf(out, "Confidence:  %.0f%% (%s)\n", g.Confidence*100, g.ClassifierSource)
	fmt.Fprintf(out, "Deadline:    %d hours (due %s)\n", g.EstimatedHours, g.DueAt().In(loc).Format("2006-01-02 15:04"))
	if g.ReporterID != "" || g.ReporterName != "" {
		fmt.Fprintf(out, "Reporter:    %s %s\n", g.ReporterName, g.ReporterID)
	}
	fmt.Fprintf(out, "Created:     %s\n", g.CreatedAt.In(loc).Format("2006-01-02 15:04"))
	fmt.Fprintf(out, "Updated:     %s\n", g.UpdatedAt.In(loc).Format("2006-01-02 15:04"))
	if g.Overdue(time.Now()) {
		fmt.Fprintln(out, "OVERDUE")
	}
}
