package app

import (
	"fmt"

	"github.com/spf13/cobra"

	"sevaflow/internal/domain"
	"sevaflow/internal/format"
)

var listFlags struct {
	status   string
	unit     string
	urgency  string
	page     int
	pageSize int
}

func newListCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List grievances, newest first",
		Args:  cobra.NoArgs,
		RunE:  runList,
	}
	f := cmd.Flags()
	f.StringVar(&listFlags.status, "status", "", "Only this status")
	f.StringVar(&listFlags.unit, "unit", "", "Only this department")
	f.StringVar(&listFlags.urgency, "urgency", "", "Only this urgency (low, medium, high)")
	f.IntVar(&listFlags.page, "page", 1, "Page number, 1-based")
	f.IntVar(&listFlags.pageSize, "page-size", domain.DefaultPageSize, "Rows per page")
	return cmd
}

func runList(cmd *cobra.Command, _ []string) error {
	filter := domain.Filter{
		Unit:     listFlags.unit,
		Page:     listFlags.page,
		PageSize: listFlags.pageSize,
	}
	if listFlags.status != "" {
		st, err := domain.ParseStatus(listFlags.status)
		if err != nil {
			return err
		}
		filter.Status = st
	}
	if listFlags.urgency != "" {
		u, ok := domain.ParseUrgency(listFlags.urgency)
		if !ok {
			return fmt.Errorf("invalid urgency %q (want low, medium or high)", listFlags.urgency)
		}
		filter.Urgency = u
	}

	rt, err := openRuntime()
	if err != nil {
		return err
	}
	defer rt.Close()

	items, total, err := rt.svc.List(cmd.Context(), filter)
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	if total == 0 {
		fmt.Fprintln(out, "No grievances match.")
		return nil
	}
	fmt.Fprintln(out, format.Grievances(tableMode(), items, total, rt.cfg.Location))
	return nil
}
