package app

import (
	"fmt"

	"github.com/spf13/cobra"

	"sevaflow/internal/format"
)

func newDepartmentsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "departments",
		Short: "List configured departments and their base resolution hours",
		Args:  cobra.NoArgs,
		RunE:  runDepartments,
	}
}

func runDepartments(cmd *cobra.Command, _ []string) error {
	rt, err := openRuntime()
	if err != nil {
		return err
	}
	defer rt.Close()

	var rows []format.Department
	for _, d := range rt.cfg.Catalog.Departments() {
		rows = append(rows, format.Department{Name: d.Name, Hours: d.SLAHours, Contact: d.Contact, Keywords: d.Keywords})
	}
	fmt.Fprintln(cmd.OutOrStdout(), format.Departments(tableMode(), rows))
	return nil
}
