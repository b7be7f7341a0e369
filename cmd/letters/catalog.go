package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/harmon-tuazon/PD-enrollment-letter-generator/enrollment"
	"github.com/harmon-tuazon/PD-enrollment-letter-generator/internal/ui"
)

var coursesCmd = &cobra.Command{
	Use:   "courses",
	Short: "List the course catalog in match order",
	RunE:  runCourses,
}

var locationsCmd = &cobra.Command{
	Use:   "locations",
	Short: "List campus locations",
	RunE:  runLocations,
}

func init() {
	rootCmd.AddCommand(coursesCmd, locationsCmd)
}

func runCourses(cmd *cobra.Command, args []string) error {
	catalog, err := enrollment.DefaultCatalog()
	if err != nil {
		return err
	}
	table := ui.NewTable("CODE", "NAME")
	for _, entry := range catalog.Courses {
		table.Row(entry.Code, entry.Name)
	}
	fmt.Fprint(cmd.OutOrStdout(), table.String())
	return nil
}

func runLocations(cmd *cobra.Command, args []string) error {
	catalog, err := enrollment.DefaultCatalog()
	if err != nil {
		return err
	}
	table := ui.NewTable("CODE", "ADDRESS")
	for _, entry := range catalog.Locations {
		table.Row(entry.Code, entry.Address)
	}
	fmt.Fprint(cmd.OutOrStdout(), table.String())
	return nil
}
