package main

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/harmon-tuazon/PD-enrollment-letter-generator/internal/paths"
	"github.com/harmon-tuazon/PD-enrollment-letter-generator/internal/state"
	"github.com/harmon-tuazon/PD-enrollment-letter-generator/internal/ui"
)

var deliveriesCmd = &cobra.Command{
	Use:   "deliveries",
	Short: "List delivered letters",
	RunE:  runDeliveries,
}

var (
	deliveriesStateDir string
	deliveriesJSON     bool
)

func init() {
	rootCmd.AddCommand(deliveriesCmd)
	deliveriesCmd.Flags().StringVar(&deliveriesStateDir, "state-dir", "", "Delivery log directory")
	deliveriesCmd.Flags().BoolVar(&deliveriesJSON, "json", false, "Output JSON")
}

func runDeliveries(cmd *cobra.Command, args []string) error {
	stateDir, err := paths.ResolveWithDefault(deliveriesStateDir, paths.DefaultStateDir)
	if err != nil {
		return err
	}
	deliveries, err := state.NewStore(stateDir).List()
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if deliveriesJSON {
		encoder := json.NewEncoder(out)
		encoder.SetIndent("", "  ")
		return encoder.Encode(deliveries)
	}

	if len(deliveries) == 0 {
		fmt.Fprintln(out, "No deliveries recorded.")
		return nil
	}

	now := time.Now()
	table := ui.NewTable("TYPE", "RECIPIENT", "RECORD", "NOTE", "AGE")
	for _, delivery := range deliveries {
		table.Row(
			string(delivery.LetterType),
			delivery.Recipient,
			delivery.RecordID,
			delivery.NoteID,
			ui.FormatTimeAgo(delivery.CreatedAt, now),
		)
	}
	fmt.Fprint(out, table.String())
	return nil
}
