package main

import (
	"fmt"
	"os"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/reflow/wordwrap"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/harmon-tuazon/PD-enrollment-letter-generator/crm"
	"github.com/harmon-tuazon/PD-enrollment-letter-generator/enrollment"
	"github.com/harmon-tuazon/PD-enrollment-letter-generator/internal/config"
	"github.com/harmon-tuazon/PD-enrollment-letter-generator/internal/markdown"
	"github.com/harmon-tuazon/PD-enrollment-letter-generator/internal/paths"
	"github.com/harmon-tuazon/PD-enrollment-letter-generator/letter"
)

const fallbackWidth = 80

var previewCmd = &cobra.Command{
	Use:   "preview <student-id>",
	Short: "Preview a student's enrollment letter in the terminal",
	Args:  cobra.ExactArgs(1),
	RunE:  runPreview,
}

var (
	previewFirstName string
	previewLastName  string
)

var previewHeaderStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))

func init() {
	rootCmd.AddCommand(previewCmd)
	previewCmd.Flags().StringVar(&previewFirstName, "firstname", "", "Student first name")
	previewCmd.Flags().StringVar(&previewLastName, "lastname", "", "Student last name")
}

func runPreview(cmd *cobra.Command, args []string) error {
	cwd, err := paths.WorkingDir()
	if err != nil {
		return err
	}
	cfg, err := config.Load(cwd)
	if err != nil {
		return err
	}
	token, err := config.Token()
	if err != nil {
		return err
	}

	client := crm.NewClient(cfg.CRM.BaseURL, token)
	aggregator, err := enrollment.NewAggregator(enrollment.AggregatorOptions{
		Source:      client,
		ObjectType:  cfg.CRM.ObjectType,
		ChildTypeID: cfg.CRM.AssociationTypeID,
	})
	if err != nil {
		return err
	}

	records, err := aggregator.Aggregate(cmd.Context(), args[0])
	if err != nil {
		return err
	}

	width := terminalWidth()
	out := cmd.OutOrStdout()
	fmt.Fprintln(out, previewHeaderStyle.Render("Enrollment letter preview"))
	summary := letter.MarkdownSummary(previewFirstName, previewLastName, records)
	fmt.Fprintln(out, string(markdown.SafeRender(width, 0, []byte(summary))))
	note := fmt.Sprintf("%d of a possible %d enrollments shown; the delivered letter is rendered from the same records.",
		len(records), enrollment.MaxLetterRecords)
	fmt.Fprintln(out, wordwrap.String(note, width))
	return nil
}

func terminalWidth() int {
	width, _, err := term.GetSize(int(os.Stdout.Fd()))
	if err != nil || width < 1 {
		return fallbackWidth
	}
	return width
}
