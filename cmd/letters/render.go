package main

import (
	"fmt"
	"log"
	"os"

	"github.com/spf13/cobra"

	"github.com/harmon-tuazon/PD-enrollment-letter-generator/render"
	"github.com/harmon-tuazon/PD-enrollment-letter-generator/render/chromium"
)

var renderCmd = &cobra.Command{
	Use:   "render <input.html>",
	Short: "Render an HTML file to a PDF",
	Args:  cobra.ExactArgs(1),
	RunE:  runRender,
}

var (
	renderOutput   string
	renderMode     string
	renderExecPath string
	renderAttempts int
)

func init() {
	rootCmd.AddCommand(renderCmd)
	renderCmd.Flags().StringVarP(&renderOutput, "output", "o", "letter.pdf", "Output PDF path")
	renderCmd.Flags().StringVar(&renderMode, "mode", string(render.ModeLocal), "Launch mode (serverless or local)")
	renderCmd.Flags().StringVar(&renderExecPath, "exec-path", "", "Browser binary path")
	renderCmd.Flags().IntVar(&renderAttempts, "attempts", render.DefaultMaxAttempts, "Render attempt budget")
}

func runRender(cmd *cobra.Command, args []string) error {
	markup, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("read input: %w", err)
	}

	mode, err := parseLaunchMode(renderMode)
	if err != nil {
		return err
	}
	logger := log.New(os.Stderr, "letters: ", log.LstdFlags)
	sessions, err := render.NewSessionManager(render.ManagerOptions{
		Launcher: &chromium.Launcher{Logger: logger},
		Config: render.LaunchConfig{
			Mode:     mode,
			ExecPath: renderExecPath,
		},
		Logger: logger,
	})
	if err != nil {
		return err
	}
	defer sessions.Teardown()

	renderer, err := render.NewRenderer(render.RendererOptions{
		Sessions: sessions,
		Logger:   logger,
	})
	if err != nil {
		return err
	}

	pdf, err := renderer.Render(cmd.Context(), string(markup), render.PDFOptions{}, renderAttempts)
	if err != nil {
		return err
	}
	if err := os.WriteFile(renderOutput, pdf, 0o644); err != nil {
		return fmt.Errorf("write output: %w", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "wrote %s (%d bytes)\n", renderOutput, len(pdf))
	return nil
}
