package main

import (
	"fmt"
	"log"
	"os"

	"github.com/spf13/cobra"

	"github.com/harmon-tuazon/PD-enrollment-letter-generator/archive"
	"github.com/harmon-tuazon/PD-enrollment-letter-generator/crm"
	"github.com/harmon-tuazon/PD-enrollment-letter-generator/enrollment"
	"github.com/harmon-tuazon/PD-enrollment-letter-generator/internal/config"
	"github.com/harmon-tuazon/PD-enrollment-letter-generator/internal/paths"
	"github.com/harmon-tuazon/PD-enrollment-letter-generator/internal/state"
	"github.com/harmon-tuazon/PD-enrollment-letter-generator/render"
	"github.com/harmon-tuazon/PD-enrollment-letter-generator/render/chromium"
	"github.com/harmon-tuazon/PD-enrollment-letter-generator/webhook"
)

const defaultAddr = ":3000"

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the letter webhook server",
	RunE:  runServe,
}

var (
	serveAddr     string
	serveStateDir string
)

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "Listen address")
	serveCmd.Flags().StringVar(&serveStateDir, "state-dir", "", "Delivery log directory")
}

func runServe(cmd *cobra.Command, args []string) error {
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

	logger := log.New(os.Stderr, "letters: ", log.LstdFlags)

	mode, err := parseLaunchMode(cfg.Render.Mode)
	if err != nil {
		return err
	}
	sessions, err := render.NewSessionManager(render.ManagerOptions{
		Launcher: &chromium.Launcher{Logger: logger},
		Config: render.LaunchConfig{
			Mode:     mode,
			ExecPath: cfg.Render.ExecPath,
		},
		Logger: logger,
	})
	if err != nil {
		return err
	}
	renderer, err := render.NewRenderer(render.RendererOptions{
		Sessions: sessions,
		Logger:   logger,
	})
	if err != nil {
		return err
	}

	client := crm.NewClient(cfg.CRM.BaseURL, token)
	aggregator, err := enrollment.NewAggregator(enrollment.AggregatorOptions{
		Source:      client,
		ObjectType:  cfg.CRM.ObjectType,
		ChildTypeID: cfg.CRM.AssociationTypeID,
		Logger:      logger,
	})
	if err != nil {
		return err
	}

	stateDir, err := paths.ResolveWithDefault(serveStateDir, paths.DefaultStateDir)
	if err != nil {
		return err
	}

	opts := webhook.ServerOptions{
		Aggregator:  aggregator,
		Renderer:    renderer,
		Store:       client,
		Sessions:    sessions,
		Deliveries:  state.NewStore(stateDir),
		FolderID:    cfg.CRM.FolderID,
		MaxAttempts: cfg.Render.MaxAttempts,
		Logger:      logger,
	}
	if cfg.Archive.Endpoint != "" {
		archived, err := archive.New(archive.Options{
			Endpoint:  cfg.Archive.Endpoint,
			AccessKey: cfg.Archive.AccessKey,
			SecretKey: cfg.Archive.SecretKey,
			Bucket:    cfg.Archive.Bucket,
			UseSSL:    cfg.Archive.UseSSL,
		})
		if err != nil {
			return err
		}
		opts.Archive = archived
	}

	server, err := webhook.NewServer(opts)
	if err != nil {
		return err
	}

	addr := serveAddr
	if addr == "" {
		addr = cfg.Server.Addr
	}
	if addr == "" {
		addr = defaultAddr
	}
	logger.Printf("serving on %s", addr)
	return server.Serve(addr)
}

func parseLaunchMode(value string) (render.LaunchMode, error) {
	switch value {
	case "", string(render.ModeServerless):
		return render.ModeServerless, nil
	case string(render.ModeLocal):
		return render.ModeLocal, nil
	default:
		return "", fmt.Errorf("unknown render mode %q (valid: %s, %s)",
			value, render.ModeServerless, render.ModeLocal)
	}
}
