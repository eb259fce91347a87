package cmd

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/steelworks/forge/pkg/admin"
	"github.com/steelworks/forge/pkg/pipeline"
	"github.com/steelworks/forge/pkg/server"
)

//nolint:gochecknoglobals // Cobra commands are typically global
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the forge server",
	Long: `Run the long-lived forge server: an HTTP API for models and run history,
optional cron-scheduled pipeline runs, and a Prometheus metrics endpoint.`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	cmd.SilenceUsage = true

	cfg, err := loadRuntimeConfig()
	if err != nil {
		return err
	}

	client, err := newWarehouseClient(cfg)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := client.Stop(); closeErr != nil {
			logger.WithError(closeErr).Error("Failed to close warehouse client")
		}
	}()

	modelsService, err := loadModelsService(cfg)
	if err != nil {
		return err
	}

	adminService := admin.NewService(logger, client, &cfg.Admin)
	runner := pipeline.NewRunner(logger, client, modelsService, adminService)

	srv, err := server.NewServer(logger, &cfg.Server, modelsService, runner, adminService)
	if err != nil {
		return err
	}

	return srv.Start(context.Background())
}
