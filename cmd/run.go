package cmd

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/steelworks/forge/pkg/admin"
	"github.com/steelworks/forge/pkg/models"
	"github.com/steelworks/forge/pkg/pipeline"
)

//nolint:gochecknoglobals // Cobra flags are typically global
var (
	runSelectStages []string
	runSelectModels []string
)

//nolint:gochecknoglobals // Cobra commands are typically global
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Execute the pipeline models in dependency order",
	Long: `Execute the pipeline models in dependency order. Models run strictly
sequentially; a failing model halts the run and already-refreshed models keep
their new state.`,
	RunE: runPipeline,
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().StringSliceVar(&runSelectStages, "select", nil, "restrict the run to stages (staging, intermediate, marts)")
	runCmd.Flags().StringSliceVar(&runSelectModels, "model", nil, "restrict the run to specific model IDs (database.table)")
}

func runPipeline(cmd *cobra.Command, _ []string) error {
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

	opts := pipeline.RunOptions{Models: runSelectModels}
	for _, stage := range runSelectStages {
		opts.Stages = append(opts.Stages, models.Stage(stage))
	}

	adminService := admin.NewService(logger, client, &cfg.Admin)
	runner := pipeline.NewRunner(logger, client, modelsService, adminService)

	result, runErr := runner.Run(context.Background(), opts)
	if result != nil {
		printRunSummary(cmd, result)
	}

	return runErr
}

func printRunSummary(cmd *cobra.Command, result *pipeline.RunResult) {
	table := tablewriter.NewWriter(cmd.OutOrStdout())
	table.SetHeader([]string{"Model", "Stage", "Rows", "Duration", "Status"})
	table.SetBorder(false)
	table.SetAutoWrapText(false)
	table.SetAlignment(tablewriter.ALIGN_LEFT)

	for _, model := range result.Models {
		status := color.GreenString("success")
		if model.Status != "success" {
			status = color.RedString(strings.ToUpper(model.Status))
		}

		table.Append([]string{
			model.ModelID,
			model.Stage,
			fmt.Sprintf("%d", model.Rows),
			model.Duration.Round(time.Millisecond).String(),
			status,
		})
	}

	fmt.Fprintf(cmd.OutOrStdout(), "\nRun %s (%s)\n\n", result.RunID, result.Status)
	table.Render()

	for _, model := range result.Models {
		if model.Error != "" {
			fmt.Fprintf(cmd.OutOrStdout(), "\n%s: %s\n", model.ModelID, model.Error)
		}
	}
}
