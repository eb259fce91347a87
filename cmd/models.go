package cmd

import (
	"context"
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/steelworks/forge/pkg/admin"
	"github.com/steelworks/forge/pkg/models"
	"github.com/steelworks/forge/pkg/warehouse"
)

// modelsCmd represents the models command group
//
//nolint:gochecknoglobals // Cobra commands are typically global
var modelsCmd = &cobra.Command{
	Use:   "models",
	Short: "Manage and inspect model configurations",
	Long:  `Commands for listing, validating, and visualizing model configurations.`,
	PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
		// Default to error level for models commands to keep listings clean
		// unless explicitly set via --log-level flag
		if !cmd.Flags().Changed("log-level") {
			logger.SetLevel(logrus.ErrorLevel)
		}
		return nil
	},
}

// listCmd lists all discovered models
//
//nolint:gochecknoglobals // Cobra commands are typically global
var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List all discovered models",
	Long:  `List all discovered models with their stage, kind, materialization and dependencies.`,
	RunE:  runModelsList,
}

// validateCmd validates model configurations
//
//nolint:gochecknoglobals // Cobra commands are typically global
var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate model configurations",
	Long:  `Validate model configurations including syntax, required fields and dependency cycles.`,
	RunE:  runModelsValidate,
}

// dagCmd visualizes the dependency DAG
//
//nolint:gochecknoglobals // Cobra commands are typically global
var dagCmd = &cobra.Command{
	Use:   "dag",
	Short: "Visualize the model dependency DAG",
	Long:  `Visualize the dependency directed acyclic graph (DAG) showing model relationships and data flow.`,
	RunE:  runModelsDAG,
}

// statusCmd shows model run history and a source-relation overview
//
//nolint:gochecknoglobals // Cobra commands are typically global
var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show model run history and source overview",
	Long:  `Show when each model last ran, how many rows it wrote, its total run count, and an overview of the raw source relation.`,
	RunE:  runModelsStatus,
}

func init() {
	rootCmd.AddCommand(modelsCmd)
	modelsCmd.AddCommand(listCmd)
	modelsCmd.AddCommand(validateCmd)
	modelsCmd.AddCommand(dagCmd)
	modelsCmd.AddCommand(statusCmd)

	// Add dot flag to dag command
	dagCmd.Flags().Bool("dot", false, "Output in DOT format for graphviz")
}

func runModelsList(cmd *cobra.Command, _ []string) error {
	cmd.SilenceUsage = true

	cfg, err := LoadConfig(cfgFile)
	if err != nil {
		return err
	}

	modelsService, err := loadModelsService(cfg)
	if err != nil {
		return err
	}

	dag := modelsService.DAG()

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "MODEL ID\tSTAGE\tKIND\tMATERIALIZATION\tDEPS")

	for _, model := range dag.ExecutionOrder() {
		config := model.GetConfig()
		deps := strings.Join(dag.GetDependencies(model.GetID()), ", ")
		if deps == "" {
			deps = "-"
		}

		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
			model.GetID(), config.Stage, model.GetKind(), config.Materialization, deps)
	}

	_ = w.Flush()

	return nil
}

func runModelsValidate(cmd *cobra.Command, _ []string) error {
	cmd.SilenceUsage = true

	cfg, err := LoadConfig(cfgFile)
	if err != nil {
		return err
	}

	// Load performs parsing, per-model validation and cycle detection
	modelsService, err := loadModelsService(cfg)
	if err != nil {
		return err
	}

	modelList := modelsService.SortedModels()
	for _, model := range modelList {
		fmt.Fprintf(cmd.OutOrStdout(), "✓ %s: valid\n", model.GetID())
	}

	fmt.Fprintf(cmd.OutOrStdout(), "\n%d models valid\n", len(modelList))

	return nil
}

func runModelsDAG(cmd *cobra.Command, _ []string) error {
	cmd.SilenceUsage = true

	cfg, err := LoadConfig(cfgFile)
	if err != nil {
		return err
	}

	modelsService, err := loadModelsService(cfg)
	if err != nil {
		return err
	}

	dag := modelsService.DAG()

	if dotFlag, _ := cmd.Flags().GetBool("dot"); dotFlag {
		fmt.Fprintln(cmd.OutOrStdout(), dag.GenerateDOTFormat())
		return nil
	}

	info := dag.GetDAGInfo()

	fmt.Fprintln(cmd.OutOrStdout(), "Dependency Graph:")
	fmt.Fprintln(cmd.OutOrStdout(), "=================")

	for level := 0; level <= info.MaxLevel; level++ {
		modelIDs, exists := info.Levels[level]
		if !exists {
			continue
		}

		fmt.Fprintf(cmd.OutOrStdout(), "\nLevel %d:\n", level)

		for _, modelID := range modelIDs {
			printModelNode(cmd, modelID, dag)
		}
	}

	fmt.Fprintln(cmd.OutOrStdout(), "\nStatistics:")
	fmt.Fprintln(cmd.OutOrStdout(), "===========")
	fmt.Fprintf(cmd.OutOrStdout(), "Source relations: %d\n", len(info.RootNodes))
	fmt.Fprintf(cmd.OutOrStdout(), "Total models: %d\n", info.TotalModels)
	fmt.Fprintf(cmd.OutOrStdout(), "Max depth: %d\n", info.MaxLevel)

	return nil
}

func printModelNode(cmd *cobra.Command, modelID string, dag *models.DependencyGraph) {
	fmt.Fprintf(cmd.OutOrStdout(), "  • %s", modelID)

	if deps := dag.GetDependencies(modelID); len(deps) > 0 {
		fmt.Fprintf(cmd.OutOrStdout(), "\n    ← depends on: %s", strings.Join(deps, ", "))
	}

	if dependents := dag.GetDependents(modelID); len(dependents) > 0 {
		fmt.Fprintf(cmd.OutOrStdout(), "\n    → used by: %s", strings.Join(dependents, ", "))
	}

	fmt.Fprintln(cmd.OutOrStdout())
}

func runModelsStatus(cmd *cobra.Command, _ []string) error {
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
	ctx := context.Background()

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "MODEL ID\tSTAGE\tLAST RUN\tLAST STATUS\tROWS\tTOTAL RUNS")

	for _, model := range modelsService.SortedModels() {
		if statusErr := printModelStatus(ctx, w, model, adminService); statusErr != nil {
			return statusErr
		}
	}

	_ = w.Flush()

	return printSourceOverview(ctx, cmd, cfg, client)
}

func printModelStatus(ctx context.Context, w *tabwriter.Writer, model models.Model, adminService *admin.Service) error {
	lastRun, err := adminService.LastRun(ctx, model.GetID())
	if err != nil {
		return err
	}

	if lastRun == nil {
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%d\n",
			model.GetID(), model.GetConfig().Stage, "never", "-", "-", 0)
		return nil
	}

	totalRuns, err := adminService.TotalRuns(ctx, model.GetID())
	if err != nil {
		return err
	}

	_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%d\t%d\n",
		model.GetID(), model.GetConfig().Stage,
		lastRun.CompletedAt, lastRun.Status, lastRun.RowsWritten, totalRuns)

	return nil
}

// printSourceOverview summarizes the raw source relation: totals, distinct
// dates and files, and the covered date range.
func printSourceOverview(ctx context.Context, cmd *cobra.Command, cfg *Config, client warehouse.ClientInterface) error {
	source := fmt.Sprintf("%s.%s", cfg.Quality.SourceDatabase, cfg.Quality.SourceTable)

	exists, err := warehouse.TableExists(ctx, client, cfg.Quality.SourceDatabase, cfg.Quality.SourceTable)
	if err != nil {
		return err
	}

	if !exists {
		fmt.Fprintf(cmd.OutOrStdout(), "\nSource relation %s does not exist yet (run 'forge load')\n", source)
		return nil
	}

	query := fmt.Sprintf(`SELECT
	count() AS total_rows,
	uniqExact(toDate(partition_time)) AS distinct_dates,
	uniqExact(source_file) AS source_files,
	toString(min(toDate(partition_time))) AS first_date,
	toString(max(toDate(partition_time))) AS last_date
FROM %s
WHERE partition_time IS NOT NULL`, source)

	var overview struct {
		TotalRows     uint64 `json:"total_rows,string"`
		DistinctDates uint64 `json:"distinct_dates,string"`
		SourceFiles   uint64 `json:"source_files,string"`
		FirstDate     string `json:"first_date"`
		LastDate      string `json:"last_date"`
	}

	if err := client.QueryOne(ctx, query, &overview); err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "\nSource relation %s:\n", source)
	fmt.Fprintf(cmd.OutOrStdout(), "  rows: %d\n", overview.TotalRows)
	fmt.Fprintf(cmd.OutOrStdout(), "  distinct dates: %d (%s to %s)\n",
		overview.DistinctDates, overview.FirstDate, overview.LastDate)
	fmt.Fprintf(cmd.OutOrStdout(), "  source files: %d\n", overview.SourceFiles)

	return nil
}
