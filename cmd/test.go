package cmd

import (
	"context"
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/steelworks/forge/pkg/quality"
)

//nolint:gochecknoglobals // Cobra flags are typically global
var (
	testWriteReport bool
	testSkipDataset bool
)

//nolint:gochecknoglobals // Cobra commands are typically global
var testCmd = &cobra.Command{
	Use:   "test",
	Short: "Run declarative model tests and dataset quality checks",
	Long: `Run the declarative column tests from the model files plus the built-in
dataset checks (freshness, completeness, consistency, model row counts).
Exits non-zero when any check fails.`,
	RunE: runQualityTests,
}

func init() {
	rootCmd.AddCommand(testCmd)

	testCmd.Flags().BoolVar(&testWriteReport, "report", false, "write a JSON quality report")
	testCmd.Flags().BoolVar(&testSkipDataset, "skip-dataset-checks", false, "run only the declarative model tests")
}

func runQualityTests(cmd *cobra.Command, _ []string) error {
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

	validator := quality.NewValidator(logger, client, modelsService, &cfg.Quality)
	ctx := context.Background()

	results := validator.RunModelTests(ctx)
	if !testSkipDataset {
		results = append(results, validator.RunDatasetChecks(ctx)...)
	}

	for _, result := range results {
		printCheckResult(cmd, result)
	}

	report := quality.BuildReport(results)

	fmt.Fprintf(cmd.OutOrStdout(), "\n%d checks: %d passed, %d failed, %d errors (score %.1f%%)\n",
		report.Summary.TotalChecks, report.Summary.PassedChecks,
		report.Summary.FailedChecks, report.Summary.ErrorChecks,
		report.Summary.QualityScore)

	if testWriteReport {
		path, writeErr := report.Write(cfg.Quality.ReportDir)
		if writeErr != nil {
			return writeErr
		}

		fmt.Fprintf(cmd.OutOrStdout(), "Report written to %s\n", path)
	}

	if !report.Passed() {
		return fmt.Errorf("%d quality checks did not pass",
			report.Summary.FailedChecks+report.Summary.ErrorChecks)
	}

	return nil
}

func printCheckResult(cmd *cobra.Command, result quality.CheckResult) {
	var marker string

	switch result.Status {
	case quality.StatusPassed:
		marker = color.GreenString("PASS")
	case quality.StatusFailed:
		marker = color.RedString("FAIL")
	default:
		marker = color.YellowString("ERROR")
	}

	line := fmt.Sprintf("%s  %s", marker, result.Name)
	if result.Detail != "" {
		line += fmt.Sprintf("  (%s)", result.Detail)
	}

	fmt.Fprintln(cmd.OutOrStdout(), line)
}
