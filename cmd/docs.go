package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/steelworks/forge/pkg/docs"
)

//nolint:gochecknoglobals // Cobra flags are typically global
var docsOutputDir string

//nolint:gochecknoglobals // Cobra commands are typically global
var docsCmd = &cobra.Command{
	Use:   "docs",
	Short: "Generate markdown documentation for the models",
	Long:  `Generate one markdown page per model (columns, tests, dependencies) plus an index.`,
	RunE:  runDocs,
}

func init() {
	rootCmd.AddCommand(docsCmd)

	docsCmd.Flags().StringVar(&docsOutputDir, "output", "./docs", "output directory")
}

func runDocs(cmd *cobra.Command, _ []string) error {
	cmd.SilenceUsage = true

	cfg, err := LoadConfig(cfgFile)
	if err != nil {
		return err
	}

	modelsService, err := loadModelsService(cfg)
	if err != nil {
		return err
	}

	written, err := docs.NewGenerator(logger, modelsService).Generate(docsOutputDir)
	if err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Wrote %d documentation files to %s\n", len(written), docsOutputDir)

	return nil
}
