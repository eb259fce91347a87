// Package cmd wires up the forge command tree
package cmd

import (
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

//nolint:gochecknoglobals // Shared cobra state
var (
	cfgFile string
	logger  *logrus.Logger
)

//nolint:gochecknoglobals // Cobra commands are typically global
var rootCmd = &cobra.Command{
	Use:   "forge",
	Short: "Warehouse ETL pipeline for business-intelligence marts",
	Long: `forge loads raw transaction exports into an analytical warehouse and
transforms them through a fixed dependency chain: a cleaned staging view,
daily metrics with trend statistics, and monthly/quarterly/annual
business-insight marts. Models are declarative files ordered by a
dependency DAG and validated with declarative quality tests.`,
}

// Execute runs the root command and exits non-zero on failure
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./config.yaml)")
	rootCmd.PersistentFlags().String("log-level", "info", "log level (debug, info, warn, error, fatal, panic)")

	logger = logrus.New()
	logger.SetFormatter(&logrus.TextFormatter{
		FullTimestamp: true,
	})
}

func initConfig() {
	if cfgFile == "" {
		cfgFile = "./config.yaml"
	}

	logger.SetLevel(logLevelFromFlags())
}

// logLevelFromFlags resolves the --log-level flag, falling back to info on
// anything it cannot parse.
func logLevelFromFlags() logrus.Level {
	raw, err := rootCmd.PersistentFlags().GetString("log-level")
	if err != nil {
		return logrus.InfoLevel
	}

	level, err := logrus.ParseLevel(raw)
	if err != nil {
		logger.WithField("log-level", raw).Warn("Unknown log level, using info")
		return logrus.InfoLevel
	}

	return level
}
