package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/neurodatascience/cohort-creator/internal/config"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "cohort-creator",
	Short: "Create neuroimaging cohorts from OpenNeuro datasets",
	Long: "Installs datalad dataset clones from OpenNeuro, fetches the files of a requested " +
		"set of participants, datatypes and pipelines, and copies them into a BIDS cohort layout.",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := config.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		cfg = c

		if err := config.InitLogger(cfg.Log); err != nil {
			return fmt.Errorf("init logger: %w", err)
		}

		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = zap.L().Sync()
	},
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
