package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/adialm/health-resilience-sim/internal/config"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "hrsim",
	Short: "Health intervention scenario projections",
	Long:  "Places clinics, hospitals and vaccination sites on city districts, tunes policy sliders, and projects mortality, capacity, access and resilience outcomes against baseline district data.",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := config.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		cfg = c

		if err := config.InitLogger(cfg.Log); err != nil {
			return fmt.Errorf("init logger: %w", err)
		}

		mode := "cli"
		if cmd.Name() == "serve" {
			mode = "serve"
		}
		if err := cfg.Validate(mode); err != nil {
			return fmt.Errorf("validate config: %w", err)
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
