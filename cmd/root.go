package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/atoll-dev/siteplanner/internal/config"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "siteplanner",
	Short: "Urban development type recommendation for Hulhumalé",
	Long:  "Resolves nearby POI features for a coordinate, classifies the best development type with a pretrained model, and serves predictions over HTTP.",
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
