package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/laborsuche/laborsuche-cli/internal/config"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "laborsuche",
	Short: "Healthcare provider discovery for DACH cities",
	Long:  "Discovers blood-draw labs and DEXA scan centers via Google Places, harvests site-restricted search evidence, validates providers with Claude, and serves the resulting datasets over HTTP.",
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
