package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/terrafield/crewsheet-cli/internal/config"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "crewsheet",
	Short: "Crew sheet extraction pipeline",
	Long: `Extracts handwritten crew timesheets from photos via multi-strategy vision
extraction, scores per-field confidence, and learns from reviewer corrections.`,
	Example: `  crewsheet process sheet.jpg --user u1 --export week32.xlsx
  crewsheet batch ./photos --user u1
  crewsheet serve --port 8080`,
	SilenceUsage: true,
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
