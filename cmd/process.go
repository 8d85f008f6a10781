package main

import (
	"encoding/json"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/terrafield/crewsheet-cli/internal/export"
	"github.com/terrafield/crewsheet-cli/internal/pipeline"
)

var (
	processUser          string
	processTemplate      string
	processMaxStrategies int
	processMinConfidence float64
	processExportPath    string
)

var processCmd = &cobra.Command{
	Use:   "process <image>",
	Short: "Extract one crew sheet photo",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		env, err := initEnv(ctx, "extract")
		if err != nil {
			return err
		}
		defer env.Close()

		minConfidence := processMinConfidence
		if minConfidence == 0 {
			minConfidence = cfg.Extraction.MinConfidence
		}

		out, err := env.Service.ProcessSheet(ctx, processUser, args[0], pipeline.Options{
			TemplateID:    processTemplate,
			MaxStrategies: processMaxStrategies,
			MinConfidence: minConfidence,
		})
		if err != nil {
			return err
		}

		if processExportPath != "" && out.Result != nil && out.Result.Valid {
			if err := export.WriteXLSX(processExportPath, out.Result, out.FieldScores, export.Options{
				IncludeConfidence: true,
				IncludeSummary:    true,
			}); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "exported to %s\n", processExportPath)
		}

		return printJSON(cmd, out)
	},
}

// printJSON renders any value as indented JSON on the command's stdout.
func printJSON(cmd *cobra.Command, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return eris.Wrap(err, "marshal output")
	}
	fmt.Fprintln(cmd.OutOrStdout(), string(data))
	return nil
}

func init() {
	processCmd.Flags().StringVar(&processUser, "user", "", "user id owning the sheet")
	processCmd.Flags().StringVar(&processTemplate, "template", "", "sheet template id")
	processCmd.Flags().IntVar(&processMaxStrategies, "max-strategies", 0, "override strategy cap (default from config)")
	processCmd.Flags().Float64Var(&processMinConfidence, "min-confidence", 0, "stop early at this confidence (default from config)")
	processCmd.Flags().StringVar(&processExportPath, "export", "", "write results to this XLSX file")
	rootCmd.AddCommand(processCmd)
}
