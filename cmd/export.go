package main

import (
	"fmt"
	"os/signal"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/terrafield/crewsheet-cli/internal/export"
)

var exportOut string

var exportCmd = &cobra.Command{
	Use:   "export <sheet-id>",
	Short: "Write a completed sheet to an XLSX workbook",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		if err := cfg.Validate("learn"); err != nil {
			return err
		}
		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		sheet, err := st.GetSheet(ctx, args[0])
		if err != nil {
			return err
		}
		if sheet.Result == nil {
			return eris.Errorf("sheet %s has no extraction result", sheet.ID)
		}

		fields, err := st.ListFieldConfidence(ctx, sheet.ID)
		if err != nil {
			return err
		}

		if err := export.WriteXLSX(exportOut, sheet.Result, fields, export.Options{
			IncludeConfidence: true,
			IncludeSummary:    true,
		}); err != nil {
			return err
		}

		fmt.Fprintf(cmd.OutOrStdout(), "exported %s to %s\n", sheet.ID, exportOut)
		return nil
	},
}

func init() {
	exportCmd.Flags().StringVar(&exportOut, "out", "crewsheet.xlsx", "output XLSX path")
	rootCmd.AddCommand(exportCmd)
}
