package main

import (
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/terrafield/crewsheet-cli/internal/model"
	"github.com/terrafield/crewsheet-cli/internal/store"
)

var (
	sheetsUser   string
	sheetsStatus string
	sheetsSince  string
	sheetsLimit  int
)

var sheetsCmd = &cobra.Command{
	Use:   "sheets",
	Short: "List processed sheets",
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

		filter := store.SheetFilter{
			UserID: sheetsUser,
			Status: model.SheetStatus(sheetsStatus),
			Limit:  sheetsLimit,
		}
		if sheetsSince != "" {
			since, err := time.Parse("2006-01-02", sheetsSince)
			if err != nil {
				return fmt.Errorf("parse --since: %w", err)
			}
			filter.Since = since
		}

		sheets, err := st.ListSheets(ctx, filter)
		if err != nil {
			return err
		}
		if len(sheets) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "no sheets")
			return nil
		}

		for _, sh := range sheets {
			conf := "-"
			if sh.Result != nil {
				conf = fmt.Sprintf("%.2f", sh.Result.Confidence)
			}
			review := ""
			if sh.NeedsReview {
				review = "  NEEDS REVIEW"
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s  %-10s  conf=%s  %s%s\n",
				sh.ID, sh.Status, conf, sh.ImagePath, review)
		}
		return nil
	},
}

func init() {
	sheetsCmd.Flags().StringVar(&sheetsUser, "user", "", "filter by user id")
	sheetsCmd.Flags().StringVar(&sheetsStatus, "status", "", "filter by status (pending, processing, completed, failed)")
	sheetsCmd.Flags().StringVar(&sheetsSince, "since", "", "only sheets created on or after this date (YYYY-MM-DD)")
	sheetsCmd.Flags().IntVar(&sheetsLimit, "limit", 50, "max sheets to list")
	rootCmd.AddCommand(sheetsCmd)
}
