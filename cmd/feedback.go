package main

import (
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/terrafield/crewsheet-cli/internal/model"
)

var (
	feedbackSheet    string
	feedbackUser     string
	feedbackField    string
	feedbackEmployee int
	feedbackOld      string
	feedbackNew      string
)

var feedbackCmd = &cobra.Command{
	Use:   "feedback",
	Short: "Record a reviewer correction and run the learning loop",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		env, err := initEnv(ctx, "learn")
		if err != nil {
			return err
		}
		defer env.Close()

		res, err := env.Service.ProcessFeedback(ctx, &model.UserEdit{
			SheetID:       feedbackSheet,
			UserID:        feedbackUser,
			FieldName:     feedbackField,
			EmployeeIndex: feedbackEmployee,
			OldValue:      feedbackOld,
			NewValue:      feedbackNew,
		})
		if err != nil {
			return err
		}

		return printJSON(cmd, res)
	},
}

func init() {
	feedbackCmd.Flags().StringVar(&feedbackSheet, "sheet", "", "sheet id the correction belongs to")
	feedbackCmd.Flags().StringVar(&feedbackUser, "user", "", "user id making the correction")
	feedbackCmd.Flags().StringVar(&feedbackField, "field", "", "field (column header) that was corrected")
	feedbackCmd.Flags().IntVar(&feedbackEmployee, "employee", 0, "employee row index")
	feedbackCmd.Flags().StringVar(&feedbackOld, "old", "", "value before the correction")
	feedbackCmd.Flags().StringVar(&feedbackNew, "new", "", "value after the correction")
	_ = feedbackCmd.MarkFlagRequired("sheet")
	_ = feedbackCmd.MarkFlagRequired("field")
	rootCmd.AddCommand(feedbackCmd)
}
