package main

import (
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

var insightsUser string

var insightsCmd = &cobra.Command{
	Use:   "insights",
	Short: "Summarize recent extraction quality and corrections for a user",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		env, err := initEnv(ctx, "learn")
		if err != nil {
			return err
		}
		defer env.Close()

		ins, err := env.Learner.Insights(ctx, insightsUser)
		if err != nil {
			return err
		}
		return printJSON(cmd, ins)
	},
}

func init() {
	insightsCmd.Flags().StringVar(&insightsUser, "user", "", "user id to summarize")
	_ = insightsCmd.MarkFlagRequired("user")
	rootCmd.AddCommand(insightsCmd)
}
