package main

import (
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/sells-group/bizsim/internal/trend"
)

var trendsLocation string

var trendsCmd = &cobra.Command{
	Use:   "trends <business-type>",
	Short: "Fetch search-trend analysis for a business type",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		svc := trend.NewService(newTrendsClient(), cfg.Trends.Geo, cfg.Trends.Timeframe)
		summary := svc.Fetch(ctx, args[0], trendsLocation)
		return printJSON(summary)
	},
}

func init() {
	trendsCmd.Flags().StringVar(&trendsLocation, "location", "", "location context for keyword selection")
	rootCmd.AddCommand(trendsCmd)
}
