package main

import (
	"encoding/json"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

var (
	analyzeLat float64
	analyzeLng float64
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze",
	Short: "Run an area analysis for a coordinate",
	Long:  "Resolves the coordinate to its census tract, fetches the demographic profile, prints the analysis as JSON, and records it in the overview history.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		analysis, err := newAnalyzer(st).Analyze(ctx, analyzeLat, analyzeLng)
		if err != nil {
			return err
		}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(analysis)
	},
}

func init() {
	analyzeCmd.Flags().Float64Var(&analyzeLat, "lat", 0, "latitude")
	analyzeCmd.Flags().Float64Var(&analyzeLng, "lng", 0, "longitude")
	analyzeCmd.MarkFlagRequired("lat") //nolint:errcheck
	analyzeCmd.MarkFlagRequired("lng") //nolint:errcheck
	rootCmd.AddCommand(analyzeCmd)
}
