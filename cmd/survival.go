package main

import (
	"encoding/json"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/sells-group/bizsim/internal/survival"
)

var survivalCmd = &cobra.Command{
	Use:   "survival",
	Short: "Query business survival rates",
}

var survivalCountiesCmd = &cobra.Command{
	Use:   "counties",
	Short: "List counties with survival data",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		counties, err := st.SurvivalCounties(ctx)
		if err != nil {
			return err
		}
		return printJSON(counties)
	},
}

var survivalIncludeTotal bool

var survivalCountyCmd = &cobra.Command{
	Use:   "county <name>",
	Short: "Rank a county's industries by survival rate",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		records, err := survival.NewService(st).RankedIndustries(ctx, args[0], survivalIncludeTotal)
		if err != nil {
			return err
		}
		return printJSON(records)
	},
}

var survivalStatsCmd = &cobra.Command{
	Use:   "stats <county>",
	Short: "Summarize a county's survival rates",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		stats, err := survival.NewService(st).Statistics(ctx, args[0])
		if err != nil {
			return err
		}
		return printJSON(stats)
	},
}

var survivalOutlookCmd = &cobra.Command{
	Use:   "outlook <county> <business-type>",
	Short: "Survival outlook for a business description in a county",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		outlook, err := survival.NewService(st).ByBusinessKeyword(ctx, args[0], args[1])
		if err != nil {
			return err
		}
		return printJSON(outlook)
	},
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func init() {
	survivalCountyCmd.Flags().BoolVar(&survivalIncludeTotal, "include-total", false, "include the all-industries total row")
	survivalCmd.AddCommand(survivalCountiesCmd, survivalCountyCmd, survivalStatsCmd, survivalOutlookCmd)
	rootCmd.AddCommand(survivalCmd)
}
