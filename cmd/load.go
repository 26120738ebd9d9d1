package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/bizsim/internal/store"
)

var loadCmd = &cobra.Command{
	Use:   "load",
	Short: "Load reference data from CSV files",
}

var loadSurvivalCmd = &cobra.Command{
	Use:   "survival <file.csv>",
	Short: "Load county survival rates",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runLoad(cmd, args[0], "survival")
	},
}

var loadTractsCmd = &cobra.Command{
	Use:   "tracts <file.csv>",
	Short: "Load the tract profile reference table",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runLoad(cmd, args[0], "tracts")
	},
}

func runLoad(cmd *cobra.Command, path, kind string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	f, err := os.Open(path)
	if err != nil {
		return eris.Wrapf(err, "load: open %s", path)
	}
	defer f.Close() //nolint:errcheck

	st, err := initStore(ctx)
	if err != nil {
		return err
	}
	defer st.Close() //nolint:errcheck

	var n int64
	switch kind {
	case "survival":
		records, err := store.ReadSurvivalCSV(f)
		if err != nil {
			return err
		}
		n, err = st.LoadSurvivalRecords(ctx, records)
		if err != nil {
			return err
		}
	case "tracts":
		profiles, err := store.ReadTractProfilesCSV(f)
		if err != nil {
			return err
		}
		n, err = st.LoadTractProfiles(ctx, profiles)
		if err != nil {
			return err
		}
	}

	zap.L().Info("load complete", zap.String("file", path), zap.String("kind", kind), zap.Int64("rows", n))
	return nil
}

func init() {
	loadCmd.AddCommand(loadSurvivalCmd, loadTractsCmd)
	rootCmd.AddCommand(loadCmd)
}
