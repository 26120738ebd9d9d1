package main

import (
	"context"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/bizsim/internal/api"
	"github.com/sells-group/bizsim/internal/sim"
	"github.com/sells-group/bizsim/internal/survival"
	"github.com/sells-group/bizsim/internal/trend"
	"github.com/sells-group/bizsim/pkg/agents"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API server",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		trendSvc := trend.NewService(newTrendsClient(), cfg.Trends.Geo, cfg.Trends.Timeframe)
		simSvc := sim.NewService(st, cfg.Sim.StartYear)

		agentsClient := agents.NewClient(cfg.Agents.BaseURL,
			agents.WithTimeout(time.Duration(cfg.Agents.TimeoutSecs)*time.Second))

		server := api.NewServer(api.Config{
			Analyzer:       newAnalyzer(st),
			Survival:       survival.NewService(st),
			Trends:         trendSvc,
			Sim:            simSvc,
			Orchestrator:   sim.NewOrchestrator(st, agentsClient, trendSvc),
			Store:          st,
			AllowedOrigins: cfg.Server.AllowedOrigins,
		})

		port := servePort
		if port == 0 {
			port = cfg.Server.Port
		}

		srv := &http.Server{
			Addr:    fmt.Sprintf(":%d", port),
			Handler: server.Handler(),
		}

		// Graceful shutdown. The signal context is already cancelled here,
		// so drain on a fresh deadline instead.
		go func() {
			<-ctx.Done()
			drainCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			srv.Shutdown(drainCtx) //nolint:errcheck
		}()

		zap.L().Info("starting server", zap.Int("port", port), zap.String("store", cfg.Store.Driver))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return eris.Wrap(err, "server listen")
		}

		return nil
	},
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "server port (default from config)")
	rootCmd.AddCommand(serveCmd)
}
