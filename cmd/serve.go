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
	"golang.org/x/time/rate"

	"github.com/adialm/health-resilience-sim/internal/api"
	"github.com/adialm/health-resilience-sim/internal/config"
	"github.com/adialm/health-resilience-sim/internal/projection"
	"github.com/adialm/health-resilience-sim/internal/store"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the projection and scenario HTTP API",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		engine, err := initEngine(ctx)
		if err != nil {
			return err
		}
		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		port := servePort
		if port == 0 {
			port = cfg.Server.Port
		}

		srv := &http.Server{
			Addr:              fmt.Sprintf(":%d", port),
			Handler:           buildHandler(engine, st, cfg.Server, cfg.Simulation),
			ReadHeaderTimeout: 10 * time.Second,
		}

		// Graceful shutdown
		go func() {
			<-ctx.Done()
			zap.L().Info("shutting down server")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
		}()

		zap.L().Info("starting server",
			zap.Int("port", port),
			zap.String("store", cfg.Store.Driver),
			zap.Int("districts", len(engine.Dataset().Districts())),
		)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return eris.Wrap(err, "server listen")
		}

		return nil
	},
}

// buildHandler wires the API router from server and simulation settings.
func buildHandler(engine *projection.Engine, st store.Store, sc config.ServerConfig, sim config.SimulationConfig) http.Handler {
	return api.New(engine, st, api.Options{
		CORSOrigins:   sc.CORSOrigins,
		RateLimit:     rate.Limit(sc.RateLimitRPS),
		Burst:         sc.RateLimitBurst,
		DefaultPolicy: sim.Policy(),
	}).Handler()
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "server port (default from config)")
	rootCmd.AddCommand(serveCmd)
}
