package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"autocheckout/internal/bootstrap"
	cronpkg "autocheckout/internal/cron"
	"autocheckout/internal/handler/api"
	"autocheckout/internal/router"
)

func newServeCmd() *cobra.Command {
	var migrate bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the admin API and the in-process checkout trigger",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}
			defer a.close()
			logger := a.logger

			if migrate {
				if err := bootstrap.MigrateAndSeed(a.db); err != nil {
					return fmt.Errorf("bootstrap database schema: %w", err)
				}
			}

			// --- Echo ---
			e := echo.New()
			e.HideBanner = true
			e.HidePort = true

			// --- Routes ---
			h := api.NewCheckoutHandler(a.executor, a.settings, a.executions, a.history, a.cfg.Checkout.Location, logger)
			router.Setup(e, h, a.cfg.API.Key, logger)

			// --- Cron Scheduler ---
			scheduler := cronpkg.New(a.cfg.Checkout, a.executor, logger)
			if err := scheduler.Start(); err != nil {
				return err
			}

			// --- Start Server ---
			addr := fmt.Sprintf(":%d", a.cfg.Server.Port)
			go func() {
				logger.Info("Starting auto checkout server", zap.String("addr", addr))
				if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
					logger.Error("Server stopped", zap.Error(err))
				}
			}()

			// --- Graceful Shutdown ---
			ctx, cancel := signalContext()
			defer cancel()
			<-ctx.Done()

			logger.Info("Shutting down...")

			// Stop cron, waiting for an in-flight run
			<-scheduler.Stop().Done()

			// Stop HTTP server
			shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancelShutdown()
			if err := e.Shutdown(shutdownCtx); err != nil {
				logger.Error("Server forced to shutdown", zap.Error(err))
			}

			logger.Info("Server exited")
			return nil
		},
	}

	cmd.Flags().BoolVar(&migrate, "migrate", true, "migrate the checkout tables and seed default settings on startup")
	return cmd
}
