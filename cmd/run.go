package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"autocheckout/internal/bootstrap"
	"autocheckout/internal/checkout"
	"autocheckout/internal/config"
)

// newRunCmd runs one invocation, prints the result as JSON and exits 1 on
// outcome error so an external scheduler can alert.
func newRunCmd(use, short string, kind checkout.InvocationKind) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}
			defer a.close()

			ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer cancel()

			res := a.executor.Execute(ctx, kind)
			if err := printJSON(cmd.OutOrStdout(), res); err != nil {
				return err
			}
			if code := res.ExitCode(); code != 0 {
				return &exitCodeError{code: code}
			}
			return nil
		},
	}
}

func newStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show settings, eligible bookings and today's execution",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}
			defer a.close()

			rep, err := a.executor.Status(cmd.Context())
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), rep)
		},
	}
}

func newBootstrapCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "bootstrap-db",
		Short: "Create the booking and checkout tables and seed missing default settings",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			dbCfg, err := config.LoadDatabaseOnly()
			if err != nil {
				return err
			}
			logger, err := newLogger(os.Getenv("APP_ENV"))
			if err != nil {
				return err
			}
			defer logger.Sync()

			db, err := config.NewDatabase(dbCfg, logger)
			if err != nil {
				return err
			}
			if err := bootstrap.MigrateBookingTables(db); err != nil {
				return err
			}
			if err := bootstrap.MigrateAndSeed(db); err != nil {
				return err
			}
			logger.Info("Schema migration and default seed completed")
			return nil
		},
	}
}

// signalContext is the serve command's root context.
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}
