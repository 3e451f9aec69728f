package main

import (
	"os/signal"
	"syscall"

	"github.com/exact3design/soundcard/internal/app"
	"github.com/exact3design/soundcard/internal/config"
	"github.com/spf13/cobra"
)

func newServeCommand(appCfg func() config.AppConfig) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP service",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return app.RunServer(ctx, appCfg())
		},
	}
}

func newMigrateCommand(appCfg func() config.AppConfig) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply database migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := app.Migrate(cmd.Context(), appCfg()); err != nil {
				return err
			}
			cmd.Println("Migrations applied")
			return nil
		},
	}
}
