package main

import (
	"context"
	"log/slog"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"modelwire/internal/app"
	"modelwire/internal/version"
)

const shutdownTimeout = 30 * time.Second

func newServeCmd(root *rootOptions) *cobra.Command {
	var requests []string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Build the model beans, start dev services and serve the dev console",
		RunE: func(cmd *cobra.Command, _ []string) error {
			slog.Info("starting modelwire", "version", version.Info())

			cfg, err := root.loadConfig()
			if err != nil {
				return err
			}
			reqs, err := parseRequests(requests)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			a, err := app.New(ctx, app.Config{AppConfig: cfg, Requests: reqs})
			if err != nil {
				return err
			}

			errCh := make(chan error, 1)
			go func() {
				errCh <- a.Start(":" + cfg.Server.Port)
			}()

			select {
			case <-ctx.Done():
				slog.Info("shutting down server...")
			case err = <-errCh:
			}

			shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			if shutdownErr := a.Shutdown(shutdownCtx); shutdownErr != nil && err == nil {
				err = shutdownErr
			}
			return err
		},
	}

	cmd.Flags().StringArrayVarP(&requests, "request", "r", nil, "model bean to build, as capability[:name] (repeatable)")
	return cmd
}
