package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"modelwire/internal/devservices"
)

func newDevServicesCmd(root *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "devservices",
		Short: "Manage the etcd, MinIO and Milvus dev services",
	}
	cmd.AddCommand(newDevServicesUpCmd(root))
	return cmd
}

func newDevServicesUpCmd(root *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "up",
		Short: "Start (or reuse) the dev services, print the configuration pointing at them and wait for a signal",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := root.loadConfig()
			if err != nil {
				return err
			}
			mode, err := devservices.ParseLaunchMode(cfg.DevServices.LaunchMode)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			orchestrator := devservices.NewOrchestrator(devservices.NewDockerRuntime(), nil)
			services, err := orchestrator.EnsureRunning(ctx, devservices.ConfigFrom(cfg), mode)
			if err != nil {
				return err
			}
			if services == nil {
				fmt.Fprintln(cmd.ErrOrStderr(), "dev services are disabled, not wanted in this launch mode, or docker is unavailable")
				return nil
			}

			out, err := yaml.Marshal(services.ConfigOverrides())
			if err != nil {
				return err
			}
			fmt.Fprint(cmd.OutOrStdout(), string(out))

			<-ctx.Done()
			orchestrator.Shutdown(context.Background())
			return nil
		},
	}
}
