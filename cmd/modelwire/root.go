package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"modelwire/config"
	"modelwire/internal/logging"
)

type rootOptions struct {
	configPath string
	logLevel   string
	logFormat  string
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:           "modelwire",
		Short:         "Model provider selection and Milvus dev services",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return logging.Setup(logging.Options{Level: opts.logLevel, Format: opts.logFormat})
		},
	}

	flags := cmd.PersistentFlags()
	flags.StringVarP(&opts.configPath, "config", "c", "", "path to modelwire.yaml (default: ./modelwire.yaml or ./config/modelwire.yaml)")
	flags.StringVar(&opts.logLevel, "log-level", envOr("LOG_LEVEL", "info"), "log level: debug, info, warn or error")
	flags.StringVar(&opts.logFormat, "log-format", envOr("LOG_FORMAT", logging.FormatAuto), "log format: auto, pretty or json")

	cmd.AddCommand(
		newServeCmd(opts),
		newResolveCmd(opts),
		newDevServicesCmd(opts),
		newVersionCmd(),
	)
	return cmd
}

func (o *rootOptions) loadConfig() (*config.Config, error) {
	cfg, err := config.Load(o.configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return cfg, nil
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
