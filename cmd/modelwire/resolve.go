package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"modelwire/internal/beans"
	"modelwire/internal/core"
	"modelwire/internal/providers"
	"modelwire/internal/providers/builtin"
)

// resolveReport is the YAML document printed by the resolve command.
type resolveReport struct {
	Providers  []string         `yaml:"providers"`
	Selections []core.Selection `yaml:"selections"`
}

func newResolveCmd(root *rootOptions) *cobra.Command {
	var requests []string

	cmd := &cobra.Command{
		Use:   "resolve",
		Short: "Resolve a provider for every requested model bean and print the selections",
		Example: `  modelwire resolve -r chat -r embedding:search
  MODELWIRE_CHAT_MODEL_PROVIDER=ollama modelwire resolve -r chat`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := root.loadConfig()
			if err != nil {
				return err
			}
			reqs, err := parseRequests(requests)
			if err != nil {
				return err
			}

			catalog := builtin.Catalog(providers.ResolveSettings(cfg.Providers))
			builder := beans.NewBuilder(catalog, cfg)
			for _, r := range reqs {
				builder.Request(r.Capability, r.ModelName)
			}
			graph, err := builder.Build(cmd.Context())
			if err != nil {
				return err
			}

			enc := yaml.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent(2)
			defer enc.Close()
			return enc.Encode(resolveReport{
				Providers:  catalog.ListRegistered(),
				Selections: graph.Selections(),
			})
		},
	}

	cmd.Flags().StringArrayVarP(&requests, "request", "r", nil, "model bean to resolve, as capability[:name] (repeatable)")
	return cmd
}

func parseRequests(raw []string) ([]core.ModelRequest, error) {
	out := make([]core.ModelRequest, 0, len(raw))
	for _, s := range raw {
		req, err := core.ParseModelRequest(s)
		if err != nil {
			return nil, fmt.Errorf("--request: %w", err)
		}
		out = append(out, req)
	}
	return out, nil
}
