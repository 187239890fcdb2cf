// Package builtin lists the provider packages compiled into modelwire.
package builtin

import (
	"log/slog"

	"modelwire/internal/providers"
	"modelwire/internal/providers/azure"
	"modelwire/internal/providers/groq"
	"modelwire/internal/providers/inprocess"
	"modelwire/internal/providers/ollama"
	"modelwire/internal/providers/openai"
)

// Registrations returns every built-in provider in discovery order.
func Registrations() []providers.Registration {
	return []providers.Registration{
		openai.Registration,
		azure.Registration,
		ollama.Registration,
		groq.Registration,
		inprocess.Registration,
	}
}

// Catalog registers the built-in providers that have settings, either from the
// modelwire.providers section or from well-known environment variables. Discovery order
// follows Registrations, not the configuration.
func Catalog(settings map[string]providers.Settings) *providers.Catalog {
	catalog := providers.NewCatalog()
	for _, reg := range Registrations() {
		if _, ok := settings[reg.Type]; !ok {
			continue
		}
		catalog.Add(reg)
		slog.Info("provider enabled", "type", reg.Type)
	}
	for name := range settings {
		if _, ok := catalog.Lookup(name); !ok {
			slog.Warn("ignoring settings for unknown provider", "type", name)
		}
	}
	return catalog
}
