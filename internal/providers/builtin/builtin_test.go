package builtin

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"modelwire/internal/core"
	"modelwire/internal/providers"
)

func TestCatalog_OnlyConfiguredProviders(t *testing.T) {
	catalog := Catalog(map[string]providers.Settings{
		"in-process": {Type: "in-process"},
		"ollama":     {Type: "ollama"},
		"openai":     {Type: "openai"},
		"unknown":    {Type: "unknown"},
	})

	assert.Equal(t, []string{"in-process", "ollama", "openai"}, catalog.ListRegistered())

	var chat []string
	for _, c := range catalog.Candidates(core.ChatModel) {
		chat = append(chat, c.Provider)
	}
	assert.Equal(t, []string{"openai", "ollama"}, chat, "discovery order is fixed")
	assert.Len(t, catalog.InProcessCandidates(core.EmbeddingModel), 1)
}

func TestRegistrations_UniqueTypes(t *testing.T) {
	seen := map[string]bool{}
	for _, reg := range Registrations() {
		assert.False(t, seen[reg.Type], reg.Type)
		seen[reg.Type] = true
	}
}
