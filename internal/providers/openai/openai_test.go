package openai

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"modelwire/internal/core"
	"modelwire/internal/providers"
)

func TestClientConfig(t *testing.T) {
	cfg, err := clientConfig(providers.Settings{APIKey: "sk-test"})
	require.NoError(t, err)
	assert.Equal(t, defaultBaseURL, cfg.BaseURL)

	cfg, err = clientConfig(providers.Settings{APIKey: "sk-test", BaseURL: "http://proxy.local/v1"})
	require.NoError(t, err)
	assert.Equal(t, "http://proxy.local/v1", cfg.BaseURL)
}

func TestRegistration(t *testing.T) {
	catalog := providers.NewCatalog(Registration)
	for _, capability := range core.Capabilities {
		assert.Len(t, catalog.Candidates(capability), 1, capability.String())
	}

	client, err := catalog.Create(core.ModerationModel, Type, providers.ProviderOptions{})
	require.NoError(t, err)
	assert.Implements(t, (*core.ModerationModelClient)(nil), client)
}
