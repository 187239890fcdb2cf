package groq

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"modelwire/internal/core"
	"modelwire/internal/providers"
)

func TestRegistration_ChatOnly(t *testing.T) {
	catalog := providers.NewCatalog(Registration)
	assert.Len(t, catalog.Candidates(core.ChatModel), 1)
	assert.Len(t, catalog.Candidates(core.StreamingChatModel), 1)
	assert.Empty(t, catalog.Candidates(core.EmbeddingModel))

	_, err := catalog.Create(core.EmbeddingModel, Type, providers.ProviderOptions{})
	require.Error(t, err)

	client, err := catalog.Create(core.StreamingChatModel, Type, providers.ProviderOptions{
		Settings: providers.Settings{APIKey: "gsk-test"},
	})
	require.NoError(t, err)
	assert.Implements(t, (*core.StreamingChatLanguageModel)(nil), client)
}
