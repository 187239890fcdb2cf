package providers

import (
	"os"
	"strings"
	"time"

	"modelwire/config"
	"modelwire/internal/core"
)

// Settings holds the fully resolved connection settings of one provider type after
// merging the YAML section with well-known environment variables.
type Settings struct {
	Type       string
	APIKey     string
	BaseURL    string
	APIVersion string
	Timeout    time.Duration
	// ModelIDs holds the provider's default upstream model per capability.
	ModelIDs map[core.Capability]string
}

// ModelID returns the default upstream model for a capability, or "".
func (s Settings) ModelID(capability core.Capability) string {
	return s.ModelIDs[capability.SelectionCapability()]
}

// knownProviderEnvs maps well-known provider names to their environment variables.
// This list is the authoritative source for provider settings from env vars.
var knownProviderEnvs = []struct {
	name       string
	apiKeyEnv  string
	baseURLEnv string
}{
	{"openai", "OPENAI_API_KEY", "OPENAI_BASE_URL"},
	{"azure-openai", "AZURE_OPENAI_API_KEY", "AZURE_OPENAI_ENDPOINT"},
	{"ollama", "OLLAMA_API_KEY", "OLLAMA_BASE_URL"},
	{"groq", "GROQ_API_KEY", "GROQ_BASE_URL"},
}

// ResolveSettings applies env var overrides to the configured provider sections and
// returns settings keyed by provider type.
func ResolveSettings(raw map[string]config.ProviderConfig) map[string]Settings {
	merged := applyProviderEnvVars(raw)
	result := make(map[string]Settings, len(merged))
	for name, p := range merged {
		result[name] = buildSettings(name, p)
	}
	return result
}

// applyProviderEnvVars overlays well-known provider env vars onto the configured map.
// Env var values always win over YAML values for the same provider name.
func applyProviderEnvVars(raw map[string]config.ProviderConfig) map[string]config.ProviderConfig {
	result := make(map[string]config.ProviderConfig, len(raw))
	for k, v := range raw {
		result[k] = v
	}

	for _, kp := range knownProviderEnvs {
		apiKey := os.Getenv(kp.apiKeyEnv)
		baseURL := os.Getenv(kp.baseURLEnv)

		if apiKey == "" && baseURL == "" {
			continue
		}

		existing := result[kp.name]
		if apiKey != "" {
			existing.APIKey = apiKey
		}
		if baseURL != "" {
			existing.BaseURL = baseURL
		}
		result[kp.name] = existing
	}

	return result
}

func buildSettings(name string, p config.ProviderConfig) Settings {
	s := Settings{
		Type:       name,
		APIKey:     p.APIKey,
		BaseURL:    strings.TrimRight(p.BaseURL, "/"),
		APIVersion: p.APIVersion,
		Timeout:    p.Timeout,
		ModelIDs:   make(map[core.Capability]string),
	}
	// Unresolved ${VAR} placeholders are treated as missing credentials.
	if strings.Contains(s.APIKey, "${") {
		s.APIKey = ""
	}
	for capability, id := range map[core.Capability]string{
		core.ChatModel:       p.ChatModelID,
		core.EmbeddingModel:  p.EmbeddingModelID,
		core.ModerationModel: p.ModerationModelID,
		core.ImageModel:      p.ImageModelID,
	} {
		if id != "" {
			s.ModelIDs[capability] = id
		}
	}
	return s
}
