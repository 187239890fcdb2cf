package core

import (
	"fmt"
	"strings"
)

// DefaultModelName is the reserved name of the unnamed model configuration.
const DefaultModelName = "<default>"

// ConfigPrefix is the root of every configuration key read by modelwire.
const ConfigPrefix = "modelwire"

// NormalizeModelName trims and lowercases the name and maps an empty value to DefaultModelName.
// Model names are case-insensitive, like the configuration keys they are read from.
func NormalizeModelName(name string) string {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" {
		return DefaultModelName
	}
	return name
}

// IsDefaultModelName reports whether name refers to the unnamed configuration.
func IsDefaultModelName(name string) bool {
	return NormalizeModelName(name) == DefaultModelName
}

// ConfigNamespace returns the configuration namespace for a capability of a named model,
// relative to ConfigPrefix:
//
//   - default model: "chat-model"
//   - named model:   "summarizer.chat-model"
func ConfigNamespace(capability Capability, modelName string) string {
	if IsDefaultModelName(modelName) {
		return capability.Namespace()
	}
	return NormalizeModelName(modelName) + "." + capability.Namespace()
}

// ProviderConfigKey returns the fully qualified key a user sets to choose a provider,
// e.g. "modelwire.summarizer.chat-model.provider".
func ProviderConfigKey(capability Capability, modelName string) string {
	return fmt.Sprintf("%s.%s.provider", ConfigPrefix, ConfigNamespace(capability, modelName))
}
