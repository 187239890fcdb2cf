// Package providers discovers provider implementations and resolves which one backs each
// requested model bean.
package providers

import (
	"fmt"
	"log/slog"
	"sort"

	"modelwire/internal/core"
)

// ProviderOptions is handed to a constructor when a provider was selected for a bean.
type ProviderOptions struct {
	// ModelName is the bean's model name (core.DefaultModelName for the unnamed model).
	ModelName string
	// ModelID is the upstream model identifier to use, already resolved from configuration.
	ModelID string
	Settings Settings
}

// Constructors build a model client for one capability.
type (
	ChatConstructor          func(opts ProviderOptions) (core.ChatLanguageModel, error)
	StreamingChatConstructor func(opts ProviderOptions) (core.StreamingChatLanguageModel, error)
	EmbeddingConstructor     func(opts ProviderOptions) (core.EmbeddingModelClient, error)
	ModerationConstructor    func(opts ProviderOptions) (core.ModerationModelClient, error)
	ImageConstructor         func(opts ProviderOptions) (core.ImageModelClient, error)
)

// Registration describes a provider package: its identifier and one constructor per
// capability it supports. A nil constructor means the capability is not offered.
type Registration struct {
	Type string
	// InProcess marks providers that compute locally. They are only offered as embedding
	// candidates.
	InProcess bool

	Chat          ChatConstructor
	StreamingChat StreamingChatConstructor
	Embedding     EmbeddingConstructor
	Moderation    ModerationConstructor
	Image         ImageConstructor
}

// Supports reports whether the registration offers a capability. Streaming chat is offered
// through the chat candidate set, so only Chat decides chat candidacy.
func (r Registration) Supports(capability core.Capability) bool {
	switch capability.SelectionCapability() {
	case core.ChatModel:
		return r.Chat != nil
	case core.EmbeddingModel:
		return r.Embedding != nil
	case core.ModerationModel:
		return r.Moderation != nil
	case core.ImageModel:
		return r.Image != nil
	default:
		return false
	}
}

// Catalog holds every provider registration known to the build, in registration order.
type Catalog struct {
	registrations []Registration
	index         map[string]int
}

// NewCatalog creates a catalog and adds the given registrations.
func NewCatalog(regs ...Registration) *Catalog {
	c := &Catalog{index: make(map[string]int)}
	for _, reg := range regs {
		c.Add(reg)
	}
	return c
}

// Add registers a provider. Registering the same type again replaces the constructors but
// keeps the original discovery position.
func (c *Catalog) Add(reg Registration) {
	if reg.Type == "" {
		slog.Warn("ignoring provider registration without a type")
		return
	}
	if i, ok := c.index[reg.Type]; ok {
		c.registrations[i] = reg
		return
	}
	c.index[reg.Type] = len(c.registrations)
	c.registrations = append(c.registrations, reg)
	slog.Debug("provider registered", "type", reg.Type, "in_process", reg.InProcess)
}

// Lookup returns the registration for a provider type.
func (c *Catalog) Lookup(providerType string) (Registration, bool) {
	i, ok := c.index[providerType]
	if !ok {
		return Registration{}, false
	}
	return c.registrations[i], true
}

// Candidates returns the remote provider candidates for a capability in discovery order.
func (c *Catalog) Candidates(capability core.Capability) []core.ProviderCandidate {
	return c.candidates(capability, false)
}

// InProcessCandidates returns the locally computed candidates for a capability.
// Only embedding models have in-process implementations.
func (c *Catalog) InProcessCandidates(capability core.Capability) []core.ProviderCandidate {
	if capability.SelectionCapability() != core.EmbeddingModel {
		return nil
	}
	return c.candidates(capability, true)
}

func (c *Catalog) candidates(capability core.Capability, inProcess bool) []core.ProviderCandidate {
	var out []core.ProviderCandidate
	for _, reg := range c.registrations {
		if reg.InProcess != inProcess || !reg.Supports(capability) {
			continue
		}
		out = append(out, core.ProviderCandidate{
			Provider:   reg.Type,
			Capability: capability.SelectionCapability(),
			InProcess:  reg.InProcess,
		})
	}
	return out
}

// ListRegistered returns all registered provider types, sorted.
func (c *Catalog) ListRegistered() []string {
	types := make([]string, 0, len(c.registrations))
	for _, reg := range c.registrations {
		types = append(types, reg.Type)
	}
	sort.Strings(types)
	return types
}

// Len returns the number of registrations.
func (c *Catalog) Len() int {
	return len(c.registrations)
}

// errNotOffered is returned when a selected provider lacks the constructor for a capability,
// e.g. streaming chat on a provider that only registered blocking chat.
func errNotOffered(providerType string, capability core.Capability) error {
	return fmt.Errorf("provider %s does not offer a %s model", providerType, capability.BeanType())
}
