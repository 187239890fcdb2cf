package providers

import (
	"log/slog"
	"strings"

	"modelwire/internal/core"
)

// CandidateSource supplies the discovered candidates per capability.
type CandidateSource interface {
	Candidates(capability core.Capability) []core.ProviderCandidate
	InProcessCandidates(capability core.Capability) []core.ProviderCandidate
}

// OverrideSource returns the configured provider for a capability of a model name, or ""
// when the choice is left to the resolver.
type OverrideSource interface {
	ProviderOverride(capability core.Capability, modelName string) string
}

// UserBeans reports whether the application supplied its own bean for a selection key.
type UserBeans func(key core.SelectionKey) bool

// Resolve picks the provider backing a (capability, model name) pair.
//
// available is the union of candidates and extra (in-process) candidates by provider
// identifier, in first-seen order. The outcome is:
//
//   - none available: a user bean satisfies the request, else NoProviderConfigured
//   - one available: it is selected unless override names another provider (ProviderMismatch)
//   - several available, no override: user bean, else AmbiguousProvider
//   - several available, override: the override if available, else user bean,
//     else ProviderMismatch
//
// A Selection with Selected == false means no provider is needed because the user bean
// satisfies the request. Resolve has no side effects.
func Resolve(
	capability core.Capability,
	modelName string,
	candidates []core.ProviderCandidate,
	override string,
	userBeanExists bool,
	extra ...core.ProviderCandidate,
) (core.Selection, error) {
	modelName = core.NormalizeModelName(modelName)
	override = strings.TrimSpace(override)
	selection := core.Selection{
		Capability: capability.SelectionCapability(),
		ModelName:  modelName,
	}

	available := providerIDs(candidates, extra)

	switch len(available) {
	case 0:
		if userBeanExists {
			return selection, nil
		}
		return selection, core.NewNoProviderConfiguredError(capability, modelName, capability.SelectionCapability() == core.EmbeddingModel)
	case 1:
		if override != "" && override != available[0] {
			return selection, core.NewProviderMismatchError(capability, modelName, override, available)
		}
		selection.Provider = available[0]
		selection.Selected = true
		return selection, nil
	}

	if override == "" {
		if userBeanExists {
			return selection, nil
		}
		return selection, core.NewAmbiguousProviderError(capability, modelName, available)
	}
	for _, p := range available {
		if p == override {
			selection.Provider = override
			selection.Selected = true
			return selection, nil
		}
	}
	if userBeanExists {
		return selection, nil
	}
	return selection, core.NewProviderMismatchError(capability, modelName, override, available)
}

// providerIDs merges candidate identifiers, dropping duplicates and keeping first-seen order.
func providerIDs(sets ...[]core.ProviderCandidate) []string {
	seen := make(map[string]bool)
	var ids []string
	for _, set := range sets {
		for _, c := range set {
			id := strings.TrimSpace(c.Provider)
			if id == "" || seen[id] {
				continue
			}
			seen[id] = true
			ids = append(ids, id)
		}
	}
	return ids
}

// DedupeRequests collapses requests sharing a selection key, keeping the first occurrence.
// Chat and streaming chat requests of the same model name collapse into one.
func DedupeRequests(requests []core.ModelRequest) []core.SelectionKey {
	seen := make(map[core.SelectionKey]bool, len(requests))
	keys := make([]core.SelectionKey, 0, len(requests))
	for _, req := range requests {
		key := req.Key()
		if seen[key] {
			continue
		}
		seen[key] = true
		keys = append(keys, key)
	}
	return keys
}

// ResolveAll resolves every distinct request once, in request order. Embedding requests
// also consider in-process candidates. The first configuration error stops resolution.
func ResolveAll(requests []core.ModelRequest, source CandidateSource, overrides OverrideSource, userBeans UserBeans) ([]core.Selection, error) {
	keys := DedupeRequests(requests)
	selections := make([]core.Selection, 0, len(keys))

	for _, key := range keys {
		var override string
		if overrides != nil {
			override = overrides.ProviderOverride(key.Capability, key.ModelName)
		}
		userBean := userBeans != nil && userBeans(key)

		sel, err := Resolve(
			key.Capability,
			key.ModelName,
			source.Candidates(key.Capability),
			override,
			userBean,
			source.InProcessCandidates(key.Capability)...,
		)
		if err != nil {
			return selections, err
		}

		if sel.Selected {
			slog.Debug("provider selected",
				"capability", sel.Capability,
				"model_name", sel.ModelName,
				"provider", sel.Provider,
			)
		} else {
			slog.Debug("user supplied bean satisfies request",
				"capability", sel.Capability,
				"model_name", sel.ModelName,
			)
		}
		selections = append(selections, sel)
	}
	return selections, nil
}
