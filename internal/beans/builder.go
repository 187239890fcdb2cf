// Package beans builds the model bean graph: it collects the requested (capability, model
// name) pairs, resolves a provider for each, and instantiates the model clients.
package beans

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"modelwire/config"
	"modelwire/internal/cache"
	"modelwire/internal/core"
	"modelwire/internal/observability"
	"modelwire/internal/providers"
)

// Builder accumulates model requests and user supplied beans. It is not safe for concurrent use.
type Builder struct {
	catalog  *providers.Catalog
	cfg      *config.Config
	settings map[string]providers.Settings
	cache    cache.Cache

	requests []core.ModelRequest
	supplied map[beanKey]any
}

// beanKey identifies one bean. Unlike core.SelectionKey it keeps chat and streaming chat apart.
type beanKey struct {
	capability core.Capability
	modelName  string
}

func keyOf(capability core.Capability, modelName string) beanKey {
	return beanKey{capability: capability, modelName: core.NormalizeModelName(modelName)}
}

// NewBuilder creates a builder over the provider catalog. Requests listed in cfg.Requests are
// added after the ones passed to Request.
func NewBuilder(catalog *providers.Catalog, cfg *config.Config) *Builder {
	if cfg == nil {
		cfg = &config.Config{}
	}
	return &Builder{
		catalog:  catalog,
		cfg:      cfg,
		settings: providers.ResolveSettings(cfg.Providers),
		supplied: make(map[beanKey]any),
	}
}

// WithCache persists the selection report after each successful build.
func (b *Builder) WithCache(c cache.Cache) *Builder {
	b.cache = c
	return b
}

// Request records that the application needs a bean of capability named modelName.
// Empty modelName requests the default model.
func (b *Builder) Request(capability core.Capability, modelName string) *Builder {
	b.requests = append(b.requests, core.NewModelRequest(capability, modelName))
	return b
}

// Supply registers an application provided bean. It satisfies requests of the same capability
// and model name. A selection key needs no provider once every bean requested under it is supplied.
func (b *Builder) Supply(capability core.Capability, modelName string, bean any) error {
	if err := checkBeanType(capability, bean); err != nil {
		return err
	}
	b.supplied[keyOf(capability, modelName)] = bean
	return nil
}

func checkBeanType(capability core.Capability, bean any) error {
	var ok bool
	switch capability {
	case core.ChatModel:
		_, ok = bean.(core.ChatLanguageModel)
	case core.StreamingChatModel:
		_, ok = bean.(core.StreamingChatLanguageModel)
	case core.EmbeddingModel:
		_, ok = bean.(core.EmbeddingModelClient)
	case core.ModerationModel:
		_, ok = bean.(core.ModerationModelClient)
	case core.ImageModel:
		_, ok = bean.(core.ImageModelClient)
	default:
		return fmt.Errorf("unknown capability: %s", capability)
	}
	if !ok {
		return fmt.Errorf("supplied bean %T does not implement %s", bean, capability.BeanType())
	}
	return nil
}

// userBeans reports a selection key as satisfied when every bean requested under it was
// supplied. Chat and streaming chat share a key, so a supplied chat bean alone does not cover
// a streaming request.
func (b *Builder) userBeans(requests []core.ModelRequest) providers.UserBeans {
	missing := make(map[core.SelectionKey]bool, len(requests))
	for _, req := range requests {
		key := req.Key()
		if _, ok := b.supplied[keyOf(req.Capability, req.ModelName)]; !ok {
			missing[key] = true
		} else if _, seen := missing[key]; !seen {
			missing[key] = false
		}
	}
	return func(key core.SelectionKey) bool {
		m, requested := missing[key]
		return requested && !m
	}
}

// Build resolves every request and instantiates the selected model clients.
// A configuration error fails the whole build and no graph is returned.
func (b *Builder) Build(ctx context.Context) (*Graph, error) {
	requests, err := b.allRequests()
	if err != nil {
		return nil, err
	}

	selections, err := providers.ResolveAll(requests, b.catalog, b.cfg, b.userBeans(requests))
	if err != nil {
		observability.RecordResolutionError(err)
		return nil, err
	}

	bySelection := make(map[core.SelectionKey]core.Selection, len(selections))
	for _, sel := range selections {
		observability.RecordSelection(sel)
		bySelection[core.SelectionKey{Capability: sel.Capability, ModelName: sel.ModelName}] = sel
	}

	graph := &Graph{
		selections: selections,
		beans:      make(map[beanKey]any, len(requests)),
	}
	for k, bean := range b.supplied {
		graph.beans[k] = bean
	}

	for _, req := range requests {
		key := keyOf(req.Capability, req.ModelName)
		if _, done := graph.beans[key]; done {
			continue
		}
		sel, ok := bySelection[req.Key()]
		if !ok || !sel.Selected {
			return nil, fmt.Errorf("%w: %s %q has no selected provider", core.ErrUnsatisfiedBean, req.Capability.BeanType(), key.modelName)
		}

		bean, err := b.catalog.Create(req.Capability, sel.Provider, providers.ProviderOptions{
			ModelName: key.modelName,
			ModelID:   b.cfg.ModelID(req.Capability, key.modelName),
			Settings:  b.providerSettings(sel.Provider),
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create %s %q from provider %s: %w",
				req.Capability.BeanType(), key.modelName, sel.Provider, err)
		}
		graph.beans[key] = bean
		slog.Info("model bean created",
			"capability", req.Capability,
			"model_name", key.modelName,
			"provider", sel.Provider,
		)
	}

	b.storeReport(ctx, selections)
	return graph, nil
}

func (b *Builder) allRequests() ([]core.ModelRequest, error) {
	configured, err := b.cfg.ModelRequests()
	if err != nil {
		return nil, err
	}
	requests := make([]core.ModelRequest, 0, len(b.requests)+len(configured))
	requests = append(requests, b.requests...)
	requests = append(requests, configured...)
	return requests, nil
}

func (b *Builder) providerSettings(providerType string) providers.Settings {
	if s, ok := b.settings[providerType]; ok {
		return s
	}
	return providers.Settings{Type: providerType}
}

// storeReport saves the selections and logs the ones that changed since the last run.
// Cache failures never fail the build.
func (b *Builder) storeReport(ctx context.Context, selections []core.Selection) {
	if b.cache == nil {
		return
	}
	report := &cache.Report{
		Version:    cache.ReportVersion,
		UpdatedAt:  time.Now().UTC(),
		Providers:  b.catalog.ListRegistered(),
		Selections: selections,
	}

	prev, err := b.cache.Get(ctx)
	if err != nil {
		slog.Warn("failed to read previous selection report", "error", err)
	}
	for _, c := range cache.Diff(prev, report) {
		slog.Info("provider selection changed",
			"capability", c.Key.Capability,
			"model_name", c.Key.ModelName,
			"previous", c.Previous,
			"current", c.Current,
		)
	}
	if err := b.cache.Set(ctx, report); err != nil {
		slog.Warn("failed to store selection report", "error", err)
	}
}

// Graph holds the beans produced by a build.
type Graph struct {
	selections []core.Selection
	beans      map[beanKey]any
}

// Selections returns the resolver outcome per distinct selection key, in request order.
func (g *Graph) Selections() []core.Selection {
	out := make([]core.Selection, len(g.selections))
	copy(out, g.selections)
	return out
}

func (g *Graph) lookup(capability core.Capability, modelName string) (any, error) {
	bean, ok := g.beans[keyOf(capability, modelName)]
	if !ok {
		return nil, fmt.Errorf("%w: %s %q", core.ErrUnsatisfiedBean, capability.BeanType(), core.NormalizeModelName(modelName))
	}
	return bean, nil
}

// Chat returns the chat model named modelName ("" for the default).
func (g *Graph) Chat(modelName string) (core.ChatLanguageModel, error) {
	bean, err := g.lookup(core.ChatModel, modelName)
	if err != nil {
		return nil, err
	}
	return bean.(core.ChatLanguageModel), nil
}

// StreamingChat returns the streaming chat model named modelName.
func (g *Graph) StreamingChat(modelName string) (core.StreamingChatLanguageModel, error) {
	bean, err := g.lookup(core.StreamingChatModel, modelName)
	if err != nil {
		return nil, err
	}
	return bean.(core.StreamingChatLanguageModel), nil
}

// Embedding returns the embedding model named modelName.
func (g *Graph) Embedding(modelName string) (core.EmbeddingModelClient, error) {
	bean, err := g.lookup(core.EmbeddingModel, modelName)
	if err != nil {
		return nil, err
	}
	return bean.(core.EmbeddingModelClient), nil
}

// Moderation returns the moderation model named modelName.
func (g *Graph) Moderation(modelName string) (core.ModerationModelClient, error) {
	bean, err := g.lookup(core.ModerationModel, modelName)
	if err != nil {
		return nil, err
	}
	return bean.(core.ModerationModelClient), nil
}

// Image returns the image model named modelName.
func (g *Graph) Image(modelName string) (core.ImageModelClient, error) {
	bean, err := g.lookup(core.ImageModel, modelName)
	if err != nil {
		return nil, err
	}
	return bean.(core.ImageModelClient), nil
}

// IsUnsatisfied reports whether err comes from a lookup of a bean that was never built.
func IsUnsatisfied(err error) bool {
	return errors.Is(err, core.ErrUnsatisfiedBean)
}
