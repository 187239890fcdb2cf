// Package app provides the main application struct for centralized dependency management
// and lifecycle control: provider selection, dev services and the dev console.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"

	"modelwire/config"
	"modelwire/internal/beans"
	"modelwire/internal/cache"
	"modelwire/internal/core"
	"modelwire/internal/devservices"
	"modelwire/internal/providers"
	"modelwire/internal/providers/builtin"
	"modelwire/internal/server"
)

// App represents the main application with all its dependencies.
type App struct {
	config      *config.Config
	catalog     *providers.Catalog
	cache       cache.Cache
	graph       *beans.Graph
	devservices *devservices.Orchestrator
	server      *server.Server

	hooksMu sync.Mutex
	hooks   []func(ctx context.Context) error

	shutdownMu sync.Mutex
	shutdown   bool
}

// Config holds the options for creating an App.
type Config struct {
	// AppConfig is the loaded configuration. Dev services write their endpoints into it.
	AppConfig *config.Config
	// Catalog overrides the built-in providers.
	Catalog *providers.Catalog
	// Runtime overrides the Docker runtime used for dev services.
	Runtime devservices.Runtime
	// Requests are the model beans the application needs, in addition to modelwire.requests.
	Requests []core.ModelRequest
	// Beans are user supplied beans keyed by request.
	Beans map[core.ModelRequest]any
	// SkipDevServices leaves dev services alone regardless of configuration.
	SkipDevServices bool
}

// New builds the bean graph and starts dev services. A configuration error from the resolver
// fails New; dev services failures are logged and the application runs without them.
// The caller must call Shutdown to release resources.
func New(ctx context.Context, cfg Config) (*App, error) {
	if cfg.AppConfig == nil {
		return nil, fmt.Errorf("app config is required")
	}
	appCfg := cfg.AppConfig

	app := &App{
		config:  appCfg,
		catalog: cfg.Catalog,
	}
	if app.catalog == nil {
		app.catalog = builtin.Catalog(providers.ResolveSettings(appCfg.Providers))
	}

	reportCache, err := cache.New(ctx, appCfg.Cache)
	if err != nil {
		slog.Warn("selection report cache unavailable", "error", err)
	} else {
		app.cache = reportCache
	}

	builder := beans.NewBuilder(app.catalog, appCfg)
	if app.cache != nil {
		builder.WithCache(app.cache)
	}
	for _, req := range cfg.Requests {
		builder.Request(req.Capability, req.ModelName)
	}
	for req, bean := range cfg.Beans {
		if err := builder.Supply(req.Capability, req.ModelName, bean); err != nil {
			return nil, errors.Join(err, app.closeCache())
		}
	}

	graph, err := builder.Build(ctx)
	if err != nil {
		return nil, errors.Join(err, app.closeCache())
	}
	app.graph = graph

	runtime := cfg.Runtime
	if runtime == nil {
		runtime = devservices.NewDockerRuntime()
	}
	app.devservices = devservices.NewOrchestrator(runtime, app)
	if !cfg.SkipDevServices {
		if err := app.startDevServices(ctx); err != nil {
			return nil, errors.Join(err, app.closeCache())
		}
	}

	app.logStartupInfo()

	app.server = server.New(app, &server.Config{
		MasterKey:       appCfg.Server.MasterKey,
		MetricsEnabled:  appCfg.Server.Metrics.Enabled,
		MetricsEndpoint: appCfg.Server.Metrics.Endpoint,
	})
	return app, nil
}

func (a *App) startDevServices(ctx context.Context) error {
	mode, err := devservices.ParseLaunchMode(a.config.DevServices.LaunchMode)
	if err != nil {
		return err
	}

	services, err := a.devservices.EnsureRunning(ctx, devservices.ConfigFrom(a.config), mode)
	var startErr *devservices.StartError
	switch {
	case errors.As(err, &startErr):
		slog.Warn("dev services failed to start, continuing without them",
			"failed", startErr.FailedServices(),
			"error", err,
		)
		return nil
	case err != nil:
		return err
	case services == nil:
		return nil
	}

	applied := a.config.ApplyOverrides(services.ConfigOverrides())
	slog.Info("dev services running",
		"milvus", services.Milvus.Endpoint(),
		"shared", !services.Milvus.Owner,
		"overrides", applied,
	)
	return nil
}

// OnShutdown registers a hook run by Shutdown. Hooks run in reverse registration order.
func (a *App) OnShutdown(hook func(ctx context.Context) error) {
	a.hooksMu.Lock()
	defer a.hooksMu.Unlock()
	a.hooks = append(a.hooks, hook)
}

// runHooks drains the hook list so a hook registered while running is kept for the next call.
func (a *App) runHooks(ctx context.Context) error {
	a.hooksMu.Lock()
	hooks := a.hooks
	a.hooks = nil
	a.hooksMu.Unlock()

	var errs []error
	for i := len(hooks) - 1; i >= 0; i-- {
		if err := hooks[i](ctx); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Graph returns the built model beans.
func (a *App) Graph() *beans.Graph {
	return a.graph
}

// Config returns the application configuration, including dev services overrides.
func (a *App) Config() *config.Config {
	return a.config
}

// Selections returns the resolver outcome of the build.
func (a *App) Selections() []core.Selection {
	if a.graph == nil {
		return nil
	}
	return a.graph.Selections()
}

// RegisteredProviders returns the provider types of the catalog.
func (a *App) RegisteredProviders() []string {
	return a.catalog.ListRegistered()
}

// DevServices returns the running dev services, or nil.
func (a *App) DevServices() *devservices.Services {
	if a.devservices == nil {
		return nil
	}
	return a.devservices.Running()
}

// Handler returns the dev console as an http.Handler.
func (a *App) Handler() http.Handler {
	return a.server
}

// Start starts the dev console on the given address.
// This is a blocking call that returns when the server stops.
func (a *App) Start(addr string) error {
	if a.server == nil {
		return fmt.Errorf("server is not initialized")
	}
	slog.Info("starting dev console", "address", addr)
	if err := a.server.Start(addr); err != nil {
		if errors.Is(err, http.ErrServerClosed) {
			slog.Info("dev console stopped gracefully")
			return nil
		}
		return fmt.Errorf("server failed to start: %w", err)
	}
	return nil
}

// Shutdown tears down app components in dependency order:
// 1. HTTP server shutdown, honoring the context deadline.
// 2. Shutdown hooks, which stop dev services containers.
// 3. Report cache close.
//
// Shutdown is idempotent; after the first call, subsequent calls are no-ops.
// It attempts every step and returns the joined failures.
func (a *App) Shutdown(ctx context.Context) error {
	a.shutdownMu.Lock()
	if a.shutdown {
		a.shutdownMu.Unlock()
		return nil
	}
	a.shutdown = true
	a.shutdownMu.Unlock()

	slog.Info("shutting down application...")

	var errs []error

	if a.server != nil {
		if err := a.server.Shutdown(ctx); err != nil {
			slog.Error("server shutdown error", "error", err)
			errs = append(errs, fmt.Errorf("server shutdown: %w", err))
		}
	}

	if err := a.runHooks(ctx); err != nil {
		slog.Error("shutdown hook error", "error", err)
		errs = append(errs, fmt.Errorf("shutdown hooks: %w", err))
	}

	if err := a.closeCache(); err != nil {
		slog.Error("cache close error", "error", err)
		errs = append(errs, fmt.Errorf("cache close: %w", err))
	}

	if len(errs) > 0 {
		return fmt.Errorf("shutdown errors: %w", errors.Join(errs...))
	}

	slog.Info("application shutdown complete")
	return nil
}

func (a *App) closeCache() error {
	if a.cache == nil {
		return nil
	}
	err := a.cache.Close()
	a.cache = nil
	return err
}

// logStartupInfo logs the application configuration on startup.
func (a *App) logStartupInfo() {
	cfg := a.config

	slog.Info("providers registered", "types", a.catalog.ListRegistered())
	for _, sel := range a.Selections() {
		if sel.Selected {
			slog.Info("model bean", "capability", sel.Capability, "model_name", sel.ModelName, "provider", sel.Provider)
		} else {
			slog.Info("model bean supplied by application", "capability", sel.Capability, "model_name", sel.ModelName)
		}
	}

	if cfg.Server.MasterKey == "" {
		slog.Warn("MODELWIRE_SERVER_MASTER_KEY not set - dev console endpoints are unauthenticated")
	}
	if cfg.Server.Metrics.Enabled {
		slog.Info("prometheus metrics enabled", "endpoint", cfg.Server.Metrics.Endpoint)
	} else {
		slog.Info("prometheus metrics disabled")
	}
}
