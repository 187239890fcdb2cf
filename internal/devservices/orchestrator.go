package devservices

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"modelwire/internal/observability"
)

// ShutdownRegistrar runs hooks when the process shuts down.
type ShutdownRegistrar interface {
	OnShutdown(hook func(ctx context.Context) error)
}

// serviceOrder is the start order; Milvus needs etcd and MinIO to be addressable.
var serviceOrder = []string{ServiceEtcd, ServiceMinio, ServiceMilvus}

// Services is a running dev services trio.
type Services struct {
	Etcd   *Handle
	Minio  *Handle
	Milvus *Handle
}

// Handles returns the handles in start order.
func (s *Services) Handles() []*Handle {
	return []*Handle{s.Etcd, s.Minio, s.Milvus}
}

// ConfigOverrides returns the configuration pointing the application at the running services.
func (s *Services) ConfigOverrides() map[string]string {
	return map[string]string{
		"modelwire.milvus.host":                s.Milvus.Host,
		"modelwire.milvus.port":                strconv.Itoa(s.Milvus.Port),
		"modelwire.milvus.url":                 "http://" + s.Milvus.Endpoint(),
		"modelwire.devservices.etcd.endpoint":  s.Etcd.Endpoint(),
		"modelwire.devservices.minio.endpoint": s.Minio.Endpoint(),
	}
}

// Orchestrator owns the dev services containers of the process. All methods are safe for
// concurrent use; at most one start attempt runs at a time.
type Orchestrator struct {
	runtime   Runtime
	lifecycle ShutdownRegistrar

	mu        sync.Mutex
	running   *Services
	network   *Network
	cfg       Config
	mode      LaunchMode
	hookArmed bool
}

// NewOrchestrator creates an orchestrator. lifecycle may be nil, in which case the caller is
// responsible for calling Shutdown.
func NewOrchestrator(runtime Runtime, lifecycle ShutdownRegistrar) *Orchestrator {
	return &Orchestrator{runtime: runtime, lifecycle: lifecycle}
}

// Running returns the running services, or nil.
func (o *Orchestrator) Running() *Services {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.running
}

// EnsureRunning makes sure services matching cfg run and returns them.
//
// Running services started with an equal cfg and mode are returned as is. Services started
// with a different cfg or mode are stopped first. Nil services and a nil error mean dev services are not
// wanted or Docker is unavailable. A *StartError means at least one container failed; any
// container that did start has been stopped again.
func (o *Orchestrator) EnsureRunning(ctx context.Context, cfg Config, mode LaunchMode) (*Services, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.running != nil {
		if cfg == o.cfg && mode == o.mode {
			return o.running, nil
		}
		slog.Info("dev services configuration changed, restarting", "launch_mode", mode)
		o.stopLocked(ctx)
	}

	if mode == LaunchModeNormal {
		return nil, nil
	}
	if !cfg.Enabled {
		slog.Debug("not starting dev services for milvus, as it has been disabled in the config")
		return nil, nil
	}
	if err := o.runtime.Available(ctx); err != nil {
		slog.Warn("docker isn't working, please configure the milvus server location", "error", err)
		return nil, nil
	}

	services, network, err := o.start(ctx, cfg, mode)
	if err != nil {
		return nil, err
	}

	o.running = services
	o.network = network
	o.cfg = cfg
	o.mode = mode
	observability.DevServicesRunning.Set(1)
	o.armHookLocked()
	return services, nil
}

// start locates a shared trio or starts a new one.
func (o *Orchestrator) start(ctx context.Context, cfg Config, mode LaunchMode) (*Services, *Network, error) {
	if cfg.Shared && mode == LaunchModeDev {
		if services := o.locate(ctx, cfg); services != nil {
			slog.Info("using shared dev services", "service_name", cfg.ServiceName, "milvus", services.Milvus.Endpoint())
			return services, nil, nil
		}
	}

	network, err := o.runtime.NewNetwork(ctx)
	if err != nil {
		return nil, nil, &StartError{Failures: []*ServiceError{{Service: "network", Err: err}}}
	}

	var (
		started  = make(map[string]*Handle, 3)
		failures []*ServiceError
	)
	for _, spec := range Specs(cfg, network.Name, mode) {
		h, err := o.startOne(ctx, spec)
		if err != nil {
			failures = append(failures, &ServiceError{Service: spec.Service, Err: err})
			continue
		}
		started[spec.Service] = h
	}

	if len(failures) > 0 {
		for _, service := range serviceOrder {
			closeHandle(ctx, started[service])
		}
		if err := network.Remove(ctx); err != nil {
			slog.Warn("failed to remove dev services network", "network", network.Name, "error", err)
		}
		return nil, nil, &StartError{Failures: failures}
	}

	return &Services{
		Etcd:   started[ServiceEtcd],
		Minio:  started[ServiceMinio],
		Milvus: started[ServiceMilvus],
	}, network, nil
}

func (o *Orchestrator) startOne(ctx context.Context, spec ContainerSpec) (*Handle, error) {
	if spec.StartupTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, spec.StartupTimeout)
		defer cancel()
	}

	begin := time.Now()
	h, err := o.runtime.Start(ctx, spec)
	if err == nil && h == nil {
		err = errors.New("runtime returned no container")
	}
	if err != nil {
		observability.RecordDevServiceStart(spec.Service, observability.OutcomeFailed, time.Since(begin))
		slog.Error("failed to start dev service", "service", spec.Service, "image", spec.Image, "error", err)
		return nil, fmt.Errorf("start %s: %w", spec.Image, err)
	}

	observability.RecordDevServiceStart(spec.Service, observability.OutcomeStarted, time.Since(begin))
	slog.Info("dev service started",
		"service", spec.Service,
		"container_id", shortID(h.ContainerID),
		"endpoint", h.Endpoint(),
		"took", time.Since(begin).Round(time.Millisecond),
	)
	return h, nil
}

// locate adopts an already running shared trio. Milvus reaches etcd and MinIO through
// network aliases, so a partial trio is never adopted.
func (o *Orchestrator) locate(ctx context.Context, cfg Config) *Services {
	found := make(map[string]*Handle, 3)
	for _, service := range serviceOrder {
		h, err := o.runtime.Locate(ctx, service, cfg.ServiceName)
		if err != nil {
			slog.Warn("failed to look up shared dev service", "service", service, "error", err)
			return nil
		}
		if h == nil {
			if len(found) > 0 {
				slog.Debug("shared dev services incomplete, starting new ones", "missing", service)
			}
			return nil
		}
		h.Owner = false
		found[service] = h
		observability.RecordDevServiceStart(service, observability.OutcomeLocated, 0)
	}
	return &Services{Etcd: found[ServiceEtcd], Minio: found[ServiceMinio], Milvus: found[ServiceMilvus]}
}

// armHookLocked registers the shutdown hook once until it has run.
func (o *Orchestrator) armHookLocked() {
	if o.hookArmed || o.lifecycle == nil {
		return
	}
	o.hookArmed = true
	o.lifecycle.OnShutdown(func(ctx context.Context) error {
		o.mu.Lock()
		defer o.mu.Unlock()
		o.stopLocked(ctx)
		o.hookArmed = false
		return nil
	})
}

// Shutdown stops owned containers and forgets the running services.
func (o *Orchestrator) Shutdown(ctx context.Context) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.stopLocked(ctx)
}

// stopLocked closes every handle even when some fail; failures are only logged.
func (o *Orchestrator) stopLocked(ctx context.Context) {
	if o.running != nil {
		for _, h := range o.running.Handles() {
			closeHandle(ctx, h)
		}
	}
	if err := o.network.Remove(ctx); err != nil {
		slog.Warn("failed to remove dev services network", "network", o.network.Name, "error", err)
	}
	o.running = nil
	o.network = nil
	o.cfg = Config{}
	o.mode = ""
	observability.DevServicesRunning.Set(0)
}

func closeHandle(ctx context.Context, h *Handle) {
	if h == nil {
		return
	}
	if err := h.Close(ctx); err != nil {
		slog.Error("failed to stop dev service", "service", h.Service, "container_id", shortID(h.ContainerID), "error", err)
	}
}

func shortID(id string) string {
	if len(id) > 12 {
		return id[:12]
	}
	return id
}
