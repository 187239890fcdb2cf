package devservices

import (
	"context"
	"net"
	"strconv"
	"time"
)

// Runtime is the container engine the orchestrator drives.
type Runtime interface {
	// Available returns an error when the container engine cannot be reached.
	Available(ctx context.Context) error
	// Locate finds a running container labeled LabelPrefix+service=serviceName.
	// It returns nil, nil when there is none.
	Locate(ctx context.Context, service, serviceName string) (*Handle, error)
	// NewNetwork creates the network the trio talks over.
	NewNetwork(ctx context.Context) (*Network, error)
	// Start creates and starts a container, returning once its health check passes.
	Start(ctx context.Context, spec ContainerSpec) (*Handle, error)
}

// HealthCheck is an HTTP readiness probe against a container port.
type HealthCheck struct {
	Port int
	Path string
	// Match validates the response body. Nil accepts any 200 response.
	Match func(body []byte) bool
}

// ContainerSpec describes one container to start.
type ContainerSpec struct {
	Service string
	Image   string
	// Port is the container port clients connect to.
	Port int
	// HostPort pins the host port mapped to Port. Zero maps a random one.
	HostPort int
	// ExtraPorts are exposed in addition to Port, e.g. for health checks.
	ExtraPorts []int
	Cmd        []string
	Env        map[string]string
	Labels     map[string]string
	Network    string
	// Alias is the container's name on Network.
	Alias string
	// AdvertiseAlias makes the handle report Alias and Port instead of the mapped address.
	AdvertiseAlias bool
	Health         HealthCheck
	StartupTimeout time.Duration
}

// Handle is a running dev service container. Only owning handles stop their container.
type Handle struct {
	Service     string
	ContainerID string
	Host        string
	Port        int
	// Owner is true when this process started the container.
	Owner bool

	close func(ctx context.Context) error
}

// NewHandle creates a handle. closeFn is only called for owning handles.
func NewHandle(service, containerID, host string, port int, owner bool, closeFn func(ctx context.Context) error) *Handle {
	return &Handle{
		Service:     service,
		ContainerID: containerID,
		Host:        host,
		Port:        port,
		Owner:       owner,
		close:       closeFn,
	}
}

// Endpoint returns host:port.
func (h *Handle) Endpoint() string {
	return net.JoinHostPort(h.Host, strconv.Itoa(h.Port))
}

// Close stops the container if this process owns it. Closing a non-owning handle is a no-op.
func (h *Handle) Close(ctx context.Context) error {
	if h == nil || !h.Owner || h.close == nil {
		return nil
	}
	return h.close(ctx)
}

// Network is a container network owned by the orchestrator.
type Network struct {
	Name   string
	remove func(ctx context.Context) error
}

// NewNetwork wraps a network name and its removal.
func NewNetwork(name string, remove func(ctx context.Context) error) *Network {
	return &Network{Name: name, remove: remove}
}

// Remove deletes the network.
func (n *Network) Remove(ctx context.Context) error {
	if n == nil || n.remove == nil {
		return nil
	}
	return n.remove(ctx)
}
