package devservices

import (
	"context"
	"fmt"
	"io"
	"maps"
	"strconv"
	"time"

	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/api/types/filters"
	"github.com/docker/go-connections/nat"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/network"
	"github.com/testcontainers/testcontainers-go/wait"
)

const defaultStartupTimeout = 2 * time.Minute

// DockerRuntime runs dev services on the local Docker engine through testcontainers.
type DockerRuntime struct{}

// NewDockerRuntime creates a Docker backed runtime.
func NewDockerRuntime() *DockerRuntime {
	return &DockerRuntime{}
}

// Available pings the Docker daemon.
func (r *DockerRuntime) Available(ctx context.Context) error {
	cli, err := testcontainers.NewDockerClientWithOpts(ctx)
	if err != nil {
		return fmt.Errorf("docker client: %w", err)
	}
	defer cli.Close()

	if _, err := cli.Ping(ctx); err != nil {
		return fmt.Errorf("docker ping: %w", err)
	}
	return nil
}

// Locate finds a running container published under serviceName for service and returns a
// non-owning handle addressing its mapped port.
func (r *DockerRuntime) Locate(ctx context.Context, service, serviceName string) (*Handle, error) {
	cli, err := testcontainers.NewDockerClientWithOpts(ctx)
	if err != nil {
		return nil, fmt.Errorf("docker client: %w", err)
	}
	defer cli.Close()

	containers, err := cli.ContainerList(ctx, container.ListOptions{
		Filters: filters.NewArgs(
			filters.Arg("label", LabelPrefix+service+"="+serviceName),
			filters.Arg("status", "running"),
		),
	})
	if err != nil {
		return nil, fmt.Errorf("list containers: %w", err)
	}

	want := servicePort(service)
	for _, c := range containers {
		for _, p := range c.Ports {
			if int(p.PrivatePort) != want || p.PublicPort == 0 {
				continue
			}
			host, err := daemonHost(ctx)
			if err != nil {
				return nil, err
			}
			return NewHandle(service, c.ID, host, int(p.PublicPort), false, nil), nil
		}
	}
	return nil, nil
}

func daemonHost(ctx context.Context) (string, error) {
	provider, err := testcontainers.NewDockerProvider()
	if err != nil {
		return "", fmt.Errorf("docker provider: %w", err)
	}
	defer provider.Close()
	return provider.DaemonHost(ctx)
}

func servicePort(service string) int {
	switch service {
	case ServiceEtcd:
		return EtcdPort
	case ServiceMinio:
		return MinioPort
	default:
		return MilvusPort
	}
}

// NewNetwork creates a bridge network for the trio.
func (r *DockerRuntime) NewNetwork(ctx context.Context) (*Network, error) {
	net, err := network.New(ctx)
	if err != nil {
		return nil, fmt.Errorf("create network: %w", err)
	}
	return NewNetwork(net.Name, net.Remove), nil
}

// Start runs spec and waits for its health check.
func (r *DockerRuntime) Start(ctx context.Context, spec ContainerSpec) (*Handle, error) {
	port := nat.Port(fmt.Sprintf("%d/tcp", spec.Port))

	exposed := []string{string(port)}
	for _, p := range spec.ExtraPorts {
		exposed = append(exposed, fmt.Sprintf("%d/tcp", p))
	}

	req := testcontainers.ContainerRequest{
		Image:        spec.Image,
		ExposedPorts: exposed,
		Cmd:          spec.Cmd,
		Env:          maps.Clone(spec.Env),
		Labels:       maps.Clone(spec.Labels),
		WaitingFor:   healthStrategy(spec),
	}
	if spec.Network != "" {
		req.Networks = []string{spec.Network}
		req.NetworkAliases = map[string][]string{spec.Network: {spec.Alias}}
	}
	if spec.HostPort > 0 {
		req.HostConfigModifier = func(hc *container.HostConfig) {
			hc.PortBindings = nat.PortMap{
				port: []nat.PortBinding{{HostIP: "0.0.0.0", HostPort: strconv.Itoa(spec.HostPort)}},
			}
		}
	}

	c, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		if c != nil {
			_ = c.Terminate(context.WithoutCancel(ctx))
		}
		return nil, err
	}

	terminate := func(ctx context.Context) error {
		return c.Terminate(ctx)
	}

	if spec.AdvertiseAlias {
		return NewHandle(spec.Service, c.GetContainerID(), spec.Alias, spec.Port, true, terminate), nil
	}

	host, err := c.Host(ctx)
	if err != nil {
		_ = c.Terminate(context.WithoutCancel(ctx))
		return nil, fmt.Errorf("container host: %w", err)
	}
	mapped, err := c.MappedPort(ctx, port)
	if err != nil {
		_ = c.Terminate(context.WithoutCancel(ctx))
		return nil, fmt.Errorf("mapped port: %w", err)
	}
	return NewHandle(spec.Service, c.GetContainerID(), host, mapped.Int(), true, terminate), nil
}

func healthStrategy(spec ContainerSpec) wait.Strategy {
	timeout := spec.StartupTimeout
	if timeout <= 0 {
		timeout = defaultStartupTimeout
	}

	strategy := wait.ForHTTP(spec.Health.Path).
		WithPort(nat.Port(fmt.Sprintf("%d/tcp", spec.Health.Port))).
		WithStartupTimeout(timeout)
	if spec.Health.Match != nil {
		match := spec.Health.Match
		strategy = strategy.WithResponseMatcher(func(body io.Reader) bool {
			data, err := io.ReadAll(body)
			return err == nil && match(data)
		})
	}
	return strategy
}
