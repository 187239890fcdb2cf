// Package devservices starts the etcd, MinIO and Milvus containers backing the vector store
// during development, or adopts a running shared trio started by another process.
package devservices

import (
	"fmt"
	"strconv"
	"time"

	"github.com/cespare/xxhash/v2"

	"modelwire/config"
)

// Service names. They double as network aliases inside the dev services network.
const (
	ServiceEtcd   = "etcd"
	ServiceMinio  = "minio"
	ServiceMilvus = "milvus"
)

// Container ports.
const (
	EtcdPort         = 2379
	MinioPort        = 9000
	MilvusPort       = 19530
	MilvusHealthPort = 9091
)

const (
	// LabelPrefix prefixes the label carrying the shared service name, e.g.
	// modelwire-dev-service-milvus=modelwire-milvus.
	LabelPrefix = "modelwire-dev-service-"
	// ConfigLabel carries the fingerprint of the configuration a container was started with.
	ConfigLabel = "modelwire-dev-config"
)

// LaunchMode tells whether the process runs in development, under tests, or in production.
type LaunchMode string

const (
	LaunchModeDev    LaunchMode = config.LaunchModeDev
	LaunchModeTest   LaunchMode = config.LaunchModeTest
	LaunchModeNormal LaunchMode = config.LaunchModeNormal
)

// ParseLaunchMode maps a configured launch mode, defaulting to dev.
func ParseLaunchMode(s string) (LaunchMode, error) {
	switch LaunchMode(s) {
	case "":
		return LaunchModeDev, nil
	case LaunchModeDev, LaunchModeTest, LaunchModeNormal:
		return LaunchMode(s), nil
	default:
		return "", fmt.Errorf("unknown launch mode %q", s)
	}
}

// Config is the dev services configuration snapshot. Two snapshots are compared with == to
// decide between reusing running containers and restarting them.
type Config struct {
	Enabled bool
	// FixedPort pins the host port of Milvus. Zero maps a random port.
	FixedPort   int
	MilvusImage string
	EtcdImage   string
	MinioImage  string
	ServiceName string
	Shared      bool
	// SharedNetwork advertises network aliases and container ports instead of mapped ports.
	SharedNetwork  bool
	StartupTimeout time.Duration
}

// ConfigFrom extracts the snapshot from the application configuration. Dev services are
// enabled only when both the global and the Milvus switch are on.
func ConfigFrom(cfg *config.Config) Config {
	d := cfg.Milvus.DevServices
	return Config{
		Enabled:        cfg.DevServices.Enabled && d.Enabled,
		FixedPort:      d.Port,
		MilvusImage:    orDefault(d.MilvusImageName, config.DefaultMilvusImage),
		EtcdImage:      orDefault(d.EtcdImageName, config.DefaultEtcdImage),
		MinioImage:     orDefault(d.MinioImageName, config.DefaultMinioImage),
		ServiceName:    orDefault(d.ServiceName, config.DefaultMilvusServiceName),
		Shared:         d.Shared,
		SharedNetwork:  cfg.DevServices.SharedNetwork,
		StartupTimeout: cfg.DevServices.Timeout,
	}
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}

// Fingerprint is a short stable digest of the snapshot.
func (c Config) Fingerprint() string {
	h := xxhash.New()
	for _, part := range []string{
		strconv.FormatBool(c.Enabled),
		strconv.Itoa(c.FixedPort),
		c.MilvusImage,
		c.EtcdImage,
		c.MinioImage,
		c.ServiceName,
		strconv.FormatBool(c.Shared),
		strconv.FormatBool(c.SharedNetwork),
		c.StartupTimeout.String(),
	} {
		_, _ = h.WriteString(part)
		_, _ = h.Write([]byte{0})
	}
	return strconv.FormatUint(h.Sum64(), 16)
}
