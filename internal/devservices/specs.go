package devservices

import (
	"fmt"
	"strconv"

	"github.com/tidwall/gjson"
)

// Credentials Milvus uses against its MinIO. They never leave the dev services network
// unless the MinIO port is published.
const (
	minioAccessKey = "minioadmin"
	minioSecretKey = "minioadmin"
)

// etcdHealthy checks the body of etcd's /health endpoint, {"health":"true"}.
func etcdHealthy(body []byte) bool {
	return gjson.GetBytes(body, "health").String() == "true"
}

// Specs returns the etcd, MinIO and Milvus containers in start order. Shared labels are only
// set in dev mode so test runs never publish containers for reuse.
func Specs(cfg Config, network string, mode LaunchMode) []ContainerSpec {
	labels := func(service string) map[string]string {
		l := map[string]string{ConfigLabel: cfg.Fingerprint()}
		if mode == LaunchModeDev && cfg.ServiceName != "" {
			l[LabelPrefix+service] = cfg.ServiceName
		}
		return l
	}

	etcd := ContainerSpec{
		Service: ServiceEtcd,
		Image:   cfg.EtcdImage,
		Port:    EtcdPort,
		Cmd: []string{
			"etcd",
			"-advertise-client-urls=http://127.0.0.1:" + strconv.Itoa(EtcdPort),
			"-listen-client-urls=http://0.0.0.0:" + strconv.Itoa(EtcdPort),
			"--data-dir=/etcd",
		},
		Env: map[string]string{
			"ETCD_AUTO_COMPACTION_MODE":      "revision",
			"ETCD_AUTO_COMPACTION_RETENTION": "1000",
			"ETCD_QUOTA_BACKEND_BYTES":       "4294967296",
			"ETCD_SNAPSHOT_COUNT":            "50000",
		},
		Labels: labels(ServiceEtcd),
		Health: HealthCheck{Port: EtcdPort, Path: "/health", Match: etcdHealthy},
	}

	minio := ContainerSpec{
		Service: ServiceMinio,
		Image:   cfg.MinioImage,
		Port:    MinioPort,
		Cmd:     []string{"minio", "server", "/minio_data"},
		Env: map[string]string{
			"MINIO_ACCESS_KEY": minioAccessKey,
			"MINIO_SECRET_KEY": minioSecretKey,
		},
		Labels: labels(ServiceMinio),
		Health: HealthCheck{Port: MinioPort, Path: "/minio/health/live"},
	}

	milvus := ContainerSpec{
		Service:    ServiceMilvus,
		Image:      cfg.MilvusImage,
		Port:       MilvusPort,
		HostPort:   cfg.FixedPort,
		ExtraPorts: []int{MilvusHealthPort},
		Cmd:        []string{"milvus", "run", "standalone"},
		Env: map[string]string{
			"ETCD_ENDPOINTS": fmt.Sprintf("%s:%d", ServiceEtcd, EtcdPort),
			"MINIO_ADDRESS":  fmt.Sprintf("%s:%d", ServiceMinio, MinioPort),
		},
		Labels: labels(ServiceMilvus),
		Health: HealthCheck{Port: MilvusHealthPort, Path: "/healthz"},
	}

	specs := []ContainerSpec{etcd, minio, milvus}
	for i := range specs {
		specs[i].Network = network
		specs[i].Alias = specs[i].Service
		specs[i].AdvertiseAlias = cfg.SharedNetwork
		specs[i].StartupTimeout = cfg.StartupTimeout
	}
	return specs
}
