package devservices

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"modelwire/config"
)

func TestSpecs_StartOrderAndWiring(t *testing.T) {
	cfg := testConfig()
	cfg.FixedPort = 19530
	cfg.StartupTimeout = time.Minute

	specs := Specs(cfg, "net-1", LaunchModeDev)
	require.Len(t, specs, 3)

	assert.Equal(t, ServiceEtcd, specs[0].Service)
	assert.Equal(t, ServiceMinio, specs[1].Service)
	assert.Equal(t, ServiceMilvus, specs[2].Service)

	milvus := specs[2]
	assert.Equal(t, "milvus:test", milvus.Image)
	assert.Equal(t, MilvusPort, milvus.Port)
	assert.Equal(t, 19530, milvus.HostPort)
	assert.Equal(t, []int{MilvusHealthPort}, milvus.ExtraPorts)
	assert.Equal(t, "etcd:2379", milvus.Env["ETCD_ENDPOINTS"])
	assert.Equal(t, "minio:9000", milvus.Env["MINIO_ADDRESS"])

	for _, s := range specs {
		assert.Equal(t, "net-1", s.Network, s.Service)
		assert.Equal(t, s.Service, s.Alias)
		assert.Equal(t, time.Minute, s.StartupTimeout)
		if s.Service != ServiceMilvus {
			assert.Zero(t, s.HostPort, "only milvus pins a host port")
		}
	}
}

func TestSpecs_SharedLabelsOnlyInDevMode(t *testing.T) {
	cfg := testConfig()

	for _, s := range Specs(cfg, "n", LaunchModeDev) {
		assert.Equal(t, "modelwire-milvus", s.Labels[LabelPrefix+s.Service])
		assert.Equal(t, cfg.Fingerprint(), s.Labels[ConfigLabel])
	}
	for _, s := range Specs(cfg, "n", LaunchModeTest) {
		assert.NotContains(t, s.Labels, LabelPrefix+s.Service)
		assert.Contains(t, s.Labels, ConfigLabel)
	}
}

func TestEtcdHealthy(t *testing.T) {
	assert.True(t, etcdHealthy([]byte(`{"health":"true","reason":""}`)))
	assert.False(t, etcdHealthy([]byte(`{"health":"false","reason":"RAFT NO LEADER"}`)))
	assert.False(t, etcdHealthy([]byte(`not json`)))
}

func TestConfig_Fingerprint(t *testing.T) {
	a := testConfig()
	b := testConfig()
	assert.Equal(t, a.Fingerprint(), b.Fingerprint())

	b.EtcdImage = "etcd:other"
	assert.NotEqual(t, a.Fingerprint(), b.Fingerprint())

	// Field boundaries are delimited.
	c := testConfig()
	c.MilvusImage, c.EtcdImage = "milvus:tes", "tetcd:test"
	assert.NotEqual(t, a.Fingerprint(), c.Fingerprint())
}

func TestParseLaunchMode(t *testing.T) {
	tests := []struct {
		in      string
		want    LaunchMode
		wantErr bool
	}{
		{in: "", want: LaunchModeDev},
		{in: "dev", want: LaunchModeDev},
		{in: "test", want: LaunchModeTest},
		{in: "normal", want: LaunchModeNormal},
		{in: "prod", wantErr: true},
	}
	for _, tt := range tests {
		got, err := ParseLaunchMode(tt.in)
		if tt.wantErr {
			assert.Error(t, err, tt.in)
			continue
		}
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got)
	}
}

func TestConfigFrom(t *testing.T) {
	cfg := &config.Config{}
	cfg.DevServices.Enabled = true
	cfg.DevServices.Timeout = 90 * time.Second
	cfg.Milvus.DevServices.Enabled = true
	cfg.Milvus.DevServices.Port = 19530
	cfg.Milvus.DevServices.MilvusImageName = "milvus:custom"

	got := ConfigFrom(cfg)
	assert.True(t, got.Enabled)
	assert.Equal(t, 19530, got.FixedPort)
	assert.Equal(t, "milvus:custom", got.MilvusImage)
	assert.Equal(t, config.DefaultEtcdImage, got.EtcdImage)
	assert.Equal(t, config.DefaultMinioImage, got.MinioImage)
	assert.Equal(t, config.DefaultMilvusServiceName, got.ServiceName)
	assert.Equal(t, 90*time.Second, got.StartupTimeout)

	cfg.DevServices.Enabled = false
	assert.False(t, ConfigFrom(cfg).Enabled, "global switch disables every dev service")

	cfg.DevServices.Enabled = true
	cfg.Milvus.DevServices.Enabled = false
	assert.False(t, ConfigFrom(cfg).Enabled)
}
