package devservices

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeRuntime records every call in order so tests can assert on sequencing.
type fakeRuntime struct {
	mu          sync.Mutex
	events      []string
	unavailable bool
	failStart   map[string]error
	failClose   map[string]error
	located     map[string]*Handle
	nextPort    int
	specs       []ContainerSpec
}

func newFakeRuntime() *fakeRuntime {
	return &fakeRuntime{
		failStart: map[string]error{},
		failClose: map[string]error{},
		located:   map[string]*Handle{},
		nextPort:  32000,
	}
}

func (f *fakeRuntime) record(event string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, event)
}

func (f *fakeRuntime) Events() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.events...)
}

func (f *fakeRuntime) Available(context.Context) error {
	if f.unavailable {
		return errors.New("cannot connect to the docker daemon")
	}
	return nil
}

func (f *fakeRuntime) Locate(_ context.Context, service, serviceName string) (*Handle, error) {
	f.record("locate:" + service)
	return f.located[service+"="+serviceName], nil
}

func (f *fakeRuntime) NewNetwork(context.Context) (*Network, error) {
	f.record("network:create")
	return NewNetwork("net-1", func(context.Context) error {
		f.record("network:remove")
		return nil
	}), nil
}

func (f *fakeRuntime) Start(ctx context.Context, spec ContainerSpec) (*Handle, error) {
	f.record("start:" + spec.Service)
	f.mu.Lock()
	f.specs = append(f.specs, spec)
	f.mu.Unlock()
	if err := f.failStart[spec.Service]; err != nil {
		return nil, err
	}
	if _, ok := ctx.Deadline(); spec.StartupTimeout > 0 && !ok {
		return nil, errors.New("startup timeout not applied")
	}

	f.mu.Lock()
	f.nextPort++
	port := f.nextPort
	f.mu.Unlock()

	service := spec.Service
	return NewHandle(service, "id-"+service, "localhost", port, true, func(context.Context) error {
		f.record("close:" + service)
		return f.failClose[service]
	}), nil
}

type fakeLifecycle struct {
	hooks []func(ctx context.Context) error
}

func (l *fakeLifecycle) OnShutdown(hook func(ctx context.Context) error) {
	l.hooks = append(l.hooks, hook)
}

func (l *fakeLifecycle) Run(ctx context.Context) {
	hooks := l.hooks
	l.hooks = nil
	for _, h := range hooks {
		_ = h(ctx)
	}
}

func testConfig() Config {
	return Config{
		Enabled:     true,
		MilvusImage: "milvus:test",
		EtcdImage:   "etcd:test",
		MinioImage:  "minio:test",
		ServiceName: "modelwire-milvus",
		Shared:      true,
	}
}

func TestEnsureRunning_StartsTrioInOrder(t *testing.T) {
	rt := newFakeRuntime()
	o := NewOrchestrator(rt, nil)

	services, err := o.EnsureRunning(context.Background(), testConfig(), LaunchModeDev)
	require.NoError(t, err)
	require.NotNil(t, services)

	assert.Equal(t, []string{
		"locate:etcd",
		"network:create",
		"start:etcd",
		"start:minio",
		"start:milvus",
	}, rt.Events())
	for _, h := range services.Handles() {
		assert.True(t, h.Owner)
	}
	assert.Same(t, services, o.Running())
}

func TestEnsureRunning_Idempotent(t *testing.T) {
	rt := newFakeRuntime()
	o := NewOrchestrator(rt, nil)
	ctx := context.Background()

	first, err := o.EnsureRunning(ctx, testConfig(), LaunchModeDev)
	require.NoError(t, err)
	second, err := o.EnsureRunning(ctx, testConfig(), LaunchModeDev)
	require.NoError(t, err)

	assert.Equal(t, first.Milvus.Endpoint(), second.Milvus.Endpoint())
	assert.Same(t, first, second)

	starts := 0
	for _, e := range rt.Events() {
		if e == "start:milvus" {
			starts++
		}
	}
	assert.Equal(t, 1, starts)
}

func TestEnsureRunning_ConfigChangeClosesBeforeStart(t *testing.T) {
	rt := newFakeRuntime()
	o := NewOrchestrator(rt, nil)
	ctx := context.Background()

	cfgA := testConfig()
	cfgB := testConfig()
	cfgB.MilvusImage = "milvus:other"

	_, err := o.EnsureRunning(ctx, cfgA, LaunchModeTest)
	require.NoError(t, err)
	_, err = o.EnsureRunning(ctx, cfgB, LaunchModeTest)
	require.NoError(t, err)

	assert.Equal(t, []string{
		"network:create", "start:etcd", "start:minio", "start:milvus",
		"close:etcd", "close:minio", "close:milvus", "network:remove",
		"network:create", "start:etcd", "start:minio", "start:milvus",
	}, rt.Events())
	assert.Equal(t, "milvus:other", rt.specs[len(rt.specs)-1].Image)
}

func TestEnsureRunning_LaunchModeChangeRestarts(t *testing.T) {
	rt := newFakeRuntime()
	o := NewOrchestrator(rt, nil)
	ctx := context.Background()

	first, err := o.EnsureRunning(ctx, testConfig(), LaunchModeTest)
	require.NoError(t, err)
	second, err := o.EnsureRunning(ctx, testConfig(), LaunchModeDev)
	require.NoError(t, err)
	assert.NotSame(t, first, second)

	assert.Equal(t, []string{
		"network:create", "start:etcd", "start:minio", "start:milvus",
		"close:etcd", "close:minio", "close:milvus", "network:remove",
		"locate:etcd",
		"network:create", "start:etcd", "start:minio", "start:milvus",
	}, rt.Events())

	last := rt.specs[len(rt.specs)-1]
	assert.Equal(t, "modelwire-milvus", last.Labels[LabelPrefix+ServiceMilvus], "dev mode containers are shareable")
}

func TestEnsureRunning_CloseFailuresDoNotStopSequence(t *testing.T) {
	rt := newFakeRuntime()
	rt.failClose[ServiceEtcd] = errors.New("container is stuck")
	o := NewOrchestrator(rt, nil)
	ctx := context.Background()

	_, err := o.EnsureRunning(ctx, testConfig(), LaunchModeTest)
	require.NoError(t, err)

	cfgB := testConfig()
	cfgB.FixedPort = 19530
	services, err := o.EnsureRunning(ctx, cfgB, LaunchModeTest)
	require.NoError(t, err)
	require.NotNil(t, services)

	events := rt.Events()
	assert.Contains(t, events, "close:minio")
	assert.Contains(t, events, "close:milvus")
}

func TestEnsureRunning_PartialFailure(t *testing.T) {
	rt := newFakeRuntime()
	rt.failStart[ServiceMinio] = errors.New("image not found")
	lifecycle := &fakeLifecycle{}
	o := NewOrchestrator(rt, lifecycle)

	services, err := o.EnsureRunning(context.Background(), testConfig(), LaunchModeTest)
	require.Error(t, err)
	assert.Nil(t, services)
	assert.Nil(t, o.Running())

	var startErr *StartError
	require.ErrorAs(t, err, &startErr)
	assert.Equal(t, []string{ServiceMinio}, startErr.FailedServices())
	assert.Contains(t, err.Error(), "image not found")

	assert.Equal(t, []string{
		"network:create",
		"start:etcd",
		"start:minio",
		"start:milvus",
		"close:etcd",
		"close:milvus",
		"network:remove",
	}, rt.Events(), "every container is attempted and the started ones are stopped")
	assert.Empty(t, lifecycle.hooks)
}

func TestEnsureRunning_AggregatesAllFailures(t *testing.T) {
	rt := newFakeRuntime()
	etcdErr := errors.New("etcd failed")
	milvusErr := errors.New("milvus failed")
	rt.failStart[ServiceEtcd] = etcdErr
	rt.failStart[ServiceMilvus] = milvusErr

	_, err := NewOrchestrator(rt, nil).EnsureRunning(context.Background(), testConfig(), LaunchModeTest)

	var startErr *StartError
	require.ErrorAs(t, err, &startErr)
	assert.Equal(t, []string{ServiceEtcd, ServiceMilvus}, startErr.FailedServices())
	assert.ErrorIs(t, err, etcdErr)
	assert.ErrorIs(t, err, milvusErr)
}

func TestEnsureRunning_NothingStarted(t *testing.T) {
	disabled := testConfig()
	disabled.Enabled = false

	tests := []struct {
		name        string
		cfg         Config
		mode        LaunchMode
		unavailable bool
	}{
		{name: "disabled", cfg: disabled, mode: LaunchModeDev},
		{name: "normal launch mode", cfg: testConfig(), mode: LaunchModeNormal},
		{name: "docker unavailable", cfg: testConfig(), mode: LaunchModeDev, unavailable: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rt := newFakeRuntime()
			rt.unavailable = tt.unavailable

			services, err := NewOrchestrator(rt, nil).EnsureRunning(context.Background(), tt.cfg, tt.mode)
			require.NoError(t, err)
			assert.Nil(t, services)
			assert.Empty(t, rt.Events())
		})
	}
}

func TestEnsureRunning_AdoptsSharedTrioInDevMode(t *testing.T) {
	rt := newFakeRuntime()
	for _, s := range serviceOrder {
		rt.located[s+"=modelwire-milvus"] = NewHandle(s, "shared-"+s, "localhost", 40000, true, func(context.Context) error {
			t.Errorf("shared %s must not be closed", s)
			return nil
		})
	}
	lifecycle := &fakeLifecycle{}
	o := NewOrchestrator(rt, lifecycle)

	services, err := o.EnsureRunning(context.Background(), testConfig(), LaunchModeDev)
	require.NoError(t, err)
	require.NotNil(t, services)
	for _, h := range services.Handles() {
		assert.False(t, h.Owner, h.Service)
	}
	assert.Equal(t, []string{"locate:etcd", "locate:minio", "locate:milvus"}, rt.Events())

	lifecycle.Run(context.Background())
	assert.Nil(t, o.Running())
}

func TestEnsureRunning_SharedLookupRules(t *testing.T) {
	t.Run("not in test mode", func(t *testing.T) {
		rt := newFakeRuntime()
		rt.located["etcd=modelwire-milvus"] = NewHandle(ServiceEtcd, "x", "localhost", 1, false, nil)

		_, err := NewOrchestrator(rt, nil).EnsureRunning(context.Background(), testConfig(), LaunchModeTest)
		require.NoError(t, err)
		assert.NotContains(t, rt.Events(), "locate:etcd")
	})

	t.Run("not when sharing is off", func(t *testing.T) {
		rt := newFakeRuntime()
		cfg := testConfig()
		cfg.Shared = false

		_, err := NewOrchestrator(rt, nil).EnsureRunning(context.Background(), cfg, LaunchModeDev)
		require.NoError(t, err)
		assert.NotContains(t, rt.Events(), "locate:etcd")
	})

	t.Run("partial trio is not adopted", func(t *testing.T) {
		rt := newFakeRuntime()
		rt.located["etcd=modelwire-milvus"] = NewHandle(ServiceEtcd, "x", "localhost", 1, false, nil)

		services, err := NewOrchestrator(rt, nil).EnsureRunning(context.Background(), testConfig(), LaunchModeDev)
		require.NoError(t, err)
		assert.True(t, services.Etcd.Owner)
		assert.Equal(t, []string{"locate:etcd", "locate:minio", "network:create"}, rt.Events()[:3])
	})
}

func TestShutdownHook_RegisteredOnceAndRearmed(t *testing.T) {
	rt := newFakeRuntime()
	lifecycle := &fakeLifecycle{}
	o := NewOrchestrator(rt, lifecycle)
	ctx := context.Background()

	_, err := o.EnsureRunning(ctx, testConfig(), LaunchModeTest)
	require.NoError(t, err)
	changed := testConfig()
	changed.StartupTimeout = 1e9
	_, err = o.EnsureRunning(ctx, changed, LaunchModeTest)
	require.NoError(t, err)
	require.Len(t, lifecycle.hooks, 1, "restarts do not register another hook")

	lifecycle.Run(ctx)
	assert.Nil(t, o.Running())
	events := rt.Events()
	assert.Equal(t, []string{"close:etcd", "close:minio", "close:milvus", "network:remove"}, events[len(events)-4:])

	_, err = o.EnsureRunning(ctx, testConfig(), LaunchModeTest)
	require.NoError(t, err)
	assert.Len(t, lifecycle.hooks, 1, "a new session registers again")
}

func TestEnsureRunning_StartupTimeoutPerContainer(t *testing.T) {
	rt := newFakeRuntime()
	cfg := testConfig()
	cfg.StartupTimeout = 30e9

	_, err := NewOrchestrator(rt, nil).EnsureRunning(context.Background(), cfg, LaunchModeTest)
	require.NoError(t, err, "fake runtime rejects starts without a deadline")
	for _, spec := range rt.specs {
		assert.Equal(t, cfg.StartupTimeout, spec.StartupTimeout)
	}
}

func TestEnsureRunning_ConcurrentCallsStartOnce(t *testing.T) {
	rt := newFakeRuntime()
	o := NewOrchestrator(rt, nil)

	var wg sync.WaitGroup
	endpoints := make([]string, 8)
	for i := range endpoints {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			s, err := o.EnsureRunning(context.Background(), testConfig(), LaunchModeTest)
			if err == nil && s != nil {
				endpoints[i] = s.Milvus.Endpoint()
			}
		}(i)
	}
	wg.Wait()

	for i := 1; i < len(endpoints); i++ {
		assert.Equal(t, endpoints[0], endpoints[i])
	}
	assert.Len(t, rt.specs, 3)
}

func TestServices_ConfigOverrides(t *testing.T) {
	s := &Services{
		Etcd:   NewHandle(ServiceEtcd, "e", "localhost", 32001, true, nil),
		Minio:  NewHandle(ServiceMinio, "m", "localhost", 32002, true, nil),
		Milvus: NewHandle(ServiceMilvus, "v", "localhost", 32003, true, nil),
	}

	assert.Equal(t, map[string]string{
		"modelwire.milvus.host":                "localhost",
		"modelwire.milvus.port":                "32003",
		"modelwire.milvus.url":                 "http://localhost:32003",
		"modelwire.devservices.etcd.endpoint":  "localhost:32001",
		"modelwire.devservices.minio.endpoint": "localhost:32002",
	}, s.ConfigOverrides())
}

func TestHandle_CloseNonOwningIsNoOp(t *testing.T) {
	closed := false
	h := NewHandle(ServiceMilvus, "id", "localhost", 1, false, func(context.Context) error {
		closed = true
		return fmt.Errorf("should not be called")
	})
	require.NoError(t, h.Close(context.Background()))
	assert.False(t, closed)

	var nilHandle *Handle
	assert.NoError(t, nilHandle.Close(context.Background()))
}
