package lifecycle

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/onkernel/glidex/lib/catalog"
	"github.com/onkernel/glidex/lib/errs"
	"github.com/onkernel/glidex/lib/vm"
	"github.com/onkernel/glidex/lib/vmm"
)

type fakeHandle struct {
	killed  bool
	killErr error
}

func (f *fakeHandle) Kill() error {
	f.killed = true
	return f.killErr
}

type fakeSpawner struct {
	handle ProcessHandle
	err    error
	calls  int
}

func (f *fakeSpawner) Spawn(ctx context.Context, binaryPath, control, console, log string) (ProcessHandle, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.handle, nil
}

type fakeClient struct {
	configureErr, bootErr, driveErr, startErr, pauseErr, resumeErr error
	pauseCalls, resumeCalls                                        int
}

func (f *fakeClient) ConfigureMachine(ctx context.Context, cfg vmm.MachineConfig) error {
	return f.configureErr
}
func (f *fakeClient) SetBootSource(ctx context.Context, cfg vmm.BootSource) error { return f.bootErr }
func (f *fakeClient) AddRootDrive(ctx context.Context, path string) error         { return f.driveErr }
func (f *fakeClient) StartInstance(ctx context.Context) error                     { return f.startErr }
func (f *fakeClient) PauseInstance(ctx context.Context) error {
	f.pauseCalls++
	return f.pauseErr
}
func (f *fakeClient) ResumeInstance(ctx context.Context) error {
	f.resumeCalls++
	return f.resumeErr
}

func newTestManager(t *testing.T) *Manager {
	t.Helper()
	dir := t.TempDir()
	store, err := catalog.Open(filepath.Join(dir, "glidex.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	m := NewManager(store, "/bin/false", nil, nil)
	return m
}

func testConfig() vm.Config {
	return vm.Config{
		VCPUCount:       2,
		MemSizeMiB:      512,
		KernelImagePath: "/k",
		RootfsPath:      "/r",
	}
}

func TestCreateAndGet(t *testing.T) {
	m := newTestManager(t)
	ctx := context.Background()

	rec, err := m.Create(ctx, "test-vm", testConfig())
	require.NoError(t, err)
	assert.NotEmpty(t, rec.ID)
	assert.Equal(t, vm.StateCreated, rec.State)
	assert.Equal(t, vm.DefaultKernelArgs, rec.Config.KernelArgs)

	got, err := m.Get(rec.ID)
	require.NoError(t, err)
	assert.Equal(t, rec.ID, got.ID)
	assert.Equal(t, "test-vm", got.Name)
}

func TestCreateDuplicateNameConflicts(t *testing.T) {
	m := newTestManager(t)
	ctx := context.Background()

	_, err := m.Create(ctx, "dup", testConfig())
	require.NoError(t, err)

	_, err = m.Create(ctx, "dup", testConfig())
	require.Error(t, err)
	assert.True(t, errors.Is(err, errs.ErrAlreadyExists))
}

func TestListReturnsAllCreated(t *testing.T) {
	m := newTestManager(t)
	ctx := context.Background()

	_, err := m.Create(ctx, "a", testConfig())
	require.NoError(t, err)
	_, err = m.Create(ctx, "b", testConfig())
	require.NoError(t, err)

	list := m.List()
	assert.Len(t, list, 2)
}

func TestGetNotFound(t *testing.T) {
	m := newTestManager(t)
	_, err := m.Get("missing")
	require.Error(t, err)
	assert.True(t, errors.Is(err, errs.ErrNotFound))
}

func TestStopOnCreatedIsInvalidState(t *testing.T) {
	m := newTestManager(t)
	ctx := context.Background()

	rec, err := m.Create(ctx, "x", testConfig())
	require.NoError(t, err)

	_, err = m.Stop(ctx, rec.ID)
	require.Error(t, err)
	assert.True(t, errors.Is(err, errs.ErrInvalidState))

	got, err := m.Get(rec.ID)
	require.NoError(t, err)
	assert.Equal(t, vm.StateCreated, got.State)
}

func TestPauseOnCreatedIsInvalidState(t *testing.T) {
	m := newTestManager(t)
	ctx := context.Background()

	rec, err := m.Create(ctx, "y", testConfig())
	require.NoError(t, err)

	_, err = m.Pause(ctx, rec.ID)
	require.Error(t, err)
	assert.True(t, errors.Is(err, errs.ErrInvalidState))
}

func TestDeleteNotFoundReturnsErrNotFound(t *testing.T) {
	m := newTestManager(t)
	err := m.Delete(context.Background(), "missing")
	require.Error(t, err)
	assert.True(t, errors.Is(err, errs.ErrNotFound))
}

func TestDeleteRemovesFromRegistryAndCatalog(t *testing.T) {
	m := newTestManager(t)
	ctx := context.Background()

	rec, err := m.Create(ctx, "tmp", testConfig())
	require.NoError(t, err)

	require.NoError(t, m.Delete(ctx, rec.ID))

	_, err = m.Get(rec.ID)
	require.Error(t, err)
	assert.True(t, errors.Is(err, errs.ErrNotFound))

	records, err := m.catalog.LoadAll()
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestInitializeReconcilesRunningToStopped(t *testing.T) {
	dir := t.TempDir()
	store, err := catalog.Open(filepath.Join(dir, "glidex.db"))
	require.NoError(t, err)
	defer store.Close()

	running := &vm.Record{ID: "vm-running", Name: "running", State: vm.StateRunning, Config: testConfig(), Paths: vm.DerivePaths("vm-running")}
	created := &vm.Record{ID: "vm-created", Name: "created", State: vm.StateCreated, Config: testConfig(), Paths: vm.DerivePaths("vm-created")}
	require.NoError(t, store.Save(running))
	require.NoError(t, store.Save(created))

	m := NewManager(store, "/bin/false", nil, nil)
	require.NoError(t, m.Initialize(context.Background()))

	got, err := m.Get("vm-running")
	require.NoError(t, err)
	assert.Equal(t, vm.StateStopped, got.State)

	gotCreated, err := m.Get("vm-created")
	require.NoError(t, err)
	assert.Equal(t, vm.StateCreated, gotCreated.State)

	records, err := store.LoadAll()
	require.NoError(t, err)
	for _, r := range records {
		if r.ID == "vm-running" {
			assert.Equal(t, vm.StateStopped, r.State)
		}
	}
}

func TestStartFreshSuccess(t *testing.T) {
	m := newTestManager(t)
	ctx := context.Background()

	rec, err := m.Create(ctx, "fresh", testConfig())
	require.NoError(t, err)

	client := &fakeClient{}
	m.newClient = func(string) HypervisorClient { return client }
	m.spawner = &fakeSpawner{handle: &fakeHandle{}}

	got, err := m.Start(ctx, rec.ID)
	require.NoError(t, err)
	assert.Equal(t, vm.StateRunning, got.State)

	records, err := m.catalog.LoadAll()
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, vm.StateRunning, records[0].State)
}

func TestStartFreshKillsProcessOnHypervisorError(t *testing.T) {
	m := newTestManager(t)
	ctx := context.Background()

	rec, err := m.Create(ctx, "bad-boot", testConfig())
	require.NoError(t, err)

	h := &fakeHandle{}
	m.newClient = func(string) HypervisorClient { return &fakeClient{bootErr: errors.New("boot failed")} }
	m.spawner = &fakeSpawner{handle: h}

	_, err = m.Start(ctx, rec.ID)
	require.Error(t, err)
	assert.True(t, h.killed)

	got, err := m.Get(rec.ID)
	require.NoError(t, err)
	assert.Equal(t, vm.StateCreated, got.State)
}

func TestStartOnRunningIsInvalidState(t *testing.T) {
	m := newTestManager(t)
	ctx := context.Background()

	rec, err := m.Create(ctx, "already-running", testConfig())
	require.NoError(t, err)

	m.newClient = func(string) HypervisorClient { return &fakeClient{} }
	m.spawner = &fakeSpawner{handle: &fakeHandle{}}
	_, err = m.Start(ctx, rec.ID)
	require.NoError(t, err)

	_, err = m.Start(ctx, rec.ID)
	require.Error(t, err)
	assert.True(t, errors.Is(err, errs.ErrInvalidState))
}

func TestPauseThenResumeRoundTrip(t *testing.T) {
	m := newTestManager(t)
	ctx := context.Background()

	rec, err := m.Create(ctx, "pauseable", testConfig())
	require.NoError(t, err)

	client := &fakeClient{}
	m.newClient = func(string) HypervisorClient { return client }
	m.spawner = &fakeSpawner{handle: &fakeHandle{}}

	_, err = m.Start(ctx, rec.ID)
	require.NoError(t, err)

	got, err := m.Pause(ctx, rec.ID)
	require.NoError(t, err)
	assert.Equal(t, vm.StatePaused, got.State)

	got, err = m.Start(ctx, rec.ID)
	require.NoError(t, err)
	assert.Equal(t, vm.StateRunning, got.State)
	assert.Equal(t, 1, client.resumeCalls)
}

func TestStopKillsHandleAndPersists(t *testing.T) {
	m := newTestManager(t)
	ctx := context.Background()

	rec, err := m.Create(ctx, "stoppable", testConfig())
	require.NoError(t, err)

	h := &fakeHandle{}
	m.newClient = func(string) HypervisorClient { return &fakeClient{} }
	m.spawner = &fakeSpawner{handle: h}

	_, err = m.Start(ctx, rec.ID)
	require.NoError(t, err)

	got, err := m.Stop(ctx, rec.ID)
	require.NoError(t, err)
	assert.Equal(t, vm.StateStopped, got.State)
	assert.True(t, h.killed)

	records, err := m.catalog.LoadAll()
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, vm.StateStopped, records[0].State)
}

func TestShutdownKillsAllHandles(t *testing.T) {
	m := newTestManager(t)
	ctx := context.Background()

	rec, err := m.Create(ctx, "z", testConfig())
	require.NoError(t, err)

	h := &fakeHandle{}
	m.registry[rec.ID].handle = h
	m.registry[rec.ID].record.State = vm.StateRunning

	m.Shutdown(ctx)
	assert.True(t, h.killed)
}
