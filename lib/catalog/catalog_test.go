package catalog

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/onkernel/glidex/lib/errs"
	"github.com/onkernel/glidex/lib/vm"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	dir := t.TempDir()
	store, err := Open(filepath.Join(dir, "glidex.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func sampleRecord(id, name string) *vm.Record {
	return &vm.Record{
		ID:    id,
		Name:  name,
		State: vm.StateCreated,
		Config: vm.Config{
			VCPUCount:       2,
			MemSizeMiB:      512,
			KernelImagePath: "/k",
			RootfsPath:      "/r",
			KernelArgs:      vm.DefaultKernelArgs,
		},
		Paths: vm.DerivePaths(id),
	}
}

func TestOpenCreatesDirectoryAndBucket(t *testing.T) {
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "nested", "glidex.db")
	store, err := Open(dbPath)
	require.NoError(t, err)
	defer store.Close()

	records, err := store.LoadAll()
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestSaveAndLoadAll(t *testing.T) {
	store := newTestStore(t)
	rec := sampleRecord("vm-1", "test-vm")

	require.NoError(t, store.Save(rec))

	records, err := store.LoadAll()
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, rec.ID, records[0].ID)
	assert.Equal(t, rec.Name, records[0].Name)
	assert.Equal(t, rec.Config, records[0].Config)
}

func TestSaveReplacesExisting(t *testing.T) {
	store := newTestStore(t)
	rec := sampleRecord("vm-1", "test-vm")
	require.NoError(t, store.Save(rec))

	rec.State = vm.StateRunning
	require.NoError(t, store.Save(rec))

	records, err := store.LoadAll()
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, vm.StateRunning, records[0].State)
}

func TestDeleteIsNoopIfAbsent(t *testing.T) {
	store := newTestStore(t)
	assert.NoError(t, store.Delete("missing"))
}

func TestDeleteRemovesRecord(t *testing.T) {
	store := newTestStore(t)
	rec := sampleRecord("vm-1", "test-vm")
	require.NoError(t, store.Save(rec))
	require.NoError(t, store.Delete("vm-1"))

	records, err := store.LoadAll()
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestUpdateStateNotFound(t *testing.T) {
	store := newTestStore(t)
	err := store.UpdateState("missing", vm.StateRunning)
	require.Error(t, err)
	assert.True(t, errors.Is(err, errs.ErrNotFound))
}

func TestUpdateStateRoundTrip(t *testing.T) {
	store := newTestStore(t)
	rec := sampleRecord("vm-1", "test-vm")
	require.NoError(t, store.Save(rec))

	require.NoError(t, store.UpdateState("vm-1", vm.StateRunning))

	records, err := store.LoadAll()
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, vm.StateRunning, records[0].State)
}
