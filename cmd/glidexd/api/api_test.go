package api

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/onkernel/glidex/lib/catalog"
	"github.com/onkernel/glidex/lib/lifecycle"
	"github.com/onkernel/glidex/lib/vm"
)

func testVmConfig() vm.Config {
	return vm.Config{
		VCPUCount:       1,
		MemSizeMiB:      256,
		KernelImagePath: "/k",
		RootfsPath:      "/r",
		KernelArgs:      vm.DefaultKernelArgs,
	}
}

func newTestServer(t *testing.T) (*httptest.Server, *lifecycle.Manager) {
	t.Helper()
	dir := t.TempDir()
	store, err := catalog.Open(filepath.Join(dir, "glidex.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	mgr := lifecycle.NewManager(store, "/bin/false", nil, nil)
	s := NewServer(mgr, slog.New(slog.NewTextHandler(io.Discard, nil)))
	router := NewRouter(s, nil)

	ts := httptest.NewServer(router)
	t.Cleanup(ts.Close)
	return ts, mgr
}

func decodeBody[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	defer resp.Body.Close()
	var out T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return out
}

func TestHealthEndpoint(t *testing.T) {
	ts, _ := newTestServer(t)
	resp, err := http.Get(ts.URL + "/health")
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	body := decodeBody[map[string]string](t, resp)
	assert.Equal(t, "ok", body["status"])
}

func createVM(t *testing.T, ts *httptest.Server, name string) *http.Response {
	t.Helper()
	req := CreateVmRequest{
		Name:            name,
		VCPUCount:       2,
		MemSizeMiB:      512,
		KernelImagePath: "/k",
		RootfsPath:      "/r",
	}
	data, err := json.Marshal(req)
	require.NoError(t, err)
	resp, err := http.Post(ts.URL+"/vms", "application/json", bytes.NewReader(data))
	require.NoError(t, err)
	return resp
}

func TestCreateVM(t *testing.T) {
	ts, _ := newTestServer(t)
	resp := createVM(t, ts, "test-vm")
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	body := decodeBody[VmResponse](t, resp)
	assert.Equal(t, "created", body.State)
	assert.Equal(t, 2, body.VCPUCount)
	assert.Equal(t, 512, body.MemSizeMiB)
	assert.NotEmpty(t, body.ID)
}

func TestCreateVMConflict(t *testing.T) {
	ts, _ := newTestServer(t)
	resp := createVM(t, ts, "dup")
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	resp.Body.Close()

	resp2 := createVM(t, ts, "dup")
	require.Equal(t, http.StatusConflict, resp2.StatusCode)
	body := decodeBody[ApiError](t, resp2)
	assert.Equal(t, "conflict", body.Error)
}

func TestStopOnCreatedIsInvalidState(t *testing.T) {
	ts, _ := newTestServer(t)
	resp := createVM(t, ts, "x")
	body := decodeBody[VmResponse](t, resp)

	stopResp, err := http.Post(ts.URL+"/vms/"+body.ID+"/stop", "application/json", nil)
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, stopResp.StatusCode)
	errBody := decodeBody[ApiError](t, stopResp)
	assert.Equal(t, "invalid_state", errBody.Error)
}

func TestConsoleInfoNotRunning(t *testing.T) {
	ts, _ := newTestServer(t)
	resp := createVM(t, ts, "c")
	created := decodeBody[VmResponse](t, resp)

	consoleResp, err := http.Get(ts.URL + "/vms/" + created.ID + "/console")
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, consoleResp.StatusCode)

	info := decodeBody[ConsoleInfo](t, consoleResp)
	assert.False(t, info.Available)
	assert.NotEmpty(t, info.ConsoleSocketPath)
	assert.NotEmpty(t, info.LogPath)
}

func TestPersistenceAcrossManagerReopen(t *testing.T) {
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "glidex.db")

	store, err := catalog.Open(dbPath)
	require.NoError(t, err)
	mgr := lifecycle.NewManager(store, "/bin/false", nil, nil)
	_, err = mgr.Create(t.Context(), "persistent-vm", testVmConfig())
	require.NoError(t, err)
	require.NoError(t, store.Close())

	store2, err := catalog.Open(dbPath)
	require.NoError(t, err)
	defer store2.Close()
	mgr2 := lifecycle.NewManager(store2, "/bin/false", nil, nil)
	require.NoError(t, mgr2.Initialize(t.Context()))

	list := mgr2.List()
	require.Len(t, list, 1)
	assert.Equal(t, "persistent-vm", list[0].Name)
}

func TestDeleteThenReopenIsGone(t *testing.T) {
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "glidex.db")

	store, err := catalog.Open(dbPath)
	require.NoError(t, err)
	mgr := lifecycle.NewManager(store, "/bin/false", nil, nil)
	rec, err := mgr.Create(t.Context(), "tmp", testVmConfig())
	require.NoError(t, err)
	require.NoError(t, mgr.Delete(t.Context(), rec.ID))
	require.NoError(t, store.Close())

	store2, err := catalog.Open(dbPath)
	require.NoError(t, err)
	defer store2.Close()
	mgr2 := lifecycle.NewManager(store2, "/bin/false", nil, nil)
	require.NoError(t, mgr2.Initialize(t.Context()))

	assert.Empty(t, mgr2.List())
	_, err = mgr2.Get(rec.ID)
	assert.Error(t, err)
}
