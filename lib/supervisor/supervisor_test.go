package supervisor

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeFirecracker writes a shell script that behaves like the real binary
// just enough to exercise the spawn contract: it creates its control
// socket (as a plain file, since nothing connects to it in this test) and
// then sleeps, keeping the PTY slave open as its controlling stdio.
func fakeFirecracker(t *testing.T, delay time.Duration) string {
	t.Helper()
	dir := t.TempDir()
	scriptPath := filepath.Join(dir, "fake-firecracker.sh")
	// invoked as: fake-firecracker.sh --api-sock <controlSocketPath>
	script := "#!/bin/sh\n"
	if delay > 0 {
		script += "sleep " + delay.String() + "\n"
	}
	script += "touch \"$2\"\nsleep 5\n"
	require.NoError(t, os.WriteFile(scriptPath, []byte(script), 0o755))
	return scriptPath
}

func TestSpawnWaitsForControlSocket(t *testing.T) {
	dir := t.TempDir()
	controlSocket := filepath.Join(dir, "vm.sock")
	consoleSocket := filepath.Join(dir, "vm.console.sock")
	logPath := filepath.Join(dir, "vm.log")

	scriptPath := fakeFirecracker(t, 0)

	h, err := Spawn(context.Background(), scriptPath, controlSocket, consoleSocket, logPath)
	require.NoError(t, err)
	defer h.Kill()

	_, err = os.Stat(controlSocket)
	assert.NoError(t, err)
	_, err = os.Stat(consoleSocket)
	assert.NoError(t, err)
}

func TestSpawnTimesOutWhenSocketNeverAppears(t *testing.T) {
	orig := socketWaitTimeout
	socketWaitTimeout = 200 * time.Millisecond
	socketWaitInterval = 20 * time.Millisecond
	defer func() { socketWaitTimeout = orig; socketWaitInterval = 100 * time.Millisecond }()

	dir := t.TempDir()
	controlSocket := filepath.Join(dir, "vm.sock")
	consoleSocket := filepath.Join(dir, "vm.console.sock")
	logPath := filepath.Join(dir, "vm.log")

	scriptPath := filepath.Join(dir, "never.sh")
	require.NoError(t, os.WriteFile(scriptPath, []byte("#!/bin/sh\nsleep 5\n"), 0o755))

	_, err := Spawn(context.Background(), scriptPath, controlSocket, consoleSocket, logPath)
	require.Error(t, err)
}

func TestKillIsIdempotent(t *testing.T) {
	dir := t.TempDir()
	controlSocket := filepath.Join(dir, "vm.sock")
	consoleSocket := filepath.Join(dir, "vm.console.sock")
	logPath := filepath.Join(dir, "vm.log")

	scriptPath := fakeFirecracker(t, 0)

	h, err := Spawn(context.Background(), scriptPath, controlSocket, consoleSocket, logPath)
	require.NoError(t, err)

	require.NoError(t, h.Kill())
	require.NoError(t, h.Kill())

	_, err = os.Stat(controlSocket)
	assert.True(t, os.IsNotExist(err))
}

func TestKillPreservesLogFile(t *testing.T) {
	dir := t.TempDir()
	controlSocket := filepath.Join(dir, "vm.sock")
	consoleSocket := filepath.Join(dir, "vm.console.sock")
	logPath := filepath.Join(dir, "vm.log")

	scriptPath := fakeFirecracker(t, 0)
	h, err := Spawn(context.Background(), scriptPath, controlSocket, consoleSocket, logPath)
	require.NoError(t, err)
	require.NoError(t, h.Kill())

	_, err = os.Stat(logPath)
	assert.NoError(t, err)
}
