// Package supervisor owns the lifetime of one hypervisor child process per
// VM: it spawns firecracker with a pseudo-terminal wired to its stdio in a
// detached session, waits for the control socket to appear, and launches
// the console multiplexer on a dedicated worker. Grounded in the teacher's
// lib/vmm/client.go#StartProcess (spawn + waitForSocket poll loop pattern)
// and lib/system/guest_agent/main.go#executeTTY (pty.Start usage,
// generalized here to pty.Open so the parent keeps independent control of
// the slave end).
package supervisor

import (
	"context"
	"fmt"
	"net"
	"os"
	"os/exec"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/creack/pty"

	"github.com/onkernel/glidex/lib/errs"
)

// socketWaitInterval and socketWaitTimeout are vars (not consts) so tests
// can shrink the timeout instead of waiting out the real 5s budget.
var (
	socketWaitInterval = 100 * time.Millisecond
	socketWaitTimeout  = 5 * time.Second
)

// Handle is a live hypervisor process and everything the Console
// Multiplexer needs to keep running it: the child process, the PTY master,
// the console listener, a shared liveness flag, and a joinable worker.
type Handle struct {
	cmd               *os.Process
	master            *os.File
	listener          *net.UnixListener
	logFile           *os.File
	alive             *atomic.Bool
	done              chan struct{}
	controlSocketPath string
	consoleSocketPath string
}

// Spawn implements the supervisor's spawn contract: remove stale sockets,
// (re)create the log file, allocate a PTY, start the hypervisor binary in
// its own session wired to the PTY slave, bind the console listener, launch
// the console worker, then wait for the control socket to appear.
func Spawn(ctx context.Context, binaryPath, controlSocketPath, consoleSocketPath, logPath string) (*Handle, error) {
	for _, p := range []string{controlSocketPath, consoleSocketPath} {
		if err := os.Remove(p); err != nil && !os.IsNotExist(err) {
			return nil, errs.FirecrackerWrap("remove stale socket "+p, err)
		}
	}

	logFile, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return nil, errs.FirecrackerWrap("create log file", err)
	}

	master, slave, err := pty.Open()
	if err != nil {
		logFile.Close()
		return nil, errs.FirecrackerWrap("allocate pty", err)
	}

	cmd := exec.Command(binaryPath, "--api-sock", controlSocketPath)
	cmd.Stdin = slave
	cmd.Stdout = slave
	cmd.Stderr = slave
	cmd.SysProcAttr = &syscall.SysProcAttr{Setsid: true}

	if err := cmd.Start(); err != nil {
		master.Close()
		slave.Close()
		logFile.Close()
		return nil, errs.FirecrackerWrap("start hypervisor process", err)
	}
	slave.Close()

	listener, err := net.ListenUnix("unix", &net.UnixAddr{Name: consoleSocketPath, Net: "unix"})
	if err != nil {
		cmd.Process.Kill()
		master.Close()
		logFile.Close()
		return nil, errs.FirecrackerWrap("bind console listener", err)
	}

	h := &Handle{
		cmd:               cmd.Process,
		master:            master,
		listener:          listener,
		logFile:           logFile,
		alive:             &atomic.Bool{},
		done:              make(chan struct{}),
		controlSocketPath: controlSocketPath,
		consoleSocketPath: consoleSocketPath,
	}
	h.alive.Store(true)

	go runConsole(h.master, h.listener, h.logFile, h.alive, h.done)

	if err := waitForSocket(ctx, controlSocketPath); err != nil {
		h.Kill()
		return nil, err
	}

	return h, nil
}

// Kill signals the console worker to stop, terminates the child, joins the
// worker, and unlinks the two socket files. The log file is preserved.
// Idempotent.
func (h *Handle) Kill() error {
	if h == nil {
		return nil
	}
	if h.alive.CompareAndSwap(true, false) {
		if h.cmd != nil {
			_ = h.cmd.Signal(syscall.SIGTERM)
			go func() {
				time.Sleep(2 * time.Second)
				_ = h.cmd.Signal(syscall.SIGKILL)
			}()
			_, _ = h.cmd.Wait()
		}
		<-h.done
	}
	_ = os.Remove(h.controlSocketPath)
	_ = os.Remove(h.consoleSocketPath)
	return nil
}

func waitForSocket(ctx context.Context, path string) error {
	deadline := time.Now().Add(socketWaitTimeout)
	ticker := time.NewTicker(socketWaitInterval)
	defer ticker.Stop()

	for {
		if _, err := os.Stat(path); err == nil {
			return nil
		}
		if time.Now().After(deadline) {
			return errs.Firecracker(fmt.Sprintf("control socket %s did not appear within %s", path, socketWaitTimeout))
		}
		select {
		case <-ctx.Done():
			return errs.FirecrackerWrap("waiting for control socket", ctx.Err())
		case <-ticker.C:
		}
	}
}
