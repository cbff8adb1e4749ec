package cli

import (
	"bufio"
	"fmt"
	"net"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/term"
)

const detachByte = 0x1d // Ctrl+]

func newConsoleCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "console <name|id>",
		Aliases: []string{"connect", "attach"},
		Short:   "Attach to a running VM's serial console",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c := newClient(serverURL)
			id, err := c.resolveVM(args[0])
			if err != nil {
				return err
			}
			info, err := c.consoleInfo(id)
			if err != nil {
				return err
			}
			if !info.Available {
				return fmt.Errorf("VM is not running; start it first with: gxctl start %s", args[0])
			}
			return attachConsole(info.ConsoleSocketPath)
		},
	}
}

// attachConsole dials the VM's console multiplexer socket, puts the local
// terminal into raw mode, and pipes stdin/stdout to it until the peer
// closes the connection or the user detaches with Ctrl+].
func attachConsole(socketPath string) error {
	conn, err := net.Dial("unix", socketPath)
	if err != nil {
		return fmt.Errorf("connect to console socket %s: %w", socketPath, err)
	}
	defer conn.Close()

	fmt.Printf("connected to %s; press Ctrl+] to detach\n", socketPath)

	stdinFd := int(os.Stdin.Fd())
	if term.IsTerminal(stdinFd) {
		oldState, err := term.MakeRaw(stdinFd)
		if err != nil {
			fmt.Fprintf(os.Stderr, "warning: could not set raw mode: %v\n", err)
		} else {
			defer term.Restore(stdinFd, oldState)
		}
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	done := make(chan struct{}, 2)

	go func() {
		defer func() { done <- struct{}{} }()
		buf := make([]byte, 4096)
		for {
			n, err := conn.Read(buf)
			if n > 0 {
				os.Stdout.Write(buf[:n])
			}
			if err != nil {
				return
			}
		}
	}()

	go func() {
		defer func() { done <- struct{}{} }()
		r := bufio.NewReader(os.Stdin)
		buf := make([]byte, 1)
		for {
			n, err := r.Read(buf)
			if n > 0 {
				if buf[0] == detachByte {
					return
				}
				if _, werr := conn.Write(buf[:n]); werr != nil {
					return
				}
			}
			if err != nil {
				return
			}
		}
	}()

	select {
	case <-done:
	case <-sigCh:
	}

	fmt.Println("\r\ndetached from console")
	return nil
}
