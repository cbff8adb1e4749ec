// Package vmm is the Hypervisor Client: a stateless, hand-rolled HTTP/1.1
// client over a per-VM Unix control socket. It speaks only the minimal
// dialect the firecracker API needs (PUT/PATCH, one request per
// connection, Connection: close) and deliberately avoids pulling the
// net/http client/transport stack into the supervisor, grounded in
// other_examples' ekzhang-ssh-hypervisor putAPI helper and
// original_source/src/firecracker.rs — generalized to parse the status
// line and Content-Length header properly instead of a fixed-size read,
// since a fixed read can truncate a body.
package vmm

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/onkernel/glidex/lib/errs"
)

// ReadTimeout bounds how long a single request/response round trip may take.
const ReadTimeout = 30 * time.Second

// Client talks to one VM's firecracker control socket.
type Client struct {
	socketPath  string
	readTimeout time.Duration
}

// NewClient returns a client bound to the given control socket path.
func NewClient(socketPath string) *Client {
	return &Client{socketPath: socketPath, readTimeout: ReadTimeout}
}

// MachineConfig is the request body for ConfigureMachine.
type MachineConfig struct {
	VCPUCount  int `json:"vcpu_count"`
	MemSizeMiB int `json:"mem_size_mib"`
}

// BootSource is the request body for SetBootSource.
type BootSource struct {
	KernelImagePath string `json:"kernel_image_path"`
	BootArgs        string `json:"boot_args"`
}

type driveRequest struct {
	DriveID      string `json:"drive_id"`
	PathOnHost   string `json:"path_on_host"`
	IsRootDevice bool   `json:"is_root_device"`
	IsReadOnly   bool   `json:"is_read_only"`
}

type actionRequest struct {
	ActionType string `json:"action_type"`
}

type vmStateRequest struct {
	State string `json:"state"`
}

// ConfigureMachine issues PUT /machine-config.
func (c *Client) ConfigureMachine(ctx context.Context, cfg MachineConfig) error {
	return c.putJSON(ctx, "/machine-config", cfg)
}

// SetBootSource issues PUT /boot-source.
func (c *Client) SetBootSource(ctx context.Context, cfg BootSource) error {
	return c.putJSON(ctx, "/boot-source", cfg)
}

// AddRootDrive issues PUT /drives/rootfs.
func (c *Client) AddRootDrive(ctx context.Context, path string) error {
	return c.putJSON(ctx, "/drives/rootfs", driveRequest{
		DriveID:      "rootfs",
		PathOnHost:   path,
		IsRootDevice: true,
		IsReadOnly:   false,
	})
}

// StartInstance issues PUT /actions with InstanceStart.
func (c *Client) StartInstance(ctx context.Context) error {
	return c.putJSON(ctx, "/actions", actionRequest{ActionType: "InstanceStart"})
}

// PauseInstance issues PATCH /vm with state Paused.
func (c *Client) PauseInstance(ctx context.Context) error {
	return c.patchJSON(ctx, "/vm", vmStateRequest{State: "Paused"})
}

// ResumeInstance issues PATCH /vm with state Resumed.
func (c *Client) ResumeInstance(ctx context.Context) error {
	return c.patchJSON(ctx, "/vm", vmStateRequest{State: "Resumed"})
}

func (c *Client) putJSON(ctx context.Context, path string, body any) error {
	return c.doJSON(ctx, "PUT", path, body)
}

func (c *Client) patchJSON(ctx context.Context, path string, body any) error {
	return c.doJSON(ctx, "PATCH", path, body)
}

func (c *Client) doJSON(ctx context.Context, method, path string, body any) error {
	data, err := json.Marshal(body)
	if err != nil {
		return errs.FirecrackerWrap("marshal request", err)
	}

	status, respBody, err := c.do(ctx, method, path, data)
	if err != nil {
		return err
	}
	if status != 200 && status != 204 {
		return errs.Firecracker(fmt.Sprintf("%s %s: status %d: %s", method, path, status, string(respBody)))
	}
	return nil
}

// do connects, sends one request with Connection: close, reads the full
// response, and disconnects.
func (c *Client) do(ctx context.Context, method, path string, body []byte) (int, []byte, error) {
	var dialer net.Dialer
	conn, err := dialer.DialContext(ctx, "unix", c.socketPath)
	if err != nil {
		return 0, nil, errs.FirecrackerWrap("dial control socket", err)
	}
	defer conn.Close()

	if err := conn.SetDeadline(time.Now().Add(c.readTimeout)); err != nil {
		return 0, nil, errs.FirecrackerWrap("set deadline", err)
	}

	reqHead := fmt.Sprintf(
		"%s %s HTTP/1.1\r\nHost: localhost\r\nConnection: close\r\nContent-Type: application/json\r\nContent-Length: %d\r\n\r\n",
		method, path, len(body),
	)
	if _, err := conn.Write([]byte(reqHead)); err != nil {
		return 0, nil, errs.FirecrackerWrap("write request head", err)
	}
	if len(body) > 0 {
		if _, err := conn.Write(body); err != nil {
			return 0, nil, errs.FirecrackerWrap("write request body", err)
		}
	}

	reader := bufio.NewReader(conn)

	statusLine, err := reader.ReadString('\n')
	if err != nil {
		return 0, nil, errs.FirecrackerWrap("read status line", err)
	}
	status, err := parseStatusLine(statusLine)
	if err != nil {
		return 0, nil, errs.FirecrackerWrap("parse status line", err)
	}

	contentLength := -1
	for {
		line, err := reader.ReadString('\n')
		if err != nil {
			return 0, nil, errs.FirecrackerWrap("read header line", err)
		}
		line = strings.TrimRight(line, "\r\n")
		if line == "" {
			break
		}
		if name, value, ok := strings.Cut(line, ":"); ok && strings.EqualFold(strings.TrimSpace(name), "content-length") {
			n, err := strconv.Atoi(strings.TrimSpace(value))
			if err != nil {
				return 0, nil, errs.FirecrackerWrap("parse content-length", err)
			}
			contentLength = n
		}
	}

	var respBody []byte
	if contentLength > 0 {
		respBody = make([]byte, contentLength)
		if _, err := io.ReadFull(reader, respBody); err != nil {
			return 0, nil, errs.FirecrackerWrap("read response body", err)
		}
	}

	return status, respBody, nil
}

func parseStatusLine(line string) (int, error) {
	fields := strings.Fields(line)
	if len(fields) < 2 {
		return 0, fmt.Errorf("malformed status line: %q", line)
	}
	return strconv.Atoi(fields[1])
}
