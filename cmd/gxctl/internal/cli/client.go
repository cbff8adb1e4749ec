package cli

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/samber/lo"
)

// vmResponse mirrors cmd/glidexd/api.VmResponse; kept as an independent
// type so the client has no compile-time dependency on the server binary.
type vmResponse struct {
	ID                string `json:"id"`
	Name              string `json:"name"`
	State             string `json:"state"`
	VCPUCount         int    `json:"vcpu_count"`
	MemSizeMiB        int    `json:"mem_size_mib"`
	ConsoleSocketPath string `json:"console_socket_path"`
	LogPath           string `json:"log_path"`
}

type consoleInfo struct {
	VmID              string `json:"vm_id"`
	ConsoleSocketPath string `json:"console_socket_path"`
	LogPath           string `json:"log_path"`
	Available         bool   `json:"available"`
}

type apiError struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

type createVMRequest struct {
	Name            string `json:"name"`
	VCPUCount       int    `json:"vcpu_count"`
	MemSizeMiB      int    `json:"mem_size_mib"`
	KernelImagePath string `json:"kernel_image_path"`
	RootfsPath      string `json:"rootfs_path"`
	KernelArgs      string `json:"kernel_args,omitempty"`
}

// client is a thin HTTP client for the glidexd control plane API.
type client struct {
	baseURL string
	http    *http.Client
}

func newClient(baseURL string) *client {
	return &client{
		baseURL: baseURL,
		http:    &http.Client{Timeout: 30 * time.Second},
	}
}

func (c *client) do(method, path string, body any, out any) error {
	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequest(method, c.baseURL+path, reqBody)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		if out == nil || resp.StatusCode == http.StatusNoContent {
			return nil
		}
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
		return nil
	}

	var apiErr apiError
	if err := json.NewDecoder(resp.Body).Decode(&apiErr); err != nil {
		return fmt.Errorf("request failed with status %d", resp.StatusCode)
	}
	return fmt.Errorf("%s: %s", apiErr.Error, apiErr.Message)
}

func (c *client) health() error {
	return c.do(http.MethodGet, "/health", nil, nil)
}

func (c *client) listVMs() ([]vmResponse, error) {
	var out []vmResponse
	if err := c.do(http.MethodGet, "/vms", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *client) getVM(id string) (*vmResponse, error) {
	var out vmResponse
	if err := c.do(http.MethodGet, "/vms/"+id, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *client) createVM(req createVMRequest) (*vmResponse, error) {
	var out vmResponse
	if err := c.do(http.MethodPost, "/vms", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *client) startVM(id string) (*vmResponse, error) {
	var out vmResponse
	if err := c.do(http.MethodPost, "/vms/"+id+"/start", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *client) stopVM(id string) (*vmResponse, error) {
	var out vmResponse
	if err := c.do(http.MethodPost, "/vms/"+id+"/stop", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *client) pauseVM(id string) (*vmResponse, error) {
	var out vmResponse
	if err := c.do(http.MethodPost, "/vms/"+id+"/pause", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *client) deleteVM(id string) error {
	return c.do(http.MethodDelete, "/vms/"+id, nil, nil)
}

func (c *client) consoleInfo(id string) (*consoleInfo, error) {
	var out consoleInfo
	if err := c.do(http.MethodGet, "/vms/"+id+"/console", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// resolveVM accepts either a VM id or a name and returns the matching id.
// It tries the value as an id first, falling back to a name search.
func (c *client) resolveVM(nameOrID string) (string, error) {
	if vm, err := c.getVM(nameOrID); err == nil {
		return vm.ID, nil
	}

	vms, err := c.listVMs()
	if err != nil {
		return "", err
	}

	matches := lo.Filter(vms, func(vm vmResponse, _ int) bool {
		return vm.Name == nameOrID
	})

	switch len(matches) {
	case 0:
		return "", fmt.Errorf("VM %q not found", nameOrID)
	case 1:
		return matches[0].ID, nil
	default:
		ids := lo.Map(matches, func(vm vmResponse, _ int) string { return vm.ID })
		return "", fmt.Errorf("multiple VMs named %q, use an id instead: %v", nameOrID, ids)
	}
}
