// Package api is glidexd's HTTP surface: hand-written handlers over the
// Lifecycle Manager, using encoding/json directly rather than
// oapi-codegen generated strict-server code (that machinery needs an
// OpenAPI spec and `go generate`, see DESIGN.md). The wire surface itself
// matches the spec unchanged.
package api

import "github.com/onkernel/glidex/lib/vm"

// CreateVmRequest is the POST /vms request body.
type CreateVmRequest struct {
	Name            string `json:"name"`
	VCPUCount       int    `json:"vcpu_count"`
	MemSizeMiB      int    `json:"mem_size_mib"`
	KernelImagePath string `json:"kernel_image_path"`
	RootfsPath      string `json:"rootfs_path"`
	KernelArgs      string `json:"kernel_args,omitempty"`
}

// VmResponse is the public VM representation returned by the list, get,
// create, start, stop and pause endpoints.
type VmResponse struct {
	ID                string `json:"id"`
	Name              string `json:"name"`
	State             string `json:"state"`
	VCPUCount         int    `json:"vcpu_count"`
	MemSizeMiB        int    `json:"mem_size_mib"`
	ConsoleSocketPath string `json:"console_socket_path"`
	LogPath           string `json:"log_path"`
}

// ConsoleInfo is the GET /vms/{id}/console response body.
type ConsoleInfo struct {
	VmID              string `json:"vm_id"`
	ConsoleSocketPath string `json:"console_socket_path"`
	LogPath           string `json:"log_path"`
	Available         bool   `json:"available"`
}

// ApiError is the error envelope for every non-2xx response.
type ApiError struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

func toVmResponse(rec *vm.Record) VmResponse {
	return VmResponse{
		ID:                rec.ID,
		Name:              rec.Name,
		State:             string(rec.State),
		VCPUCount:         rec.Config.VCPUCount,
		MemSizeMiB:        rec.Config.MemSizeMiB,
		ConsoleSocketPath: rec.Paths.ConsoleSocketPath,
		LogPath:           rec.Paths.LogPath,
	}
}

func toConsoleInfo(rec *vm.Record) ConsoleInfo {
	return ConsoleInfo{
		VmID:              rec.ID,
		ConsoleSocketPath: rec.Paths.ConsoleSocketPath,
		LogPath:           rec.Paths.LogPath,
		Available:         rec.State == vm.StateRunning,
	}
}
