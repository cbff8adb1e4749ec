// Package vm holds the VM record data model: its persisted fields, its
// state machine, and the derived filesystem path triple every VM gets.
package vm

import "github.com/onkernel/glidex/lib/paths"

// State is one of the four lifecycle states a VM record can be in.
type State string

const (
	StateCreated State = "created"
	StateRunning State = "running"
	StatePaused  State = "paused"
	StateStopped State = "stopped"
)

// DefaultKernelArgs is used when a create request omits kernel_args.
const DefaultKernelArgs = "console=ttyS0 reboot=k panic=1 pci=off"

// Config is the guest configuration declared at create time.
type Config struct {
	VCPUCount       int    `json:"vcpu_count"`
	MemSizeMiB      int    `json:"mem_size_mib"`
	KernelImagePath string `json:"kernel_image_path"`
	RootfsPath      string `json:"rootfs_path"`
	KernelArgs      string `json:"kernel_args"`
}

// Paths is the derived, id-deterministic path triple for a VM's artifacts.
type Paths struct {
	ControlSocketPath string `json:"control_socket_path"`
	ConsoleSocketPath string `json:"console_socket_path"`
	LogPath           string `json:"log_path"`
}

// DerivePaths computes the fixed path triple for a VM id.
func DerivePaths(id string) Paths {
	return Paths{
		ControlSocketPath: paths.VMSocket(id),
		ConsoleSocketPath: paths.VMConsoleSocket(id),
		LogPath:           paths.VMLogFile(id),
	}
}

// Record is a VM as persisted in the catalog and held in the registry.
// It is serialized verbatim as JSON for catalog storage; the HTTP layer
// builds its own response types from it.
type Record struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	State  State  `json:"state"`
	Config Config `json:"config"`
	Paths  Paths  `json:"paths"`
}

// Clone returns a deep copy safe to hand outside the registry lock.
func (r *Record) Clone() *Record {
	if r == nil {
		return nil
	}
	c := *r
	return &c
}
