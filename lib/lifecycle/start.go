package lifecycle

import (
	"context"

	"go.opentelemetry.io/otel/trace"
	"gvisor.dev/gvisor/pkg/cleanup"

	"github.com/onkernel/glidex/lib/errs"
	"github.com/onkernel/glidex/lib/vm"
	"github.com/onkernel/glidex/lib/vmm"
)

// Start dispatches on the VM's current state: Created/Stopped spawn a
// fresh hypervisor process and configure it from scratch; Paused resumes
// the still-running process; Running is an invalid-state error.
func (m *Manager) Start(ctx context.Context, id string) (*vm.Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.metrics != nil && m.metrics.tracer != nil {
		var span trace.Span
		ctx, span = m.metrics.tracer.Start(ctx, "StartVM")
		defer span.End()
	}

	e, err := m.mustEntry(id)
	if err != nil {
		return nil, err
	}

	switch e.record.State {
	case vm.StateCreated, vm.StateStopped:
		return m.startFresh(ctx, e)
	case vm.StatePaused:
		return m.startFromPaused(ctx, e)
	default:
		return nil, errs.InvalidState(e.record.State.String(), "start")
	}
}

func (m *Manager) startFresh(ctx context.Context, e *entry) (*vm.Record, error) {
	rec := e.record

	handle, err := m.spawner.Spawn(ctx, m.binaryPath, rec.Paths.ControlSocketPath, rec.Paths.ConsoleSocketPath, rec.Paths.LogPath)
	if err != nil {
		return nil, err
	}

	cu := cleanup.Make(func() { handle.Kill() })
	defer cu.Clean()

	client := m.newClient(rec.Paths.ControlSocketPath)

	if err := client.ConfigureMachine(ctx, vmm.MachineConfig{
		VCPUCount:  rec.Config.VCPUCount,
		MemSizeMiB: rec.Config.MemSizeMiB,
	}); err != nil {
		return nil, err
	}
	if err := client.SetBootSource(ctx, vmm.BootSource{
		KernelImagePath: rec.Config.KernelImagePath,
		BootArgs:        rec.Config.KernelArgs,
	}); err != nil {
		return nil, err
	}
	if err := client.AddRootDrive(ctx, rec.Config.RootfsPath); err != nil {
		return nil, err
	}
	if err := client.StartInstance(ctx); err != nil {
		return nil, err
	}

	if err := m.catalog.UpdateState(rec.ID, vm.StateRunning); err != nil {
		return nil, err
	}

	cu.Release()

	e.handle = handle
	rec.State = vm.StateRunning
	m.recordTransition(ctx, vm.StateRunning)
	m.log.InfoContext(ctx, "vm started", "id", rec.ID)

	return toResponse(rec), nil
}

func (m *Manager) startFromPaused(ctx context.Context, e *entry) (*vm.Record, error) {
	rec := e.record
	client := m.newClient(rec.Paths.ControlSocketPath)

	if err := client.ResumeInstance(ctx); err != nil {
		return nil, err
	}

	if err := m.catalog.UpdateState(rec.ID, vm.StateRunning); err != nil {
		if pauseErr := client.PauseInstance(ctx); pauseErr != nil {
			m.log.WarnContext(ctx, "rollback to paused failed after persistence error", "id", rec.ID, "error", pauseErr)
		}
		return nil, err
	}

	rec.State = vm.StateRunning
	m.recordTransition(ctx, vm.StateRunning)
	m.log.InfoContext(ctx, "vm resumed", "id", rec.ID)

	return toResponse(rec), nil
}
