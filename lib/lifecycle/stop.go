package lifecycle

import (
	"context"

	"go.opentelemetry.io/otel/trace"

	"github.com/onkernel/glidex/lib/errs"
	"github.com/onkernel/glidex/lib/vm"
)

// Stop kills the process handle (best-effort), clears it, and sets state to
// Stopped. Persistence failure here is logged but not surfaced: the kill
// is irreversible, and the next initialize() reconciles any mismatch.
func (m *Manager) Stop(ctx context.Context, id string) (*vm.Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.metrics != nil && m.metrics.tracer != nil {
		var span trace.Span
		ctx, span = m.metrics.tracer.Start(ctx, "StopVM")
		defer span.End()
	}

	e, err := m.mustEntry(id)
	if err != nil {
		return nil, err
	}

	switch e.record.State {
	case vm.StateRunning, vm.StatePaused:
	default:
		return nil, errs.InvalidState(e.record.State.String(), "stop")
	}

	if e.handle != nil {
		if killErr := e.handle.Kill(); killErr != nil {
			m.log.WarnContext(ctx, "process kill failed during stop", "id", id, "error", killErr)
		}
		e.handle = nil
	}

	e.record.State = vm.StateStopped

	if err := m.catalog.UpdateState(id, vm.StateStopped); err != nil {
		m.log.WarnContext(ctx, "persistence failed after stop; reconciliation will fix on next boot", "id", id, "error", err)
	}

	m.recordTransition(ctx, vm.StateStopped)
	m.log.InfoContext(ctx, "vm stopped", "id", id)

	return toResponse(e.record), nil
}
