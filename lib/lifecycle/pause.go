package lifecycle

import (
	"context"

	"go.opentelemetry.io/otel/trace"

	"github.com/onkernel/glidex/lib/errs"
	"github.com/onkernel/glidex/lib/vm"
)

// Pause issues pause_instance, persists the new state, and rolls back
// (best-effort resume) if persistence fails.
func (m *Manager) Pause(ctx context.Context, id string) (*vm.Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.metrics != nil && m.metrics.tracer != nil {
		var span trace.Span
		ctx, span = m.metrics.tracer.Start(ctx, "PauseVM")
		defer span.End()
	}

	e, err := m.mustEntry(id)
	if err != nil {
		return nil, err
	}

	if e.record.State != vm.StateRunning {
		return nil, errs.InvalidState(e.record.State.String(), "pause")
	}

	client := m.newClient(e.record.Paths.ControlSocketPath)
	if err := client.PauseInstance(ctx); err != nil {
		return nil, err
	}

	if err := m.catalog.UpdateState(id, vm.StatePaused); err != nil {
		if resumeErr := client.ResumeInstance(ctx); resumeErr != nil {
			m.log.WarnContext(ctx, "rollback to running failed after persistence error", "id", id, "error", resumeErr)
		}
		return nil, err
	}

	e.record.State = vm.StatePaused
	m.recordTransition(ctx, vm.StatePaused)
	m.log.InfoContext(ctx, "vm paused", "id", id)

	return toResponse(e.record), nil
}
