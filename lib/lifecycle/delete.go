package lifecycle

import (
	"context"

	"go.opentelemetry.io/otel/trace"
)

// Delete kills the process if present, removes the catalog row, then
// removes the entry from memory. The catalog delete happens before the
// in-memory removal: a crash between the two steps leaves nothing
// inconsistent on disk, only a transient ghost in memory that the process
// exiting makes moot.
func (m *Manager) Delete(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.metrics != nil && m.metrics.tracer != nil {
		var span trace.Span
		ctx, span = m.metrics.tracer.Start(ctx, "DeleteVM")
		defer span.End()
	}

	e, err := m.mustEntry(id)
	if err != nil {
		return err
	}

	if e.handle != nil {
		if killErr := e.handle.Kill(); killErr != nil {
			m.log.WarnContext(ctx, "process kill failed during delete", "id", id, "error", killErr)
		}
		e.handle = nil
	}

	if err := m.catalog.Delete(id); err != nil {
		return err
	}

	delete(m.registry, id)
	m.log.InfoContext(ctx, "vm deleted", "id", id)

	return nil
}
