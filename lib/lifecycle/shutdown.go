package lifecycle

import "context"

// Shutdown kills every live process handle and leaves catalog state
// untouched; reconciliation on the next Initialize handles any entries
// still marked Running or Paused.
func (m *Manager) Shutdown(ctx context.Context) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for id, e := range m.registry {
		if e.handle == nil {
			continue
		}
		if err := e.handle.Kill(); err != nil {
			m.log.WarnContext(ctx, "process kill failed during shutdown", "id", id, "error", err)
		}
		e.handle = nil
	}

	m.log.InfoContext(ctx, "lifecycle manager shut down")
}
