package lifecycle

import (
	"context"
	"os"

	"github.com/onkernel/glidex/lib/vm"
)

// Initialize loads every record from the catalog, reconciles state with
// observable reality, and populates the registry. It must run once,
// before the HTTP layer serves any request.
func (m *Manager) Initialize(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	records, err := m.catalog.LoadAll()
	if err != nil {
		return err
	}

	for _, rec := range records {
		if rec.State == vm.StateRunning || rec.State == vm.StatePaused {
			if _, statErr := os.Stat(rec.Paths.ControlSocketPath); statErr == nil {
				m.log.WarnContext(ctx, "found stale control socket for a VM marked live; the prior process handle is unrecoverable",
					"id", rec.ID, "persisted_state", rec.State)
				_ = os.Remove(rec.Paths.ControlSocketPath)
				_ = os.Remove(rec.Paths.ConsoleSocketPath)
			}

			rec.State = vm.StateStopped
			if err := m.catalog.UpdateState(rec.ID, vm.StateStopped); err != nil {
				return err
			}
		}

		m.registry[rec.ID] = &entry{record: rec}
	}

	m.log.InfoContext(ctx, "lifecycle manager initialized", "vm_count", len(records))
	return nil
}
