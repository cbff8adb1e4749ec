package lifecycle

import "github.com/onkernel/glidex/lib/vm"

// Get returns a single record by id. Pure read, no I/O.
func (m *Manager) Get(id string) (*vm.Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	e, err := m.mustEntry(id)
	if err != nil {
		return nil, err
	}
	return toResponse(e.record), nil
}

// List returns every record currently in the registry. Pure read, no I/O.
func (m *Manager) List() []*vm.Record {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]*vm.Record, 0, len(m.registry))
	for _, e := range m.registry {
		out = append(out, toResponse(e.record))
	}
	return out
}
