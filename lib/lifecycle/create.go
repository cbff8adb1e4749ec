package lifecycle

import (
	"context"

	"go.opentelemetry.io/otel/trace"

	"github.com/onkernel/glidex/lib/errs"
	"github.com/onkernel/glidex/lib/vm"
)

// Create constructs a new VM with a freshly allocated id, persists it, then
// inserts it into the registry. Fails with errs.ErrAlreadyExists if a live
// record already uses this name.
func (m *Manager) Create(ctx context.Context, name string, cfg vm.Config) (*vm.Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.metrics != nil && m.metrics.tracer != nil {
		var span trace.Span
		ctx, span = m.metrics.tracer.Start(ctx, "CreateVM")
		defer span.End()
	}

	if existing := m.findByName(name); existing != nil {
		return nil, errs.AlreadyExists(name)
	}

	if cfg.KernelArgs == "" {
		cfg.KernelArgs = vm.DefaultKernelArgs
	}

	id := newID()
	rec := &vm.Record{
		ID:     id,
		Name:   name,
		State:  vm.StateCreated,
		Config: cfg,
		Paths:  vm.DerivePaths(id),
	}

	if err := m.catalog.Save(rec); err != nil {
		return nil, err
	}

	m.registry[id] = &entry{record: rec}
	m.recordTransition(ctx, vm.StateCreated)
	m.log.InfoContext(ctx, "vm created", "id", id, "name", name)

	return toResponse(rec), nil
}
