package lifecycle

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/onkernel/glidex/lib/vm"
)

// Metrics holds tracing and metrics instrumentation for lifecycle
// operations. Grounded in the teacher's lib/instances/metrics.go, trimmed
// to the one counter this control plane has a concrete use for: every
// other instrument there (create/restore/standby duration histograms)
// measured multi-hop snapshot/network orchestration this system doesn't
// have.
type Metrics struct {
	tracer           trace.Tracer
	stateTransitions metric.Int64Counter
}

// newManagerMetrics creates and registers the lifecycle metrics instruments.
func newManagerMetrics(meter metric.Meter, tracer trace.Tracer) (*Metrics, error) {
	stateTransitions, err := meter.Int64Counter(
		"glidex_vm_state_transitions_total",
		metric.WithDescription("Total number of VM state transitions"),
	)
	if err != nil {
		return nil, err
	}

	return &Metrics{tracer: tracer, stateTransitions: stateTransitions}, nil
}

// recordTransition increments the state-transition counter, if metrics are enabled.
func (m *Manager) recordTransition(ctx context.Context, state vm.State) {
	if m.metrics == nil {
		return
	}
	m.metrics.stateTransitions.Add(ctx, 1, metric.WithAttributes(attribute.String("state", state.String())))
}
