package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	pkgerrors "github.com/angelmondragon/hwinventory-backend/pkg/errors"
)

const (
	OutcomeSuccess  = "success"
	OutcomeRejected = "rejected"
	OutcomeFailure  = "failure"
)

// InventoryMetrics records part and order mutations.
type InventoryMetrics struct {
	mutations *prometheus.CounterVec
	duration  *prometheus.HistogramVec
	alerts    *prometheus.CounterVec
}

// NewInventoryMetrics registers the inventory metrics on the provided registerer.
func NewInventoryMetrics(reg prometheus.Registerer) *InventoryMetrics {
	if reg == nil {
		return &InventoryMetrics{}
	}
	mutations := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "inventory_mutations_total",
		Help: "Part and order mutations by outcome.",
	}, []string{"entity", "operation", "outcome"})
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "inventory_mutation_duration_seconds",
		Help:    "Duration of part and order mutations in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"entity", "operation"})
	alerts := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "inventory_stock_status_transitions_total",
		Help: "Stock status changes by resulting status.",
	}, []string{"status"})
	reg.MustRegister(mutations, duration, alerts)
	return &InventoryMetrics{
		mutations: mutations,
		duration:  duration,
		alerts:    alerts,
	}
}

// ObserveMutation records the outcome and latency of a single mutation.
func (m *InventoryMetrics) ObserveMutation(entity, operation, outcome string, elapsed time.Duration) {
	if m == nil || m.mutations == nil {
		return
	}
	entity = labelValue(entity)
	operation = labelValue(operation)
	m.mutations.WithLabelValues(entity, operation, labelValue(outcome)).Inc()
	m.duration.WithLabelValues(entity, operation).Observe(elapsed.Seconds())
}

// IncStatusTransition counts a part moving into the given stock status.
func (m *InventoryMetrics) IncStatusTransition(status string) {
	if m == nil || m.alerts == nil {
		return
	}
	m.alerts.WithLabelValues(labelValue(status)).Inc()
}

// OutcomeOf classifies a mutation result. Typed client errors count as rejected.
func OutcomeOf(err error) string {
	if err == nil {
		return OutcomeSuccess
	}
	typed := pkgerrors.As(err)
	if typed == nil {
		return OutcomeFailure
	}
	if pkgerrors.MetadataFor(typed.Code()).HTTPStatus < 500 {
		return OutcomeRejected
	}
	return OutcomeFailure
}
