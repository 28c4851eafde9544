package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the visit module.
// Tracks registration/departure counts and critical path durations.
type Metrics struct {
	VisitsCreated      prometheus.Counter
	DeparturesMarked   prometheus.Counter
	ValidationFailures prometheus.Counter
	CreateDuration     prometheus.Histogram
	ListDuration       prometheus.Histogram
}

// New creates a Metrics instance with all visit module metrics registered.
func New() *Metrics {
	return &Metrics{
		VisitsCreated: promauto.NewCounter(prometheus.CounterOpts{
			Name: "visitlog_visits_created_total",
			Help: "Total number of visits registered",
		}),
		DeparturesMarked: promauto.NewCounter(prometheus.CounterOpts{
			Name: "visitlog_departures_marked_total",
			Help: "Total number of departures recorded via the guarded path",
		}),
		ValidationFailures: promauto.NewCounter(prometheus.CounterOpts{
			Name: "visitlog_visit_validation_failures_total",
			Help: "Total number of create/edit attempts rejected by validation",
		}),
		CreateDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "visitlog_visit_create_duration_seconds",
			Help:    "Duration of visit registration (front-desk critical path)",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		}),
		ListDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "visitlog_visit_list_duration_seconds",
			Help:    "Duration of visit listing queries",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		}),
	}
}

// IncrementVisitsCreated records a successful registration.
func (m *Metrics) IncrementVisitsCreated() {
	m.VisitsCreated.Inc()
}

// IncrementDeparturesMarked records a successful departure marking.
func (m *Metrics) IncrementDeparturesMarked() {
	m.DeparturesMarked.Inc()
}

// IncrementValidationFailures records a rejected create or edit.
func (m *Metrics) IncrementValidationFailures() {
	m.ValidationFailures.Inc()
}

// ObserveCreate records the duration of a Create operation.
// Call with time.Now() captured at the start of the operation.
func (m *Metrics) ObserveCreate(start time.Time) {
	m.CreateDuration.Observe(time.Since(start).Seconds())
}

// ObserveList records the duration of a List operation.
func (m *Metrics) ObserveList(start time.Time) {
	m.ListDuration.Observe(time.Since(start).Seconds())
}
