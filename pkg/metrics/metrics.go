package metrics

import (
	"net/http"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Collector struct {
	RequestsTotal   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec
	InFlightGauge   prometheus.Gauge

	AppointmentsCreatedTotal prometheus.Counter
	AppointmentTransitions   *prometheus.CounterVec
	TransitionsRefused       *prometheus.CounterVec

	PatientRecordsCreatedTotal prometheus.Counter
	PatientRecordsUpdatedTotal prometheus.Counter

	LoginAttemptsTotal *prometheus.CounterVec

	DBQueryDuration *prometheus.HistogramVec
}

// NewCollector registers every metric on reg. Pass prometheus.DefaultRegisterer
// in the server and a fresh registry in tests.
func NewCollector(serviceName string, reg prometheus.Registerer) *Collector {
	ns := strings.NewReplacer("-", "_", ".", "_").Replace(serviceName)
	f := promauto.With(reg)

	return &Collector{
		RequestsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: ns,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests by method, path, and status code.",
		}, []string{"method", "path", "status"}),

		RequestDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: ns,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request latency distribution.",
			Buckets:   []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0},
		}, []string{"method", "path", "status"}),

		InFlightGauge: f.NewGauge(prometheus.GaugeOpts{
			Namespace: ns,
			Subsystem: "http",
			Name:      "in_flight_requests",
			Help:      "Current number of in-flight HTTP requests.",
		}),

		AppointmentsCreatedTotal: f.NewCounter(prometheus.CounterOpts{
			Namespace: ns,
			Subsystem: "clinical",
			Name:      "appointments_created_total",
			Help:      "Total number of appointments booked.",
		}),

		AppointmentTransitions: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: ns,
			Subsystem: "clinical",
			Name:      "appointment_transitions_total",
			Help:      "Applied appointment transitions by action and resulting status.",
		}, []string{"action", "status"}),

		TransitionsRefused: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: ns,
			Subsystem: "clinical",
			Name:      "appointment_transitions_refused_total",
			Help:      "Refused appointment transitions by action and reason.",
		}, []string{"action", "reason"}),

		PatientRecordsCreatedTotal: f.NewCounter(prometheus.CounterOpts{
			Namespace: ns,
			Subsystem: "clinical",
			Name:      "patient_records_created_total",
			Help:      "Total number of patient records created.",
		}),

		PatientRecordsUpdatedTotal: f.NewCounter(prometheus.CounterOpts{
			Namespace: ns,
			Subsystem: "clinical",
			Name:      "patient_records_updated_total",
			Help:      "Total number of patient record merge updates.",
		}),

		LoginAttemptsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: ns,
			Subsystem: "auth",
			Name:      "login_attempts_total",
			Help:      "Login attempts by result.",
		}, []string{"result"}),

		DBQueryDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: ns,
			Subsystem: "db",
			Name:      "query_duration_seconds",
			Help:      "Database query latency distribution.",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1.0},
		}, []string{"operation", "table"}),
	}
}

// ObserveQuery records the time since start for a repository operation.
func (c *Collector) ObserveQuery(operation, table string, start time.Time) {
	c.DBQueryDuration.WithLabelValues(operation, table).Observe(time.Since(start).Seconds())
}

func MetricsHandler(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}
