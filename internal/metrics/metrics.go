// Package metrics exposes Prometheus collectors for client exchanges with the
// daemon. A nil *Metrics is valid and records nothing.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// DefaultNamespace - пространство имён метрик по умолчанию
const DefaultNamespace = "jobqueue"

// Metrics - коллекторы клиента
type Metrics struct {
	requestsTotal   *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	connections     *prometheus.CounterVec
}

// New создаёт и регистрирует коллекторы. reg == nil означает DefaultRegisterer.
func New(namespace string, reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	if namespace == "" {
		namespace = DefaultNamespace
	}

	m := &Metrics{
		requestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "client_requests_total",
				Help:      "Total number of requests sent to the daemon",
			},
			[]string{"op", "status"},
		),
		requestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "client_request_duration_seconds",
				Help:      "Duration of request/response exchanges with the daemon",
				Buckets:   []float64{.0005, .001, .005, .01, .05, .1, .5, 1, 5, 30},
			},
			[]string{"op"},
		),
		connections: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "client_connections_total",
				Help:      "Connection attempts by result: ok, network_error, license_error",
			},
			[]string{"result"},
		),
	}

	reg.MustRegister(m.requestsTotal, m.requestDuration, m.connections)
	return m
}

// ObserveRequest учитывает один обмен запрос/ответ
func (m *Metrics) ObserveRequest(op, status string, duration time.Duration) {
	if m == nil {
		return
	}
	m.requestsTotal.WithLabelValues(op, status).Inc()
	m.requestDuration.WithLabelValues(op).Observe(duration.Seconds())
}

// ObserveConnect учитывает попытку подключения
func (m *Metrics) ObserveConnect(result string) {
	if m == nil {
		return
	}
	m.connections.WithLabelValues(result).Inc()
}
