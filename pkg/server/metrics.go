package server

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics collects Prometheus metrics for the server. Each server owns its
// own registry so multiple instances can coexist in one process.
type Metrics struct {
	registry *prometheus.Registry

	connectionsTotal *prometheus.CounterVec
	activeSessions   prometheus.Gauge
	sessionsCreated  prometheus.Counter
	sessionsClosed   prometheus.Counter
	linesReceived    *prometheus.CounterVec
	linesSent        prometheus.Counter
	tagUpdates       *prometheus.CounterVec
	activeTagSets    prometheus.Gauge
	taggedDeliveries prometheus.Counter
	deliveryFanout   prometheus.Histogram
	configReloads    *prometheus.CounterVec
}

// NewMetrics creates and registers all server metrics.
func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		connectionsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "customtags",
			Name:      "connections_total",
			Help:      "Accepted connections by transport.",
		}, []string{"transport"}),
		activeSessions: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "customtags",
			Name:      "active_sessions",
			Help:      "Currently connected sessions.",
		}),
		sessionsCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "customtags",
			Name:      "sessions_created_total",
			Help:      "Sessions created since start.",
		}),
		sessionsClosed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "customtags",
			Name:      "sessions_closed_total",
			Help:      "Sessions closed since start.",
		}),
		linesReceived: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "customtags",
			Name:      "lines_received_total",
			Help:      "Lines received by command.",
		}, []string{"command"}),
		linesSent: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "customtags",
			Name:      "lines_sent_total",
			Help:      "Lines written to clients.",
		}),
		tagUpdates: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "customtags",
			Name:      "tag_updates_total",
			Help:      "Tag list updates from services by result.",
		}, []string{"result"}),
		activeTagSets: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "customtags",
			Name:      "active_tag_sets",
			Help:      "Sessions currently carrying a tag set.",
		}),
		taggedDeliveries: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "customtags",
			Name:      "tagged_deliveries_total",
			Help:      "Deliveries that carried at least one custom tag.",
		}),
		deliveryFanout: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "customtags",
			Name:      "delivery_fanout",
			Help:      "Recipients per delivered message.",
			Buckets:   []float64{1, 2, 5, 10, 25, 50, 100, 250},
		}),
		configReloads: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "customtags",
			Name:      "config_reloads_total",
			Help:      "Configuration reloads by result.",
		}, []string{"result"}),
	}

	m.registry.MustRegister(
		m.connectionsTotal,
		m.activeSessions,
		m.sessionsCreated,
		m.sessionsClosed,
		m.linesReceived,
		m.linesSent,
		m.tagUpdates,
		m.activeTagSets,
		m.taggedDeliveries,
		m.deliveryFanout,
		m.configReloads,
	)

	return m
}

// Handler returns the /metrics HTTP handler for this server's registry.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// RecordConnection tracks an accepted connection by transport.
func (m *Metrics) RecordConnection(transport string) {
	m.connectionsTotal.WithLabelValues(transport).Inc()
}

// RecordActiveSessions sets the current session count.
func (m *Metrics) RecordActiveSessions(count int) {
	m.activeSessions.Set(float64(count))
}

// RecordSessionCreated tracks a session creation.
func (m *Metrics) RecordSessionCreated() {
	m.sessionsCreated.Inc()
}

// RecordSessionDisconnected tracks a session teardown.
func (m *Metrics) RecordSessionDisconnected() {
	m.sessionsClosed.Inc()
}

// RecordLineReceived tracks one received line by command.
func (m *Metrics) RecordLineReceived(command string) {
	m.linesReceived.WithLabelValues(command).Inc()
}

// RecordLineSent tracks one line written to a client.
func (m *Metrics) RecordLineSent() {
	m.linesSent.Inc()
}

// RecordTagUpdate tracks a services tag update: "applied", "cleared", or
// "rejected".
func (m *Metrics) RecordTagUpdate(result string) {
	m.tagUpdates.WithLabelValues(result).Inc()
}

// RecordActiveTagSets sets the number of sessions carrying a tag set.
func (m *Metrics) RecordActiveTagSets(count int) {
	m.activeTagSets.Set(float64(count))
}

// RecordTaggedDelivery tracks a delivery that carried at least one custom
// tag.
func (m *Metrics) RecordTaggedDelivery() {
	m.taggedDeliveries.Inc()
}

// RecordFanout tracks how many recipients one delivered message reached.
func (m *Metrics) RecordFanout(count int) {
	m.deliveryFanout.Observe(float64(count))
}

// RecordConfigReload tracks a reload attempt: "ok" or "error".
func (m *Metrics) RecordConfigReload(result string) {
	m.configReloads.WithLabelValues(result).Inc()
}
