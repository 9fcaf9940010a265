package printqueue

import (
	"github.com/prometheus/client_golang/prometheus"
)

const (
	namespace = "printqueue"
)

// Command outcomes used as the outcome label of the commands counter
const (
	outcomeAdded         = "added"
	outcomeNotAdmitted   = "not_admitted"
	outcomeRemoved       = "removed"
	outcomeNotFound      = "not_found"
	outcomeNotAtFront    = "not_at_front"
	outcomePersistFailed = "persist_failed"
	outcomeShown         = "shown"
	outcomeEmpty         = "empty"
	outcomeHelp          = "help"
	outcomeUnrecognized  = "unrecognized"
)

// Metrics holds the prometheus collectors of a bot along with the registry they're registered with
type Metrics struct {
	reg *prometheus.Registry

	commands         *prometheus.CounterVec
	queueLength      prometheus.Gauge
	snapshotFailures prometheus.Counter
	eventsReceived   *prometheus.CounterVec
	eventsDuplicate  prometheus.Counter
}

// NewMetrics creates a new Metrics instance with all collectors registered on a new registry
func NewMetrics() (m *Metrics) {
	m = &Metrics{reg: prometheus.NewRegistry()}

	m.commands = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "commands_total",
		Help:      "Total commands handled by command and outcome",
	}, []string{"command", "outcome"})
	m.queueLength = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "queue_length",
		Help:      "Number of entries in line",
	})
	m.snapshotFailures = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "snapshot_failures_total",
		Help:      "Total failures to save the queue snapshot",
	})
	m.eventsReceived = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "events_received_total",
		Help:      "Total slack events received by type",
	}, []string{"type"})
	m.eventsDuplicate = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "events_duplicate_total",
		Help:      "Total slack event deliveries dropped as duplicates",
	})

	m.reg.MustRegister(m.commands, m.queueLength, m.snapshotFailures, m.eventsReceived, m.eventsDuplicate)

	return m
}

// Registry returns the registry holding all collectors
func (m *Metrics) Registry() *prometheus.Registry {
	return m.reg
}

// CountEvent counts an event received from slack
func (m *Metrics) CountEvent(eventType string) {
	m.eventsReceived.WithLabelValues(eventType).Inc()
}

// CountDuplicateEvent counts an event dropped because it was already received
func (m *Metrics) CountDuplicateEvent() {
	m.eventsDuplicate.Inc()
}

func (m *Metrics) countCommand(command string, outcome string) {
	m.commands.WithLabelValues(command, outcome).Inc()
}

func (m *Metrics) countSnapshotFailure() {
	m.snapshotFailures.Inc()
}

func (m *Metrics) setQueueLength(length int) {
	m.queueLength.Set(float64(length))
}
