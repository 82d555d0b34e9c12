package metrics

import (
	"log"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// PrometheusSink implements Sink using the Prometheus client library.
// All methods are non-blocking and fire-and-forget.
// Registration errors are logged but never propagated.
type PrometheusSink struct {
	eventOutcomesTotal       *prometheus.CounterVec
	aggregationDuration      prometheus.Histogram
	aggregationErrorsTotal   prometheus.Counter
	eventsInFlight           prometheus.Gauge
	bufferSize               prometheus.Gauge
	emitErrorsTotal          prometheus.Counter
	ledgerEntriesPrunedTotal prometheus.Counter
}

// NewPrometheusSink creates a new Prometheus metrics sink.
// Metrics that fail to register keep working locally; only the
// registration is lost.
func NewPrometheusSink(reg prometheus.Registerer) *PrometheusSink {
	s := &PrometheusSink{}

	s.eventOutcomesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "pulse_consumer_event_outcomes_total",
		Help: "Total number of consumed events by final outcome.",
	}, []string{"outcome", "category"})

	s.aggregationDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "pulse_consumer_aggregation_duration_seconds",
		Help:    "Duration of one event aggregation in seconds.",
		Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 2},
	})

	s.aggregationErrorsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "pulse_consumer_aggregation_errors_total",
		Help: "Total number of failed aggregations.",
	})

	s.eventsInFlight = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "pulse_consumer_events_in_flight",
		Help: "Number of events currently being processed.",
	})

	s.bufferSize = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "pulse_eventbus_buffer_size",
		Help: "Current number of events in the event bus buffer.",
	})

	s.emitErrorsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "pulse_eventbus_emit_errors_total",
		Help: "Total number of emit errors (buffer full).",
	})

	s.ledgerEntriesPrunedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "pulse_retention_ledger_entries_pruned_total",
		Help: "Total number of idempotency ledger entries removed by retention sweeps.",
	})

	s.register(reg, s.eventOutcomesTotal, "pulse_consumer_event_outcomes_total")
	s.register(reg, s.aggregationDuration, "pulse_consumer_aggregation_duration_seconds")
	s.register(reg, s.aggregationErrorsTotal, "pulse_consumer_aggregation_errors_total")
	s.register(reg, s.eventsInFlight, "pulse_consumer_events_in_flight")
	s.register(reg, s.bufferSize, "pulse_eventbus_buffer_size")
	s.register(reg, s.emitErrorsTotal, "pulse_eventbus_emit_errors_total")
	s.register(reg, s.ledgerEntriesPrunedTotal, "pulse_retention_ledger_entries_pruned_total")

	return s
}

// register attempts to register a collector, logging any errors without propagating them.
func (s *PrometheusSink) register(reg prometheus.Registerer, c prometheus.Collector, name string) {
	if err := reg.Register(c); err != nil {
		log.Printf("metrics: failed to register %s: %v", name, err)
	}
}

func (s *PrometheusSink) EventOutcome(outcome string, category string) {
	s.eventOutcomesTotal.WithLabelValues(outcome, category).Inc()
}

func (s *PrometheusSink) AggregationCompleted(duration time.Duration, err error) {
	s.aggregationDuration.Observe(duration.Seconds())
	if err != nil {
		s.aggregationErrorsTotal.Inc()
	}
}

func (s *PrometheusSink) EventsInFlightIncr() {
	s.eventsInFlight.Inc()
}

func (s *PrometheusSink) EventsInFlightDecr() {
	s.eventsInFlight.Dec()
}

func (s *PrometheusSink) BufferSizeUpdate(size int) {
	s.bufferSize.Set(float64(size))
}

func (s *PrometheusSink) EmitError() {
	s.emitErrorsTotal.Inc()
}

func (s *PrometheusSink) LedgerPruned(removed int64) {
	s.ledgerEntriesPrunedTotal.Add(float64(removed))
}
