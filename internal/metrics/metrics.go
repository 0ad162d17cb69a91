package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics groups all Prometheus instruments used across the application.
// Registered once at startup via New(); passed by pointer wherever needed.
type Metrics struct {
	DeliveriesSent      prometheus.Counter
	DeliveriesFailed    *prometheus.CounterVec
	DeliveryLatency     prometheus.Histogram
	FanoutSize          prometheus.Histogram
	SubscriptionsPruned prometheus.Counter
	EventsAcknowledged  *prometheus.CounterVec
}

// New registers all instruments with the given Prometheus registerer and
// returns the populated Metrics struct.
// Using a custom registry (instead of prometheus.DefaultRegisterer) keeps
// tests isolated and avoids global state.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		DeliveriesSent: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "push_deliveries_sent_total",
			Help: "Total number of successfully delivered push messages.",
		}),

		DeliveriesFailed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "push_deliveries_failed_total",
			Help: "Total number of failed delivery attempts, by destination status code (0 = transport error).",
		}, []string{"status"}),

		DeliveryLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "push_delivery_seconds",
			Help:    "Latency of one delivery attempt from rate-limit grant to destination response.",
			Buckets: prometheus.DefBuckets,
		}),

		FanoutSize: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "push_fanout_size",
			Help:    "Number of subscriptions targeted per dispatch invocation.",
			Buckets: []float64{1, 2, 3, 5, 10, 25, 50, 100},
		}),

		SubscriptionsPruned: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "push_subscriptions_pruned_total",
			Help: "Total number of subscriptions deleted after a 410 Gone response.",
		}),

		EventsAcknowledged: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "queued_events_acknowledged_total",
			Help: "Total number of queued events deleted after processing, by terminal path.",
		}, []string{"reason"}),
	}

	reg.MustRegister(
		m.DeliveriesSent,
		m.DeliveriesFailed,
		m.DeliveryLatency,
		m.FanoutSize,
		m.SubscriptionsPruned,
		m.EventsAcknowledged,
	)

	return m
}

// FanoutHooks returns the metric callback functions expected by fanout.Hooks.
// Centralises the prometheus observation calls so the engine stays import-free.
func (m *Metrics) FanoutHooks() (
	onDelivered func(latency time.Duration),
	onFailed func(statusCode int),
) {
	onDelivered = func(latency time.Duration) {
		m.DeliveriesSent.Inc()
		m.DeliveryLatency.Observe(latency.Seconds())
	}
	onFailed = func(statusCode int) {
		m.DeliveriesFailed.WithLabelValues(strconv.Itoa(statusCode)).Inc()
	}
	return
}

// PipelineHooks returns the callbacks expected by service.Hooks.
func (m *Metrics) PipelineHooks() (
	onFanout func(size int),
	onPruned func(),
	onAcknowledged func(reason string),
) {
	onFanout = func(size int) {
		m.FanoutSize.Observe(float64(size))
	}
	onPruned = func() {
		m.SubscriptionsPruned.Inc()
	}
	onAcknowledged = func(reason string) {
		m.EventsAcknowledged.WithLabelValues(reason).Inc()
	}
	return
}
