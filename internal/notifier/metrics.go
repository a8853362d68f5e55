package notifier

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "krodit"

var (
	reminderDeliveries = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "reminders",
			Name:      "deliveries_total",
			Help:      "Reminder delivery outcomes by channel",
		},
		[]string{"channel", "status"},
	)

	deliveryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "reminders",
			Name:      "delivery_duration_seconds",
			Help:      "Time to deliver one reminder to one target",
			Buckets:   []float64{.01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		},
		[]string{"channel"},
	)

	endpointsPruned = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "reminders",
			Name:      "endpoints_pruned_total",
			Help:      "Push endpoints removed after the push service reported them gone",
		},
	)
)

// recordDelivery records a delivery outcome metric.
func recordDelivery(channel, status string) {
	reminderDeliveries.WithLabelValues(channel, status).Inc()
}

// recordDeliveryDuration records how long one send took.
func recordDeliveryDuration(channel string, duration time.Duration) {
	deliveryDuration.WithLabelValues(channel).Observe(duration.Seconds())
}

// recordEndpointPruned records removal of a dead endpoint.
func recordEndpointPruned() {
	endpointsPruned.Inc()
}
