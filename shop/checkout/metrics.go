package checkout

import "github.com/prometheus/client_golang/prometheus"

var eventsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
	Name: "petertrain_checkout_events_total",
	Help: "Conversation events processed, by event and outcome kind.",
}, []string{"event", "outcome"})

var ordersTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
	Name: "petertrain_orders_total",
	Help: "Payment completions by result: recorded, duplicate or failed.",
}, []string{"status"})

// Collectors returns the checkout metrics for registration.
func Collectors() []prometheus.Collector {
	return []prometheus.Collector{eventsTotal, ordersTotal}
}
