package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() {
	register(subscriptionTransitionsTotal)
}

var subscriptionTransitionsTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "subscription_transitions_total",
		Help: "Subscription lifecycle transitions by event and result.",
	},
	[]string{"event", "result"},
)

func IncSubscriptionTransition(event, result string) {
	subscriptionTransitionsTotal.WithLabelValues(norm(event), norm(result)).Inc()
}
