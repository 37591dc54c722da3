package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() {
	register(webhookEventsTotal, gatewayRequestsTotal)
}

var (
	webhookEventsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "webhook_events_total",
			Help: "Inbound gateway webhook deliveries by event type and outcome.",
		},
		[]string{"type", "outcome"},
	)

	gatewayRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gateway_requests_total",
			Help: "Outbound gateway calls by operation and result.",
		},
		[]string{"op", "result"},
	)
)

func IncWebhookEvent(eventType, outcome string) {
	webhookEventsTotal.WithLabelValues(norm(eventType), norm(outcome)).Inc()
}

func IncGatewayRequest(op, result string) {
	gatewayRequestsTotal.WithLabelValues(norm(op), norm(result)).Inc()
}
