// Package telemetry holds the process-wide Prometheus registry and the
// counters recorded by the networking layer.
package telemetry

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	Registry = prometheus.NewRegistry()

	GossipMessagesReceived = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "beaconp2p",
		Name:      "gossip_messages_received_total",
		Help:      "Messages delivered by the gossip mesh, decodable or not.",
	})

	GossipDecodeFailures = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "beaconp2p",
		Name:      "gossip_decode_failures_total",
		Help:      "Gossip payloads dropped because they failed to decode.",
	})

	GossipPublishes = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "beaconp2p",
		Name:      "gossip_publishes_total",
		Help:      "Publish calls issued to the gossip mesh, one per topic.",
	})

	EventsQueued = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "beaconp2p",
		Name:      "outward_events_queued_total",
		Help:      "Normalized events pushed onto the outward queue.",
	})

	EventsPolled = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "beaconp2p",
		Name:      "outward_events_polled_total",
		Help:      "Events drained from the outward queue by the service loop.",
	})

	RPCSent = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "beaconp2p",
		Name:      "rpc_sent_total",
		Help:      "Outbound request/response exchanges scheduled.",
	})
)

func init() {
	Registry.MustRegister(
		GossipMessagesReceived,
		GossipDecodeFailures,
		GossipPublishes,
		EventsQueued,
		EventsPolled,
		RPCSent,
	)
}

// MetricsHandler exposes /metrics for the registry above.
func MetricsHandler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{})
}
