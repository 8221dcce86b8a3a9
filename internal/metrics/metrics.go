// Package metrics registers the Prometheus collectors for the relay.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	ConnectionsActive = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "chat_connections_active",
		Help: "Number of websocket sessions currently registered.",
	})

	ConnectionsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "chat_connections_total",
		Help: "Total number of websocket sessions accepted since start.",
	})

	AuthFailuresTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "chat_auth_failures_total",
		Help: "Handshake and API authentication failures by reason.",
	}, []string{"reason"})

	MessagesRoutedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "chat_messages_routed_total",
		Help: "Messages accepted, persisted and fanned out.",
	})

	MessagesRejectedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "chat_messages_rejected_total",
		Help: "Messages rejected before persistence, by error code.",
	}, []string{"code"})

	PersistFailuresTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "chat_persist_failures_total",
		Help: "Messages that failed to reach durable storage.",
	})

	DeliveriesDropped = promauto.NewCounter(prometheus.CounterOpts{
		Name: "chat_deliveries_dropped_total",
		Help: "Event pushes dropped because a session was closed or its buffer was full.",
	})

	PresenceBroadcasts = promauto.NewCounter(prometheus.CounterOpts{
		Name: "chat_presence_broadcasts_total",
		Help: "Presence snapshots broadcast after a connect or disconnect.",
	})

	HistoryCacheHits = promauto.NewCounter(prometheus.CounterOpts{
		Name: "chat_history_cache_hits_total",
		Help: "Conversation history reads served from cache.",
	})

	HistoryCacheMisses = promauto.NewCounter(prometheus.CounterOpts{
		Name: "chat_history_cache_misses_total",
		Help: "Conversation history reads that fell through to the store.",
	})

	MessageRouteDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "chat_message_route_duration_seconds",
		Help:    "Time from receiving a send intent to completed fan-out.",
		Buckets: prometheus.DefBuckets,
	})
)
