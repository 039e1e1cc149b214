package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	InboundMessages = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "jothi_gateway_inbound_messages_total",
			Help: "Total number of inbound chat messages",
		},
		[]string{"channel", "type"},
	)

	Commands = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "jothi_gateway_commands_total",
			Help: "Total number of dispatched commands by outcome",
		},
		[]string{"command", "outcome"},
	)

	Actions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "jothi_gateway_actions_total",
			Help: "Total number of background actions submitted",
		},
		[]string{"kind"},
	)

	Replies = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "jothi_gateway_replies_total",
			Help: "Total number of outbound replies by delivery result",
		},
		[]string{"channel", "result"},
	)

	ActiveSessions = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "jothi_gateway_active_sessions",
			Help: "Number of live conversational sessions",
		},
	)

	WorkerQueueDepth = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "jothi_gateway_worker_queue_depth",
			Help: "Number of actions waiting in the worker queue",
		},
	)
)
