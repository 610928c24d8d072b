package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	Connections = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "classroom_chat",
		Name:      "ws_connections",
		Help:      "Live websocket connections.",
	})

	EventsHandled = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "classroom_chat",
		Name:      "ws_events_total",
		Help:      "Inbound websocket events by type and outcome.",
	}, []string{"type", "outcome"})

	EventsDelivered = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "classroom_chat",
		Name:      "ws_events_delivered_total",
		Help:      "Server pushes queued to a connection.",
	})

	EventsDropped = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "classroom_chat",
		Name:      "ws_events_dropped_total",
		Help:      "Server pushes dropped because the connection buffer was full.",
	})

	StoreFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "classroom_chat",
		Name:      "store_failures_total",
		Help:      "Record store calls that failed or timed out, by operation.",
	}, []string{"op"})

	RoomsReaped = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "classroom_chat",
		Name:      "rooms_reaped_total",
		Help:      "Rooms closed by the expiry reaper, by result.",
	}, []string{"result"})
)

const (
	OutcomeOK       = "ok"
	OutcomeRejected = "rejected"
	OutcomeFault    = "fault"
)
