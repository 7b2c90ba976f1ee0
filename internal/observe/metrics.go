package observe

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	onlineUsers = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "chat_online_users",
		Help: "Number of sessions currently joined to a room",
	})

	messagesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chat_messages_total",
			Help: "Total messages broadcast by origin",
		},
		[]string{"origin"}, // local|remote
	)

	droppedMessagesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chat_dropped_messages_total",
			Help: "Total deliveries dropped due to a full session queue",
		},
		[]string{"policy"}, // drop-newest|drop-oldest|disconnect
	)

	sessionsClosedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chat_sessions_closed_total",
			Help: "Total sessions torn down by reason",
		},
		[]string{"reason"}, // eof|read|write|protocol|slow|shutdown
	)

	handshakeFailuresTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "chat_handshake_failures_total",
		Help: "Total connections closed before a username was received",
	})

	relayErrorsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "chat_relay_errors_total",
		Help: "Total relay publish or decode failures",
	})
)

func init() {
	prometheus.MustRegister(
		onlineUsers,
		messagesTotal,
		droppedMessagesTotal,
		sessionsClosedTotal,
		handshakeFailuresTotal,
		relayErrorsTotal,
	)
}

func AddOnline(delta float64)        { onlineUsers.Add(delta) }
func IncMessage(origin string)       { messagesTotal.WithLabelValues(origin).Inc() }
func IncDropped(policy string)       { droppedMessagesTotal.WithLabelValues(policy).Inc() }
func IncSessionClosed(reason string) { sessionsClosedTotal.WithLabelValues(reason).Inc() }
func IncHandshakeFailure()           { handshakeFailuresTotal.Inc() }
func IncRelayError()                 { relayErrorsTotal.Inc() }
