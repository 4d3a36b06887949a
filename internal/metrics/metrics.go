package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	EventsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "beedee_callback_events_total",
			Help: "Callback events by outcome",
		},
		[]string{"outcome"}, // untrusted|non_human|not_command|dispatched|malformed|failed
	)

	CommandsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "beedee_commands_total",
			Help: "Dispatched commands by intent",
		},
		[]string{"intent"},
	)

	NotificationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "beedee_notifications_total",
			Help: "Outbound chat messages by kind and result",
		},
		[]string{"kind", "result"}, // birthday|reply , sent|failed|skipped
	)
)

var once sync.Once

// MustRegister registers the collectors once; later calls are no-ops.
func MustRegister(r prometheus.Registerer) {
	once.Do(func() {
		r.MustRegister(
			EventsTotal,
			CommandsTotal,
			NotificationsTotal,
		)
	})
}
