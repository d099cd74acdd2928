// metrics — счётчики сессионных событий и гистограмма HTTP-запросов Prometheus.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Имена событий сессии.
const (
	EventRegister       = "register"
	EventLogin          = "login"
	EventLogout         = "logout"
	EventRefresh        = "refresh"
	EventChangePassword = "change_password"
)

// Исходы событий.
const (
	OutcomeSuccess  = "success"
	OutcomeRejected = "rejected"
	OutcomeError    = "error"
)

// Metrics объединяет коллекторы сервиса. Методы безопасны для nil-получателя,
// поэтому в тестах и без реестра метрики можно не создавать.
type Metrics struct {
	sessionEvents *prometheus.CounterVec
	httpDuration  *prometheus.HistogramVec
}

// New создаёт коллекторы и регистрирует их в reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		sessionEvents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "session",
			Name:      "events_total",
			Help:      "Session lifecycle events by outcome.",
		}, []string{"event", "outcome"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "session",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request latency by route pattern and status.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route", "status"}),
	}

	reg.MustRegister(m.sessionEvents, m.httpDuration)

	return m
}

// Session учитывает событие сессии с исходом.
func (m *Metrics) Session(event, outcome string) {
	if m == nil {
		return
	}

	m.sessionEvents.WithLabelValues(event, outcome).Inc()
}

// ObserveHTTP учитывает длительность HTTP-запроса.
func (m *Metrics) ObserveHTTP(method, route, status string, d time.Duration) {
	if m == nil {
		return
	}

	m.httpDuration.WithLabelValues(method, route, status).Observe(d.Seconds())
}
