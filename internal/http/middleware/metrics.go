package middleware

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/pribylovaa/session-service/internal/metrics"
)

// Metrics пишет длительность запроса в гистограмму по шаблону маршрута chi,
// чтобы не плодить метки на каждый конкретный путь. nil-метрики — no-op.
func Metrics(m *metrics.Metrics) Middleware {
	return func(next http.Handler) http.Handler {
		if m == nil {
			return next
		}

		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			sw := newStatusWriter(w)
			start := time.Now()
			next.ServeHTTP(sw, r)

			m.ObserveHTTP(r.Method, routePattern(r), strconv.Itoa(sw.Status()), time.Since(start))
		})
	}
}

// routePattern — шаблон маршрута chi; "unmatched" для не найденных маршрутов.
func routePattern(r *http.Request) string {
	if rctx := chi.RouteContext(r.Context()); rctx != nil {
		if p := rctx.RoutePattern(); p != "" {
			return p
		}
	}

	return "unmatched"
}
