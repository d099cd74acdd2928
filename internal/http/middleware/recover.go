package middleware

import (
	"log/slog"
	"net/http"
	"runtime/debug"

	apierrors "github.com/pribylovaa/session-service/internal/errors"
	"github.com/pribylovaa/session-service/internal/observability"
	"github.com/pribylovaa/session-service/internal/pkg/log"
)

// Recover перехватывает panic, отправляет её в Sentry и отвечает 500.
// Детали паники клиенту не отдаются. http.ErrAbortHandler пробрасывается дальше.
func Recover() Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				rec := recover()
				if rec == nil {
					return
				}
				if rec == http.ErrAbortHandler {
					panic(rec)
				}

				stack := debug.Stack()
				log.From(r.Context()).LogAttrs(r.Context(), slog.LevelError, "panic_recovered",
					slog.String("route", routePattern(r)),
					slog.Any("reason", rec),
				)
				observability.CapturePanic(rec, stack, RequestIDFrom(r.Context()), routePattern(r))

				apierrors.Write(w, r, http.StatusInternalServerError, "something went wrong")
			}()

			next.ServeHTTP(w, r)
		})
	}
}
