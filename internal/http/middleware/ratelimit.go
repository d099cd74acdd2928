package middleware

import (
	"math"
	"net"
	"net/http"
	"strconv"

	apierrors "github.com/pribylovaa/session-service/internal/errors"
	"github.com/pribylovaa/session-service/internal/pkg/log"
	"github.com/pribylovaa/session-service/internal/ratelimit"
)

// RateLimit ограничивает частоту запросов с одного адреса клиента.
// При превышении отвечает 429 с Retry-After. Ошибка лимитера не блокирует
// запрос: он пропускается, а ошибка логируется. nil-лимитер — no-op.
func RateLimit(l ratelimit.Limiter, msg string) Middleware {
	return func(next http.Handler) http.Handler {
		if l == nil {
			return next
		}

		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ok, retry, err := l.Allow(r.Context(), clientIP(r))
			if err != nil {
				log.From(r.Context()).Warn("rate_limiter_unavailable", "err", err)
				next.ServeHTTP(w, r)
				return
			}

			if !ok {
				secs := int(math.Ceil(retry.Seconds()))
				if secs < 1 {
					secs = 1
				}
				w.Header().Set("Retry-After", strconv.Itoa(secs))
				apierrors.Write(w, r, http.StatusTooManyRequests, msg)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// clientIP — хост из RemoteAddr. За прокси RemoteAddr должен выставлять
// chi middleware.RealIP.
func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}

	return host
}
