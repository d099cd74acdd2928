// observability — отправка паник и внутренних ошибок в Sentry.
// При пустом DSN клиент не инициализируется и все вызовы становятся no-op.
package observability

import (
	"time"

	"github.com/getsentry/sentry-go"

	"github.com/pribylovaa/session-service/internal/config"
)

const flushTimeout = 2 * time.Second

// InitSentry инициализирует глобальный клиент Sentry.
func InitSentry(cfg config.SentryConfig, environment string) error {
	if cfg.DSN == "" {
		return nil
	}

	return sentry.Init(sentry.ClientOptions{
		Dsn:              cfg.DSN,
		Environment:      environment,
		AttachStacktrace: true,
		TracesSampleRate: cfg.TracesSampleRate,
	})
}

// FlushSentry дожидается отправки буфера событий.
func FlushSentry() {
	sentry.Flush(flushTimeout)
}

// CaptureError отправляет внутреннюю ошибку с тегами запроса.
func CaptureError(err error, requestID, route string) {
	if err == nil {
		return
	}

	sentry.WithScope(func(scope *sentry.Scope) {
		if requestID != "" {
			scope.SetTag("request_id", requestID)
		}
		if route != "" {
			scope.SetTag("route", route)
		}
		sentry.CaptureException(err)
	})
}

// CapturePanic отправляет восстановленную панику со стеком.
func CapturePanic(rec any, stack []byte, requestID, route string) {
	sentry.WithScope(func(scope *sentry.Scope) {
		scope.SetExtra("panic", rec)
		scope.SetExtra("stack", string(stack))
		if requestID != "" {
			scope.SetTag("request_id", requestID)
		}
		if route != "" {
			scope.SetTag("route", route)
		}
		sentry.CaptureMessage("panic in request")
	})
}
