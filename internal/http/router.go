package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/pribylovaa/session-service/internal/http/handlers"
	"github.com/pribylovaa/session-service/internal/http/middleware"
	"github.com/pribylovaa/session-service/internal/metrics"
	"github.com/pribylovaa/session-service/internal/ratelimit"
)

// Service — сервисный слой целиком: операции обработчиков и проверка токена для шлюза.
type Service interface {
	handlers.Sessions
	middleware.Authenticator
}

// Options — параметры сборки HTTP-роутера.
type Options struct {
	Logger   *slog.Logger
	Timeout  time.Duration
	BasePath string // например, "/api/v1/users"; пустой — роуты на корне.
	Metrics  *metrics.Metrics
	// LoginLimiter ограничивает попытки входа; nil отключает ограничение.
	LoginLimiter ratelimit.Limiter
	// TrustProxy включает разбор X-Forwarded-For/X-Real-IP для адреса клиента.
	TrustProxy bool
	Handlers   handlers.Options
}

// NewRouter собирает http.Handler с chi и подключёнными middleware/роутами.
func NewRouter(svc Service, opts Options) http.Handler {
	root := chi.NewRouter()

	if opts.TrustProxy {
		root.Use(chimw.RealIP)
	}

	// Middleware (внешний -> внутренний).
	root.Use(
		middleware.RequestID(),          // до логирования и Recover: id нужен обоим
		middleware.Logging(opts.Logger), // request-scoped логгер в контексте
		middleware.Metrics(opts.Metrics),
		middleware.Recover(),
		middleware.Timeout(opts.Timeout),
	)

	h := handlers.New(svc, opts.Handlers)

	if opts.BasePath != "" {
		sub := chi.NewRouter()
		registerRoutes(sub, h, svc, opts.LoginLimiter)
		root.Mount(opts.BasePath, sub)
		return root
	}

	registerRoutes(root, h, svc, opts.LoginLimiter)
	return root
}

// registerRoutes — единая точка регистрации REST-эндпойнтов.
func registerRoutes(r chi.Router, h *handlers.Handlers, auth middleware.Authenticator, limiter ratelimit.Limiter) {
	// публичные
	r.Post("/register", h.Register)
	r.With(middleware.RateLimit(limiter, "too many login attempts")).Post("/login", h.Login)
	r.Post("/refresh-token", h.RefreshToken)

	// защищённые
	r.Group(func(r chi.Router) {
		r.Use(middleware.Authorize(auth))

		r.Post("/logout", h.Logout)
		r.Post("/change-password", h.ChangePassword)
		r.Get("/current-user", h.CurrentUser)
		r.Patch("/update-account-details", h.UpdateAccountDetails)
		r.Patch("/update-user-avatar", h.UpdateAvatar)
		r.Patch("/update-user-cover-image", h.UpdateCoverImage)
	})
}
