package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	apierrors "github.com/pribylovaa/session-service/internal/errors"
	"github.com/pribylovaa/session-service/internal/models"
	"github.com/pribylovaa/session-service/internal/pkg/log"
	"github.com/pribylovaa/session-service/internal/service"
)

// Имена cookie с токенами сессии.
const (
	AccessTokenCookie  = "accessToken"
	RefreshTokenCookie = "refreshToken"
)

// Authenticator проверяет access-токен и возвращает текущего пользователя.
type Authenticator interface {
	Authenticate(ctx context.Context, accessToken string) (*models.PublicUser, error)
}

type userKey struct{}

// Authorize — шлюз защищённых маршрутов.
//
// Токен берётся из заголовка "Authorization: Bearer <token>", а при его
// отсутствии из cookie accessToken. Пользователь перечитывается из хранилища
// на каждый запрос, так что удалённая учётная запись сразу теряет доступ.
// Найденный пользователь кладётся в контекст (см. UserFrom).
func Authorize(a Authenticator) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := accessToken(r)
			if token == "" {
				apierrors.WriteError(w, r, service.ErrTokenRequired)
				return
			}

			user, err := a.Authenticate(r.Context(), token)
			if err != nil {
				if !errors.Is(err, service.ErrUnauthenticated) {
					log.From(r.Context()).Error("authorize_failed", "err", err)
				}
				apierrors.WriteError(w, r, err)
				return
			}

			ctx := WithUser(r.Context(), *user)
			ctx = log.With(ctx, "user_id", user.ID.String())
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// WithUser кладёт пользователя в контекст.
func WithUser(ctx context.Context, u models.PublicUser) context.Context {
	return context.WithValue(ctx, userKey{}, u)
}

// UserFrom достаёт пользователя, положенного Authorize.
func UserFrom(ctx context.Context) (models.PublicUser, bool) {
	u, ok := ctx.Value(userKey{}).(models.PublicUser)
	return u, ok
}

func accessToken(r *http.Request) string {
	const prefix = "Bearer "

	if h := r.Header.Get("Authorization"); strings.HasPrefix(h, prefix) {
		if token := strings.TrimSpace(h[len(prefix):]); token != "" {
			return token
		}
	}

	if c, err := r.Cookie(AccessTokenCookie); err == nil {
		return strings.TrimSpace(c.Value)
	}

	return ""
}
