package handlers

import (
	"net/http"
	"time"

	"github.com/pribylovaa/session-service/internal/http/middleware"
	"github.com/pribylovaa/session-service/internal/models"
)

// setSessionCookies выставляет cookie accessToken и refreshToken со сроком
// жизни, равным TTL соответствующего токена.
func (h *Handlers) setSessionCookies(w http.ResponseWriter, pair models.TokenPair) {
	http.SetCookie(w, h.cookie(middleware.AccessTokenCookie, pair.AccessToken, h.opts.AccessTokenTTL))
	http.SetCookie(w, h.cookie(middleware.RefreshTokenCookie, pair.RefreshToken, h.opts.RefreshTokenTTL))
}

// clearSessionCookies удаляет обе cookie (Max-Age=0 в заголовке).
func (h *Handlers) clearSessionCookies(w http.ResponseWriter) {
	http.SetCookie(w, h.cookie(middleware.AccessTokenCookie, "", -1))
	http.SetCookie(w, h.cookie(middleware.RefreshTokenCookie, "", -1))
}

// cookie собирает cookie с общими атрибутами. ttl < 0 удаляет cookie.
func (h *Handlers) cookie(name, value string, ttl time.Duration) *http.Cookie {
	c := &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		Domain:   h.opts.Cookies.Domain,
		HttpOnly: true,
		Secure:   !h.opts.Cookies.Insecure,
		SameSite: h.opts.Cookies.SameSiteMode(),
	}

	if ttl < 0 {
		c.MaxAge = -1
		c.Expires = time.Unix(0, 0)
		return c
	}

	c.MaxAge = int(ttl.Seconds())
	return c
}
