package handlers

import (
	"errors"
	"io"
	"net/http"
	"strings"

	apierrors "github.com/pribylovaa/session-service/internal/errors"
	"github.com/pribylovaa/session-service/internal/http/middleware"
	"github.com/pribylovaa/session-service/internal/models"
	"github.com/pribylovaa/session-service/internal/service"
)

const (
	msgInvalidBody      = "invalid request body"
	msgInvalidMultipart = "invalid multipart form"
)

// Register — POST /register (multipart: username, email, password, fullName,
// avatar, coverImage).
func (h *Handlers) Register(w http.ResponseWriter, r *http.Request) {
	cleanup, err := h.parseMultipart(w, r)
	defer cleanup()
	if err != nil {
		apierrors.Write(w, r, http.StatusBadRequest, msgInvalidMultipart)
		return
	}

	avatar, closeAvatar, err := formFile(r, "avatar")
	defer closeAvatar()
	if err != nil {
		apierrors.Write(w, r, http.StatusBadRequest, msgInvalidMultipart)
		return
	}

	cover, closeCover, err := formFile(r, "coverImage")
	defer closeCover()
	if err != nil {
		apierrors.Write(w, r, http.StatusBadRequest, msgInvalidMultipart)
		return
	}

	user, err := h.svc.Register(r.Context(), service.RegisterInput{
		Username:   r.FormValue("username"),
		Email:      r.FormValue("email"),
		Password:   r.FormValue("password"),
		FullName:   r.FormValue("fullName"),
		Avatar:     avatar,
		CoverImage: cover,
	})
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	respond(w, http.StatusCreated, "user registered successfully", userFromModel(*user))
}

// Login — POST /login. Токены уходят и в теле, и в cookie.
func (h *Handlers) Login(w http.ResponseWriter, r *http.Request) {
	var in LoginRequest
	if err := decodeStrict(r, &in); err != nil {
		apierrors.Write(w, r, http.StatusBadRequest, msgInvalidBody)
		return
	}

	sess, err := h.svc.Login(r.Context(), service.LoginInput{
		Username: in.Username,
		Email:    in.Email,
		Password: in.Password,
	})
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	h.setSessionCookies(w, sess.Tokens)
	respond(w, http.StatusOK, "user logged in successfully", LoginData{
		User:         userFromModel(sess.User),
		AccessToken:  sess.Tokens.AccessToken,
		RefreshToken: sess.Tokens.RefreshToken,
	})
}

// Logout — POST /logout (авторизованный).
func (h *Handlers) Logout(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}

	if err := h.svc.Logout(r.Context(), user.ID); err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	h.clearSessionCookies(w)
	respond(w, http.StatusOK, "user logged out", empty{})
}

// RefreshToken — POST /refresh-token. Токен берётся из cookie, затем из тела.
// Любая проблема с телом запроса даёт тот же 401, что и невалидный токен.
func (h *Handlers) RefreshToken(w http.ResponseWriter, r *http.Request) {
	token := ""
	if c, err := r.Cookie(middleware.RefreshTokenCookie); err == nil {
		token = strings.TrimSpace(c.Value)
	}

	if token == "" {
		var in RefreshRequest
		if err := decodeStrict(r, &in); err != nil && !errors.Is(err, io.EOF) {
			apierrors.WriteError(w, r, service.ErrInvalidRefreshToken)
			return
		}
		token = in.RefreshToken
	}

	pair, err := h.svc.RefreshAccessToken(r.Context(), token)
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	h.setSessionCookies(w, *pair)
	respond(w, http.StatusOK, "access token refreshed", TokensData{
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
	})
}

// ChangePassword — POST /change-password (авторизованный).
func (h *Handlers) ChangePassword(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}

	var in ChangePasswordRequest
	if err := decodeStrict(r, &in); err != nil {
		apierrors.Write(w, r, http.StatusBadRequest, msgInvalidBody)
		return
	}

	if err := h.svc.ChangePassword(r.Context(), user.ID, in.OldPassword, in.NewPassword); err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	respond(w, http.StatusOK, "password changed successfully", empty{})
}

// CurrentUser — GET /current-user (авторизованный). Пользователь уже
// перечитан шлюзом авторизации.
func (h *Handlers) CurrentUser(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}

	respond(w, http.StatusOK, "current user fetched successfully", userFromModel(user))
}

// currentUser достаёт пользователя из контекста. Если его нет, маршрут
// подключён без Authorize: отвечаем 401.
func currentUser(w http.ResponseWriter, r *http.Request) (models.PublicUser, bool) {
	user, ok := middleware.UserFrom(r.Context())
	if !ok {
		apierrors.WriteError(w, r, service.ErrTokenRequired)
	}

	return user, ok
}
