package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"strings"
	"testing"
	"time"

	"github.com/golang/mock/gomock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/pribylovaa/session-service/internal/assets"
	"github.com/pribylovaa/session-service/internal/config"
	"github.com/pribylovaa/session-service/internal/http/middleware"
	"github.com/pribylovaa/session-service/internal/models"
	"github.com/pribylovaa/session-service/internal/service"
	"github.com/pribylovaa/session-service/mocks"
)

func testOptions() Options {
	return Options{
		Cookies:         config.CookiesConfig{SameSite: "strict"},
		AccessTokenTTL:  15 * time.Minute,
		RefreshTokenTTL: 240 * time.Hour,
		MaxUploadBytes:  1 << 20,
	}
}

func newHandlers(t *testing.T) (*Handlers, *mocks.MockSessions) {
	t.Helper()

	ctrl := gomock.NewController(t)
	svc := mocks.NewMockSessions(ctrl)
	return New(svc, testOptions()), svc
}

func publicUser() models.PublicUser {
	now := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	return models.PublicUser{
		ID:        uuid.New(),
		Username:  "neo",
		Email:     "neo@matrix.io",
		FullName:  "Thomas Anderson",
		Avatar:    "https://cdn/avatars/a.png",
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func authed(req *http.Request, u models.PublicUser) *http.Request {
	return req.WithContext(middleware.WithUser(req.Context(), u))
}

func jsonReq(method, target, body string) *http.Request {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	return req
}

type part struct {
	field, filename, contentType, content string
}

// multipartReq собирает multipart-запрос из текстовых полей и файлов.
func multipartReq(t *testing.T, method, target string, fields map[string]string, files ...part) *http.Request {
	t.Helper()

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)

	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}

	for _, f := range files {
		hdr := make(textproto.MIMEHeader)
		hdr.Set("Content-Disposition", `form-data; name="`+f.field+`"; filename="`+f.filename+`"`)
		hdr.Set("Content-Type", f.contentType)
		pw, err := mw.CreatePart(hdr)
		require.NoError(t, err)
		_, err = pw.Write([]byte(f.content))
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(method, target, &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

type envelope struct {
	StatusCode int             `json:"statusCode"`
	Message    string          `json:"message"`
	Data       json.RawMessage `json:"data"`
	Success    bool            `json:"success"`
}

func decode(t *testing.T, rr *httptest.ResponseRecorder) envelope {
	t.Helper()

	var env envelope
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &env))
	return env
}

func cookieByName(rr *httptest.ResponseRecorder, name string) *http.Cookie {
	for _, c := range rr.Result().Cookies() {
		if c.Name == name {
			return c
		}
	}

	return nil
}

// ---------- Register ----------

func TestRegister_Created(t *testing.T) {
	t.Parallel()

	h, svc := newHandlers(t)
	u := publicUser()

	svc.EXPECT().Register(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, in service.RegisterInput) (*models.PublicUser, error) {
			require.Equal(t, "neo", in.Username)
			require.Equal(t, "neo@matrix.io", in.Email)
			require.Equal(t, "red-pill", in.Password)
			require.Equal(t, "Thomas Anderson", in.FullName)

			require.NotNil(t, in.Avatar)
			require.Equal(t, "a.png", in.Avatar.Filename)
			require.Equal(t, "image/png", in.Avatar.ContentType)
			require.EqualValues(t, 3, in.Avatar.Size)
			body, err := io.ReadAll(in.Avatar.Body)
			require.NoError(t, err)
			require.Equal(t, "png", string(body))

			require.Nil(t, in.CoverImage)
			return &u, nil
		})

	req := multipartReq(t, http.MethodPost, "/register", map[string]string{
		"username": "neo",
		"email":    "neo@matrix.io",
		"password": "red-pill",
		"fullName": "Thomas Anderson",
	}, part{"avatar", "a.png", "image/png", "png"})

	rr := httptest.NewRecorder()
	h.Register(rr, req)

	require.Equal(t, http.StatusCreated, rr.Code)
	env := decode(t, rr)
	require.Equal(t, http.StatusCreated, env.StatusCode)
	require.True(t, env.Success)

	var got User
	require.NoError(t, json.Unmarshal(env.Data, &got))
	require.Equal(t, u.ID.String(), got.ID)

	// Секретных полей в ответе нет.
	require.NotContains(t, rr.Body.String(), "password")
	require.NotContains(t, rr.Body.String(), "refreshToken")
}

func TestRegister_NotMultipart_400(t *testing.T) {
	t.Parallel()

	h, _ := newHandlers(t)

	rr := httptest.NewRecorder()
	h.Register(rr, jsonReq(http.MethodPost, "/register", `{"username":"neo"}`))

	require.Equal(t, http.StatusBadRequest, rr.Code)
	require.False(t, decode(t, rr).Success)
}

func TestRegister_ServiceErrorMapped(t *testing.T) {
	t.Parallel()

	h, svc := newHandlers(t)
	svc.EXPECT().Register(gomock.Any(), gomock.Any()).Return(nil, service.ErrUserExists)

	req := multipartReq(t, http.MethodPost, "/register", map[string]string{"username": "neo"})
	rr := httptest.NewRecorder()
	h.Register(rr, req)

	require.Equal(t, http.StatusConflict, rr.Code)
	require.Equal(t, "user with this username or email already exists", decode(t, rr).Message)
}

// ---------- Login ----------

func TestLogin_SetsCookiesAndBody(t *testing.T) {
	t.Parallel()

	h, svc := newHandlers(t)
	u := publicUser()

	svc.EXPECT().Login(gomock.Any(), service.LoginInput{Email: "neo@matrix.io", Password: "pw"}).
		Return(&models.Session{User: u, Tokens: models.TokenPair{AccessToken: "acc", RefreshToken: "ref"}}, nil)

	rr := httptest.NewRecorder()
	h.Login(rr, jsonReq(http.MethodPost, "/login", `{"email":"neo@matrix.io","password":"pw"}`))

	require.Equal(t, http.StatusOK, rr.Code)

	var data LoginData
	require.NoError(t, json.Unmarshal(decode(t, rr).Data, &data))
	require.Equal(t, "acc", data.AccessToken)
	require.Equal(t, "ref", data.RefreshToken)
	require.Equal(t, u.Username, data.User.Username)

	ac := cookieByName(rr, middleware.AccessTokenCookie)
	require.NotNil(t, ac)
	require.Equal(t, "acc", ac.Value)
	require.True(t, ac.HttpOnly)
	require.True(t, ac.Secure)
	require.Equal(t, "/", ac.Path)
	require.Equal(t, http.SameSiteStrictMode, ac.SameSite)
	require.Equal(t, int((15 * time.Minute).Seconds()), ac.MaxAge)

	rc := cookieByName(rr, middleware.RefreshTokenCookie)
	require.NotNil(t, rc)
	require.Equal(t, "ref", rc.Value)
	require.Equal(t, int((240 * time.Hour).Seconds()), rc.MaxAge)
}

func TestLogin_BadJSON_400(t *testing.T) {
	t.Parallel()

	h, _ := newHandlers(t)

	for _, body := range []string{`{`, `{"login":"neo"}`} {
		rr := httptest.NewRecorder()
		h.Login(rr, jsonReq(http.MethodPost, "/login", body))
		require.Equal(t, http.StatusBadRequest, rr.Code, body)
	}
}

func TestLogin_Errors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		err  error
		want int
	}{
		{"not found", service.ErrUserNotFound, http.StatusNotFound},
		{"bad password", service.ErrInvalidCredentials, http.StatusUnauthorized},
		{"missing", service.ErrIdentifierRequired, http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			h, svc := newHandlers(t)
			svc.EXPECT().Login(gomock.Any(), gomock.Any()).Return(nil, tt.err)

			rr := httptest.NewRecorder()
			h.Login(rr, jsonReq(http.MethodPost, "/login", `{"username":"neo","password":"pw"}`))

			require.Equal(t, tt.want, rr.Code)
			require.Nil(t, cookieByName(rr, middleware.AccessTokenCookie))
		})
	}
}

// ---------- Logout ----------

func TestLogout_ClearsCookies(t *testing.T) {
	t.Parallel()

	h, svc := newHandlers(t)
	u := publicUser()
	svc.EXPECT().Logout(gomock.Any(), u.ID).Return(nil)

	rr := httptest.NewRecorder()
	h.Logout(rr, authed(httptest.NewRequest(http.MethodPost, "/logout", nil), u))

	require.Equal(t, http.StatusOK, rr.Code)
	require.JSONEq(t, `{}`, string(decode(t, rr).Data))

	for _, name := range []string{middleware.AccessTokenCookie, middleware.RefreshTokenCookie} {
		c := cookieByName(rr, name)
		require.NotNil(t, c, name)
		require.Empty(t, c.Value)
		require.Equal(t, -1, c.MaxAge)
	}
}

func TestProtectedHandlers_WithoutUser_401(t *testing.T) {
	t.Parallel()

	h, _ := newHandlers(t)

	for name, fn := range map[string]http.HandlerFunc{
		"logout":          h.Logout,
		"change-password": h.ChangePassword,
		"current-user":    h.CurrentUser,
		"account":         h.UpdateAccountDetails,
		"avatar":          h.UpdateAvatar,
		"cover":           h.UpdateCoverImage,
	} {
		rr := httptest.NewRecorder()
		fn(rr, httptest.NewRequest(http.MethodPost, "/", nil))
		require.Equal(t, http.StatusUnauthorized, rr.Code, name)
	}
}

// ---------- RefreshToken ----------

func TestRefreshToken_FromCookie(t *testing.T) {
	t.Parallel()

	h, svc := newHandlers(t)
	svc.EXPECT().RefreshAccessToken(gomock.Any(), "cookie-ref").
		Return(&models.TokenPair{AccessToken: "acc2", RefreshToken: "ref2"}, nil)

	req := jsonReq(http.MethodPost, "/refresh-token", `{"refreshToken":"body-ref"}`)
	req.AddCookie(&http.Cookie{Name: middleware.RefreshTokenCookie, Value: "cookie-ref"})

	rr := httptest.NewRecorder()
	h.RefreshToken(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)

	var data TokensData
	require.NoError(t, json.Unmarshal(decode(t, rr).Data, &data))
	require.Equal(t, "acc2", data.AccessToken)
	require.Equal(t, "ref2", data.RefreshToken)
	require.Equal(t, "ref2", cookieByName(rr, middleware.RefreshTokenCookie).Value)
}

func TestRefreshToken_FromBody(t *testing.T) {
	t.Parallel()

	h, svc := newHandlers(t)
	svc.EXPECT().RefreshAccessToken(gomock.Any(), "body-ref").
		Return(&models.TokenPair{AccessToken: "a", RefreshToken: "r"}, nil)

	rr := httptest.NewRecorder()
	h.RefreshToken(rr, jsonReq(http.MethodPost, "/refresh-token", `{"refreshToken":"body-ref"}`))

	require.Equal(t, http.StatusOK, rr.Code)
}

func TestRefreshToken_Missing_401(t *testing.T) {
	t.Parallel()

	h, svc := newHandlers(t)
	svc.EXPECT().RefreshAccessToken(gomock.Any(), "").Return(nil, service.ErrInvalidRefreshToken)

	rr := httptest.NewRecorder()
	h.RefreshToken(rr, httptest.NewRequest(http.MethodPost, "/refresh-token", nil))

	require.Equal(t, http.StatusUnauthorized, rr.Code)
	require.Equal(t, "refresh token is expired or used", decode(t, rr).Message)
}

func TestRefreshToken_GarbageBody_401(t *testing.T) {
	t.Parallel()

	h, _ := newHandlers(t)

	rr := httptest.NewRecorder()
	h.RefreshToken(rr, jsonReq(http.MethodPost, "/refresh-token", `not json`))

	require.Equal(t, http.StatusUnauthorized, rr.Code)
}

// ---------- ChangePassword / CurrentUser ----------

func TestChangePassword(t *testing.T) {
	t.Parallel()

	h, svc := newHandlers(t)
	u := publicUser()

	svc.EXPECT().ChangePassword(gomock.Any(), u.ID, "old", "new").Return(nil)
	rr := httptest.NewRecorder()
	h.ChangePassword(rr, authed(jsonReq(http.MethodPost, "/change-password", `{"oldPassword":"old","newPassword":"new"}`), u))
	require.Equal(t, http.StatusOK, rr.Code)

	svc.EXPECT().ChangePassword(gomock.Any(), u.ID, "bad", "new").Return(service.ErrInvalidOldPassword)
	rr = httptest.NewRecorder()
	h.ChangePassword(rr, authed(jsonReq(http.MethodPost, "/change-password", `{"oldPassword":"bad","newPassword":"new"}`), u))
	require.Equal(t, http.StatusUnauthorized, rr.Code)
	require.Equal(t, "invalid old password", decode(t, rr).Message)
}

func TestCurrentUser(t *testing.T) {
	t.Parallel()

	h, _ := newHandlers(t)
	u := publicUser()

	rr := httptest.NewRecorder()
	h.CurrentUser(rr, authed(httptest.NewRequest(http.MethodGet, "/current-user", nil), u))

	require.Equal(t, http.StatusOK, rr.Code)

	var got User
	require.NoError(t, json.Unmarshal(decode(t, rr).Data, &got))
	require.Equal(t, u.Email, got.Email)
	require.Equal(t, u.FullName, got.FullName)
}

// ---------- Account ----------

func TestUpdateAccountDetails(t *testing.T) {
	t.Parallel()

	h, svc := newHandlers(t)
	u := publicUser()
	updated := u
	updated.FullName = "Mr. Anderson"

	svc.EXPECT().UpdateAccountDetails(gomock.Any(), u.ID, "Mr. Anderson", "neo@matrix.io").Return(&updated, nil)

	rr := httptest.NewRecorder()
	h.UpdateAccountDetails(rr, authed(jsonReq(http.MethodPatch, "/update-account-details",
		`{"fullName":"Mr. Anderson","email":"neo@matrix.io"}`), u))

	require.Equal(t, http.StatusOK, rr.Code)

	var got User
	require.NoError(t, json.Unmarshal(decode(t, rr).Data, &got))
	require.Equal(t, "Mr. Anderson", got.FullName)
}

func TestUpdateAvatar(t *testing.T) {
	t.Parallel()

	h, svc := newHandlers(t)
	u := publicUser()
	updated := u
	updated.Avatar = "https://cdn/new.png"

	svc.EXPECT().UpdateAvatar(gomock.Any(), u.ID, gomock.Any()).
		DoAndReturn(func(_ context.Context, _ uuid.UUID, f *assets.File) (*models.PublicUser, error) {
			require.NotNil(t, f)
			require.Equal(t, "image/jpeg", f.ContentType)
			return &updated, nil
		})

	req := multipartReq(t, http.MethodPatch, "/update-user-avatar", nil, part{"avatar", "new.jpg", "image/jpeg", "jpg"})
	rr := httptest.NewRecorder()
	h.UpdateAvatar(rr, authed(req, u))

	require.Equal(t, http.StatusOK, rr.Code)
	require.Equal(t, "avatar image updated successfully", decode(t, rr).Message)
}

func TestUpdateCoverImage_MissingFile(t *testing.T) {
	t.Parallel()

	h, svc := newHandlers(t)
	u := publicUser()

	svc.EXPECT().UpdateCoverImage(gomock.Any(), u.ID, gomock.Nil()).Return(nil, service.ErrCoverImageRequired)

	req := multipartReq(t, http.MethodPatch, "/update-user-cover-image", nil, part{"avatar", "a.png", "image/png", "x"})
	rr := httptest.NewRecorder()
	h.UpdateCoverImage(rr, authed(req, u))

	require.Equal(t, http.StatusBadRequest, rr.Code)
	require.Equal(t, "cover image is required", decode(t, rr).Message)
}

func TestUpdateCoverImage_UploadFailed_500(t *testing.T) {
	t.Parallel()

	h, svc := newHandlers(t)
	u := publicUser()

	svc.EXPECT().UpdateCoverImage(gomock.Any(), u.ID, gomock.Any()).Return(nil, service.ErrCoverUploadFailed)

	req := multipartReq(t, http.MethodPatch, "/update-user-cover-image", nil, part{"coverImage", "c.png", "image/png", "x"})
	rr := httptest.NewRecorder()
	h.UpdateCoverImage(rr, authed(req, u))

	require.Equal(t, http.StatusInternalServerError, rr.Code)
	require.Equal(t, "error while uploading cover image", decode(t, rr).Message)
}

func TestCookie_InsecureAndDomain(t *testing.T) {
	t.Parallel()

	opts := testOptions()
	opts.Cookies = config.CookiesConfig{Insecure: true, Domain: "example.com"}
	h := New(nil, opts)

	c := h.cookie(middleware.AccessTokenCookie, "v", time.Minute)
	require.False(t, c.Secure)
	require.True(t, c.HttpOnly)
	require.Equal(t, "example.com", c.Domain)
	require.Equal(t, http.SameSiteLaxMode, c.SameSite)
	require.Equal(t, 60, c.MaxAge)
}
