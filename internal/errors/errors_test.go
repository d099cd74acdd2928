package errors

import (
	"encoding/json"
	stderrors "errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/pribylovaa/session-service/internal/service"
)

func TestToHTTP_KindMapping(t *testing.T) {
	t.Parallel()

	tcs := []struct {
		name       string
		in         error
		wantStatus int
		wantMsg    string
	}{
		{"validation", service.ErrAvatarRequired, http.StatusBadRequest, "avatar is required"},
		{"conflict", service.ErrUserExists, http.StatusConflict, "user with this username or email already exists"},
		{"not_found", service.ErrUserNotFound, http.StatusNotFound, "user does not exist"},
		{"unauthenticated", service.ErrInvalidCredentials, http.StatusUnauthorized, "invalid user credentials"},
		{"refresh", service.ErrInvalidRefreshToken, http.StatusUnauthorized, "refresh token is expired or used"},
		{"upload", service.ErrAvatarUploadFailed, http.StatusInternalServerError, "error while uploading avatar"},
		{"internal", service.ErrInternalFailure, http.StatusInternalServerError, "something went wrong"},
		{"wrapped", fmt.Errorf("service.Login: %w", service.ErrFieldsRequired), http.StatusBadRequest, "all fields are required"},
		{"bare_kind", service.ErrNotFound, http.StatusNotFound, "user does not exist"},
		{"unknown", stderrors.New("pq: connection refused"), http.StatusInternalServerError, "something went wrong"},
	}

	for _, tc := range tcs {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			gotStatus, resp := ToHTTP(tc.in)
			require.Equal(t, tc.wantStatus, gotStatus)
			require.Equal(t, tc.wantStatus, resp.StatusCode)
			require.Equal(t, tc.wantMsg, resp.Message)
			require.False(t, resp.Success)
		})
	}
}

func TestToHTTP_NilError_Returns500(t *testing.T) {
	t.Parallel()

	gotStatus, resp := ToHTTP(nil)
	require.Equal(t, http.StatusInternalServerError, gotStatus)
	require.Equal(t, "something went wrong", resp.Message)
}

func TestWriteError_EnvelopeWithRequestID(t *testing.T) {
	t.Parallel()

	req := httptest.NewRequest(http.MethodPost, "/login", nil)
	req.Header.Set(HeaderRequestID, "rid-1")
	rr := httptest.NewRecorder()

	WriteError(rr, req, fmt.Errorf("op: %w", service.ErrInvalidCredentials))

	require.Equal(t, http.StatusUnauthorized, rr.Code)
	require.Equal(t, "application/json", rr.Header().Get("Content-Type"))

	var body map[string]any
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	require.EqualValues(t, http.StatusUnauthorized, body["statusCode"])
	require.Equal(t, "invalid user credentials", body["message"])
	require.Equal(t, false, body["success"])
	require.Equal(t, "rid-1", body["requestId"])
	_, hasData := body["data"]
	require.False(t, hasData)
}

func TestWrite_ExplicitStatus(t *testing.T) {
	t.Parallel()

	req := httptest.NewRequest(http.MethodPost, "/login", nil)
	rr := httptest.NewRecorder()

	Write(rr, req, http.StatusTooManyRequests, "too many login attempts")

	require.Equal(t, http.StatusTooManyRequests, rr.Code)

	var resp ErrorResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	require.Equal(t, "too many login attempts", resp.Message)
	require.Empty(t, resp.RequestID)
}

// Внутренние детали не попадают в тело ответа.
func TestWriteError_InternalDetailsHidden(t *testing.T) {
	t.Parallel()

	req := httptest.NewRequest(http.MethodGet, "/current-user", nil)
	rr := httptest.NewRecorder()

	WriteError(rr, req, fmt.Errorf("dial tcp 10.0.0.5:5432: %w", stderrors.New("connection refused")))

	require.Equal(t, http.StatusInternalServerError, rr.Code)
	require.NotContains(t, rr.Body.String(), "10.0.0.5")
}
