// errors стандартизирует ответы об ошибках HTTP-слоя session-service.
// На вход принимает ошибку сервисного слоя, на выход даёт:
//   - HTTP-статус по виду ошибки (service.ErrValidation -> 400 и т.д.);
//   - безопасное сообщение без внутренних деталей.
//
// Внутренние ошибки (5xx) дополнительно уходят в Sentry.
package errors

import (
	"encoding/json"
	stderrors "errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/pribylovaa/session-service/internal/observability"
	"github.com/pribylovaa/session-service/internal/service"
)

// HeaderRequestID — заголовок с идентификатором запроса.
const HeaderRequestID = "X-Request-Id"

const msgInternal = "something went wrong"

// ErrorResponse — тело ответа об ошибке. Полезной нагрузки нет.
type ErrorResponse struct {
	StatusCode int    `json:"statusCode"`
	Message    string `json:"message"`
	Success    bool   `json:"success"`
	RequestID  string `json:"requestId,omitempty"`
}

// kinds — вид ошибки сервиса -> HTTP-статус и сообщение по умолчанию.
var kinds = []struct {
	kind   error
	status int
	msg    string
}{
	{service.ErrValidation, http.StatusBadRequest, "invalid request"},
	{service.ErrConflict, http.StatusConflict, "user with this username or email already exists"},
	{service.ErrNotFound, http.StatusNotFound, "user does not exist"},
	{service.ErrUnauthenticated, http.StatusUnauthorized, "unauthorized request"},
	{service.ErrUpload, http.StatusInternalServerError, "asset upload failed"},
	{service.ErrInternal, http.StatusInternalServerError, msgInternal},
}

// ToHTTP конвертирует ошибку в HTTP-статус и тело ответа.
//
// Поведение:
//   - err == nil — ошибка вызова, отдаём 500, а не "200 OK" с телом ошибки;
//   - вид ошибки не распознан — 500 без утечки деталей;
//   - иначе статус по виду, сообщение из *service.Error либо по умолчанию для вида.
func ToHTTP(err error) (int, ErrorResponse) {
	status, msg := http.StatusInternalServerError, msgInternal

	for _, k := range kinds {
		if err == nil || !stderrors.Is(err, k.kind) {
			continue
		}

		status, msg = k.status, k.msg

		var se *service.Error
		if stderrors.As(err, &se) {
			msg = se.Message()
		}
		break
	}

	return status, ErrorResponse{StatusCode: status, Message: msg}
}

// WriteError пишет ответ об ошибке, добавляя request id из заголовка.
// 5xx отправляются в Sentry.
func WriteError(w http.ResponseWriter, r *http.Request, err error) {
	status, resp := ToHTTP(err)

	if status >= http.StatusInternalServerError {
		observability.CaptureError(err, r.Header.Get(HeaderRequestID), routePattern(r))
	}

	write(w, r, resp)
}

// Write пишет ответ об ошибке транспортного уровня с явным статусом
// (битое тело запроса, превышение лимита попыток, паника).
func Write(w http.ResponseWriter, r *http.Request, status int, msg string) {
	write(w, r, ErrorResponse{StatusCode: status, Message: msg})
}

func write(w http.ResponseWriter, r *http.Request, resp ErrorResponse) {
	resp.RequestID = r.Header.Get(HeaderRequestID)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(resp.StatusCode)
	_ = json.NewEncoder(w).Encode(resp)
}

func routePattern(r *http.Request) string {
	if rctx := chi.RouteContext(r.Context()); rctx != nil {
		if p := rctx.RoutePattern(); p != "" {
			return p
		}
	}

	return r.URL.Path
}
