// service содержит бизнес-логику session-service:
//   - регистрация и изменение профиля (account.go);
//   - вход, выход, обновление пары токенов, смена пароля и аутентификация
//     запросов по access-токену (session.go).
//
// Ошибки сервиса — значения *Error с одним из видов (ErrValidation, ErrConflict, ...).
// Транспорт определяет HTTP-статус по виду через errors.Is, а текст для клиента
// берёт из Error.Message.
package service

import (
	"errors"

	"github.com/pribylovaa/session-service/internal/assets"
	"github.com/pribylovaa/session-service/internal/config"
	"github.com/pribylovaa/session-service/internal/metrics"
	"github.com/pribylovaa/session-service/internal/password"
	"github.com/pribylovaa/session-service/internal/storage"
	"github.com/pribylovaa/session-service/internal/tokens"
)

// Виды ошибок.
var (
	// ErrValidation — отсутствующие или некорректные входные данные.
	ErrValidation = errors.New("validation error")
	// ErrConflict — пользователь с таким username или email уже есть.
	ErrConflict = errors.New("conflict")
	// ErrNotFound — пользователь не найден.
	ErrNotFound = errors.New("not found")
	// ErrUnauthenticated — неверные учётные данные или токен.
	ErrUnauthenticated = errors.New("unauthenticated")
	// ErrUpload — внешнее хранилище не приняло файл.
	ErrUpload = errors.New("upload failed")
	// ErrInternal — внутренняя ошибка.
	ErrInternal = errors.New("internal")
)

// Error — ошибка сервиса: вид и сообщение, безопасное для клиента.
type Error struct {
	kind error
	msg  string
}

func newError(kind error, msg string) *Error {
	return &Error{kind: kind, msg: msg}
}

func (e *Error) Error() string { return e.kind.Error() + ": " + e.msg }
func (e *Error) Unwrap() error { return e.kind }
func (e *Error) Message() string { return e.msg }

// Конкретные причины.
var (
	ErrFieldsRequired      = newError(ErrValidation, "all fields are required")
	ErrIdentifierRequired  = newError(ErrValidation, "username or email is required")
	ErrInvalidEmail        = newError(ErrValidation, "invalid email")
	ErrPasswordTooLong     = newError(ErrValidation, "password is too long")
	ErrAvatarRequired      = newError(ErrValidation, "avatar is required")
	ErrCoverImageRequired  = newError(ErrValidation, "cover image is required")
	ErrInvalidFile         = newError(ErrValidation, "unsupported or too large file")
	ErrUserExists          = newError(ErrConflict, "user with this username or email already exists")
	ErrEmailTaken          = newError(ErrConflict, "email is already in use")
	ErrUserNotFound        = newError(ErrNotFound, "user does not exist")
	ErrInvalidCredentials  = newError(ErrUnauthenticated, "invalid user credentials")
	ErrInvalidOldPassword  = newError(ErrUnauthenticated, "invalid old password")
	ErrTokenRequired       = newError(ErrUnauthenticated, "unauthorized request")
	ErrInvalidAccessToken  = newError(ErrUnauthenticated, "invalid access token")
	ErrInvalidRefreshToken = newError(ErrUnauthenticated, "refresh token is expired or used")
	ErrAvatarUploadFailed  = newError(ErrUpload, "error while uploading avatar")
	ErrCoverUploadFailed   = newError(ErrUpload, "error while uploading cover image")
	ErrInternalFailure     = newError(ErrInternal, "something went wrong")
)

// maxPasswordBytes — предел bcrypt: байты сверх него молча отбрасываются.
const maxPasswordBytes = 72

// Service — бизнес-логика жизненного цикла учётных данных и сессий.
type Service struct {
	storage  storage.Storage
	uploader assets.Uploader
	tokens   *tokens.Manager
	hasher   *password.Hasher
	metrics  *metrics.Metrics
	cfg      config.AuthConfig
}

// New создаёт новый экземпляр Service. metrics может быть nil.
func New(
	st storage.Storage,
	uploader assets.Uploader,
	tm *tokens.Manager,
	hasher *password.Hasher,
	m *metrics.Metrics,
	cfg config.AuthConfig,
) *Service {
	return &Service{
		storage:  st,
		uploader: uploader,
		tokens:   tm,
		hasher:   hasher,
		metrics:  m,
		cfg:      cfg,
	}
}

// outcome классифицирует результат операции для метрик.
func outcome(err error) string {
	switch {
	case err == nil:
		return metrics.OutcomeSuccess
	case errors.Is(err, ErrInternal), errors.Is(err, ErrUpload):
		return metrics.OutcomeError
	default:
		return metrics.OutcomeRejected
	}
}
