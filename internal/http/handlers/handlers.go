// handlers — HTTP-обработчики session-service. Разбирают запрос, вызывают
// сервисный слой и пишут ответ в едином конверте:
//
//	{"statusCode": 200, "message": "...", "data": {...}, "success": true}
//
// Ошибки пишет errors.WriteError.
package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/pribylovaa/session-service/internal/assets"
	"github.com/pribylovaa/session-service/internal/config"
	"github.com/pribylovaa/session-service/internal/models"
	"github.com/pribylovaa/session-service/internal/service"
)

// Sessions — операции сервисного слоя, нужные обработчикам.
type Sessions interface {
	Register(ctx context.Context, in service.RegisterInput) (*models.PublicUser, error)
	Login(ctx context.Context, in service.LoginInput) (*models.Session, error)
	Logout(ctx context.Context, userID uuid.UUID) error
	RefreshAccessToken(ctx context.Context, refreshToken string) (*models.TokenPair, error)
	ChangePassword(ctx context.Context, userID uuid.UUID, oldPassword, newPassword string) error
	UpdateAccountDetails(ctx context.Context, userID uuid.UUID, fullName, email string) (*models.PublicUser, error)
	UpdateAvatar(ctx context.Context, userID uuid.UUID, file *assets.File) (*models.PublicUser, error)
	UpdateCoverImage(ctx context.Context, userID uuid.UUID, file *assets.File) (*models.PublicUser, error)
}

// Options — параметры обработчиков.
type Options struct {
	Cookies         config.CookiesConfig
	AccessTokenTTL  time.Duration
	RefreshTokenTTL time.Duration
	// MaxUploadBytes ограничивает размер multipart-тела запроса.
	MaxUploadBytes int64
}

// Handlers агрегирует зависимости обработчиков.
type Handlers struct {
	svc  Sessions
	opts Options
}

func New(svc Sessions, opts Options) *Handlers {
	return &Handlers{svc: svc, opts: opts}
}

// Response — конверт успешного ответа.
type Response struct {
	StatusCode int    `json:"statusCode"`
	Message    string `json:"message"`
	Data       any    `json:"data"`
	Success    bool   `json:"success"`
}

// respond пишет успешный ответ в конверте.
func respond(w http.ResponseWriter, status int, msg string, data any) {
	writeJSON(w, status, Response{
		StatusCode: status,
		Message:    msg,
		Data:       data,
		Success:    status < http.StatusBadRequest,
	})
}

func writeJSON(w http.ResponseWriter, status int, value any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(value)
}

// decodeStrict — строгий JSON-декодер: неизвестные поля запрещены.
func decodeStrict(r *http.Request, value any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(value)
}
