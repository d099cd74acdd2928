// storage описывает контракт хранилища учётных записей (Credential Store)
// и общие ошибки, которые реализации обязаны возвращать через %w.
package storage

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/pribylovaa/session-service/internal/models"
)

var (
	// ErrNotFound — пользователь не найден.
	ErrNotFound = errors.New("not found")
	// ErrAlreadyExists — нарушение уникальности username/email.
	ErrAlreadyExists = errors.New("already exists")
	// ErrTokenMismatch — сохранённый refresh-токен не совпал с ожидаемым при CAS-ротации.
	ErrTokenMismatch = errors.New("refresh token mismatch")
)

// UserStorage выполняет операции над пользователями.
//
// Все методы, возвращающие пользователя, возвращают полную запись (с хэшем
// пароля и refresh-токеном); очистка — задача сервисного слоя.
type UserStorage interface {
	// CreateUser создаёт пользователя и возвращает сохранённую запись.
	CreateUser(ctx context.Context, user *models.User) (*models.User, error)
	// UserByID находит пользователя по ID.
	UserByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	// UserByUsernameOrEmail находит пользователя, у которого совпал username ИЛИ email.
	// Пустой аргумент в условии не участвует; оба пустых — ErrNotFound.
	UserByUsernameOrEmail(ctx context.Context, username, email string) (*models.User, error)
	// UpdateUser частично обновляет пользователя и возвращает запись после обновления.
	UpdateUser(ctx context.Context, id uuid.UUID, upd models.UserUpdate) (*models.User, error)
}

// SessionStorage управляет единственным refresh-токеном пользователя.
type SessionStorage interface {
	// SetRefreshToken безусловно перезаписывает refresh-токен (вход).
	SetRefreshToken(ctx context.Context, id uuid.UUID, token string) error
	// RotateRefreshToken атомарно заменяет oldToken на newToken.
	// Если сохранён не oldToken (или пользователя нет) — ErrTokenMismatch.
	RotateRefreshToken(ctx context.Context, id uuid.UUID, oldToken, newToken string) error
	// UnsetRefreshToken стирает refresh-токен (выход). Повторный вызов безопасен.
	UnsetRefreshToken(ctx context.Context, id uuid.UUID) error
}

// Storage задаёт полный контракт хранилища.
type Storage interface {
	UserStorage
	SessionStorage
	// Ping проверяет доступность хранилища (readiness).
	Ping(ctx context.Context) error
	Close()
}
