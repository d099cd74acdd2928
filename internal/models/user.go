// models содержит доменные сущности session-service.
// Эти типы используются слоями бизнес-логики, хранилища и транспорта.
package models

import (
	"time"

	"github.com/google/uuid"
)

// User — внутренняя доменная модель пользователя.
// Важно:
//   - Username и Email уникальны и хранятся в нижнем регистре;
//   - PasswordHash — bcrypt-дайджест, открытый пароль нигде не хранится;
//   - RefreshToken — единственный действующий refresh-токен; "" означает его отсутствие;
//   - CoverImage необязателен.
//
// User никогда не отдаётся наружу напрямую: транспорт работает только с PublicUser.
type User struct {
	ID           uuid.UUID
	Username     string
	Email        string
	FullName     string
	Avatar       string
	CoverImage   string
	PasswordHash string
	RefreshToken string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// PublicUser — «очищенное» представление пользователя без пароля и refresh-токена.
// Передаётся по значению, в том числе через контекст запроса.
type PublicUser struct {
	ID         uuid.UUID
	Username   string
	Email      string
	FullName   string
	Avatar     string
	CoverImage string
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// Public возвращает очищенную копию пользователя.
func (u *User) Public() PublicUser {
	return PublicUser{
		ID:         u.ID,
		Username:   u.Username,
		Email:      u.Email,
		FullName:   u.FullName,
		Avatar:     u.Avatar,
		CoverImage: u.CoverImage,
		CreatedAt:  u.CreatedAt,
		UpdatedAt:  u.UpdatedAt,
	}
}

// UserUpdate — частичное обновление пользователя.
// nil-поле означает «не менять».
type UserUpdate struct {
	FullName     *string
	Email        *string
	Avatar       *string
	CoverImage   *string
	PasswordHash *string
}
