package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/pribylovaa/session-service/internal/models"
	"github.com/pribylovaa/session-service/internal/storage"
)

// userColumns — единый список колонок таблицы users для SELECT/RETURNING,
// чтобы порядок сканирования был одинаковым. NULL в refresh_token читается как "".
const userColumns = `
id, username, email, full_name, avatar, cover_image, password_hash,
COALESCE(refresh_token, ''), created_at, updated_at
`

// scanUser сканирует одну строку пользователя.
func scanUser(row pgx.Row) (*models.User, error) {
	var u models.User

	if err := row.Scan(
		&u.ID,
		&u.Username,
		&u.Email,
		&u.FullName,
		&u.Avatar,
		&u.CoverImage,
		&u.PasswordHash,
		&u.RefreshToken,
		&u.CreatedAt,
		&u.UpdatedAt,
	); err != nil {
		return nil, err
	}

	return &u, nil
}

// mapErr переводит ошибки pgx в ошибки пакета storage.
func mapErr(op string, err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("%s: %w", op, storage.ErrNotFound)
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
		return fmt.Errorf("%s: %w", op, storage.ErrAlreadyExists)
	}

	return fmt.Errorf("%s: %w", op, err)
}

// CreateUser вставляет пользователя и возвращает сохранённую запись.
// Ошибки: storage.ErrAlreadyExists при конфликте username/email.
func (s *Storage) CreateUser(ctx context.Context, user *models.User) (*models.User, error) {
	const op = "storage.postgres.CreateUser"

	q := `
	INSERT INTO users (id, username, email, full_name, avatar, cover_image, password_hash, created_at, updated_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	RETURNING
	` + userColumns

	row := s.db.QueryRow(ctx, q,
		user.ID,
		user.Username,
		user.Email,
		user.FullName,
		user.Avatar,
		user.CoverImage,
		user.PasswordHash,
		user.CreatedAt,
		user.UpdatedAt,
	)

	result, err := scanUser(row)
	if err != nil {
		return nil, mapErr(op, err)
	}

	return result, nil
}

// UserByID находит пользователя по ID.
func (s *Storage) UserByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	const op = "storage.postgres.UserByID"

	q := `SELECT ` + userColumns + ` FROM users WHERE id = $1`

	result, err := scanUser(s.db.QueryRow(ctx, q, id))
	if err != nil {
		return nil, mapErr(op, err)
	}

	return result, nil
}

// UserByUsernameOrEmail находит пользователя по username ИЛИ email.
// Пустые аргументы в условии не участвуют.
func (s *Storage) UserByUsernameOrEmail(ctx context.Context, username, email string) (*models.User, error) {
	const op = "storage.postgres.UserByUsernameOrEmail"

	if username == "" && email == "" {
		return nil, fmt.Errorf("%s: %w", op, storage.ErrNotFound)
	}

	q := `
	SELECT ` + userColumns + `
	FROM users
	WHERE ($1 <> '' AND username = $1) OR ($2 <> '' AND email = $2)
	ORDER BY created_at
	LIMIT 1
	`

	result, err := scanUser(s.db.QueryRow(ctx, q, username, email))
	if err != nil {
		return nil, mapErr(op, err)
	}

	return result, nil
}

// UpdateUser выполняет частичный апдейт: обновляет только заданные поля
// и всегда сдвигает updated_at = now(). Возвращает запись после обновления.
// Ошибки: storage.ErrNotFound, storage.ErrAlreadyExists (email занят).
func (s *Storage) UpdateUser(ctx context.Context, id uuid.UUID, upd models.UserUpdate) (*models.User, error) {
	const op = "storage.postgres.UpdateUser"

	sets := []string{"updated_at = now()"}
	args := []any{id}

	add := func(column string, value *string) {
		if value == nil {
			return
		}
		args = append(args, *value)
		sets = append(sets, fmt.Sprintf("%s = $%d", column, len(args)))
	}

	add("full_name", upd.FullName)
	add("email", upd.Email)
	add("avatar", upd.Avatar)
	add("cover_image", upd.CoverImage)
	add("password_hash", upd.PasswordHash)

	q := fmt.Sprintf(`UPDATE users SET %s WHERE id = $1 RETURNING %s`,
		strings.Join(sets, ", "), userColumns)

	result, err := scanUser(s.db.QueryRow(ctx, q, args...))
	if err != nil {
		return nil, mapErr(op, err)
	}

	return result, nil
}

// SetRefreshToken безусловно перезаписывает refresh-токен.
func (s *Storage) SetRefreshToken(ctx context.Context, id uuid.UUID, token string) error {
	const op = "storage.postgres.SetRefreshToken"

	tag, err := s.db.Exec(ctx,
		`UPDATE users SET refresh_token = $2, updated_at = now() WHERE id = $1`,
		id, token,
	)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%s: %w", op, storage.ErrNotFound)
	}

	return nil
}

// RotateRefreshToken заменяет refresh-токен одним условным UPDATE:
// строка обновится, только если сохранён именно oldToken. Из нескольких
// конкурентных ротаций с одним oldToken успешной будет ровно одна.
func (s *Storage) RotateRefreshToken(ctx context.Context, id uuid.UUID, oldToken, newToken string) error {
	const op = "storage.postgres.RotateRefreshToken"

	if oldToken == "" {
		return fmt.Errorf("%s: %w", op, storage.ErrTokenMismatch)
	}

	tag, err := s.db.Exec(ctx, `
		UPDATE users
		SET refresh_token = $3, updated_at = now()
		WHERE id = $1 AND refresh_token = $2
	`, id, oldToken, newToken)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%s: %w", op, storage.ErrTokenMismatch)
	}

	return nil
}

// UnsetRefreshToken стирает refresh-токен. Ошибка storage.ErrNotFound — только
// если пользователя нет; повторный вызов для существующего пользователя успешен.
func (s *Storage) UnsetRefreshToken(ctx context.Context, id uuid.UUID) error {
	const op = "storage.postgres.UnsetRefreshToken"

	tag, err := s.db.Exec(ctx,
		`UPDATE users SET refresh_token = NULL, updated_at = now() WHERE id = $1`,
		id,
	)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%s: %w", op, storage.ErrNotFound)
	}

	return nil
}
