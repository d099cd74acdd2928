package service

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/pribylovaa/session-service/internal/metrics"
	"github.com/pribylovaa/session-service/internal/models"
	"github.com/pribylovaa/session-service/internal/pkg/log"
	"github.com/pribylovaa/session-service/internal/pkg/redact"
	"github.com/pribylovaa/session-service/internal/storage"
	"github.com/pribylovaa/session-service/internal/tokens"
)

// LoginInput — учётные данные для входа. Достаточно username или email.
type LoginInput struct {
	Username string
	Email    string
	Password string
}

// Login проверяет учётные данные и открывает новую сессию: выпускает пару
// токенов и безусловно перезаписывает сохранённый refresh-токен, тем самым
// отзывая предыдущую сессию пользователя.
func (s *Service) Login(ctx context.Context, in LoginInput) (_ *models.Session, err error) {
	const op = "service.Login"

	defer func() { s.metrics.Session(metrics.EventLogin, outcome(err)) }()

	username := normalizeIdentifier(in.Username)
	email := normalizeIdentifier(in.Email)

	lg := log.From(ctx).With("op", op, "username", redact.Username(username), "email", redact.Email(email))

	if username == "" && email == "" {
		return nil, fmt.Errorf("%s: %w", op, ErrIdentifierRequired)
	}

	if in.Password == "" {
		return nil, fmt.Errorf("%s: %w", op, ErrFieldsRequired)
	}

	user, err := s.storage.UserByUsernameOrEmail(ctx, username, email)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			lg.Warn("login_unknown_user")
			return nil, fmt.Errorf("%s: %w", op, ErrUserNotFound)
		}

		lg.Error("login_lookup_failed", "err", err)
		return nil, fmt.Errorf("%s: %w", op, ErrInternalFailure)
	}

	lg = lg.With("user_id", user.ID.String())

	if !s.hasher.Verify(in.Password, user.PasswordHash) {
		lg.Warn("login_failed")
		return nil, fmt.Errorf("%s: %w", op, ErrInvalidCredentials)
	}

	pub := user.Public()

	pair, err := s.issuePair(pub)
	if err != nil {
		lg.Error("token_issue_failed", "err", err)
		return nil, fmt.Errorf("%s: %w", op, ErrInternalFailure)
	}

	if err := s.storage.SetRefreshToken(ctx, user.ID, pair.RefreshToken); err != nil {
		lg.Error("refresh_token_persist_failed", "err", err)
		return nil, fmt.Errorf("%s: %w", op, ErrInternalFailure)
	}

	lg.Info("login_succeeded")

	return &models.Session{User: pub, Tokens: *pair}, nil
}

// Logout закрывает сессию: стирает сохранённый refresh-токен. Повторный вызов безопасен.
func (s *Service) Logout(ctx context.Context, userID uuid.UUID) (err error) {
	const op = "service.Logout"

	defer func() { s.metrics.Session(metrics.EventLogout, outcome(err)) }()

	lg := log.From(ctx).With("op", op, "user_id", userID.String())

	if err := s.storage.UnsetRefreshToken(ctx, userID); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			lg.Warn("logout_unknown_user")
			return fmt.Errorf("%s: %w", op, ErrUserNotFound)
		}

		lg.Error("logout_failed", "err", err)
		return fmt.Errorf("%s: %w", op, ErrInternalFailure)
	}

	lg.Info("logged_out")

	return nil
}

// RefreshAccessToken обменивает действующий refresh-токен на новую пару.
//
// Любой отказ возвращается клиенту как ErrInvalidRefreshToken: по ответу нельзя
// понять, что именно не так (подпись, срок, пользователь или несовпадение
// с сохранённым значением). Конкретная причина только логируется.
//
// Новая пара сохраняется условной заменой (CAS) старого значения, поэтому из
// конкурентных обменов одного и того же токена успешен ровно один.
func (s *Service) RefreshAccessToken(ctx context.Context, incoming string) (_ *models.TokenPair, err error) {
	const op = "service.RefreshAccessToken"

	defer func() { s.metrics.Session(metrics.EventRefresh, outcome(err)) }()

	lg := log.From(ctx).With("op", op)

	reject := func(reason string, args ...any) (*models.TokenPair, error) {
		lg.Warn(reason, args...)
		return nil, fmt.Errorf("%s: %w", op, ErrInvalidRefreshToken)
	}

	incoming = strings.TrimSpace(incoming)
	if incoming == "" {
		return reject("refresh_token_missing")
	}

	claims, err := s.tokens.Verify(incoming, tokens.Refresh)
	if err != nil {
		return reject("refresh_token_invalid", "err", err)
	}

	userID := claims.User()
	lg = lg.With("user_id", userID.String())

	user, err := s.storage.UserByID(ctx, userID)
	if err != nil {
		return reject("refresh_user_lookup_failed", "err", err)
	}

	if user.RefreshToken == "" ||
		subtle.ConstantTimeCompare([]byte(incoming), []byte(user.RefreshToken)) != 1 {
		return reject("refresh_reuse_detected")
	}

	pair, err := s.issuePair(user.Public())
	if err != nil {
		return reject("token_issue_failed", "err", err)
	}

	if err := s.storage.RotateRefreshToken(ctx, userID, incoming, pair.RefreshToken); err != nil {
		if errors.Is(err, storage.ErrTokenMismatch) {
			return reject("refresh_rotation_lost")
		}
		return reject("refresh_rotation_failed", "err", err)
	}

	lg.Info("session_refreshed")

	return pair, nil
}

// ChangePassword меняет пароль после проверки текущего.
//
// По умолчанию действующий refresh-токен не отзывается: сессия, открытая до
// смены пароля, продолжает обновляться. Отзыв включается настройкой
// auth.revoke_sessions_on_password_change.
func (s *Service) ChangePassword(ctx context.Context, userID uuid.UUID, oldPassword, newPassword string) (err error) {
	const op = "service.ChangePassword"

	defer func() { s.metrics.Session(metrics.EventChangePassword, outcome(err)) }()

	lg := log.From(ctx).With("op", op, "user_id", userID.String())

	if oldPassword == "" || strings.TrimSpace(newPassword) == "" {
		return fmt.Errorf("%s: %w", op, ErrFieldsRequired)
	}

	if len(newPassword) > maxPasswordBytes {
		return fmt.Errorf("%s: %w", op, ErrPasswordTooLong)
	}

	user, err := s.storage.UserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return fmt.Errorf("%s: %w", op, ErrUserNotFound)
		}

		lg.Error("change_password_lookup_failed", "err", err)
		return fmt.Errorf("%s: %w", op, ErrInternalFailure)
	}

	if !s.hasher.Verify(oldPassword, user.PasswordHash) {
		lg.Warn("change_password_rejected")
		return fmt.Errorf("%s: %w", op, ErrInvalidOldPassword)
	}

	digest, err := s.hasher.Hash(newPassword)
	if err != nil {
		lg.Error("password_hash_failed", "err", err)
		return fmt.Errorf("%s: %w", op, ErrInternalFailure)
	}

	if _, err := s.storage.UpdateUser(ctx, userID, models.UserUpdate{PasswordHash: &digest}); err != nil {
		return fmt.Errorf("%s: %w", op, mapUpdateErr(lg, err))
	}

	if s.cfg.RevokeSessionsOnPasswordChange {
		if err := s.storage.UnsetRefreshToken(ctx, userID); err != nil {
			lg.Error("revoke_on_password_change_failed", "err", err)
			return fmt.Errorf("%s: %w", op, ErrInternalFailure)
		}
	}

	lg.Info("password_changed", "sessions_revoked", s.cfg.RevokeSessionsOnPasswordChange)

	return nil
}

// Authenticate проверяет access-токен и возвращает актуальные данные пользователя.
// Используется middleware авторизации.
func (s *Service) Authenticate(ctx context.Context, accessToken string) (*models.PublicUser, error) {
	const op = "service.Authenticate"

	lg := log.From(ctx).With("op", op)

	claims, err := s.tokens.Verify(accessToken, tokens.Access)
	if err != nil {
		lg.Debug("access_token_rejected", "err", err)
		return nil, fmt.Errorf("%s: %w", op, ErrInvalidAccessToken)
	}

	user, err := s.storage.UserByID(ctx, claims.User())
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			lg.Warn("access_token_unknown_user", "user_id", claims.User().String())
			return nil, fmt.Errorf("%s: %w", op, ErrInvalidAccessToken)
		}

		lg.Error("authenticate_lookup_failed", "err", err)
		return nil, fmt.Errorf("%s: %w", op, ErrInternalFailure)
	}

	pub := user.Public()
	return &pub, nil
}

// issuePair выпускает access- и refresh-токены для пользователя.
func (s *Service) issuePair(u models.PublicUser) (*models.TokenPair, error) {
	access, accessExp, err := s.tokens.IssueAccess(u)
	if err != nil {
		return nil, err
	}

	refresh, refreshExp, err := s.tokens.IssueRefresh(u.ID)
	if err != nil {
		return nil, err
	}

	return &models.TokenPair{
		AccessToken:      access,
		RefreshToken:     refresh,
		AccessExpiresAt:  accessExp,
		RefreshExpiresAt: refreshExp,
	}, nil
}
