package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/mail"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/pribylovaa/session-service/internal/assets"
	"github.com/pribylovaa/session-service/internal/metrics"
	"github.com/pribylovaa/session-service/internal/models"
	"github.com/pribylovaa/session-service/internal/pkg/log"
	"github.com/pribylovaa/session-service/internal/pkg/redact"
	"github.com/pribylovaa/session-service/internal/storage"
)

// cleanupTimeout ограничивает удаление файлов неудавшейся регистрации.
const cleanupTimeout = 10 * time.Second

// RegisterInput — данные регистрации. CoverImage необязателен.
type RegisterInput struct {
	Username   string
	Email      string
	Password   string
	FullName   string
	Avatar     *assets.File
	CoverImage *assets.File
}

// Register создаёт пользователя.
//
// Порядок проверок:
//   - все текстовые поля обязательны, email должен быть корректным адресом;
//   - username и email приводятся к нижнему регистру;
//   - совпадение username ИЛИ email с существующим пользователем — ErrUserExists;
//   - аватар обязателен и загружается до создания записи, обложка — по желанию.
//
// Возвращает очищенного пользователя.
func (s *Service) Register(ctx context.Context, in RegisterInput) (_ *models.PublicUser, err error) {
	const op = "service.Register"

	defer func() { s.metrics.Session(metrics.EventRegister, outcome(err)) }()

	username := normalizeIdentifier(in.Username)
	email := normalizeIdentifier(in.Email)
	fullName := strings.TrimSpace(in.FullName)

	lg := log.From(ctx).With("op", op, "username", redact.Username(username), "email", redact.Email(email))

	if username == "" || email == "" || fullName == "" || strings.TrimSpace(in.Password) == "" {
		return nil, fmt.Errorf("%s: %w", op, ErrFieldsRequired)
	}

	if !validEmail(email) {
		return nil, fmt.Errorf("%s: %w", op, ErrInvalidEmail)
	}

	if len(in.Password) > maxPasswordBytes {
		return nil, fmt.Errorf("%s: %w", op, ErrPasswordTooLong)
	}

	_, err = s.storage.UserByUsernameOrEmail(ctx, username, email)
	switch {
	case err == nil:
		lg.Warn("register_conflict")
		return nil, fmt.Errorf("%s: %w", op, ErrUserExists)
	case !errors.Is(err, storage.ErrNotFound):
		lg.Error("register_lookup_failed", "err", err)
		return nil, fmt.Errorf("%s: %w", op, ErrInternalFailure)
	}

	if in.Avatar == nil {
		return nil, fmt.Errorf("%s: %w", op, ErrAvatarRequired)
	}

	id := uuid.New()

	// При ошибке загруженные файлы удаляются.
	var uploaded []string
	defer func() {
		if err != nil {
			s.discardUploads(ctx, lg, uploaded)
		}
	}()

	avatarURL, err := s.upload(ctx, assets.FolderAvatars, id, in.Avatar, ErrAvatarUploadFailed)
	if err != nil {
		lg.Error("avatar_upload_failed", "err", err)
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	uploaded = append(uploaded, avatarURL)

	var coverURL string
	if in.CoverImage != nil {
		coverURL, err = s.upload(ctx, assets.FolderCovers, id, in.CoverImage, ErrCoverUploadFailed)
		if err != nil {
			lg.Error("cover_upload_failed", "err", err)
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		uploaded = append(uploaded, coverURL)
	}

	digest, err := s.hasher.Hash(in.Password)
	if err != nil {
		lg.Error("password_hash_failed", "err", err)
		return nil, fmt.Errorf("%s: %w", op, ErrInternalFailure)
	}

	now := time.Now().UTC()
	created, err := s.storage.CreateUser(ctx, &models.User{
		ID:           id,
		Username:     username,
		Email:        email,
		FullName:     fullName,
		Avatar:       avatarURL,
		CoverImage:   coverURL,
		PasswordHash: digest,
		CreatedAt:    now,
		UpdatedAt:    now,
	})
	if err != nil {
		if errors.Is(err, storage.ErrAlreadyExists) {
			lg.Warn("register_conflict")
			return nil, fmt.Errorf("%s: %w", op, ErrUserExists)
		}

		lg.Error("create_user_failed", "err", err)
		return nil, fmt.Errorf("%s: %w", op, ErrInternalFailure)
	}

	lg.Info("user_registered", "user_id", created.ID.String())

	pub := created.Public()
	return &pub, nil
}

// UpdateAccountDetails меняет отображаемое имя и email.
func (s *Service) UpdateAccountDetails(ctx context.Context, userID uuid.UUID, fullName, email string) (*models.PublicUser, error) {
	const op = "service.UpdateAccountDetails"

	fullName = strings.TrimSpace(fullName)
	email = normalizeIdentifier(email)

	lg := log.From(ctx).With("op", op, "user_id", userID.String())

	if fullName == "" || email == "" {
		return nil, fmt.Errorf("%s: %w", op, ErrFieldsRequired)
	}

	if !validEmail(email) {
		return nil, fmt.Errorf("%s: %w", op, ErrInvalidEmail)
	}

	updated, err := s.storage.UpdateUser(ctx, userID, models.UserUpdate{FullName: &fullName, Email: &email})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, mapUpdateErr(lg, err))
	}

	lg.Info("account_details_updated")

	pub := updated.Public()
	return &pub, nil
}

// UpdateAvatar загружает новый аватар и сохраняет ссылку на него.
func (s *Service) UpdateAvatar(ctx context.Context, userID uuid.UUID, file *assets.File) (*models.PublicUser, error) {
	const op = "service.UpdateAvatar"

	if file == nil {
		return nil, fmt.Errorf("%s: %w", op, ErrAvatarRequired)
	}

	lg := log.From(ctx).With("op", op, "user_id", userID.String())

	url, err := s.upload(ctx, assets.FolderAvatars, userID, file, ErrAvatarUploadFailed)
	if err != nil {
		lg.Error("avatar_upload_failed", "err", err)
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	updated, err := s.storage.UpdateUser(ctx, userID, models.UserUpdate{Avatar: &url})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, mapUpdateErr(lg, err))
	}

	lg.Info("avatar_updated")

	pub := updated.Public()
	return &pub, nil
}

// UpdateCoverImage загружает новую обложку и сохраняет ссылку на неё.
func (s *Service) UpdateCoverImage(ctx context.Context, userID uuid.UUID, file *assets.File) (*models.PublicUser, error) {
	const op = "service.UpdateCoverImage"

	if file == nil {
		return nil, fmt.Errorf("%s: %w", op, ErrCoverImageRequired)
	}

	lg := log.From(ctx).With("op", op, "user_id", userID.String())

	url, err := s.upload(ctx, assets.FolderCovers, userID, file, ErrCoverUploadFailed)
	if err != nil {
		lg.Error("cover_upload_failed", "err", err)
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	updated, err := s.storage.UpdateUser(ctx, userID, models.UserUpdate{CoverImage: &url})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, mapUpdateErr(lg, err))
	}

	lg.Info("cover_image_updated")

	pub := updated.Public()
	return &pub, nil
}

// upload кладёт файл в папку пользователя. Невалидный файл — ErrInvalidFile,
// прочие ошибки хранилища — failed.
func (s *Service) upload(ctx context.Context, folder string, userID uuid.UUID, f *assets.File, failed *Error) (string, error) {
	url, err := s.uploader.Upload(ctx, path.Join(folder, userID.String()), f)
	if err != nil {
		if errors.Is(err, assets.ErrInvalidFile) {
			return "", fmt.Errorf("%w: %v", ErrInvalidFile, err)
		}
		return "", fmt.Errorf("%w: %v", failed, err)
	}

	return url, nil
}

// discardUploads удаляет файлы неудавшейся регистрации. Ошибки только логируются.
func (s *Service) discardUploads(ctx context.Context, lg *slog.Logger, urls []string) {
	if len(urls) == 0 {
		return
	}

	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), cleanupTimeout)
	defer cancel()

	for _, u := range urls {
		if err := s.uploader.Delete(ctx, u); err != nil {
			lg.Warn("orphan_asset_cleanup_failed", "url", u, "err", err)
		}
	}
}

// mapUpdateErr переводит ошибки UpdateUser в ошибки сервиса.
func mapUpdateErr(lg *slog.Logger, err error) error {
	switch {
	case errors.Is(err, storage.ErrNotFound):
		return ErrUserNotFound
	case errors.Is(err, storage.ErrAlreadyExists):
		return ErrEmailTaken
	default:
		lg.Error("update_user_failed", "err", err)
		return ErrInternalFailure
	}
}

// normalizeIdentifier обрезает пробелы и приводит к нижнему регистру.
func normalizeIdentifier(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// validEmail принимает только «голый» адрес без отображаемого имени.
func validEmail(email string) bool {
	addr, err := mail.ParseAddress(email)
	return err == nil && addr.Address == email
}
